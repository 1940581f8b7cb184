package entity

import "testing"

func TestSummarize(t *testing.T) {
	items := []LineItem{
		{RawText: "a", Category: "food", Amount: Str("$7.50"), AICategorized: true, AIConfidence: Int(90)},
		{RawText: "b", Category: "food", Amount: Str("1,002.50")},
		{RawText: "c", Category: "office", Amount: Str("n/a"), AIConfidence: Int(0)},
		{RawText: "d"},
	}

	s := Summarize(items)
	if len(s.Categories) != 3 {
		t.Fatalf("categories = %+v", s.Categories)
	}
	if s.Categories[0].Category != "food" || s.Categories[0].Items != 2 || s.Categories[0].Amount != "1010.00" {
		t.Errorf("food bucket = %+v", s.Categories[0])
	}
	// ties sort by name
	if s.Categories[1].Category != "office" || s.Categories[2].Category != "other" {
		t.Errorf("order = %+v", s.Categories)
	}
	if s.Categories[1].Amount != "0.00" {
		t.Errorf("unparseable amount should add nothing, got %s", s.Categories[1].Amount)
	}
	if s.AICategorized != 1 {
		t.Errorf("ai categorized = %d", s.AICategorized)
	}
	if s.AverageAIConfidence != 22.5 {
		t.Errorf("avg confidence = %v, want 22.5", s.AverageAIConfidence)
	}

	if empty := Summarize(nil); empty.AverageAIConfidence != 0 || len(empty.Categories) != 0 {
		t.Errorf("empty summary = %+v", empty)
	}
}

func TestSummarize_CommaDecimalIsNotScaled(t *testing.T) {
	s := Summarize([]LineItem{
		{RawText: "a", Category: "food", Amount: Str("2,50")},
		{RawText: "b", Category: "food", Amount: Str("3.00")},
	})
	if s.Categories[0].Amount != "3.00" {
		t.Errorf("food amount = %s, want 3.00", s.Categories[0].Amount)
	}
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"$2.50", "2.5", true},
		{" 1,234.00 ", "1234", true},
		{"€-3", "-3", true},
		{"", "0", false},
		{"abc", "0", false},
		{"1,234,567.891", "1234567.891", true},
		{"2,50", "0", false},
		{"1.234,56", "0", false},
		{"12,5", "0", false},
	}
	for _, tt := range tests {
		d, ok := ParseMoney(tt.in)
		if ok != tt.ok || d.String() != tt.want {
			t.Errorf("ParseMoney(%q) = %s,%v want %s,%v", tt.in, d.String(), ok, tt.want, tt.ok)
		}
	}
}

func TestInvoiceClone(t *testing.T) {
	inv := &Invoice{Supplier: Str("ACME"), LineItems: []LineItem{{RawText: "x", Description: Str("x"), AIConfidence: Int(5)}}}
	c := inv.Clone()
	*c.Supplier = "Other"
	*c.LineItems[0].Description = "y"
	*c.LineItems[0].AIConfidence = 99

	if *inv.Supplier != "ACME" || *inv.LineItems[0].Description != "x" || *inv.LineItems[0].AIConfidence != 5 {
		t.Error("Clone shares memory with the original")
	}
}
