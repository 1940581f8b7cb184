package documentai

import (
	"encoding/json"
	"strings"
	"testing"
)

func off(s string) *Offset {
	o := Offset(s)
	return &o
}

func TestResolve(t *testing.T) {
	text := "  ACME Corp\nInvoice 42\nWidget 3 $9.00  "

	tests := []struct {
		name   string
		anchor *TextAnchor
		want   string
	}{
		{"nil anchor", nil, ""},
		{"no segments", &TextAnchor{}, ""},
		{"single", &TextAnchor{TextSegments: []TextSegment{{StartIndex: off("2"), EndIndex: off("11")}}}, "ACME Corp"},
		{"missing start", &TextAnchor{TextSegments: []TextSegment{{EndIndex: off("11")}}}, "ACME Corp"},
		{"missing end", &TextAnchor{TextSegments: []TextSegment{{StartIndex: off("23")}}}, "Widget 3 $9.00"},
		{"multi segment", &TextAnchor{TextSegments: []TextSegment{
			{StartIndex: off("12"), EndIndex: off("20")},
			{StartIndex: off("20"), EndIndex: off("23")},
		}}, "Invoice 42"},
		{"non-numeric", &TextAnchor{TextSegments: []TextSegment{{StartIndex: off("abc"), EndIndex: off("5")}}}, ""},
		{"negative", &TextAnchor{TextSegments: []TextSegment{{StartIndex: off("-1"), EndIndex: off("5")}}}, ""},
		{"end past text", &TextAnchor{TextSegments: []TextSegment{{StartIndex: off("0"), EndIndex: off("999")}}}, ""},
		{"start after end", &TextAnchor{TextSegments: []TextSegment{{StartIndex: off("9"), EndIndex: off("3")}}}, ""},
		{"one bad segment spoils all", &TextAnchor{TextSegments: []TextSegment{
			{StartIndex: off("2"), EndIndex: off("11")},
			{StartIndex: off("x")},
		}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.anchor, text); got != tt.want {
				t.Errorf("Resolve = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolve_FullRangeRoundTrip(t *testing.T) {
	for _, text := range []string{"", "plain", "  padded text \n", "Café 3 × €2,00"} {
		n := len([]rune(text))
		anchor := &TextAnchor{TextSegments: []TextSegment{{StartIndex: NewOffset(0), EndIndex: NewOffset(int64(n))}}}
		want := strings.TrimSpace(text)
		if got := Resolve(anchor, text); got != want {
			t.Errorf("Resolve(full %q) = %q, want %q", text, got, want)
		}
	}
}

func TestResolve_CharacterOffsets(t *testing.T) {
	text := "Crème brûlée 2"
	anchor := &TextAnchor{TextSegments: []TextSegment{{StartIndex: off("6"), EndIndex: off("12")}}}
	if got := Resolve(anchor, text); got != "brûlée" {
		t.Errorf("Resolve = %q, want %q", got, "brûlée")
	}
}

func TestOffset_UnmarshalJSON(t *testing.T) {
	var seg TextSegment
	if err := json.Unmarshal([]byte(`{"startIndex":"12","endIndex":40}`), &seg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if seg.StartIndex == nil || *seg.StartIndex != "12" {
		t.Errorf("startIndex = %v", seg.StartIndex)
	}
	if seg.EndIndex == nil || *seg.EndIndex != "40" {
		t.Errorf("endIndex = %v", seg.EndIndex)
	}

	var missing TextSegment
	if err := json.Unmarshal([]byte(`{"endIndex":"3"}`), &missing); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if missing.StartIndex != nil {
		t.Error("absent startIndex should stay nil")
	}
}
