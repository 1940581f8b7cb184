package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// HeaderTextLimit bounds how much raw document text goes into the header prompt.
const HeaderTextLimit = 2000

const (
	CategorizationSystemPrompt = "You are an expert at categorizing invoice items. " +
		"Analyze the context and meaning to assign the most appropriate category. " +
		"Always respond with valid JSON only."

	HeaderSystemPrompt = "You are an expert at processing invoice data. Always respond with valid JSON only."
)

// BuildCategorizationPrompt enumerates the item descriptions (1-based) and
// the allowed category vocabulary, asking for one JSON object per item.
func BuildCategorizationPrompt(descriptions []string, allowed []string) string {
	var b strings.Builder
	b.WriteString("Analyze these invoice line items and categorize each one.\n\n")
	b.WriteString("Items to categorize:\n")
	for i, d := range descriptions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, oneLine(d))
	}
	b.WriteString("\nAvailable categories: ")
	b.WriteString(strings.Join(allowed, ", "))
	b.WriteString("\n\n")
	b.WriteString("For each item, determine:\n" +
		"1. Most appropriate category from the list above\n" +
		"2. More specific subcategory (optional)\n" +
		"3. Confidence level (0-100)\n" +
		"4. Clean/standardized description if the original is unclear\n\n")
	fmt.Fprintf(&b, "IMPORTANT: Return ONLY a valid JSON array with exactly %d objects, in the same order as the items, no markdown formatting.\n\n", len(descriptions))
	b.WriteString(`Format:
[
  {"category": "food", "subcategory": "groceries", "confidence": 95, "cleanDescription": "Fresh bread loaf"},
  {"category": "cleaning", "subcategory": "household", "confidence": 90, "cleanDescription": "Liquid detergent"}
]`)
	return b.String()
}

// BuildHeaderPrompt packages a bounded prefix of the raw text with the
// currently extracted header.
func BuildHeaderPrompt(rawText string, current CurrentHeader) string {
	cur, _ := json.MarshalIndent(current, "", "  ")

	var b strings.Builder
	b.WriteString("Analyze this invoice text and extract enhanced information:\n\n")
	b.WriteString("Raw invoice text:\n")
	b.WriteString(Truncate(rawText, HeaderTextLimit))
	b.WriteString("\n\nCurrent extracted data:\n")
	b.Write(cur)
	b.WriteString("\n\nIMPORTANT: Return ONLY valid JSON, no markdown formatting. Omit fields you cannot determine.\n\n")
	b.WriteString(`Format:
{
  "supplier_name": "cleaned supplier name",
  "invoice_date": "YYYY-MM-DD format",
  "invoice_number": "cleaned invoice number",
  "total_amount": "numeric value only",
  "currency": "USD/EUR/etc",
  "payment_terms": "if mentioned",
  "line_items_count": "number of items",
  "invoice_type": "receipt/invoice/bill"
}`)
	return b.String()
}

// keep one item per numbered line
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
