package documentai

import (
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/protobuf/encoding/protojson"
)

func TestFromProto(t *testing.T) {
	var doc documentaipb.Document
	err := protojson.Unmarshal([]byte(`{
	  "text": "ACME\n2 Pens $3.00",
	  "entities": [
	    {"type": "supplier_name", "mentionText": "ACME", "normalizedValue": {"text": "ACME Inc"}},
	    {"type": "line_item",
	     "textAnchor": {"textSegments": [{"startIndex": "5", "endIndex": "17"}]},
	     "properties": [
	       {"type": "line_item/quantity", "mentionText": "2"},
	       {"type": "line_item/description", "mentionText": "Pens"}
	     ]}
	  ],
	  "pages": [{"pageNumber": 1, "layout": {"confidence": 0.75}}]
	}`), &doc)
	if err != nil {
		t.Fatalf("protojson: %v", err)
	}

	resp := FromProto(&doc)
	if resp.Document == nil {
		t.Fatal("expected a document")
	}
	d := resp.Document
	if len(d.Entities) != 2 {
		t.Fatalf("entities = %d", len(d.Entities))
	}
	if got := deref(ExtractHeader(d.Entities, TypeSupplierName)); got != "ACME Inc" {
		t.Errorf("supplier = %q", got)
	}
	li := d.Entities[1]
	if got := Resolve(li.TextAnchor, d.Text); got != "2 Pens $3.00" {
		t.Errorf("line anchor = %q", got)
	}
	if len(li.Properties) != 2 || deref(li.Property(TypeLineItemQuantity)) != "2" {
		t.Errorf("properties = %+v", li.Properties)
	}
	if d.Confidence() != 0.75 {
		t.Errorf("confidence = %v", d.Confidence())
	}
}

func TestFromProto_NilDocument(t *testing.T) {
	if resp := FromProto(nil); resp == nil || resp.Document != nil {
		t.Errorf("FromProto(nil) = %+v", resp)
	}
}
