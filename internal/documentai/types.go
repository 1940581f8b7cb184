// Package documentai models the subset of a Document AI process response the
// invoice pipeline consumes, and resolves entities against the document text.
package documentai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Response is the OCR service's process response. Document is nil when the
// service returned no payload.
type Response struct {
	Document *Document `json:"document"`
}

type Document struct {
	Text     string   `json:"text,omitempty"`
	Entities []Entity `json:"entities,omitempty"`
	Pages    []Page   `json:"pages,omitempty"`
}

// Entity is one typed span detected by the OCR model. Properties carries the
// nested sub-entities of a line_item.
type Entity struct {
	Type            string           `json:"type"`
	MentionText     string           `json:"mentionText,omitempty"`
	MentionID       string           `json:"mentionId,omitempty"`
	Confidence      float64          `json:"confidence,omitempty"`
	NormalizedValue *NormalizedValue `json:"normalizedValue,omitempty"`
	TextAnchor      *TextAnchor      `json:"textAnchor,omitempty"`
	Properties      []Entity         `json:"properties,omitempty"`
}

type NormalizedValue struct {
	Text string `json:"text,omitempty"`
}

type TextAnchor struct {
	TextSegments []TextSegment `json:"textSegments,omitempty"`
	Content      string        `json:"content,omitempty"`
}

// TextSegment is a half-open [StartIndex, EndIndex) range into Document.Text.
// A nil bound means "from the beginning" / "to the end".
type TextSegment struct {
	StartIndex *Offset `json:"startIndex,omitempty"`
	EndIndex   *Offset `json:"endIndex,omitempty"`
}

type Page struct {
	PageNumber int         `json:"pageNumber,omitempty"`
	PageAnchor *PageAnchor `json:"pageAnchor,omitempty"`
	Layout     *Layout     `json:"layout,omitempty"`
}

type PageAnchor struct {
	Confidence float64 `json:"confidence"`
}

type Layout struct {
	Confidence float64 `json:"confidence"`
}

// Confidence returns the first page's anchor confidence, falling back to the
// first page's layout confidence, else 0.
func (d *Document) Confidence() float64 {
	if d == nil || len(d.Pages) == 0 {
		return 0
	}
	p := d.Pages[0]
	switch {
	case p.PageAnchor != nil:
		return p.PageAnchor.Confidence
	case p.Layout != nil:
		return p.Layout.Confidence
	}
	return 0
}

// Offset is a text index exactly as received. Document AI's JSON encoding
// writes int64 values as strings; hand-built payloads often use numbers.
// Parsing is deferred to resolution so a malformed value can degrade quietly.
type Offset string

func NewOffset(n int64) *Offset {
	o := Offset(strconv.FormatInt(n, 10))
	return &o
}

func (o *Offset) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*o = Offset(s)
		return nil
	}
	*o = Offset(b)
	return nil
}

func (o Offset) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(o))
}

// Int parses the offset as a non-negative integer.
func (o Offset) Int() (int, error) {
	n, err := strconv.Atoi(string(o))
	if err != nil {
		return 0, fmt.Errorf("offset %q: %w", string(o), err)
	}
	if n < 0 {
		return 0, fmt.Errorf("offset %d is negative", n)
	}
	return n, nil
}

// DecodeResponse parses a JSON process response as returned by the REST API
// or saved from a previous run.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode document ai response: %w", err)
	}
	return &resp, nil
}
