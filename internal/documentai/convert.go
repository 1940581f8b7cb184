package documentai

import (
	"cloud.google.com/go/documentai/apiv1/documentaipb"
)

// FromProto converts an SDK document into the pipeline's model. A nil
// document yields a Response with a nil Document.
func FromProto(doc *documentaipb.Document) *Response {
	if doc == nil {
		return &Response{}
	}
	out := &Document{
		Text:     doc.GetText(),
		Entities: entitiesFromProto(doc.GetEntities()),
	}
	for _, p := range doc.GetPages() {
		page := Page{PageNumber: int(p.GetPageNumber())}
		if l := p.GetLayout(); l != nil {
			page.Layout = &Layout{Confidence: float64(l.GetConfidence())}
			page.PageAnchor = &PageAnchor{Confidence: float64(l.GetConfidence())}
		}
		out.Pages = append(out.Pages, page)
	}
	return &Response{Document: out}
}

func entitiesFromProto(in []*documentaipb.Document_Entity) []Entity {
	if len(in) == 0 {
		return nil
	}
	out := make([]Entity, 0, len(in))
	for _, e := range in {
		if e == nil {
			continue
		}
		ent := Entity{
			Type:        e.GetType(),
			MentionText: e.GetMentionText(),
			MentionID:   e.GetMentionId(),
			Confidence:  float64(e.GetConfidence()),
			Properties:  entitiesFromProto(e.GetProperties()),
		}
		if nv := e.GetNormalizedValue(); nv != nil {
			ent.NormalizedValue = &NormalizedValue{Text: nv.GetText()}
		}
		if ta := e.GetTextAnchor(); ta != nil {
			anchor := &TextAnchor{Content: ta.GetContent()}
			for _, s := range ta.GetTextSegments() {
				anchor.TextSegments = append(anchor.TextSegments, TextSegment{
					StartIndex: NewOffset(s.GetStartIndex()),
					EndIndex:   NewOffset(s.GetEndIndex()),
				})
			}
			ent.TextAnchor = anchor
		}
		out = append(out, ent)
	}
	return out
}
