package richtext

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownBlockKind signals a stored document referenced a block kind this
// version of the model does not know.
var ErrUnknownBlockKind = errors.New("richtext: unknown block kind")

// wireBlock is the jsonb storage shape of a single block.
type wireBlock struct {
	Kind  string     `json:"kind"`
	Level int        `json:"level,omitempty"`
	Style ListStyle  `json:"style,omitempty"`
	Spans []wireSpan `json:"spans"`
}

type wireSpan struct {
	Text  string `json:"text"`
	Marks []Mark `json:"marks,omitempty"`
}

const (
	kindHeading   = "heading"
	kindParagraph = "paragraph"
	kindListItem  = "listItem"
)

// MarshalJSON encodes the document for jsonb storage.
func (d Document) MarshalJSON() ([]byte, error) {
	wire := make([]wireBlock, len(d))
	for i, b := range d {
		switch blk := b.(type) {
		case Heading:
			wire[i] = wireBlock{Kind: kindHeading, Level: blk.Level, Spans: toWireSpans(blk.Text)}
		case Paragraph:
			wire[i] = wireBlock{Kind: kindParagraph, Spans: toWireSpans(blk.Text)}
		case ListItem:
			wire[i] = wireBlock{Kind: kindListItem, Style: blk.Style, Spans: toWireSpans(blk.Text)}
		default:
			return nil, fmt.Errorf("richtext: marshal block %d: %w", i, ErrUnknownBlockKind)
		}
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes a jsonb document.
func (d *Document) UnmarshalJSON(data []byte) error {
	var wire []wireBlock
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("richtext: decode document: %w", err)
	}
	doc := make(Document, len(wire))
	for i, w := range wire {
		spans := fromWireSpans(w.Spans)
		switch w.Kind {
		case kindHeading:
			level := w.Level
			if level == 0 {
				level = 2
			}
			doc[i] = Heading{Level: level, Text: spans}
		case kindParagraph:
			doc[i] = Paragraph{Text: spans}
		case kindListItem:
			style := w.Style
			if style == "" {
				style = ListBullet
			}
			doc[i] = ListItem{Style: style, Text: spans}
		default:
			return fmt.Errorf("richtext: block %d kind %q: %w", i, w.Kind, ErrUnknownBlockKind)
		}
	}
	*d = doc
	return nil
}

func toWireSpans(spans []Span) []wireSpan {
	out := make([]wireSpan, len(spans))
	for i, s := range spans {
		out[i] = wireSpan{Text: s.Text, Marks: s.Marks}
	}
	return out
}

func fromWireSpans(spans []wireSpan) []Span {
	out := make([]Span, len(spans))
	for i, s := range spans {
		out[i] = Span{Text: s.Text, Marks: s.Marks}
	}
	return out
}
