package richtext

// Mark is an emphasis toggle applied to a single span of text.
type Mark string

const (
	MarkBold   Mark = "bold"
	MarkItalic Mark = "italic"
)

// Span is a run of text sharing one set of marks.
type Span struct {
	Text  string
	Marks []Mark
}

// HasMark reports whether the span carries the given mark.
func (s Span) HasMark(m Mark) bool {
	for _, have := range s.Marks {
		if have == m {
			return true
		}
	}
	return false
}

// ListStyle distinguishes bullet from numbered list items.
type ListStyle string

const (
	ListBullet ListStyle = "bullet"
	ListNumber ListStyle = "number"
)

// Block is the closed set of node kinds a document is built from. Renderers
// are expected to switch exhaustively over Heading, Paragraph and ListItem.
type Block interface {
	isBlock()
	// Spans returns the styled text runs of the block in order.
	Spans() []Span
}

// Heading is a section heading at level 2, 3 or 4.
type Heading struct {
	Level int
	Text  []Span
}

// Paragraph is a plain prose block.
type Paragraph struct {
	Text []Span
}

// ListItem is a single bullet or numbered item. Numbering is positional:
// consecutive numbered items share a running counter that resets whenever a
// non-list block interrupts the sequence.
type ListItem struct {
	Style ListStyle
	Text  []Span
}

func (Heading) isBlock()   {}
func (Paragraph) isBlock() {}
func (ListItem) isBlock()  {}

func (h Heading) Spans() []Span   { return h.Text }
func (p Paragraph) Spans() []Span { return p.Text }
func (l ListItem) Spans() []Span  { return l.Text }

// Document is an ordered sequence of blocks.
type Document []Block

// PlainText flattens the document to text, joining blocks with newlines.
// Useful for previews and activity descriptions, not for rendering.
func (d Document) PlainText() string {
	var out []byte
	for i, b := range d {
		if i > 0 {
			out = append(out, '\n')
		}
		for _, s := range b.Spans() {
			out = append(out, s.Text...)
		}
	}
	return string(out)
}

// MapSpans returns a structurally identical document with every span's text
// passed through fn. Block order, span order and marks are preserved.
func (d Document) MapSpans(fn func(string) string) Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for i, b := range d {
		switch blk := b.(type) {
		case Heading:
			out[i] = Heading{Level: blk.Level, Text: mapSpanSlice(blk.Text, fn)}
		case Paragraph:
			out[i] = Paragraph{Text: mapSpanSlice(blk.Text, fn)}
		case ListItem:
			out[i] = ListItem{Style: blk.Style, Text: mapSpanSlice(blk.Text, fn)}
		}
	}
	return out
}

func mapSpanSlice(spans []Span, fn func(string) string) []Span {
	out := make([]Span, len(spans))
	for i, s := range spans {
		out[i] = Span{Text: fn(s.Text), Marks: append([]Mark(nil), s.Marks...)}
	}
	return out
}
