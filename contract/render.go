package contract

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-pdf/fpdf"

	"sponsorflow/richtext"
	"sponsorflow/template"
)

// ErrRenderFailure signals malformed rich-text input. A validated template
// should never trip this, but a corrupt tree must fail loudly rather than
// produce a corrupt document.
var ErrRenderFailure = errors.New("contract: render failure")

// Adobe-style text tags anchoring the provider's signature and date fields.
// Rendered effectively invisible (1pt white) next to the sponsor block.
const (
	signatureAnchorTag = "{{Sig_es_:signer1:signature}}"
	dateAnchorTag      = "{{Dte_es_:signer1:date}}"
)

// RenderInput is a resolved template plus everything page one needs.
type RenderInput struct {
	Template template.Template
	Vars     map[string]string
	Context  VariableContext

	// EmbedSignatureMarkers is false in self-hosted signing mode; then no
	// provider anchors are emitted.
	EmbedSignatureMarkers bool
}

const (
	pageLeft   = 20.0
	pageRight  = 20.0
	lineHeight = 5.5
	bodySize   = 10.0
)

// RenderDocument produces the paginated contract PDF.
func RenderDocument(in RenderInput) ([]byte, error) {
	if err := validateDocuments(in.Template); err != nil {
		return nil, err
	}

	r := &renderer{
		pdf:  fpdf.New("P", "mm", "A4", ""),
		vars: in.Vars,
	}
	r.tr = r.pdf.UnicodeTranslatorFromDescriptor("")
	r.pdf.SetMargins(pageLeft, 18, pageRight)
	r.pdf.SetAutoPageBreak(true, 22)
	r.pdf.AliasNbPages("")

	if footer := in.Template.Footer; footer != nil {
		text := Substitute(*footer, in.Vars)
		r.pdf.SetFooterFunc(func() {
			r.pdf.SetY(-14)
			r.pdf.SetFont("Helvetica", "", 7)
			r.pdf.SetTextColor(120, 120, 120)
			r.pdf.CellFormat(0, 5, r.tr(fmt.Sprintf("%s  ·  %d/{nb}", text, r.pdf.PageNo())), "", 0, "C", false, 0, "")
			r.pdf.SetTextColor(0, 0, 0)
		})
	}

	r.pdf.AddPage()
	r.renderHeader(in)
	r.renderTitle(in)
	r.renderParties(in)
	r.renderEventDetails(in)
	r.renderPricing(in)
	r.renderSections(in)
	r.renderSignatureArea(in)
	r.renderTermsAppendix(in)

	if err := r.pdf.Error(); err != nil {
		return nil, fmt.Errorf("contract: build pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := r.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("contract: write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// validateDocuments rejects trees the walk cannot render exhaustively.
func validateDocuments(tpl template.Template) error {
	for i, section := range tpl.Sections {
		if err := validateTree(section.Body); err != nil {
			return fmt.Errorf("contract: section %d (%s): %w", i, section.Heading, err)
		}
	}
	if err := validateTree(tpl.Terms); err != nil {
		return fmt.Errorf("contract: terms: %w", err)
	}
	return nil
}

func validateTree(doc richtext.Document) error {
	for i, block := range doc {
		if len(block.Spans()) == 0 {
			return fmt.Errorf("block %d: no text spans: %w", i, ErrRenderFailure)
		}
		switch blk := block.(type) {
		case richtext.Heading:
			if blk.Level < 2 || blk.Level > 4 {
				return fmt.Errorf("block %d: heading level %d: %w", i, blk.Level, ErrRenderFailure)
			}
		case richtext.Paragraph:
		case richtext.ListItem:
			if blk.Style != richtext.ListBullet && blk.Style != richtext.ListNumber {
				return fmt.Errorf("block %d: list style %q: %w", i, blk.Style, ErrRenderFailure)
			}
		default:
			return fmt.Errorf("block %d: kind %T: %w", i, block, ErrRenderFailure)
		}
	}
	return nil
}

type renderer struct {
	pdf  *fpdf.Fpdf
	vars map[string]string
	// the core fonts are cp1252; every written string goes through tr
	tr func(string) string

	// numbered-list counter, reset per document walk
	counter int
}

func (r *renderer) renderHeader(in RenderInput) {
	if in.Template.Header == nil {
		return
	}
	r.pdf.SetFont("Helvetica", "", 8)
	r.pdf.SetTextColor(120, 120, 120)
	r.pdf.CellFormat(0, 5, r.tr(Substitute(*in.Template.Header, in.Vars)), "", 1, "C", false, 0, "")
	r.pdf.SetTextColor(0, 0, 0)
	r.pdf.Ln(4)
}

func (r *renderer) renderTitle(in RenderInput) {
	r.pdf.SetFont("Helvetica", "B", 16)
	r.pdf.CellFormat(0, 9, r.tr(Substitute(in.Template.Title, in.Vars)), "", 1, "C", false, 0, "")
	r.pdf.Ln(4)
}

// renderParties draws the two-column identity table for the contracting
// parties: organizer left, sponsor right.
func (r *renderer) renderParties(in RenderInput) {
	org := in.Context.Event.Organizer
	sp := in.Context.Sponsor

	colWidth := (210.0 - pageLeft - pageRight) / 2

	r.pdf.SetFont("Helvetica", "B", 9)
	r.pdf.CellFormat(colWidth, 6, "Organizer", "B", 0, "L", false, 0, "")
	r.pdf.CellFormat(colWidth, 6, "Sponsor", "B", 1, "L", false, 0, "")

	rows := [][2]string{
		{org.Name, sp.Name},
		{orgNumberLine(org.OrgNumber), orgNumberLine(sp.OrgNumber)},
		{org.Address, sp.Address},
		{org.Email, contactLine(in.Context.Contact)},
	}
	r.pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		if row[0] == "" && row[1] == "" {
			continue
		}
		r.pdf.CellFormat(colWidth, 5.5, r.tr(row[0]), "", 0, "L", false, 0, "")
		r.pdf.CellFormat(colWidth, 5.5, r.tr(row[1]), "", 1, "L", false, 0, "")
	}
	r.pdf.Ln(4)
}

func orgNumberLine(orgNumber string) string {
	if orgNumber == "" {
		return ""
	}
	return "Org. no. " + orgNumber
}

func contactLine(c *ContactInfo) string {
	if c == nil {
		return ""
	}
	if c.Email == "" {
		return c.Name
	}
	return c.Name + " · " + c.Email
}

func (r *renderer) renderEventDetails(in RenderInput) {
	ev := in.Context.Event
	r.pdf.SetFont("Helvetica", "B", 11)
	r.pdf.CellFormat(0, 7, "Event", "", 1, "L", false, 0, "")
	r.pdf.SetFont("Helvetica", "", bodySize)

	lines := []string{ev.Title}
	if !ev.StartDate.IsZero() {
		lines = append(lines, FormatDateRange(ev.StartDate, ev.EndDate, in.Context.Language))
	}
	if ev.Venue != "" {
		venue := ev.Venue
		if ev.City != "" {
			venue += ", " + ev.City
		}
		lines = append(lines, venue)
	}
	for _, line := range lines {
		if line != "" {
			r.pdf.CellFormat(0, lineHeight, r.tr(line), "", 1, "L", false, 0, "")
		}
	}
	r.pdf.Ln(3)
}

func (r *renderer) renderPricing(in RenderInput) {
	if in.Context.Tier == nil && in.Context.Amount == nil {
		return
	}
	r.pdf.SetFont("Helvetica", "B", 11)
	r.pdf.CellFormat(0, 7, "Package", "", 1, "L", false, 0, "")
	r.pdf.SetFont("Helvetica", "", bodySize)

	if tier := in.Context.Tier; tier != nil {
		r.pdf.CellFormat(0, lineHeight, r.tr(tier.Name), "", 1, "L", false, 0, "")
		for _, perk := range tier.Perks {
			r.pdf.CellFormat(0, lineHeight, r.tr("   - "+perk), "", 1, "L", false, 0, "")
		}
	}
	for _, addOn := range in.Context.AddOns {
		r.pdf.CellFormat(0, lineHeight, r.tr("   + "+addOn.Name), "", 1, "L", false, 0, "")
	}
	if in.Context.Amount != nil {
		r.pdf.SetFont("Helvetica", "B", bodySize)
		r.pdf.CellFormat(0, lineHeight+1, r.tr(FormatAmount(*in.Context.Amount, in.Context.Currency, in.Context.Language)), "", 1, "L", false, 0, "")
	}
	r.pdf.Ln(3)
}

func (r *renderer) renderSections(in RenderInput) {
	for _, section := range in.Template.Sections {
		r.pdf.SetFont("Helvetica", "B", 11)
		r.pdf.CellFormat(0, 7, r.tr(Substitute(section.Heading, in.Vars)), "", 1, "L", false, 0, "")
		r.walkDocument(SubstituteRichText(section.Body, in.Vars))
		r.pdf.Ln(2)
	}
}

// walkDocument renders a rich-text tree. Numbered items share a running
// counter that any non-list block or heading resets; bullets always render a
// dot marker. Marks toggle per span, never per block.
func (r *renderer) walkDocument(doc richtext.Document) {
	r.counter = 0

	for _, block := range doc {
		switch blk := block.(type) {
		case richtext.Heading:
			r.counter = 0
			size := map[int]float64{2: 12, 3: 11, 4: 10}[blk.Level]
			r.pdf.Ln(1.5)
			r.pdf.SetFont("Helvetica", "B", size)
			r.writeSpans(blk.Text, "B", size)
			r.pdf.Ln(lineHeight + 1)
		case richtext.ListItem:
			marker := "• "
			if blk.Style == richtext.ListNumber {
				r.counter++
				marker = fmt.Sprintf("%d. ", r.counter)
			}
			r.pdf.SetFont("Helvetica", "", bodySize)
			r.pdf.SetX(pageLeft + 4)
			r.pdf.Write(lineHeight, r.tr(marker))
			r.writeSpans(blk.Text, "", bodySize)
			r.pdf.Ln(lineHeight)
		case richtext.Paragraph:
			r.counter = 0
			r.writeSpans(blk.Text, "", bodySize)
			r.pdf.Ln(lineHeight + 1)
		}
	}
}

// writeSpans flows the spans of one block, applying each span's own style
// toggles. Spans with different mark sets inside one block render with
// independently correct styling.
func (r *renderer) writeSpans(spans []richtext.Span, baseStyle string, size float64) {
	for _, span := range spans {
		style := baseStyle
		if span.HasMark(richtext.MarkBold) && !contains(style, 'B') {
			style += "B"
		}
		if span.HasMark(richtext.MarkItalic) {
			style += "I"
		}
		r.pdf.SetFont("Helvetica", style, size)
		r.pdf.Write(lineHeight, r.tr(span.Text))
	}
}

func contains(s string, c byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return true
		}
	}
	return false
}

// renderSignatureArea reserves the fixed two-party signing block at the end
// of page one's flow: a blank rule and label for each party. In hosted
// signing mode the provider anchors are embedded next to the sponsor block.
func (r *renderer) renderSignatureArea(in RenderInput) {
	r.pdf.Ln(10)

	colWidth := (210.0 - pageLeft - pageRight) / 2
	startY := r.pdf.GetY()

	// keep the whole area on one page
	if startY > 240 {
		r.pdf.AddPage()
		startY = r.pdf.GetY()
	}

	r.pdf.SetFont("Helvetica", "", bodySize)
	r.pdf.SetY(startY + 18)
	r.pdf.CellFormat(colWidth-8, 0.4, "", "T", 0, "L", false, 0, "")
	r.pdf.CellFormat(8, 0.4, "", "", 0, "L", false, 0, "")
	r.pdf.CellFormat(colWidth-8, 0.4, "", "T", 1, "L", false, 0, "")

	r.pdf.SetFont("Helvetica", "", 8)
	r.pdf.CellFormat(colWidth-8, 5, r.tr("For "+in.Context.Event.Organizer.Name), "", 0, "L", false, 0, "")
	r.pdf.CellFormat(8, 5, "", "", 0, "L", false, 0, "")
	r.pdf.CellFormat(colWidth-8, 5, r.tr("For "+in.Context.Sponsor.Name), "", 1, "L", false, 0, "")

	if in.EmbedSignatureMarkers {
		// 1pt white text: zero visual impact, positionally stable above
		// the sponsor's rule so the provider can place its fields.
		r.pdf.SetFont("Helvetica", "", 1)
		r.pdf.SetTextColor(255, 255, 255)
		r.pdf.Text(pageLeft+colWidth+2, startY+16, signatureAnchorTag)
		r.pdf.Text(pageLeft+colWidth+2, startY+20, dateAnchorTag)
		r.pdf.SetTextColor(0, 0, 0)
	}
}

// renderTermsAppendix renders the standard terms on their own pages.
func (r *renderer) renderTermsAppendix(in RenderInput) {
	if len(in.Template.Terms) == 0 {
		return
	}
	r.pdf.AddPage()
	r.pdf.SetFont("Helvetica", "B", 13)
	heading := "Standard Terms"
	if in.Context.Language == template.LangNorwegian {
		heading = "Standardvilkår"
	}
	r.pdf.CellFormat(0, 8, r.tr(heading), "", 1, "L", false, 0, "")
	r.pdf.Ln(2)
	r.walkDocument(SubstituteRichText(in.Template.Terms, in.Vars))
}
