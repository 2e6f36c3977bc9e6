package contract

import (
	"strings"
	"testing"
	"time"
	"unicode"

	"sponsorflow/richtext"
	"sponsorflow/template"
)

func TestSubstituteReplacesKnownKeys(t *testing.T) {
	vars := map[string]string{"SPONSOR_NAME": "Acme Corp", "EVENT_TITLE": "DevConf"}

	got := Substitute("Partnership between {{{SPONSOR_NAME}}} and {{{EVENT_TITLE}}}.", vars)
	want := "Partnership between Acme Corp and DevConf."
	if got != want {
		t.Errorf("Substitute = %q, want %q", got, want)
	}
}

func TestSubstituteKeepsUnknownPlaceholders(t *testing.T) {
	got := Substitute("Contact {{{CONTACT_NAME}}} at {{{CONTACT_EMAIL}}}", map[string]string{})
	want := "Contact {{{CONTACT_NAME}}} at {{{CONTACT_EMAIL}}}"
	if got != want {
		t.Errorf("unknown placeholders must pass through, got %q", got)
	}
}

func TestSubstituteIdempotent(t *testing.T) {
	vars := map[string]string{"SPONSOR_NAME": "Acme Corp"}
	input := "{{{SPONSOR_NAME}}} and {{{UNKNOWN_KEY}}}"

	once := Substitute(input, vars)
	twice := Substitute(once, vars)
	if once != twice {
		t.Errorf("substitution not idempotent: %q vs %q", once, twice)
	}
}

func TestSubstituteRichTextPreservesTree(t *testing.T) {
	doc := richtext.Document{
		richtext.Paragraph{Text: []richtext.Span{
			{Text: "Partnership with "},
			{Text: "{{{SPONSOR_NAME}}}", Marks: []richtext.Mark{richtext.MarkBold}},
		}},
		richtext.ListItem{Style: richtext.ListNumber, Text: []richtext.Span{{Text: "{{{TIER_NAME}}}"}}},
	}
	vars := map[string]string{"SPONSOR_NAME": "Acme Corp"}

	out := SubstituteRichText(doc, vars)

	if len(out) != 2 {
		t.Fatalf("block count changed: %d", len(out))
	}
	para, ok := out[0].(richtext.Paragraph)
	if !ok {
		t.Fatalf("block 0 changed kind: %T", out[0])
	}
	if para.Text[1].Text != "Acme Corp" {
		t.Errorf("span text = %q, want %q", para.Text[1].Text, "Acme Corp")
	}
	if !para.Text[1].HasMark(richtext.MarkBold) {
		t.Errorf("bold mark lost during substitution")
	}
	item := out[1].(richtext.ListItem)
	if item.Text[0].Text != "{{{TIER_NAME}}}" {
		t.Errorf("missing key must stay literal, got %q", item.Text[0].Text)
	}
}

func TestBuildVariablesSkipsAbsentFields(t *testing.T) {
	vc := VariableContext{
		Sponsor:  SponsorInfo{Name: "Acme Corp"},
		Language: template.LangEnglish,
		Event:    EventInfo{Title: "DevConf"},
	}

	vars := BuildVariables(vc)

	if vars["SPONSOR_NAME"] != "Acme Corp" {
		t.Errorf("SPONSOR_NAME = %q", vars["SPONSOR_NAME"])
	}
	for _, absent := range []string{"CONTACT_NAME", "TIER_NAME", "AMOUNT", "EVENT_DATES"} {
		if _, ok := vars[absent]; ok {
			t.Errorf("absent field %s must not produce a variable", absent)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	// x/text grouping separators are locale specific (no-break space for
	// nb); normalize every space variant before asserting.
	normalize := func(s string) string {
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return ' '
			}
			return r
		}, s)
	}

	cases := []struct {
		amount float64
		code   string
		lang   template.Language
		want   string
	}{
		{50000, "NOK", template.LangNorwegian, "50 000 NOK"},
		{50000, "USD", template.LangEnglish, "50,000 USD"},
		{1234.5, "", template.LangEnglish, "1,234.5"},
	}
	for _, tc := range cases {
		if got := normalize(FormatAmount(tc.amount, tc.code, tc.lang)); got != tc.want {
			t.Errorf("FormatAmount(%v, %q, %s) = %q, want %q", tc.amount, tc.code, tc.lang, got, tc.want)
		}
	}
}

func TestFormatDateRange(t *testing.T) {
	start := time.Date(2026, time.June, 12, 0, 0, 0, 0, time.UTC)
	sameMonthEnd := time.Date(2026, time.June, 14, 0, 0, 0, 0, time.UTC)
	nextMonthEnd := time.Date(2026, time.July, 2, 0, 0, 0, 0, time.UTC)

	if got := FormatDateRange(start, sameMonthEnd, template.LangEnglish); got != "12 June 2026" {
		t.Errorf("same-month range = %q", got)
	}
	if got := FormatDateRange(start, nextMonthEnd, template.LangEnglish); got != "12 June 2026 – 2 July 2026" {
		t.Errorf("cross-month range = %q", got)
	}
	if got := FormatDateRange(start, sameMonthEnd, template.LangNorwegian); got != "12. juni 2026" {
		t.Errorf("norwegian date = %q", got)
	}
}
