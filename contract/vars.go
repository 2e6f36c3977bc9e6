package contract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"sponsorflow/richtext"
	"sponsorflow/template"
)

// SponsorInfo is the sponsor-side identity rendered into the contract.
type SponsorInfo struct {
	Name      string
	OrgNumber string
	Address   string
	Website   string
}

// ContactInfo is the sponsor's signing contact.
type ContactInfo struct {
	Name  string
	Email string
	Phone string
}

// TierInfo is the sponsorship package being sold.
type TierInfo struct {
	Name  string
	Perks []string
}

// AddOnInfo is one purchased add-on.
type AddOnInfo struct {
	Name string
}

// OrganizerInfo identifies the contracting organizer.
type OrganizerInfo struct {
	Name      string
	OrgNumber string
	Address   string
	Email     string
}

// EventInfo is the event the sponsorship attaches to.
type EventInfo struct {
	Title     string
	StartDate time.Time
	EndDate   time.Time
	Venue     string
	City      string
	Organizer OrganizerInfo
}

// VariableContext is the request-scoped aggregate the resolver reads. It is
// rebuilt for every render and never persisted.
type VariableContext struct {
	Sponsor  SponsorInfo
	Contact  *ContactInfo
	Tier     *TierInfo
	AddOns   []AddOnInfo
	Amount   *float64
	Currency string
	Language template.Language
	Event    EventInfo
}

// BuildVariables flattens the context into the variable dictionary. Keys are
// added only when the underlying field is present; placeholders for absent
// fields therefore pass through rendering untouched.
func BuildVariables(vc VariableContext) map[string]string {
	vars := make(map[string]string, 24)

	put := func(key, value string) {
		if value != "" {
			vars[key] = value
		}
	}

	put("SPONSOR_NAME", vc.Sponsor.Name)
	put("SPONSOR_ORG_NUMBER", vc.Sponsor.OrgNumber)
	put("SPONSOR_ADDRESS", vc.Sponsor.Address)
	put("SPONSOR_WEBSITE", vc.Sponsor.Website)

	if vc.Contact != nil {
		put("CONTACT_NAME", vc.Contact.Name)
		put("CONTACT_EMAIL", vc.Contact.Email)
		put("CONTACT_PHONE", vc.Contact.Phone)
	}

	if vc.Tier != nil {
		put("TIER_NAME", vc.Tier.Name)
		if len(vc.Tier.Perks) > 0 {
			put("TIER_PERKS", strings.Join(vc.Tier.Perks, ", "))
		}
	}

	if len(vc.AddOns) > 0 {
		names := make([]string, len(vc.AddOns))
		for i, a := range vc.AddOns {
			names[i] = a.Name
		}
		put("ADDONS", strings.Join(names, ", "))
	}

	if vc.Amount != nil {
		put("AMOUNT", FormatAmount(*vc.Amount, vc.Currency, vc.Language))
	}

	put("EVENT_TITLE", vc.Event.Title)
	put("EVENT_VENUE", vc.Event.Venue)
	put("EVENT_CITY", vc.Event.City)
	if !vc.Event.StartDate.IsZero() {
		put("EVENT_DATES", FormatDateRange(vc.Event.StartDate, vc.Event.EndDate, vc.Language))
	}
	put("ORGANIZER_NAME", vc.Event.Organizer.Name)
	put("ORGANIZER_ORG_NUMBER", vc.Event.Organizer.OrgNumber)
	put("ORGANIZER_ADDRESS", vc.Event.Organizer.Address)
	put("ORGANIZER_EMAIL", vc.Event.Organizer.Email)

	return vars
}

var placeholderRE = regexp.MustCompile(`\{\{\{([A-Z0-9_]+)\}\}\}`)

// Substitute replaces every {{{KEY}}} occurrence that has a dictionary entry.
// Unknown placeholders are not errors; they remain literally in the text.
func Substitute(s string, vars map[string]string) string {
	return placeholderRE.ReplaceAllStringFunc(s, func(token string) string {
		key := token[3 : len(token)-3]
		if value, ok := vars[key]; ok {
			return value
		}
		return token
	})
}

// SubstituteRichText substitutes into every span of the tree, preserving
// block order, span order and emphasis marks.
func SubstituteRichText(doc richtext.Document, vars map[string]string) richtext.Document {
	return doc.MapSpans(func(text string) string {
		return Substitute(text, vars)
	})
}

func printerFor(lang template.Language) *message.Printer {
	if lang == template.LangNorwegian {
		return message.NewPrinter(language.Norwegian)
	}
	return message.NewPrinter(language.English)
}

// FormatAmount renders a monetary amount with locale-aware grouping and the
// currency code appended, e.g. "50 000 NOK" / "50,000 USD".
func FormatAmount(amount float64, currencyCode string, lang template.Language) string {
	p := printerFor(lang)
	formatted := p.Sprint(number.Decimal(amount, number.MaxFractionDigits(2)))
	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	if code == "" {
		return formatted
	}
	return formatted + " " + code
}

// FormatDateRange collapses to a single formatted date when start and end
// share a month, otherwise joins both with a dash.
func FormatDateRange(start, end time.Time, lang template.Language) string {
	if end.IsZero() || sameMonth(start, end) {
		return formatDate(start, lang)
	}
	return formatDate(start, lang) + " – " + formatDate(end, lang)
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

var norwegianMonths = [...]string{
	"januar", "februar", "mars", "april", "mai", "juni",
	"juli", "august", "september", "oktober", "november", "desember",
}

func formatDate(t time.Time, lang template.Language) string {
	if lang == template.LangNorwegian {
		return fmt.Sprintf("%d. %s %d", t.Day(), norwegianMonths[t.Month()-1], t.Year())
	}
	return t.Format("2 January 2006")
}
