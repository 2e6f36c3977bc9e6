package contract

import (
	"sponsorflow/pipeline"
)

// RuleSource groups readiness rules by who supplies the missing data.
type RuleSource string

const (
	SourceOrganizer    RuleSource = "organizer"
	SourceSponsor      RuleSource = "sponsor"
	SourcePipelineData RuleSource = "pipeline-data"
)

// RuleSeverity is required or recommended. Only required gaps block sending.
type RuleSeverity string

const (
	SeverityRequired    RuleSeverity = "required"
	SeverityRecommended RuleSeverity = "recommended"
)

// ReadinessInput is everything the rule set evaluates over.
type ReadinessInput struct {
	Record  pipeline.Record
	Sponsor SponsorInfo
	Event   EventInfo
}

// Rule is one declarative field check.
type Rule struct {
	Field    string
	Label    string
	Source   RuleSource
	Severity RuleSeverity
	Met      func(ReadinessInput) bool
}

// Gap is one unmet rule, reported back to the user grouped by source so they
// know who must supply the missing data.
type Gap struct {
	Field    string       `json:"field"`
	Label    string       `json:"label"`
	Source   RuleSource   `json:"source"`
	Severity RuleSeverity `json:"severity"`
}

// ReadinessReport is the outcome of a readiness check. Ready means zero unmet
// rules of any severity; CanSend means zero unmet required rules.
type ReadinessReport struct {
	Missing []Gap
	Ready   bool
	CanSend bool
}

// readinessRules is the fixed rule table. The contact-person rule is the sole
// required one: a contract can go out with warnings about everything else,
// but never without someone to address it to.
var readinessRules = []Rule{
	{
		Field:    "contacts.primary",
		Label:    "Primary contact person with name and email",
		Source:   SourcePipelineData,
		Severity: SeverityRequired,
		Met: func(in ReadinessInput) bool {
			c := in.Record.PrimaryContact()
			return c != nil && c.Name != "" && c.Email != ""
		},
	},
	{
		Field:    "tier",
		Label:    "Sponsorship tier",
		Source:   SourcePipelineData,
		Severity: SeverityRecommended,
		Met:      func(in ReadinessInput) bool { return in.Record.TierID != nil },
	},
	{
		Field:    "amount",
		Label:    "Agreed amount",
		Source:   SourcePipelineData,
		Severity: SeverityRecommended,
		Met:      func(in ReadinessInput) bool { return in.Record.Amount != nil && *in.Record.Amount > 0 },
	},
	{
		Field:    "sponsor.org_number",
		Label:    "Sponsor organization number",
		Source:   SourceSponsor,
		Severity: SeverityRecommended,
		Met:      func(in ReadinessInput) bool { return in.Sponsor.OrgNumber != "" },
	},
	{
		Field:    "sponsor.address",
		Label:    "Sponsor postal address",
		Source:   SourceSponsor,
		Severity: SeverityRecommended,
		Met:      func(in ReadinessInput) bool { return in.Sponsor.Address != "" },
	},
	{
		Field:    "billing.email",
		Label:    "Sponsor billing email",
		Source:   SourceSponsor,
		Severity: SeverityRecommended,
		Met:      func(in ReadinessInput) bool { return in.Record.Billing.Email != "" },
	},
	{
		Field:    "organizer.name",
		Label:    "Organizer legal name",
		Source:   SourceOrganizer,
		Severity: SeverityRecommended,
		Met:      func(in ReadinessInput) bool { return in.Event.Organizer.Name != "" },
	},
	{
		Field:    "organizer.org_number",
		Label:    "Organizer organization number",
		Source:   SourceOrganizer,
		Severity: SeverityRecommended,
		Met:      func(in ReadinessInput) bool { return in.Event.Organizer.OrgNumber != "" },
	},
	{
		Field:    "event.dates",
		Label:    "Event dates",
		Source:   SourceOrganizer,
		Severity: SeverityRecommended,
		Met:      func(in ReadinessInput) bool { return !in.Event.StartDate.IsZero() },
	},
	{
		Field:    "event.venue",
		Label:    "Event venue",
		Source:   SourceOrganizer,
		Severity: SeverityRecommended,
		Met:      func(in ReadinessInput) bool { return in.Event.Venue != "" },
	},
}

// CheckReadiness evaluates the rule table against the record and its context.
func CheckReadiness(in ReadinessInput) ReadinessReport {
	report := ReadinessReport{CanSend: true}
	for _, rule := range readinessRules {
		if rule.Met(in) {
			continue
		}
		report.Missing = append(report.Missing, Gap{
			Field:    rule.Field,
			Label:    rule.Label,
			Source:   rule.Source,
			Severity: rule.Severity,
		})
		if rule.Severity == SeverityRequired {
			report.CanSend = false
		}
	}
	report.Ready = len(report.Missing) == 0
	return report
}
