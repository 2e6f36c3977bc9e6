package contract

import (
	"testing"
	"time"

	"sponsorflow/pipeline"
)

func completeInput() ReadinessInput {
	amount := 50000.0
	tierID := "tier-gold"
	return ReadinessInput{
		Record: pipeline.Record{
			ID:     "rec-1",
			TierID: &tierID,
			Amount: &amount,
			Contacts: []pipeline.ContactPerson{
				{Name: "Kari Nordmann", Email: "kari@acme.example", Primary: true},
			},
			Billing: pipeline.BillingInfo{Email: "billing@acme.example"},
		},
		Sponsor: SponsorInfo{Name: "Acme Corp", OrgNumber: "987654321", Address: "Storgata 1, Oslo"},
		Event: EventInfo{
			Title:     "DevConf",
			StartDate: time.Date(2026, time.June, 12, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, time.June, 14, 0, 0, 0, 0, time.UTC),
			Venue:     "Oslo Spektrum",
			Organizer: OrganizerInfo{Name: "DevConf AS", OrgNumber: "123456789"},
		},
	}
}

func TestCheckReadinessComplete(t *testing.T) {
	report := CheckReadiness(completeInput())
	if !report.Ready || !report.CanSend {
		t.Fatalf("complete record: Ready=%v CanSend=%v, missing=%v", report.Ready, report.CanSend, report.Missing)
	}
}

func TestCheckReadinessRecommendedGapsDoNotBlock(t *testing.T) {
	in := completeInput()
	in.Sponsor.OrgNumber = ""
	in.Record.TierID = nil
	in.Event.Venue = ""

	report := CheckReadiness(in)

	if report.Ready {
		t.Errorf("expected Ready=false with recommended gaps")
	}
	if !report.CanSend {
		t.Errorf("recommended gaps must not block sending: %v", report.Missing)
	}
	if len(report.Missing) != 3 {
		t.Errorf("expected 3 gaps, got %d: %v", len(report.Missing), report.Missing)
	}
	for _, gap := range report.Missing {
		if gap.Severity != SeverityRecommended {
			t.Errorf("gap %s severity = %s", gap.Field, gap.Severity)
		}
	}
}

func TestCheckReadinessNoContactsBlocks(t *testing.T) {
	in := completeInput()
	in.Record.Contacts = nil

	report := CheckReadiness(in)

	if report.CanSend {
		t.Fatalf("zero contact persons must block sending")
	}
	var found *Gap
	for i := range report.Missing {
		if report.Missing[i].Field == "contacts.primary" {
			found = &report.Missing[i]
		}
	}
	if found == nil {
		t.Fatalf("missing contact gap not reported: %v", report.Missing)
	}
	if found.Severity != SeverityRequired || found.Source != SourcePipelineData {
		t.Errorf("contact gap = %+v", *found)
	}
}

func TestCheckReadinessContactWithoutEmailBlocks(t *testing.T) {
	in := completeInput()
	in.Record.Contacts = []pipeline.ContactPerson{{Name: "Kari Nordmann", Primary: true}}

	if report := CheckReadiness(in); report.CanSend {
		t.Errorf("primary contact without email must block sending")
	}
}

func TestCheckReadinessSoleContactCounts(t *testing.T) {
	in := completeInput()
	// not flagged primary, but the only one
	in.Record.Contacts = []pipeline.ContactPerson{{Name: "Ola", Email: "ola@acme.example"}}

	if report := CheckReadiness(in); !report.CanSend {
		t.Errorf("sole contact with name and email must satisfy the required rule: %v", report.Missing)
	}
}

func TestCheckReadinessSecondaryContactIgnored(t *testing.T) {
	in := completeInput()
	// primary is complete; a second, incomplete contact must not block
	in.Record.Contacts = append(in.Record.Contacts, pipeline.ContactPerson{Name: "No Email"})

	if report := CheckReadiness(in); !report.CanSend {
		t.Errorf("incomplete non-primary contact must not block sending: %v", report.Missing)
	}
}
