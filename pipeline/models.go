package pipeline

import "time"

// Status is the sales stage of a sponsor relationship.
type Status string

const (
	StatusProspect    Status = "prospect"
	StatusContacted   Status = "contacted"
	StatusNegotiating Status = "negotiating"
	StatusClosedWon   Status = "closed-won"
	StatusClosedLost  Status = "closed-lost"
)

// ContractStatus tracks the contract document lifecycle.
type ContractStatus string

const (
	ContractNone            ContractStatus = "none"
	ContractVerbalAgreement ContractStatus = "verbal-agreement"
	ContractSent            ContractStatus = "contract-sent"
	ContractSigned          ContractStatus = "contract-signed"
)

// SignatureStatus tracks the external signing workflow.
type SignatureStatus string

const (
	SignatureNotStarted SignatureStatus = "not-started"
	SignaturePending    SignatureStatus = "pending"
	SignatureSigned     SignatureStatus = "signed"
	SignatureRejected   SignatureStatus = "rejected"
	SignatureExpired    SignatureStatus = "expired"
)

// InvoiceStatus tracks billing progress for a closed sponsorship.
type InvoiceStatus string

const (
	InvoiceNotSent InvoiceStatus = "not-sent"
	InvoiceSent    InvoiceStatus = "sent"
	InvoicePaid    InvoiceStatus = "paid"
)

// ContactPerson is a named contact at the sponsoring company.
type ContactPerson struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Role    string `json:"role,omitempty"`
	Primary bool   `json:"primary,omitempty"`
}

// BillingInfo carries the invoicing coordinates supplied by the sponsor.
type BillingInfo struct {
	OrgNumber string `json:"org_number,omitempty"`
	Email     string `json:"email,omitempty"`
	Address   string `json:"address,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// Record is the per-event relationship between the organizer and one sponsor.
type Record struct {
	ID        string
	EventID   string
	SponsorID string
	TierID    *string
	AddOnIDs  []string

	Status          Status
	ContractStatus  ContractStatus
	SignatureStatus SignatureStatus
	InvoiceStatus   InvoiceStatus

	Amount   *float64
	Currency string

	Tags       []string
	AssignedTo *string
	Contacts   []ContactPerson
	Billing    BillingInfo

	// DocumentAssetID references the last rendered contract in the asset
	// store; SignatureAgreementID the provider-side agreement, when one
	// was registered.
	DocumentAssetID      *string
	SignatureAgreementID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PrimaryContact returns the contact the contract should be addressed to: the
// one flagged primary, or the sole contact when only one exists.
func (r Record) PrimaryContact() *ContactPerson {
	for i := range r.Contacts {
		if r.Contacts[i].Primary {
			return &r.Contacts[i]
		}
	}
	if len(r.Contacts) == 1 {
		return &r.Contacts[0]
	}
	return nil
}

// Filters narrows List queries.
type Filters struct {
	EventID    string
	Statuses   []Status
	AssignedTo string
	Tag        string
	TierID     string
	Page       int
	PageSize   int
}
