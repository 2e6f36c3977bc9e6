package template

import (
	"time"

	"sponsorflow/richtext"
)

// Language is the contract prose language.
type Language string

const (
	LangNorwegian Language = "nb"
	LangEnglish   Language = "en"
)

// Section is one ordered prose section of the agreement body.
type Section struct {
	Heading string            `json:"heading"`
	Body    richtext.Document `json:"body"`
}

// Template is a named, versioned contract template owned by an event.
// Multiple active templates per event may coexist; the matcher's scoring, not
// the data, decides which one a send uses.
type Template struct {
	ID       string
	EventID  string
	Title    string
	TierID   *string
	Language Language
	Currency string

	Sections []Section
	Header   *string
	Footer   *string
	Terms    richtext.Document

	IsDefault bool
	IsActive  bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
