// Package model defines the company golden record and its sub-records.
package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Status represents a company's position in the prospection pipeline.
type Status string

const (
	StatusToContact     Status = "to-contact"
	StatusInDiscussion  Status = "in-discussion"
	StatusInNegotiation Status = "in-negotiation"
	StatusDealSigned    Status = "deal-signed"
	StatusAbandoned     Status = "abandoned"
)

// statusAliases maps the labels found in legacy exports to canonical values.
var statusAliases = map[string]Status{
	"to-contact":     StatusToContact,
	"in-discussion":  StatusInDiscussion,
	"in-negotiation": StatusInNegotiation,
	"deal-signed":    StatusDealSigned,
	"abandoned":      StatusAbandoned,
	"à contacter":    StatusToContact,
	"en discussion":  StatusInDiscussion,
	"en négociation": StatusInNegotiation,
	"deal signé":     StatusDealSigned,
	"abandonné":      StatusAbandoned,
}

// ParseStatus converts a raw status label into a Status. It accepts both the
// canonical slugs and the French labels present in legacy data exports.
func ParseStatus(s string) (Status, error) {
	if st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", eris.Errorf("model: unknown status %q", s)
}

// CompanyRecord is the golden record for a company, keyed by SIREN.
type CompanyRecord struct {
	Siren      string `json:"siren" db:"siren"`
	SiretSiege string `json:"siret_siege,omitempty" db:"siret_siege"`
	Name       string `json:"name" db:"name"`
	LegalForm  string `json:"legal_form,omitempty" db:"legal_form"`

	// Contact
	Address   string `json:"address,omitempty" db:"address"`
	Email     string `json:"email,omitempty" db:"email"`
	Phone     string `json:"phone,omitempty" db:"phone"`
	VATNumber string `json:"vat_number,omitempty" db:"vat_number"`

	// Financials
	Revenue      *float64 `json:"revenue,omitempty" db:"revenue"`
	NetResult    *float64 `json:"net_result,omitempty" db:"net_result"`
	ShareCapital *float64 `json:"share_capital,omitempty" db:"share_capital"`
	Headcount    *int     `json:"headcount,omitempty" db:"headcount"`

	// Classification
	NAFCode  string     `json:"naf_code,omitempty" db:"naf_code"`
	NAFLabel string     `json:"naf_label,omitempty" db:"naf_label"`
	Founded  *time.Time `json:"founded,omitempty" db:"founded"`

	// People
	PrincipalOfficer string    `json:"principal_officer,omitempty" db:"principal_officer"`
	Officers         []Officer `json:"officers,omitempty" db:"officers"`

	// Prospection
	Status           Status          `json:"status" db:"status"`
	ProspectionScore *float64        `json:"prospection_score,omitempty" db:"prospection_score"`
	ScoreDetails     *ScoreDetails   `json:"score_details,omitempty" db:"score_details"`
	ActivityLog      []ActivityEntry `json:"activity_log,omitempty" db:"activity_log"`

	SourceLink    string     `json:"source_link,omitempty" db:"source_link"`
	LastScrapedAt *time.Time `json:"last_scraped_at,omitempty" db:"last_scraped_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Officer is a company representative.
type Officer struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// ActivityEntry records one event in a company's audit trail.
type ActivityEntry struct {
	ID      string         `json:"id"`
	Action  string         `json:"action"`
	Source  string         `json:"source,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	At      time.Time      `json:"at"`
}

// ScoreDetails explains a prospection score.
type ScoreDetails struct {
	BuyScore        float64  `json:"buy_score"`
	SellScore       float64  `json:"sell_score"`
	GlobalScore     float64  `json:"global_score"`
	Justification   string   `json:"justification,omitempty"`
	PositiveFactors []string `json:"positive_factors,omitempty"`
	NegativeFactors []string `json:"negative_factors,omitempty"`
}

var sirenPattern = regexp.MustCompile(`^\d{9}$`)

// ValidSiren reports whether s is a well-formed 9-digit SIREN.
func ValidSiren(s string) bool {
	return sirenPattern.MatchString(s)
}

// Validate checks the fields required before a record may enter the dataset.
func (c *CompanyRecord) Validate() error {
	if c.Siren == "" {
		return eris.New("model: missing siren")
	}
	if !ValidSiren(c.Siren) {
		return eris.Errorf("model: invalid siren %q", c.Siren)
	}
	if c.Name == "" {
		return eris.Errorf("model: missing company name for siren %s", c.Siren)
	}
	return nil
}
