package models

import (
	"strings"
	"time"
)

// Unknown is the placeholder for a scalar field the source did not provide
const Unknown = "Unknown"

// ChargeStatus is the closure state of a registered charge
type ChargeStatus string

const (
	ChargeOpen    ChargeStatus = "open"
	ChargeClosed  ChargeStatus = "closed"
	ChargeUnknown ChargeStatus = "unknown"
)

// CompanyRecord is the canonical entity extracted from a listing row or a detail page
type CompanyRecord struct {
	RegistrationID    *string           `json:"registration_id"`
	Name              string            `json:"name"`
	DetailLocator     string            `json:"detail_locator"`
	Address           string            `json:"address"`
	City              string            `json:"city"`
	State             string            `json:"state"`
	StateCode         string            `json:"state_code"`
	PinCode           string            `json:"pin_code"`
	EntityType        string            `json:"entity_type"`
	Status            string            `json:"status"`
	AuthorizedCapital *float64          `json:"authorized_capital"` // rupees
	PaidUpCapital     *float64          `json:"paid_up_capital"`    // rupees
	Description       string            `json:"description"`
	Website           string            `json:"website,omitempty"`
	LastUpdated       string            `json:"last_updated"`
	BasicInfo         map[string]string `json:"basic_info"`
	ContactInfo       map[string]string `json:"contact_info"`
	FinancialInfo     map[string]string `json:"financial_info"`
	Directors         []Director        `json:"directors"`
	Charges           []Charge          `json:"charges"`
	SimilarEntities   []SimilarEntity   `json:"similar_entities"`
	Heuristic         HeuristicFields   `json:"heuristic"`
	Structured        bool              `json:"structured"` // name came from JSON-LD or a Next.js data blob
	Source            SourceMetadata    `json:"source_metadata"`
}

// Director is a board member listed on a company's detail page.
// Directors are never resolved across companies.
type Director struct {
	ID                 string `json:"din"`
	Name               string `json:"name"`
	Designation        string `json:"designation"`
	AppointmentDateRaw string `json:"appointment_date"`
	ProfileURL         string `json:"profile_url,omitempty"`
}

// Charge is a registered lien against company assets
type Charge struct {
	ChargeID            string       `json:"charge_id"`
	CreationDateRaw     string       `json:"creation_date"`
	ModificationDateRaw string       `json:"modification_date"`
	ClosureDateRaw      string       `json:"closure_date"`
	Status              ChargeStatus `json:"status"`
	AssetDescription    string       `json:"assets_under_charge"`
	AmountRaw           string       `json:"amount_raw"`
	Amount              *float64     `json:"amount"`
	HolderName          string       `json:"charge_holder"`
}

// SimilarEntity is the reduced record listed under "similar address"
type SimilarEntity struct {
	RegistrationID string `json:"registration_id"`
	Name           string `json:"name"`
	Address        string `json:"address"`
	Locator        string `json:"locator,omitempty"`
}

// HeuristicFields hold values scraped from free page text by pattern matching.
// They are never confirmed by a structured source.
type HeuristicFields struct {
	Location    string `json:"location,omitempty"`
	FoundedYear string `json:"founded_year,omitempty"`
	Sector      string `json:"sector,omitempty"`
	Funding     string `json:"funding,omitempty"`
	CompanyType string `json:"company_type,omitempty"`
	Confirmed   bool   `json:"confirmed"`
}

// IsEmpty reports whether no heuristic field was found
func (h HeuristicFields) IsEmpty() bool {
	return h.Location == "" && h.FoundedYear == "" && h.Sector == "" && h.Funding == "" && h.CompanyType == ""
}

// SourceMetadata records how a record was discovered
type SourceMetadata struct {
	SearchTerm   string    `json:"search_term,omitempty"`
	Strategy     string    `json:"strategy,omitempty"`
	Locator      string    `json:"locator,omitempty"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// NewCompanyRecord returns a record with every scalar set to Unknown and empty collections
func NewCompanyRecord() CompanyRecord {
	return CompanyRecord{
		Address:       Unknown,
		City:          Unknown,
		State:         Unknown,
		StateCode:     Unknown,
		PinCode:       Unknown,
		EntityType:    Unknown,
		Status:        Unknown,
		BasicInfo:     map[string]string{},
		ContactInfo:   map[string]string{},
		FinancialInfo: map[string]string{},
	}
}

// RegistrationIDOrEmpty returns the identity code or an empty string
func (r *CompanyRecord) RegistrationIDOrEmpty() string {
	if r.RegistrationID == nil {
		return ""
	}
	return *r.RegistrationID
}

// Key identifies a record for deduplication and checkpointing
func (r *CompanyRecord) Key() string {
	if id := r.RegistrationIDOrEmpty(); id != "" {
		return strings.ToUpper(id)
	}
	if r.DetailLocator != "" {
		return r.DetailLocator
	}
	return strings.ToLower(strings.TrimSpace(r.Name))
}

// Validate checks the mandatory name field
func (r *CompanyRecord) Validate() error {
	if strings.TrimSpace(r.Name) == "" || r.Name == Unknown {
		return NewFailure(FailureValidation, r.DetailLocator, ErrMissingName)
	}
	return nil
}

// IsKnown reports whether a scalar field holds a real value
func IsKnown(value string) bool {
	v := strings.TrimSpace(value)
	return v != "" && v != Unknown && v != "-" && v != "N/A"
}
