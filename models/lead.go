package models

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// StubListing is the minimal record read off the search-results feed,
// before any detail page has been visited.
type StubListing struct {
	Name        string
	Rating      *float64
	ReviewCount *int
	Category    string
	MapsLink    string
}

// QualitySignals are the neglect proxies read from a listing's detail page.
// Every field defaults to its zero value when extraction fails.
type QualitySignals struct {
	PhotoCount     int    `json:"photo_count"`
	HasDescription bool   `json:"has_description"`
	HasServices    bool   `json:"has_services"`
	OwnerResponds  bool   `json:"owner_responds"`
	NewestReview   string `json:"newest_review"`
	HasHours       bool   `json:"has_hours"`
}

// Lead is the durable record: scraped attributes, quality signals, score,
// CRM tracking state and provenance.
//
// LeadScore is an inverted quality metric: a higher score means a more
// neglected listing, which is a better sales prospect.
type Lead struct {
	// Scraped
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Phone       string   `json:"phone"`
	Website     string   `json:"website"`
	Rating      *float64 `json:"rating"`
	ReviewCount *int     `json:"review_count"`
	Category    string   `json:"category"`
	MapsLink    string   `json:"maps_link"`
	PhotoURL    string   `json:"photo_url"`

	QualitySignals

	// Scoring
	LeadScore    int    `json:"lead_score"`
	ScoreReasons string `json:"score_reasons"`

	// CRM-owned once the record exists
	ContactStatus ContactStatus `json:"contact_status"`
	LastContacted *time.Time    `json:"last_contacted"`
	Notes         *string       `json:"notes"`

	// Provenance
	Query     string    `json:"query"`
	ScrapedAt time.Time `json:"scraped_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLead promotes a stub into a Lead with empty contact fields and default signals.
func NewLead(stub StubListing) *Lead {
	return &Lead{
		Name:          stub.Name,
		Rating:        stub.Rating,
		ReviewCount:   stub.ReviewCount,
		Category:      stub.Category,
		MapsLink:      stub.MapsLink,
		ContactStatus: StatusNew,
	}
}

// ReasonSeparator joins score reasons into the persisted string form.
const ReasonSeparator = ", "

// Reasons splits ScoreReasons back into its ordered parts.
func (l *Lead) Reasons() []string {
	if strings.TrimSpace(l.ScoreReasons) == "" {
		return nil
	}
	return strings.Split(l.ScoreReasons, ReasonSeparator)
}

// ContactStatus is the CRM lifecycle state of a lead.
type ContactStatus string

const (
	StatusNew          ContactStatus = "new"
	StatusContacted    ContactStatus = "contacted"
	StatusReplied      ContactStatus = "replied"
	StatusClosed       ContactStatus = "closed"
	StatusDoNotContact ContactStatus = "do_not_contact"
)

// ContactStatuses lists every valid status in lifecycle order.
var ContactStatuses = []ContactStatus{
	StatusNew, StatusContacted, StatusReplied, StatusClosed, StatusDoNotContact,
}

// ErrInvalidStatus is returned when a status outside the enumeration is supplied.
var ErrInvalidStatus = eris.New("invalid contact status")

// ParseContactStatus validates s against the enumeration.
func ParseContactStatus(s string) (ContactStatus, error) {
	cs := ContactStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range ContactStatuses {
		if cs == v {
			return cs, nil
		}
	}
	return "", eris.Wrapf(ErrInvalidStatus, "%q", s)
}

// ContactUpdate is a CRM edit of a single lead.
type ContactUpdate struct {
	MapsLink      string
	Status        ContactStatus
	LastContacted *time.Time
	Notes         *string
}

// LeadReport holds summary figures over a set of leads.
type LeadReport struct {
	TotalLeads   int
	HighPriority int
	MinScore     int
	AverageScore float64
	MaxScore     int
	WithWebsite  int
	WithPhone    int
	ByStatus     map[ContactStatus]int
	ReasonCounts map[string]int
	TopProspects []*Lead
}
