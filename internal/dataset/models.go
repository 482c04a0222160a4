// Package dataset defines the canonical partner-report data model and the
// compact form used for durable snapshots.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ID is a customer or partner identifier. Backends are inconsistent about
// whether ids arrive as JSON strings or numbers, so it decodes both.
type ID string

// UnmarshalJSON accepts both "C001" and 1001.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// timeLayouts are the formats seen in backend exports, most specific first.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time wraps time.Time with tolerant JSON decoding for the mixed date
// formats the backend emits. A null or empty value decodes to the zero time.
type Time struct {
	time.Time
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized time %q", s)
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}

// Client is an end customer attributed to a partner.
type Client struct {
	CustomerID        ID      `json:"customerId"`
	Name              string  `json:"name"`
	Email             string  `json:"email,omitempty"`
	PreferredLanguage string  `json:"preferredLanguage,omitempty"`
	AccountNumber     string  `json:"accountNumber,omitempty"`
	JoinDate          Time    `json:"joinDate"`
	AccountType       string  `json:"accountType,omitempty"`
	Country           string  `json:"country"`
	Tier              string  `json:"tier"`
	PartnerID         string  `json:"partnerId"`
	LifetimeDeposits  float64 `json:"lifetimeDeposits"`
	CommissionPlan    string  `json:"commissionPlan,omitempty"`
	TrackingLinkUsed  string  `json:"trackingLinkUsed,omitempty"`
	SubPartner        string  `json:"subPartner,omitempty"`
}

// Trade is a single immutable trade record for a client.
type Trade struct {
	CustomerID ID      `json:"customerId"`
	DateTime   Time    `json:"dateTime"`
	Commission float64 `json:"commission"`
	Volume     float64 `json:"volume"`
}

// Deposit is a single deposit made by a client.
type Deposit struct {
	CustomerID ID      `json:"customerId"`
	DateTime   Time    `json:"dateTime"`
	Value      float64 `json:"value"`
}

// Partner is an affiliate entity that refers clients.
type Partner struct {
	PartnerID string `json:"partnerId"`
	Name      string `json:"name"`
	Tier      string `json:"tier"`
}

// PartnerTier is a reference row describing a reward tier.
type PartnerTier struct {
	Tier   string `json:"tier"`
	Range  string `json:"range"`
	Reward string `json:"reward"`
}

// TierRange is the parsed commission range of a PartnerTier. Max is +Inf for
// open-ended ranges such as "$10,000+".
type TierRange struct {
	Min float64
	Max float64
}

// Bounds parses the tier's range string. Supported forms are "$0 - $999" and
// "$10,000+"; anything else yields a zero range.
func (pt PartnerTier) Bounds() TierRange {
	return ParseTierRange(pt.Range)
}

// ParseTierRange parses a commission range string into numeric bounds.
func ParseTierRange(s string) TierRange {
	s = strings.TrimSpace(s)
	if s == "" {
		return TierRange{}
	}
	if strings.Contains(s, "+") {
		return TierRange{Min: parseMoney(s), Max: math.Inf(1)}
	}
	if strings.Contains(s, "-") {
		parts := strings.SplitN(s, "-", 2)
		return TierRange{Min: parseMoney(parts[0]), Max: parseMoney(parts[1])}
	}
	return TierRange{}
}

// parseMoney strips currency formatting and parses the remaining number.
func parseMoney(s string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', '+', ' ':
			return -1
		}
		return r
	}, s)
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return f
}

// Dataset is the aggregate root holding the five collections.
type Dataset struct {
	Partners     []Partner     `json:"partners"`
	Clients      []Client      `json:"clients"`
	Trades       []Trade       `json:"trades"`
	Deposits     []Deposit     `json:"deposits"`
	PartnerTiers []PartnerTier `json:"partnerTiers"`
}

// Normalize replaces nil collections with empty slices so consumers never
// need to nil-check the top-level shape.
func (d *Dataset) Normalize() {
	if d.Partners == nil {
		d.Partners = []Partner{}
	}
	if d.Clients == nil {
		d.Clients = []Client{}
	}
	if d.Trades == nil {
		d.Trades = []Trade{}
	}
	if d.Deposits == nil {
		d.Deposits = []Deposit{}
	}
	if d.PartnerTiers == nil {
		d.PartnerTiers = []PartnerTier{}
	}
}

// PartnerByID returns the partner with the given id, or nil if absent.
func (d *Dataset) PartnerByID(partnerID string) *Partner {
	for i := range d.Partners {
		if d.Partners[i].PartnerID == partnerID {
			return &d.Partners[i]
		}
	}
	return nil
}
