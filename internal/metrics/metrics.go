// Package metrics computes partner-level aggregates over an indexed dataset.
// All functions are pure: they take the indexed dataset and an explicit
// observation time and never mutate their inputs.
package metrics

import (
	"time"

	"github.com/partnerpulse/engine/internal/dataset"
	"github.com/partnerpulse/engine/internal/index"
)

const (
	// AllPartnersName is the display name when no partner filter applies.
	AllPartnersName = "All partners"
	// NoTier is the tier placeholder when no partner resolves.
	NoTier = "—"
)

// Partner holds the lifetime and month-to-date aggregates for one partner,
// or for all partners when no filter was given.
type Partner struct {
	PartnerName   string  `json:"partnerName"`
	PartnerTier   string  `json:"partnerTier"`
	LTClients     int     `json:"ltClients"`
	LTDeposits    float64 `json:"ltDeposits"`
	LTCommissions float64 `json:"ltCommissions"`
	LTVolume      int     `json:"ltVolume"`
	MTDComm       float64 `json:"mtdComm"`
	MTDVolume     int     `json:"mtdVolume"`
	MTDDeposits   float64 `json:"mtdDeposits"`
	MTDClients    int     `json:"mtdClients"`
}

// CountryStats is the per-country breakdown for a partner's clients.
type CountryStats struct {
	Clients     int     `json:"clients"`
	Commissions float64 `json:"commissions"`
	Deposits    float64 `json:"deposits"`
	Volume      int     `json:"volume"`
}

// clientSubset resolves the clients a computation operates on: everyone when
// partnerID is empty, otherwise the partner's bucket from the index. An
// unknown partner id yields an empty subset, never an error.
func clientSubset(ix *index.Indexed, partnerID string) []*dataset.Client {
	if partnerID == "" {
		ds := ix.Dataset()
		subset := make([]*dataset.Client, 0, len(ds.Clients))
		for i := range ds.Clients {
			subset = append(subset, &ds.Clients[i])
		}
		return subset
	}
	return ix.Clients().ByPartner[partnerID]
}

// PartnerMetrics computes lifetime and month-to-date aggregates for the
// given partner, or across all partners when partnerID is empty.
//
// LTVolume and MTDVolume count trades rather than summing the trade Volume
// field. The dashboards consuming this output have always treated trade
// count as the volume figure, so the behavior is kept for compatibility.
func PartnerMetrics(ix *index.Indexed, partnerID string, now time.Time) Partner {
	ds := ix.Dataset()
	trades := ix.Trades()
	deposits := ix.Deposits()

	subset := clientSubset(ix, partnerID)
	ids := make(map[dataset.ID]struct{}, len(subset))
	for _, client := range subset {
		ids[client.CustomerID] = struct{}{}
	}

	out := Partner{
		PartnerName: AllPartnersName,
		PartnerTier: NoTier,
		LTClients:   len(subset),
	}
	if partner := ds.PartnerByID(partnerID); partner != nil {
		out.PartnerName = partner.Name
		out.PartnerTier = partner.Tier
	}

	for id := range ids {
		for _, trade := range trades.ByClientID[id] {
			out.LTCommissions += trade.Commission
			out.LTVolume++
		}
		for _, deposit := range deposits.ByClientID[id] {
			out.LTDeposits += deposit.Value
		}
	}

	local := now.Local()
	monthStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, local.Location())
	monthKey := index.MonthKey(now)

	for _, trade := range trades.ByMonth[monthKey] {
		if _, ok := ids[trade.CustomerID]; ok {
			out.MTDComm += trade.Commission
			out.MTDVolume++
		}
	}
	for _, deposit := range deposits.ByMonth[monthKey] {
		if _, ok := ids[deposit.CustomerID]; ok {
			out.MTDDeposits += deposit.Value
		}
	}
	for _, client := range subset {
		join := client.JoinDate.Time
		if !join.Before(monthStart) && !join.After(now) {
			out.MTDClients++
		}
	}

	return out
}

// CountryMetrics buckets the partner's clients by country. Volume is a trade
// count, matching PartnerMetrics. Clients without a country land under
// "Unknown".
func CountryMetrics(ix *index.Indexed, partnerID string) map[string]CountryStats {
	trades := ix.Trades()
	deposits := ix.Deposits()

	out := make(map[string]CountryStats)
	for _, client := range clientSubset(ix, partnerID) {
		country := client.Country
		if country == "" {
			country = "Unknown"
		}

		stats := out[country]
		stats.Clients++
		for _, trade := range trades.ByClientID[client.CustomerID] {
			stats.Commissions += trade.Commission
			stats.Volume++
		}
		for _, deposit := range deposits.ByClientID[client.CustomerID] {
			stats.Deposits += deposit.Value
		}
		out[country] = stats
	}

	return out
}

// TierDistribution counts the partner's clients per tier, defaulting an
// unset tier to "Unknown".
func TierDistribution(ix *index.Indexed, partnerID string) map[string]int {
	out := make(map[string]int)
	for _, client := range clientSubset(ix, partnerID) {
		tier := client.Tier
		if tier == "" {
			tier = index.UnknownTier
		}
		out[tier]++
	}
	return out
}
