// Package index builds secondary indexes over the dataset collections so the
// metrics engine never rescans a collection per query. Each Build* function
// makes a single linear pass and never mutates its input.
package index

import (
	"fmt"
	"time"

	"github.com/partnerpulse/engine/internal/dataset"
)

// UnknownTier is the bucket for clients without a tier value.
const UnknownTier = "Unknown"

// MonthKey renders a timestamp as a YYYY-MM calendar-month key in local
// time. Local time matches the behavior of the dashboards consuming the
// output; there is no UTC normalization.
func MonthKey(t time.Time) string {
	local := t.Local()
	return fmt.Sprintf("%04d-%02d", local.Year(), int(local.Month()))
}

// ClientIndex holds the four-way client lookup maps.
type ClientIndex struct {
	ByID      map[dataset.ID]*dataset.Client
	ByPartner map[string][]*dataset.Client
	ByCountry map[string][]*dataset.Client
	ByTier    map[string][]*dataset.Client
	Total     int
}

// TradeIndex holds trade lookups plus running totals.
type TradeIndex struct {
	ByClientID      map[dataset.ID][]*dataset.Trade
	ByMonth         map[string][]*dataset.Trade
	Total           int
	TotalCommission float64
	TotalVolume     float64
}

// DepositIndex holds deposit lookups plus the running value total.
type DepositIndex struct {
	ByClientID map[dataset.ID][]*dataset.Deposit
	ByMonth    map[string][]*dataset.Deposit
	Total      int
	TotalValue float64
}

// BuildClients indexes clients by id, partner, country and tier. Clients
// without a tier land in the UnknownTier bucket.
func BuildClients(clients []dataset.Client) ClientIndex {
	ix := ClientIndex{
		ByID:      make(map[dataset.ID]*dataset.Client, len(clients)),
		ByPartner: make(map[string][]*dataset.Client),
		ByCountry: make(map[string][]*dataset.Client),
		ByTier:    make(map[string][]*dataset.Client),
		Total:     len(clients),
	}

	for i := range clients {
		client := &clients[i]
		ix.ByID[client.CustomerID] = client
		ix.ByPartner[client.PartnerID] = append(ix.ByPartner[client.PartnerID], client)
		ix.ByCountry[client.Country] = append(ix.ByCountry[client.Country], client)

		tier := client.Tier
		if tier == "" {
			tier = UnknownTier
		}
		ix.ByTier[tier] = append(ix.ByTier[tier], client)
	}

	return ix
}

// BuildTrades indexes trades by client and calendar month, accumulating
// commission and volume totals. Missing numeric fields count as zero.
func BuildTrades(trades []dataset.Trade) TradeIndex {
	ix := TradeIndex{
		ByClientID: make(map[dataset.ID][]*dataset.Trade),
		ByMonth:    make(map[string][]*dataset.Trade),
		Total:      len(trades),
	}

	for i := range trades {
		trade := &trades[i]
		month := MonthKey(trade.DateTime.Time)

		ix.ByClientID[trade.CustomerID] = append(ix.ByClientID[trade.CustomerID], trade)
		ix.ByMonth[month] = append(ix.ByMonth[month], trade)
		ix.TotalCommission += trade.Commission
		ix.TotalVolume += trade.Volume
	}

	return ix
}

// BuildDeposits indexes deposits by client and calendar month, accumulating
// the value total.
func BuildDeposits(deposits []dataset.Deposit) DepositIndex {
	ix := DepositIndex{
		ByClientID: make(map[dataset.ID][]*dataset.Deposit),
		ByMonth:    make(map[string][]*dataset.Deposit),
		Total:      len(deposits),
	}

	for i := range deposits {
		deposit := &deposits[i]
		month := MonthKey(deposit.DateTime.Time)

		ix.ByClientID[deposit.CustomerID] = append(ix.ByClientID[deposit.CustomerID], deposit)
		ix.ByMonth[month] = append(ix.ByMonth[month], deposit)
		ix.TotalValue += deposit.Value
	}

	return ix
}
