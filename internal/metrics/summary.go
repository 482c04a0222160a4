package metrics

import (
	"math"
	"time"

	"github.com/partnerpulse/engine/internal/dataset"
	"github.com/partnerpulse/engine/internal/index"
)

// Summary holds the headline dataset-wide totals.
type Summary struct {
	Partners           int     `json:"partners"`
	Clients            int     `json:"clients"`
	Trades             int     `json:"trades"`
	Deposits           int     `json:"deposits"`
	TotalCommission    float64 `json:"totalCommission"`
	TotalVolume        float64 `json:"totalVolume"`
	TotalDeposits      float64 `json:"totalDeposits"`
	AvgTradeCommission float64 `json:"avgTradeCommission"`
}

// DatasetSummary computes the dataset-wide totals. A zero trade count yields
// a zero average, never NaN.
func DatasetSummary(ix *index.Indexed) Summary {
	ds := ix.Dataset()
	trades := ix.Trades()
	deposits := ix.Deposits()

	s := Summary{
		Partners:        len(ds.Partners),
		Clients:         ix.Clients().Total,
		Trades:          trades.Total,
		Deposits:        deposits.Total,
		TotalCommission: trades.TotalCommission,
		TotalVolume:     trades.TotalVolume,
		TotalDeposits:   deposits.TotalValue,
	}
	if trades.Total > 0 {
		s.AvgTradeCommission = trades.TotalCommission / float64(trades.Total)
	}
	return s
}

// TierProgress describes how far a partner's lifetime commissions have
// progressed into one reward tier.
type TierProgress struct {
	Tier     string  `json:"tier"`
	Range    string  `json:"range"`
	Reward   string  `json:"reward"`
	Progress float64 `json:"progress"`
	Achieved bool    `json:"achieved"`
}

// TierProgressFor computes per-tier progress percentages for the given
// partner filter, based on lifetime commissions. Progress is clamped to
// [0, 100] and zero-width or unparsable ranges yield zero progress.
func TierProgressFor(ix *index.Indexed, partnerID string, now time.Time) []TierProgress {
	ds := ix.Dataset()
	commissions := PartnerMetrics(ix, partnerID, now).LTCommissions

	out := make([]TierProgress, 0, len(ds.PartnerTiers))
	for _, tier := range ds.PartnerTiers {
		bounds := tier.Bounds()
		progress := tierProgress(commissions, bounds)
		out = append(out, TierProgress{
			Tier:     tier.Tier,
			Range:    tier.Range,
			Reward:   tier.Reward,
			Progress: progress,
			Achieved: progress >= 100,
		})
	}
	return out
}

// tierProgress mirrors the dashboard's tier progress bars: open-ended tiers
// fill toward their minimum, bounded tiers fill within their span.
func tierProgress(commissions float64, bounds dataset.TierRange) float64 {
	switch {
	case math.IsInf(bounds.Max, 1):
		if bounds.Min <= 0 {
			return 0
		}
		return math.Min(100, commissions/bounds.Min*100)
	case commissions >= bounds.Max && bounds.Max > 0:
		return 100
	case commissions >= bounds.Min:
		span := bounds.Max - bounds.Min
		if span <= 0 {
			return 0
		}
		return (commissions - bounds.Min) / span * 100
	case bounds.Min > 0:
		return commissions / bounds.Min * 100
	default:
		return 0
	}
}
