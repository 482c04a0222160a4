package metrics

import (
	"math"
	"testing"

	"github.com/partnerpulse/engine/internal/dataset"
	"github.com/partnerpulse/engine/internal/index"
)

func TestDatasetSummary(t *testing.T) {
	s := DatasetSummary(testIndexed())

	if s.Partners != 2 || s.Clients != 3 || s.Trades != 3 || s.Deposits != 3 {
		t.Errorf("counts: %+v", s)
	}
	if s.TotalCommission != 37 || s.TotalDeposits != 850 || s.TotalVolume != 350 {
		t.Errorf("totals: %+v", s)
	}
	want := 37.0 / 3.0
	if math.Abs(s.AvgTradeCommission-want) > 1e-9 {
		t.Errorf("avg commission: got %v want %v", s.AvgTradeCommission, want)
	}
}

func TestDatasetSummaryZeroTrades(t *testing.T) {
	ds := &dataset.Dataset{}
	ds.Normalize()
	s := DatasetSummary(index.Wrap(ds))

	if s.AvgTradeCommission != 0 {
		t.Errorf("zero trades must yield zero average, got %v", s.AvgTradeCommission)
	}
	if math.IsNaN(s.AvgTradeCommission) || math.IsInf(s.AvgTradeCommission, 0) {
		t.Errorf("average must be finite, got %v", s.AvgTradeCommission)
	}
}

func TestTierProgressFor(t *testing.T) {
	// P1 lifetime commissions are 30.
	progress := TierProgressFor(testIndexed(), "P1", obsTime)
	if len(progress) != 2 {
		t.Fatalf("expected 2 tiers, got %d", len(progress))
	}

	bronze := progress[0]
	if bronze.Tier != "Bronze" {
		t.Fatalf("expected Bronze first, got %q", bronze.Tier)
	}
	// Bounded $0-$999 with commissions 30: (30-0)/999*100.
	want := 30.0 / 999.0 * 100.0
	if math.Abs(bronze.Progress-want) > 1e-9 {
		t.Errorf("bronze progress: got %v want %v", bronze.Progress, want)
	}
	if bronze.Achieved {
		t.Error("bronze should not be achieved")
	}

	platinum := progress[1]
	// Open-ended $10,000+ with commissions 30: 30/10000*100.
	want = 30.0 / 10000.0 * 100.0
	if math.Abs(platinum.Progress-want) > 1e-9 {
		t.Errorf("platinum progress: got %v want %v", platinum.Progress, want)
	}
}

func TestTierProgressClamped(t *testing.T) {
	ds := &dataset.Dataset{
		Clients: []dataset.Client{{CustomerID: "c1", PartnerID: "P1"}},
		Trades: []dataset.Trade{
			{CustomerID: "c1", DateTime: at(2025, 1, 5), Commission: 50000},
		},
		PartnerTiers: []dataset.PartnerTier{
			{Tier: "Bronze", Range: "$0 - $999"},
			{Tier: "Platinum", Range: "$10,000+"},
			{Tier: "Broken", Range: "not a range"},
		},
	}
	ds.Normalize()

	progress := TierProgressFor(index.Wrap(ds), "P1", obsTime)
	for _, p := range progress {
		if p.Progress < 0 || p.Progress > 100 {
			t.Errorf("%s progress out of range: %v", p.Tier, p.Progress)
		}
		if math.IsNaN(p.Progress) || math.IsInf(p.Progress, 0) {
			t.Errorf("%s progress must be finite: %v", p.Tier, p.Progress)
		}
	}
	if !progress[0].Achieved || !progress[1].Achieved {
		t.Error("bronze and platinum should be achieved at 50k commissions")
	}
	if progress[2].Progress != 0 {
		t.Errorf("unparsable range should yield zero progress, got %v", progress[2].Progress)
	}
}
