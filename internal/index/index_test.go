package index

import (
	"reflect"
	"testing"
	"time"

	"github.com/partnerpulse/engine/internal/dataset"
)

func testClients() []dataset.Client {
	join := dataset.Time{Time: time.Date(2025, 5, 15, 12, 0, 0, 0, time.Local)}
	return []dataset.Client{
		{CustomerID: "c1", JoinDate: join, Country: "Sweden", Tier: "Gold", PartnerID: "P1"},
		{CustomerID: "c2", JoinDate: join, Country: "Sweden", Tier: "Silver", PartnerID: "P1"},
		{CustomerID: "c3", JoinDate: join, Country: "Norway", Tier: "", PartnerID: "P2"},
	}
}

func testTrades() []dataset.Trade {
	return []dataset.Trade{
		{CustomerID: "c1", DateTime: dataset.Time{Time: time.Date(2025, 5, 10, 12, 0, 0, 0, time.Local)}, Commission: 10, Volume: 1},
		{CustomerID: "c1", DateTime: dataset.Time{Time: time.Date(2025, 5, 20, 12, 0, 0, 0, time.Local)}, Commission: 20, Volume: 2},
		{CustomerID: "c2", DateTime: dataset.Time{Time: time.Date(2025, 4, 20, 12, 0, 0, 0, time.Local)}, Commission: 5, Volume: 4},
	}
}

func TestBuildClientsCompleteness(t *testing.T) {
	clients := testClients()
	ix := BuildClients(clients)

	if ix.Total != 3 {
		t.Errorf("total: got %d want 3", ix.Total)
	}

	for i := range clients {
		client := &clients[i]

		if got := ix.ByID[client.CustomerID]; got != client {
			t.Errorf("ByID[%s] should be the same record", client.CustomerID)
		}

		if countOccurrences(ix.ByPartner[client.PartnerID], client) != 1 {
			t.Errorf("client %s should appear exactly once in partner bucket", client.CustomerID)
		}
		if countOccurrences(ix.ByCountry[client.Country], client) != 1 {
			t.Errorf("client %s should appear exactly once in country bucket", client.CustomerID)
		}

		tier := client.Tier
		if tier == "" {
			tier = UnknownTier
		}
		if countOccurrences(ix.ByTier[tier], client) != 1 {
			t.Errorf("client %s should appear exactly once in tier bucket %q", client.CustomerID, tier)
		}
	}
}

func countOccurrences(bucket []*dataset.Client, client *dataset.Client) int {
	n := 0
	for _, c := range bucket {
		if c == client {
			n++
		}
	}
	return n
}

func TestBuildClientsIdempotent(t *testing.T) {
	clients := testClients()
	before := make([]dataset.Client, len(clients))
	copy(before, clients)

	first := BuildClients(clients)
	second := BuildClients(clients)

	if !reflect.DeepEqual(first, second) {
		t.Error("building the index twice should yield deep-equal structures")
	}
	if !reflect.DeepEqual(before, clients) {
		t.Error("indexing must not mutate the input collection")
	}
}

func TestBuildTradesTotalsAndMonths(t *testing.T) {
	trades := testTrades()
	ix := BuildTrades(trades)

	if ix.Total != 3 {
		t.Errorf("total: got %d want 3", ix.Total)
	}
	if ix.TotalCommission != 35 {
		t.Errorf("total commission: got %v want 35", ix.TotalCommission)
	}
	if ix.TotalVolume != 7 {
		t.Errorf("total volume: got %v want 7", ix.TotalVolume)
	}

	if got := len(ix.ByClientID["c1"]); got != 2 {
		t.Errorf("c1 trades: got %d want 2", got)
	}
	if got := len(ix.ByMonth["2025-05"]); got != 2 {
		t.Errorf("2025-05 trades: got %d want 2", got)
	}
	if got := len(ix.ByMonth["2025-04"]); got != 1 {
		t.Errorf("2025-04 trades: got %d want 1", got)
	}
}

func TestBuildDeposits(t *testing.T) {
	deposits := []dataset.Deposit{
		{CustomerID: "c1", DateTime: dataset.Time{Time: time.Date(2025, 5, 10, 12, 0, 0, 0, time.Local)}, Value: 100},
		{CustomerID: "c2", DateTime: dataset.Time{Time: time.Date(2025, 5, 11, 12, 0, 0, 0, time.Local)}, Value: 250},
	}
	ix := BuildDeposits(deposits)

	if ix.Total != 2 || ix.TotalValue != 350 {
		t.Errorf("got total=%d value=%v want 2/350", ix.Total, ix.TotalValue)
	}
	if got := len(ix.ByMonth["2025-05"]); got != 2 {
		t.Errorf("2025-05 deposits: got %d want 2", got)
	}
}

func TestMonthKey(t *testing.T) {
	key := MonthKey(time.Date(2025, 1, 15, 12, 0, 0, 0, time.Local))
	if key != "2025-01" {
		t.Errorf("got %q want 2025-01", key)
	}
}

func TestIndexedBuildsOnce(t *testing.T) {
	ds := &dataset.Dataset{Clients: testClients(), Trades: testTrades()}
	ds.Normalize()
	ix := Wrap(ds)

	first := ix.Clients()
	second := ix.Clients()
	if first != second {
		t.Error("Clients() should return the same index instance")
	}
	if ix.Dataset() != ds {
		t.Error("Dataset() should return the wrapped dataset")
	}
	if ix.Trades().Total != 3 {
		t.Errorf("trade index total: got %d want 3", ix.Trades().Total)
	}
	if ix.Deposits().Total != 0 {
		t.Errorf("deposit index total: got %d want 0", ix.Deposits().Total)
	}
}

func TestBuildEmptyCollections(t *testing.T) {
	if ix := BuildClients(nil); ix.Total != 0 || len(ix.ByID) != 0 {
		t.Errorf("empty client index: %+v", ix)
	}
	if ix := BuildTrades(nil); ix.Total != 0 || ix.TotalCommission != 0 {
		t.Errorf("empty trade index: %+v", ix)
	}
	if ix := BuildDeposits(nil); ix.Total != 0 || ix.TotalValue != 0 {
		t.Errorf("empty deposit index: %+v", ix)
	}
}
