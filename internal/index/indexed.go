package index

import (
	"sync"

	"github.com/partnerpulse/engine/internal/dataset"
)

// Indexed binds a dataset to its lazily built indexes. It makes the
// dataset/index relationship an explicit contract: the indexes are built at
// most once per wrapper, and a refreshed dataset gets a fresh wrapper rather
// than a stale side-structure.
type Indexed struct {
	ds       *dataset.Dataset
	once     sync.Once
	clients  ClientIndex
	trades   TradeIndex
	deposits DepositIndex
}

// Wrap associates a dataset with an empty index set. Indexes are built on
// first access.
func Wrap(ds *dataset.Dataset) *Indexed {
	return &Indexed{ds: ds}
}

// Dataset returns the wrapped dataset.
func (ix *Indexed) Dataset() *dataset.Dataset {
	return ix.ds
}

func (ix *Indexed) build() {
	ix.once.Do(func() {
		ix.clients = BuildClients(ix.ds.Clients)
		ix.trades = BuildTrades(ix.ds.Trades)
		ix.deposits = BuildDeposits(ix.ds.Deposits)
	})
}

// Clients returns the client index, building it if needed.
func (ix *Indexed) Clients() *ClientIndex {
	ix.build()
	return &ix.clients
}

// Trades returns the trade index, building it if needed.
func (ix *Indexed) Trades() *TradeIndex {
	ix.build()
	return &ix.trades
}

// Deposits returns the deposit index, building it if needed.
func (ix *Indexed) Deposits() *DepositIndex {
	ix.build()
	return &ix.deposits
}
