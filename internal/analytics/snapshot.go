package analytics

import (
	"sort"

	"github.com/jmorrow/portfolio-api/internal/ledger"
	"github.com/jmorrow/portfolio-api/internal/types"
)

// instrumentHistory is one instrument's slice of the snapshot: its full
// trade history ordered by (trade_date, id) and its full price history
// ordered by price_date.
type instrumentHistory struct {
	instrument types.Instrument
	trades     []types.Trade
	prices     []types.PriceBar
}

// Snapshot is an immutable, in-memory copy of the ledger taken at the start
// of a computation. All engine functions operate on it without touching the
// store again, so repeated computations over one snapshot are idempotent.
type Snapshot struct {
	instruments []instrumentHistory // sorted by symbol
}

// LoadSnapshot materializes the full ledger in one pass per table.
func LoadSnapshot(db *ledger.Database) (*Snapshot, error) {
	instruments, err := db.ListInstruments()
	if err != nil {
		return nil, err
	}

	trades, err := db.ListTrades("")
	if err != nil {
		return nil, err
	}

	prices, err := db.ListPrices("")
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*instrumentHistory, len(instruments))
	snapshot := &Snapshot{
		instruments: make([]instrumentHistory, 0, len(instruments)),
	}
	for _, instrument := range instruments {
		snapshot.instruments = append(snapshot.instruments, instrumentHistory{instrument: instrument})
	}
	for i := range snapshot.instruments {
		byID[snapshot.instruments[i].instrument.InstrumentID] = &snapshot.instruments[i]
	}

	// The store returns both tables ordered, so appending preserves the
	// per-instrument ordering the engine depends on.
	for _, trade := range trades {
		if h, ok := byID[trade.InstrumentID]; ok {
			h.trades = append(h.trades, trade)
		}
	}
	for _, bar := range prices {
		if h, ok := byID[bar.InstrumentID]; ok {
			h.prices = append(h.prices, bar)
		}
	}

	sort.Slice(snapshot.instruments, func(i, j int) bool {
		return snapshot.instruments[i].instrument.Symbol < snapshot.instruments[j].instrument.Symbol
	})

	return snapshot, nil
}

// latestClose returns the most recent bar of the history, or nil when the
// instrument has no price history.
func (h *instrumentHistory) latestClose() *types.PriceBar {
	if len(h.prices) == 0 {
		return nil
	}
	return &h.prices[len(h.prices)-1]
}
