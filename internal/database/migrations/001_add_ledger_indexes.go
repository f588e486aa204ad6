package migrations

import (
	"github.com/jmorrow/portfolio-api/internal/types"
	"gorm.io/gorm"
)

// AddLedgerIndexes creates the ledger tables and the indexes the analytics
// queries depend on
func AddLedgerIndexes(db *gorm.DB) error {
	// Create the ledger tables
	if err := db.AutoMigrate(&types.Instrument{}, &types.Trade{}, &types.PriceBar{}); err != nil {
		return err
	}

	// Add indexes for the engine's ordered reads
	// Using raw SQL for index creation to have more control over index types
	indexes := []string{
		// FIFO ordering: trades are always read by (trade_date, id) per instrument
		`CREATE INDEX IF NOT EXISTS idx_trades_instrument_date_id
		 ON trades(instrument_id, trade_date, id)`,

		// Price history reads are ordered by date per instrument
		`CREATE INDEX IF NOT EXISTS idx_price_bars_instrument_date
		 ON price_bars(instrument_id, price_date)`,

		// One bar per (instrument, date) is a data-model invariant
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_price_instrument_date
		 ON price_bars(instrument_id, price_date)`,
	}

	// Execute each index creation
	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
