package types

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Trade sides
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// DateFormat is the wire format for calendar dates. Trade and price dates
// carry no time-of-day component; they are normalized to UTC midnight.
const DateFormat = "2006-01-02"

// Instrument is immutable reference data. Created once, never updated.
type Instrument struct {
	gorm.Model   `json:"-"`
	InstrumentID string    `gorm:"uniqueIndex" json:"instrument_id"`
	Symbol       string    `gorm:"uniqueIndex" json:"symbol"`
	CreatedAt    time.Time `json:"created_at"`
}

// Trade is a single executed trade. Trades are append-only: the ledger
// creates them and nothing ever mutates them. The auto-increment primary key
// doubles as the creation sequence, which is the tie-break for same-day
// trades when ordering by (trade_date, id) — FIFO attribution depends on it.
type Trade struct {
	gorm.Model   `json:"-"`
	TradeID      string          `gorm:"uniqueIndex" json:"trade_id"`
	InstrumentID string          `gorm:"index" json:"instrument_id"`
	TradeDate    time.Time       `json:"trade_date"`
	Side         string          `json:"side"` // BUY or SELL
	Quantity     int64           `json:"quantity"`
	Price        decimal.Decimal `gorm:"type:decimal(20,8)" json:"price"`
	Fees         decimal.Decimal `gorm:"type:decimal(20,8)" json:"fees"`
	CreatedAt    time.Time       `json:"created_at"`
}

// PriceBar is one daily closing price. At most one bar exists per
// (instrument, date); a composite unique index enforces it.
type PriceBar struct {
	gorm.Model   `json:"-"`
	InstrumentID string          `gorm:"index:idx_price_instrument_date,unique" json:"instrument_id"`
	PriceDate    time.Time       `gorm:"index:idx_price_instrument_date,unique" json:"price_date"`
	Close        decimal.Decimal `gorm:"type:decimal(20,8)" json:"close"`
	CreatedAt    time.Time       `json:"created_at"`
}
