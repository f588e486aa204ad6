package types

import "github.com/shopspring/decimal"

// CreateInstrumentRequest is the payload for registering a new instrument.
type CreateInstrumentRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

// RecordTradeRequest is the payload for appending a trade to the ledger.
// TradeDate uses DateFormat; Fees defaults to zero when omitted.
type RecordTradeRequest struct {
	Symbol    string          `json:"symbol" binding:"required"`
	TradeDate string          `json:"trade_date" binding:"required"`
	Side      string          `json:"side" binding:"required"`
	Quantity  int64           `json:"quantity" binding:"required"`
	Price     decimal.Decimal `json:"price" binding:"required"`
	Fees      decimal.Decimal `json:"fees"`
}

// RecordPriceBarRequest is the payload for appending a daily close.
type RecordPriceBarRequest struct {
	Symbol    string          `json:"symbol" binding:"required"`
	PriceDate string          `json:"price_date" binding:"required"`
	Close     decimal.Decimal `json:"close" binding:"required"`
}
