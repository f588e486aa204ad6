package analytics

import "github.com/shopspring/decimal"

// Diagnostic codes. Diagnostics flag suspect input without failing the
// computation; the caller decides whether to surface or ignore them.
const (
	DiagDataInconsistency = "DATA_INCONSISTENCY"
	DiagMissingPrice      = "MISSING_PRICE"
)

// Diagnostic describes a data-quality finding for one instrument.
type Diagnostic struct {
	Code    string `json:"code"`
	Symbol  string `json:"symbol"`
	Message string `json:"message"`
}

// LotMatch pairs a buy lot fragment with the sell lot fragment that consumed
// it under FIFO attribution. Derived fresh on each computation, never stored.
type LotMatch struct {
	Symbol          string          `json:"symbol"`
	MatchedQuantity int64           `json:"matched_quantity"`
	BuyPrice        decimal.Decimal `json:"buy_price"`
	SellPrice       decimal.Decimal `json:"sell_price"`
}

// PnL returns the realized profit on this match: (sell - buy) * quantity.
func (m LotMatch) PnL() decimal.Decimal {
	return m.SellPrice.Sub(m.BuyPrice).Mul(decimal.NewFromInt(m.MatchedQuantity))
}

// RealizedReport aggregates FIFO-matched P&L per symbol.
type RealizedReport struct {
	BySymbol    map[string]decimal.Decimal `json:"by_symbol"`
	Total       decimal.Decimal            `json:"total"`
	Matches     []LotMatch                 `json:"matches"`
	Diagnostics []Diagnostic               `json:"diagnostics,omitempty"`
}

// PositionSnapshot is the current open position of one instrument. Nil
// pointer fields mean "undefined", which is distinct from zero: avg buy
// price is undefined without a BUY trade, unrealized P&L is undefined
// without a price bar for an open position.
type PositionSnapshot struct {
	Symbol        string           `json:"symbol"`
	NetQuantity   int64            `json:"net_quantity"`
	AvgBuyPrice   *decimal.Decimal `json:"avg_buy_price"`
	LatestClose   *decimal.Decimal `json:"latest_close"`
	UnrealizedPnL *decimal.Decimal `json:"unrealized_pnl"`
}

// UnrealizedReport lists position valuations ordered by symbol. Total sums
// only the defined unrealized values.
type UnrealizedReport struct {
	Positions   []PositionSnapshot `json:"positions"`
	Total       decimal.Decimal    `json:"total"`
	Diagnostics []Diagnostic       `json:"diagnostics,omitempty"`
}

// EquityPoint is one day of the portfolio value trajectory. DailyPnL is nil
// on the first point; Drawdown is nil while the running peak is zero.
type EquityPoint struct {
	Date           string           `json:"date"`
	PortfolioValue decimal.Decimal  `json:"portfolio_value"`
	DailyPnL       *decimal.Decimal `json:"daily_pnl"`
	RunningPeak    decimal.Decimal  `json:"running_peak"`
	Drawdown       *decimal.Decimal `json:"drawdown"`
}
