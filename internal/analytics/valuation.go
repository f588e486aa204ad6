package analytics

import (
	"fmt"

	"github.com/jmorrow/portfolio-api/internal/types"
	"github.com/shopspring/decimal"
)

// netQuantity folds the trade history into a signed open quantity:
// +quantity for BUY, -quantity for SELL.
func netQuantity(trades []types.Trade) int64 {
	var net int64
	for _, trade := range trades {
		switch trade.Side {
		case types.SideBuy:
			net += trade.Quantity
		case types.SideSell:
			net -= trade.Quantity
		}
	}
	return net
}

// avgBuyPrice returns the quantity-weighted mean purchase price over BUY
// trades only; sells never move the cost basis under average-cost
// accounting. Returns nil when the instrument has no BUY trade.
func avgBuyPrice(trades []types.Trade) *decimal.Decimal {
	var qty int64
	cost := decimal.Zero
	for _, trade := range trades {
		if trade.Side != types.SideBuy {
			continue
		}
		qty += trade.Quantity
		cost = cost.Add(trade.Price.Mul(decimal.NewFromInt(trade.Quantity)))
	}
	if qty == 0 {
		return nil
	}
	avg := cost.Div(decimal.NewFromInt(qty))
	return &avg
}

// valuePosition derives an instrument's open position and its mark against
// the latest close. A flat position is worth exactly zero. An open position
// without a price bar, or without any BUY trade to anchor the cost basis,
// has undefined unrealized P&L and is reported as such, never defaulted to
// zero.
func valuePosition(h *instrumentHistory) (PositionSnapshot, *Diagnostic) {
	symbol := h.instrument.Symbol
	snapshot := PositionSnapshot{
		Symbol:      symbol,
		NetQuantity: netQuantity(h.trades),
		AvgBuyPrice: avgBuyPrice(h.trades),
	}
	if bar := h.latestClose(); bar != nil {
		close := bar.Close
		snapshot.LatestClose = &close
	}

	if snapshot.NetQuantity == 0 {
		zero := decimal.Zero
		snapshot.UnrealizedPnL = &zero
		return snapshot, nil
	}

	if snapshot.LatestClose == nil {
		return snapshot, &Diagnostic{
			Code:    DiagMissingPrice,
			Symbol:  symbol,
			Message: fmt.Sprintf("no price bar for %s; unrealized P&L is undefined", symbol),
		}
	}
	if snapshot.AvgBuyPrice == nil {
		// Open position with no BUY trade at all: inconsistent ledger.
		return snapshot, &Diagnostic{
			Code:    DiagDataInconsistency,
			Symbol:  symbol,
			Message: fmt.Sprintf("open position of %d units with no buy trades; cost basis is undefined", snapshot.NetQuantity),
		}
	}

	pnl := snapshot.LatestClose.Sub(*snapshot.AvgBuyPrice).
		Mul(decimal.NewFromInt(snapshot.NetQuantity))
	snapshot.UnrealizedPnL = &pnl
	return snapshot, nil
}
