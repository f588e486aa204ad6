package analytics

import (
	"fmt"

	"github.com/jmorrow/portfolio-api/internal/types"
	"github.com/shopspring/decimal"
)

// matchFIFO attributes every sold unit to the earliest still-unmatched
// bought unit for one instrument. Trades must already be ordered by
// (trade_date, id).
//
// Each side's trades occupy half-open intervals on a shared unit axis: a buy
// of quantity q after cumulative buys c covers [c, c+q), and likewise for
// sells. A buy and a sell match exactly where their intervals overlap, and
// the overlap length is the matched quantity. Walking both interval lists
// with two pointers yields the full FIFO attribution in a single O(n) pass,
// without materializing per-unit lots.
//
// Excess quantity on either side has no counterpart interval and simply
// stays unmatched: it is the open position (excess buys) or an oversold
// inconsistency (excess sells), both handled by the callers.
func matchFIFO(symbol string, trades []types.Trade) []LotMatch {
	var buys, sells []types.Trade
	for _, trade := range trades {
		switch trade.Side {
		case types.SideBuy:
			buys = append(buys, trade)
		case types.SideSell:
			sells = append(sells, trade)
		}
	}

	var matches []LotMatch
	var buyCum, sellCum int64
	i, j := 0, 0
	for i < len(buys) && j < len(sells) {
		buyEnd := buyCum + buys[i].Quantity
		sellEnd := sellCum + sells[j].Quantity

		lo := buyCum
		if sellCum > lo {
			lo = sellCum
		}
		hi := buyEnd
		if sellEnd < hi {
			hi = sellEnd
		}
		if hi > lo {
			matches = append(matches, LotMatch{
				Symbol:          symbol,
				MatchedQuantity: hi - lo,
				BuyPrice:        buys[i].Price,
				SellPrice:       sells[j].Price,
			})
		}

		// Advance whichever interval ends first; on a tie both are spent.
		if buyEnd <= sellEnd {
			buyCum = buyEnd
			i++
		}
		if sellEnd <= buyEnd {
			sellCum = sellEnd
			j++
		}
	}

	return matches
}

// sideTotals returns total bought and sold quantity for an ordered trade
// list.
func sideTotals(trades []types.Trade) (bought, sold int64) {
	for _, trade := range trades {
		switch trade.Side {
		case types.SideBuy:
			bought += trade.Quantity
		case types.SideSell:
			sold += trade.Quantity
		}
	}
	return bought, sold
}

// realizedPnL sums (sell - buy) * quantity across matches. Addition is
// commutative, so the match order does not affect the result.
func realizedPnL(matches []LotMatch) decimal.Decimal {
	total := decimal.Zero
	for _, match := range matches {
		total = total.Add(match.PnL())
	}
	return total
}

// oversoldDiagnostic flags an instrument whose sells exceed its cumulative
// buys. The excess stays unmatched rather than erroring, but the caller
// should surface the inconsistency instead of silently dropping P&L.
func oversoldDiagnostic(symbol string, trades []types.Trade) *Diagnostic {
	bought, sold := sideTotals(trades)
	if sold <= bought {
		return nil
	}
	return &Diagnostic{
		Code:   DiagDataInconsistency,
		Symbol: symbol,
		Message: fmt.Sprintf("sell quantity %d exceeds cumulative buy quantity %d; %d units left unmatched",
			sold, bought, sold-bought),
	}
}
