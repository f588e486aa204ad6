package analytics

import (
	"sort"

	"github.com/jmorrow/portfolio-api/internal/types"
	"github.com/shopspring/decimal"
)

// buildEquityCurve reconstructs the portfolio value trajectory over the
// union of all price dates. An instrument's position is a step function that
// moves only on trade dates, so valuing it on a price date is a forward fill
// of the cumulative signed quantity onto that date. Each instrument is
// walked once with two pointers (prices vs. trades); instruments without a
// bar on a given date contribute nothing to that date, and dates before an
// instrument's first trade contribute zero.
func buildEquityCurve(snapshot *Snapshot) []EquityPoint {
	totals := make(map[string]decimal.Decimal)

	for idx := range snapshot.instruments {
		h := &snapshot.instruments[idx]
		var cum int64
		ti := 0
		for _, bar := range h.prices {
			for ti < len(h.trades) && !h.trades[ti].TradeDate.After(bar.PriceDate) {
				switch h.trades[ti].Side {
				case types.SideBuy:
					cum += h.trades[ti].Quantity
				case types.SideSell:
					cum -= h.trades[ti].Quantity
				}
				ti++
			}

			date := bar.PriceDate.Format(types.DateFormat)
			value := bar.Close.Mul(decimal.NewFromInt(cum))
			totals[date] = totals[date].Add(value)
		}
	}

	dates := make([]string, 0, len(totals))
	for date := range totals {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	points := make([]EquityPoint, 0, len(dates))
	peak := decimal.Zero
	var prev *decimal.Decimal
	for _, date := range dates {
		value := totals[date]
		if value.GreaterThan(peak) || len(points) == 0 {
			peak = value
		}

		point := EquityPoint{
			Date:           date,
			PortfolioValue: value,
			RunningPeak:    peak,
		}
		if prev != nil {
			pnl := value.Sub(*prev)
			point.DailyPnL = &pnl
		}
		if !peak.IsZero() {
			dd := value.Sub(peak).Div(peak)
			point.Drawdown = &dd
		}

		points = append(points, point)
		v := value
		prev = &v
	}

	return points
}
