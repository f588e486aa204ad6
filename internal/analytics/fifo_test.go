package analytics

import (
	"testing"
	"time"

	"github.com/jmorrow/portfolio-api/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func newTrade(id uint, tradeDay int, side string, quantity int64, price string) types.Trade {
	return types.Trade{
		Model:     gorm.Model{ID: id},
		TradeDate: day(tradeDay),
		Side:      side,
		Quantity:  quantity,
		Price:     decimal.RequireFromString(price),
	}
}

func TestMatchFIFOWorkedExample(t *testing.T) {
	t.Parallel()

	trades := []types.Trade{
		newTrade(1, 1, types.SideBuy, 10, "100"),
		newTrade(2, 2, types.SideBuy, 10, "110"),
		newTrade(3, 3, types.SideSell, 15, "120"),
	}

	matches := matchFIFO("X", trades)
	require.Len(t, matches, 2)

	assert.Equal(t, int64(10), matches[0].MatchedQuantity)
	assert.Equal(t, "100", matches[0].BuyPrice.String())
	assert.Equal(t, "120", matches[0].SellPrice.String())

	assert.Equal(t, int64(5), matches[1].MatchedQuantity)
	assert.Equal(t, "110", matches[1].BuyPrice.String())
	assert.Equal(t, "120", matches[1].SellPrice.String())

	// 10*(120-100) + 5*(120-110) = 250
	assert.Equal(t, "250", realizedPnL(matches).String())

	// The second lot keeps 5 unmatched units open at 110.
	var matched int64
	for _, m := range matches {
		if m.BuyPrice.String() == "110" {
			matched += m.MatchedQuantity
		}
	}
	assert.Equal(t, int64(5), trades[1].Quantity-matched)
}

func TestMatchFIFOConservation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		trades []types.Trade
	}{
		{
			name: "balanced",
			trades: []types.Trade{
				newTrade(1, 1, types.SideBuy, 10, "50"),
				newTrade(2, 2, types.SideSell, 10, "55"),
			},
		},
		{
			name: "excess_buys",
			trades: []types.Trade{
				newTrade(1, 1, types.SideBuy, 100, "50"),
				newTrade(2, 2, types.SideBuy, 30, "52"),
				newTrade(3, 3, types.SideSell, 40, "55"),
			},
		},
		{
			name: "excess_sells",
			trades: []types.Trade{
				newTrade(1, 1, types.SideBuy, 20, "50"),
				newTrade(2, 2, types.SideSell, 35, "55"),
				newTrade(3, 4, types.SideSell, 10, "56"),
			},
		},
		{
			name: "interleaved",
			trades: []types.Trade{
				newTrade(1, 1, types.SideBuy, 7, "10"),
				newTrade(2, 2, types.SideSell, 3, "11"),
				newTrade(3, 3, types.SideBuy, 5, "12"),
				newTrade(4, 4, types.SideSell, 6, "13"),
				newTrade(5, 5, types.SideBuy, 2, "14"),
				newTrade(6, 6, types.SideSell, 1, "15"),
			},
		},
		{
			name: "sells_only",
			trades: []types.Trade{
				newTrade(1, 1, types.SideSell, 10, "55"),
			},
		},
		{
			name:   "empty",
			trades: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bought, sold := sideTotals(tt.trades)
			want := bought
			if sold < bought {
				want = sold
			}

			var got int64
			for _, m := range matchFIFO("X", tt.trades) {
				assert.Positive(t, m.MatchedQuantity)
				got += m.MatchedQuantity
			}
			assert.Equal(t, want, got, "matched quantity must equal min(total buys, total sells)")
		})
	}
}

func TestMatchFIFOOrdering(t *testing.T) {
	t.Parallel()

	// Three buy lots, sells that chew through them in order. The earliest
	// buy must be fully consumed before any later buy is touched.
	trades := []types.Trade{
		newTrade(1, 1, types.SideBuy, 10, "100"),
		newTrade(2, 2, types.SideBuy, 10, "101"),
		newTrade(3, 3, types.SideBuy, 10, "102"),
		newTrade(4, 4, types.SideSell, 12, "110"),
		newTrade(5, 5, types.SideSell, 13, "111"),
	}

	matches := matchFIFO("X", trades)

	consumed := map[string]int64{}
	var order []string
	for _, m := range matches {
		if _, seen := consumed[m.BuyPrice.String()]; !seen {
			order = append(order, m.BuyPrice.String())
		}
		consumed[m.BuyPrice.String()] += m.MatchedQuantity
	}

	// Buy lots are consumed oldest first and an earlier lot is exhausted
	// before the next one opens.
	assert.Equal(t, []string{"100", "101", "102"}, order)
	assert.Equal(t, int64(10), consumed["100"])
	assert.Equal(t, int64(10), consumed["101"])
	assert.Equal(t, int64(5), consumed["102"])
}

func TestMatchFIFOSameDayTieBreak(t *testing.T) {
	t.Parallel()

	// Same trade date: creation order (the id) decides FIFO order.
	trades := []types.Trade{
		newTrade(1, 1, types.SideBuy, 5, "100"),
		newTrade(2, 1, types.SideBuy, 5, "200"),
		newTrade(3, 2, types.SideSell, 5, "150"),
	}

	matches := matchFIFO("X", trades)
	require.Len(t, matches, 1)
	assert.Equal(t, "100", matches[0].BuyPrice.String())
	assert.Equal(t, "250", realizedPnL(matches).String())
}

func TestOversoldDiagnostic(t *testing.T) {
	t.Parallel()

	trades := []types.Trade{
		newTrade(1, 1, types.SideBuy, 20, "50"),
		newTrade(2, 2, types.SideSell, 35, "55"),
	}

	// The overlap is still matched; only the excess goes unmatched.
	matches := matchFIFO("X", trades)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(20), matches[0].MatchedQuantity)

	diag := oversoldDiagnostic("X", trades)
	require.NotNil(t, diag)
	assert.Equal(t, DiagDataInconsistency, diag.Code)
	assert.Contains(t, diag.Message, "15 units left unmatched")

	assert.Nil(t, oversoldDiagnostic("X", []types.Trade{
		newTrade(1, 1, types.SideBuy, 20, "50"),
	}))
}
