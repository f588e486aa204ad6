package analytics

import (
	"testing"

	"github.com/jmorrow/portfolio-api/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotOf(histories ...*instrumentHistory) *Snapshot {
	s := &Snapshot{}
	for _, h := range histories {
		s.instruments = append(s.instruments, *h)
	}
	return s
}

func TestBuildEquityCurveWorkedExample(t *testing.T) {
	t.Parallel()

	// Portfolio worth 1000 then 800: daily pnl [nil, -200], peak held at
	// 1000, drawdown [0, -0.2].
	h := newHistory("X",
		[]types.Trade{newTrade(1, 1, types.SideBuy, 10, "100")},
		[]types.PriceBar{newBar(2, "100"), newBar(3, "80")},
	)

	points := buildEquityCurve(snapshotOf(h))
	require.Len(t, points, 2)

	assert.Equal(t, "2025-01-02", points[0].Date)
	assert.Equal(t, "1000", points[0].PortfolioValue.String())
	assert.Nil(t, points[0].DailyPnL)
	assert.Equal(t, "1000", points[0].RunningPeak.String())
	require.NotNil(t, points[0].Drawdown)
	assert.True(t, points[0].Drawdown.IsZero())

	assert.Equal(t, "2025-01-03", points[1].Date)
	assert.Equal(t, "800", points[1].PortfolioValue.String())
	require.NotNil(t, points[1].DailyPnL)
	assert.Equal(t, "-200", points[1].DailyPnL.String())
	assert.Equal(t, "1000", points[1].RunningPeak.String())
	require.NotNil(t, points[1].Drawdown)
	assert.Equal(t, "-0.2", points[1].Drawdown.String())
}

func TestBuildEquityCurveForwardFillsPositions(t *testing.T) {
	t.Parallel()

	// Position changes on trade dates only and holds constant between
	// them. Price dates before the first trade value a zero position.
	h := newHistory("X",
		[]types.Trade{
			newTrade(1, 3, types.SideBuy, 10, "50"),
			newTrade(2, 6, types.SideSell, 4, "55"),
		},
		[]types.PriceBar{
			newBar(2, "50"), // before any trade: flat
			newBar(3, "51"), // buy lands today
			newBar(5, "52"), // held constant
			newBar(7, "53"), // after the partial sell
		},
	)

	points := buildEquityCurve(snapshotOf(h))
	require.Len(t, points, 4)

	assert.Equal(t, "0", points[0].PortfolioValue.String())
	assert.Equal(t, "510", points[1].PortfolioValue.String())
	assert.Equal(t, "520", points[2].PortfolioValue.String())
	assert.Equal(t, "318", points[3].PortfolioValue.String())
}

func TestBuildEquityCurveSumsInstrumentsPerDate(t *testing.T) {
	t.Parallel()

	a := newHistory("A",
		[]types.Trade{newTrade(1, 1, types.SideBuy, 2, "10")},
		[]types.PriceBar{newBar(2, "10"), newBar(3, "11")},
	)
	// B has no bar on day 3 and so contributes nothing to that date.
	b := newHistory("B",
		[]types.Trade{newTrade(2, 1, types.SideBuy, 3, "20")},
		[]types.PriceBar{newBar(2, "20")},
	)

	points := buildEquityCurve(snapshotOf(a, b))
	require.Len(t, points, 2)

	// day 2: 2*10 + 3*20 = 80; day 3: 2*11 = 22
	assert.Equal(t, "80", points[0].PortfolioValue.String())
	assert.Equal(t, "22", points[1].PortfolioValue.String())
}

func TestBuildEquityCurvePeakAndDrawdownProperties(t *testing.T) {
	t.Parallel()

	closes := []string{"100", "120", "90", "95", "130", "105", "130"}
	bars := make([]types.PriceBar, 0, len(closes))
	for i, c := range closes {
		bars = append(bars, newBar(i+2, c))
	}
	h := newHistory("X",
		[]types.Trade{newTrade(1, 1, types.SideBuy, 3, "100")},
		bars,
	)

	points := buildEquityCurve(snapshotOf(h))
	require.Len(t, points, len(closes))

	prevPeak := points[0].RunningPeak
	for i, p := range points {
		assert.False(t, p.RunningPeak.LessThan(prevPeak), "running peak must be non-decreasing")
		prevPeak = p.RunningPeak

		require.NotNil(t, p.Drawdown, "point %d", i)
		assert.False(t, p.Drawdown.IsPositive(), "drawdown must never be positive")
		if p.PortfolioValue.Equal(p.RunningPeak) {
			assert.True(t, p.Drawdown.IsZero(), "at the peak the drawdown is zero")
		}
	}
}

func TestBuildEquityCurveZeroPeakDrawdownUndefined(t *testing.T) {
	t.Parallel()

	// Price history exists but no position is ever held: value stays zero,
	// the peak stays zero, and drawdown is undefined rather than forced to
	// a number.
	h := newHistory("X", nil, []types.PriceBar{newBar(2, "100"), newBar(3, "90")})

	points := buildEquityCurve(snapshotOf(h))
	require.Len(t, points, 2)
	for _, p := range points {
		assert.True(t, p.PortfolioValue.IsZero())
		assert.True(t, p.RunningPeak.IsZero())
		assert.Nil(t, p.Drawdown)
	}
}

func TestBuildEquityCurveEmptySnapshot(t *testing.T) {
	t.Parallel()

	points := buildEquityCurve(snapshotOf())
	assert.Empty(t, points)
}
