package analytics

import (
	"github.com/gin-gonic/gin"
	"github.com/jmorrow/portfolio-api/internal/ledger"
	"github.com/jmorrow/portfolio-api/pkg/response"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service is the analytics engine's entry point. Every computation snapshots
// the ledger, then runs pure functions over the immutable copy: the engine
// never writes to the store, holds no state between invocations, and is
// idempotent by construction.
type Service struct {
	db *ledger.Database
}

// NewService creates a new analytics service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: ledger.NewDatabase(gormDB),
	}
}

// RealizedPnL runs FIFO matching per instrument and aggregates realized
// profit by symbol. Oversold instruments are reported through diagnostics
// with the overlap still matched.
func (s *Service) RealizedPnL() (*RealizedReport, error) {
	logger := log.With().Str("service", "analytics").Logger()

	snapshot, err := LoadSnapshot(s.db)
	if err != nil {
		logger.Error().Err(err).Msg("failed to snapshot ledger")
		return nil, err
	}

	report := &RealizedReport{
		BySymbol: make(map[string]decimal.Decimal),
		Total:    decimal.Zero,
	}
	for idx := range snapshot.instruments {
		h := &snapshot.instruments[idx]
		symbol := h.instrument.Symbol

		matches := matchFIFO(symbol, h.trades)
		if len(matches) == 0 && len(h.trades) == 0 {
			// Empty ledger for this instrument: valid, nothing to report.
			continue
		}

		pnl := realizedPnL(matches)
		report.BySymbol[symbol] = pnl
		report.Total = report.Total.Add(pnl)
		report.Matches = append(report.Matches, matches...)

		if diag := oversoldDiagnostic(symbol, h.trades); diag != nil {
			logger.Warn().
				Str("symbol", symbol).
				Msg(diag.Message)
			report.Diagnostics = append(report.Diagnostics, *diag)
		}
	}

	logger.Debug().
		Int("instruments", len(report.BySymbol)).
		Int("matches", len(report.Matches)).
		Str("total", report.Total.String()).
		Msg("computed realized pnl")

	return report, nil
}

// UnrealizedPnL values every open position against its latest close. The
// total covers only positions whose unrealized P&L is defined; undefined
// metrics stay null so callers can tell them apart from zero.
func (s *Service) UnrealizedPnL() (*UnrealizedReport, error) {
	logger := log.With().Str("service", "analytics").Logger()

	snapshot, err := LoadSnapshot(s.db)
	if err != nil {
		logger.Error().Err(err).Msg("failed to snapshot ledger")
		return nil, err
	}

	report := &UnrealizedReport{
		Positions: make([]PositionSnapshot, 0, len(snapshot.instruments)),
		Total:     decimal.Zero,
	}
	for idx := range snapshot.instruments {
		h := &snapshot.instruments[idx]
		if len(h.trades) == 0 {
			continue
		}

		position, diag := valuePosition(h)
		report.Positions = append(report.Positions, position)
		if position.UnrealizedPnL != nil {
			report.Total = report.Total.Add(*position.UnrealizedPnL)
		}
		if diag != nil {
			logger.Warn().
				Str("symbol", position.Symbol).
				Msg(diag.Message)
			report.Diagnostics = append(report.Diagnostics, *diag)
		}
	}

	logger.Debug().
		Int("positions", len(report.Positions)).
		Str("total", report.Total.String()).
		Msg("computed unrealized pnl")

	return report, nil
}

// EquityCurve reconstructs the dated portfolio value series with daily P&L,
// running peak and drawdown.
func (s *Service) EquityCurve() ([]EquityPoint, error) {
	logger := log.With().Str("service", "analytics").Logger()

	snapshot, err := LoadSnapshot(s.db)
	if err != nil {
		logger.Error().Err(err).Msg("failed to snapshot ledger")
		return nil, err
	}

	points := buildEquityCurve(snapshot)
	logger.Debug().Int("points", len(points)).Msg("built equity curve")
	return points, nil
}

// GinHandlers contains HTTP handlers for analytics endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for analytics endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// RealizedPnLHandler handles GET requests for FIFO realized P&L by symbol
func (h *GinHandlers) RealizedPnLHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := h.service.RealizedPnL()
		response.Handle(c, report, err)
	}
}

// UnrealizedPnLHandler handles GET requests for open-position valuations
func (h *GinHandlers) UnrealizedPnLHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := h.service.UnrealizedPnL()
		response.Handle(c, report, err)
	}
}

// EquityCurveHandler handles GET requests for the portfolio value series
func (h *GinHandlers) EquityCurveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		points, err := h.service.EquityCurve()
		response.Handle(c, points, err)
	}
}

// PositionsHandler handles GET requests for net open quantities by symbol
func (h *GinHandlers) PositionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := h.service.UnrealizedPnL()
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		positions := make(map[string]int64, len(report.Positions))
		for _, position := range report.Positions {
			positions[position.Symbol] = position.NetQuantity
		}
		response.Success(c, positions)
	}
}
