package analytics

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Refresher recomputes the derived tables on a fixed interval and logs the
// headline numbers. The engine itself is stateless, so this is purely an
// operational heartbeat: it keeps report latency visible and surfaces data
// inconsistencies as they enter the ledger rather than on the next request.
type Refresher struct {
	service  *Service
	interval time.Duration
}

func NewRefresher(service *Service) *Refresher {
	return &Refresher{
		service:  service,
		interval: 5 * time.Minute,
	}
}

// Start begins the refresh loop
func (r *Refresher) Start(ctx context.Context) {
	logger := log.With().Str("component", "analytics_refresher").Logger()
	logger.Info().Dur("interval", r.interval).Msg("starting analytics refresher")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down analytics refresher")
			return
		case <-ticker.C:
			r.refresh(logger)
		}
	}
}

func (r *Refresher) refresh(logger zerolog.Logger) {
	start := time.Now()

	realized, err := r.service.RealizedPnL()
	if err != nil {
		logger.Error().Err(err).Msg("failed to recompute realized pnl")
		return
	}

	unrealized, err := r.service.UnrealizedPnL()
	if err != nil {
		logger.Error().Err(err).Msg("failed to recompute unrealized pnl")
		return
	}

	curve, err := r.service.EquityCurve()
	if err != nil {
		logger.Error().Err(err).Msg("failed to recompute equity curve")
		return
	}

	event := logger.Info().
		Dur("elapsed", time.Since(start)).
		Str("realized_total", realized.Total.String()).
		Str("unrealized_total", unrealized.Total.String()).
		Int("equity_points", len(curve))
	if n := len(realized.Diagnostics) + len(unrealized.Diagnostics); n > 0 {
		event = event.Int("diagnostics", n)
	}
	event.Msg("refreshed analytics")
}
