package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/jmorrow/portfolio-api/internal/analytics"
	"github.com/jmorrow/portfolio-api/internal/auth"
	"github.com/jmorrow/portfolio-api/internal/config"
	"github.com/jmorrow/portfolio-api/internal/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// simulationClient handles HTTP communication with the portfolio API
type simulationClient struct {
	baseURL   string
	authToken string
	client    *http.Client
	calls     map[string]int
}

func newSimulationClient(cfg *config.Config) (*simulationClient, error) {
	sc := &simulationClient{
		baseURL: cfg.Simulation.ServerURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		calls: make(map[string]int),
	}

	token, err := sc.authenticate(cfg.Auth.APIKey, cfg.Auth.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	sc.authToken = token

	return sc, nil
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate(apiKey, apiSecret string) (string, error) {
	sc.calls["auth"]++

	body, err := json.Marshal(auth.Credentials{APIKey: apiKey, APISecret: apiSecret})
	if err != nil {
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var envelope struct {
		Data auth.TokenResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", err
	}

	return envelope.Data.Token, nil
}

// post sends an authenticated POST with a JSON payload. Conflict responses
// are tolerated so re-running the simulation against an existing database
// does not fail on duplicate instruments or bars.
func (sc *simulationClient) post(route, path string, payload interface{}) error {
	sc.calls[route]++

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, sc.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+sc.authToken)

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusConflict:
		return nil
	default:
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
}

// get sends an authenticated GET and decodes the data envelope into out.
func (sc *simulationClient) get(route, path string, out interface{}) error {
	sc.calls[route]++

	req, err := http.NewRequest(http.MethodGet, sc.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+sc.authToken)

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	envelope := struct {
		Data interface{} `json:"data"`
	}{Data: out}
	return json.NewDecoder(resp.Body).Decode(&envelope)
}

// seedPrices generates a random-walk daily close series for one symbol over
// the lookback window and records it through the ingest API.
func (sc *simulationClient) seedPrices(symbol string, days int, rng *rand.Rand) ([]decimal.Decimal, []string, error) {
	price := 50.0 + rng.Float64()*450.0
	start := time.Now().UTC().AddDate(0, 0, -days)

	var closes []decimal.Decimal
	var dates []string
	for d := 0; d <= days; d++ {
		date := start.AddDate(0, 0, d)
		// Skip weekends like a real close series would.
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		price *= 1 + (rng.Float64()-0.5)*0.04
		close := decimal.NewFromFloat(price).Round(2)
		dateStr := date.Format(types.DateFormat)

		err := sc.post("prices", "/api/v1/prices", types.RecordPriceBarRequest{
			Symbol:    symbol,
			PriceDate: dateStr,
			Close:     close,
		})
		if err != nil {
			return nil, nil, err
		}

		closes = append(closes, close)
		dates = append(dates, dateStr)
	}

	return closes, dates, nil
}

// seedTrades generates random trades against the seeded price series:
// random side, quantity 1..max, price slipped up to ±0.5% off that day's
// close, fees at 0.1% of notional.
func (sc *simulationClient) seedTrades(cfg *config.Config, symbol string, closes []decimal.Decimal, dates []string, rng *rand.Rand) (int, error) {
	n := cfg.Simulation.MinTrades + rng.Intn(cfg.Simulation.MaxTrades-cfg.Simulation.MinTrades+1)

	for i := 0; i < n; i++ {
		idx := rng.Intn(len(closes))
		quantity := 1 + rng.Int63n(cfg.Simulation.MaxQuantity)

		slippage := decimal.NewFromFloat(1 + (rng.Float64()-0.5)*0.01)
		price := closes[idx].Mul(slippage).Round(4)
		fees := price.Mul(decimal.NewFromInt(quantity)).Mul(decimal.NewFromFloat(0.001)).Round(2)

		side := types.SideBuy
		if rng.Intn(2) == 1 {
			side = types.SideSell
		}

		err := sc.post("trades", "/api/v1/trades", types.RecordTradeRequest{
			Symbol:    symbol,
			TradeDate: dates[idx],
			Side:      side,
			Quantity:  quantity,
			Price:     price,
			Fees:      fees,
		})
		if err != nil {
			return 0, err
		}
	}

	return n, nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	rng := rand.New(rand.NewSource(*seed))

	sc, err := newSimulationClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create simulation client")
	}
	log.Info().
		Int64("seed", *seed).
		Strs("symbols", cfg.Simulation.Symbols).
		Msg("starting ledger simulation")

	for _, symbol := range cfg.Simulation.Symbols {
		if err := sc.post("instruments", "/api/v1/instruments", types.CreateInstrumentRequest{Symbol: symbol}); err != nil {
			log.Fatal().Err(err).Str("symbol", symbol).Msg("failed to create instrument")
		}

		closes, dates, err := sc.seedPrices(symbol, cfg.Simulation.LookbackDays, rng)
		if err != nil {
			log.Fatal().Err(err).Str("symbol", symbol).Msg("failed to seed prices")
		}

		trades, err := sc.seedTrades(cfg, symbol, closes, dates, rng)
		if err != nil {
			log.Fatal().Err(err).Str("symbol", symbol).Msg("failed to seed trades")
		}

		log.Info().
			Str("symbol", symbol).
			Int("price_bars", len(closes)).
			Int("trades", trades).
			Msg("seeded instrument")
	}

	// Pull the derived tables back out and report headline numbers.
	var realized analytics.RealizedReport
	if err := sc.get("realized", "/api/v1/analytics/realized", &realized); err != nil {
		log.Fatal().Err(err).Msg("failed to fetch realized pnl")
	}

	var unrealized analytics.UnrealizedReport
	if err := sc.get("unrealized", "/api/v1/analytics/unrealized", &unrealized); err != nil {
		log.Fatal().Err(err).Msg("failed to fetch unrealized pnl")
	}

	var curve []analytics.EquityPoint
	if err := sc.get("equity", "/api/v1/analytics/equity-curve", &curve); err != nil {
		log.Fatal().Err(err).Msg("failed to fetch equity curve")
	}

	log.Info().
		Str("realized_total", realized.Total.String()).
		Str("unrealized_total", unrealized.Total.String()).
		Int("equity_points", len(curve)).
		Int("diagnostics", len(realized.Diagnostics)+len(unrealized.Diagnostics)).
		Msg("simulation complete")

	for route, count := range sc.calls {
		log.Info().Str("route", route).Int("calls", count).Msg("route usage")
	}
}
