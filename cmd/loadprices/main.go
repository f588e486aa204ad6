package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jmorrow/portfolio-api/internal/auth"
	"github.com/jmorrow/portfolio-api/internal/config"
	"github.com/jmorrow/portfolio-api/internal/marketdata"
	"github.com/jmorrow/portfolio-api/internal/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// init configures the logger for the loader job
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// loaderClient pushes fetched bars through the ingest API.
type loaderClient struct {
	baseURL   string
	authToken string
	client    *http.Client
}

func newLoaderClient(cfg *config.Config) (*loaderClient, error) {
	lc := &loaderClient{
		baseURL: cfg.Loader.ServerURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	body, err := json.Marshal(auth.Credentials{APIKey: cfg.Auth.APIKey, APISecret: cfg.Auth.APISecret})
	if err != nil {
		return nil, err
	}

	resp, err := lc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", lc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var envelope struct {
		Data auth.TokenResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, err
	}
	lc.authToken = envelope.Data.Token

	return lc, nil
}

// post submits one ingest payload; duplicates come back as conflicts and are
// reported to the caller so it can count skips.
func (lc *loaderClient) post(path string, payload interface{}) (skipped bool, err error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return false, err
	}

	req, err := http.NewRequest(http.MethodPost, lc.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+lc.authToken)

	resp, err := lc.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return false, nil
	case http.StatusConflict:
		return true, nil
	default:
		return false, fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
}

// symbolForLedger strips the provider's market suffix: AAPL.US -> AAPL.
func symbolForLedger(providerSymbol string) string {
	if idx := strings.IndexByte(providerSymbol, '.'); idx > 0 {
		return providerSymbol[:idx]
	}
	return providerSymbol
}

// main fetches daily closes for the configured symbols and appends them to
// the price history, skipping bars the ledger already has.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	lc, err := newLoaderClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create loader client")
	}

	fetcher := marketdata.NewFetcher(cfg.Loader.BaseURL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -cfg.Loader.LookbackDays)

	for _, providerSymbol := range cfg.Loader.Symbols {
		symbol := symbolForLedger(providerSymbol)
		logger := log.With().Str("symbol", symbol).Logger()

		// Instrument creation is idempotent through the conflict path.
		if _, err := lc.post("/api/v1/instruments", types.CreateInstrumentRequest{Symbol: symbol}); err != nil {
			logger.Fatal().Err(err).Msg("failed to create instrument")
		}

		bars, err := fetcher.DailyCloses(ctx, providerSymbol, from, to)
		if err != nil {
			logger.Error().Err(err).Msg("failed to fetch closes, skipping symbol")
			continue
		}

		inserted, skipped := 0, 0
		for _, bar := range bars {
			wasSkipped, err := lc.post("/api/v1/prices", types.RecordPriceBarRequest{
				Symbol:    symbol,
				PriceDate: bar.Date.Format(types.DateFormat),
				Close:     bar.Close,
			})
			if err != nil {
				logger.Fatal().Err(err).Msg("failed to record price bar")
			}
			if wasSkipped {
				skipped++
			} else {
				inserted++
			}
		}

		logger.Info().
			Int("inserted", inserted).
			Int("skipped", skipped).
			Msg("loaded price history")
	}

	log.Info().Msg("price loading complete")
}
