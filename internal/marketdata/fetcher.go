package marketdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ErrNoData means the provider returned an empty or placeholder series for
// the requested symbol and range.
var ErrNoData = errors.New("no price data returned")

// Bar is one daily close as delivered by the provider.
type Bar struct {
	Date  time.Time
	Close decimal.Decimal
}

// Fetcher pulls daily close series from Stooq's CSV download endpoint.
type Fetcher struct {
	baseURL string
	client  *http.Client
}

// NewFetcher creates a fetcher against the given base URL (production:
// https://stooq.com).
func NewFetcher(baseURL string) *Fetcher {
	return &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// DailyCloses fetches the close series for one symbol over [from, to]. The
// provider serves CSV rows of Date,Open,High,Low,Close,Volume; only the date
// and close survive into the ledger.
func (f *Fetcher) DailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	endpoint := fmt.Sprintf("%s/q/d/l/?s=%s&d1=%s&d2=%s&i=d",
		f.baseURL,
		url.QueryEscape(strings.ToLower(symbol)),
		from.Format("20060102"),
		to.Format("20060102"),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "portfolio-api/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, symbol)
	}

	bars, err := parseDailyCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse series for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, symbol)
	}

	log.Debug().
		Str("component", "marketdata").
		Str("symbol", symbol).
		Int("bars", len(bars)).
		Msg("fetched daily closes")

	return bars, nil
}

func parseDailyCSV(r io.Reader) ([]Bar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	closeIdx := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "Close") {
			closeIdx = i
		}
	}
	if closeIdx < 0 {
		return nil, fmt.Errorf("missing Close column in header %v", header)
	}

	var bars []Bar
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) <= closeIdx {
			continue
		}

		date, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(record[0]), time.UTC)
		if err != nil {
			return nil, fmt.Errorf("bad date %q: %w", record[0], err)
		}
		close, err := decimal.NewFromString(strings.TrimSpace(record[closeIdx]))
		if err != nil {
			return nil, fmt.Errorf("bad close %q: %w", record[closeIdx], err)
		}

		bars = append(bars, Bar{Date: date, Close: close})
	}

	return bars, nil
}
