package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyCloses(t *testing.T) {
	t.Parallel()

	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		fmt.Fprint(w, "Date,Open,High,Low,Close,Volume\n"+
			"2025-01-02,100.1,101.5,99.8,101.25,1000000\n"+
			"2025-01-03,101.3,102.0,100.9,101.9,900000\n")
	}))
	t.Cleanup(server.Close)

	fetcher := NewFetcher(server.URL)
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	bars, err := fetcher.DailyCloses(context.Background(), "AAPL.US", from, to)
	require.NoError(t, err)

	assert.Equal(t, "/q/d/l/?s=aapl.us&d1=20250101&d2=20250105&i=d", gotPath)
	require.Len(t, bars, 2)
	assert.Equal(t, "2025-01-02", bars[0].Date.Format("2006-01-02"))
	assert.Equal(t, "101.25", bars[0].Close.String())
	assert.Equal(t, "101.9", bars[1].Close.String())
}

func TestDailyClosesEmptySeries(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Date,Open,High,Low,Close,Volume\n")
	}))
	t.Cleanup(server.Close)

	fetcher := NewFetcher(server.URL)
	_, err := fetcher.DailyCloses(context.Background(), "NOPE.US", time.Now().AddDate(0, 0, -5), time.Now())
	assert.ErrorIs(t, err, ErrNoData)
}

func TestDailyClosesBadStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	fetcher := NewFetcher(server.URL)
	_, err := fetcher.DailyCloses(context.Background(), "AAPL.US", time.Now().AddDate(0, 0, -5), time.Now())
	assert.ErrorContains(t, err, "unexpected status 429")
}

func TestParseDailyCSVRejectsGarbage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Date,Open,High,Low,Close,Volume\n"+
			"2025-01-02,100.1,101.5,99.8,not-a-number,1000000\n")
	}))
	t.Cleanup(server.Close)

	fetcher := NewFetcher(server.URL)
	_, err := fetcher.DailyCloses(context.Background(), "AAPL.US", time.Now().AddDate(0, 0, -5), time.Now())
	assert.ErrorContains(t, err, "bad close")
}
