package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"BluffScan/internal/domain/models"
	applogger "BluffScan/pkg/logger"
)

// fakeFeed serves canned bars and caps; per-ticker errors simulate feed
// failures for individual symbols.
type fakeFeed struct {
	bars     map[string][]models.PriceBar
	barsErr  map[string]error
	index    []models.PriceBar
	indexErr error
	caps     map[string]float64 // absent ticker means unknown cap
	capErr   map[string]error
}

func (f *fakeFeed) GetDailyBars(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error) {
	if err, ok := f.barsErr[ticker]; ok {
		return nil, err
	}
	bars, ok := f.bars[ticker]
	if !ok {
		return nil, errors.New("unknown symbol")
	}
	return bars, nil
}

func (f *fakeFeed) GetIndexBars(ctx context.Context, from, to time.Time) ([]models.PriceBar, error) {
	if f.indexErr != nil {
		return nil, f.indexErr
	}
	return f.index, nil
}

func (f *fakeFeed) GetMarketCap(ctx context.Context, ticker string) (*float64, error) {
	if err, ok := f.capErr[ticker]; ok {
		return nil, err
	}
	if mc, ok := f.caps[ticker]; ok {
		return &mc, nil
	}
	return nil, nil
}

type fakeUniverse struct {
	uni models.Universe
	err error
}

func (f *fakeUniverse) DefaultUniverse(ctx context.Context) (models.Universe, error) {
	return f.uni, f.err
}

type fakeMetrics struct {
	runOutcomes    []string
	tickerFailures []string
}

func (m *fakeMetrics) RecordRunCompleted(outcome string)        { m.runOutcomes = append(m.runOutcomes, outcome) }
func (m *fakeMetrics) RecordTickerFailure(reason string)        { m.tickerFailures = append(m.tickerFailures, reason) }
func (m *fakeMetrics) RecordFeedLatency(string, float64)        {}
func (m *fakeMetrics) RecordBluffRate(string, float64)          {}
func (m *fakeMetrics) RecordError(string)                       {}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

// barSeries builds a daily close series starting at startDay where every bar
// has High=Low=Close. Convenient for beta fixtures.
func barSeries(startDay int, closes ...float64) []models.PriceBar {
	bars := make([]models.PriceBar, 0, len(closes))
	for i, c := range closes {
		bars = append(bars, models.PriceBar{
			Date:  time.Date(2024, 1, startDay+i, 0, 0, 0, 0, time.UTC),
			High:  c,
			Low:   c,
			Close: c,
		})
	}
	return bars
}
