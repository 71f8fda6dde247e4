package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"BluffScan/internal/domain/models"
)

func daysAgo(n int) time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -n)
}

func recentBar(ago int, price float64) models.PriceBar {
	return models.PriceBar{Date: daysAgo(ago), High: price, Low: price, Close: price}
}

// recentDecline is a series inside the last month with a 30% drawdown that
// recovers after a 2-day gap, plus older bars for the beta estimate.
func recentDecline() []models.PriceBar {
	return []models.PriceBar{
		recentBar(60, 100), recentBar(59, 102), recentBar(58, 101), recentBar(57, 103),
		recentBar(20, 100), recentBar(19, 100), recentBar(18, 70), recentBar(16, 100),
	}
}

// recentCalm never declines past the threshold.
func recentCalm() []models.PriceBar {
	return []models.PriceBar{
		recentBar(60, 50), recentBar(59, 51), recentBar(58, 50), recentBar(57, 52),
		recentBar(20, 50), recentBar(19, 48), recentBar(18, 49), recentBar(16, 50),
	}
}

func newAnalyzer(t *testing.T, feed *fakeFeed, uni *fakeUniverse, m *fakeMetrics) *RunAnalyzer {
	t.Helper()
	l := testLogger(t)
	return NewRunAnalyzer(feed, uni, NewTickerEvaluator(feed, l), m, l, RunAnalyzerConfig{Workers: 4})
}

func TestRunAggregatesOutcomes(t *testing.T) {
	feed := &fakeFeed{
		bars: map[string][]models.PriceBar{
			"ACME": recentDecline(),
			"CALM": recentCalm(),
		},
		barsErr: map[string]error{"GONE": errors.New("404 symbol not found")},
		index:   recentDecline(),
		caps:    map[string]float64{"ACME": 500, "CALM": 500},
	}
	m := &fakeMetrics{}
	a := newAnalyzer(t, feed, &fakeUniverse{}, m)

	params := models.RunParameters{
		Tickers:             []string{"ACME", "CALM", "GONE"},
		LookbackMonths:      1,
		DeclineThresholdPct: 20,
	}
	result, err := a.Run(context.Background(), params, nil)
	require.NoError(t, err)

	require.Equal(t, 3, result.UniverseSize)
	require.Equal(t, 2, result.EvaluatedTickerCount)
	require.Equal(t, 1, result.DeclinedStockCount)
	require.Equal(t, 1, result.RecoveredStockCount)
	require.Equal(t, 100.0, result.StockBluffRatePct)
	require.Equal(t, 1, result.DeclinedEventCount)
	require.Equal(t, 1, result.RecoveredEventCount)
	require.Equal(t, 100.0, result.EventBluffRatePct)

	require.Equal(t, 1, result.FailedTickerCount)
	require.Equal(t, "GONE", result.FailedTickers[0].Ticker)
	require.Equal(t, "data_unavailable", result.FailedTickers[0].Reason)
	require.Equal(t, []string{"data_unavailable"}, m.tickerFailures)

	require.Len(t, result.DeclinedStocks, 1)
	require.Equal(t, "ACME", result.DeclinedStocks[0].Ticker)
	require.NotNil(t, result.RecoveryDaysDistribution.Median)
	require.Equal(t, 2.0, *result.RecoveryDaysDistribution.Median)

	// counts stay ordered per the aggregation contract
	require.LessOrEqual(t, result.RecoveredStockCount, result.DeclinedStockCount)
	require.LessOrEqual(t, result.DeclinedStockCount, result.EvaluatedTickerCount)
	require.LessOrEqual(t, result.EvaluatedTickerCount, result.UniverseSize)
}

func TestRunFallsBackToDefaultUniverse(t *testing.T) {
	feed := &fakeFeed{
		bars:  map[string][]models.PriceBar{"ACME": recentDecline()},
		index: recentDecline(),
		caps:  map[string]float64{"ACME": 500},
	}
	uni := &fakeUniverse{uni: models.Universe{Source: "snapshot", Tickers: []string{"ACME"}}}
	a := newAnalyzer(t, feed, uni, &fakeMetrics{})

	result, err := a.Run(context.Background(), models.RunParameters{LookbackMonths: 1, DeclineThresholdPct: 20}, nil)
	require.NoError(t, err)
	require.True(t, result.Params.UsedDefaultUniverse)
	require.Equal(t, []string{"ACME"}, result.Params.Tickers)
}

func TestRunUniverseResolutionFailure(t *testing.T) {
	m := &fakeMetrics{}
	a := newAnalyzer(t, &fakeFeed{}, &fakeUniverse{err: errors.New("no source available")}, m)

	_, err := a.Run(context.Background(), models.RunParameters{LookbackMonths: 1, DeclineThresholdPct: 20}, nil)
	require.Error(t, err)
	require.Equal(t, []string{"universe_error"}, m.runOutcomes)
}

func TestRunIndexFailureMarksAllTickersFailed(t *testing.T) {
	feed := &fakeFeed{
		bars:     map[string][]models.PriceBar{"ACME": recentDecline(), "CALM": recentCalm()},
		indexErr: errors.New("rate limited"),
		caps:     map[string]float64{"ACME": 500, "CALM": 500},
	}
	a := newAnalyzer(t, feed, &fakeUniverse{}, &fakeMetrics{})

	params := models.RunParameters{Tickers: []string{"ACME", "CALM"}, LookbackMonths: 1, DeclineThresholdPct: 20}
	result, err := a.Run(context.Background(), params, nil)
	require.NoError(t, err)

	// the run degrades instead of aborting: well-formed result, all failed
	require.Equal(t, 2, result.UniverseSize)
	require.Zero(t, result.EvaluatedTickerCount)
	require.Equal(t, 2, result.FailedTickerCount)
	for _, ft := range result.FailedTickers {
		require.Equal(t, "data_unavailable", ft.Reason)
	}
}

func TestRunAllTickersCapFiltered(t *testing.T) {
	feed := &fakeFeed{
		bars:  map[string][]models.PriceBar{"ACME": recentDecline()},
		index: recentDecline(),
		caps:  map[string]float64{"ACME": 10},
	}
	a := newAnalyzer(t, feed, &fakeUniverse{}, &fakeMetrics{})

	params := models.RunParameters{
		Tickers:             []string{"ACME"},
		LookbackMonths:      1,
		DeclineThresholdPct: 20,
		MinMarketCapMUSD:    1000,
	}
	result, err := a.Run(context.Background(), params, nil)
	require.NoError(t, err)

	require.Zero(t, result.EvaluatedTickerCount)
	require.Zero(t, result.DeclinedStockCount)
	require.Zero(t, result.StockBluffRatePct)
	require.Zero(t, result.FailedTickerCount)
	require.Nil(t, result.RecoveryDaysDistribution.P25)
	require.Nil(t, result.RecoveryDaysDistribution.Median)
	require.Nil(t, result.RecoveryDaysDistribution.P75)
}

func TestRunNormalizesRequestedTickers(t *testing.T) {
	feed := &fakeFeed{
		bars:  map[string][]models.PriceBar{"ACME": recentDecline()},
		index: recentDecline(),
		caps:  map[string]float64{"ACME": 500},
	}
	a := newAnalyzer(t, feed, &fakeUniverse{}, &fakeMetrics{})

	params := models.RunParameters{
		Tickers:             []string{" acme ", "ACME", "acme"},
		LookbackMonths:      1,
		DeclineThresholdPct: 20,
	}
	result, err := a.Run(context.Background(), params, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"ACME"}, result.Params.Tickers)
	require.Equal(t, 1, result.UniverseSize)
	require.False(t, result.Params.UsedDefaultUniverse)
}

func TestRunEmitsProgress(t *testing.T) {
	feed := &fakeFeed{
		bars:  map[string][]models.PriceBar{"ACME": recentDecline(), "CALM": recentCalm()},
		index: recentDecline(),
		caps:  map[string]float64{"ACME": 500, "CALM": 500},
	}
	a := newAnalyzer(t, feed, &fakeUniverse{}, &fakeMetrics{})

	var (
		mu     sync.Mutex
		events []models.ProgressEvent
	)
	params := models.RunParameters{Tickers: []string{"ACME", "CALM"}, LookbackMonths: 1, DeclineThresholdPct: 20}
	_, err := a.Run(context.Background(), params, func(ev models.ProgressEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	require.NoError(t, err)

	require.Len(t, events, 3) // one per ticker plus the completion event
	last := events[len(events)-1]
	require.True(t, last.Completed)
	require.Equal(t, 2, last.Done)
	require.Equal(t, 2, last.Total)
}

func TestRunIsDeterministic(t *testing.T) {
	feed := &fakeFeed{
		bars: map[string][]models.PriceBar{
			"ACME": recentDecline(),
			"BETA": recentDecline(),
			"CALM": recentCalm(),
		},
		index: recentDecline(),
		caps:  map[string]float64{"ACME": 500, "BETA": 500, "CALM": 500},
	}
	a := newAnalyzer(t, feed, &fakeUniverse{}, &fakeMetrics{})

	params := models.RunParameters{
		Tickers:             []string{"CALM", "BETA", "ACME"},
		LookbackMonths:      1,
		DeclineThresholdPct: 20,
	}

	first, err := a.Run(context.Background(), params, nil)
	require.NoError(t, err)
	second, err := a.Run(context.Background(), params, nil)
	require.NoError(t, err)

	first.GeneratedAt = second.GeneratedAt
	require.Equal(t, first, second)

	// identical declines tie-break by ticker
	require.Equal(t, "ACME", first.DeclinedStocks[0].Ticker)
	require.Equal(t, "BETA", first.DeclinedStocks[1].Ticker)
}
