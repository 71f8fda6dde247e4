package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"BluffScan/internal/domain/models"
	"BluffScan/internal/services/engine"
)

func jan(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func flatBar(d int, price float64) models.PriceBar {
	return models.PriceBar{Date: jan(d), High: price, Low: price, Close: price}
}

// declineSeries has a beta warm-up stretch before day 5 and a 30% drawdown
// with a 2-calendar-day recovery inside the analysis window [day 5, day 9].
func declineSeries() []models.PriceBar {
	return []models.PriceBar{
		flatBar(1, 100), flatBar(2, 102), flatBar(3, 101), flatBar(4, 103),
		flatBar(5, 100), flatBar(6, 100), flatBar(7, 70), flatBar(9, 100),
	}
}

func testWindow() AnalysisWindow {
	return AnalysisWindow{BetaFrom: jan(1), From: jan(5), To: jan(9)}
}

func testParams() models.RunParameters {
	return models.RunParameters{LookbackMonths: 1, DeclineThresholdPct: 20, MinMarketCapMUSD: 100}
}

func TestEvaluateDeclineAndRecovery(t *testing.T) {
	series := declineSeries()
	feed := &fakeFeed{
		bars: map[string][]models.PriceBar{"ACME": series},
		caps: map[string]float64{"ACME": 512.3456},
	}
	ev := NewTickerEvaluator(feed, testLogger(t))

	// ticker == index, so beta is exactly 1 and the threshold stays at 20
	out := ev.Evaluate(context.Background(), "ACME", testParams(), testWindow(), series)

	require.NoError(t, out.Err)
	require.False(t, out.Filtered)
	require.NotNil(t, out.Result)
	require.Equal(t, 1, out.QualifyingEvents)
	require.Equal(t, 1, out.RecoveredEvents)
	require.Equal(t, []float64{2}, out.RecoveryDays)

	r := out.Result
	require.Equal(t, "ACME", r.Ticker)
	require.InDelta(t, 1.0, r.Beta, 1e-9)
	require.InDelta(t, 20.0, r.ThresholdPct, 1e-9)
	require.InDelta(t, 30.0, r.DeclinePct, 1e-9)
	require.Equal(t, jan(5), r.PeakDate)
	require.Equal(t, jan(7), r.TroughDate)
	require.True(t, r.Recovered)
	require.NotNil(t, r.MarketCapMUSD)
	require.Equal(t, 512.346, *r.MarketCapMUSD)
	require.NotNil(t, r.RecoveryDays)
	require.Equal(t, 2, *r.RecoveryDays)
}

func TestEvaluateMarketCapBelowFloor(t *testing.T) {
	series := declineSeries()
	feed := &fakeFeed{
		bars: map[string][]models.PriceBar{"TINY": series},
		caps: map[string]float64{"TINY": 50},
	}
	ev := NewTickerEvaluator(feed, testLogger(t))

	out := ev.Evaluate(context.Background(), "TINY", testParams(), testWindow(), series)
	require.NoError(t, out.Err)
	require.True(t, out.Filtered)
	require.Nil(t, out.Result)
}

func TestEvaluateUnknownCap(t *testing.T) {
	series := declineSeries()
	feed := &fakeFeed{bars: map[string][]models.PriceBar{"MYST": series}}
	ev := NewTickerEvaluator(feed, testLogger(t))

	// unknown cap with a floor requested excludes the ticker
	out := ev.Evaluate(context.Background(), "MYST", testParams(), testWindow(), series)
	require.True(t, out.Filtered)

	// unknown cap without a floor evaluates normally
	params := testParams()
	params.MinMarketCapMUSD = 0
	out = ev.Evaluate(context.Background(), "MYST", params, testWindow(), series)
	require.NoError(t, out.Err)
	require.False(t, out.Filtered)
	require.NotNil(t, out.Result)
	require.Nil(t, out.Result.MarketCapMUSD)
}

func TestEvaluateFeedFailure(t *testing.T) {
	feed := &fakeFeed{bars: map[string][]models.PriceBar{}}
	ev := NewTickerEvaluator(feed, testLogger(t))

	out := ev.Evaluate(context.Background(), "GONE", testParams(), testWindow(), declineSeries())
	require.Error(t, out.Err)
	require.Equal(t, "data_unavailable", engine.FailureReason(out.Err))
}

func TestEvaluateInsufficientWindow(t *testing.T) {
	// all bars predate the analysis window
	series := []models.PriceBar{flatBar(1, 100), flatBar(2, 101), flatBar(3, 102)}
	feed := &fakeFeed{
		bars: map[string][]models.PriceBar{"OLD": series},
		caps: map[string]float64{"OLD": 500},
	}
	ev := NewTickerEvaluator(feed, testLogger(t))

	out := ev.Evaluate(context.Background(), "OLD", testParams(), testWindow(), series)
	require.Error(t, out.Err)
	require.Equal(t, "insufficient_history", engine.FailureReason(out.Err))
}

func TestEvaluateBadBarsLeaveTooFewUsable(t *testing.T) {
	// three bars land in the analysis window, but two carry corrupt lows:
	// skipping them leaves a single usable bar, which cannot form an episode
	badBar := func(d int) models.PriceBar {
		return models.PriceBar{Date: jan(d), High: 100, Low: -1, Close: 100}
	}
	series := []models.PriceBar{
		flatBar(1, 100), flatBar(2, 102), flatBar(3, 101), flatBar(4, 103),
		flatBar(5, 100), badBar(6), badBar(7),
	}
	feed := &fakeFeed{
		bars: map[string][]models.PriceBar{"DIRT": series},
		caps: map[string]float64{"DIRT": 500},
	}
	ev := NewTickerEvaluator(feed, testLogger(t))

	out := ev.Evaluate(context.Background(), "DIRT", testParams(), testWindow(), series)
	require.Error(t, out.Err)
	require.Equal(t, "insufficient_history", engine.FailureReason(out.Err))
	require.Nil(t, out.Result)
}

func TestEvaluateDegenerateBeta(t *testing.T) {
	series := declineSeries()
	flatIndex := []models.PriceBar{
		flatBar(1, 100), flatBar(2, 100), flatBar(3, 100), flatBar(4, 100),
		flatBar(5, 100), flatBar(6, 100), flatBar(7, 100), flatBar(9, 100),
	}
	feed := &fakeFeed{
		bars: map[string][]models.PriceBar{"ACME": series},
		caps: map[string]float64{"ACME": 500},
	}
	ev := NewTickerEvaluator(feed, testLogger(t))

	out := ev.Evaluate(context.Background(), "ACME", testParams(), testWindow(), flatIndex)
	require.Error(t, out.Err)
	require.Equal(t, "degenerate_beta", engine.FailureReason(out.Err))
}

func TestEvaluateNoQualifyingEpisode(t *testing.T) {
	// 5% dip never reaches the 20% threshold
	series := []models.PriceBar{
		flatBar(1, 100), flatBar(2, 102), flatBar(3, 101), flatBar(4, 103),
		flatBar(5, 100), flatBar(6, 95), flatBar(7, 100),
	}
	feed := &fakeFeed{
		bars: map[string][]models.PriceBar{"CALM": series},
		caps: map[string]float64{"CALM": 500},
	}
	ev := NewTickerEvaluator(feed, testLogger(t))

	out := ev.Evaluate(context.Background(), "CALM", testParams(), testWindow(), series)
	require.NoError(t, out.Err)
	require.False(t, out.Filtered)
	require.Nil(t, out.Result)
	require.Zero(t, out.QualifyingEvents)
}
