package usecase

import (
	"context"
	"fmt"
	"time"

	"BluffScan/internal/domain/models"
	domrepo "BluffScan/internal/domain/repository"
	"BluffScan/internal/services/engine"
	applogger "BluffScan/pkg/logger"
)

// AnalysisWindow bounds one run's bar fetches. Bars in [BetaFrom, To] feed
// the beta estimate; bars in [From, To] feed episode detection.
type AnalysisWindow struct {
	From     time.Time
	To       time.Time
	BetaFrom time.Time
}

// TickerOutcome is the self-contained result one worker hands back to the
// aggregator. Exactly one of Err / Filtered / evaluation fields is meaningful.
type TickerOutcome struct {
	Ticker   string
	Err      error // ticker-level failure; removes the ticker from evaluation
	Filtered bool  // excluded entirely by the market-cap filter

	Result           *models.TickerResult // nil when no qualifying episodes
	QualifyingEvents int
	RecoveredEvents  int
	RecoveryDays     []float64 // recovery days of each recovered episode
}

// TickerEvaluator runs beta estimation and episode detection for one ticker
// and reduces its episodes to one reportable row. Pure given its feed inputs;
// safe for concurrent use.
type TickerEvaluator struct {
	feed   domrepo.MarketData
	logger *applogger.Logger
}

func NewTickerEvaluator(feed domrepo.MarketData, logger *applogger.Logger) *TickerEvaluator {
	return &TickerEvaluator{feed: feed, logger: logger}
}

// Evaluate analyzes one ticker against the shared index bars. It never
// panics or aborts the run: every failure mode maps to an Err outcome.
func (e *TickerEvaluator) Evaluate(ctx context.Context, ticker string, params models.RunParameters, window AnalysisWindow, indexBars []models.PriceBar) TickerOutcome {
	out := TickerOutcome{Ticker: ticker}

	bars, err := e.feed.GetDailyBars(ctx, ticker, window.BetaFrom, window.To)
	if err != nil {
		out.Err = fmt.Errorf("%w: %v", engine.ErrDataUnavailable, err)
		return out
	}

	analysisBars := barsFrom(bars, window.From)
	if len(analysisBars) < 2 {
		out.Err = fmt.Errorf("%w: %d bars in lookback window", engine.ErrInsufficientHistory, len(analysisBars))
		return out
	}

	marketCap, err := e.feed.GetMarketCap(ctx, ticker)
	if err != nil {
		// unknown cap is not fatal by itself; the filter below decides
		e.logger.Warn("market cap lookup failed",
			applogger.String("ticker", ticker), applogger.Error(err))
		marketCap = nil
	}
	if marketCap != nil && *marketCap < params.MinMarketCapMUSD {
		out.Filtered = true
		return out
	}
	if marketCap == nil && params.MinMarketCapMUSD > 0 {
		out.Filtered = true
		return out
	}

	beta, err := engine.Beta(bars, indexBars)
	if err != nil {
		out.Err = err
		return out
	}

	threshold := engine.EffectiveThreshold(params.DeclineThresholdPct, beta)
	episodes, skipped := engine.FindEpisodes(analysisBars, threshold)
	if skipped > 0 {
		e.logger.Warn("skipped bad price bars",
			applogger.String("ticker", ticker), applogger.Int("bars", skipped))
	}
	if len(analysisBars)-skipped < 2 {
		out.Err = fmt.Errorf("%w: only %d usable bars after skipping bad data",
			engine.ErrInsufficientHistory, len(analysisBars)-skipped)
		return out
	}
	if len(episodes) == 0 {
		return out // evaluated, no qualifying decline
	}

	out.QualifyingEvents = len(episodes)
	out.RecoveredEvents = engine.CountRecovered(episodes)
	for _, ep := range episodes {
		if ep.Recovered && ep.RecoveryDays != nil {
			out.RecoveryDays = append(out.RecoveryDays, float64(*ep.RecoveryDays))
		}
	}

	primary := engine.PrimaryEpisode(episodes)
	out.Result = buildResult(ticker, beta, threshold, marketCap, primary, out.QualifyingEvents, out.RecoveredEvents)
	return out
}

func barsFrom(bars []models.PriceBar, from time.Time) []models.PriceBar {
	for i, b := range bars {
		if !b.Date.Before(from) {
			return bars[i:]
		}
	}
	return nil
}

func buildResult(ticker string, beta, threshold float64, marketCap *float64, primary models.Episode, qualifying, recovered int) *models.TickerResult {
	r := &models.TickerResult{
		Ticker:           ticker,
		DeclinePct:       engine.Round4(primary.DeclinePct),
		ThresholdPct:     engine.Round4(threshold),
		Beta:             engine.Round4(beta),
		PeakDate:         primary.PeakDate,
		TroughDate:       primary.TroughDate,
		PeakPrice:        engine.Round4(primary.PeakPrice),
		TroughPrice:      engine.Round4(primary.TroughPrice),
		Recovered:        primary.Recovered,
		QualifyingEvents: qualifying,
		RecoveredEvents:  recovered,
	}
	if marketCap != nil {
		mc := engine.Round3(*marketCap)
		r.MarketCapMUSD = &mc
	}
	if primary.Recovered {
		r.RecoveryDate = primary.RecoveryDate
		if primary.RecoveryPrice != nil {
			rp := engine.Round4(*primary.RecoveryPrice)
			r.RecoveryPrice = &rp
		}
		r.RecoveryDays = primary.RecoveryDays
	}
	return r
}
