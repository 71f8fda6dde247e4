package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"BluffScan/internal/domain/models"
	domrepo "BluffScan/internal/domain/repository"
	"BluffScan/internal/services/engine"
	applogger "BluffScan/pkg/logger"
	"BluffScan/pkg/util"
)

// ProgressFunc receives per-ticker progress while a run executes. May be nil.
type ProgressFunc func(models.ProgressEvent)

type RunAnalyzerConfig struct {
	Workers          int
	BetaLookbackDays int
}

// RunAnalyzer orchestrates one full analysis run: universe resolution, the
// shared index fetch, the bounded per-ticker fan-out, and the deterministic
// reduction into a RunResult. Results are position-indexed so the reduction
// order never depends on goroutine scheduling.
type RunAnalyzer struct {
	feed      domrepo.MarketData
	universe  domrepo.UniverseResolver
	evaluator *TickerEvaluator
	metrics   domrepo.Metrics
	logger    *applogger.Logger
	cfg       RunAnalyzerConfig
}

func NewRunAnalyzer(
	feed domrepo.MarketData,
	universe domrepo.UniverseResolver,
	evaluator *TickerEvaluator,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
	cfg RunAnalyzerConfig,
) *RunAnalyzer {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.BetaLookbackDays <= 0 {
		cfg.BetaLookbackDays = 730
	}
	return &RunAnalyzer{
		feed:      feed,
		universe:  universe,
		evaluator: evaluator,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run executes one analysis. The returned result has RunID empty; the caller
// assigns identity. Per-ticker failures never fail the run; only universe
// resolution or context cancellation do.
func (a *RunAnalyzer) Run(ctx context.Context, params models.RunParameters, progress ProgressFunc) (*models.RunResult, error) {
	start := time.Now()

	tickers, usedDefault, err := a.resolveTickers(ctx, params.Tickers)
	if err != nil {
		a.metrics.RecordRunCompleted("universe_error")
		return nil, fmt.Errorf("resolve universe: %w", err)
	}
	params.Tickers = tickers
	params.UsedDefaultUniverse = usedDefault

	window := a.window(params.LookbackMonths)

	outcomes := make([]TickerOutcome, len(tickers))

	indexBars, indexErr := a.feed.GetIndexBars(ctx, window.BetaFrom, window.To)
	if indexErr != nil {
		// without the benchmark every beta is undefined; mark the whole
		// universe failed rather than abort, so the run stays well-formed
		a.logger.Error("index bars fetch failed", applogger.Error(indexErr))
		for i, t := range tickers {
			outcomes[i] = TickerOutcome{
				Ticker: t,
				Err:    fmt.Errorf("%w: index series: %v", engine.ErrDataUnavailable, indexErr),
			}
		}
	} else {
		a.fanOut(ctx, tickers, params, window, indexBars, outcomes, progress)
		if err := ctx.Err(); err != nil {
			a.metrics.RecordRunCompleted("cancelled")
			return nil, err
		}
	}

	result := a.reduce(params, outcomes)

	a.metrics.RecordRunCompleted("ok")
	a.metrics.RecordBluffRate("stock", result.StockBluffRatePct)
	a.metrics.RecordBluffRate("event", result.EventBluffRatePct)
	a.logger.Info("analysis run complete",
		applogger.Int("universe_size", result.UniverseSize),
		applogger.Int("evaluated", result.EvaluatedTickerCount),
		applogger.Int("declined", result.DeclinedStockCount),
		applogger.Int("failed", result.FailedTickerCount),
		applogger.Duration("elapsed", time.Since(start)))

	if progress != nil {
		progress(models.ProgressEvent{Done: len(tickers), Total: len(tickers), Completed: true})
	}
	return result, nil
}

func (a *RunAnalyzer) resolveTickers(ctx context.Context, requested []string) ([]string, bool, error) {
	if normalized := util.NormalizeTickerSet(requested); len(normalized) > 0 {
		return normalized, false, nil
	}
	uni, err := a.universe.DefaultUniverse(ctx)
	if err != nil {
		return nil, false, err
	}
	return uni.Tickers, true, nil
}

func (a *RunAnalyzer) window(lookbackMonths int) AnalysisWindow {
	to := time.Now().UTC().Truncate(24 * time.Hour)
	return AnalysisWindow{
		From:     to.AddDate(0, -lookbackMonths, 0),
		To:       to,
		BetaFrom: to.AddDate(0, 0, -a.cfg.BetaLookbackDays),
	}
}

func (a *RunAnalyzer) fanOut(
	ctx context.Context,
	tickers []string,
	params models.RunParameters,
	window AnalysisWindow,
	indexBars []models.PriceBar,
	outcomes []TickerOutcome,
	progress ProgressFunc,
) {
	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)

	for i, ticker := range tickers {
		g.Go(func() error {
			out := a.evaluator.Evaluate(gctx, ticker, params, window, indexBars)
			outcomes[i] = out

			if progress != nil {
				progress(models.ProgressEvent{
					Ticker: ticker,
					Done:   int(done.Add(1)),
					Total:  len(tickers),
					Failed: out.Err != nil,
				})
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors; failures live in outcomes
}

// reduce folds the position-indexed outcomes into the final result. It is
// fully deterministic for a given outcome slice.
func (a *RunAnalyzer) reduce(params models.RunParameters, outcomes []TickerOutcome) *models.RunResult {
	result := &models.RunResult{
		GeneratedAt:  time.Now().UTC(),
		Params:       params,
		UniverseSize: len(outcomes),

		FailedTickers:   []models.FailedTicker{},
		DeclinedStocks:  []models.TickerResult{},
		RecoveredStocks: []models.TickerResult{},
	}

	var recoveryDays []float64
	for _, out := range outcomes {
		switch {
		case out.Err != nil:
			reason := engine.FailureReason(out.Err)
			a.metrics.RecordTickerFailure(reason)
			a.logger.Warn("ticker excluded from run",
				applogger.String("ticker", out.Ticker),
				applogger.String("reason", reason),
				applogger.Error(out.Err))
			result.FailedTickers = append(result.FailedTickers, models.FailedTicker{
				Ticker: out.Ticker,
				Reason: reason,
			})
		case out.Filtered:
			// below the market-cap floor: excluded entirely, not failed
		default:
			result.EvaluatedTickerCount++
			result.DeclinedEventCount += out.QualifyingEvents
			result.RecoveredEventCount += out.RecoveredEvents
			recoveryDays = append(recoveryDays, out.RecoveryDays...)
			if out.Result != nil {
				result.DeclinedStockCount++
				result.DeclinedStocks = append(result.DeclinedStocks, *out.Result)
				if out.Result.Recovered {
					result.RecoveredStockCount++
					result.RecoveredStocks = append(result.RecoveredStocks, *out.Result)
				}
			}
		}
	}

	sort.Slice(result.FailedTickers, func(i, j int) bool {
		return result.FailedTickers[i].Ticker < result.FailedTickers[j].Ticker
	})
	result.FailedTickerCount = len(result.FailedTickers)

	byDecline := func(rows []models.TickerResult) func(i, j int) bool {
		return func(i, j int) bool {
			if rows[i].DeclinePct != rows[j].DeclinePct {
				return rows[i].DeclinePct > rows[j].DeclinePct
			}
			return rows[i].Ticker < rows[j].Ticker
		}
	}
	sort.Slice(result.DeclinedStocks, byDecline(result.DeclinedStocks))
	sort.Slice(result.RecoveredStocks, byDecline(result.RecoveredStocks))

	result.StockBluffRatePct = engine.Round4(100 * engine.SafeRatio(
		float64(result.RecoveredStockCount), float64(result.DeclinedStockCount)))
	result.EventBluffRatePct = engine.Round4(100 * engine.SafeRatio(
		float64(result.RecoveredEventCount), float64(result.DeclinedEventCount)))
	result.RecoveryDaysDistribution = engine.RecoveryDistribution(recoveryDays)

	return result
}
