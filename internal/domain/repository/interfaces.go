package repository

import (
	"context"
	"errors"
	"time"

	"BluffScan/internal/domain/models"
)

// ErrRunNotFound is returned by RunStore lookups for unknown run IDs (or runs
// belonging to a different session).
var ErrRunNotFound = errors.New("run not found")

// MarketData is the price/metadata feed capability contract. Implementations
// may cache; the engine treats every call as a remote fetch that can fail.
type MarketData interface {
	// GetDailyBars returns the ticker's daily bars ordered by date, restricted
	// to [from, to].
	GetDailyBars(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error)

	// GetIndexBars returns the benchmark index series for the same window.
	GetIndexBars(ctx context.Context, from, to time.Time) ([]models.PriceBar, error)

	// GetMarketCap returns the ticker's market cap in millions of USD, or nil
	// when the feed does not know it.
	GetMarketCap(ctx context.Context, ticker string) (*float64, error)
}

// TickerDirectory provides symbol search and benchmark membership lookups.
type TickerDirectory interface {
	// SearchTickers returns up to limit symbol matches for a free-text query.
	SearchTickers(ctx context.Context, query string, limit int) ([]models.TickerMatch, error)

	// IndexConstituents returns the benchmark index's current member symbols.
	IndexConstituents(ctx context.Context) ([]string, error)
}

// UniverseResolver resolves the default ticker universe (its own fallback
// chain lives behind this interface).
type UniverseResolver interface {
	DefaultUniverse(ctx context.Context) (models.Universe, error)
}

// RunStore persists completed runs keyed by anonymous session.
type RunStore interface {
	SaveRun(ctx context.Context, sessionID string, run *models.RunResult) error
	ListRuns(ctx context.Context, sessionID string, limit int) ([]models.RunSummary, error)
	GetRun(ctx context.Context, sessionID, runID string) (*models.RunResult, error)
	Health(ctx context.Context) error
	Close() error
}

// RunPublisher emits completed run records to the event backend.
type RunPublisher interface {
	PublishRun(ctx context.Context, sessionID string, run *models.RunResult) error
	Close() error
}

// Metrics records operational metrics for runs and feed calls.
type Metrics interface {
	RecordRunCompleted(outcome string)
	RecordTickerFailure(reason string)
	RecordFeedLatency(op string, seconds float64)
	RecordBluffRate(scope string, pct float64)
	RecordError(kind string)
}
