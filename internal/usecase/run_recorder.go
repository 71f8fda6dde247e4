package usecase

import (
	"context"
	"fmt"
	"time"

	"BluffScan/internal/domain/models"
	domrepo "BluffScan/internal/domain/repository"
)

// RunRecorder routes completed runs to the configured persistence backend:
// direct ClickHouse writes, or Kafka for the consumer to persist.
type RunRecorder struct {
	pub     domrepo.RunPublisher
	store   domrepo.RunStore
	metrics domrepo.Metrics
	backend string
}

func NewRunRecorder(pub domrepo.RunPublisher, store domrepo.RunStore, metrics domrepo.Metrics, backend string) *RunRecorder {
	return &RunRecorder{pub: pub, store: store, metrics: metrics, backend: backend}
}

// Record persists one completed run under its session.
func (r *RunRecorder) Record(ctx context.Context, sessionID string, run *models.RunResult) error {
	if run == nil {
		return fmt.Errorf("run is nil")
	}

	start := time.Now()
	var err error

	switch r.backend {
	case "kafka":
		err = r.pub.PublishRun(ctx, sessionID, run)
	case "clickhouse":
		err = r.store.SaveRun(ctx, sessionID, run)
	default:
		err = fmt.Errorf("unknown backend: %s", r.backend)
	}

	if err != nil {
		r.metrics.RecordError("record_run")
		return fmt.Errorf("record run %s: %w", run.RunID, err)
	}

	r.metrics.RecordFeedLatency("record_run", time.Since(start).Seconds())
	return nil
}

// History reads run listings and single runs for a session. Always served
// from ClickHouse regardless of the write backend.
func (r *RunRecorder) History(ctx context.Context, sessionID string, limit int) ([]models.RunSummary, error) {
	return r.store.ListRuns(ctx, sessionID, limit)
}

func (r *RunRecorder) Get(ctx context.Context, sessionID, runID string) (*models.RunResult, error) {
	return r.store.GetRun(ctx, sessionID, runID)
}

// Close closes underlying resources if available.
func (r *RunRecorder) Close() {
	if r.pub != nil {
		_ = r.pub.Close()
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}
