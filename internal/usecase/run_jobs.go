package usecase

import (
	"context"
	"fmt"
	"time"

	"BluffScan/internal/domain/models"
	applogger "BluffScan/pkg/logger"
	"BluffScan/pkg/queue"
)

// AnalyzeJobType is the queue message type for asynchronous analysis runs.
const AnalyzeJobType = "analysis.run"

// AnalyzeJobPayload is the queued request for one asynchronous run. RunID is
// assigned up front so clients can subscribe to progress before the run starts.
type AnalyzeJobPayload struct {
	RunID     string               `json:"run_id"`
	SessionID string               `json:"session_id"`
	Params    models.RunParameters `json:"params"`
}

// ProgressSink receives progress events for streaming to subscribers.
// Implementations must be safe for concurrent use.
type ProgressSink interface {
	Publish(ev models.ProgressEvent)
}

// RunSink accepts completed runs for persistence. Satisfied by RunRecorder
// and by the buffering record pipeline wrapped around it.
type RunSink interface {
	Record(ctx context.Context, sessionID string, run *models.RunResult) error
}

// AnalyzeJob executes queued analysis runs: it runs the analyzer, streams
// progress, and records the finished run.
type AnalyzeJob struct {
	analyzer *RunAnalyzer
	recorder RunSink
	progress ProgressSink
	logger   *applogger.Logger
	timeout  time.Duration
}

func NewAnalyzeJob(analyzer *RunAnalyzer, recorder RunSink, progress ProgressSink, logger *applogger.Logger, timeout time.Duration) *AnalyzeJob {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &AnalyzeJob{
		analyzer: analyzer,
		recorder: recorder,
		progress: progress,
		logger:   logger,
		timeout:  timeout,
	}
}

func (j *AnalyzeJob) Name() string { return "analyze-run" }
func (j *AnalyzeJob) Type() string { return AnalyzeJobType }

func (j *AnalyzeJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[AnalyzeJobPayload](payload)
	if err != nil {
		return fmt.Errorf("parse analyze payload: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	j.logger.Info("async analysis started",
		applogger.String("run_id", p.RunID),
		applogger.Int("tickers", len(p.Params.Tickers)))

	result, err := j.analyzer.Run(runCtx, p.Params, func(ev models.ProgressEvent) {
		ev.RunID = p.RunID
		j.progress.Publish(ev)
	})
	if err != nil {
		j.logger.Error("async analysis failed",
			applogger.String("run_id", p.RunID), applogger.Error(err))
		return err
	}
	result.RunID = p.RunID

	if err := j.recorder.Record(runCtx, p.SessionID, result); err != nil {
		return err
	}

	j.logger.Info("async analysis recorded",
		applogger.String("run_id", p.RunID),
		applogger.Int("declined", result.DeclinedStockCount))
	return nil
}

var _ queue.Job = (*AnalyzeJob)(nil)
