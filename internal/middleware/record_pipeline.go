package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"BluffScan/internal/domain/models"
	domrepo "BluffScan/internal/domain/repository"
)

// Recorder is the minimal downstream interface the pipeline needs.
type Recorder interface {
	Record(ctx context.Context, sessionID string, run *models.RunResult) error
}

// RecordPipeline sits between the analysis layer and the persistence backend.
// It validates runs, and buffers them for background retry when the backend
// is unavailable, so a storage outage never loses a completed run or blocks
// the response to the caller.
type RecordPipeline struct {
	rec     Recorder
	metrics domrepo.Metrics
	bufSize int
	bufCh   chan *pendingRun
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

type pendingRun struct {
	sessionID string
	run       *models.RunResult
}

type PipelineOption func(*RecordPipeline)

// WithBufferSize sets the retry buffer size used when the backend is down.
func WithBufferSize(n int) PipelineOption {
	return func(p *RecordPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewRecordPipeline creates a new pipeline.
func NewRecordPipeline(rec Recorder, metrics domrepo.Metrics, opts ...PipelineOption) *RecordPipeline {
	p := &RecordPipeline{
		rec:     rec,
		metrics: metrics,
		bufSize: 256,
		bufCh:   make(chan *pendingRun, 256),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *pendingRun, p.bufSize)
	}
	return p
}

// Start launches background flushing of buffered runs.
func (p *RecordPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 250 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case pr := <-p.bufCh:
				if pr == nil {
					continue
				}
				if err := p.rec.Record(ctx, pr.sessionID, pr.run); err != nil {
					if backoff < 30*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- pr:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 250 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *RecordPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Record validates and forwards a run downstream, buffering on failure.
func (p *RecordPipeline) Record(ctx context.Context, sessionID string, run *models.RunResult) error {
	start := time.Now()
	if err := validateRun(sessionID, run); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}

	if err := p.rec.Record(ctx, sessionID, run); err != nil {
		p.metrics.RecordError("pipeline_record")
		// buffer non-blocking
		select {
		case p.bufCh <- &pendingRun{sessionID: sessionID, run: run}:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordFeedLatency("pipeline_record", time.Since(start).Seconds())
	return nil
}

func validateRun(sessionID string, run *models.RunResult) error {
	if run == nil {
		return fmt.Errorf("run nil")
	}
	if sessionID == "" {
		return fmt.Errorf("session id empty")
	}
	if run.RunID == "" {
		return fmt.Errorf("run id empty")
	}
	if run.GeneratedAt.IsZero() {
		return fmt.Errorf("generated_at unset")
	}
	return nil
}
