package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"BluffScan/internal/domain/models"
)

type stubRecorder struct {
	mu    sync.Mutex
	runs  []*models.RunResult
	fail  bool
	calls int
}

func (r *stubRecorder) Record(ctx context.Context, sessionID string, run *models.RunResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.fail {
		return errors.New("backend unavailable")
	}
	r.runs = append(r.runs, run)
	return nil
}

func (r *stubRecorder) setFail(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fail
}

func (r *stubRecorder) recordedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

type stubMetrics struct {
	mu     sync.Mutex
	errors []string
}

func (m *stubMetrics) RecordRunCompleted(string)   {}
func (m *stubMetrics) RecordTickerFailure(string)  {}
func (m *stubMetrics) RecordFeedLatency(string, float64) {}
func (m *stubMetrics) RecordBluffRate(string, float64)   {}

func (m *stubMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, kind)
}

func (m *stubMetrics) errorKinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.errors...)
}

func validTestRun() *models.RunResult {
	return &models.RunResult{RunID: "r1", GeneratedAt: time.Now().UTC()}
}

func TestPipelineForwardsValidRun(t *testing.T) {
	rec := &stubRecorder{}
	p := NewRecordPipeline(rec, &stubMetrics{})

	require.NoError(t, p.Record(context.Background(), "s1", validTestRun()))
	require.Equal(t, 1, rec.recordedCount())
}

func TestPipelineRejectsInvalidRuns(t *testing.T) {
	rec := &stubRecorder{}
	m := &stubMetrics{}
	p := NewRecordPipeline(rec, m)
	ctx := context.Background()

	require.Error(t, p.Record(ctx, "s1", nil))
	require.Error(t, p.Record(ctx, "", validTestRun()))
	require.Error(t, p.Record(ctx, "s1", &models.RunResult{GeneratedAt: time.Now()}))
	require.Error(t, p.Record(ctx, "s1", &models.RunResult{RunID: "r1"}))

	require.Zero(t, rec.recordedCount())
	for _, kind := range m.errorKinds() {
		require.Equal(t, "pipeline_validate", kind)
	}
}

func TestPipelineBuffersOnBackendFailure(t *testing.T) {
	rec := &stubRecorder{fail: true}
	m := &stubMetrics{}
	p := NewRecordPipeline(rec, m, WithBufferSize(4))

	err := p.Record(context.Background(), "s1", validTestRun())
	require.Error(t, err)
	require.Contains(t, m.errorKinds(), "pipeline_record")

	// backend recovers; the background flusher drains the buffer
	rec.setFail(false)
	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool {
		return rec.recordedCount() == 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestPipelineStartIsIdempotent(t *testing.T) {
	p := NewRecordPipeline(&stubRecorder{}, &stubMetrics{})
	ctx := context.Background()
	p.Start(ctx)
	p.Start(ctx)
	p.Stop()
	p.Stop()
}
