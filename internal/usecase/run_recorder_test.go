package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"BluffScan/internal/domain/models"
	domrepo "BluffScan/internal/domain/repository"
)

type fakeStore struct {
	saved   map[string]*models.RunResult // run_id -> run
	saveErr error
	closed  bool
}

func newFakeStore() *fakeStore { return &fakeStore{saved: map[string]*models.RunResult{}} }

func (s *fakeStore) SaveRun(ctx context.Context, sessionID string, run *models.RunResult) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved[run.RunID] = run
	return nil
}

func (s *fakeStore) ListRuns(ctx context.Context, sessionID string, limit int) ([]models.RunSummary, error) {
	out := make([]models.RunSummary, 0, len(s.saved))
	for id := range s.saved {
		out = append(out, models.RunSummary{RunID: id})
	}
	return out, nil
}

func (s *fakeStore) GetRun(ctx context.Context, sessionID, runID string) (*models.RunResult, error) {
	run, ok := s.saved[runID]
	if !ok {
		return nil, domrepo.ErrRunNotFound
	}
	return run, nil
}

func (s *fakeStore) Health(context.Context) error { return nil }
func (s *fakeStore) Close() error                 { s.closed = true; return nil }

type fakePublisher struct {
	published []models.RunEvent
	closed    bool
}

func (p *fakePublisher) PublishRun(ctx context.Context, sessionID string, run *models.RunResult) error {
	p.published = append(p.published, models.RunEvent{SessionID: sessionID, Run: *run})
	return nil
}

func (p *fakePublisher) Close() error { p.closed = true; return nil }

func TestRecordClickHouseBackend(t *testing.T) {
	store := newFakeStore()
	r := NewRunRecorder(nil, store, &fakeMetrics{}, "clickhouse")

	run := &models.RunResult{RunID: "r1", GeneratedAt: time.Now().UTC()}
	require.NoError(t, r.Record(context.Background(), "s1", run))
	require.Contains(t, store.saved, "r1")
}

func TestRecordKafkaBackend(t *testing.T) {
	pub := &fakePublisher{}
	store := newFakeStore()
	r := NewRunRecorder(pub, store, &fakeMetrics{}, "kafka")

	run := &models.RunResult{RunID: "r1"}
	require.NoError(t, r.Record(context.Background(), "s1", run))
	require.Len(t, pub.published, 1)
	require.Equal(t, "s1", pub.published[0].SessionID)
	require.Empty(t, store.saved) // kafka backend never writes directly
}

func TestRecordUnknownBackend(t *testing.T) {
	r := NewRunRecorder(nil, newFakeStore(), &fakeMetrics{}, "postgres")
	err := r.Record(context.Background(), "s1", &models.RunResult{RunID: "r1"})
	require.Error(t, err)
}

func TestRecordStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("connection refused")
	r := NewRunRecorder(nil, store, &fakeMetrics{}, "clickhouse")

	err := r.Record(context.Background(), "s1", &models.RunResult{RunID: "r1"})
	require.Error(t, err)
}

func TestRecorderHistoryAndGet(t *testing.T) {
	store := newFakeStore()
	r := NewRunRecorder(nil, store, &fakeMetrics{}, "clickhouse")

	run := &models.RunResult{RunID: "r1"}
	require.NoError(t, r.Record(context.Background(), "s1", run))

	summaries, err := r.History(context.Background(), "s1", 10)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	got, err := r.Get(context.Background(), "s1", "r1")
	require.NoError(t, err)
	require.Equal(t, "r1", got.RunID)

	_, err = r.Get(context.Background(), "s1", "nope")
	require.ErrorIs(t, err, domrepo.ErrRunNotFound)
}

func TestRecorderClose(t *testing.T) {
	pub := &fakePublisher{}
	store := newFakeStore()
	r := NewRunRecorder(pub, store, &fakeMetrics{}, "kafka")

	r.Close()
	require.True(t, pub.closed)
	require.True(t, store.closed)
}
