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

type fakeSink struct {
	mu       sync.Mutex
	recorded []*models.RunResult
	sessions []string
	err      error
}

func (s *fakeSink) Record(ctx context.Context, sessionID string, run *models.RunResult) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded = append(s.recorded, run)
	s.sessions = append(s.sessions, sessionID)
	return nil
}

type fakeProgress struct {
	mu     sync.Mutex
	events []models.ProgressEvent
}

func (p *fakeProgress) Publish(ev models.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func TestAnalyzeJobRecordsResult(t *testing.T) {
	feed := &fakeFeed{
		bars:  map[string][]models.PriceBar{"ACME": recentDecline()},
		index: recentDecline(),
		caps:  map[string]float64{"ACME": 500},
	}
	a := newAnalyzer(t, feed, &fakeUniverse{}, &fakeMetrics{})
	sink := &fakeSink{}
	progress := &fakeProgress{}
	job := NewAnalyzeJob(a, sink, progress, testLogger(t), time.Minute)

	require.Equal(t, AnalyzeJobType, job.Type())

	payload := map[string]interface{}{
		"run_id":     "r1",
		"session_id": "s1",
		"params": map[string]interface{}{
			"tickers":               []interface{}{"ACME"},
			"lookback_months":       1,
			"decline_threshold_pct": 20,
		},
	}
	require.NoError(t, job.Handle(context.Background(), payload))

	require.Len(t, sink.recorded, 1)
	require.Equal(t, "r1", sink.recorded[0].RunID)
	require.Equal(t, "s1", sink.sessions[0])

	// every progress event carries the queued run id
	require.NotEmpty(t, progress.events)
	for _, ev := range progress.events {
		require.Equal(t, "r1", ev.RunID)
	}
	require.True(t, progress.events[len(progress.events)-1].Completed)
}

func TestAnalyzeJobPropagatesRunFailure(t *testing.T) {
	a := newAnalyzer(t, &fakeFeed{}, &fakeUniverse{err: errors.New("no source")}, &fakeMetrics{})
	job := NewAnalyzeJob(a, &fakeSink{}, &fakeProgress{}, testLogger(t), time.Minute)

	payload := AnalyzeJobPayload{
		RunID:     "r1",
		SessionID: "s1",
		Params:    models.RunParameters{LookbackMonths: 1, DeclineThresholdPct: 20},
	}
	require.Error(t, job.Handle(context.Background(), payload))
}

func TestAnalyzeJobPropagatesRecordFailure(t *testing.T) {
	feed := &fakeFeed{
		bars:  map[string][]models.PriceBar{"ACME": recentDecline()},
		index: recentDecline(),
		caps:  map[string]float64{"ACME": 500},
	}
	a := newAnalyzer(t, feed, &fakeUniverse{}, &fakeMetrics{})
	sink := &fakeSink{err: errors.New("backend down")}
	job := NewAnalyzeJob(a, sink, &fakeProgress{}, testLogger(t), time.Minute)

	payload := AnalyzeJobPayload{
		RunID:     "r1",
		SessionID: "s1",
		Params:    models.RunParameters{Tickers: []string{"ACME"}, LookbackMonths: 1, DeclineThresholdPct: 20},
	}
	require.Error(t, job.Handle(context.Background(), payload))
}
