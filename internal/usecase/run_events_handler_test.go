package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"BluffScan/internal/domain/models"
)

func TestRunEventsHandlerPersistsRun(t *testing.T) {
	store := newFakeStore()
	h := NewRunEventsHandler("bluffscan.runs", store, &fakeMetrics{})

	require.Equal(t, "bluffscan.runs", h.Topic())

	ev := models.RunEvent{
		SessionID: "s1",
		Run:       models.RunResult{RunID: "r1", GeneratedAt: time.Now().UTC()},
	}
	b, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), b))
	require.Contains(t, store.saved, "r1")
}

func TestRunEventsHandlerRejectsBadPayload(t *testing.T) {
	h := NewRunEventsHandler("bluffscan.runs", newFakeStore(), &fakeMetrics{})
	require.Error(t, h.Handle(context.Background(), []byte("{not json")))
}
