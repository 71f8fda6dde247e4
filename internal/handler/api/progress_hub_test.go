package api

import (
	"testing"

	"github.com/stretchr/testify/require"

	"BluffScan/internal/domain/models"
)

func TestProgressHubDeliversToSubscribers(t *testing.T) {
	hub := NewProgressHub()

	events, cancel := hub.Subscribe("run-1")
	defer cancel()

	hub.Publish(models.ProgressEvent{RunID: "run-1", Ticker: "AAPL", Done: 1, Total: 2})
	hub.Publish(models.ProgressEvent{RunID: "run-other", Ticker: "MSFT"}) // different run, dropped

	ev := <-events
	require.Equal(t, "AAPL", ev.Ticker)
	require.Equal(t, 1, ev.Done)

	select {
	case ev := <-events:
		t.Fatalf("unexpected event for other run: %+v", ev)
	default:
	}
}

func TestProgressHubPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	hub := NewProgressHub()
	hub.Publish(models.ProgressEvent{RunID: "nobody-listening"})
}

func TestProgressHubCancelUnsubscribes(t *testing.T) {
	hub := NewProgressHub()

	events, cancel := hub.Subscribe("run-1")
	cancel()

	// channel is closed after cancel
	_, ok := <-events
	require.False(t, ok)

	hub.Publish(models.ProgressEvent{RunID: "run-1"})
}
