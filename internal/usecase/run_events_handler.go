package usecase

import (
	"context"
	"encoding/json"
	"time"

	"BluffScan/internal/domain/models"
	domrepo "BluffScan/internal/domain/repository"
	pkgkafka "BluffScan/pkg/kafka"
)

// RunEventsHandler consumes completed-run events from Kafka and writes them
// to the run store. Active only when the kafka backend is configured.
type RunEventsHandler struct {
	topic   string
	store   domrepo.RunStore
	metrics domrepo.Metrics
}

func NewRunEventsHandler(topic string, store domrepo.RunStore, metrics domrepo.Metrics) *RunEventsHandler {
	return &RunEventsHandler{topic: topic, store: store, metrics: metrics}
}

func (h *RunEventsHandler) Topic() string { return h.topic }

func (h *RunEventsHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.RunEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	start := time.Now()
	err := h.store.SaveRun(ctx, ev.SessionID, &ev.Run)
	h.metrics.RecordFeedLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}

	// E2E latency from run completion to durable storage
	h.metrics.RecordFeedLatency("run_persist_e2e_seconds", time.Since(ev.Run.GeneratedAt).Seconds())
	return nil
}

var _ pkgkafka.MessageHandler = (*RunEventsHandler)(nil)
