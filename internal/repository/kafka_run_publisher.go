package repository

import (
	"context"
	"fmt"

	"BluffScan/internal/domain/models"
	domrepo "BluffScan/internal/domain/repository"
	pkgkafka "BluffScan/pkg/kafka"
)

// KafkaRunPublisher implements RunPublisher for Kafka. Runs are keyed by
// session so one session's history stays in partition order.
type KafkaRunPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaRunPublisher(producer *pkgkafka.Producer, topic string) domrepo.RunPublisher {
	return &KafkaRunPublisher{producer: producer, topic: topic}
}

func (p *KafkaRunPublisher) PublishRun(ctx context.Context, sessionID string, run *models.RunResult) error {
	if run == nil {
		return fmt.Errorf("run is nil")
	}
	return p.producer.Publish(ctx, p.topic, []byte(sessionID), models.RunEvent{
		SessionID: sessionID,
		Run:       *run,
	})
}

func (p *KafkaRunPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
