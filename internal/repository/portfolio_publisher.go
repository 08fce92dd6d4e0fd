package repository

import (
	"context"

	"KellyMux/internal/domain/models"
	"KellyMux/internal/domain/repository"
	pkgkafka "KellyMux/pkg/kafka"
)

// KafkaPublisher implements Publisher over a Kafka topic. Messages are keyed
// by owner id so downstream consumers see per-owner ordering.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates a Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, portfolio models.TargetPortfolio) error {
	return p.producer.Publish(ctx, p.topic, []byte(portfolio.OwnerID), portfolio)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
