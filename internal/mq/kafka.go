package mq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
)

// Publisher sends an already-encoded event to the bus.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
	Close() error
}

type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher creates a synchronous producer that waits for all in-sync
// replicas.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	slog.Info("kafka producer ready", "brokers", brokers, "topic", topic)
	return &KafkaPublisher{producer: producer, topic: topic}, nil
}

func newKafkaPublisherWith(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(_ context.Context, key string, value []byte) error {
	_, _, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	})
	return err
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
