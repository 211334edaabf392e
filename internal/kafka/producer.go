package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/tripsignal/tripsignal/internal/metrics"
	"github.com/tripsignal/tripsignal/internal/models"
)

type Producer struct {
	topic    string
	producer sarama.SyncProducer
}

func NewSyncProducer(brokers []string, topic string) (*Producer, error) {
	cfg := sarama.NewConfig()

	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true

	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 500 * time.Millisecond

	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create sarama sync producer: %w", err)
	}

	return &Producer{
		topic:    topic,
		producer: prod,
	}, nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}

// SendDealEvent publishes one deal observation, keyed by dedupe key.
func (p *Producer) SendDealEvent(deal *models.Deal, created bool) error {
	if deal == nil {
		return fmt.Errorf("deal is nil")
	}
	if deal.DedupeKey == "" {
		return fmt.Errorf("dedupe_key is empty")
	}

	payload := NewDealEvent(deal, created)
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal deal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(deal.DedupeKey),
		Value:     sarama.ByteEncoder(b),
		Timestamp: time.Now(),
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		metrics.IncKafkaError("producer", "send")
		return fmt.Errorf("send kafka message: %w", err)
	}

	metrics.IncKafkaSent()
	return nil
}
