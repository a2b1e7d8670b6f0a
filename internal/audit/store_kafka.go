package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Topic is the Kafka topic carrying settlement audit events.
const Topic = "paygate.audit.settlements"

// KafkaStore publishes audit events to Kafka keyed by payment reference, so
// all events of one flow land in one partition in order. Reads go through a
// downstream consumer, not this store; ListByReference is unsupported here.
type KafkaStore struct {
	client *kgo.Client
}

// NewKafkaStore connects to the given seed brokers and ensures the audit
// topic exists.
func NewKafkaStore(ctx context.Context, seeds []string) (*KafkaStore, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(seeds...),
		kgo.DefaultProduceTopic(Topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	if _, err := adm.CreateTopic(ctx, 1, 1, nil, Topic); err != nil {
		// Topic may already exist; only fail on connectivity problems.
		if err := client.Ping(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("kafka unreachable: %w", err)
		}
	}
	return &KafkaStore{client: client}, nil
}

func (s *KafkaStore) Append(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(event.Reference),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// ListByReference is not served from Kafka; query the consumer-side store.
func (s *KafkaStore) ListByReference(context.Context, string) ([]Event, error) {
	return nil, fmt.Errorf("audit reads are not served from kafka")
}

func (s *KafkaStore) Close() {
	s.client.Close()
}
