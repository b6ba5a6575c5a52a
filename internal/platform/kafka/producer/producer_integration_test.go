//go:build integration

package producer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"trustid/internal/platform/kafka"
	"trustid/internal/platform/kafka/producer"
	"trustid/pkg/testutil/containers"
)

type ProducerIntegrationSuite struct {
	suite.Suite
	kafka    *containers.KafkaContainer
	producer *producer.Producer
}

func TestProducerIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProducerIntegrationSuite))
}

func (s *ProducerIntegrationSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())

	cfg := producer.DefaultConfig(s.kafka.Brokers)
	cfg.DeliveryTimeout = 10 * time.Second
	prod, err := producer.New(cfg, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *ProducerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		_ = s.producer.Close()
	}
}

func (s *ProducerIntegrationSuite) TestEnsureTopicIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(kafka.EnsureTopic(ctx, s.producer.Client(), "test-ensure-topic", 1, 1))
	s.Require().NoError(kafka.EnsureTopic(ctx, s.producer.Client(), "test-ensure-topic", 1, 1))
}

func (s *ProducerIntegrationSuite) TestProduceDeliversWithHeaders() {
	ctx := context.Background()
	topic := "test-consent-events"
	s.Require().NoError(kafka.EnsureTopic(ctx, s.producer.Client(), topic, 1, 1))

	err := s.producer.Produce(ctx, &producer.Message{
		Topic:   topic,
		Key:     []byte("consent-1"),
		Value:   []byte(`{"status":"active"}`),
		Headers: map[string]string{"event_type": "consent_granted"},
	})
	s.Require().NoError(err)

	record := s.kafka.Consumer(s.T(), topic).WaitFor(10*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == "consent-1"
	})
	s.Require().NotNil(record)
	s.JSONEq(`{"status":"active"}`, string(record.Value))
	s.Equal("consent_granted", containers.Header(record, "event_type"))
}

func (s *ProducerIntegrationSuite) TestProduceBatchKeepsKeyOrder() {
	ctx := context.Background()
	topic := "test-consent-batch"
	s.Require().NoError(kafka.EnsureTopic(ctx, s.producer.Client(), topic, 3, 1))

	msgs := []*producer.Message{
		{Topic: topic, Key: []byte("consent-2"), Value: []byte("requested")},
		{Topic: topic, Key: []byte("consent-3"), Value: []byte("requested")},
		{Topic: topic, Key: []byte("consent-2"), Value: []byte("approved")},
	}
	for _, err := range s.producer.ProduceBatch(ctx, msgs) {
		s.Require().NoError(err)
	}

	var seen []string
	s.kafka.Consumer(s.T(), topic).WaitFor(10*time.Second, func(r *kgo.Record) bool {
		if string(r.Key) == "consent-2" {
			seen = append(seen, string(r.Value))
		}
		return len(seen) == 2
	})
	s.Equal([]string{"requested", "approved"}, seen)
}

func (s *ProducerIntegrationSuite) TestHealth() {
	s.NoError(s.producer.Health(context.Background()))
}

func (s *ProducerIntegrationSuite) TestProduceAfterClose() {
	prod, err := producer.New(producer.DefaultConfig(s.kafka.Brokers), nil)
	s.Require().NoError(err)
	s.Require().NoError(prod.Close())

	err = prod.Produce(context.Background(), &producer.Message{Topic: "x"})
	s.ErrorIs(err, producer.ErrClosed)
}
