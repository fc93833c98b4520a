//go:build integration

package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"feed_ingestor/internal/domain"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) TestPublisher_Connection() {
	pub, err := NewRabbitMQ(Config{URL: s.amqpURL, Exchange: "test-exchange"}, s.logger)
	s.NoError(err)
	s.NotNil(pub)

	s.NoError(pub.Close())
}

func (s *RabbitMQIntegrationSuite) TestPublisher_ChannelUpdated() {
	pub, err := NewRabbitMQ(Config{URL: s.amqpURL}, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	payload := domain.ChannelUpdatedEvent{ChannelID: 42, Data: "Gadget Hour has been updated"}
	s.Require().NoError(pub.Publish(s.ctx, "update_rssfeed", "update_rss", payload))

	msg := s.consumeMessage("update_rssfeed")
	s.Require().NotNil(msg)

	s.Equal("application/json", msg.ContentType)
	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)

	var event Event
	s.Require().NoError(json.Unmarshal(msg.Body, &event))
	s.Equal("update_rss", event.EventType)
	s.False(event.Timestamp.IsZero())

	var received domain.ChannelUpdatedEvent
	s.Require().NoError(json.Unmarshal(event.Data, &received))
	s.Equal(payload, received)
}

func (s *RabbitMQIntegrationSuite) TestPublisher_ThroughExchange() {
	pub, err := NewRabbitMQ(Config{URL: s.amqpURL, Exchange: "events"}, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	s.Require().NoError(pub.Publish(s.ctx, "events-queue", "update_rss", map[string]int{"channel_id": 7}))
	s.Require().NoError(pub.Publish(s.ctx, "events-queue", "update_rss", map[string]int{"channel_id": 8}))

	first := s.consumeMessage("events-queue")
	s.Require().NotNil(first)
	s.Contains(string(first.Body), `"channel_id":7`)
}

func (s *RabbitMQIntegrationSuite) consumeMessage(queue string) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(queue, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		return &msg
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for message")
		return nil
	}
}
