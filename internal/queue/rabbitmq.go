// Package queue carries tasks over RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"feed_ingestor/internal/task"
)

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
	Prefetch   int
}

// RabbitMQ is a task.Broker. Delayed tasks wait in a per-delay queue whose
// messages expire into the task exchange.
type RabbitMQ struct {
	conn      *amqp.Connection
	publishCh *amqp.Channel
	cfg       Config
	logger    *slog.Logger

	mu          sync.Mutex
	retryQueues map[time.Duration]string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("connected to task broker",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:        conn,
		publishCh:   ch,
		cfg:         cfg,
		logger:      logger,
		retryQueues: make(map[time.Duration]string),
	}, nil
}

func declareTopology(ch *amqp.Channel, cfg Config) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// retryQueue declares, once per delay, the queue holding tasks for delay.
// Caller must hold r.mu.
func (r *RabbitMQ) retryQueue(delay time.Duration) (string, error) {
	if name, ok := r.retryQueues[delay]; ok {
		return name, nil
	}

	name := fmt.Sprintf("%s.retry.%d", r.cfg.QueueName, delay.Milliseconds())
	_, err := r.publishCh.QueueDeclare(name, true, false, false, false, amqp.Table{
		"x-message-ttl":             delay.Milliseconds(),
		"x-dead-letter-exchange":    r.cfg.Exchange,
		"x-dead-letter-routing-key": r.cfg.RoutingKey,
	})
	if err != nil {
		return "", fmt.Errorf("declare retry queue %s: %w", name, err)
	}

	r.retryQueues[delay] = name
	return name, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, t task.Task, delay time.Duration) error {
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	exchange, routingKey := r.cfg.Exchange, r.cfg.RoutingKey
	if delay > 0 {
		name, err := r.retryQueue(delay)
		if err != nil {
			return err
		}
		exchange, routingKey = "", name
	}

	err = r.publishCh.PublishWithContext(
		ctx,
		exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    t.ID,
			Type:         t.Name,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish task: %w", err)
	}

	r.logger.Debug("published task",
		"task", t.Name,
		"task_id", t.ID,
		"retries", t.Retries,
		"delay", delay,
	)

	return nil
}

// Consume opens a dedicated channel with prefetch and manual acknowledgement.
// The returned channel closes when ctx is done or the connection drops.
func (r *RabbitMQ) Consume(ctx context.Context) (<-chan task.Delivery, error) {
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open consumer channel: %w", err)
	}

	prefetch := r.cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	msgs, err := ch.Consume(r.cfg.QueueName, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("consume queue: %w", err)
	}

	out := make(chan task.Delivery)
	go func() {
		defer close(out)
		defer ch.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var t task.Task
				if err := json.Unmarshal(msg.Body, &t); err != nil {
					r.logger.Error("dropping undecodable task",
						"message_id", msg.MessageId,
						"error", err,
					)
					_ = msg.Reject(false)
					continue
				}

				select {
				case out <- &delivery{task: t, msg: msg}:
				case <-ctx.Done():
					_ = msg.Nack(false, true)
					return
				}
			}
		}
	}()

	return out, nil
}

func (r *RabbitMQ) Close() error {
	if r.publishCh != nil {
		r.publishCh.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

type delivery struct {
	task task.Task
	msg  amqp.Delivery
}

func (d *delivery) Task() task.Task { return d.task }

func (d *delivery) Ack() error { return d.msg.Ack(false) }

func (d *delivery) Nack(requeue bool) error { return d.msg.Nack(false, requeue) }
