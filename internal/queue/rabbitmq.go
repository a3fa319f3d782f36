package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConfig describes the broker topology.
type RabbitMQConfig struct {
	URL        string
	Exchange   string
	QueueName  string
	RoutingKey string
	Prefetch   int
}

// RabbitMQ is a durable queue on a direct exchange. Messages are persistent
// and acknowledged after the handler returns.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     RabbitMQConfig
	log     *slog.Logger
}

// NewRabbitMQ connects and declares the exchange, queue and binding.
func NewRabbitMQ(cfg RabbitMQConfig, log *slog.Logger) (*RabbitMQ, error) {
	if cfg.Prefetch < 1 {
		cfg.Prefetch = 1
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declare(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log = log.With("component", "queue", "driver", "rabbitmq")
	log.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{conn: conn, channel: ch, cfg: cfg, log: log}, nil
}

func declare(ch *amqp.Channel, cfg RabbitMQConfig) error {
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

func (r *RabbitMQ) Enqueue(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	err = r.channel.PublishWithContext(ctx, r.cfg.Exchange, r.cfg.RoutingKey, false, false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Type:         string(job.Kind),
			MessageId:    job.ID,
			Body:         body,
			Timestamp:    job.EnqueuedAt,
		},
	)
	if err != nil {
		if r.conn.IsClosed() {
			return fmt.Errorf("publish job: %w", ErrClosed)
		}
		return fmt.Errorf("publish job: %w", err)
	}

	r.log.Debug("Job enqueued", "kind", job.Kind, "id", job.ID)
	return nil
}

// Consume opens a dedicated channel so each consumer gets its own prefetch window.
func (r *RabbitMQ) Consume(ctx context.Context, h Handler) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(r.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, r.cfg.QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			r.handle(ctx, d, h)
		}
	}
}

func (r *RabbitMQ) handle(ctx context.Context, d amqp.Delivery, h Handler) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		r.log.Error("Dropping undecodable message", "error", err, "message_id", d.MessageId)
		_ = d.Nack(false, false)
		return
	}

	if err := h(ctx, job); err != nil {
		if ctx.Err() != nil {
			r.log.Info("Job interrupted, returning it to the queue", "kind", job.Kind, "id", job.ID)
			if err := d.Nack(false, true); err != nil {
				r.log.Warn("Failed to requeue job", "error", err, "id", job.ID)
			}
			return
		}
		r.log.Error("Job failed", "error", err, "kind", job.Kind, "id", job.ID)
	}
	if err := d.Ack(false); err != nil {
		r.log.Warn("Failed to ack job", "error", err, "id", job.ID)
	}
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil && !r.conn.IsClosed() {
		return r.conn.Close()
	}
	return nil
}
