//go:build integration

package queue

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
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

func (s *RabbitMQIntegrationSuite) TestEnqueueConsume() {
	q, err := NewRabbitMQ(RabbitMQConfig{
		URL:        s.amqpURL,
		Exchange:   "papertimes-test",
		QueueName:  "papertimes-test-jobs",
		RoutingKey: "jobs",
		Prefetch:   1,
	}, s.logger)
	s.Require().NoError(err)
	defer q.Close()

	s.Require().NoError(q.Enqueue(s.ctx, Job{Kind: KindAnalyzeDocument, ID: "doc-1"}))
	s.Require().NoError(q.Enqueue(s.ctx, Job{Kind: KindGenerateNewspaper, ID: "np-1"}))

	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	got := make(chan Job, 2)
	go func() {
		_ = q.Consume(ctx, func(_ context.Context, job Job) error {
			got <- job
			return nil
		})
	}()

	first := <-got
	second := <-got
	s.Equal(Job{Kind: KindAnalyzeDocument, ID: "doc-1"}, Job{Kind: first.Kind, ID: first.ID})
	s.Equal(Job{Kind: KindGenerateNewspaper, ID: "np-1"}, Job{Kind: second.Kind, ID: second.ID})
	s.False(first.EnqueuedAt.IsZero())
}

func (s *RabbitMQIntegrationSuite) TestInterruptedJobIsRedelivered() {
	cfg := RabbitMQConfig{
		URL:        s.amqpURL,
		Exchange:   "papertimes-test",
		QueueName:  "papertimes-test-interrupted",
		RoutingKey: "interrupted",
		Prefetch:   1,
	}
	q, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer q.Close()

	s.Require().NoError(q.Enqueue(s.ctx, Job{Kind: KindAnalyzeDocument, ID: "doc-1"}))

	first, stopFirst := context.WithCancel(s.ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.Consume(first, func(ctx context.Context, _ Job) error {
			stopFirst()
			return ctx.Err()
		})
	}()
	<-done

	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()
	got := make(chan Job, 1)
	go func() {
		_ = q.Consume(ctx, func(_ context.Context, job Job) error {
			got <- job
			return nil
		})
	}()

	select {
	case job := <-got:
		s.Equal("doc-1", job.ID)
	case <-ctx.Done():
		s.Fail("interrupted job was not redelivered")
	}
}
