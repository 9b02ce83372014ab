package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-blog/config"
	"github.com/oksasatya/go-ddd-blog/pkg/helpers"
	"github.com/oksasatya/go-ddd-blog/pkg/mailer"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-notifications", cfg.Env, cfg.LogLevel)

	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; notification worker disabled (no real emails will be sent)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		log.Fatal("Mailgun not configured")
	}

	consumer, err := helpers.NewRabbitConsumer(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue, 16)
	if err != nil {
		log.Fatalf("amqp: %v", err)
	}
	defer consumer.Close()

	msgs, err := consumer.Deliveries()
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender,
		mailer.WithAPIBase(cfg.MailgunAPIBase),
		mailer.WithTags("account"),
	)
	w := &worker{logger: logger, sender: mg, queue: consumer, backoff: backoff}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range msgs {
			w.handle(ctx, msg)
		}
	}()

	logger.WithField("queue", cfg.RabbitMQEmailQueue).Info("notification worker listening")
	select {
	case <-stop:
	case <-done:
		logger.Warn("delivery channel closed")
	}
	logger.Info("shutting down...")
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

const (
	retryHeader = "x-retry-count"
	maxAttempts = 5
)

type republisher interface {
	Republish(ctx context.Context, d amqp.Delivery, headers amqp.Table) error
}

type worker struct {
	logger  *logrus.Logger
	sender  mailer.Sender
	queue   republisher
	backoff func(attempt int) time.Duration
}

// backoff waits 2s, 4s, 8s, 16s between attempts.
func backoff(attempt int) time.Duration { return time.Duration(1<<attempt) * time.Second }

// handle acks delivered mail and drops jobs that can never succeed. A failed send is
// republished with a bumped retry count after a delay, and dropped after maxAttempts.
func (w *worker) handle(ctx context.Context, msg amqp.Delivery) {
	err := mailer.Dispatch(ctx, w.sender, msg.Body)
	switch {
	case err == nil:
		_ = msg.Ack(false)
		return
	case errors.Is(err, mailer.ErrBadJob):
		w.logger.WithError(err).Error("dropping email job")
		_ = msg.Nack(false, false)
		return
	}

	attempt := retryCount(msg.Headers) + 1
	entry := w.logger.WithError(err).WithField("attempt", attempt)
	if attempt >= maxAttempts {
		entry.Error("send failed; giving up")
		_ = msg.Nack(false, false)
		return
	}

	select {
	case <-ctx.Done():
		_ = msg.Nack(false, true)
		return
	case <-time.After(w.backoff(attempt)):
	}

	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[retryHeader] = int32(attempt)
	if rerr := w.queue.Republish(ctx, msg, headers); rerr != nil {
		entry.WithField("republish_error", rerr.Error()).Warn("send failed; requeueing")
		_ = msg.Nack(false, true)
		return
	}
	entry.Warn("send failed; retry scheduled")
	_ = msg.Ack(false)
}

func retryCount(h amqp.Table) int {
	switch v := h[retryHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}
