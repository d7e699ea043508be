package nats

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"
)

// Message is the part of jetstream.Msg the handlers need.
type Message interface {
	Subject() string
	Data() []byte
	Ack() error
	Nak() error
}

// Handler processes one message. A non-nil error requests redelivery.
type Handler func(ctx context.Context, msg Message) error

// Subscribe creates (or updates) the named consumer and runs cfg.Workers pull workers until ctx is done.
// The consumer only sees messages published after it was created.
func Subscribe(ctx context.Context, js jetstream.JetStream, cfg config.SubscriberConfig, consumerName string, handler Handler, logger *slog.Logger) error {
	consumerCfg := jetstream.ConsumerConfig{
		FilterSubject:     cfg.Subject,
		Durable:           consumerName,
		AckPolicy:         jetstream.AckExplicitPolicy,
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		MaxDeliver:        cfg.MaxDeliver,
		InactiveThreshold: cfg.InactiveThreshold,
	}
	consumer, err := js.CreateOrUpdateConsumer(ctx, cfg.Stream, consumerCfg)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "subscriber started", "stream", cfg.Stream, "subject", cfg.Subject, "consumer", consumerName)

	g, gCtx := errgroup.WithContext(ctx)
	for range cfg.Workers {
		g.Go(func() error {
			return runWorker(gCtx, consumer, cfg, handler, logger)
		})
	}
	return g.Wait()
}

// runWorker fetches batches from the consumer and hands every message to the handler.
func runWorker(ctx context.Context, consumer jetstream.Consumer, cfg config.SubscriberConfig, handler Handler, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			batch, err := consumer.Fetch(cfg.Batch, jetstream.FetchMaxWait(cfg.Timeout))
			if err != nil {
				if errors.Is(err, nats.ErrTimeout) {
					continue
				}
				logger.ErrorContext(ctx, "failed to fetch messages", "error", err)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(cfg.Interval):
				}
				continue
			}
			for msg := range batch.Messages() {
				handleMessage(ctx, msg, handler, logger)
			}
		}
	}
}

// handleMessage runs the handler and acknowledges the message according to its result.
func handleMessage(ctx context.Context, msg Message, handler Handler, logger *slog.Logger) {
	if msg == nil {
		logger.ErrorContext(ctx, "received nil message")
		return
	}
	if err := handler(ctx, msg); err != nil {
		logger.WarnContext(ctx, "message handling failed", "subject", msg.Subject(), "error", err)
		if err := msg.Nak(); err != nil {
			logger.ErrorContext(ctx, "failed to nack message", "error", err)
		}
		return
	}
	if err := msg.Ack(); err != nil {
		logger.ErrorContext(ctx, "failed to ack message", "error", err)
	}
}
