// Package kafka wires the activity event topic: connection settings shared by
// producer and consumer, and the consumer loop that persists events.
package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/leancoach/coach-backend/events/modules/activity"
	"github.com/leancoach/coach-backend/internal/config"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"
)

const dialTimeout = 10 * time.Second

// NewDialer builds the consumer dialer. SASL/TLS is only configured if credentials are provided.
func NewDialer(cfg config.KafkaConfig) *kafka.Dialer {
	dialer := &kafka.Dialer{
		Timeout:   dialTimeout,
		DualStack: true,
	}
	if cfg.APIKey != "" && cfg.APISecret != "" {
		dialer.SASLMechanism = plain.Mechanism{
			Username: cfg.APIKey,
			Password: cfg.APISecret,
		}
		dialer.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return dialer
}

// NewTransport builds the producer transport with the same credentials as NewDialer
func NewTransport(cfg config.KafkaConfig) kafka.RoundTripper {
	transport := &kafka.Transport{
		DialTimeout: dialTimeout,
	}
	if cfg.APIKey != "" && cfg.APISecret != "" {
		transport.SASL = plain.Mechanism{
			Username: cfg.APIKey,
			Password: cfg.APISecret,
		}
		transport.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return transport
}

// NewProducer returns the activity producer for cfg
func NewProducer(cfg config.KafkaConfig) *activity.ActivityProducer {
	return activity.NewActivityProducer(cfg.BrokerList(), cfg.Topic, NewTransport(cfg))
}

// waitForBroker dials the first broker with backoff until it answers or maxElapsed passes
func waitForBroker(ctx context.Context, dialer *kafka.Dialer, broker string, maxElapsed time.Duration, logger *zap.Logger) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = maxElapsed

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		logger.Info("Kafka connection attempt", zap.Int("attempt", attempt), zap.String("broker", broker))
		conn, err := dialer.DialContext(ctx, "tcp", broker)
		if err != nil {
			return err
		}
		return conn.Close()
	}, backoff.WithContext(bo, ctx), func(err error, wait time.Duration) {
		logger.Warn("Retrying Kafka connection", zap.Error(err), zap.Duration("wait", wait))
	})
}

// RunEventProcessor consumes the activity topic and persists each event into st.
// It returns once the consumer is running; the loop stops when ctx is cancelled.
func RunEventProcessor(ctx context.Context, cfg config.KafkaConfig, st activity.ActivityStore, logger *zap.Logger) error {
	brokers := cfg.BrokerList()
	if len(brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}

	dialer := NewDialer(cfg)
	if err := waitForBroker(ctx, dialer, brokers[0], time.Minute, logger); err != nil {
		return fmt.Errorf("kafka: connect to %s: %w", brokers[0], err)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MaxBytes: 10e6,
		Dialer:   dialer,
	})

	go func() {
		defer reader.Close()
		logger.Info("Kafka event processor started", zap.String("topic", cfg.Topic), zap.String("group", cfg.GroupID))

		for {
			msg, err := reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("Kafka read failed", zap.Error(err))
				continue
			}

			// persist only gives up when ctx ends; the offset stays uncommitted and is redelivered
			if err := persist(ctx, msg, st, logger); err != nil {
				logger.Warn("Activity event left uncommitted", zap.Int64("offset", msg.Offset), zap.Error(err))
				return
			}

			if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				logger.Warn("Kafka commit failed", zap.Error(err))
			}
		}
	}()

	return nil
}

// Retry pacing for storage failures while persisting events
var (
	persistInitialInterval = 500 * time.Millisecond
	persistMaxInterval     = 30 * time.Second
)

// persist stores one message, retrying storage failures until they clear or ctx ends.
// Invalid events are logged and skipped.
func persist(ctx context.Context, msg kafka.Message, st activity.ActivityStore, logger *zap.Logger) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = persistInitialInterval
	bo.MaxInterval = persistMaxInterval
	bo.MaxElapsedTime = 0

	return backoff.RetryNotify(func() error {
		_, err := activity.HandleActivityRecorded(ctx, msg.Value, st)
		if errors.Is(err, activity.ErrInvalidEvent) {
			logger.Warn("Dropping invalid activity event", zap.Int64("offset", msg.Offset), zap.Error(err))
			return nil
		}
		return err
	}, backoff.WithContext(bo, ctx), func(err error, wait time.Duration) {
		logger.Error("Failed to persist activity event, retrying",
			zap.Int64("offset", msg.Offset), zap.Duration("wait", wait), zap.Error(err))
	})
}
