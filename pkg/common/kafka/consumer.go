package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/logger"
	"github.com/AndresDavidVV/ClinicaIA/pkg/common/models"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultRetryBackoff    = 500 * time.Millisecond
	DefaultMaxRetryBackoff = 30 * time.Second
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads the audit topic; copilotctl uses it to tail events.
type Consumer struct {
	reader     messageReader
	backoff    time.Duration
	maxBackoff time.Duration
}

type EventHandler func(ctx context.Context, event models.Event) error

func NewConsumer(brokers []string, topic string, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 1e6,
	})

	return newConsumer(reader)
}

func newConsumer(reader messageReader) *Consumer {
	return &Consumer{
		reader:     reader,
		backoff:    DefaultRetryBackoff,
		maxBackoff: DefaultMaxRetryBackoff,
	}
}

// Consume blocks until ctx is cancelled, the reader is closed or handler
// returns an error. Undecodable messages are committed and skipped. Fetch
// failures are retried with a doubling delay capped at maxBackoff.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	delay := c.backoff
	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			logger.Log.WithError(err).WithField("retry_in", delay.String()).Error("Failed to fetch message")
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			delay *= 2
			if delay > c.maxBackoff {
				delay = c.maxBackoff
			}
			continue
		}
		delay = c.backoff

		var event models.Event
		if err := json.Unmarshal(message.Value, &event); err != nil {
			logger.Log.WithError(err).Warn("Skipping undecodable event")
			c.reader.CommitMessages(ctx, message)
			continue
		}

		if err := handler(ctx, event); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, message); err != nil {
			logger.Log.WithError(err).Error("Failed to commit message")
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
