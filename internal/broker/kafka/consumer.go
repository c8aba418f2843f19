package kafka

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	// FromBeginning replays the topic for a new group. By default a new
	// group only sees messages produced after it joins.
	FromBeginning bool
}

type Consumer struct {
	r messageReader
}

func NewConsumer(cfg ConsumerConfig) *Consumer {
	rc := kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           cfg.GroupID,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
		StartOffset:       kafka.LastOffset,
	}
	if cfg.FromBeginning {
		rc.StartOffset = kafka.FirstOffset
	}
	if cfg.GroupID != "" {
		rc.GroupTopics = []string{cfg.Topic}
	} else {
		rc.Topic = cfg.Topic
	}
	return &Consumer{r: kafka.NewReader(rc)}
}

func newConsumerWithReader(r messageReader) *Consumer {
	return &Consumer{r: r}
}

func (c *Consumer) Close() error {
	return c.r.Close()
}

// Consume hands every message to handler and commits it once handler
// returns nil. A handler error stops the loop with the message uncommitted.
// Cancelling ctx returns ctx.Err().
func (c *Consumer) Consume(ctx context.Context, handler func(key, value []byte) error) error {
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "fetch message")
		}
		if err := handler(msg.Key, msg.Value); err != nil {
			return errors.Wrapf(err, "handle message at offset %d", msg.Offset)
		}
		if err := c.r.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "commit message")
		}
	}
}
