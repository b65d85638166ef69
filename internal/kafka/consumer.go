package kafka

import (
	"context"
	"errors"
	"fmt"
	"versalex-ingest/config"
	"versalex-ingest/internal/model"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
)

// ErrBadRecord marks a message that was fetched but holds no usable record.
// The message is still returned so its offset can be committed.
var ErrBadRecord = errors.New("bad event record")

type EventConsumer interface {
	FetchMessage(ctx context.Context) (*model.Record, kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaEventConsumer struct {
	reader messageReader
	group  string
}

func NewKafkaEventConsumer(lc fx.Lifecycle, cfg *config.Config) (EventConsumer, error) {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.EventTopic == "" || cfg.Kafka.ConsumerGroup == "" {
		log.Error().Msg("Kafka brokers, event topic or consumer group is not configured.")
		return nil, errors.New("kafka consumer configuration missing")
	}
	// Offsets are committed by hand once a batch is stored.
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.ConsumerGroup,
		Topic:          cfg.Kafka.EventTopic,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        cfg.Shipper.MaxBatchWait,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})
	c := &kafkaEventConsumer{reader: reader, group: cfg.Kafka.ConsumerGroup}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Str("group", c.group).Msg("Closing Kafka consumer")
			return c.Close()
		},
	})
	log.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.EventTopic).
		Str("group", cfg.Kafka.ConsumerGroup).
		Msg("Kafka consumer initialized")
	return c, nil
}

func (c *kafkaEventConsumer) FetchMessage(ctx context.Context) (*model.Record, kafka.Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, kafka.Message{}, err
	}
	record, err := decodeRecord(msg.Value)
	if err != nil {
		log.Warn().Err(err).
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("Skipping undecodable event record")
		return nil, msg, err
	}
	return record, msg, nil
}

// decodeRecord unmarshals a shipped record and rejects ones the stores
// cannot index: every record needs a type, a host and a timestamp.
func decodeRecord(value []byte) (*model.Record, error) {
	if len(value) == 0 {
		return nil, fmt.Errorf("%w: empty message", ErrBadRecord)
	}
	var record model.Record
	if err := json.Unmarshal(value, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRecord, err)
	}
	switch {
	case record.Type == "":
		return nil, fmt.Errorf("%w: missing type", ErrBadRecord)
	case record.Host == "":
		return nil, fmt.Errorf("%w: missing host", ErrBadRecord)
	case record.Timestamp.IsZero():
		return nil, fmt.Errorf("%w: missing timestamp", ErrBadRecord)
	}
	return &record, nil
}

func (c *kafkaEventConsumer) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := c.reader.CommitMessages(ctx, msgs...); err != nil {
		log.Error().Err(err).Int("count", len(msgs)).Msg("Failed to commit Kafka messages")
		return err
	}
	log.Debug().
		Str("group", c.group).
		Int("count", len(msgs)).
		Int64("last_offset", msgs[len(msgs)-1].Offset).
		Msg("Committed Kafka messages")
	return nil
}

func (c *kafkaEventConsumer) Close() error {
	return c.reader.Close()
}
