package kafka

import (
	"context"
	"errors"
	"versalex-ingest/config"
	"versalex-ingest/internal/model"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
)

type EventProducer interface {
	Produce(ctx context.Context, records []model.Record) error
	Close() error
}

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaEventProducer struct {
	writer messageWriter
	topic  string
}

func NewKafkaEventProducer(lc fx.Lifecycle, cfg *config.Config) (EventProducer, error) {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.EventTopic == "" {
		log.Error().Msg("Kafka brokers or event topic is not configured.")
		return nil, errors.New("kafka configuration missing")
	}
	// Synchronous writes: a batch is only acknowledged to the shipper once Kafka has it.
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.EventTopic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.Shipper.BatchSize,
		BatchTimeout: cfg.Shipper.MaxBatchWait,
		RequiredAcks: kafka.RequireAll,
	}
	p := &kafkaEventProducer{
		writer: writer,
		topic:  cfg.Kafka.EventTopic,
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing Kafka producer")
			return p.Close()
		},
	})
	log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.EventTopic).Msg("Kafka producer initialized")
	return p, nil
}

// messageKey keeps every record of one log file on one partition, in order.
func messageKey(r model.Record) []byte {
	return []byte(r.Host + ":" + r.Path)
}

func (p *kafkaEventProducer) Produce(ctx context.Context, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}
	messages := make([]kafka.Message, 0, len(records))

	for _, record := range records {
		value, err := json.Marshal(record)
		if err != nil {
			log.Error().Err(err).Str("eventid", record.EventID).Msg("Failed to marshal record for Kafka")
			continue
		}
		messages = append(messages, kafka.Message{
			Key:   messageKey(record),
			Value: value,
			Time:  record.Timestamp,
		})
	}
	if len(messages) == 0 {
		log.Warn().Msg("No valid messages to produce.")
		return nil
	}

	err := p.writer.WriteMessages(ctx, messages...)
	if err != nil {
		log.Error().Err(err).Int("message_count", len(messages)).Msg("Failed to write messages to Kafka")
		return err
	}

	log.Debug().Int("message_count", len(messages)).Str("topic", p.topic).Msg("Successfully produced messages to Kafka")

	return nil
}

func (p *kafkaEventProducer) Close() error {
	return p.writer.Close()
}
