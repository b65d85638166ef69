package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"versalex-ingest/config"
	"versalex-ingest/internal/elasticsearch"
	"versalex-ingest/internal/kafka"
	"versalex-ingest/internal/metrics"
	"versalex-ingest/internal/model"
	"versalex-ingest/internal/timescaledb"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
)

type EventConsumerService interface {
	Run(ctx context.Context, wg *sync.WaitGroup)
}

type eventConsumerService struct {
	consumer    kafka.EventConsumer
	eventStore  elasticsearch.EventStore
	metricStore timescaledb.MetricStore
	extractor   metrics.Extractor
	batchSize   int           // How many Kafka messages to process at once
	maxWaitTime time.Duration // Max time to wait for batchSize messages
	retryDelay  time.Duration
}

func NewEventConsumerService(
	consumer kafka.EventConsumer,
	eventStore elasticsearch.EventStore,
	metricStore timescaledb.MetricStore,
	extractor metrics.Extractor,
	cfg *config.Config,
) EventConsumerService {
	batchSize := cfg.Shipper.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	maxWait := cfg.Shipper.MaxBatchWait
	if maxWait <= 0 {
		maxWait = time.Second
	}
	return &eventConsumerService{
		consumer:    consumer,
		eventStore:  eventStore,
		metricStore: metricStore,
		extractor:   extractor,
		batchSize:   batchSize,
		maxWaitTime: maxWait,
		retryDelay:  time.Second,
	}
}

func (s *eventConsumerService) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	log.Info().Msg("Starting Event Consumer Service loop...")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Event Consumer Service loop stopping due to context cancellation.")
			return
		default:
		}

		err := s.processBatch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info().Msg("Context cancelled during batch processing.")
				return
			}
			log.Error().Err(err).Msg("Error processing consumer batch")
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.retryDelay):
			}
		}
	}
}

// fetchBatch collects up to batchSize messages or whatever arrived within
// maxWaitTime. Bad records are kept so their offsets are committed with the
// batch.
func (s *eventConsumerService) fetchBatch(ctx context.Context) ([]model.Record, []kafkaGo.Message, error) {
	records := make([]model.Record, 0, s.batchSize)
	messages := make([]kafkaGo.Message, 0, s.batchSize)
	deadline := time.Now().Add(s.maxWaitTime)

	for len(messages) < s.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		fetchCtx, cancel := context.WithDeadline(ctx, deadline)
		record, msg, err := s.consumer.FetchMessage(fetchCtx)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				log.Debug().Int("batch_size", len(messages)).Msg("Max wait time reached for batch, processing partial batch.")
				break
			}
			if errors.Is(err, kafka.ErrBadRecord) {
				log.Warn().Err(err).Int64("offset", msg.Offset).Msg("Committing bad record without storing it.")
				messages = append(messages, msg)
				continue
			}
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			return nil, nil, fmt.Errorf("failed to fetch kafka message: %w", err)
		}

		records = append(records, *record)
		messages = append(messages, msg)
	}
	return records, messages, nil
}

func (s *eventConsumerService) processBatch(ctx context.Context) error {
	records, messages, err := s.fetchBatch(ctx)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		log.Debug().Msg("No messages in batch to process.")
		return nil
	}

	log.Debug().Int("batch_size", len(records)).Msg("Processing collected batch...")

	var metricEvents []model.MetricEvent
	for i := range records {
		metricEvents = append(metricEvents, s.extractor.ExtractMetricEvents(&records[i])...)
	}

	if err := s.eventStore.StoreRecords(ctx, records); err != nil {
		log.Error().Err(err).Msg("Failed to store records to Elasticsearch")
		return fmt.Errorf("failed storing records: %w", err)
	}
	if err := s.metricStore.StoreMetricEvents(ctx, metricEvents); err != nil {
		log.Error().Err(err).Msg("Failed to store metric events to TimescaleDB")
		return fmt.Errorf("failed storing metrics: %w", err)
	}

	if err := s.consumer.CommitMessages(ctx, messages...); err != nil {
		log.Error().Err(err).Msg("Failed to commit Kafka messages after successful storage")
		return fmt.Errorf("failed committing kafka messages: %w", err)
	}
	log.Info().Int("batch_size", len(messages)).Int("metric_events", len(metricEvents)).Msg("Successfully processed and committed batch.")
	return nil
}
