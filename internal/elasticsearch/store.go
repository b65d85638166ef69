package elasticsearch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
	"versalex-ingest/config"
	"versalex-ingest/internal/model"

	"github.com/cenkalti/backoff"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

type EventStore interface {
	StoreRecords(ctx context.Context, records []model.Record) error
	Close(ctx context.Context) error
}
type elasticEventStore struct {
	client          *elasticsearch.Client
	bulkIndexer     esutil.BulkIndexer
	indexPrefix     string
	countSuccessful uint64
	countFailed     uint64
}

func newTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConnsPerHost:   10,
		ResponseHeaderTimeout: time.Second * 10,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
	}
}

func NewElasticEventStore(lc fx.Lifecycle, cfg *config.Config) (EventStore, *elasticsearch.Client, error) {
	if len(cfg.Elasticsearch.Addresses) == 0 {
		log.Error().Msg("Elasticsearch addresses are not configured.")
		return nil, nil, errors.New("elasticsearch configuration missing")
	}
	esCfg := elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
		Transport: newTransport(),
	}

	var esClient *elasticsearch.Client
	var err error
	operation := func() error {
		esClient, err = elasticsearch.NewClient(esCfg)
		if err != nil {
			log.Warn().Err(err).Msg("Attempt failed: Error creating the Elasticsearch client")
			return err
		}

		// Verify connection (ping)
		res, errPing := esClient.Info(
			esClient.Info.WithContext(context.Background()),
		)
		if errPing != nil {
			log.Warn().Err(errPing).Msg("Attempt failed: Error during Elasticsearch Info() call (transport level)")
			return errPing
		}
		defer res.Body.Close()
		if res.IsError() {
			errMsg := fmt.Errorf("elasticsearch Info() returned error status: %s", res.Status())
			log.Warn().Err(errMsg).Msg("Attempt failed: Elasticsearch ping returned error status")
			return errMsg
		}
		log.Info().Str("server_info", res.String()).Msg("Elasticsearch client initialized and connection verified!")
		return nil
	}

	connectBackoff := backoff.NewExponentialBackOff()
	connectBackoff.InitialInterval = 2 * time.Second
	connectBackoff.MaxInterval = 15 * time.Second
	connectBackoff.MaxElapsedTime = 90 * time.Second

	log.Info().Msg("Attempting to connect to Elasticsearch with retries...")
	err = backoff.Retry(operation, connectBackoff)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to Elasticsearch after multiple retries")
		return nil, nil, err
	}

	store := &elasticEventStore{
		client:      esClient,
		indexPrefix: cfg.Elasticsearch.EventIndex,
	}
	if err := store.ensureIndexTemplate(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Failed to install event index template")
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        esClient,
		NumWorkers:    cfg.Elasticsearch.BulkWorkers,   // Number of workers
		FlushBytes:    cfg.Elasticsearch.FlushBytes,    // Flush threshold
		FlushInterval: cfg.Elasticsearch.FlushInterval, // Flush interval
		OnError: func(ctx context.Context, err error) {
			log.Error().Err(err).Msg("BulkIndexer error")
		},
		OnFlushStart: func(ctx context.Context) context.Context {
			log.Debug().Msg("BulkIndexer flush starting")
			return ctx
		},
		OnFlushEnd: func(ctx context.Context) {
			log.Debug().Msg("BulkIndexer flush ended")
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("Error creating the BulkIndexer")
		return nil, nil, err
	}
	store.bulkIndexer = bi
	log.Info().Msg("Elasticsearch BulkIndexer initialized")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing Elasticsearch BulkIndexer...")
			return store.Close(ctx)
		},
	})

	return store, esClient, nil
}

// eventIndexTemplate maps the record fields that are filtered and grouped on
// as keywords; event attributes fall back to dynamic mapping.
const eventIndexTemplate = `{
  "index_patterns": ["%s-*"],
  "template": {
    "mappings": {
      "properties": {
        "@timestamp": {"type": "date"},
        "host":       {"type": "keyword"},
        "path":       {"type": "keyword"},
        "type":       {"type": "keyword"},
        "thread":     {"type": "keyword"},
        "threadid":   {"type": "keyword"},
        "eventid":    {"type": "keyword"},
        "vlhost":     {"type": "keyword"},
        "message":    {"type": "text"},
        "text":       {"type": "text"}
      }
    }
  }
}`

func (s *elasticEventStore) ensureIndexTemplate(ctx context.Context) error {
	body := fmt.Sprintf(eventIndexTemplate, s.indexPrefix)
	res, err := s.client.Indices.PutIndexTemplate(
		s.indexPrefix,
		strings.NewReader(body),
		s.client.Indices.PutIndexTemplate.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("put index template returned %s", res.Status())
	}
	log.Info().Str("template", s.indexPrefix).Msg("Event index template installed")
	return nil
}

// StoreRecords adds records to the bulk indexer, each in the daily index of its own timestamp.
func (s *elasticEventStore) StoreRecords(ctx context.Context, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}

	rejected := 0
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal record for Elasticsearch")
			rejected++
			continue
		}

		err = s.bulkIndexer.Add(
			ctx,
			esutil.BulkIndexerItem{
				Action: "index",
				Index:  indexName(s.indexPrefix, record.Timestamp),
				Body:   bytes.NewReader(data),
				OnSuccess: func(context.Context, esutil.BulkIndexerItem, esutil.BulkIndexerResponseItem) {
					atomic.AddUint64(&s.countSuccessful, 1)
				},
				OnFailure: func(_ context.Context, _ esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
					atomic.AddUint64(&s.countFailed, 1)
					if err != nil {
						log.Error().Err(err).Msg("Failed to index record")
						return
					}
					log.Error().Str("type", res.Error.Type).Str("reason", res.Error.Reason).Msg("Failed to index record")
				},
			},
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to add item to BulkIndexer")
			rejected++
		}
	}
	log.Debug().Int("count", len(records)).Msg("Added records to Elasticsearch BulkIndexer queue")

	if rejected > 0 {
		atomic.AddUint64(&s.countFailed, uint64(rejected))
		return fmt.Errorf("%d of %d records were not queued for bulk indexing", rejected, len(records))
	}

	return nil
}
func (s *elasticEventStore) Close(ctx context.Context) error {
	log.Info().Msg("Attempting to close BulkIndexer...")
	err := s.bulkIndexer.Close(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error closing BulkIndexer")
	} else {
		log.Info().Msg("BulkIndexer closed.")
	}

	stats := s.bulkIndexer.Stats()
	log.Info().
		Uint64("indexed", stats.NumIndexed).
		Uint64("added", stats.NumAdded).
		Uint64("flushed", stats.NumFlushed).
		Uint64("failed", stats.NumFailed).
		Uint64("requests", stats.NumRequests).
		Msg("Elasticsearch BulkIndexer final stats")

	log.Info().
		Uint64("callback_successful", atomic.LoadUint64(&s.countSuccessful)).
		Uint64("callback_failed", atomic.LoadUint64(&s.countFailed)).
		Msg("Elasticsearch BulkIndexer final callback stats")

	return err
}

// indexName generates the daily index name, e.g. "versalex-events-2024-03-05".
func indexName(prefix string, ts time.Time) string {
	if ts.IsZero() {
		ts = time.Now()
	}
	return fmt.Sprintf("%s-%s", prefix, ts.UTC().Format("2006-01-02"))
}
