package timescaledb

import (
	"context"
	"fmt"
	"strconv"
	"time"
	"versalex-ingest/config"
	"versalex-ingest/internal/model"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

type MetricStore interface {
	StoreMetricEvents(ctx context.Context, events []model.MetricEvent) error
	Close()
}

const (
	metricEventsTableName = "versalex_metric_events"
	colTime               = "time"
	colMetricName         = "metric_name"
	colHost               = "host"
	colEventType          = "event_type"
	colThread             = "thread"
	colBytes              = "bytes"
	colSeconds            = "seconds"
	colTags               = "tags"
)

// metricColumns is the CopyFrom column order; metricRow must match it.
var metricColumns = []string{colTime, colMetricName, colHost, colEventType, colThread, colBytes, colSeconds, colTags}

// copier is the part of pgxpool.Pool the store writes through.
type copier interface {
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

type timescaleMetricStore struct {
	db    copier
	close func()
	table string
}

func newMetricStore(db copier, closeFn func()) *timescaleMetricStore {
	if closeFn == nil {
		closeFn = func() {}
	}
	return &timescaleMetricStore{db: db, close: closeFn, table: metricEventsTableName}
}

// schemaStatements creates the hypertable with one column per VersaLex
// dimension. Remaining tags stay in JSONB.
func schemaStatements(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			%s TIMESTAMPTZ NOT NULL,
			%s TEXT NOT NULL,
			%s TEXT NOT NULL,
			%s TEXT,
			%s TEXT,
			%s BIGINT,
			%s DOUBLE PRECISION,
			%s JSONB
		)`, table, colTime, colMetricName, colHost, colEventType, colThread, colBytes, colSeconds, colTags),
		fmt.Sprintf("SELECT create_hypertable('%s', '%s', if_not_exists => TRUE, chunk_time_interval => INTERVAL '1 day')", table, colTime),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_metric_host_time ON %s (%s, %s, %s DESC)", table, table, colMetricName, colHost, colTime),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_type_time ON %s (%s, %s DESC)", table, table, colEventType, colTime),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_thread_time ON %s (%s, %s DESC)", table, table, colThread, colTime),
	}
}

func ProvideTimescaleDBPool(lc fx.Lifecycle, cfg *config.Config) (MetricStore, *pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.TimescaleDB.DSN)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse TimescaleDB DSN")
		return nil, nil, fmt.Errorf("invalid TimescaleDB DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Error().Err(err).Msg("Unable to create TimescaleDB pool")
		return nil, nil, fmt.Errorf("failed to connect to TimescaleDB: %w", err)
	}

	setupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrate(setupCtx, pool, metricEventsTableName); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("Failed to prepare metric hypertable")
		return nil, nil, err
	}
	log.Info().Str("table", metricEventsTableName).Msg("Metric hypertable ready")

	store := newMetricStore(pool, pool.Close)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing TimescaleDB pool")
			store.Close()
			return nil
		},
	})

	return store, pool, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool, table string) error {
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping TimescaleDB: %w", err)
	}
	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		log.Warn().Err(err).Msg("Could not ensure timescaledb extension, continuing")
	}
	for _, stmt := range schemaStatements(table) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed on %s: %w", table, err)
		}
	}
	return nil
}

// metricRow lifts the VersaLex dimensions out of the tags into their own
// columns. Unparseable numbers become NULL.
func metricRow(e model.MetricEvent) []interface{} {
	var eventType, thread, bytes, seconds interface{}
	extra := make(map[string]string, len(e.Tags))
	for k, v := range e.Tags {
		switch k {
		case "type":
			eventType = v
		case "thread":
			thread = v
		case "bytes":
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				bytes = n
			}
		case "seconds":
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				seconds = f
			}
		default:
			extra[k] = v
		}
	}

	var tags interface{}
	if len(extra) > 0 {
		raw, err := json.Marshal(extra)
		if err != nil {
			log.Warn().Err(err).Str("metric", e.MetricName).Msg("Dropping unencodable metric tags")
		} else {
			tags = raw
		}
	}
	return []interface{}{e.Time, e.MetricName, e.Host, eventType, thread, bytes, seconds, tags}
}

// StoreMetricEvents bulk-copies metric events into the hypertable.
func (s *timescaleMetricStore) StoreMetricEvents(ctx context.Context, events []model.MetricEvent) error {
	if len(events) == 0 {
		return nil
	}

	source := pgx.CopyFromSlice(len(events), func(i int) ([]interface{}, error) {
		return metricRow(events[i]), nil
	})
	n, err := s.db.CopyFrom(ctx, pgx.Identifier{s.table}, metricColumns, source)
	if err != nil {
		log.Error().Err(err).Int("count", len(events)).Msg("Failed to copy metric events")
		return fmt.Errorf("timescaledb copyfrom failed: %w", err)
	}
	if int(n) != len(events) {
		log.Warn().Int64("inserted", n).Int("expected", len(events)).Msg("Metric copy count mismatch")
	}
	return nil
}

func (s *timescaleMetricStore) Close() {
	s.close()
}
