package timescaledb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"versalex-ingest/internal/dto"
	"versalex-ingest/internal/metrics"
	"versalex-ingest/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type timescaleMetricRepository struct {
	pool       *pgxpool.Pool
	eventTable string
}

func NewTimescaleMetricRepository(pool *pgxpool.Pool) (repository.MetricRepository, error) {
	if pool == nil {
		return nil, errors.New("TimescaleDB connection pool is required for MetricRepository")
	}
	return &timescaleMetricRepository{
		pool:       pool,
		eventTable: metricEventsTableName,
	}, nil
}

// dimensions maps a grouping name to the SQL expression it reads.
var dimensions = map[string]string{
	"type":   colEventType,
	"thread": colThread,
	"host":   colHost,
}

var validIntervals = map[string]bool{
	"1 minute": true, "5 minute": true, "10 minute": true, "30 minute": true, "1 hour": true, "1 day": true,
}

// whereBuilder accumulates AND-ed conditions with numbered placeholders.
type whereBuilder struct {
	clauses []string
	args    []interface{}
}

func (w *whereBuilder) add(clause string, args ...interface{}) {
	placeholders := make([]interface{}, len(args))
	for i, a := range args {
		w.args = append(w.args, a)
		placeholders[i] = fmt.Sprintf("$%d", len(w.args))
	}
	w.clauses = append(w.clauses, fmt.Sprintf(clause, placeholders...))
}

func (w *whereBuilder) addIn(column string, values []string) {
	if len(values) == 0 {
		return
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		w.args = append(w.args, v)
		placeholders[i] = fmt.Sprintf("$%d", len(w.args))
	}
	w.clauses = append(w.clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ",")))
}

func (w *whereBuilder) String() string {
	return strings.Join(w.clauses, " AND ")
}

func buildSummaryQuery(table string, req dto.MetricSummaryRequest) (string, []interface{}) {
	w := &whereBuilder{}
	w.add("time >= %s", req.StartTime)
	w.add("time < %s", req.EndTime)
	w.addIn(colHost, req.Hosts)

	query := fmt.Sprintf(`SELECT
		COUNT(*) FILTER (WHERE metric_name = '%s'),
		COUNT(*) FILTER (WHERE metric_name = '%s'),
		COUNT(*) FILTER (WHERE metric_name = '%s'),
		COALESCE(SUM(bytes) FILTER (WHERE metric_name = '%s'), 0)
	FROM %s WHERE %s`,
		metrics.EventMetric, metrics.ErrorMetric, metrics.TransferMetric, metrics.TransferMetric,
		table, w.String())
	return query, w.args
}

func (r *timescaleMetricRepository) GetSummaryMetrics(ctx context.Context, req dto.MetricSummaryRequest) (*dto.MetricSummaryResponse, error) {
	query, args := buildSummaryQuery(r.eventTable, req)

	resp := &dto.MetricSummaryResponse{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&resp.TotalEvents, &resp.TotalErrorEvents, &resp.TotalTransfers, &resp.TotalBytes)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Failed to query summary metrics")
		return nil, fmt.Errorf("failed to get summary metrics: %w", err)
	}
	return resp, nil
}

func buildTimeseriesQuery(table string, req dto.MetricTimeseriesRequest) (string, []interface{}, error) {
	if !validIntervals[req.Interval] {
		return "", nil, fmt.Errorf("invalid interval: %s", req.Interval)
	}
	groupBySQL, ok := dimensions[req.GroupBy]
	if !ok {
		groupBySQL = "'total'"
	}

	w := &whereBuilder{}
	w.args = append(w.args, req.Interval)
	w.add("metric_name = %s", req.MetricName)
	w.add("time >= %s", req.StartTime)
	w.add("time < %s", req.EndTime)
	w.addIn(colHost, req.Hosts)

	query := fmt.Sprintf(
		"SELECT time_bucket($1::interval, time) AS bucket, %s AS group_key, COUNT(*) AS value FROM %s WHERE %s GROUP BY bucket, group_key ORDER BY bucket ASC",
		groupBySQL, table, w.String())
	return query, w.args, nil
}

func (r *timescaleMetricRepository) GetTimeseriesMetrics(ctx context.Context, req dto.MetricTimeseriesRequest) (*dto.MetricTimeseriesResponse, error) {
	querySQL, args, err := buildTimeseriesQuery(r.eventTable, req)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("query", querySQL).Interface("args", args).Msg("Executing TimescaleDB timeseries query")

	rows, err := r.pool.Query(ctx, querySQL, args...)
	if err != nil {
		log.Error().Err(err).Str("query", querySQL).Msg("Failed to execute timeseries query")
		return nil, fmt.Errorf("timeseries query failed: %w", err)
	}
	defer rows.Close()

	seriesMap := make(map[string][]dto.TimeseriesDataPoint)
	for rows.Next() {
		var bucket time.Time
		var groupKey *string
		var value int64

		if err := rows.Scan(&bucket, &groupKey, &value); err != nil {
			log.Error().Err(err).Msg("Failed to scan timeseries row")
			continue
		}

		key := fmt.Sprintf("%s_NULL", req.GroupBy)
		if groupKey != nil {
			key = *groupKey
		}
		seriesMap[key] = append(seriesMap[key], dto.TimeseriesDataPoint{
			Timestamp: bucket.UnixMilli(),
			Value:     value,
		})
	}
	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("Error iterating timeseries rows")
		return nil, fmt.Errorf("failed iterating query results: %w", err)
	}

	response := &dto.MetricTimeseriesResponse{
		Series: make([]dto.TimeseriesSeries, 0, len(seriesMap)),
	}
	for name, data := range seriesMap {
		response.Series = append(response.Series, dto.TimeseriesSeries{
			Name: name,
			Data: data,
		})
	}
	sort.Slice(response.Series, func(i, j int) bool { return response.Series[i].Name < response.Series[j].Name })

	return response, nil
}

func (r *timescaleMetricRepository) GetDistinctHosts(ctx context.Context, req dto.HostListRequest) (*dto.HostListResponse, error) {
	querySQL := fmt.Sprintf("SELECT DISTINCT host FROM %s WHERE time >= $1 AND time < $2 ORDER BY host", r.eventTable)

	rows, err := r.pool.Query(ctx, querySQL, req.StartTime, req.EndTime)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query distinct hosts")
		return nil, fmt.Errorf("failed getting hosts: %w", err)
	}
	defer rows.Close()

	hosts := make([]string, 0)
	for rows.Next() {
		var host string
		if err := rows.Scan(&host); err != nil {
			log.Error().Err(err).Msg("Failed to scan host row")
			continue
		}
		hosts = append(hosts, host)
	}
	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("Error iterating host rows")
		return nil, fmt.Errorf("failed iterating host results: %w", err)
	}

	return &dto.HostListResponse{Hosts: hosts}, nil
}

func buildDistributionQuery(table string, req dto.MetricDistributionRequest) (string, []interface{}, error) {
	column, ok := dimensions[req.Dimension]
	if !ok {
		return "", nil, fmt.Errorf("unsupported dimension for distribution: %s", req.Dimension)
	}

	w := &whereBuilder{}
	w.add("metric_name = %s", req.MetricName)
	w.add("time >= %s", req.StartTime)
	w.add("time < %s", req.EndTime)
	w.addIn(colHost, req.Hosts)
	w.clauses = append(w.clauses, column+" IS NOT NULL")

	query := fmt.Sprintf(
		"SELECT %s AS dimension_key, COUNT(*) AS value FROM %s WHERE %s GROUP BY dimension_key ORDER BY value DESC",
		column, table, w.String())
	return query, w.args, nil
}

func (r *timescaleMetricRepository) GetDistributionMetrics(ctx context.Context, req dto.MetricDistributionRequest) (*dto.MetricDistributionResponse, error) {
	querySQL, args, err := buildDistributionQuery(r.eventTable, req)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("query", querySQL).Interface("args", args).Msg("Executing TimescaleDB distribution query")

	rows, err := r.pool.Query(ctx, querySQL, args...)
	if err != nil {
		log.Error().Err(err).Msg("Failed to execute distribution query")
		return nil, fmt.Errorf("distribution query failed: %w", err)
	}
	defer rows.Close()

	distribution := make([]dto.DistributionDataPoint, 0)
	for rows.Next() {
		var key string
		var value int64
		if err := rows.Scan(&key, &value); err != nil {
			log.Error().Err(err).Msg("Failed to scan distribution row")
			continue
		}
		distribution = append(distribution, dto.DistributionDataPoint{Name: key, Value: value})
	}
	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("Error iterating distribution rows")
		return nil, fmt.Errorf("failed iterating distribution results: %w", err)
	}

	return &dto.MetricDistributionResponse{
		MetricName:   req.MetricName,
		Dimension:    req.Dimension,
		Distribution: distribution,
	}, nil
}
