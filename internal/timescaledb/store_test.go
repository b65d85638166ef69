package timescaledb

import (
	"context"
	"errors"
	"testing"
	"time"

	"versalex-ingest/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCopier struct {
	table   pgx.Identifier
	columns []string
	rows    [][]interface{}
	err     error
}

func (f *fakeCopier) CopyFrom(_ context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.table, f.columns = table, columns
	for src.Next() {
		values, err := src.Values()
		if err != nil {
			return 0, err
		}
		f.rows = append(f.rows, values)
	}
	return int64(len(f.rows)), src.Err()
}

func TestMetricRowPromotesDimensions(t *testing.T) {
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		event model.MetricEvent
		want  []interface{}
	}{
		{
			name: "versalex event",
			event: model.MetricEvent{Time: at, MetricName: "versalex_event", Host: "ship01",
				Tags: map[string]string{"type": "transfer", "thread": "TN-1"}},
			want: []interface{}{at, "versalex_event", "ship01", "transfer", "TN-1", nil, nil, nil},
		},
		{
			name: "transfer with numbers",
			event: model.MetricEvent{Time: at, MetricName: "transfer_event", Host: "ship01",
				Tags: map[string]string{"thread": "TN-2", "bytes": "2048", "seconds": "1.5"}},
			want: []interface{}{at, "transfer_event", "ship01", nil, "TN-2", int64(2048), 1.5, nil},
		},
		{
			name: "unparseable bytes",
			event: model.MetricEvent{Time: at, MetricName: "transfer_event", Host: "ship01",
				Tags: map[string]string{"bytes": "lots"}},
			want: []interface{}{at, "transfer_event", "ship01", nil, nil, nil, nil, nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, metricRow(tt.event))
		})
	}
}

func TestMetricRowKeepsExtraTags(t *testing.T) {
	row := metricRow(model.MetricEvent{MetricName: "error_event",
		Tags: map[string]string{"type": "error", "error_key": "connection refused"}})

	require.Len(t, row, len(metricColumns))
	assert.Equal(t, "error", row[3])
	assert.JSONEq(t, `{"error_key":"connection refused"}`, string(row[7].([]byte)))
}

func TestStoreMetricEvents(t *testing.T) {
	db := &fakeCopier{}
	store := newMetricStore(db, nil)

	require.NoError(t, store.StoreMetricEvents(context.Background(), nil))
	assert.Nil(t, db.rows)

	events := []model.MetricEvent{
		{MetricName: "versalex_event", Host: "a", Tags: map[string]string{"type": "file"}},
		{MetricName: "versalex_event", Host: "b", Tags: map[string]string{"type": "end"}},
	}
	require.NoError(t, store.StoreMetricEvents(context.Background(), events))
	assert.Equal(t, pgx.Identifier{metricEventsTableName}, db.table)
	assert.Equal(t, metricColumns, db.columns)
	require.Len(t, db.rows, 2)
	assert.Equal(t, "end", db.rows[1][3])
}

func TestStoreMetricEventsCopyError(t *testing.T) {
	store := newMetricStore(&fakeCopier{err: errors.New("conn reset")}, nil)

	err := store.StoreMetricEvents(context.Background(), []model.MetricEvent{{MetricName: "x"}})
	assert.ErrorContains(t, err, "conn reset")
}

func TestSchemaStatementsCreateDimensionColumns(t *testing.T) {
	stmts := schemaStatements("events")

	require.NotEmpty(t, stmts)
	assert.Contains(t, stmts[0], "event_type TEXT")
	assert.Contains(t, stmts[0], "thread TEXT")
	assert.Contains(t, stmts[0], "bytes BIGINT")
	assert.Contains(t, stmts[1], "create_hypertable('events', 'time'")
}
