package elasticsearch

import (
	"testing"
	"time"

	"versalex-ingest/internal/dto"
	"versalex-ingest/internal/model"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexName(t *testing.T) {
	ts := time.Date(2024, 3, 5, 23, 30, 0, 0, time.FixedZone("", -5*3600))
	assert.Equal(t, "versalex-events-2024-03-06", indexName("versalex-events", ts))
	assert.Regexp(t, `^versalex-events-\d{4}-\d{2}-\d{2}$`, indexName("versalex-events", time.Time{}))
}

func TestBuildSearchRequest(t *testing.T) {
	req := dto.EventSearchRequest{
		StartTime: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
		Query:     "refused",
		Types:     []string{"Detail", "Result"},
		Threads:   []string{"Local Listener"},
		SortBy:    "bogus",
		SortOrder: "asc",
		Page:      3,
		Size:      20,
	}

	sr := buildSearchRequest(req)
	require.NotNil(t, sr.Query.Bool)
	assert.Len(t, sr.Query.Bool.Filter, 4)
	assert.Equal(t, 40, *sr.From)
	assert.Equal(t, 20, *sr.Size)

	opts, ok := sr.Sort[0].(types.SortOptions)
	require.True(t, ok)
	_, ok = opts.SortOptions[model.FieldTimestamp]
	assert.True(t, ok, "unknown sort fields fall back to the timestamp")
}
