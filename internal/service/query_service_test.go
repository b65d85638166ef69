package service

import (
	"context"
	"testing"
	"time"

	"versalex-ingest/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventRepo struct {
	got dto.EventSearchRequest
}

func (r *fakeEventRepo) Search(_ context.Context, req dto.EventSearchRequest) (*dto.EventSearchResponse, error) {
	r.got = req
	return &dto.EventSearchResponse{Page: req.Page, Size: req.Size}, nil
}

type fakeMetricRepo struct {
	timeseries dto.MetricTimeseriesRequest
}

func (r *fakeMetricRepo) GetSummaryMetrics(context.Context, dto.MetricSummaryRequest) (*dto.MetricSummaryResponse, error) {
	return &dto.MetricSummaryResponse{TotalEvents: 1}, nil
}

func (r *fakeMetricRepo) GetTimeseriesMetrics(_ context.Context, req dto.MetricTimeseriesRequest) (*dto.MetricTimeseriesResponse, error) {
	r.timeseries = req
	return &dto.MetricTimeseriesResponse{}, nil
}

func (r *fakeMetricRepo) GetDistinctHosts(context.Context, dto.HostListRequest) (*dto.HostListResponse, error) {
	return &dto.HostListResponse{Hosts: []string{"ship01"}}, nil
}

func (r *fakeMetricRepo) GetDistributionMetrics(_ context.Context, req dto.MetricDistributionRequest) (*dto.MetricDistributionResponse, error) {
	return &dto.MetricDistributionResponse{MetricName: req.MetricName, Dimension: req.Dimension}, nil
}

var (
	start = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	end   = start.Add(time.Hour)
)

func TestSearchEventsDefaults(t *testing.T) {
	repo := &fakeEventRepo{}
	_, err := NewEventQueryService(repo).SearchEvents(context.Background(), dto.EventSearchRequest{
		StartTime: start, EndTime: end, Size: 5000, SortOrder: "ASC",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.got.Page)
	assert.Equal(t, 500, repo.got.Size)
	assert.Equal(t, "@timestamp", repo.got.SortBy)
	assert.Equal(t, "asc", repo.got.SortOrder)
}

func TestSearchEventsRejectsBadRange(t *testing.T) {
	svc := NewEventQueryService(&fakeEventRepo{})
	_, err := svc.SearchEvents(context.Background(), dto.EventSearchRequest{})
	assert.EqualError(t, err, "startTime and endTime are required")

	_, err = svc.SearchEvents(context.Background(), dto.EventSearchRequest{StartTime: end, EndTime: start})
	assert.EqualError(t, err, "endTime cannot be before startTime")
}

func TestGetTimeseriesValidation(t *testing.T) {
	repo := &fakeMetricRepo{}
	svc := NewMetricQueryService(repo)
	ctx := context.Background()

	_, err := svc.GetTimeseries(ctx, dto.MetricTimeseriesRequest{StartTime: start, EndTime: end, MetricName: "log_event", Interval: "1 hour"})
	assert.EqualError(t, err, "invalid metricName: log_event")

	_, err = svc.GetTimeseries(ctx, dto.MetricTimeseriesRequest{StartTime: start, EndTime: end, MetricName: "transfer_event", Interval: "2 hour"})
	assert.EqualError(t, err, "invalid interval: 2 hour")

	_, err = svc.GetTimeseries(ctx, dto.MetricTimeseriesRequest{StartTime: start, EndTime: end, MetricName: "transfer_event", Interval: "1 hour", GroupBy: "level"})
	assert.EqualError(t, err, "invalid groupBy: level")

	_, err = svc.GetTimeseries(ctx, dto.MetricTimeseriesRequest{StartTime: start, EndTime: end, MetricName: "error_event", Interval: "1 hour"})
	require.NoError(t, err)
	assert.Equal(t, "total", repo.timeseries.GroupBy)
}

func TestGetDistributionValidation(t *testing.T) {
	svc := NewMetricQueryService(&fakeMetricRepo{})
	_, err := svc.GetDistribution(context.Background(), dto.MetricDistributionRequest{StartTime: start, EndTime: end, MetricName: "versalex_event", Dimension: "level"})
	assert.EqualError(t, err, "invalid dimension: level")

	res, err := svc.GetDistribution(context.Background(), dto.MetricDistributionRequest{StartTime: start, EndTime: end, MetricName: "versalex_event", Dimension: "thread"})
	require.NoError(t, err)
	assert.Equal(t, "thread", res.Dimension)
}
