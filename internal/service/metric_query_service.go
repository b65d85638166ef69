package service

import (
	"context"
	"fmt"
	"versalex-ingest/internal/dto"
	"versalex-ingest/internal/metrics"
	"versalex-ingest/internal/repository"

	"github.com/rs/zerolog/log"
)

type MetricQueryService interface {
	GetSummary(ctx context.Context, req dto.MetricSummaryRequest) (*dto.MetricSummaryResponse, error)
	GetTimeseries(ctx context.Context, req dto.MetricTimeseriesRequest) (*dto.MetricTimeseriesResponse, error)
	GetHosts(ctx context.Context, req dto.HostListRequest) (*dto.HostListResponse, error)
	GetDistribution(ctx context.Context, req dto.MetricDistributionRequest) (*dto.MetricDistributionResponse, error)
}

type metricQueryService struct {
	metricRepo repository.MetricRepository
}

func NewMetricQueryService(metricRepo repository.MetricRepository) MetricQueryService {
	return &metricQueryService{
		metricRepo: metricRepo,
	}
}

var (
	allowedMetrics = map[string]bool{
		metrics.EventMetric:    true,
		metrics.ErrorMetric:    true,
		metrics.TransferMetric: true,
	}
	allowedIntervals = map[string]bool{
		"1 minute": true, "5 minute": true, "10 minute": true,
		"30 minute": true, "1 hour": true, "1 day": true,
	}
	allowedDimensions = map[string]bool{"type": true, "thread": true, "host": true}
)

func (s *metricQueryService) GetSummary(ctx context.Context, req dto.MetricSummaryRequest) (*dto.MetricSummaryResponse, error) {
	if err := validateRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	log.Info().Time("start", req.StartTime).Time("end", req.EndTime).Strs("hosts", req.Hosts).Msg("Getting summary metrics")
	return s.metricRepo.GetSummaryMetrics(ctx, req)
}

func (s *metricQueryService) GetTimeseries(ctx context.Context, req dto.MetricTimeseriesRequest) (*dto.MetricTimeseriesResponse, error) {
	if err := validateRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if !allowedMetrics[req.MetricName] {
		return nil, fmt.Errorf("invalid metricName: %s", req.MetricName)
	}
	if !allowedIntervals[req.Interval] {
		return nil, fmt.Errorf("invalid interval: %s", req.Interval)
	}
	if req.GroupBy == "" {
		req.GroupBy = "total"
	}
	if req.GroupBy != "total" && !allowedDimensions[req.GroupBy] {
		return nil, fmt.Errorf("invalid groupBy: %s", req.GroupBy)
	}

	log.Info().
		Time("start", req.StartTime).
		Time("end", req.EndTime).
		Strs("hosts", req.Hosts).
		Str("metric", req.MetricName).
		Str("interval", req.Interval).
		Str("group_by", req.GroupBy).
		Msg("Getting timeseries metrics")

	return s.metricRepo.GetTimeseriesMetrics(ctx, req)
}

func (s *metricQueryService) GetHosts(ctx context.Context, req dto.HostListRequest) (*dto.HostListResponse, error) {
	if err := validateRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	log.Info().Time("start", req.StartTime).Time("end", req.EndTime).Msg("Getting distinct hosts")
	return s.metricRepo.GetDistinctHosts(ctx, req)
}

func (s *metricQueryService) GetDistribution(ctx context.Context, req dto.MetricDistributionRequest) (*dto.MetricDistributionResponse, error) {
	if err := validateRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if !allowedMetrics[req.MetricName] {
		return nil, fmt.Errorf("invalid metricName: %s", req.MetricName)
	}
	if !allowedDimensions[req.Dimension] {
		return nil, fmt.Errorf("invalid dimension: %s", req.Dimension)
	}
	log.Info().Str("metric", req.MetricName).Str("dimension", req.Dimension).Msg("Getting metric distribution")
	return s.metricRepo.GetDistributionMetrics(ctx, req)
}
