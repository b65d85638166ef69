package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"versalex-ingest/internal/dto"
	"versalex-ingest/internal/repository"

	"github.com/rs/zerolog/log"
)

type EventQueryService interface {
	SearchEvents(ctx context.Context, req dto.EventSearchRequest) (*dto.EventSearchResponse, error)
}

type eventQueryService struct {
	eventRepo repository.EventRepository
}

func NewEventQueryService(eventRepo repository.EventRepository) EventQueryService {
	return &eventQueryService{
		eventRepo: eventRepo,
	}
}

func validateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return errors.New("startTime and endTime are required")
	}
	if end.Before(start) {
		return errors.New("endTime cannot be before startTime")
	}
	return nil
}

func (s *eventQueryService) SearchEvents(ctx context.Context, req dto.EventSearchRequest) (*dto.EventSearchResponse, error) {
	if err := validateRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Size <= 0 || req.Size > 1000 {
		req.Size = 500
	}
	if req.SortBy == "" {
		req.SortBy = "@timestamp"
	}
	req.SortOrder = strings.ToLower(req.SortOrder)
	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		req.SortOrder = "desc"
	}

	log.Info().
		Time("start_time", req.StartTime).
		Time("end_time", req.EndTime).
		Str("query", req.Query).
		Strs("types", req.Types).
		Strs("threads", req.Threads).
		Strs("hosts", req.Hosts).
		Int("page", req.Page).
		Int("size", req.Size).
		Msg("Searching events")

	return s.eventRepo.Search(ctx, req)
}
