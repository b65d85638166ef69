package repository

import (
	"context"
	"versalex-ingest/internal/dto"
)

type EventRepository interface {
	Search(ctx context.Context, req dto.EventSearchRequest) (*dto.EventSearchResponse, error)
}
