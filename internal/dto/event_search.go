package dto

import (
	"time"
	"versalex-ingest/internal/model"
)

type EventSearchRequest struct {
	StartTime time.Time
	EndTime   time.Time
	Query     string
	Types     []string
	Threads   []string
	Hosts     []string
	SortBy    string
	SortOrder string
	Page      int
	Size      int
}

type EventSearchResponse struct {
	Events     []model.Record `json:"events"`
	TotalCount int64          `json:"totalCount"`
	Page       int            `json:"page"`
	Size       int            `json:"size"`
}
