package dto

import "time"

type MetricSummaryRequest struct {
	StartTime time.Time
	EndTime   time.Time
	Hosts     []string
}

type MetricTimeseriesRequest struct {
	StartTime  time.Time
	EndTime    time.Time
	Hosts      []string
	MetricName string // e.g. "versalex_event", "error_event", "transfer_event"
	Interval   string // e.g. "5 minute", "1 hour"
	GroupBy    string // e.g. "type", "thread", "host"
}

type HostListRequest struct {
	StartTime time.Time
	EndTime   time.Time
}

type MetricDistributionRequest struct {
	StartTime  time.Time
	EndTime    time.Time
	Hosts      []string
	MetricName string
	Dimension  string // "type", "thread", "host"
}
