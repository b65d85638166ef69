package model

import "time"

type MetricEvent struct {
	Time       time.Time         `json:"time"`
	MetricName string            `json:"metric_name"`
	Host       string            `json:"host"`
	Tags       map[string]string `json:"tags"`
}
