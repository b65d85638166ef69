package metrics

import (
	"regexp"
	"versalex-ingest/internal/model"

	"github.com/rs/zerolog/log"
)

// Metric names written to the metrics store.
const (
	EventMetric    = "versalex_event"
	ErrorMetric    = "error_event"
	TransferMetric = "transfer_event"
)

type Extractor interface {
	ExtractMetricEvents(record *model.Record) []model.MetricEvent
}

type versaLexExtractor struct {
	errorText *regexp.Regexp
}

func NewVersaLexExtractor() Extractor {
	return &versaLexExtractor{
		errorText: regexp.MustCompile(`(?i)(exception|error|fail|refused|timed out)`),
	}
}

// isError reports whether the record describes a failure: VersaLex paints
// failures red, and Result/Detail text often names the failure outright.
func (e *versaLexExtractor) isError(record *model.Record) bool {
	if record.Attributes["color"] == "red" || record.Type == "error" {
		return true
	}
	switch record.Type {
	case "Result", "Detail":
		return e.errorText.MatchString(record.Attributes[model.TextKey])
	}
	return false
}

func (e *versaLexExtractor) ExtractMetricEvents(record *model.Record) []model.MetricEvent {
	if record == nil {
		return nil
	}

	host := record.Host
	ts := record.Timestamp
	events := make([]model.MetricEvent, 0, 2)

	events = append(events, model.MetricEvent{
		Time:       ts,
		MetricName: EventMetric,
		Host:       host,
		Tags: map[string]string{
			"type":   record.Type,
			"thread": record.Thread,
		},
	})

	if record.Type == "Transfer" {
		events = append(events, model.MetricEvent{
			Time:       ts,
			MetricName: TransferMetric,
			Host:       host,
			Tags: map[string]string{
				"thread":  record.Thread,
				"bytes":   record.Attributes["bytes"],
				"seconds": record.Attributes["seconds"],
			},
		})
	}

	if e.isError(record) {
		events = append(events, model.MetricEvent{
			Time:       ts,
			MetricName: ErrorMetric,
			Host:       host,
			Tags: map[string]string{
				"type":      record.Type,
				"thread":    record.Thread,
				"error_key": record.Attributes[model.TextKey],
			},
		})
	}

	log.Trace().Str("host", host).Str("eventid", record.EventID).Int("event_count", len(events)).Msg("Extracted metric events")
	return events
}
