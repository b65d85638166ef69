// Package adapter decides which follower output reaches a consumer and
// flattens events into shippable records.
package adapter

import (
	"versalex-ingest/internal/model"
	"versalex-ingest/internal/publisher"

	"github.com/rs/zerolog/log"
)

// EventFunc consumes one forwarded event.
type EventFunc func(model.Event) error

// Tail drops every event before the first end of file and forwards the rest.
func Tail(fn EventFunc) publisher.Handler {
	skipping := true
	skipped := 0
	return func(it model.Item) error {
		switch {
		case skipping && it.Marker == model.MarkerEOF:
			skipping = false
			log.Info().Int("skipped", skipped).Msg("Reached end of event log, forwarding new events")
		case !it.IsEvent():
		case skipping:
			skipped++
		default:
			return fn(it.Event)
		}
		return nil
	}
}

// Last keeps the final n events seen before the first end of file, hands
// them to fn in order at that end of file and then unsubscribes.
func Last(n int, fn EventFunc) publisher.Handler {
	var ring []model.Event
	return func(it model.Item) error {
		switch {
		case it.Marker == model.MarkerEOF:
			for _, e := range ring {
				if err := fn(e); err != nil {
					log.Warn().Err(err).Msg("Failed to emit buffered event")
				}
			}
			return publisher.ErrUnsubscribe
		case it.IsEvent() && n > 0:
			ring = append(ring, it.Event)
			if len(ring) > n {
				ring = ring[1:]
			}
		}
		return nil
	}
}

// Skip forwards events after dropping the first n. A negative n drops every
// event until the first end of file instead.
func Skip(n int, fn EventFunc) publisher.Handler {
	return func(it model.Item) error {
		if !it.IsEvent() {
			if n < 0 && it.Marker == model.MarkerEOF {
				n = 0
			}
			return nil
		}
		switch {
		case n > 0:
			n--
		case n == 0:
			return fn(it.Event)
		}
		return nil
	}
}

// VersaLexHostField is where an event's own host attribute goes, since host
// names the shipping machine in a record.
const VersaLexHostField = "vlhost"

// ToRecord flattens e into a record from host reading path. Attributes are
// applied after the named fields and may replace them, except host.
func ToRecord(e model.Event, host, path string) model.Record {
	r := model.Record{
		Host:       host,
		Path:       path,
		Type:       e.Type(),
		Thread:     e.Thread,
		ThreadID:   e.ThreadID,
		EventID:    e.ID,
		Message:    e.Message(),
		Timestamp:  e.Time,
		Attributes: make(map[string]string, e.Attributes.Len()),
	}
	e.Attributes.Range(func(k, v string) {
		if k == model.FieldHost {
			k = VersaLexHostField
		}
		if err := r.Set(k, v); err != nil {
			log.Debug().Err(err).Str("attribute", k).Msg("Keeping attribute out of record")
			r.Attributes[k] = v
		}
	})
	return r
}
