package model

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Record field names shared with the downstream index mapping.
const (
	FieldHost      = "host"
	FieldPath      = "path"
	FieldType      = "type"
	FieldThread    = "thread"
	FieldThreadID  = "threadid"
	FieldEventID   = "eventid"
	FieldMessage   = "message"
	FieldTimestamp = "@timestamp"
)

// Record is the flat, shippable form of an Event.
type Record struct {
	Host      string
	Path      string
	Type      string
	Thread    string
	ThreadID  string
	EventID   string
	Message   string
	Timestamp time.Time
	// Attributes holds every event attribute that is not folded into a named field.
	Attributes map[string]string
}

// Fields flattens the record into a single string map.
func (r Record) Fields() map[string]string {
	m := make(map[string]string, len(r.Attributes)+8)
	for k, v := range r.Attributes {
		m[k] = v
	}
	m[FieldHost] = r.Host
	m[FieldPath] = r.Path
	m[FieldType] = r.Type
	m[FieldThread] = r.Thread
	m[FieldThreadID] = r.ThreadID
	m[FieldEventID] = r.EventID
	m[FieldMessage] = r.Message
	m[FieldTimestamp] = r.Timestamp.Format(TimeLayout)
	return m
}

// Set assigns a named field, or an attribute when k is not a named field.
func (r *Record) Set(k, v string) error {
	switch k {
	case FieldHost:
		r.Host = v
	case FieldPath:
		r.Path = v
	case FieldType:
		r.Type = v
	case FieldThread:
		r.Thread = v
	case FieldThreadID:
		r.ThreadID = v
	case FieldEventID:
		r.EventID = v
	case FieldMessage:
		r.Message = v
	case FieldTimestamp:
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", FieldTimestamp, v, err)
		}
		r.Timestamp = ts
	default:
		if r.Attributes == nil {
			r.Attributes = make(map[string]string)
		}
		r.Attributes[k] = v
	}
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]string
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*r = Record{}
	for k, v := range fields {
		if err := r.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}
