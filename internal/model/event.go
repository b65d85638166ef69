package model

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the element kind of a parsed VersaLex log fragment.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindRun
	KindThread
	KindCommand
	KindDetail
	KindHint
	KindRequest
	KindIncoming
	KindFile
	KindTransfer
	KindResponse
	KindResult
	KindEnd
)

var kindNames = map[Kind]string{
	KindRun:      "Run",
	KindThread:   "Thread",
	KindCommand:  "Command",
	KindDetail:   "Detail",
	KindHint:     "Hint",
	KindRequest:  "Request",
	KindIncoming: "Incoming",
	KindFile:     "File",
	KindTransfer: "Transfer",
	KindResponse: "Response",
	KindResult:   "Result",
	KindEnd:      "End",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// KindOf maps an element tag name to its Kind. Unseen tags map to KindUnknown.
func KindOf(tag string) Kind {
	return kindsByName[tag]
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Event is one parsed log entry. Events are values; subscribers must not
// modify the Attributes they receive.
type Event struct {
	Kind Kind
	// Tag is the element name the event was parsed from. For KindUnknown it is
	// the only record of what the element was.
	Tag      string
	Time     time.Time
	ThreadID string
	Command  string
	ID       string
	Thread   string
	// Attributes is nil for Run events and non-nil for every other kind.
	Attributes *Attributes
}

// Type returns the tag name of the event, e.g. "Run" or "Transfer".
func (e Event) Type() string {
	if e.Tag != "" {
		return e.Tag
	}
	return e.Kind.String()
}

// Message renders the event on one line without id and time:
//
//	Local Listener[12] Detail: level='1': connection accepted
func (e Event) Message() string {
	var msg string
	if e.Attributes != nil {
		pairs := make([]string, 0, e.Attributes.Len())
		e.Attributes.Range(func(k, v string) {
			if k != TextKey {
				pairs = append(pairs, fmt.Sprintf("%s='%s'", k, v))
			}
		})
		msg = strings.Join(pairs, " ")
		if text, ok := e.Attributes.Get(TextKey); ok {
			if msg != "" {
				msg += ": "
			}
			msg += text
		}
	}
	if msg != "" {
		msg = ": " + msg
	}
	ref := e.Command
	if ref == "" {
		ref = e.ThreadID
	}
	return fmt.Sprintf("%s[%s] %s%s", e.Thread, ref, e.Type(), msg)
}

// TimeLayout is the ISO-8601 layout used when an event time is rendered.
const TimeLayout = "2006-01-02T15:04:05-07:00"

// String renders the event the way the VersaLex UI lists it: id, time, message.
func (e Event) String() string {
	return fmt.Sprintf("%s/%s %s", e.ID, e.Time.Format(TimeLayout), e.Message())
}

// Marker identifies a lifecycle notification published alongside events.
type Marker uint8

const (
	// MarkerNone means the Item carries an Event.
	MarkerNone Marker = iota
	// MarkerEOF fires every time the follower catches up with the end of the current file.
	MarkerEOF
	// MarkerRotated fires once per detected rotation, before the first event of the new file.
	MarkerRotated
)

func (m Marker) String() string {
	switch m {
	case MarkerEOF:
		return "eof"
	case MarkerRotated:
		return "next"
	default:
		return "event"
	}
}

// Item is one notification delivered to subscribers.
type Item struct {
	Marker Marker
	Event  Event
}

// EventItem wraps an event for publishing.
func EventItem(e Event) Item {
	return Item{Marker: MarkerNone, Event: e}
}

// MarkerItem builds a lifecycle notification.
func MarkerItem(m Marker) Item {
	return Item{Marker: m}
}

// IsEvent reports whether the item carries an Event rather than a marker.
func (i Item) IsEvent() bool {
	return i.Marker == MarkerNone
}
