// Package parser turns extracted VersaLex log fragments into model.Event
// values, keeping a thread registry up to date as it goes.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
	"versalex-ingest/internal/model"
	"versalex-ingest/internal/threads"
)

var (
	ErrUnrecognizedFragment = errors.New("unrecognized fragment")
	ErrNoEventKind          = errors.New("event has no kind element")
	ErrNoMark               = errors.New("event has no Mark element")
	ErrBadDate              = errors.New("bad date")
)

// EventParser parses one fragment into an Event.
type EventParser interface {
	Parse(fragment []byte) (model.Event, error)
}

type Option func(*XMLParser)

// WithLocation sets the time zone fragment dates are read in. Default is time.Local.
func WithLocation(loc *time.Location) Option {
	return func(p *XMLParser) {
		p.loc = loc
	}
}

// XMLParser parses <Run> and <Event> fragments. It is not safe for concurrent
// use; each follower owns one, along with the registry it feeds.
type XMLParser struct {
	registry *threads.Registry
	loc      *time.Location
}

func NewXMLParser(registry *threads.Registry, opts ...Option) *XMLParser {
	p := &XMLParser{registry: registry, loc: time.Local}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var threadNumberAttr = regexp.MustCompile(`^TN\d+`)

const placeholderText = "-"

// Parse decodes a whole fragment before touching the registry, so a fragment
// that fails to parse leaves the registry as it was.
func (p *XMLParser) Parse(fragment []byte) (model.Event, error) {
	root, err := decodeTree(fragment)
	if err != nil {
		return model.Event{}, err
	}

	switch root.Name {
	case "Run":
		return p.parseRun(root)
	case "Event":
		return p.parseEvent(root)
	default:
		return model.Event{}, fmt.Errorf("%w: <%s>", ErrUnrecognizedFragment, root.Name)
	}
}

// <Run TN1234="Local Listener" date="2024/01/02 03:04:05" ...>
func (p *XMLParser) parseRun(root *element) (model.Event, error) {
	date, _ := root.attr("date")
	t, err := p.parseDate(date)
	if err != nil {
		return model.Event{}, err
	}

	ev := model.Event{Kind: model.KindRun, Tag: "Run", Time: t}
	for _, a := range root.Attrs {
		if threadNumberAttr.MatchString(a.Name.Local) {
			p.registry.Set(a.Name.Local[2:], a.Value)
			break
		}
	}
	return ev, nil
}

// <Event><Mark date=".." TN=".." CN=".." EN=".."/><Detail level="1">text</Detail></Event>
func (p *XMLParser) parseEvent(root *element) (model.Event, error) {
	var ev model.Event
	var kindElement *element
	var mark *element
	for _, child := range root.Children {
		if child.Name == "Mark" {
			mark = child
			continue
		}
		kindElement = child
	}
	if kindElement == nil {
		return model.Event{}, ErrNoEventKind
	}
	if mark == nil {
		return model.Event{}, ErrNoMark
	}

	date, _ := mark.attr("date")
	t, err := p.parseDate(date)
	if err != nil {
		return model.Event{}, err
	}
	ev.Time = t
	ev.ThreadID, _ = mark.attr("TN")
	ev.Command, _ = mark.attr("CN")
	ev.ID, _ = mark.attr("EN")
	ev.Thread, _ = p.registry.Lookup(ev.ThreadID)

	ev.Tag = kindElement.Name
	ev.Kind = model.KindOf(kindElement.Name)
	ev.Attributes = model.NewAttributes()
	for _, a := range kindElement.Attrs {
		if a.Name.Local == model.TextKey && a.Value == placeholderText {
			continue
		}
		ev.Attributes.Set(a.Name.Local, a.Value)
	}
	if kindElement.HasText {
		ev.Attributes.Append(model.TextKey, kindElement.Text)
	}

	switch ev.Kind {
	case model.KindThread:
		action, _ := ev.Attributes.Get("action")
		p.registry.Set(ev.ThreadID, action)
		ev.Thread = action
	case model.KindResponse:
		host, _ := ev.Attributes.Get("host")
		text, _ := ev.Attributes.Get(model.TextKey)
		ev.Attributes.Set(model.TextKey, host+text)
		ev.Attributes.Delete("host")
	case model.KindEnd:
		p.registry.Delete(ev.ThreadID)
	}
	return ev, nil
}

var digitGroups = regexp.MustCompile(`\d+`)

// parseDate reads "YYYY/MM/DD HH:MM:SS" by its digit groups, so any separators
// work. Missing trailing groups default to the start of the period.
func (p *XMLParser) parseDate(s string) (time.Time, error) {
	groups := digitGroups.FindAllString(s, 6)
	if len(groups) == 0 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	parts := [6]int{0, 1, 1, 0, 0, 0}
	for i, g := range groups {
		n, err := strconv.Atoi(g)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q: %v", ErrBadDate, s, err)
		}
		parts[i] = n
	}
	return time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], 0, p.loc), nil
}
