// Package publisher delivers follower output to subscribers synchronously and
// in order.
package publisher

import (
	"errors"
	"sync"
	"versalex-ingest/internal/model"

	"github.com/rs/zerolog/log"
)

// ErrUnsubscribe may be returned by a Handler to stop receiving items.
var ErrUnsubscribe = errors.New("unsubscribe")

// Handler receives one item at a time. A slow handler stalls the publisher.
type Handler func(model.Item) error

type subscription struct {
	id      uint64
	handler Handler
}

// Publisher fans items out to its subscribers in subscription order. Handlers
// may subscribe or cancel from inside a delivery; the change applies from the
// next item on.
type Publisher struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscription
}

func New() *Publisher {
	return &Publisher{}
}

// Subscribe appends h to the subscriber list and returns a func that removes it.
func (p *Publisher) Subscribe(h Handler) (cancel func()) {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.subs = append(p.subs, subscription{id: id, handler: h})
	p.mu.Unlock()

	return func() { p.remove(id) }
}

func (p *Publisher) remove(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, s := range p.subs {
		if s.id == id {
			p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
			return
		}
	}
}

func (p *Publisher) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Publish hands item to every current subscriber before returning.
func (p *Publisher) Publish(item model.Item) {
	p.mu.Lock()
	subs := p.subs
	p.mu.Unlock()

	for _, s := range subs {
		err := s.handler(item)
		switch {
		case err == nil:
		case errors.Is(err, ErrUnsubscribe):
			p.remove(s.id)
		default:
			log.Warn().Err(err).Str("item", item.Marker.String()).Msg("Subscriber failed to handle item")
		}
	}
}
