// Package threads tracks the human-readable names VersaLex gives to its
// worker threads, keyed by thread number.
package threads

import (
	"sort"
	"sync"
)

// Registry maps a thread id to a thread name. A Registry belongs to exactly
// one follower; it is written only by that follower's loop. The lock lets
// status readers take snapshots while the loop is running.
type Registry struct {
	mu    sync.RWMutex
	names map[string]string
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[string]string)}
}

func (r *Registry) Set(id, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[id] = name
}

// Lookup returns the name registered for id, or "" when the thread is unknown.
func (r *Registry) Lookup(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[id]
	return name, ok
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.names, id)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Thread is one registry entry.
type Thread struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Snapshot returns the current entries ordered by id.
func (r *Registry) Snapshot() []Thread {
	r.mu.RLock()
	out := make([]Thread, 0, len(r.names))
	for id, name := range r.names {
		out = append(out, Thread{ID: id, Name: name})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if len(out[i].ID) != len(out[j].ID) {
			return len(out[i].ID) < len(out[j].ID)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
