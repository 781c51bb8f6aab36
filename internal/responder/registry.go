package responder

import (
	"sort"
	"sync"

	"lucy/internal/domains"
)

// Registry maps domains to their responders. It is filled at startup and
// read concurrently afterwards.
type Registry struct {
	mu         sync.RWMutex
	responders map[domains.Domain]Responder
}

func NewRegistry(responders ...Responder) *Registry {
	r := &Registry{responders: make(map[domains.Domain]Responder, len(responders))}
	for _, resp := range responders {
		r.responders[resp.Domain()] = resp
	}
	return r
}

// Register replaces any responder already registered for the same domain.
func (r *Registry) Register(resp Responder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responders[resp.Domain()] = resp
}

func (r *Registry) Get(d domains.Domain) (Responder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resp, ok := r.responders[d]
	return resp, ok
}

// List returns responders ordered by domain name.
func (r *Registry) List() []Responder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Responder, 0, len(r.responders))
	for _, resp := range r.responders {
		out = append(out, resp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain() < out[j].Domain() })
	return out
}
