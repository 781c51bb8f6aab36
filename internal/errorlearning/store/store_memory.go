// Package store provides fingerprint stores: in-process for tests and single
// instances, PostgreSQL for shared deployments.
package store

import (
	"context"
	"sort"
	"sync"

	"lucy/internal/errorlearning/models"
	"lucy/pkg/platform/sentinel"
)

type entry struct {
	mu  sync.Mutex
	rec *models.Record
}

// InMemoryStore serializes writes per fingerprint. Different fingerprints
// never wait on each other.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]*entry)}
}

func (s *InMemoryStore) slot(id string) *entry {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if ok {
		return e
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[id]; !ok {
		e = &entry{}
		s.entries[id] = e
	}
	return e
}

func (s *InMemoryStore) Upsert(_ context.Context, rec models.Record) (models.Record, error) {
	e := s.slot(rec.ErrorID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rec == nil {
		stored := clone(rec)
		stored.OccurrenceCount = 1
		e.rec = &stored
		return clone(stored), nil
	}
	e.rec.OccurrenceCount++
	if rec.LastOccurred.After(e.rec.LastOccurred) {
		e.rec.LastOccurred = rec.LastOccurred
	}
	return clone(*e.rec), nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (models.Record, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return models.Record{}, sentinel.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec == nil {
		return models.Record{}, sentinel.ErrNotFound
	}
	return clone(*e.rec), nil
}

func (s *InMemoryStore) ListByCount(_ context.Context) ([]models.Record, error) {
	out := s.snapshot(nil)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OccurrenceCount != out[j].OccurrenceCount {
			return out[i].OccurrenceCount > out[j].OccurrenceCount
		}
		return out[i].ErrorID < out[j].ErrorID
	})
	return out, nil
}

func (s *InMemoryStore) ListBySeverity(_ context.Context, severities ...models.Severity) ([]models.Record, error) {
	want := make(map[models.Severity]bool, len(severities))
	for _, sev := range severities {
		want[sev] = true
	}
	out := s.snapshot(func(r *models.Record) bool { return want[r.Severity] })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastOccurred.Equal(out[j].LastOccurred) {
			return out[i].LastOccurred.After(out[j].LastOccurred)
		}
		return out[i].ErrorID < out[j].ErrorID
	})
	return out, nil
}

func (s *InMemoryStore) snapshot(keep func(*models.Record) bool) []models.Record {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]models.Record, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if e.rec != nil && (keep == nil || keep(e.rec)) {
			out = append(out, clone(*e.rec))
		}
		e.mu.Unlock()
	}
	return out
}

func clone(r models.Record) models.Record {
	if r.Context != nil {
		ctx := make(map[string]any, len(r.Context))
		for k, v := range r.Context {
			ctx[k] = v
		}
		r.Context = ctx
	}
	return r
}
