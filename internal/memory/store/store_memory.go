// Package store provides the memory record stores: an in-process store that
// serves all reads, and a Redis store used as durable backing.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"lucy/internal/memory/models"
	"lucy/pkg/platform/sentinel"
)

type namespace struct {
	mu         sync.Mutex
	info       models.Namespace
	records    []models.Record
	categories map[string]int
	seq        uint64
}

// InMemoryStore keeps each namespace behind its own lock, so writes to
// different namespaces never contend.
type InMemoryStore struct {
	mu         sync.RWMutex
	namespaces map[string]*namespace
	now        func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		namespaces: make(map[string]*namespace),
		now:        time.Now,
	}
}

func (s *InMemoryStore) lookup(name string) (*namespace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.namespaces[name]
	return ns, ok
}

func (s *InMemoryStore) ensure(name, description string) (*namespace, bool) {
	if ns, ok := s.lookup(name); ok {
		return ns, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok := s.namespaces[name]; ok {
		return ns, false
	}
	ns := &namespace{
		info:       models.Namespace{Name: name, Description: description, CreatedAt: s.now()},
		categories: make(map[string]int),
	}
	s.namespaces[name] = ns
	return ns, true
}

// CreateNamespace reports whether the namespace was newly created.
func (s *InMemoryStore) CreateNamespace(_ context.Context, name, description string) (models.Namespace, bool, error) {
	ns, created := s.ensure(name, description)
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return ns.info, created, nil
}

// Add appends a record, creating the namespace on first use. The category
// counter moves under the same lock as the append.
func (s *InMemoryStore) Add(_ context.Context, name, content, category string, metadata map[string]any) (models.Record, error) {
	ns, _ := s.ensure(name, "")
	ns.mu.Lock()
	defer ns.mu.Unlock()

	ns.seq++
	if metadata == nil {
		metadata = map[string]any{}
	}
	rec := models.Record{
		ID:        models.RecordID(name, ns.seq),
		Namespace: name,
		Content:   content,
		Category:  category,
		CreatedAt: s.now(),
		Metadata:  metadata,
	}.Clone()
	ns.records = append(ns.records, rec)
	ns.categories[category]++
	return rec.Clone(), nil
}

// Search returns matches in append order. A missing namespace yields no
// records.
func (s *InMemoryStore) Search(_ context.Context, q models.Query) ([]models.Record, error) {
	ns, ok := s.lookup(q.Namespace)
	if !ok {
		return []models.Record{}, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = models.DefaultSearchLimit
	}
	text := strings.ToLower(q.Text)

	ns.mu.Lock()
	defer ns.mu.Unlock()
	out := make([]models.Record, 0, min(limit, len(ns.records)))
	for _, rec := range ns.records {
		if q.Category != "" && rec.Category != q.Category {
			continue
		}
		if text != "" && !strings.Contains(strings.ToLower(rec.Content), text) {
			continue
		}
		out = append(out, rec.Clone())
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) Get(_ context.Context, name, id string) (models.Record, error) {
	ns, ok := s.lookup(name)
	if !ok {
		return models.Record{}, sentinel.ErrNotFound
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	i := ns.index(id)
	if i < 0 {
		return models.Record{}, sentinel.ErrNotFound
	}
	return ns.records[i].Clone(), nil
}

// Update replaces the content when non-empty and merges metadata.
func (s *InMemoryStore) Update(_ context.Context, name, id, content string, metadata map[string]any) (models.Record, error) {
	ns, ok := s.lookup(name)
	if !ok {
		return models.Record{}, sentinel.ErrNotFound
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	i := ns.index(id)
	if i < 0 {
		return models.Record{}, sentinel.ErrNotFound
	}
	rec := ns.records[i].Clone()
	if content != "" {
		rec.Content = content
	}
	if rec.Metadata == nil {
		rec.Metadata = map[string]any{}
	}
	for k, v := range metadata {
		rec.Metadata[k] = v
	}
	ns.records[i] = rec
	return rec.Clone(), nil
}

// Delete removes a record and returns it. Its id is never handed out again.
func (s *InMemoryStore) Delete(_ context.Context, name, id string) (models.Record, error) {
	ns, ok := s.lookup(name)
	if !ok {
		return models.Record{}, sentinel.ErrNotFound
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	i := ns.index(id)
	if i < 0 {
		return models.Record{}, sentinel.ErrNotFound
	}
	rec := ns.records[i]
	ns.records = append(ns.records[:i:i], ns.records[i+1:]...)
	if ns.categories[rec.Category] > 1 {
		ns.categories[rec.Category]--
	} else {
		delete(ns.categories, rec.Category)
	}
	return rec, nil
}

func (s *InMemoryStore) Stats(_ context.Context, name string) (models.Stats, error) {
	ns, ok := s.lookup(name)
	if !ok {
		return models.Stats{}, sentinel.ErrNotFound
	}
	return ns.stats(), nil
}

func (s *InMemoryStore) AllStats(_ context.Context) (map[string]models.Stats, error) {
	out := make(map[string]models.Stats)
	for _, name := range s.names() {
		if ns, ok := s.lookup(name); ok {
			out[name] = ns.stats()
		}
	}
	return out, nil
}

// Namespaces lists namespace names in sorted order.
func (s *InMemoryStore) Namespaces(_ context.Context) ([]string, error) {
	return s.names(), nil
}

func (s *InMemoryStore) names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.namespaces))
	for name := range s.namespaces {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *InMemoryStore) Export(_ context.Context, name string) (models.Snapshot, error) {
	ns, ok := s.lookup(name)
	if !ok {
		return models.Snapshot{}, sentinel.ErrNotFound
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	snap := models.Snapshot{
		Namespace:  ns.info,
		Memories:   make([]models.Record, len(ns.records)),
		Categories: make(map[string]int, len(ns.categories)),
		Seq:        ns.seq,
	}
	for i, rec := range ns.records {
		snap.Memories[i] = rec.Clone()
	}
	for k, v := range ns.categories {
		snap.Categories[k] = v
	}
	return snap, nil
}

// Import replaces the namespace wholesale with snap. The sequence never moves
// backwards, so ids handed out before the import stay retired.
func (s *InMemoryStore) Import(_ context.Context, snap models.Snapshot) (models.Snapshot, error) {
	ns, _ := s.ensure(snap.Name, snap.Description)
	ns.mu.Lock()
	defer ns.mu.Unlock()

	seq := max(ns.seq, snap.Seq)
	records := make([]models.Record, 0, len(snap.Memories))
	categories := make(map[string]int)
	for _, rec := range snap.Memories {
		rec = rec.Clone()
		rec.Namespace = snap.Name
		if n, err := models.SeqOf(snap.Name, rec.ID); err == nil {
			seq = max(seq, n)
		} else {
			seq++
			rec.ID = models.RecordID(snap.Name, seq)
		}
		if rec.Metadata == nil {
			rec.Metadata = map[string]any{}
		}
		records = append(records, rec)
		categories[rec.Category]++
	}

	ns.records = records
	ns.categories = categories
	ns.seq = seq
	if snap.Description != "" {
		ns.info.Description = snap.Description
	}
	if !snap.CreatedAt.IsZero() {
		ns.info.CreatedAt = snap.CreatedAt
	}

	out := models.Snapshot{
		Namespace:  ns.info,
		Memories:   make([]models.Record, len(records)),
		Categories: make(map[string]int, len(categories)),
		Seq:        seq,
	}
	for i, rec := range records {
		out.Memories[i] = rec.Clone()
	}
	for k, v := range categories {
		out.Categories[k] = v
	}
	return out, nil
}

func (ns *namespace) index(id string) int {
	for i := range ns.records {
		if ns.records[i].ID == id {
			return i
		}
	}
	return -1
}

func (ns *namespace) stats() models.Stats {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	cats := make(map[string]int, len(ns.categories))
	for k, v := range ns.categories {
		cats[k] = v
	}
	return models.Stats{
		Namespace:     ns.info.Name,
		Description:   ns.info.Description,
		TotalMemories: len(ns.records),
		Categories:    cats,
		CreatedAt:     ns.info.CreatedAt,
	}
}
