// Package memory is the namespaced record store used by every role: the
// orchestrator's interaction log, the error-learning mirror, and the
// assistants' learnings.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"lucy/internal/memory/metrics"
	"lucy/internal/memory/models"
	dErrors "lucy/pkg/domain-errors"
	"lucy/pkg/platform/replay"
	"lucy/pkg/platform/sentinel"
	"lucy/pkg/requestcontext"
)

// ErrPersistence means the write is visible in memory but has not reached
// durable storage yet. The write stays queued for replay unless the error
// also says the queue was full.
var ErrPersistence = fmt.Errorf("memory write not persisted: %w", sentinel.ErrUnavailable)

const defaultPerNamespace = 5

var namespacePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// Service fronts the in-process store and mirrors writes to durable storage
// when one is configured.
type Service struct {
	store   Store
	durable Durable
	replay  *replay.Queue
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

// WithDurable mirrors writes to d. Failed writes are parked on q.
func WithDurable(d Durable, q *replay.Queue) Option {
	return func(s *Service) {
		s.durable = d
		s.replay = q
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.durable != nil && s.replay == nil {
		s.replay = replay.New(replay.WithLogger(s.logger))
	}
	return s
}

// Warm loads durable namespaces into the store. It returns how many were
// loaded.
func (s *Service) Warm(ctx context.Context) (int, error) {
	if s.durable == nil {
		return 0, nil
	}
	snaps, err := s.durable.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load durable memory: %w", err)
	}
	for _, snap := range snaps {
		if _, err := s.store.Import(ctx, snap); err != nil {
			return 0, fmt.Errorf("warm namespace %s: %w", snap.Name, err)
		}
	}
	return len(snaps), nil
}

func (s *Service) CreateNamespace(ctx context.Context, name, description string) (*models.Namespace, error) {
	if err := validateNamespace(name); err != nil {
		return nil, err
	}
	info, created, err := s.store.CreateNamespace(ctx, name, description)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create namespace")
	}
	if created {
		err = s.persist(ctx, "create_namespace", func(ctx context.Context) error {
			return s.durable.SaveNamespace(ctx, info)
		})
	}
	return &info, err
}

// Add appends a record. A non-nil record with ErrPersistence means the record
// is stored but not yet durable.
func (s *Service) Add(ctx context.Context, namespace, content, category string, metadata map[string]any) (*models.Record, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "content is required")
	}
	if strings.TrimSpace(category) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "category is required")
	}

	rec, err := s.store.Add(ctx, namespace, content, category, metadata)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add memory")
	}
	s.metrics.IncWrite("add", category)

	durable := rec.Clone()
	err = s.persist(ctx, "append "+rec.ID, func(ctx context.Context) error {
		return s.durable.Append(ctx, durable)
	})
	return &rec, err
}

func (s *Service) Search(ctx context.Context, q models.Query) ([]models.Record, error) {
	if err := validateNamespace(q.Namespace); err != nil {
		return nil, err
	}
	records, err := s.store.Search(ctx, q)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search memories")
	}
	return records, nil
}

func (s *Service) Get(ctx context.Context, namespace, id string) (*models.Record, error) {
	rec, err := s.store.Get(ctx, namespace, id)
	if err != nil {
		return nil, translate(err, "memory not found")
	}
	return &rec, nil
}

// Update replaces the content when non-empty and merges metadata into the
// existing record.
func (s *Service) Update(ctx context.Context, namespace, id, content string, metadata map[string]any) (*models.Record, error) {
	rec, err := s.store.Update(ctx, namespace, id, content, metadata)
	if err != nil {
		return nil, translate(err, "memory not found")
	}
	s.metrics.IncWrite("update", rec.Category)

	durable := rec.Clone()
	err = s.persist(ctx, "put "+rec.ID, func(ctx context.Context) error {
		return s.durable.Put(ctx, durable)
	})
	return &rec, err
}

func (s *Service) Delete(ctx context.Context, namespace, id string) error {
	rec, err := s.store.Delete(ctx, namespace, id)
	if err != nil {
		return translate(err, "memory not found")
	}
	s.metrics.IncWrite("delete", rec.Category)
	return s.persist(ctx, "remove "+rec.ID, func(ctx context.Context) error {
		return s.durable.Remove(ctx, rec)
	})
}

func (s *Service) Stats(ctx context.Context, namespace string) (*models.Stats, error) {
	stats, err := s.store.Stats(ctx, namespace)
	if err != nil {
		return nil, translate(err, "namespace not found")
	}
	return &stats, nil
}

func (s *Service) AllStats(ctx context.Context) (map[string]models.Stats, error) {
	stats, err := s.store.AllStats(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to collect memory stats")
	}
	return stats, nil
}

// SearchAcross runs the same text search in several namespaces. A nil list
// means every namespace.
func (s *Service) SearchAcross(ctx context.Context, text string, namespaces []string, perNamespace int) (map[string][]models.Record, error) {
	if perNamespace <= 0 {
		perNamespace = defaultPerNamespace
	}
	if namespaces == nil {
		all, err := s.store.Namespaces(ctx)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list namespaces")
		}
		namespaces = all
	}
	out := make(map[string][]models.Record, len(namespaces))
	for _, ns := range namespaces {
		records, err := s.Search(ctx, models.Query{Namespace: ns, Text: text, Limit: perNamespace})
		if err != nil {
			return nil, err
		}
		out[ns] = records
	}
	return out, nil
}

func (s *Service) Export(ctx context.Context, namespace string) (*models.Snapshot, error) {
	snap, err := s.store.Export(ctx, namespace)
	if err != nil {
		return nil, translate(err, "namespace not found")
	}
	return &snap, nil
}

// Import replaces namespace with the snapshot's records.
func (s *Service) Import(ctx context.Context, namespace string, snap models.Snapshot) (*models.Snapshot, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}
	snap.Name = namespace
	result, err := s.store.Import(ctx, snap)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to import namespace")
	}
	s.metrics.IncWrite("import", "")

	err = s.persist(ctx, "replace "+namespace, func(ctx context.Context) error {
		return s.durable.Replace(ctx, result)
	})
	return &result, err
}

// persist mirrors a committed write. While a backlog exists new writes queue
// behind it, so durable storage sees them in commit order.
func (s *Service) persist(ctx context.Context, name string, do func(ctx context.Context) error) error {
	if s.durable == nil {
		return nil
	}

	var cause error
	if s.replay.Len() > 0 {
		cause = errors.New("earlier writes pending replay")
	} else if cause = do(ctx); cause == nil {
		return nil
	}

	s.metrics.IncPersistenceFailure(strings.Fields(name)[0])
	if !s.replay.Enqueue(replay.Op{Name: name, Do: do}) {
		s.logger.ErrorContext(ctx, "memory replay queue full, durable write lost",
			"request_id", requestcontext.RequestID(ctx),
			"op", name,
			"error", cause,
		)
		return fmt.Errorf("%w: %s: replay queue full: %w", ErrPersistence, name, cause)
	}
	s.logger.WarnContext(ctx, "durable memory write deferred",
		"request_id", requestcontext.RequestID(ctx),
		"op", name,
		"backlog", s.replay.Len(),
		"error", cause,
	)
	return fmt.Errorf("%w: %s: %w", ErrPersistence, name, cause)
}

// Replay returns the queue holding deferred durable writes, or nil.
func (s *Service) Replay() *replay.Queue {
	return s.replay
}

func validateNamespace(name string) error {
	if !namespacePattern.MatchString(name) {
		return dErrors.New(dErrors.CodeValidation, "namespace must be 1-64 characters of letters, digits, '_', '-' or '.'")
	}
	return nil
}

func translate(err error, notFound string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, notFound)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "memory operation failed")
}
