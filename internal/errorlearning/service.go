// Package errorlearning records operational mistakes under a content
// fingerprint, counts repeats, and warns before an action that resembles an
// earlier failure.
package errorlearning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"lucy/internal/domains"
	"lucy/internal/errorlearning/metrics"
	"lucy/internal/errorlearning/models"
	"lucy/internal/memory"
	memmodels "lucy/internal/memory/models"
	dErrors "lucy/pkg/domain-errors"
	"lucy/pkg/platform/replay"
	"lucy/pkg/platform/sentinel"
	"lucy/pkg/requestcontext"
)

const (
	WarningMessage        = "Similar action caused error before!"
	WarningRecommendation = "Review error prevention strategy before proceeding"

	mostRepeatedLimit = 5
	// checkMatchLimit bounds the earlier errors returned per matching term.
	checkMatchLimit = 20
)

// ErrPersistence means the observation was accepted but is not durable yet:
// either its fingerprint upsert is queued for replay or its memory snapshot
// is.
var ErrPersistence = fmt.Errorf("error observation not persisted: %w", sentinel.ErrUnavailable)

type Service struct {
	store   Store
	memory  Memory
	alerts  AlertPublisher
	replay  *replay.Queue
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Service)

func WithAlertPublisher(p AlertPublisher) Option {
	return func(s *Service) {
		s.alerts = p
	}
}

// WithReplay parks failed fingerprint upserts on q until the store recovers.
func WithReplay(q *replay.Queue) Option {
	return func(s *Service) {
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

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(store Store, mem Memory, opts ...Option) *Service {
	s := &Service{
		store:  store,
		memory: mem,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.replay == nil {
		s.replay = replay.New(replay.WithLogger(s.logger))
	}
	return s
}

// RecordError counts one observation of an error and mirrors a snapshot into
// the system memory namespace. A repeat is reported through logs, metrics,
// and the alert publisher but is never an error.
//
// When the store cannot take the observation it is queued for replay and the
// returned error wraps ErrPersistence. While a backlog exists new observations
// queue behind it, so first-seen fields follow observation order.
func (s *Service) RecordError(ctx context.Context, req models.RecordRequest) (string, error) {
	req.ErrorType = strings.TrimSpace(req.ErrorType)
	req.WhatHappened = strings.TrimSpace(req.WhatHappened)
	if req.ErrorType == "" || req.WhatHappened == "" {
		return "", dErrors.New(dErrors.CodeValidation, "error_type and what_happened are required")
	}
	if req.Severity == "" {
		req.Severity = models.SeverityMedium
	}

	now := s.now()
	id := Fingerprint(req.ErrorType, req.WhatHappened)
	draft := models.Record{
		ErrorID:         id,
		ErrorType:       req.ErrorType,
		WhatHappened:    req.WhatHappened,
		WhyHappened:     req.WhyHappened,
		HowToFix:        req.HowToFix,
		HowToPrevent:    req.HowToPrevent,
		Context:         req.Context,
		Severity:        req.Severity,
		OccurrenceCount: 1,
		FirstOccurred:   now,
		LastOccurred:    now,
	}

	var cause error
	if s.replay.Len() > 0 {
		cause = errors.New("earlier observations pending replay")
	} else {
		rec, err := s.store.Upsert(ctx, draft)
		if err == nil {
			return id, s.observed(ctx, rec)
		}
		cause = err
	}
	return id, s.deferObservation(ctx, draft, cause)
}

// observed runs everything that follows a stored observation.
func (s *Service) observed(ctx context.Context, rec models.Record) error {
	s.metrics.IncRecorded(string(rec.Severity))

	if rec.Repeated() {
		s.onRepeat(ctx, rec)
	}

	_, err := s.memory.Add(ctx, domains.SystemNamespace, snapshotContent(rec), memmodels.CategoryErrorLearning, map[string]any{
		"type":             memmodels.CategoryErrorLearning,
		"error_id":         rec.ErrorID,
		"severity":         string(rec.Severity),
		"occurrence_count": rec.OccurrenceCount,
	})
	if err != nil {
		if errors.Is(err, memory.ErrPersistence) {
			return fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		return fmt.Errorf("mirror error %s to memory: %w", rec.ErrorID, err)
	}
	return nil
}

func (s *Service) deferObservation(ctx context.Context, draft models.Record, cause error) error {
	id := draft.ErrorID
	s.metrics.IncDeferred()
	op := replay.Op{
		Name: "upsert " + id,
		Do: func(ctx context.Context) error {
			rec, err := s.store.Upsert(ctx, draft)
			if err != nil {
				return err
			}
			// The count is stored; a snapshot failure must not replay the upsert.
			if err := s.observed(ctx, rec); err != nil && !errors.Is(err, ErrPersistence) {
				s.logger.WarnContext(ctx, "replayed error not mirrored to memory",
					"error_id", id,
					"error", err,
				)
			}
			return nil
		},
	}
	if !s.replay.Enqueue(op) {
		s.logger.ErrorContext(ctx, "error replay queue full, observation lost",
			"request_id", requestcontext.RequestID(ctx),
			"error_id", id,
			"error", cause,
		)
		return dErrors.Wrap(cause, dErrors.CodeUnavailable, "failed to record error")
	}
	s.logger.WarnContext(ctx, "error observation deferred",
		"request_id", requestcontext.RequestID(ctx),
		"error_id", id,
		"backlog", s.replay.Len(),
		"error", cause,
	)
	return fmt.Errorf("%w: upsert %s: %w", ErrPersistence, id, cause)
}

// Replay returns the queue holding deferred observations.
func (s *Service) Replay() *replay.Queue {
	return s.replay
}

func (s *Service) onRepeat(ctx context.Context, rec models.Record) {
	s.metrics.IncRepeated(rec.ErrorType)
	s.logger.WarnContext(ctx, "error repeated, review prevention strategy",
		"request_id", requestcontext.RequestID(ctx),
		"error_id", rec.ErrorID,
		"error_type", rec.ErrorType,
		"occurrence_count", rec.OccurrenceCount,
		"severity", rec.Severity,
	)
	if s.alerts == nil {
		return
	}
	if err := s.alerts.PublishRepeated(ctx, rec); err != nil {
		s.metrics.IncAlertFailure()
		s.logger.WarnContext(ctx, "failed to publish repeated error alert",
			"request_id", requestcontext.RequestID(ctx),
			"error_id", rec.ErrorID,
			"error", err,
		)
	}
}

func snapshotContent(rec models.Record) string {
	return fmt.Sprintf("ERROR LEARNED: %s\nWhat: %s\nWhy: %s\nFix: %s\nPrevention: %s",
		rec.ErrorType, rec.WhatHappened, rec.WhyHappened, rec.HowToFix, rec.HowToPrevent)
}

// CheckBeforeAction looks for error snapshots mentioning the action type or
// any context value. It is advisory: a nil warning means nothing matched.
func (s *Service) CheckBeforeAction(ctx context.Context, actionType string, actionContext map[string]any) (*models.Warning, error) {
	terms := checkTerms(actionType, actionContext)
	if len(terms) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "action_type or action_context is required")
	}

	var previous []models.Previous
	for _, term := range terms {
		matches, err := s.memory.Search(ctx, memmodels.Query{
			Namespace: domains.SystemNamespace,
			Text:      term,
			Category:  memmodels.CategoryErrorLearning,
			Limit:     checkMatchLimit,
		})
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to search error history")
		}
		if len(matches) > 0 {
			for _, snap := range matches {
				previous = append(previous, toPrevious(snap))
			}
			break
		}
	}
	if len(previous) == 0 {
		return nil, nil
	}

	s.metrics.IncWarning()
	s.logger.InfoContext(ctx, "pre-action check found earlier errors",
		"request_id", requestcontext.RequestID(ctx),
		"action_type", actionType,
		"matches", len(previous),
	)
	return &models.Warning{
		Message:        WarningMessage,
		PreviousErrors: previous,
		Recommendation: WarningRecommendation,
	}, nil
}

// checkTerms lists the lower-cased search terms: the action type, then every
// string-like context value in key order.
func checkTerms(actionType string, actionContext map[string]any) []string {
	var terms []string
	if t := strings.ToLower(strings.TrimSpace(actionType)); t != "" {
		terms = append(terms, t)
	}
	keys := make([]string, 0, len(actionContext))
	for k := range actionContext {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var v string
		switch val := actionContext[k].(type) {
		case string:
			v = val
		case fmt.Stringer:
			v = val.String()
		case nil:
			continue
		default:
			v = fmt.Sprint(val)
		}
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			terms = append(terms, v)
		}
	}
	return terms
}

func toPrevious(rec memmodels.Record) models.Previous {
	p := models.Previous{MemoryID: rec.ID, Content: rec.Content}
	if id, ok := rec.Metadata["error_id"].(string); ok {
		p.ErrorID = id
	}
	if sev, ok := rec.Metadata["severity"].(string); ok {
		p.Severity = models.Severity(sev)
	}
	switch n := rec.Metadata["occurrence_count"].(type) {
	case int:
		p.OccurrenceCount = n
	case float64:
		p.OccurrenceCount = int(n)
	}
	return p
}

// Stats reports totals, the most repeated fingerprints, and critical ones.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	all, err := s.store.ListByCount(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list errors")
	}
	critical, err := s.store.ListBySeverity(ctx, models.SeverityCritical)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list critical errors")
	}

	stats := &models.Stats{
		TotalErrors:        len(all),
		MostRepeated:       []models.Record{},
		CriticalUnresolved: critical,
	}
	if stats.CriticalUnresolved == nil {
		stats.CriticalUnresolved = []models.Record{}
	}
	for _, rec := range all {
		if !rec.Repeated() {
			continue
		}
		stats.RepeatedErrors++
		if len(stats.MostRepeated) < mostRepeatedLimit {
			stats.MostRepeated = append(stats.MostRepeated, rec)
		}
	}
	return stats, nil
}

func (s *Service) Get(ctx context.Context, errorID string) (*models.Record, error) {
	rec, err := s.store.Get(ctx, errorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "error not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load error")
	}
	return &rec, nil
}
