// Package assistant is the responder role: one domain answering queries from
// its own memory namespace.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"lucy/internal/domains"
	"lucy/internal/execution"
	memmodels "lucy/internal/memory/models"
	"lucy/internal/responder"
	dErrors "lucy/pkg/domain-errors"
	"lucy/pkg/requestcontext"
)

const (
	maxMemories  = 5
	maxLearnings = 3
	// minTermLength drops short words that would match nearly everything.
	minTermLength = 4

	matchedConfidence  = 0.8
	learnedConfidence  = 0.7
	fallbackConfidence = 0.6
)

// Memory is the part of the memory service the assistant reads.
type Memory interface {
	Search(ctx context.Context, q memmodels.Query) ([]memmodels.Record, error)
}

// Learnings returns corrections and successful patterns for a query.
type Learnings interface {
	RelevantLearnings(ctx context.Context, namespace, query string, limit int) ([]memmodels.Record, error)
}

type Service struct {
	config    domains.Config
	memory    Memory
	learnings Learnings
	logger    *slog.Logger
}

func NewService(cfg domains.Config, memory Memory, learnings Learnings, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{config: cfg, memory: memory, learnings: learnings, logger: logger}
}

func (s *Service) Domain() domains.Domain {
	return s.config.Domain
}

// Answer builds a response from stored memories whose content mentions any
// significant query term, plus learnings recorded for the whole query.
func (s *Service) Answer(ctx context.Context, query string, qctx map[string]any) (*responder.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "query is required")
	}
	ns := s.config.Namespace

	memories, err := s.relevantMemories(ctx, ns, query)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to search memories")
	}
	learned, err := s.learnings.RelevantLearnings(ctx, ns, query, maxLearnings)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load learnings")
	}

	var b strings.Builder
	if primary, ok := qctx[execution.PrimaryResultKey].(map[string]any); ok {
		if text, _ := primary["response"].(string); text != "" {
			fmt.Fprintf(&b, "Building on %v: %s\n\n", primary["domain"], text)
		}
	}

	result := &responder.Result{
		Domain:   s.config.Domain,
		Sources:  make([]responder.Source, 0, len(memories)),
		Metadata: map[string]string{"memories": strconv.Itoa(len(memories)), "learnings": strconv.Itoa(len(learned))},
	}
	switch {
	case len(memories) > 0:
		fmt.Fprintf(&b, "%s found %d related memories for %q:", s.config.Name, len(memories), query)
		for _, m := range memories {
			fmt.Fprintf(&b, "\n- %s", m.Content)
			result.Sources = append(result.Sources, source(m))
		}
		result.Confidence = matchedConfidence
		result.Reasoning = fmt.Sprintf("Matched stored memories in %s", ns)
	case len(learned) > 0:
		fmt.Fprintf(&b, "%s has no direct memories for %q but has learned from similar requests.", s.config.Name, query)
		result.Confidence = learnedConfidence
		result.Reasoning = "Answered from recorded learnings"
	default:
		fmt.Fprintf(&b, "%s has no stored context for %q yet.", s.config.Name, query)
		result.Confidence = fallbackConfidence
		result.Reasoning = "Fallback handler"
	}
	for _, l := range learned {
		fmt.Fprintf(&b, "\nLearned (%s): %s", l.Category, l.Content)
	}
	result.Response = b.String()

	s.logger.InfoContext(ctx, "query answered",
		"request_id", requestcontext.RequestID(ctx),
		"domain", s.config.Domain,
		"memories", len(memories),
		"learnings", len(learned),
	)
	return result, nil
}

// relevantMemories runs one substring search per term and keeps the first
// maxMemories distinct records.
func (s *Service) relevantMemories(ctx context.Context, ns, query string) ([]memmodels.Record, error) {
	seen := make(map[string]bool)
	var out []memmodels.Record
	for _, term := range terms(query) {
		found, err := s.memory.Search(ctx, memmodels.Query{Namespace: ns, Text: term, Limit: maxMemories})
		if err != nil {
			return nil, err
		}
		for _, rec := range found {
			if seen[rec.ID] || isLearning(rec.Category) {
				continue
			}
			seen[rec.ID] = true
			out = append(out, rec)
			if len(out) == maxMemories {
				return out, nil
			}
		}
	}
	return out, nil
}

func isLearning(category string) bool {
	return category == memmodels.CategoryCorrection || category == memmodels.CategorySuccessfulPattern
}

func terms(query string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r == '_' || r == '-' || ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') || r > 127)
	}) {
		if len([]rune(w)) < minTermLength || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

func source(m memmodels.Record) responder.Source {
	return responder.Source{
		"type":      "memory",
		"namespace": m.Namespace,
		"memory_id": m.ID,
		"category":  m.Category,
		"date":      m.CreatedAt.UTC().Format(time.RFC3339),
	}
}
