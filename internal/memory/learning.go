package memory

import (
	"context"
	"fmt"
	"time"

	"lucy/internal/memory/models"
)

const defaultLearningLimit = 5

// Learning records corrections, successful patterns, and user preferences
// so responders can consult them before answering.
type Learning struct {
	memory *Service
	now    func() time.Time
}

func NewLearning(memory *Service) *Learning {
	return &Learning{memory: memory, now: time.Now}
}

// Correction is a wrong answer paired with the right one.
type Correction struct {
	Query     string
	Incorrect string
	Correct   string
	Context   map[string]any
}

func (l *Learning) SaveCorrection(ctx context.Context, namespace string, c Correction) (*models.Record, error) {
	content := fmt.Sprintf("Query: %s\nIncorrect: %s\nCorrect: %s", c.Query, c.Incorrect, c.Correct)
	meta := merged(c.Context, map[string]any{
		"type":           "correction",
		"original_query": c.Query,
		"learned_at":     l.now().Format(time.RFC3339),
	})
	return l.memory.Add(ctx, namespace, content, models.CategoryCorrection, meta)
}

// Pattern is an approach that worked for a kind of query.
type Pattern struct {
	QueryType string
	Approach  string
	Outcome   string
	Metadata  map[string]any
}

func (l *Learning) SaveSuccessfulPattern(ctx context.Context, namespace string, p Pattern) (*models.Record, error) {
	content := fmt.Sprintf("Type: %s\nApproach: %s\nOutcome: %s", p.QueryType, p.Approach, p.Outcome)
	meta := merged(p.Metadata, map[string]any{
		"type":       "success_pattern",
		"query_type": p.QueryType,
		"saved_at":   l.now().Format(time.RFC3339),
	})
	return l.memory.Add(ctx, namespace, content, models.CategorySuccessfulPattern, meta)
}

// Preference is a user preference with the situation it applies to.
type Preference struct {
	Type    string
	Value   string
	Context string
}

func (l *Learning) SaveUserPreference(ctx context.Context, namespace string, p Preference) (*models.Record, error) {
	content := fmt.Sprintf("%s: %s\nContext: %s", p.Type, p.Value, p.Context)
	meta := map[string]any{
		"type":            "preference",
		"preference_type": p.Type,
		"value":           p.Value,
		"saved_at":        l.now().Format(time.RFC3339),
	}
	return l.memory.Add(ctx, namespace, content, models.CategoryUserPreference, meta)
}

// RelevantLearnings returns corrections matching query followed by matching
// successful patterns, up to limit of each.
func (l *Learning) RelevantLearnings(ctx context.Context, namespace, query string, limit int) ([]models.Record, error) {
	if limit <= 0 {
		limit = defaultLearningLimit
	}
	corrections, err := l.memory.Search(ctx, models.Query{
		Namespace: namespace, Text: query, Category: models.CategoryCorrection, Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	patterns, err := l.memory.Search(ctx, models.Query{
		Namespace: namespace, Text: query, Category: models.CategorySuccessfulPattern, Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	return append(corrections, patterns...), nil
}

// merged lays fixed over extra; the fixed keys win.
func merged(extra, fixed map[string]any) map[string]any {
	out := make(map[string]any, len(extra)+len(fixed))
	for k, v := range extra {
		out[k] = v
	}
	for k, v := range fixed {
		out[k] = v
	}
	return out
}
