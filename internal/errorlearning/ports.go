package errorlearning

import (
	"context"

	"lucy/internal/errorlearning/models"
	memmodels "lucy/internal/memory/models"
)

// Store keeps one record per fingerprint.
type Store interface {
	// Upsert inserts rec with a count of one, or increments the count and
	// sets LastOccurred on an existing fingerprint without touching the
	// first-seen fields. It returns the stored record.
	Upsert(ctx context.Context, rec models.Record) (models.Record, error)
	Get(ctx context.Context, errorID string) (models.Record, error)
	// ListByCount returns every record, most repeated first.
	ListByCount(ctx context.Context) ([]models.Record, error)
	ListBySeverity(ctx context.Context, severities ...models.Severity) ([]models.Record, error)
}

// Memory is the part of the memory service used for snapshots and the
// pre-action check.
type Memory interface {
	Add(ctx context.Context, namespace, content, category string, metadata map[string]any) (*memmodels.Record, error)
	Search(ctx context.Context, q memmodels.Query) ([]memmodels.Record, error)
}

// AlertPublisher announces repeated fingerprints.
type AlertPublisher interface {
	PublishRepeated(ctx context.Context, rec models.Record) error
}
