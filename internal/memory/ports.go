package memory

import (
	"context"

	"lucy/internal/memory/models"
)

// Store serves every read and owns id assignment.
type Store interface {
	CreateNamespace(ctx context.Context, name, description string) (models.Namespace, bool, error)
	Add(ctx context.Context, namespace, content, category string, metadata map[string]any) (models.Record, error)
	Search(ctx context.Context, q models.Query) ([]models.Record, error)
	Get(ctx context.Context, namespace, id string) (models.Record, error)
	Update(ctx context.Context, namespace, id, content string, metadata map[string]any) (models.Record, error)
	Delete(ctx context.Context, namespace, id string) (models.Record, error)
	Stats(ctx context.Context, namespace string) (models.Stats, error)
	AllStats(ctx context.Context) (map[string]models.Stats, error)
	Namespaces(ctx context.Context) ([]string, error)
	Export(ctx context.Context, namespace string) (models.Snapshot, error)
	Import(ctx context.Context, snap models.Snapshot) (models.Snapshot, error)
}

// Durable mirrors committed writes. Every method must be safe to retry.
type Durable interface {
	SaveNamespace(ctx context.Context, info models.Namespace) error
	Append(ctx context.Context, rec models.Record) error
	Put(ctx context.Context, rec models.Record) error
	Remove(ctx context.Context, rec models.Record) error
	Replace(ctx context.Context, snap models.Snapshot) error
	Load(ctx context.Context) ([]models.Snapshot, error)
}
