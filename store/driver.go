package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Type returns the driver name, "postgres" or "sqlite".
	Type() string

	IsInitialized(ctx context.Context) (bool, error)

	// KnowledgeRecord model related methods.
	CreateKnowledgeRecord(ctx context.Context, create *KnowledgeRecord) (*KnowledgeRecord, error)
	ListKnowledgeRecords(ctx context.Context, find *FindKnowledgeRecord) ([]*KnowledgeRecord, error)
	TouchKnowledgeRecord(ctx context.Context, id int64) error
	DeleteKnowledgeRecords(ctx context.Context, delete *DeleteKnowledgeRecord) (int64, error)

	// KnowledgeEmbedding model related methods.
	// Drivers without vector support return ErrVectorSearchNotSupported.
	UpsertKnowledgeEmbedding(ctx context.Context, embedding *KnowledgeEmbedding) error
	SearchKnowledgeByVector(ctx context.Context, opts *KnowledgeVectorSearch) ([]*KnowledgeWithScore, error)

	// LookupMetrics model related methods.
	UpsertLookupMetrics(ctx context.Context, upsert *UpsertLookupMetrics) (*LookupMetrics, error)
	ListLookupMetrics(ctx context.Context, find *FindLookupMetrics) ([]*LookupMetrics, error)
	DeleteLookupMetrics(ctx context.Context, delete *DeleteLookupMetrics) (int64, error)
}
