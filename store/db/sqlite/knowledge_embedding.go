package sqlite

import (
	"context"

	"github.com/hrygo/agentcache/store"
)

func (*DB) UpsertKnowledgeEmbedding(_ context.Context, _ *store.KnowledgeEmbedding) error {
	return store.ErrVectorSearchNotSupported
}

func (*DB) SearchKnowledgeByVector(_ context.Context, _ *store.KnowledgeVectorSearch) ([]*store.KnowledgeWithScore, error) {
	return nil, store.ErrVectorSearchNotSupported
}
