package test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/lithammer/shortuuid/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/agentcache/store"
)

func newRecord(domain, hash, query string, createdTs int64) *store.KnowledgeRecord {
	return &store.KnowledgeRecord{
		UID:           shortuuid.New(),
		Domain:        domain,
		QueryHash:     hash,
		OriginalQuery: query,
		Payload:       json.RawMessage(`{"answer":"` + query + `"}`),
		Source:        "llm",
		Confidence:    0.8,
		CreatedTs:     createdTs,
	}
}

func TestKnowledgeRecordStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	created, err := ts.CreateKnowledgeRecord(ctx, newRecord("research", "h1", "What is Go?", 100))
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.Equal(t, int64(100), created.UpdatedTs)

	found, err := ts.GetKnowledgeRecordByHash(ctx, "research", "h1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "What is Go?", found.OriginalQuery)
	assert.JSONEq(t, `{"answer":"What is Go?"}`, string(found.Payload))
	assert.Equal(t, "llm", found.Source)
	assert.InDelta(t, 0.8, found.Confidence, 1e-6)

	missing, err := ts.GetKnowledgeRecordByHash(ctx, "analysis", "h1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, ts.TouchKnowledgeRecord(ctx, created.ID))
	require.NoError(t, ts.TouchKnowledgeRecord(ctx, created.ID))
	found, err = ts.GetKnowledgeRecordByHash(ctx, "research", "h1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), found.HitCount)

	assert.Error(t, ts.TouchKnowledgeRecord(ctx, created.ID+1000))
}

func TestKnowledgeRecordUpsertOnHash(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	first, err := ts.CreateKnowledgeRecord(ctx, newRecord("qa", "same", "first", 100))
	require.NoError(t, err)

	second := newRecord("qa", "same", "second", 200)
	second.UpdatedTs = 200
	refreshed, err := ts.CreateKnowledgeRecord(ctx, second)
	require.NoError(t, err)

	assert.Equal(t, first.ID, refreshed.ID)
	assert.Equal(t, first.UID, refreshed.UID)
	assert.Equal(t, int64(100), refreshed.CreatedTs)
	assert.Equal(t, int64(200), refreshed.UpdatedTs)

	list, err := ts.ListKnowledgeRecords(ctx, &store.FindKnowledgeRecord{QueryHash: strPtr("same")})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "second", list[0].OriginalQuery)
}

func TestListKnowledgeRecords(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	for i, q := range []string{"a", "b", "c"} {
		_, err := ts.CreateKnowledgeRecord(ctx, newRecord("research", "r"+q, q, int64(100+i)))
		require.NoError(t, err)
	}
	_, err := ts.CreateKnowledgeRecord(ctx, newRecord("creative", "c1", "poem", 500))
	require.NoError(t, err)

	tests := []struct {
		name     string
		find     *store.FindKnowledgeRecord
		expected []string
	}{
		{
			name:     "domain newest first",
			find:     &store.FindKnowledgeRecord{Domain: strPtr("research")},
			expected: []string{"c", "b", "a"},
		},
		{
			name:     "created after",
			find:     &store.FindKnowledgeRecord{Domain: strPtr("research"), CreatedAfter: int64Ptr(100)},
			expected: []string{"c", "b"},
		},
		{
			name:     "limit and offset",
			find:     &store.FindKnowledgeRecord{Domain: strPtr("research"), Limit: 1, Offset: 1},
			expected: []string{"b"},
		},
		{
			name:     "all domains",
			find:     &store.FindKnowledgeRecord{},
			expected: []string{"poem", "c", "b", "a"},
		},
		{
			name:     "unknown domain",
			find:     &store.FindKnowledgeRecord{Domain: strPtr("planning")},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := ts.ListKnowledgeRecords(ctx, tt.find)
			require.NoError(t, err)
			queries := []string{}
			for _, r := range list {
				queries = append(queries, r.OriginalQuery)
			}
			assert.Equal(t, tt.expected, queries)
		})
	}
}

func TestDeleteKnowledgeRecords(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	for i, q := range []string{"a", "b"} {
		_, err := ts.CreateKnowledgeRecord(ctx, newRecord("research", "r"+q, q, int64(100+i)))
		require.NoError(t, err)
	}
	_, err := ts.CreateKnowledgeRecord(ctx, newRecord("qa", "q1", "q", 100))
	require.NoError(t, err)

	_, err = ts.DeleteKnowledgeRecords(ctx, &store.DeleteKnowledgeRecord{})
	assert.Error(t, err)

	n, err := ts.DeleteKnowledgeRecords(ctx, &store.DeleteKnowledgeRecord{Domain: strPtr("research")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := ts.ListKnowledgeRecords(ctx, &store.FindKnowledgeRecord{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "qa", list[0].Domain)
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	require.NoError(t, ts.Migrate(ctx))
	initialized, err := ts.GetDriver().IsInitialized(ctx)
	require.NoError(t, err)
	assert.True(t, initialized)
}

func strPtr(s string) *string { return &s }

func int64Ptr(i int64) *int64 { return &i }
