package database

import (
	"context"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/pagegraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 4

func testVector(values ...float32) *pgvector.Vector {
	v := pgvector.NewVector(values)
	return &v
}

func TestChunksNewChunksDBHandler(t *testing.T) {
	database := initDB(t)

	_, err := NewPagesDBHandler(database, true)
	require.NoError(t, err, "Chunks reference pages")

	t.Run("Valid call NewChunksDBHandler", func(t *testing.T) {
		chunksDbHandler, err := NewChunksDBHandler(database, testDimension, true)
		assert.NoError(t, err, "Expected NewChunksDBHandler to not return an error")
		require.NotNil(t, chunksDbHandler, "Expected NewChunksDBHandler to return a non-nil instance")
	})

	t.Run("Invalid dimension", func(t *testing.T) {
		_, err := NewChunksDBHandler(database, 0, false)
		assert.Error(t, err, "Expected error for zero dimension")
	})

	t.Run("Invalid call NewChunksDBHandler with nil database", func(t *testing.T) {
		_, err := NewChunksDBHandler(nil, testDimension, false)
		assert.Error(t, err, "Expected error when creating ChunksDBHandler with nil database")
	})
}

func TestChunksSearch(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	store, err := NewGraphStore(database, true)
	require.NoError(t, err)
	chunks, err := NewChunksDBHandler(database, testDimension, true)
	require.NoError(t, err)

	ids := insertTestPages(t, store.PagesDBHandler, "SEARCH", "Deployments", "Billing")
	deploy, billing := ids[0], ids[1]

	inserts := []*model.Chunk{
		{PageID: deploy, Content: "Deployment guide", ChunkType: model.ChunkTypeTitle, Embedding: testVector(1, 0, 0, 0)},
		{PageID: deploy, Content: "Deploy the service with the pipeline and verify the rollout", Position: 1, Embedding: testVector(0.9, 0.1, 0, 0)},
		{PageID: billing, Content: "Invoices are generated monthly for every customer", Embedding: testVector(0, 0, 1, 0)},
	}
	for _, chunk := range inserts {
		require.NoError(t, chunks.InsertChunk(ctx, chunk), "Expected InsertChunk to not return an error")
		assert.NotEqual(t, [16]byte{}, [16]byte(chunk.ID), "Expected chunk id to be set")
	}

	filter := model.SearchFilter{SpaceKeys: []string{"SEARCH"}}

	t.Run("Keyword search matches any term", func(t *testing.T) {
		hits, err := chunks.Keyword(ctx, "how do I deploy the service", filter, 10)
		require.NoError(t, err)
		require.NotEmpty(t, hits, "Expected keyword hits")
		for _, hit := range hits {
			assert.Equal(t, deploy, hit.PageID, "Expected only deployment chunks")
			assert.Equal(t, model.ModalityKeyword, hit.Modality)
			assert.GreaterOrEqual(t, hit.Score, 0.0)
			assert.Less(t, hit.Score, 1.0, "Expected normalized rank below one")
		}
	})

	t.Run("Keyword search with only stop words returns nothing", func(t *testing.T) {
		hits, err := chunks.Keyword(ctx, "the and of", filter, 10)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("Vector search orders by cosine similarity", func(t *testing.T) {
		hits, err := chunks.Vector(ctx, []float32{1, 0, 0, 0}, 2, []string{EmbeddingField}, filter)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, deploy, hits[0].PageID)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-6, "Expected identical vector to score one")
		assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	})

	t.Run("Vector search rejects unknown field", func(t *testing.T) {
		_, err := chunks.Vector(ctx, []float32{1, 0, 0, 0}, 2, []string{"title_vector"}, filter)
		assert.Error(t, err)
	})

	t.Run("Page filter restricts results", func(t *testing.T) {
		hits, err := chunks.Vector(ctx, []float32{1, 0, 0, 0}, 10, nil, model.SearchFilter{PageIDs: []string{billing}})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, billing, hits[0].PageID)
	})

	t.Run("Semantic search returns captions without embedder", func(t *testing.T) {
		hits, err := chunks.Semantic(ctx, "invoices customer", filter, 5)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		assert.Equal(t, billing, hits[0].PageID)
		assert.Contains(t, hits[0].Caption, "Invoices", "Expected highlighted caption")
		assert.Equal(t, model.ModalitySemantic, hits[0].Modality)
	})

	t.Run("Semantic search blends query embedding", func(t *testing.T) {
		chunks.SetQueryEmbedder(func(ctx context.Context, text string) ([]float32, error) {
			return []float32{0, 0, 1, 0}, nil
		})
		defer chunks.SetQueryEmbedder(nil)

		hits, err := chunks.Semantic(ctx, "monthly", filter, 5)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		assert.Equal(t, billing, hits[0].PageID, "Expected billing chunk to rank first")
	})

	t.Run("Delete chunks by page", func(t *testing.T) {
		count, err := chunks.DeleteChunksByPage(ctx, deploy)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

func TestChangeIndexType(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	_, err := NewPagesDBHandler(database, true)
	require.NoError(t, err)
	chunks, err := NewChunksDBHandler(database, testDimension, true)
	require.NoError(t, err)

	t.Run("Change index to HNSW with custom params", func(t *testing.T) {
		err := chunks.ChangeIndexType(ctx, VectorIndex{Type: "hnsw", M: 32, EfConstruction: 128})
		assert.NoError(t, err, "Expected ChangeIndexType to hnsw to not return an error")
	})

	t.Run("Change index to IVFFlat with default params", func(t *testing.T) {
		err := chunks.ChangeIndexType(ctx, VectorIndex{Type: "ivfflat"})
		assert.NoError(t, err, "Expected ChangeIndexType to ivfflat to not return an error")
	})

	t.Run("Unsupported index type", func(t *testing.T) {
		err := chunks.ChangeIndexType(ctx, VectorIndex{Type: "btree"})
		assert.Error(t, err, "Expected error for unsupported index type")
	})
}
