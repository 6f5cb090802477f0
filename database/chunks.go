package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"slices"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/pagegraph/helper"
	"github.com/siherrmann/pagegraph/model"
	loadSql "github.com/siherrmann/pagegraph/sql"
)

// EmbeddingField is the only vector field of the chunks table.
const EmbeddingField = "embedding"

// QueryEmbedder embeds query text for the semantic search.
type QueryEmbedder func(ctx context.Context, text string) ([]float32, error)

// ChunksDBHandlerFunctions defines the interface for Chunks database operations.
type ChunksDBHandlerFunctions interface {
	InsertChunk(ctx context.Context, chunk *model.Chunk) error
	DeleteChunksByPage(ctx context.Context, pageID string) (int, error)
	Keyword(ctx context.Context, text string, filter model.SearchFilter, top int) ([]*model.SearchHit, error)
	Vector(ctx context.Context, vector []float32, k int, fields []string, filter model.SearchFilter) ([]*model.SearchHit, error)
	Semantic(ctx context.Context, text string, filter model.SearchFilter, top int) ([]*model.SearchHit, error)
}

// ChunksDBHandler handles chunk storage and the three search shapes over chunks.
type ChunksDBHandler struct {
	db            *helper.Database
	queryEmbedder QueryEmbedder
}

// NewChunksDBHandler creates a new chunks database handler.
// The pages table has to exist since chunks reference pages.
// If force is true, it will reload the SQL functions even if they already exist.
func NewChunksDBHandler(db *helper.Database, embeddingDim int, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if embeddingDim <= 0 {
		return nil, helper.NewError("embedding dimension validation", fmt.Errorf("embedding dimension must be positive, got %d", embeddingDim))
	}

	chunksDbHandler := &ChunksDBHandler{
		db: db,
	}

	err := loadSql.LoadChunksSql(chunksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	err = chunksDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler")

	return chunksDbHandler, nil
}

// CreateTable creates the 'chunks' table with its full text and vector indexes.
func (h *ChunksDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_chunks($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing chunks table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table chunks")

	return nil
}

// SetQueryEmbedder sets the embedder used to add vector similarity to
// semantic searches. Without one semantic search ranks by text only.
func (h *ChunksDBHandler) SetQueryEmbedder(embedder QueryEmbedder) {
	h.queryEmbedder = embedder
}

// InsertChunk inserts a new chunk
func (h *ChunksDBHandler) InsertChunk(ctx context.Context, chunk *model.Chunk) error {
	if chunk.Metadata == nil {
		chunk.Metadata = model.Metadata{}
	}
	if chunk.ChunkType == "" {
		chunk.ChunkType = model.ChunkTypeBody
	}

	var embedding interface{}
	if chunk.Embedding != nil {
		embedding = *chunk.Embedding
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_chunk($1, $2, $3, $4, $5, $6)`,
		chunk.PageID,
		chunk.Content,
		chunk.ChunkType,
		chunk.Position,
		embedding,
		chunk.Metadata,
	)

	err := row.Scan(
		&chunk.ID,
		&chunk.PageID,
		&chunk.Content,
		&chunk.ChunkType,
		&chunk.Position,
		&chunk.Metadata,
		&chunk.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// DeleteChunksByPage removes all chunks of a page and returns how many were deleted.
func (h *ChunksDBHandler) DeleteChunksByPage(ctx context.Context, pageID string) (int, error) {
	var count int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT delete_chunks_by_page($1)`, pageID).Scan(&count)
	if err != nil {
		return 0, helper.NewError("delete chunks", err)
	}
	return count, nil
}

// Keyword runs a lexical search. Scores are normalized cover density ranks in [0, 1).
func (h *ChunksDBHandler) Keyword(ctx context.Context, text string, filter model.SearchFilter, top int) ([]*model.SearchHit, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM search_chunks_keyword($1, $2, $3, $4)`,
		text,
		pq.Array(filter.SpaceKeys),
		pq.Array(filter.PageIDs),
		top,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}

	return scanHits(rows, model.ModalityKeyword)
}

// Vector runs a nearest neighbour search. Scores are cosine similarities.
func (h *ChunksDBHandler) Vector(ctx context.Context, vector []float32, k int, fields []string, filter model.SearchFilter) ([]*model.SearchHit, error) {
	for _, field := range fields {
		if !SupportsField(field) {
			return nil, helper.NewError("vector search", fmt.Errorf("unsupported vector field %q", field))
		}
	}
	if len(vector) == 0 {
		return nil, helper.NewError("vector search", fmt.Errorf("empty query vector"))
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM search_chunks_vector($1, $2, $3, $4)`,
		pgvector.NewVector(vector),
		pq.Array(filter.SpaceKeys),
		pq.Array(filter.PageIDs),
		k,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}

	return scanHits(rows, model.ModalityVector)
}

// Semantic blends text rank and vector similarity and returns highlighted captions.
// A failing query embedder degrades the search to text rank only.
func (h *ChunksDBHandler) Semantic(ctx context.Context, text string, filter model.SearchFilter, top int) ([]*model.SearchHit, error) {
	var embedding interface{}
	if h.queryEmbedder != nil {
		vector, err := h.queryEmbedder(ctx, text)
		if err != nil {
			h.db.Logger.Warn("Semantic search without query embedding", slog.String("error", err.Error()))
		} else if len(vector) > 0 {
			embedding = pgvector.NewVector(vector)
		}
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM search_chunks_semantic($1, $2, $3, $4, $5)`,
		text,
		embedding,
		pq.Array(filter.SpaceKeys),
		pq.Array(filter.PageIDs),
		top,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}

	return scanHits(rows, model.ModalitySemantic)
}

func scanHits(rows *sql.Rows, modality model.Modality) ([]*model.SearchHit, error) {
	defer rows.Close()

	hits := []*model.SearchHit{}
	for rows.Next() {
		hit := &model.SearchHit{Modality: modality}
		err := rows.Scan(
			&hit.ChunkID,
			&hit.PageID,
			&hit.Title,
			&hit.Content,
			&hit.ChunkType,
			&hit.Score,
			&hit.Caption,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		hits = append(hits, hit)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return hits, nil
}

// SupportsField reports whether a vector field can be searched.
func SupportsField(field string) bool {
	return slices.Contains([]string{EmbeddingField}, field)
}
