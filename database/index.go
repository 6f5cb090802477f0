package database

import (
	"context"
	"fmt"
	"time"

	"github.com/siherrmann/pagegraph/helper"
)

// VectorIndex describes the approximate nearest neighbour index on chunk embeddings.
type VectorIndex struct {
	// Type is "hnsw" or "ivfflat".
	Type string
	// M and EfConstruction apply to hnsw, zero selects 16 and 64.
	M              int
	EfConstruction int
	// Lists applies to ivfflat, zero selects 100.
	Lists int
}

// ChangeIndexType rebuilds the chunk embedding index with the given settings.
// Vector and semantic search use cosine distance, so both index types are
// built with vector_cosine_ops.
func (h *ChunksDBHandler) ChangeIndexType(ctx context.Context, index VectorIndex) error {
	var createIndexSQL string
	switch index.Type {
	case "hnsw":
		m, ef := index.M, index.EfConstruction
		if m <= 0 {
			m = 16
		}
		if ef <= 0 {
			ef = 64
		}
		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_chunks_embedding ON chunks USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d);`,
			m, ef,
		)
	case "ivfflat":
		lists := index.Lists
		if lists <= 0 {
			lists = 100
		}
		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d);`,
			lists,
		)
	default:
		return helper.NewError("change index type", fmt.Errorf("unsupported index type: %s (use 'hnsw' or 'ivfflat')", index.Type))
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DROP INDEX IF EXISTS idx_chunks_embedding;`)
	if err != nil {
		return helper.NewError("drop index", err)
	}

	_, err = tx.ExecContext(ctx, createIndexSQL)
	if err != nil {
		return helper.NewError("create index", err)
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit index change", err)
	}

	h.db.Logger.Info("Rebuilt vector index", "type", index.Type)

	return nil
}
