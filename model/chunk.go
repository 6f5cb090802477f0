package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// ChunkType classifies the role of a chunk within its page.
type ChunkType string

const (
	ChunkTypeTitle         ChunkType = "title"
	ChunkTypeSectionHeader ChunkType = "section_header"
	ChunkTypeBody          ChunkType = "body"
	ChunkTypeTable         ChunkType = "table"
	ChunkTypeCode          ChunkType = "code"
)

// Chunk is an indexed piece of a page.
type Chunk struct {
	ID        uuid.UUID        `json:"id"`
	PageID    string           `json:"page_id"`
	Content   string           `json:"content"`
	ChunkType ChunkType        `json:"chunk_type"`
	Position  int              `json:"position"`
	Embedding *pgvector.Vector `json:"-"`
	Metadata  Metadata         `json:"metadata,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
