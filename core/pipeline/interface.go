package pipeline

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/pagegraph/helper"
	"github.com/siherrmann/pagegraph/model"
)

// ChunkFunc splits a page into typed chunks. The title chunk comes first
// and positions are consecutive from 0.
type ChunkFunc func(ctx context.Context, title string, body string) ([]PageChunk, error)

// Embedder generates the embedding of a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder generates embeddings for several texts in one call.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedFunc is a function that generates embeddings for text
type EmbedFunc func(text string) ([]float32, error)

func (f EmbedFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f(text)
}

// PageChunk is a typed piece of a page before embedding.
type PageChunk struct {
	Content  string
	Type     model.ChunkType
	Position int
	Metadata model.Metadata
}

// Page is a structured page as delivered by the ingestion side.
// Body is markdown like text, Links are ids of linked pages.
type Page struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	SpaceKey string         `json:"space_key"`
	URL      string         `json:"url,omitempty"`
	ParentID string         `json:"parent_id,omitempty"`
	Body     string         `json:"body"`
	Links    []string       `json:"links,omitempty"`
	Metadata model.Metadata `json:"metadata,omitempty"`
}

// Node returns the graph node of the page.
func (p Page) Node() *model.DocumentNode {
	node := &model.DocumentNode{
		ID:       p.ID,
		Title:    p.Title,
		SpaceKey: p.SpaceKey,
		URL:      p.URL,
		Metadata: p.Metadata,
	}
	if p.ParentID != "" {
		parentID := p.ParentID
		node.ParentID = &parentID
	}
	return node
}

// Pipeline combines chunking and embedding functions
type Pipeline struct {
	Chunker  ChunkFunc
	Embedder Embedder
}

// NewPipeline creates a new processing pipeline. A nil embedder produces
// chunks without embeddings, which are only found by text search.
func NewPipeline(chunker ChunkFunc, embedder Embedder) *Pipeline {
	return &Pipeline{
		Chunker:  chunker,
		Embedder: embedder,
	}
}

// Process chunks a page and embeds every chunk.
func (p *Pipeline) Process(ctx context.Context, page Page) ([]*model.Chunk, error) {
	pageChunks, err := p.Chunker(ctx, page.Title, page.Body)
	if err != nil {
		return nil, helper.NewError("chunk page "+page.ID, err)
	}

	embeddings, err := p.embed(ctx, pageChunks)
	if err != nil {
		return nil, helper.NewError("embed page "+page.ID, err)
	}

	chunks := make([]*model.Chunk, 0, len(pageChunks))
	for i, pc := range pageChunks {
		chunk := &model.Chunk{
			PageID:    page.ID,
			Content:   pc.Content,
			ChunkType: pc.Type,
			Position:  pc.Position,
			Metadata:  page.Metadata.Merge(pc.Metadata),
		}
		if embeddings != nil {
			vector := pgvector.NewVector(embeddings[i])
			chunk.Embedding = &vector
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func (p *Pipeline) embed(ctx context.Context, chunks []PageChunk) ([][]float32, error) {
	if p.Embedder == nil || len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	if batch, ok := p.Embedder.(BatchEmbedder); ok {
		embeddings, err := batch.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(embeddings) != len(texts) {
			return nil, fmt.Errorf("embedding count mismatch: got %d embeddings for %d chunks", len(embeddings), len(texts))
		}
		return embeddings, nil
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := p.Embedder.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}
