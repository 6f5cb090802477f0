package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/siherrmann/pagegraph/helper"
	"github.com/siherrmann/pagegraph/model"
	"golang.org/x/sync/errgroup"
)

// IndexStore persists pages, their edges and their chunks.
type IndexStore interface {
	UpsertPage(ctx context.Context, page *model.DocumentNode) error
	UpsertEdge(ctx context.Context, edge *model.Edge) error
	InsertChunk(ctx context.Context, chunk *model.Chunk) error
	DeleteChunksByPage(ctx context.Context, pageID string) (int, error)
}

// IndexStats summarizes an indexing run.
type IndexStats struct {
	Pages      int
	Chunks     int
	Edges      int
	Failed     int
	EdgeErrors int
}

// Indexer writes pages into the graph store and the search tables.
type Indexer struct {
	pipeline *Pipeline
	store    IndexStore
	workers  int
	logger   *slog.Logger
}

// NewIndexer creates an indexer processing up to workers pages at once.
func NewIndexer(pipeline *Pipeline, store IndexStore, workers int, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		pipeline: pipeline,
		store:    store,
		workers:  max(workers, 1),
		logger:   logger,
	}
}

// IndexPage writes one page with its chunks and edges. Parent and linked
// pages have to exist already.
func (i *Indexer) IndexPage(ctx context.Context, page Page) (int, error) {
	chunks, err := i.indexContent(ctx, page)
	if err != nil {
		return 0, err
	}
	if _, err := i.indexEdges(ctx, page); err != nil {
		return chunks, err
	}
	return chunks, nil
}

// IndexPages writes all pages first and their edges second, so edges
// between pages of the same run resolve. A failing page is logged and
// counted, it does not stop the run.
func (i *Indexer) IndexPages(ctx context.Context, pages []Page) IndexStats {
	var (
		mu    sync.Mutex
		stats IndexStats
	)
	indexed := make([]bool, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)
	for n, page := range pages {
		g.Go(func() error {
			chunks, err := i.indexContent(gctx, page)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed++
				i.logger.Warn("Failed to index page", slog.String("page_id", page.ID), slog.String("error", err.Error()))
				return nil
			}
			indexed[n] = true
			stats.Pages++
			stats.Chunks += chunks
			return nil
		})
	}
	_ = g.Wait()

	for n, page := range pages {
		if !indexed[n] {
			continue
		}
		edges, err := i.indexEdges(ctx, page)
		stats.Edges += edges
		if err != nil {
			stats.EdgeErrors++
			i.logger.Warn("Failed to write page edges", slog.String("page_id", page.ID), slog.String("error", err.Error()))
		}
	}

	i.logger.Info("Indexed pages",
		slog.Int("pages", stats.Pages),
		slog.Int("chunks", stats.Chunks),
		slog.Int("edges", stats.Edges),
		slog.Int("failed", stats.Failed),
	)
	return stats
}

// indexContent upserts the page node and replaces its chunks.
func (i *Indexer) indexContent(ctx context.Context, page Page) (int, error) {
	if page.ID == "" {
		return 0, helper.NewError("index page", fmt.Errorf("page id is required"))
	}

	chunks, err := i.pipeline.Process(ctx, page)
	if err != nil {
		return 0, err
	}

	if err := i.store.UpsertPage(ctx, page.Node()); err != nil {
		return 0, helper.NewError("upsert page "+page.ID, err)
	}
	if _, err := i.store.DeleteChunksByPage(ctx, page.ID); err != nil {
		return 0, helper.NewError("delete chunks of "+page.ID, err)
	}
	for _, chunk := range chunks {
		if err := i.store.InsertChunk(ctx, chunk); err != nil {
			return 0, helper.NewError("insert chunk of "+page.ID, err)
		}
	}
	return len(chunks), nil
}

// indexEdges writes the parent_of edge from the parent and a links_to
// edge per linked page. Self links are skipped.
func (i *Indexer) indexEdges(ctx context.Context, page Page) (int, error) {
	var edges []*model.Edge
	if page.ParentID != "" {
		edges = append(edges, &model.Edge{SourceID: page.ParentID, TargetID: page.ID, EdgeType: model.EdgeTypeParentOf, Weight: 1})
	}
	seen := map[string]bool{page.ID: true}
	for _, target := range page.Links {
		if target == "" || seen[target] {
			continue
		}
		seen[target] = true
		edges = append(edges, &model.Edge{SourceID: page.ID, TargetID: target, EdgeType: model.EdgeTypeLinksTo, Weight: 1})
	}

	written := 0
	for _, edge := range edges {
		if err := i.store.UpsertEdge(ctx, edge); err != nil {
			return written, helper.NewError(fmt.Sprintf("upsert %s edge %s -> %s", edge.EdgeType, edge.SourceID, edge.TargetID), err)
		}
		written++
	}
	return written, nil
}
