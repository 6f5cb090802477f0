package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/siherrmann/pagegraph/helper"
	"github.com/siherrmann/pagegraph/metrics"
	"github.com/siherrmann/pagegraph/model"
)

// ErrStoreRequired is returned when an engine is created without a store.
var ErrStoreRequired = errors.New("graph store is required")

// MetricsStore is the part of the graph store the metrics engine reads and writes.
type MetricsStore interface {
	SelectEdgesByType(ctx context.Context, edgeType model.EdgeType) ([]*model.Edge, error)
	UpdatePageMetrics(ctx context.Context, metrics model.NodeMetrics) error
}

// MetricsResult summarizes a metrics run.
type MetricsResult struct {
	NodesUpdated int           `json:"nodes_updated"`
	UniqueNodes  int           `json:"unique_nodes"`
	Failed       int           `json:"failed"`
	SkippedEdges int           `json:"skipped_edges"`
	Duration     time.Duration `json:"duration"`
}

// MetricsEngine computes hierarchy depth, child count and centrality for
// every node touched by an edge and writes them back to the store.
type MetricsEngine struct {
	store  MetricsStore
	config model.MetricsConfig
	logger *slog.Logger
}

// MetricsOption configures a MetricsEngine.
type MetricsOption func(*MetricsEngine)

// WithMetricsLogger sets the logger. Default is slog.Default().
func WithMetricsLogger(logger *slog.Logger) MetricsOption {
	return func(e *MetricsEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewMetricsEngine creates a metrics engine. Zero config values fall back
// to the defaults.
func NewMetricsEngine(store MetricsStore, config model.MetricsConfig, opts ...MetricsOption) (*MetricsEngine, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	defaults := model.DefaultMetricsConfig()
	if config.Damping <= 0 || config.Damping >= 1 {
		config.Damping = defaults.Damping
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = defaults.MaxIterations
	}
	if config.Tolerance <= 0 {
		config.Tolerance = defaults.Tolerance
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}

	engine := &MetricsEngine{
		store:  store,
		config: config,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(engine)
	}

	return engine, nil
}

// BuildGraph loads hierarchy and link edges into a graph. Edges without
// both ends or pointing to themselves are skipped and counted.
func (e *MetricsEngine) BuildGraph(ctx context.Context) (*Graph, int, error) {
	parentEdges, err := e.store.SelectEdgesByType(ctx, model.EdgeTypeParentOf)
	if err != nil {
		return nil, 0, helper.NewError("select parent_of edges", err)
	}

	linkEdges, err := e.store.SelectEdgesByType(ctx, model.EdgeTypeLinksTo)
	if err != nil {
		return nil, 0, helper.NewError("select links_to edges", err)
	}

	g := NewGraph()
	skipped := 0
	for _, edge := range parentEdges {
		if !validEdge(edge) {
			skipped++
			continue
		}
		g.AddParentOf(edge.SourceID, edge.TargetID)
	}
	for _, edge := range linkEdges {
		if !validEdge(edge) {
			skipped++
			continue
		}
		g.AddLink(edge.SourceID, edge.TargetID)
	}

	if skipped > 0 {
		e.logger.Warn("Skipped malformed edges", slog.Int("count", skipped))
	}

	return g, skipped, nil
}

// Compute returns the metrics of every node of the graph ordered like Graph.Nodes.
func (e *MetricsEngine) Compute(g *Graph) []model.NodeMetrics {
	depths := HierarchyDepths(g)
	counts := ChildCounts(g)
	ranks := PageRank(g, e.config.Damping, e.config.MaxIterations, e.config.Tolerance)

	nodes := g.Nodes()
	result := make([]model.NodeMetrics, 0, len(nodes))
	for _, id := range nodes {
		result = append(result, model.NodeMetrics{
			PageID:          id,
			HierarchyDepth:  depths[id],
			ChildCount:      counts[id],
			CentralityScore: ranks[id],
			ChildrenIDs:     g.Children(id),
		})
	}
	return result
}

// ComputeAndPersist computes all metrics and writes them in batches.
// A failed write is logged and counted, it never aborts the run.
// Cancelling ctx stops before the next batch.
func (e *MetricsEngine) ComputeAndPersist(ctx context.Context) (*MetricsResult, error) {
	start := time.Now()
	defer func() {
		metrics.GraphMetricsDuration.Observe(time.Since(start).Seconds())
	}()

	g, skipped, err := e.BuildGraph(ctx)
	if err != nil {
		return nil, err
	}

	nodeMetrics := e.Compute(g)
	result := &MetricsResult{
		UniqueNodes:  len(nodeMetrics),
		SkippedEdges: skipped,
	}

	e.logger.Info("Computed graph metrics",
		slog.Int("nodes", len(nodeMetrics)),
		slog.Int("roots", len(g.Roots())),
	)

	updated, failed, err := e.persist(ctx, nodeMetrics)
	result.NodesUpdated = updated
	result.Failed = failed
	result.Duration = time.Since(start)

	e.logger.Info("Persisted graph metrics",
		slog.Int("nodes_updated", result.NodesUpdated),
		slog.Int("unique_nodes", result.UniqueNodes),
		slog.Int("failed", result.Failed),
		slog.Duration("duration", result.Duration),
	)

	return result, err
}

func (e *MetricsEngine) persist(ctx context.Context, nodeMetrics []model.NodeMetrics) (int, int, error) {
	pool, err := ants.NewPool(e.config.Workers)
	if err != nil {
		return 0, 0, helper.NewError("create worker pool", err)
	}
	defer pool.Release()

	var updated, failed atomic.Int64
	for start := 0; start < len(nodeMetrics); start += e.config.BatchSize {
		if err := ctx.Err(); err != nil {
			remaining := len(nodeMetrics) - start
			failed.Add(int64(remaining))
			return int(updated.Load()), int(failed.Load()), helper.NewError("persist metrics", err)
		}

		end := min(start+e.config.BatchSize, len(nodeMetrics))
		batch := nodeMetrics[start:end]

		var wg sync.WaitGroup
		for _, item := range batch {
			wg.Add(1)
			err := pool.Submit(func() {
				defer wg.Done()
				e.writeOne(ctx, item, &updated, &failed)
			})
			if err != nil {
				wg.Done()
				e.writeOne(ctx, item, &updated, &failed)
			}
		}
		wg.Wait()

		e.logger.Debug("Persisted metrics batch",
			slog.Int("batch_start", start),
			slog.Int("batch_size", len(batch)),
		)
	}

	return int(updated.Load()), int(failed.Load()), nil
}

func (e *MetricsEngine) writeOne(ctx context.Context, item model.NodeMetrics, updated, failed *atomic.Int64) {
	err := e.store.UpdatePageMetrics(ctx, item)
	if err != nil {
		failed.Add(1)
		metrics.GraphMetricWrites.WithLabelValues("failed").Inc()
		e.logger.Warn("Failed to write node metrics",
			slog.String("page_id", item.PageID),
			slog.String("error", err.Error()),
		)
		return
	}
	updated.Add(1)
	metrics.GraphMetricWrites.WithLabelValues("ok").Inc()
}

func validEdge(edge *model.Edge) bool {
	return edge != nil && edge.SourceID != "" && edge.TargetID != "" && edge.SourceID != edge.TargetID
}

// String renders the result for logs and the command line.
func (r *MetricsResult) String() string {
	return fmt.Sprintf("nodes_updated=%d unique_nodes=%d failed=%d skipped_edges=%d duration=%s",
		r.NodesUpdated, r.UniqueNodes, r.Failed, r.SkippedEdges, r.Duration)
}
