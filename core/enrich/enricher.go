package enrich

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/siherrmann/pagegraph/core/graph"
	"github.com/siherrmann/pagegraph/database"
	"github.com/siherrmann/pagegraph/helper"
	"github.com/siherrmann/pagegraph/metrics"
	"github.com/siherrmann/pagegraph/model"
	"golang.org/x/sync/errgroup"
)

// GraphStore is the graph store view the enricher needs.
type GraphStore interface {
	graph.TraversalStore
	SelectPage(ctx context.Context, id string) (*model.DocumentNode, error)
	SelectSiblings(ctx context.Context, pageID string, limit int) ([]model.PageRef, error)
	SelectPopularPages(ctx context.Context, spaceKey string, limit int) ([]*model.PopularPage, error)
}

// Stats are the enricher counters since creation.
type Stats struct {
	Queries  int64 `json:"queries"`
	Enriched int64 `json:"enriched"`
	Errors   int64 `json:"errors"`
}

// Enricher annotates pages with their graph neighbourhood.
type Enricher struct {
	store     GraphStore
	traverser *graph.Traverser
	config    model.EnrichConfig
	logger    *slog.Logger

	queries  atomic.Int64
	enriched atomic.Int64
	failures atomic.Int64
}

// NewEnricher creates an enricher on top of the given store.
func NewEnricher(store GraphStore, config model.EnrichConfig, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{
		store:     store,
		traverser: graph.NewTraverser(store, config.MaxAncestorDepth, logger),
		config:    config,
		logger:    logger,
	}
}

// Enrich runs the ancestor, children, sibling and related lookups for a page.
// On any lookup error partial is returned unchanged and the error counter
// is incremented.
func (e *Enricher) Enrich(ctx context.Context, pageID string, partial *model.EnrichedContext) *model.EnrichedContext {
	e.queries.Add(1)

	enriched, err := e.enrich(ctx, pageID, partial)
	if err != nil {
		e.failures.Add(1)
		metrics.EnrichmentTotal.WithLabelValues("error").Inc()
		e.logger.Warn("Graph enrichment failed",
			slog.String("page_id", pageID),
			slog.String("error", err.Error()),
		)
		return partial
	}

	e.enriched.Add(1)
	metrics.EnrichmentTotal.WithLabelValues("ok").Inc()
	return enriched
}

func (e *Enricher) enrich(ctx context.Context, pageID string, partial *model.EnrichedContext) (*model.EnrichedContext, error) {
	if e.config.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.LookupTimeout)
		defer cancel()
	}

	result := &model.EnrichedContext{PageID: pageID, BaseConfidence: e.config.BaseConfidence}
	if partial != nil {
		*result = *partial
		result.PageID = pageID
		if result.BaseConfidence <= 0 {
			result.BaseConfidence = e.config.BaseConfidence
		}
	}

	var (
		page      *model.DocumentNode
		ancestors []model.PageRef
		children  []model.PageRef
		siblings  []model.PageRef
		related   []model.PageRef
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ancestors, err = e.traverser.Ancestors(gctx, pageID)
		return helper.NewError("ancestors", err)
	})
	g.Go(func() error {
		var err error
		children, err = e.store.SelectChildren(gctx, pageID, 0)
		return helper.NewError("children", err)
	})
	g.Go(func() error {
		var err error
		siblings, err = e.store.SelectSiblings(gctx, pageID, e.config.SiblingLimit)
		return helper.NewError("siblings", err)
	})
	g.Go(func() error {
		var err error
		related, err = e.related(gctx, pageID)
		return helper.NewError("related", err)
	})
	g.Go(func() error {
		var err error
		page, err = e.store.SelectPage(gctx, pageID)
		if errors.Is(err, database.ErrPageNotFound) {
			return nil
		}
		return helper.NewError("page", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if page != nil {
		result.Title = page.Title
		result.HierarchyDepth = page.HierarchyDepth
		result.CentralityScore = page.CentralityScore
	}

	result.Ancestors = ancestors
	result.Children = children
	result.Siblings = siblings
	result.RelatedPages = related
	if len(ancestors) > 0 {
		parent := ancestors[len(ancestors)-1]
		result.ParentID = parent.ID
		result.ParentTitle = parent.Title
	}
	result.Breadcrumb = BreadcrumbString(ancestors, result.Title)
	result.BoostedConfidence = e.BoostConfidence(result.BaseConfidence, len(ancestors), len(children), len(related))

	return result, nil
}

// related returns outgoing then incoming link neighbours, each capped
// per direction, without duplicates.
func (e *Enricher) related(ctx context.Context, pageID string) ([]model.PageRef, error) {
	outgoing, err := e.store.SelectOutgoingLinks(ctx, pageID, e.config.RelatedPerDir)
	if err != nil {
		return nil, err
	}
	incoming, err := e.store.SelectIncomingLinks(ctx, pageID, e.config.RelatedPerDir)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{pageID: true}
	related := make([]model.PageRef, 0, len(outgoing)+len(incoming))
	for _, ref := range append(outgoing, incoming...) {
		if seen[ref.ID] {
			continue
		}
		seen[ref.ID] = true
		related = append(related, ref)
	}
	return related, nil
}

// BoostConfidence scales base by the structural boost factor of the config.
func (e *Enricher) BoostConfidence(base float64, ancestors, children, related int) float64 {
	return BoostConfidence(e.config, base, ancestors, children, related)
}

// BoostConfidence returns base times a factor that grows with the number of
// ancestors, children and related pages. Each count is capped, the factor
// is clamped to MaxBoostFactor and the result to 1.0.
func BoostConfidence(config model.EnrichConfig, base float64, ancestors, children, related int) float64 {
	factor := 1.0
	factor += config.AncestorBoost * float64(min(ancestors, config.MaxBoostedAncestor))
	factor += config.ChildBoost * float64(min(children, config.MaxBoostedChildren))
	factor += config.RelatedBoost * float64(min(related, config.MaxBoostedRelated))
	factor = min(factor, config.MaxBoostFactor)

	return max(0, min(base*factor, 1.0))
}

// BreadcrumbString joins ancestor titles and the page title with " > ".
func BreadcrumbString(ancestors []model.PageRef, title string) string {
	parts := BreadcrumbTitles(ancestors, title)
	return strings.Join(parts, " > ")
}

// BreadcrumbTitles returns the ancestor titles root to leaf with title appended.
func BreadcrumbTitles(ancestors []model.PageRef, title string) []string {
	parts := make([]string, 0, len(ancestors)+1)
	for _, a := range ancestors {
		parts = append(parts, a.Title)
	}
	if title != "" {
		parts = append(parts, title)
	}
	return parts
}

// Breadcrumb returns the path from the root to the page, the page included.
func (e *Enricher) Breadcrumb(ctx context.Context, pageID string) ([]model.PageRef, error) {
	ancestors, err := e.traverser.Ancestors(ctx, pageID)
	if err != nil {
		return nil, helper.NewError("breadcrumb", err)
	}

	self := model.PageRef{ID: pageID}
	page, err := e.store.SelectPage(ctx, pageID)
	if err != nil && !errors.Is(err, database.ErrPageNotFound) {
		return nil, helper.NewError("breadcrumb page", err)
	}
	if page != nil {
		self = page.Ref()
	}

	return append(ancestors, self), nil
}

// FindPath returns the shortest page path between two pages within the
// configured hop limit, or nil if there is none.
func (e *Enricher) FindPath(ctx context.Context, fromID, toID string) ([]model.PageRef, error) {
	start := time.Now()
	path, err := e.traverser.FindPath(ctx, fromID, toID, e.config.PathMaxHops)
	if err != nil {
		return nil, helper.NewError("find path", err)
	}

	e.logger.Debug("Path search finished",
		slog.String("from", fromID),
		slog.String("to", toID),
		slog.Int("length", len(path)),
		slog.Duration("duration", time.Since(start)),
	)
	return path, nil
}

// PopularPages returns the pages with the most inbound links. An empty
// spaceKey searches all spaces.
func (e *Enricher) PopularPages(ctx context.Context, spaceKey string, limit int) ([]*model.PopularPage, error) {
	if limit <= 0 {
		limit = 10
	}
	pages, err := e.store.SelectPopularPages(ctx, spaceKey, limit)
	if err != nil {
		return nil, helper.NewError("popular pages", err)
	}
	return pages, nil
}

// Stats returns a snapshot of the counters.
func (e *Enricher) Stats() Stats {
	return Stats{
		Queries:  e.queries.Load(),
		Enriched: e.enriched.Load(),
		Errors:   e.failures.Load(),
	}
}
