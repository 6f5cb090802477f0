package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/siherrmann/pagegraph/helper"
	"github.com/siherrmann/pagegraph/metrics"
	"github.com/siherrmann/pagegraph/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("pagegraph/retrieval")

// ErrPhaseUnavailable marks a phase that could not run, for example the
// vector phase without an embedder.
var ErrPhaseUnavailable = errors.New("retrieval phase unavailable")

// SearchIndex is the search service with its three query shapes. Scores
// are only comparable within one shape.
type SearchIndex interface {
	Keyword(ctx context.Context, text string, filter model.SearchFilter, top int) ([]*model.SearchHit, error)
	Vector(ctx context.Context, vector []float32, k int, fields []string, filter model.SearchFilter) ([]*model.SearchHit, error)
	Semantic(ctx context.Context, text string, filter model.SearchFilter, top int) ([]*model.SearchHit, error)
}

// Retriever runs keyword, vector and semantic search with escalation.
type Retriever struct {
	index    SearchIndex
	embedder Embedder
	reranker Reranker
	config   model.RetrievalConfig
	weights  Weights
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithEmbedder enables the vector phase.
func WithEmbedder(embedder Embedder) Option {
	return func(r *Retriever) {
		r.embedder = embedder
	}
}

// WithReranker sets the reranker used by Rerank.
func WithReranker(reranker Reranker) Option {
	return func(r *Retriever) {
		r.reranker = reranker
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRetriever creates a retriever on top of index.
func NewRetriever(index SearchIndex, config model.RetrievalConfig, opts ...Option) *Retriever {
	r := &Retriever{
		index:   index,
		config:  config,
		weights: WeightsFromConfig(config),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve runs the keyword phase and stops there when it already has
// enough confident hits. Otherwise it adds vector search and stops when
// there are enough unique hits, and finally adds semantic search.
// A failing phase only contributes no hits.
func (r *Retriever) Retrieve(ctx context.Context, query string, filter model.SearchFilter) []*model.SearchHit {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "retrieval.Retrieve", trace.WithAttributes(attribute.String("retrieval.mode", "progressive")))
	defer span.End()
	defer func() {
		metrics.RetrievalDuration.WithLabelValues("progressive").Observe(time.Since(start).Seconds())
	}()

	keyword := r.keywordPhase(ctx, query, filter, r.config.KeywordTop)
	if len(keyword) >= r.config.EarlyExitMinHits && topScore(keyword) > r.config.EarlyExitMinScore {
		return r.exit(span, "keyword", limit(Dedupe(keyword), r.config.EarlyExitLimit))
	}

	vector := r.vectorPhase(ctx, query, filter)
	merged := Fuse(r.weights, keyword, vector)
	if len(merged) >= r.config.VectorPhaseMinHits {
		return r.exit(span, "vector", limit(merged, r.config.VectorPhaseLimit))
	}

	semantic := r.semanticPhase(ctx, query, filter)
	merged = Fuse(r.weights, keyword, vector, semantic)
	return r.exit(span, "semantic", limit(merged, r.config.MaxResults))
}

// RetrieveHybrid issues all three phases concurrently and fuses whatever
// returned. The result is ordered by fused score.
func (r *Retriever) RetrieveHybrid(ctx context.Context, query string, filter model.SearchFilter) []*model.SearchHit {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "retrieval.RetrieveHybrid", trace.WithAttributes(attribute.String("retrieval.mode", "hybrid")))
	defer span.End()
	defer func() {
		metrics.RetrievalDuration.WithLabelValues("hybrid").Observe(time.Since(start).Seconds())
	}()

	var (
		mu     sync.Mutex
		phases = map[model.Modality][]*model.SearchHit{}
	)
	collect := func(m model.Modality, hits []*model.SearchHit) {
		mu.Lock()
		defer mu.Unlock()
		phases[m] = hits
	}

	// Phases never return errors, a failure only yields no hits.
	var g errgroup.Group
	g.Go(func() error {
		collect(model.ModalityKeyword, r.keywordPhase(ctx, query, filter, r.config.KeywordTop))
		return nil
	})
	g.Go(func() error {
		collect(model.ModalityVector, r.vectorPhase(ctx, query, filter))
		return nil
	})
	g.Go(func() error {
		collect(model.ModalitySemantic, r.semanticPhase(ctx, query, filter))
		return nil
	})
	_ = g.Wait()

	fused := Fuse(r.weights, phases[model.ModalityKeyword], phases[model.ModalityVector], phases[model.ModalitySemantic])
	SortByScore(fused)
	return r.exit(span, "hybrid", limit(fused, r.config.MaxResults))
}

// KeywordOnly runs a single keyword search.
func (r *Retriever) KeywordOnly(ctx context.Context, query string, filter model.SearchFilter, top int) []*model.SearchHit {
	ctx, span := tracer.Start(ctx, "retrieval.KeywordOnly")
	defer span.End()

	if top <= 0 {
		top = r.config.KeywordTop
	}
	return r.exit(span, "keyword_only", Dedupe(r.keywordPhase(ctx, query, filter, top)))
}

func (r *Retriever) exit(span trace.Span, phase string, hits []*model.SearchHit) []*model.SearchHit {
	metrics.RetrievalExitTotal.WithLabelValues(phase).Inc()
	span.SetAttributes(
		attribute.String("retrieval.exit_phase", phase),
		attribute.Int("retrieval.hits", len(hits)),
	)
	r.logger.Debug("Retrieval finished", slog.String("exit_phase", phase), slog.Int("hits", len(hits)))
	return hits
}

func (r *Retriever) keywordPhase(ctx context.Context, query string, filter model.SearchFilter, top int) []*model.SearchHit {
	return r.runPhase(ctx, model.ModalityKeyword, func(ctx context.Context) ([]*model.SearchHit, error) {
		return r.index.Keyword(ctx, query, filter, top)
	})
}

func (r *Retriever) vectorPhase(ctx context.Context, query string, filter model.SearchFilter) []*model.SearchHit {
	return r.runPhase(ctx, model.ModalityVector, func(ctx context.Context) ([]*model.SearchHit, error) {
		if r.embedder == nil {
			return nil, helper.NewError("vector phase", ErrPhaseUnavailable)
		}
		vector, err := r.embedder.Embed(ctx, query)
		if err != nil {
			return nil, helper.NewError("vector phase", errors.Join(ErrPhaseUnavailable, err))
		}
		return r.index.Vector(ctx, vector, r.config.VectorK, r.config.VectorFields, filter)
	})
}

func (r *Retriever) semanticPhase(ctx context.Context, query string, filter model.SearchFilter) []*model.SearchHit {
	return r.runPhase(ctx, model.ModalitySemantic, func(ctx context.Context) ([]*model.SearchHit, error) {
		return r.index.Semantic(ctx, query, filter, r.config.SemanticTop)
	})
}

// runPhase bounds a phase by the phase timeout and converts errors into
// an empty result. Returned hits are tagged with the phase modality.
func (r *Retriever) runPhase(ctx context.Context, modality model.Modality, run func(ctx context.Context) ([]*model.SearchHit, error)) []*model.SearchHit {
	ctx, span := tracer.Start(ctx, "retrieval.phase."+string(modality))
	defer span.End()

	if r.config.PhaseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.PhaseTimeout)
		defer cancel()
	}

	hits, err := run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RetrievalPhaseTotal.WithLabelValues(string(modality), "error").Inc()
		r.logger.Warn("Retrieval phase failed",
			slog.String("phase", string(modality)),
			slog.String("error", err.Error()),
		)
		return nil
	}

	for _, hit := range hits {
		if hit != nil && hit.Modality == "" {
			hit.Modality = modality
		}
	}

	status := "ok"
	if len(hits) == 0 {
		status = "empty"
	}
	metrics.RetrievalPhaseTotal.WithLabelValues(string(modality), status).Inc()
	span.SetAttributes(attribute.Int("retrieval.hits", len(hits)))
	return hits
}
