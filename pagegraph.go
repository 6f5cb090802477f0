package pagegraph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/siherrmann/pagegraph/cache"
	"github.com/siherrmann/pagegraph/config"
	"github.com/siherrmann/pagegraph/core/aggregate"
	"github.com/siherrmann/pagegraph/core/enrich"
	"github.com/siherrmann/pagegraph/core/graph"
	"github.com/siherrmann/pagegraph/core/orchestrator"
	"github.com/siherrmann/pagegraph/core/pipeline"
	"github.com/siherrmann/pagegraph/core/retrieval"
	"github.com/siherrmann/pagegraph/database"
	"github.com/siherrmann/pagegraph/helper"
	"github.com/siherrmann/pagegraph/llm"
	"github.com/siherrmann/pagegraph/model"
	loadSql "github.com/siherrmann/pagegraph/sql"
	"github.com/tmc/langchaingo/llms"
)

// PageGraph wires the graph store, the search tables and the question
// answering components on one database.
type PageGraph struct {
	DB         *helper.Database
	Graph      *database.GraphStore
	Chunks     *database.ChunksDBHandler
	Metrics    *graph.MetricsEngine
	Enricher   *enrich.Enricher
	Retriever  *retrieval.Retriever
	Indexer    *pipeline.Indexer
	Controller *orchestrator.Controller

	feedback *orchestrator.FeedbackQueue
	closers  []func() error
	log      *slog.Logger
}

// Option overrides a component built from the configuration.
type Option func(*options)

type options struct {
	model    llms.Model
	embedder pipeline.Embedder
	logger   *slog.Logger
}

// WithLanguageModel uses model instead of the configured OpenAI compatible endpoint.
func WithLanguageModel(model llms.Model) Option {
	return func(o *options) {
		o.model = model
	}
}

// WithEmbedder uses embedder for chunks and queries instead of the configured provider.
func WithEmbedder(embedder pipeline.Embedder) Option {
	return func(o *options) {
		o.embedder = embedder
	}
}

// WithLogger replaces the logger built from the log configuration.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewPageGraph connects to the database, creates the tables and wires all
// components from the configuration.
func NewPageGraph(ctx context.Context, dbConfig *helper.DatabaseConfiguration, cfg *config.Config, opts ...Option) (*PageGraph, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = cfg.Log.Logger()
	}

	db := helper.NewDatabase("pagegraph", dbConfig, logger)
	p, err := newPageGraph(ctx, db, cfg, o, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

func newPageGraph(ctx context.Context, db *helper.Database, cfg *config.Config, o *options, logger *slog.Logger) (_ *PageGraph, err error) {
	p := &PageGraph{DB: db, log: logger}
	defer func() {
		if err != nil {
			p.release()
		}
	}()

	err = loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Pages before edges and chunks since both reference pages.
	p.Graph, err = database.NewGraphStore(db, false)
	if err != nil {
		return nil, helper.NewError("create graph store", err)
	}
	p.Chunks, err = database.NewChunksDBHandler(db, cfg.Embedder.Dimension, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	embedder := o.embedder
	if embedder == nil {
		embedder, err = p.newEmbedder(cfg)
		if err != nil {
			return nil, err
		}
	}

	embeddingCache, err := cache.New(ctx, "embedding", cfg.EmbeddingCache)
	if err != nil {
		return nil, helper.NewError("create embedding cache", err)
	}
	p.closers = append(p.closers, embeddingCache.Close)
	queryEmbedder := retrieval.NewCachedEmbedder(embedder, embeddingCache, cfg.EmbeddingCache.DefaultTTL, logger)
	p.Chunks.SetQueryEmbedder(queryEmbedder.Embed)

	var client *llm.Client
	if o.model != nil {
		client = llm.NewClient(o.model, cfg.LLM, logger)
	} else {
		client, err = llm.NewOpenAIClient(cfg.LLM, logger)
		if err != nil {
			return nil, helper.NewError("create language model client", err)
		}
	}

	p.Retriever = retrieval.NewRetriever(p.Chunks, cfg.Retrieval,
		retrieval.WithEmbedder(queryEmbedder),
		retrieval.WithReranker(client),
		retrieval.WithLogger(logger),
	)
	p.Enricher = enrich.NewEnricher(p.Graph, cfg.Enrich, logger)
	p.Metrics, err = graph.NewMetricsEngine(p.Graph, cfg.Metrics, graph.WithMetricsLogger(logger))
	if err != nil {
		return nil, helper.NewError("create metrics engine", err)
	}

	chunker := pipeline.SentenceChunker(3)
	p.Indexer = pipeline.NewIndexer(pipeline.NewPipeline(chunker, embedder), indexStore{p.Graph, p.Chunks}, cfg.Metrics.Workers, logger)

	responseCache, err := cache.New(ctx, "response", cfg.ResponseCache)
	if err != nil {
		return nil, helper.NewError("create response cache", err)
	}
	p.closers = append(p.closers, responseCache.Close)

	p.feedback, err = orchestrator.NewFeedbackQueue(p.Graph, cfg.Orchestrator.FeedbackWorkers, logger)
	if err != nil {
		return nil, helper.NewError("create feedback queue", err)
	}

	p.Controller = orchestrator.NewController(p.Retriever, client, cfg.Orchestrator,
		orchestrator.WithEnricher(p.Enricher),
		orchestrator.WithResponseCache(responseCache),
		orchestrator.WithFeedback(p.feedback),
		orchestrator.WithLogger(logger),
	)

	logger.Info("Initialized pagegraph",
		slog.String("embedder", cfg.Embedder.Provider),
		slog.String("response_cache", cfg.ResponseCache.Backend),
		slog.String("model", cfg.LLM.Model),
	)
	return p, nil
}

func (p *PageGraph) newEmbedder(cfg *config.Config) (pipeline.Embedder, error) {
	switch cfg.Embedder.Provider {
	case "", "hugot":
		embedder, err := pipeline.NewHugotEmbedder(cfg.Embedder.ModelName, cfg.Embedder.ModelPath)
		if err != nil {
			return nil, helper.NewError("create hugot embedder", err)
		}
		p.closers = append(p.closers, embedder.Close)
		return embedder, nil
	case "openai":
		embedder, err := llm.NewOpenAIEmbedder(cfg.LLM, p.log)
		if err != nil {
			return nil, helper.NewError("create openai embedder", err)
		}
		return embedder, nil
	}
	return nil, helper.NewError("create embedder", fmt.Errorf("unknown embedder provider %q", cfg.Embedder.Provider))
}

// indexStore writes pages and edges to the graph store and chunks to the
// chunk table.
type indexStore struct {
	*database.GraphStore
	*database.ChunksDBHandler
}

// Ask answers a question.
func (p *PageGraph) Ask(ctx context.Context, question, conversationID string, filter model.SearchFilter) *model.Response {
	return p.Controller.Ask(ctx, orchestrator.Request{
		Query:          question,
		ConversationID: conversationID,
		Filter:         filter,
	})
}

// Search retrieves hits with the named strategy: progressive, hybrid or keyword.
func (p *PageGraph) Search(ctx context.Context, strategy string, query string, filter model.SearchFilter) ([]*model.SearchHit, error) {
	s, err := retrieval.NewStrategy(strategy, p.Retriever)
	if err != nil {
		return nil, err
	}
	return s.Retrieve(ctx, query, filter), nil
}

// ComputeMetrics recomputes depth, child count and centrality of all pages.
func (p *PageGraph) ComputeMetrics(ctx context.Context) (*graph.MetricsResult, error) {
	return p.Metrics.ComputeAndPersist(ctx)
}

// IndexPages writes pages, edges and embedded chunks.
func (p *PageGraph) IndexPages(ctx context.Context, pages []pipeline.Page) pipeline.IndexStats {
	return p.Indexer.IndexPages(ctx, pages)
}

// Breadcrumb returns the path from the root to the page.
func (p *PageGraph) Breadcrumb(ctx context.Context, pageID string) ([]model.PageRef, error) {
	return p.Enricher.Breadcrumb(ctx, pageID)
}

// FindPath returns the shortest path between two pages, nil if none is
// found within the configured number of hops.
func (p *PageGraph) FindPath(ctx context.Context, fromID, toID string) ([]model.PageRef, error) {
	return p.Enricher.FindPath(ctx, fromID, toID)
}

// PopularPages returns the pages with the most inbound links.
func (p *PageGraph) PopularPages(ctx context.Context, spaceKey string, limit int) ([]*model.PopularPage, error) {
	return p.Enricher.PopularPages(ctx, spaceKey, limit)
}

// SimilarPages returns siblings and linked pages ordered by centrality.
func (p *PageGraph) SimilarPages(ctx context.Context, pageID string, limit int) ([]*model.DocumentNode, error) {
	return aggregate.SimilarPages(ctx, p.Graph, pageID, limit)
}

// ChangeIndexType rebuilds the vector index of the chunk table.
func (p *PageGraph) ChangeIndexType(ctx context.Context, index database.VectorIndex) error {
	return p.Chunks.ChangeIndexType(ctx, index)
}

// Close waits for pending feedback writes and releases all resources.
func (p *PageGraph) Close() error {
	if p.feedback != nil {
		p.feedback.Close()
	}
	p.release()
	return p.DB.Close()
}

func (p *PageGraph) release() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			p.log.Warn("Failed to close resource", slog.String("error", err.Error()))
		}
	}
	p.closers = nil
}
