package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/pagegraph/cache"
	"github.com/siherrmann/pagegraph/metrics"
	"github.com/siherrmann/pagegraph/model"
)

const (
	genericFailureAnswer = "I could not complete your request in time. Please try again or rephrase your question."
	emptyQuestionAnswer  = "Please ask a question about the documentation."
	defaultClarification = "Could you add more detail to your question, for example the product, version or area it is about?"
)

// Searcher retrieves and reranks hits.
type Searcher interface {
	Retrieve(ctx context.Context, query string, filter model.SearchFilter) []*model.SearchHit
	KeywordOnly(ctx context.Context, query string, filter model.SearchFilter, top int) []*model.SearchHit
	Rerank(ctx context.Context, query string, hits []*model.SearchHit, top int) []*model.SearchHit
}

// LanguageModel classifies questions and writes and checks answers.
type LanguageModel interface {
	Classify(ctx context.Context, query string) (*model.Classification, error)
	Synthesize(ctx context.Context, query string, blocks []model.ContextBlock) (string, error)
	Verify(ctx context.Context, answer string, blocks []model.ContextBlock) (*model.Verification, error)
}

// GraphEnricher adds graph context to pages.
type GraphEnricher interface {
	Enrich(ctx context.Context, pageID string, partial *model.EnrichedContext) *model.EnrichedContext
	Breadcrumb(ctx context.Context, pageID string) ([]model.PageRef, error)
}

// Request is a question from a caller.
type Request struct {
	Query          string             `json:"query"`
	ConversationID string             `json:"conversation_id,omitempty"`
	Filter         model.SearchFilter `json:"filter"`
}

// Controller answers questions end to end. It always returns a response,
// degraded answers are marked with FallbackUsed or Timeout.
type Controller struct {
	searcher Searcher
	llm      LanguageModel
	enricher GraphEnricher
	cache    cache.Store
	feedback *FeedbackQueue
	config   model.OrchestratorConfig
	logger   *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithEnricher enables graph enrichment, breadcrumbs and page trees.
func WithEnricher(enricher GraphEnricher) Option {
	return func(c *Controller) {
		c.enricher = enricher
	}
}

// WithResponseCache caches successful responses.
func WithResponseCache(store cache.Store) Option {
	return func(c *Controller) {
		c.cache = store
	}
}

// WithFeedback writes answered questions back to the graph.
func WithFeedback(queue *FeedbackQueue) Option {
	return func(c *Controller) {
		c.feedback = queue
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController creates a controller.
func NewController(searcher Searcher, llm LanguageModel, config model.OrchestratorConfig, opts ...Option) *Controller {
	c := &Controller{
		searcher: searcher,
		llm:      llm,
		config:   config,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ask answers a question within the configured timeout. A cached
// response for the same normalized question and filter is returned
// directly. When the timeout fires, the pipeline result is discarded and
// a fast keyword answer or a generic message is returned instead.
func (c *Controller) Ask(ctx context.Context, req Request) *model.Response {
	start := time.Now()
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}
	defer func() {
		metrics.QueryDuration.Observe(time.Since(start).Seconds())
	}()

	if strings.TrimSpace(req.Query) == "" {
		return &model.Response{Answer: emptyQuestionAnswer, ConversationID: req.ConversationID}
	}

	key := cache.Key("response", req.Query, req.Filter)
	if cached := c.cached(ctx, key); cached != nil {
		metrics.QueriesTotal.WithLabelValues("cached").Inc()
		cached.Cached = true
		cached.ConversationID = req.ConversationID
		cached.Duration = time.Since(start)
		return cached
	}

	trace := newThinking(start)
	runCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	done := make(chan *model.Response, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("Answer pipeline panicked", slog.Any("panic", r))
				done <- nil
			}
		}()
		done <- c.answer(runCtx, req, trace)
	}()

	var response *model.Response
	select {
	case response = <-done:
	case <-runCtx.Done():
	}

	if response == nil {
		trace.record("timeout", fmt.Sprintf("pipeline did not finish within %s", c.config.Timeout), false)
		metrics.QueriesTotal.WithLabelValues("timeout").Inc()
		response = c.timeoutFallback(ctx, req, trace)
	} else {
		metrics.QueriesTotal.WithLabelValues(queryPath(response)).Inc()
		if c.cacheable(response) {
			c.store(ctx, key, response)
		}
	}

	response.ConversationID = req.ConversationID
	response.ThinkingSteps = trace.snapshot()
	response.Duration = time.Since(start)

	c.logger.Info("Answered question",
		slog.String("conversation_id", req.ConversationID),
		slog.Float64("confidence", response.Confidence),
		slog.Bool("fallback_used", response.FallbackUsed),
		slog.Bool("timeout", response.Timeout),
		slog.Duration("duration", response.Duration),
	)
	return response
}

// timeoutFallback runs one keyword search bounded by the fallback timeout.
func (c *Controller) timeoutFallback(ctx context.Context, req Request, trace *thinking) *model.Response {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.FallbackTimeout)
	defer cancel()

	found := make(chan []*model.SearchHit, 1)
	go func() {
		found <- c.searcher.KeywordOnly(fctx, req.Query, req.Filter, c.config.FallbackSearchTop)
	}()

	var hits []*model.SearchHit
	select {
	case hits = <-found:
	case <-fctx.Done():
	}

	if len(hits) == 0 {
		trace.record("fallback_search", "no results", false)
		return &model.Response{
			Answer:       genericFailureAnswer,
			Confidence:   0,
			Timeout:      true,
			FallbackUsed: true,
		}
	}

	top := hits[0]
	trace.record("fallback_search", fmt.Sprintf("%d keyword hits", len(hits)), true)
	answer := fmt.Sprintf(`I ran out of time while answering your question, but found relevant information:

%s: %s [[%s]]

For a complete answer you may want to:
1. Check the full page: %s
2. Ask a more specific question
3. Browse related pages in the documentation`, top.Title, truncate(top.Content, 200), top.ChunkID, top.Title)

	return &model.Response{
		Answer:         answer,
		Confidence:     c.config.FallbackConfidence,
		PageTrees:      []*model.PageTree{PartialTree(top.PageID, top.Title)},
		Citations:      []model.PageRef{{ID: top.PageID, Title: top.Title}},
		Timeout:        true,
		FallbackUsed:   true,
		PartialResults: true,
	}
}

func (c *Controller) cached(ctx context.Context, key string) *model.Response {
	if c.cache == nil {
		return nil
	}
	response, ok, err := cache.GetJSON[model.Response](ctx, c.cache, key)
	if err != nil {
		c.logger.Warn("Response cache read failed", slog.String("error", err.Error()))
		return nil
	}
	if !ok {
		return nil
	}
	return response
}

func (c *Controller) store(ctx context.Context, key string, response *model.Response) {
	if c.cache == nil {
		return
	}
	stored := *response
	stored.ThinkingSteps = nil
	if err := cache.SetJSON(ctx, c.cache, key, stored, c.config.ResponseTTL); err != nil {
		c.logger.Warn("Response cache write failed", slog.String("error", err.Error()))
	}
}

// cacheable is true for complete answers built from retrieved pages.
func (c *Controller) cacheable(response *model.Response) bool {
	if response.Timeout || response.Confidence <= 0 {
		return false
	}
	return response.Classification == nil || response.Classification.Kind != model.ClassificationNeedsClarification
}

func queryPath(response *model.Response) string {
	switch {
	case response.Classification != nil && response.Classification.Kind == model.ClassificationNeedsClarification:
		return "clarification"
	case response.FallbackUsed:
		return "fallback"
	}
	return "answered"
}

func truncate(text string, n int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}
