package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/siherrmann/pagegraph/core/aggregate"
	"github.com/siherrmann/pagegraph/model"
	"golang.org/x/sync/errgroup"
)

var errNoHits = errors.New("no search results")

const noResultsAnswer = "I could not find documentation that answers this question. Try different terms or a more specific question."

// subResult is the retrieval outcome of one question or sub-question.
type subResult struct {
	question string
	hits     []*model.SearchHit
	contexts []*model.PageContext
	err      error
}

// answer runs classify, retrieval, synthesis and verification. It returns
// nil only if ctx ended before a response could be built.
func (c *Controller) answer(ctx context.Context, req Request, trace *thinking) *model.Response {
	classification := c.classify(ctx, req.Query, trace)

	if classification.Kind == model.ClassificationNeedsClarification {
		clarification := classification.Clarification
		if clarification == "" {
			clarification = defaultClarification
		}
		return &model.Response{
			Answer:         clarification,
			Classification: classification,
			Suggestions:    classification.Suggestions,
		}
	}

	var results []subResult
	if classification.Kind == model.ClassificationNeedsDecomposition {
		results = c.processSubQuestions(ctx, classification.SubQuestions, req.Filter, trace)
	} else {
		results = []subResult{c.processQuestion(ctx, req.Query, req.Filter)}
	}
	if ctx.Err() != nil {
		return nil
	}

	var succeeded []subResult
	for _, r := range results {
		if r.err != nil {
			trace.record("retrieve", fmt.Sprintf("%q failed: %v", r.question, r.err), false)
			continue
		}
		trace.record("retrieve", fmt.Sprintf("%q: %d hits on %d pages", r.question, len(r.hits), len(r.contexts)), true)
		succeeded = append(succeeded, r)
	}

	if len(succeeded) == 0 {
		return &model.Response{
			Answer:         noResultsAnswer,
			FallbackUsed:   true,
			Classification: classification,
		}
	}

	response := c.synthesize(ctx, req.Query, succeeded, trace)
	if response == nil {
		return nil
	}
	response.Classification = classification

	if c.feedback != nil && !response.FallbackUsed {
		var subQuestions []string
		if classification.Kind == model.ClassificationNeedsDecomposition {
			for _, r := range succeeded {
				subQuestions = append(subQuestions, r.question)
			}
		}
		c.feedback.Submit(Feedback{
			Question:       req.Query,
			ConversationID: req.ConversationID,
			SubQuestions:   subQuestions,
			Cited:          response.Citations,
		})
	}

	return response
}

// classify falls back to atomic when the language model fails.
func (c *Controller) classify(ctx context.Context, query string, trace *thinking) *model.Classification {
	classification, err := c.llm.Classify(ctx, query)
	if err != nil || classification == nil {
		if err != nil {
			c.logger.Warn("Classification failed, treating question as atomic", slog.String("error", err.Error()))
		}
		trace.record("classify", "failed, treated as atomic", false)
		return &model.Classification{Kind: model.ClassificationAtomic}
	}

	if classification.Kind == model.ClassificationNeedsDecomposition {
		if len(classification.SubQuestions) == 0 {
			classification.Kind = model.ClassificationAtomic
		} else if len(classification.SubQuestions) > c.config.MaxSubQuestions {
			classification.SubQuestions = classification.SubQuestions[:c.config.MaxSubQuestions]
		}
	}
	trace.record("classify", string(classification.Kind), true)
	return classification
}

// processSubQuestions runs the sub-questions in concurrent batches.
// Results keep the order of the sub-questions.
func (c *Controller) processSubQuestions(ctx context.Context, questions []string, filter model.SearchFilter, trace *thinking) []subResult {
	batchSize := max(c.config.BatchSize, 1)
	results := make([]subResult, len(questions))

	for start := 0; start < len(questions); start += batchSize {
		if ctx.Err() != nil {
			break
		}
		end := min(start+batchSize, len(questions))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = c.processQuestion(ctx, questions[i], filter)
				return nil
			})
		}
		_ = g.Wait()
		trace.record("batch", fmt.Sprintf("sub-questions %d to %d", start+1, end), true)
	}

	for i := range results {
		if results[i].question == "" && results[i].err == nil {
			results[i] = subResult{question: questions[i], err: ctx.Err()}
		}
	}
	return results
}

// processQuestion retrieves, reranks, aggregates and enriches one question.
func (c *Controller) processQuestion(ctx context.Context, question string, filter model.SearchFilter) subResult {
	result := subResult{question: question}

	hits := c.searcher.Retrieve(ctx, question, filter)
	if len(hits) == 0 {
		result.err = errNoHits
		if ctx.Err() != nil {
			result.err = ctx.Err()
		}
		return result
	}

	result.hits = c.searcher.Rerank(ctx, question, hits, c.config.RerankTop)
	result.contexts = aggregate.Aggregate(result.hits)
	if c.enricher != nil {
		result.contexts = aggregate.ApplyEnrichment(ctx, c.enricher, result.contexts, c.logger)
	}
	return result
}

// synthesize writes and verifies the answer over the merged page contexts.
func (c *Controller) synthesize(ctx context.Context, query string, results []subResult, trace *thinking) *model.Response {
	contexts := mergeContexts(results)
	best, confident := aggregate.SelectBest(contexts, c.config.ConfidenceThreshold, c.config.FallbackCeiling)
	if best == nil {
		return &model.Response{Answer: noResultsAnswer, FallbackUsed: true}
	}
	trace.record("select", aggregate.Summary(best), confident)

	selected := contexts
	if c.config.ContextPages > 0 && len(selected) > c.config.ContextPages {
		selected = selected[:c.config.ContextPages]
	}
	blocks := c.contextBlocks(selected)

	response := &model.Response{
		Confidence:   best.Confidence,
		FallbackUsed: !confident,
		Citations:    citations(selected),
		PageTrees:    BuildPageTrees(selected),
	}

	answer, err := c.llm.Synthesize(ctx, query, blocks)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		trace.record("synthesize", err.Error(), false)
		response.Answer = c.breadcrumbFallback(ctx, "", results)
		response.FallbackUsed = true
		response.Confidence = min(response.Confidence, c.config.FallbackCeiling)
		return response
	}
	trace.record("synthesize", fmt.Sprintf("%d context blocks", len(blocks)), true)

	verification := c.verify(ctx, answer, blocks, trace)
	if verification != nil && verification.Risk == model.RiskHigh {
		// One more attempt restricted to the best page.
		bestBlocks := c.contextBlocks([]*model.PageContext{best})
		retried, err := c.llm.Synthesize(ctx, query, bestBlocks)
		if err == nil {
			trace.record("resynthesize", "best page only", true)
			answer = retried
			verification = c.verify(ctx, answer, bestBlocks, trace)
		} else {
			trace.record("resynthesize", err.Error(), false)
		}

		if err != nil || (verification != nil && verification.Risk == model.RiskHigh) {
			answer = c.breadcrumbFallback(ctx, answer, results)
			response.FallbackUsed = true
			response.Confidence = min(response.Confidence, c.config.FallbackCeiling)
		}
	}
	if ctx.Err() != nil {
		return nil
	}

	response.Answer = answer
	response.Verification = verification
	return response
}

func (c *Controller) verify(ctx context.Context, answer string, blocks []model.ContextBlock, trace *thinking) *model.Verification {
	verification, err := c.llm.Verify(ctx, answer, blocks)
	if err != nil {
		c.logger.Warn("Verification failed", slog.String("error", err.Error()))
		trace.record("verify", err.Error(), false)
		return nil
	}
	trace.record("verify", fmt.Sprintf("risk %s", verification.Risk), true)
	return verification
}

func (c *Controller) contextBlocks(contexts []*model.PageContext) []model.ContextBlock {
	blocks := make([]model.ContextBlock, 0, len(contexts))
	for _, pc := range contexts {
		blocks = append(blocks, aggregate.BuildContextBlock(pc, c.config.ContextChunks))
	}
	return blocks
}

// breadcrumbFallback points the caller to the parent pages of the top
// page of every sub result, with the unverified answer if there is one.
func (c *Controller) breadcrumbFallback(ctx context.Context, answer string, results []subResult) string {
	var b strings.Builder
	if answer != "" {
		b.WriteString("I found some information about your question, but I am not fully confident in it.\n\n")
		b.WriteString(answer)
		b.WriteString("\n\n**Note**: Some claims could not be verified against the source pages.\n")
	} else {
		b.WriteString("I found pages related to your question but could not write a reliable answer.\n")
	}
	b.WriteString("\nFor authoritative information, please check these pages:\n")

	seen := map[string]bool{}
	for _, r := range results {
		if len(r.contexts) == 0 {
			continue
		}
		top := r.contexts[0]
		if seen[top.PageID] {
			continue
		}
		seen[top.PageID] = true
		fmt.Fprintf(&b, "- %s\n", strings.Join(c.breadcrumb(ctx, top), " > "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *Controller) breadcrumb(ctx context.Context, pc *model.PageContext) []string {
	if c.enricher != nil && len(pc.Breadcrumb) == 0 {
		refs, err := c.enricher.Breadcrumb(ctx, pc.PageID)
		if err == nil && len(refs) > 0 {
			titles := make([]string, 0, len(refs))
			for _, ref := range refs {
				titles = append(titles, ref.Title)
			}
			return titles
		}
	}
	if len(pc.Breadcrumb) > 0 {
		return pc.Breadcrumb
	}
	return []string{pc.Title}
}

// mergeContexts combines the page contexts of all sub results. A page
// found by several sub-questions keeps its most confident context.
func mergeContexts(results []subResult) []*model.PageContext {
	byPage := map[string]*model.PageContext{}
	var order []string
	for _, r := range results {
		for _, pc := range r.contexts {
			existing, ok := byPage[pc.PageID]
			if !ok {
				order = append(order, pc.PageID)
			}
			if !ok || pc.Confidence > existing.Confidence {
				byPage[pc.PageID] = pc
			}
		}
	}

	merged := make([]*model.PageContext, 0, len(order))
	for _, id := range order {
		merged = append(merged, byPage[id])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})
	return merged
}

func citations(contexts []*model.PageContext) []model.PageRef {
	refs := make([]model.PageRef, 0, len(contexts))
	for _, pc := range contexts {
		refs = append(refs, pc.Ref())
	}
	return refs
}
