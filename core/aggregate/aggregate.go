package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/siherrmann/pagegraph/core/enrich"
	"github.com/siherrmann/pagegraph/model"
	"golang.org/x/sync/errgroup"
)

const (
	meanWeight = 0.6
	maxWeight  = 0.4
)

// Enricher annotates a page with its graph context. It must not fail,
// on errors it returns partial.
type Enricher interface {
	Enrich(ctx context.Context, pageID string, partial *model.EnrichedContext) *model.EnrichedContext
}

// Aggregate groups hits by page. Chunks are ordered by score and contexts
// by confidence, ties keep first seen order.
func Aggregate(hits []*model.SearchHit) []*model.PageContext {
	var contexts []*model.PageContext
	byPage := map[string]*model.PageContext{}

	for _, hit := range hits {
		if hit == nil || hit.PageID == "" {
			continue
		}
		pc, ok := byPage[hit.PageID]
		if !ok {
			pc = &model.PageContext{
				PageID:     hit.PageID,
				Title:      hit.Title,
				Breadcrumb: hit.Breadcrumb,
			}
			byPage[hit.PageID] = pc
			contexts = append(contexts, pc)
		}
		if pc.Title == "" {
			pc.Title = hit.Title
		}
		if len(pc.Breadcrumb) == 0 {
			pc.Breadcrumb = hit.Breadcrumb
		}
		pc.Chunks = append(pc.Chunks, hit)
	}

	for _, pc := range contexts {
		sort.SliceStable(pc.Chunks, func(i, j int) bool {
			return pc.Chunks[i].Score > pc.Chunks[j].Score
		})
		pc.Confidence = Confidence(pc.Chunks)
	}
	sortByConfidence(contexts)

	return contexts
}

// Confidence blends the mean and the maximum chunk score.
func Confidence(chunks []*model.SearchHit) float64 {
	if len(chunks) == 0 {
		return 0
	}
	var sum, top float64
	for _, c := range chunks {
		sum += c.Score
		top = max(top, c.Score)
	}
	return meanWeight*(sum/float64(len(chunks))) + maxWeight*top
}

// SelectBest returns the most confident context meeting threshold and
// true. If none meets it, a copy of the most confident context with its
// confidence capped at ceiling is returned with false. Nil if contexts is empty.
func SelectBest(contexts []*model.PageContext, threshold, ceiling float64) (*model.PageContext, bool) {
	var best *model.PageContext
	for _, pc := range contexts {
		if pc != nil && (best == nil || pc.Confidence > best.Confidence) {
			best = pc
		}
	}
	if best == nil {
		return nil, false
	}
	if best.Confidence >= threshold {
		return best, true
	}

	capped := *best
	capped.Confidence = min(best.Confidence, ceiling)
	return &capped, false
}

// ApplyEnrichment enriches every context concurrently, replaces its
// confidence by the boosted confidence and re-sorts the contexts.
// Pages the enricher could not annotate keep their confidence.
func ApplyEnrichment(ctx context.Context, enricher Enricher, contexts []*model.PageContext, logger *slog.Logger) []*model.PageContext {
	if enricher == nil || len(contexts) == 0 {
		return contexts
	}
	if logger == nil {
		logger = slog.Default()
	}

	var g errgroup.Group
	g.SetLimit(4)
	for _, pc := range contexts {
		g.Go(func() error {
			partial := &model.EnrichedContext{
				PageID:         pc.PageID,
				Title:          pc.Title,
				BaseConfidence: pc.Confidence,
			}
			enriched := enricher.Enrich(ctx, pc.PageID, partial)
			if enriched == nil || enriched == partial {
				logger.Debug("Page kept without graph context", slog.String("page_id", pc.PageID))
				return nil
			}

			pc.Graph = enriched
			pc.Ancestors = enriched.Ancestors
			pc.Children = enriched.Children
			if pc.Title == "" {
				pc.Title = enriched.Title
			}
			if len(enriched.Ancestors) > 0 {
				pc.Breadcrumb = enrich.BreadcrumbTitles(enriched.Ancestors, pc.Title)
			}
			if enriched.BoostedConfidence > 0 {
				pc.Confidence = enriched.BoostedConfidence
			}
			return nil
		})
	}
	_ = g.Wait()

	sortByConfidence(contexts)
	return contexts
}

// BuildContextBlock renders the top chunks of a page for the language model.
// Title chunks are bold and section headers become markdown headings.
func BuildContextBlock(pc *model.PageContext, maxChunks int) model.ContextBlock {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n", pc.Title)
	if len(pc.Breadcrumb) > 0 {
		fmt.Fprintf(&b, "Path: %s\n", strings.Join(pc.Breadcrumb, " > "))
	}

	chunks := pc.Chunks
	if maxChunks > 0 && len(chunks) > maxChunks {
		chunks = chunks[:maxChunks]
	}
	for _, c := range chunks {
		b.WriteString("\n")
		content := strings.TrimSpace(c.Content)
		switch c.ChunkType {
		case model.ChunkTypeTitle:
			fmt.Fprintf(&b, "**%s**", content)
		case model.ChunkTypeSectionHeader:
			fmt.Fprintf(&b, "### %s", content)
		default:
			b.WriteString(content)
		}
		fmt.Fprintf(&b, " [[%s]]\n", c.ChunkID)
	}

	return model.ContextBlock{
		PageID:     pc.PageID,
		Title:      pc.Title,
		Breadcrumb: strings.Join(pc.Breadcrumb, " > "),
		Content:    b.String(),
		Confidence: pc.Confidence,
	}
}

// Summary describes a page context in one line.
func Summary(pc *model.PageContext) string {
	path := pc.Title
	if len(pc.Breadcrumb) > 0 {
		path = strings.Join(pc.Breadcrumb, " > ")
	}
	return fmt.Sprintf("%s (%s): %d chunks, confidence %.2f", pc.Title, path, len(pc.Chunks), pc.Confidence)
}

func sortByConfidence(contexts []*model.PageContext) {
	sort.SliceStable(contexts, func(i, j int) bool {
		return contexts[i].Confidence > contexts[j].Confidence
	})
}
