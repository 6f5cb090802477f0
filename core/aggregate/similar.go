package aggregate

import (
	"context"
	"sort"

	"github.com/siherrmann/pagegraph/helper"
	"github.com/siherrmann/pagegraph/model"
)

// SimilarStore is the graph store view used to find similar pages.
type SimilarStore interface {
	SelectSiblings(ctx context.Context, pageID string, limit int) ([]model.PageRef, error)
	SelectOutgoingLinks(ctx context.Context, pageID string, limit int) ([]model.PageRef, error)
	SelectIncomingLinks(ctx context.Context, pageID string, limit int) ([]model.PageRef, error)
	SelectPages(ctx context.Context, ids []string) ([]*model.DocumentNode, error)
}

// SimilarPages returns siblings and linked pages of a page ranked by
// centrality.
func SimilarPages(ctx context.Context, store SimilarStore, pageID string, limit int) ([]*model.DocumentNode, error) {
	if limit <= 0 {
		limit = 5
	}

	siblings, err := store.SelectSiblings(ctx, pageID, 0)
	if err != nil {
		return nil, helper.NewError("similar siblings", err)
	}
	outgoing, err := store.SelectOutgoingLinks(ctx, pageID, 0)
	if err != nil {
		return nil, helper.NewError("similar outgoing", err)
	}
	incoming, err := store.SelectIncomingLinks(ctx, pageID, 0)
	if err != nil {
		return nil, helper.NewError("similar incoming", err)
	}

	seen := map[string]bool{pageID: true}
	var ids []string
	for _, ref := range append(append(siblings, outgoing...), incoming...) {
		if !seen[ref.ID] {
			seen[ref.ID] = true
			ids = append(ids, ref.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pages, err := store.SelectPages(ctx, ids)
	if err != nil {
		return nil, helper.NewError("similar pages", err)
	}

	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].CentralityScore > pages[j].CentralityScore
	})
	if len(pages) > limit {
		pages = pages[:limit]
	}
	return pages, nil
}
