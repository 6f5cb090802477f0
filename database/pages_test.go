package database

import (
	"context"
	"testing"

	"github.com/siherrmann/pagegraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPagesNewPagesDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewPagesDBHandler", func(t *testing.T) {
		pagesDbHandler, err := NewPagesDBHandler(database, true)
		assert.NoError(t, err, "Expected NewPagesDBHandler to not return an error")
		require.NotNil(t, pagesDbHandler, "Expected NewPagesDBHandler to return a non-nil instance")
		require.NotNil(t, pagesDbHandler.db.Instance, "Expected a non-nil database connection instance")
	})

	t.Run("Invalid call NewPagesDBHandler with nil database", func(t *testing.T) {
		_, err := NewPagesDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating PagesDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestPagesUpsertSelect(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	pagesDbHandler, err := NewPagesDBHandler(database, true)
	require.NoError(t, err)

	t.Run("Upsert and select a page", func(t *testing.T) {
		ids := insertTestPages(t, pagesDbHandler, "ENG", "Handbook")

		page, err := pagesDbHandler.SelectPage(ctx, ids[0])
		require.NoError(t, err, "Expected SelectPage to not return an error")
		assert.Equal(t, "Handbook", page.Title)
		assert.Equal(t, "ENG", page.SpaceKey)
		assert.Equal(t, 0, page.HierarchyDepth, "Expected default depth")
		assert.Empty(t, page.ChildrenIDs, "Expected no children ids")
		assert.Nil(t, page.ParentID, "Expected no parent id")
		assert.False(t, page.CreatedAt.IsZero(), "Expected created_at to be set")
	})

	t.Run("Upsert updates the title", func(t *testing.T) {
		ids := insertTestPages(t, pagesDbHandler, "ENG", "Draft")

		page := &model.DocumentNode{ID: ids[0], Title: "Final", SpaceKey: "ENG"}
		err := pagesDbHandler.UpsertPage(ctx, page)
		require.NoError(t, err)
		assert.Equal(t, "Final", page.Title, "Expected returned row to carry the new title")
	})

	t.Run("Select unknown page returns not found", func(t *testing.T) {
		_, err := pagesDbHandler.SelectPage(ctx, "does-not-exist")
		assert.ErrorIs(t, err, ErrPageNotFound, "Expected ErrPageNotFound")
	})

	t.Run("Select multiple pages", func(t *testing.T) {
		ids := insertTestPages(t, pagesDbHandler, "OPS", "A", "B", "C")

		pages, err := pagesDbHandler.SelectPages(ctx, append(ids, "missing"))
		require.NoError(t, err)
		assert.Len(t, pages, 3, "Expected only existing pages")
	})
}

func TestPagesUpdateMetrics(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	pagesDbHandler, err := NewPagesDBHandler(database, true)
	require.NoError(t, err)

	t.Run("Update metrics of an existing page", func(t *testing.T) {
		ids := insertTestPages(t, pagesDbHandler, "ENG", "Root", "Child")

		err := pagesDbHandler.UpdatePageMetrics(ctx, model.NodeMetrics{
			PageID:          ids[0],
			HierarchyDepth:  0,
			ChildCount:      1,
			CentralityScore: 0.42,
			ChildrenIDs:     []string{ids[1]},
		})
		require.NoError(t, err, "Expected UpdatePageMetrics to not return an error")

		page, err := pagesDbHandler.SelectPage(ctx, ids[0])
		require.NoError(t, err)
		assert.Equal(t, 1, page.ChildCount)
		assert.InDelta(t, 0.42, page.CentralityScore, 1e-9)
		assert.Equal(t, []string{ids[1]}, page.ChildrenIDs)
	})

	t.Run("Update metrics of a missing page fails", func(t *testing.T) {
		err := pagesDbHandler.UpdatePageMetrics(ctx, model.NodeMetrics{PageID: "missing"})
		assert.ErrorIs(t, err, ErrPageNotFound, "Expected ErrPageNotFound for missing page")
	})
}

func TestPagesPopularAndDelete(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	store, err := NewGraphStore(database, true)
	require.NoError(t, err)

	ids := insertTestPages(t, store.PagesDBHandler, "POP", "Hub", "Leaf", "Other", "Third")
	insertTestEdge(t, store.EdgesDBHandler, ids[1], ids[0], model.EdgeTypeLinksTo)
	insertTestEdge(t, store.EdgesDBHandler, ids[2], ids[0], model.EdgeTypeLinksTo)
	insertTestEdge(t, store.EdgesDBHandler, ids[3], ids[1], model.EdgeTypeLinksTo)

	t.Run("Popular pages are ordered by inbound links", func(t *testing.T) {
		popular, err := store.SelectPopularPages(ctx, "POP", 10)
		require.NoError(t, err)
		require.Len(t, popular, 2, "Expected only pages with inbound links")
		assert.Equal(t, ids[0], popular[0].ID)
		assert.Equal(t, 2, popular[0].InLinks)
		assert.Equal(t, ids[1], popular[1].ID)
	})

	t.Run("Delete page removes its edges", func(t *testing.T) {
		err := store.DeletePage(ctx, ids[3])
		require.NoError(t, err)

		incoming, err := store.SelectIncomingLinks(ctx, ids[1], 0)
		require.NoError(t, err)
		assert.Empty(t, incoming, "Expected cascade delete of edges")

		err = store.DeletePage(ctx, ids[3])
		assert.ErrorIs(t, err, ErrPageNotFound, "Expected second delete to fail")
	})
}
