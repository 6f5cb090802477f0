package database

import (
	"fmt"

	"github.com/siherrmann/pagegraph/helper"
)

// GraphStore combines the page and edge handlers into the graph store
// used by the metrics engine, the enricher and the feedback writer.
type GraphStore struct {
	*PagesDBHandler
	*EdgesDBHandler
}

// NewGraphStore creates the page and edge handlers in dependency order.
func NewGraphStore(db *helper.Database, force bool) (*GraphStore, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	pages, err := NewPagesDBHandler(db, force)
	if err != nil {
		return nil, helper.NewError("create pages handler", err)
	}

	edges, err := NewEdgesDBHandler(db, force)
	if err != nil {
		return nil, helper.NewError("create edges handler", err)
	}

	return &GraphStore{
		PagesDBHandler: pages,
		EdgesDBHandler: edges,
	}, nil
}
