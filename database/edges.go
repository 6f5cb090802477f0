package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/pagegraph/helper"
	"github.com/siherrmann/pagegraph/model"
	loadSql "github.com/siherrmann/pagegraph/sql"
)

// EdgesDBHandlerFunctions defines the interface for Edges database operations.
type EdgesDBHandlerFunctions interface {
	UpsertEdge(ctx context.Context, edge *model.Edge) error
	SelectEdgesByType(ctx context.Context, edgeType model.EdgeType) ([]*model.Edge, error)
	SelectParent(ctx context.Context, pageID string) (*model.PageRef, error)
	SelectChildren(ctx context.Context, pageID string, limit int) ([]model.PageRef, error)
	SelectSiblings(ctx context.Context, pageID string, limit int) ([]model.PageRef, error)
	SelectOutgoingLinks(ctx context.Context, pageID string, limit int) ([]model.PageRef, error)
	SelectIncomingLinks(ctx context.Context, pageID string, limit int) ([]model.PageRef, error)
	DeleteEdge(ctx context.Context, id uuid.UUID) error
}

// EdgesDBHandler handles edge-related database operations
type EdgesDBHandler struct {
	db *helper.Database
}

// NewEdgesDBHandler creates a new edges database handler.
// The pages table has to exist since edges reference pages.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEdgesDBHandler(db *helper.Database, force bool) (*EdgesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	edgesDbHandler := &EdgesDBHandler{
		db: db,
	}

	err := loadSql.LoadEdgesSql(edgesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load edges sql", err)
	}

	err = edgesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EdgesDBHandler")

	return edgesDbHandler, nil
}

// CreateTable creates the 'edges' table and its indexes if they do not exist.
func (h *EdgesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_edges();`)
	if err != nil {
		log.Panicf("error initializing edges table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table edges")

	return nil
}

// UpsertEdge inserts an edge or updates weight and metadata of an existing one.
func (h *EdgesDBHandler) UpsertEdge(ctx context.Context, edge *model.Edge) error {
	if !edge.EdgeType.Valid() {
		return helper.NewError("upsert edge", fmt.Errorf("invalid edge type %q", edge.EdgeType))
	}
	if edge.Weight == 0 {
		edge.Weight = 1.0
	}
	if edge.Metadata == nil {
		edge.Metadata = model.Metadata{}
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM upsert_edge($1, $2, $3, $4, $5)`,
		edge.SourceID,
		edge.TargetID,
		edge.EdgeType,
		edge.Weight,
		edge.Metadata,
	)

	err := scanEdge(row, edge)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectEdgesByType retrieves all edges of one type
func (h *EdgesDBHandler) SelectEdgesByType(ctx context.Context, edgeType model.EdgeType) ([]*model.Edge, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_edges_by_type($1)`, edgeType)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var edges []*model.Edge
	for rows.Next() {
		edge := &model.Edge{}
		err := scanEdge(rows, edge)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		edges = append(edges, edge)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return edges, nil
}

// SelectParent returns the parent of a page or nil for a root.
func (h *EdgesDBHandler) SelectParent(ctx context.Context, pageID string) (*model.PageRef, error) {
	refs, err := h.selectRefs(ctx, `SELECT * FROM select_parent($1)`, pageID)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, nil
	}
	return &refs[0], nil
}

// SelectChildren returns the direct children of a page. A limit <= 0 returns all.
func (h *EdgesDBHandler) SelectChildren(ctx context.Context, pageID string, limit int) ([]model.PageRef, error) {
	return h.selectRefs(ctx, `SELECT * FROM select_children($1, $2)`, pageID, nullLimit(limit))
}

// SelectSiblings returns the other children of the page's parent.
func (h *EdgesDBHandler) SelectSiblings(ctx context.Context, pageID string, limit int) ([]model.PageRef, error) {
	return h.selectRefs(ctx, `SELECT * FROM select_siblings($1, $2)`, pageID, nullLimit(limit))
}

// SelectOutgoingLinks returns pages the page links to.
func (h *EdgesDBHandler) SelectOutgoingLinks(ctx context.Context, pageID string, limit int) ([]model.PageRef, error) {
	return h.selectRefs(ctx, `SELECT * FROM select_outgoing_links($1, $2)`, pageID, nullLimit(limit))
}

// SelectIncomingLinks returns pages linking to the page.
func (h *EdgesDBHandler) SelectIncomingLinks(ctx context.Context, pageID string, limit int) ([]model.PageRef, error) {
	return h.selectRefs(ctx, `SELECT * FROM select_incoming_links($1, $2)`, pageID, nullLimit(limit))
}

// DeleteEdge deletes an edge by id
func (h *EdgesDBHandler) DeleteEdge(ctx context.Context, id uuid.UUID) error {
	var found bool
	err := h.db.Instance.QueryRowContext(ctx, `SELECT delete_edge($1)`, id).Scan(&found)
	if err != nil {
		return helper.NewError("delete edge", err)
	}
	if !found {
		return helper.NewError("delete edge", sql.ErrNoRows)
	}
	return nil
}

func (h *EdgesDBHandler) selectRefs(ctx context.Context, query string, args ...interface{}) ([]model.PageRef, error) {
	rows, err := h.db.Instance.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	refs := []model.PageRef{}
	for rows.Next() {
		var ref model.PageRef
		err := rows.Scan(&ref.ID, &ref.Title, &ref.SpaceKey)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		refs = append(refs, ref)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return refs, nil
}

func scanEdge(row rowScanner, edge *model.Edge) error {
	return row.Scan(
		&edge.ID,
		&edge.SourceID,
		&edge.TargetID,
		&edge.EdgeType,
		&edge.Weight,
		&edge.Metadata,
		&edge.CreatedAt,
	)
}

func nullLimit(limit int) interface{} {
	if limit <= 0 {
		return nil
	}
	return limit
}
