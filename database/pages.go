package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/siherrmann/pagegraph/helper"
	"github.com/siherrmann/pagegraph/model"
	loadSql "github.com/siherrmann/pagegraph/sql"
)

// ErrPageNotFound is returned when a page id does not exist.
var ErrPageNotFound = errors.New("page not found")

// PagesDBHandlerFunctions defines the interface for Pages database operations.
type PagesDBHandlerFunctions interface {
	UpsertPage(ctx context.Context, page *model.DocumentNode) error
	SelectPage(ctx context.Context, id string) (*model.DocumentNode, error)
	SelectPages(ctx context.Context, ids []string) ([]*model.DocumentNode, error)
	UpdatePageMetrics(ctx context.Context, metrics model.NodeMetrics) error
	SelectPopularPages(ctx context.Context, spaceKey string, limit int) ([]*model.PopularPage, error)
	DeletePage(ctx context.Context, id string) error
}

// PagesDBHandler handles page-related database operations
type PagesDBHandler struct {
	db *helper.Database
}

// NewPagesDBHandler creates a new pages database handler.
// It loads the page SQL functions and creates the table.
// If force is true, it will reload the SQL functions even if they already exist.
func NewPagesDBHandler(db *helper.Database, force bool) (*PagesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	pagesDbHandler := &PagesDBHandler{
		db: db,
	}

	err := loadSql.LoadPagesSql(pagesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load pages sql", err)
	}

	err = pagesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized PagesDBHandler")

	return pagesDbHandler, nil
}

// CreateTable creates the 'pages' table in the database if it does not exist.
func (h *PagesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_pages();`)
	if err != nil {
		log.Panicf("error initializing pages table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table pages")

	return nil
}

// UpsertPage inserts a page or updates its descriptive fields.
// Structural metrics are left to UpdatePageMetrics.
func (h *PagesDBHandler) UpsertPage(ctx context.Context, page *model.DocumentNode) error {
	if page.Metadata == nil {
		page.Metadata = model.Metadata{}
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM upsert_page($1, $2, $3, $4, $5, $6)`,
		page.ID,
		page.Title,
		page.SpaceKey,
		page.URL,
		page.ParentID,
		page.Metadata,
	)

	err := scanPage(row, page)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectPage retrieves a page by id
func (h *PagesDBHandler) SelectPage(ctx context.Context, id string) (*model.DocumentNode, error) {
	row := h.db.Instance.QueryRowContext(ctx, `SELECT * FROM select_page($1)`, id)

	page := &model.DocumentNode{}
	err := scanPage(row, page)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, helper.NewError("select page", ErrPageNotFound)
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return page, nil
}

// SelectPages retrieves all existing pages of the given ids ordered by id
func (h *PagesDBHandler) SelectPages(ctx context.Context, ids []string) ([]*model.DocumentNode, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_pages($1)`, pq.Array(ids))
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var pages []*model.DocumentNode
	for rows.Next() {
		page := &model.DocumentNode{}
		err := scanPage(rows, page)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		pages = append(pages, page)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return pages, nil
}

// UpdatePageMetrics overwrites the structural properties of one page.
func (h *PagesDBHandler) UpdatePageMetrics(ctx context.Context, metrics model.NodeMetrics) error {
	childrenIDs := metrics.ChildrenIDs
	if childrenIDs == nil {
		childrenIDs = []string{}
	}

	var found bool
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT update_page_metrics($1, $2, $3, $4, $5)`,
		metrics.PageID,
		metrics.HierarchyDepth,
		metrics.ChildCount,
		metrics.CentralityScore,
		pq.Array(childrenIDs),
	).Scan(&found)
	if err != nil {
		return helper.NewError("update page metrics", err)
	}
	if !found {
		return helper.NewError("update page metrics", fmt.Errorf("%w: %s", ErrPageNotFound, metrics.PageID))
	}

	return nil
}

// SelectPopularPages returns pages ordered by inbound link count.
// An empty spaceKey selects all spaces.
func (h *PagesDBHandler) SelectPopularPages(ctx context.Context, spaceKey string, limit int) ([]*model.PopularPage, error) {
	var space interface{}
	if spaceKey != "" {
		space = spaceKey
	}

	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_popular_pages($1, $2)`, space, limit)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var pages []*model.PopularPage
	for rows.Next() {
		page := &model.PopularPage{}
		err := rows.Scan(&page.ID, &page.Title, &page.SpaceKey, &page.InLinks, &page.CentralityScore)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		pages = append(pages, page)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return pages, nil
}

// DeletePage deletes a page together with its edges and chunks
func (h *PagesDBHandler) DeletePage(ctx context.Context, id string) error {
	var found bool
	err := h.db.Instance.QueryRowContext(ctx, `SELECT delete_page($1)`, id).Scan(&found)
	if err != nil {
		return helper.NewError("delete page", err)
	}
	if !found {
		return helper.NewError("delete page", ErrPageNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPage(row rowScanner, page *model.DocumentNode) error {
	return row.Scan(
		&page.ID,
		&page.Title,
		&page.SpaceKey,
		&page.URL,
		&page.HierarchyDepth,
		&page.ChildCount,
		&page.CentralityScore,
		&page.ParentID,
		pq.Array(&page.ChildrenIDs),
		&page.Metadata,
		&page.CreatedAt,
		&page.UpdatedAt,
	)
}
