package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed pages.sql
var pagesSQL string

//go:embed edges.sql
var edgesSQL string

//go:embed chunks.sql
var chunksSQL string

// Function lists for verification
var PagesFunctions = []string{
	"init_pages",
	"upsert_page",
	"select_page",
	"select_pages",
	"update_page_metrics",
	"select_popular_pages",
	"delete_page",
}

var EdgesFunctions = []string{
	"init_edges",
	"upsert_edge",
	"select_edges_by_type",
	"select_parent",
	"select_children",
	"select_siblings",
	"select_outgoing_links",
	"select_incoming_links",
	"delete_edge",
}

var ChunksFunctions = []string{
	"init_chunks",
	"any_terms",
	"insert_chunk",
	"delete_chunks_by_page",
	"search_chunks_keyword",
	"search_chunks_vector",
	"search_chunks_semantic",
}

// Init creates the extensions required by all tables.
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error initializing extensions: %w", err)
	}
	return nil
}

// LoadPagesSql loads page-related SQL functions
func LoadPagesSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "pages", pagesSQL, PagesFunctions, force)
}

// LoadEdgesSql loads edge-related SQL functions
func LoadEdgesSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "edges", edgesSQL, EdgesFunctions, force)
}

// LoadChunksSql loads chunk and search related SQL functions
func LoadChunksSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "chunks", chunksSQL, ChunksFunctions, force)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadPagesSql(db, force); err != nil {
		return err
	}

	if err := LoadEdgesSql(db, force); err != nil {
		return err
	}

	return LoadChunksSql(db, force)
}

// loadFunctions executes the SQL file unless all functions already exist.
// With force the file is executed regardless.
func loadFunctions(db *sql.DB, name string, source string, functions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(source)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
