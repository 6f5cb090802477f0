package database

import (
	"context"
	"log"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/pagegraph/helper"
	"github.com/siherrmann/pagegraph/model"
	loadSql "github.com/siherrmann/pagegraph/sql"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

var dbPort string

func TestMain(m *testing.M) {
	var teardown func(ctx context.Context, opts ...testcontainers.TerminateOption) error
	var err error
	teardown, dbPort, err = helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}

	m.Run()

	if teardown != nil && teardown(context.Background()) != nil {
		log.Fatalf("error tearing down postgres container: %v", err)
	}
}

func initDB(t *testing.T) *helper.Database {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")
	database := helper.NewTestDatabase(dbConfig)

	err = loadSql.Init(database.Instance)
	require.NoError(t, err)

	t.Cleanup(func() {
		database.Close()
	})

	return database
}

// insertTestPages inserts pages with ids prefixed by a random test scope
// and returns the prefixed ids in the given order.
func insertTestPages(t *testing.T, pages *PagesDBHandler, space string, titles ...string) []string {
	scope := uuid.NewString()[:8]
	ids := make([]string, 0, len(titles))
	for _, title := range titles {
		page := &model.DocumentNode{
			ID:       scope + "-" + title,
			Title:    title,
			SpaceKey: space,
		}
		err := pages.UpsertPage(context.Background(), page)
		require.NoError(t, err, "failed to insert page %s", title)
		ids = append(ids, page.ID)
	}
	return ids
}

func insertTestEdge(t *testing.T, edges *EdgesDBHandler, source, target string, edgeType model.EdgeType) {
	err := edges.UpsertEdge(context.Background(), &model.Edge{
		SourceID: source,
		TargetID: target,
		EdgeType: edgeType,
	})
	require.NoError(t, err, "failed to insert edge %s -> %s", source, target)
}
