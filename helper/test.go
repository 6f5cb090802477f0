package helper

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testDatabaseName     = "pagegraph"
	testDatabaseUser     = "pagegraph"
	testDatabasePassword = "pagegraph"
)

// MustStartPostgresContainer starts a pgvector enabled postgres container
// and returns its terminate function and mapped port.
func MustStartPostgresContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx := context.Background()

	container, err := postgres.Run(
		ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase(testDatabaseName),
		postgres.WithUsername(testDatabaseUser),
		postgres.WithPassword(testDatabasePassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, "", NewError("start postgres container", err)
	}

	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return container.Terminate, "", NewError("map postgres port", err)
	}

	return container.Terminate, port.Port(), nil
}

// SetTestDatabaseConfigEnvs points the database configuration at the test container.
func SetTestDatabaseConfigEnvs(t *testing.T, dbPort string) {
	t.Setenv("PAGEGRAPH_DB_HOST", "localhost")
	t.Setenv("PAGEGRAPH_DB_PORT", dbPort)
	t.Setenv("PAGEGRAPH_DB_DATABASE", testDatabaseName)
	t.Setenv("PAGEGRAPH_DB_USERNAME", testDatabaseUser)
	t.Setenv("PAGEGRAPH_DB_PASSWORD", testDatabasePassword)
	t.Setenv("PAGEGRAPH_DB_SCHEMA", "public")
	t.Setenv("PAGEGRAPH_DB_SSLMODE", "disable")
}
