package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabaseConfiguration(t *testing.T) {
	t.Run("Reads configuration from environment", func(t *testing.T) {
		SetTestDatabaseConfigEnvs(t, "15432")

		config, err := NewDatabaseConfiguration()
		require.NoError(t, err, "Expected configuration to be created")
		assert.Equal(t, "localhost", config.Host)
		assert.Equal(t, "15432", config.Port)
		assert.Equal(t, 10, config.MaxOpenConns, "Expected default pool size")
		assert.Contains(t, config.DSN(), "port=15432", "Expected port in DSN")
		assert.Contains(t, config.DSN(), "sslmode=disable", "Expected sslmode in DSN")
	})

	t.Run("Missing host fails", func(t *testing.T) {
		SetTestDatabaseConfigEnvs(t, "15432")
		t.Setenv("PAGEGRAPH_DB_HOST", "")

		_, err := NewDatabaseConfiguration()
		assert.Error(t, err, "Expected error without host")
	})

	t.Run("Invalid pool size fails", func(t *testing.T) {
		SetTestDatabaseConfigEnvs(t, "15432")
		t.Setenv("PAGEGRAPH_DB_MAX_OPEN_CONNS", "many")

		_, err := NewDatabaseConfiguration()
		assert.Error(t, err, "Expected error for non numeric pool size")
	})
}

func TestDatabaseClose(t *testing.T) {
	t.Run("Nil database closes gracefully", func(t *testing.T) {
		var db *Database
		assert.NoError(t, db.Close(), "Expected Close on nil database to succeed")
	})
}
