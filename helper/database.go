package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the connection settings read from the environment.
type DatabaseConfiguration struct {
	Host         string
	Port         string
	Database     string
	Username     string
	Password     string
	Schema       string
	SSLMode      string
	MaxOpenConns int
}

// NewDatabaseConfiguration reads the configuration from the environment.
// A .env file in the working directory is loaded first if present.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	_ = godotenv.Load()

	config := &DatabaseConfiguration{
		Host:         os.Getenv("PAGEGRAPH_DB_HOST"),
		Port:         os.Getenv("PAGEGRAPH_DB_PORT"),
		Database:     os.Getenv("PAGEGRAPH_DB_DATABASE"),
		Username:     os.Getenv("PAGEGRAPH_DB_USERNAME"),
		Password:     os.Getenv("PAGEGRAPH_DB_PASSWORD"),
		Schema:       os.Getenv("PAGEGRAPH_DB_SCHEMA"),
		SSLMode:      os.Getenv("PAGEGRAPH_DB_SSLMODE"),
		MaxOpenConns: 10,
	}

	if config.Host == "" || config.Port == "" || config.Database == "" || config.Username == "" {
		return nil, NewError("database configuration", fmt.Errorf("PAGEGRAPH_DB_HOST, PAGEGRAPH_DB_PORT, PAGEGRAPH_DB_DATABASE and PAGEGRAPH_DB_USERNAME are required"))
	}
	if config.Schema == "" {
		config.Schema = "public"
	}
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}
	if v := os.Getenv("PAGEGRAPH_DB_MAX_OPEN_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, NewError("parse PAGEGRAPH_DB_MAX_OPEN_CONNS", err)
		}
		config.MaxOpenConns = n
	}

	return config, nil
}

// DSN returns the lib/pq connection string.
func (c *DatabaseConfiguration) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s search_path=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode, c.Schema,
	)
}

// Database bundles the connection pool with the logger used by all handlers.
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens and pings the database. It panics if the database
// is unreachable since nothing in the module can work without it.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	if logger == nil {
		logger = slog.Default()
	}

	instance, err := sql.Open("postgres", config.DSN())
	if err != nil {
		log.Panicf("error opening database %s: %v", name, err)
	}
	instance.SetMaxOpenConns(config.MaxOpenConns)
	instance.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = instance.PingContext(ctx)
	if err != nil {
		log.Panicf("error connecting to database %s: %v", name, err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host))

	return &Database{
		Name:     name,
		Instance: instance,
		Logger:   logger,
	}
}

// NewTestDatabase opens a database with a discarding logger.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	return NewDatabase("test", config, slog.New(slog.DiscardHandler))
}

// Close closes the connection pool.
func (d *Database) Close() error {
	if d == nil || d.Instance == nil {
		return nil
	}
	return d.Instance.Close()
}
