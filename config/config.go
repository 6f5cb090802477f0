// Package config loads the pagegraph settings from a yaml file,
// PAGEGRAPH_* environment variables and defaults.
package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/siherrmann/pagegraph/cache"
	"github.com/siherrmann/pagegraph/helper"
	"github.com/siherrmann/pagegraph/llm"
	"github.com/siherrmann/pagegraph/model"
)

// Config is the complete application configuration.
type Config struct {
	Log            LogConfig                `mapstructure:"log"`
	Embedder       EmbedderConfig           `mapstructure:"embedder"`
	LLM            llm.Config               `mapstructure:"llm"`
	Metrics        model.MetricsConfig      `mapstructure:"metrics"`
	Enrich         model.EnrichConfig       `mapstructure:"enrich"`
	Retrieval      model.RetrievalConfig    `mapstructure:"retrieval"`
	Orchestrator   model.OrchestratorConfig `mapstructure:"orchestrator"`
	ResponseCache  cache.Config             `mapstructure:"response_cache"`
	EmbeddingCache cache.Config             `mapstructure:"embedding_cache"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EmbedderConfig selects the query and chunk embedder.
// Provider is "hugot" for a local model or "openai" for the llm endpoint.
type EmbedderConfig struct {
	Provider  string `mapstructure:"provider"`
	ModelName string `mapstructure:"model_name"`
	ModelPath string `mapstructure:"model_path"`
	Dimension int    `mapstructure:"dimension"`
}

// Logger builds the logger described by the log settings. The pretty
// handler is used unless the format is json.
func (c LogConfig) Logger() *slog.Logger {
	return helper.NewLogger(os.Stdout, parseLevel(c.Level), strings.ToLower(c.Format))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
