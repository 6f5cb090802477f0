package config

import (
	"errors"
	"os"
	"regexp"
	"strings"

	"github.com/siherrmann/pagegraph/cache"
	"github.com/siherrmann/pagegraph/helper"
	"github.com/siherrmann/pagegraph/llm"
	"github.com/siherrmann/pagegraph/model"
	"github.com/spf13/viper"
)

const (
	envPrefix       = "PAGEGRAPH"
	defaultFileName = "pagegraph.yaml"
)

var envPattern = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// Load reads the configuration. An empty path looks for pagegraph.yaml in
// the working directory and in configs/, a missing file is not an error
// then. Environment variables override file values, for example
// PAGEGRAPH_ORCHESTRATOR_TIMEOUT=10s.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	optional := path == ""
	candidates := []string{path}
	if optional {
		candidates = []string{defaultFileName, "configs/" + defaultFileName}
	}
	for _, candidate := range candidates {
		loaded, err := loadConfigFile(v, candidate, optional)
		if err != nil {
			return nil, err
		}
		if loaded {
			break
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, helper.NewError("unmarshal config", err)
	}
	return &config, nil
}

// loadConfigFile reads a yaml file with ${VAR:default} placeholders expanded.
func loadConfigFile(v *viper.Viper, path string, optional bool) (bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, helper.NewError("read config file "+path, err)
	}

	if err := v.ReadConfig(strings.NewReader(expandEnv(string(content)))); err != nil {
		return false, helper.NewError("parse config file "+path, err)
	}
	v.SetConfigFile(path)
	return true, nil
}

// expandEnv replaces ${VAR} and ${VAR:default}. Unknown variables without
// a default are left as is.
func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := envPattern.FindStringSubmatch(match)
		if value, ok := os.LookupEnv(sub[1]); ok {
			return value
		}
		if sub[2] != "" {
			return sub[3]
		}
		return match
	})
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "pretty")

	v.SetDefault("embedder.provider", "hugot")
	v.SetDefault("embedder.model_name", "sentence-transformers/all-MiniLM-L6-v2")
	v.SetDefault("embedder.model_path", "./models")
	v.SetDefault("embedder.dimension", 384)

	l := llm.DefaultConfig()
	v.SetDefault("llm.base_url", l.BaseURL)
	v.SetDefault("llm.token", l.Token)
	v.SetDefault("llm.model", l.Model)
	v.SetDefault("llm.embedding_model", l.EmbeddingModel)
	v.SetDefault("llm.temperature", l.Temperature)
	v.SetDefault("llm.max_tokens", l.MaxTokens)
	v.SetDefault("llm.call_timeout", l.CallTimeout)
	v.SetDefault("llm.max_sub_questions", l.MaxSubQueries)

	m := model.DefaultMetricsConfig()
	v.SetDefault("metrics.damping", m.Damping)
	v.SetDefault("metrics.max_iterations", m.MaxIterations)
	v.SetDefault("metrics.tolerance", m.Tolerance)
	v.SetDefault("metrics.batch_size", m.BatchSize)
	v.SetDefault("metrics.workers", m.Workers)

	e := model.DefaultEnrichConfig()
	v.SetDefault("enrich.sibling_limit", e.SiblingLimit)
	v.SetDefault("enrich.related_per_direction", e.RelatedPerDir)
	v.SetDefault("enrich.base_confidence", e.BaseConfidence)
	v.SetDefault("enrich.path_max_hops", e.PathMaxHops)
	v.SetDefault("enrich.max_ancestor_depth", e.MaxAncestorDepth)
	v.SetDefault("enrich.lookup_timeout", e.LookupTimeout)
	v.SetDefault("enrich.ancestor_boost", e.AncestorBoost)
	v.SetDefault("enrich.child_boost", e.ChildBoost)
	v.SetDefault("enrich.related_boost", e.RelatedBoost)
	v.SetDefault("enrich.max_boosted_ancestors", e.MaxBoostedAncestor)
	v.SetDefault("enrich.max_boosted_children", e.MaxBoostedChildren)
	v.SetDefault("enrich.max_boosted_related", e.MaxBoostedRelated)
	v.SetDefault("enrich.max_boost_factor", e.MaxBoostFactor)

	r := model.DefaultRetrievalConfig()
	v.SetDefault("retrieval.keyword_top", r.KeywordTop)
	v.SetDefault("retrieval.vector_k", r.VectorK)
	v.SetDefault("retrieval.semantic_top", r.SemanticTop)
	v.SetDefault("retrieval.early_exit_min_hits", r.EarlyExitMinHits)
	v.SetDefault("retrieval.early_exit_min_score", r.EarlyExitMinScore)
	v.SetDefault("retrieval.early_exit_limit", r.EarlyExitLimit)
	v.SetDefault("retrieval.vector_phase_min_hits", r.VectorPhaseMinHits)
	v.SetDefault("retrieval.vector_phase_limit", r.VectorPhaseLimit)
	v.SetDefault("retrieval.max_results", r.MaxResults)
	v.SetDefault("retrieval.keyword_weight", r.KeywordWeight)
	v.SetDefault("retrieval.vector_weight", r.VectorWeight)
	v.SetDefault("retrieval.semantic_weight", r.SemanticWeight)
	v.SetDefault("retrieval.phase_timeout", r.PhaseTimeout)
	v.SetDefault("retrieval.vector_fields", r.VectorFields)

	o := model.DefaultOrchestratorConfig()
	v.SetDefault("orchestrator.timeout", o.Timeout)
	v.SetDefault("orchestrator.max_sub_questions", o.MaxSubQuestions)
	v.SetDefault("orchestrator.batch_size", o.BatchSize)
	v.SetDefault("orchestrator.rerank_top", o.RerankTop)
	v.SetDefault("orchestrator.confidence_threshold", o.ConfidenceThreshold)
	v.SetDefault("orchestrator.fallback_ceiling", o.FallbackCeiling)
	v.SetDefault("orchestrator.fallback_timeout", o.FallbackTimeout)
	v.SetDefault("orchestrator.fallback_confidence", o.FallbackConfidence)
	v.SetDefault("orchestrator.fallback_search_top", o.FallbackSearchTop)
	v.SetDefault("orchestrator.response_ttl", o.ResponseTTL)
	v.SetDefault("orchestrator.context_chunks", o.ContextChunks)
	v.SetDefault("orchestrator.context_pages", o.ContextPages)
	v.SetDefault("orchestrator.feedback_workers", o.FeedbackWorkers)

	for _, prefix := range []string{"response_cache", "embedding_cache"} {
		c := cache.DefaultConfig()
		v.SetDefault(prefix+".backend", c.Backend)
		v.SetDefault(prefix+".default_ttl", c.DefaultTTL)
		v.SetDefault(prefix+".redis_addr", "localhost:6379")
		v.SetDefault(prefix+".redis_db", 0)
		v.SetDefault(prefix+".redis_password", "")
		v.SetDefault(prefix+".prefix", c.Prefix+":"+prefix)
		v.SetDefault(prefix+".badger_path", "")
	}
	v.SetDefault("embedding_cache.default_ttl", "24h")
}
