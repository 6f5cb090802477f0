package model

import "time"

// MetricsConfig configures the graph metrics engine.
type MetricsConfig struct {
	Damping       float64 `mapstructure:"damping" json:"damping"`
	MaxIterations int     `mapstructure:"max_iterations" json:"max_iterations"`
	Tolerance     float64 `mapstructure:"tolerance" json:"tolerance"`
	BatchSize     int     `mapstructure:"batch_size" json:"batch_size"`
	Workers       int     `mapstructure:"workers" json:"workers"`
}

// DefaultMetricsConfig returns the default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Damping:       0.85,
		MaxIterations: 100,
		Tolerance:     1e-6,
		BatchSize:     100,
		Workers:       8,
	}
}

// EnrichConfig configures the graph enricher.
type EnrichConfig struct {
	SiblingLimit       int           `mapstructure:"sibling_limit" json:"sibling_limit"`
	RelatedPerDir      int           `mapstructure:"related_per_direction" json:"related_per_direction"`
	BaseConfidence     float64       `mapstructure:"base_confidence" json:"base_confidence"`
	PathMaxHops        int           `mapstructure:"path_max_hops" json:"path_max_hops"`
	MaxAncestorDepth   int           `mapstructure:"max_ancestor_depth" json:"max_ancestor_depth"`
	LookupTimeout      time.Duration `mapstructure:"lookup_timeout" json:"lookup_timeout"`
	AncestorBoost      float64       `mapstructure:"ancestor_boost" json:"ancestor_boost"`
	ChildBoost         float64       `mapstructure:"child_boost" json:"child_boost"`
	RelatedBoost       float64       `mapstructure:"related_boost" json:"related_boost"`
	MaxBoostedAncestor int           `mapstructure:"max_boosted_ancestors" json:"max_boosted_ancestors"`
	MaxBoostedChildren int           `mapstructure:"max_boosted_children" json:"max_boosted_children"`
	MaxBoostedRelated  int           `mapstructure:"max_boosted_related" json:"max_boosted_related"`
	MaxBoostFactor     float64       `mapstructure:"max_boost_factor" json:"max_boost_factor"`
}

// DefaultEnrichConfig returns the default enricher configuration.
func DefaultEnrichConfig() EnrichConfig {
	return EnrichConfig{
		SiblingLimit:       10,
		RelatedPerDir:      5,
		BaseConfidence:     0.5,
		PathMaxHops:        4,
		MaxAncestorDepth:   50,
		LookupTimeout:      5 * time.Second,
		AncestorBoost:      0.05,
		ChildBoost:         0.03,
		RelatedBoost:       0.02,
		MaxBoostedAncestor: 3,
		MaxBoostedChildren: 5,
		MaxBoostedRelated:  5,
		MaxBoostFactor:     1.2,
	}
}

// RetrievalConfig configures the progressive retriever.
type RetrievalConfig struct {
	KeywordTop         int           `mapstructure:"keyword_top" json:"keyword_top"`
	VectorK            int           `mapstructure:"vector_k" json:"vector_k"`
	SemanticTop        int           `mapstructure:"semantic_top" json:"semantic_top"`
	EarlyExitMinHits   int           `mapstructure:"early_exit_min_hits" json:"early_exit_min_hits"`
	EarlyExitMinScore  float64       `mapstructure:"early_exit_min_score" json:"early_exit_min_score"`
	EarlyExitLimit     int           `mapstructure:"early_exit_limit" json:"early_exit_limit"`
	VectorPhaseMinHits int           `mapstructure:"vector_phase_min_hits" json:"vector_phase_min_hits"`
	VectorPhaseLimit   int           `mapstructure:"vector_phase_limit" json:"vector_phase_limit"`
	MaxResults         int           `mapstructure:"max_results" json:"max_results"`
	KeywordWeight      float64       `mapstructure:"keyword_weight" json:"keyword_weight"`
	VectorWeight       float64       `mapstructure:"vector_weight" json:"vector_weight"`
	SemanticWeight     float64       `mapstructure:"semantic_weight" json:"semantic_weight"`
	PhaseTimeout       time.Duration `mapstructure:"phase_timeout" json:"phase_timeout"`
	VectorFields       []string      `mapstructure:"vector_fields" json:"vector_fields"`
}

// DefaultRetrievalConfig returns the default retrieval configuration.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		KeywordTop:         15,
		VectorK:            10,
		SemanticTop:        8,
		EarlyExitMinHits:   5,
		EarlyExitMinScore:  0.8,
		EarlyExitLimit:     10,
		VectorPhaseMinHits: 10,
		VectorPhaseLimit:   15,
		MaxResults:         20,
		KeywordWeight:      0.4,
		VectorWeight:       0.6,
		SemanticWeight:     0.5,
		PhaseTimeout:       10 * time.Second,
		VectorFields:       []string{"embedding"},
	}
}

// WeightFor returns the fusion weight of a modality.
func (c RetrievalConfig) WeightFor(m Modality) float64 {
	switch m {
	case ModalityKeyword:
		return c.KeywordWeight
	case ModalityVector:
		return c.VectorWeight
	case ModalitySemantic:
		return c.SemanticWeight
	}
	return 0
}

// OrchestratorConfig configures the orchestration controller.
type OrchestratorConfig struct {
	Timeout             time.Duration `mapstructure:"timeout" json:"timeout"`
	MaxSubQuestions     int           `mapstructure:"max_sub_questions" json:"max_sub_questions"`
	BatchSize           int           `mapstructure:"batch_size" json:"batch_size"`
	RerankTop           int           `mapstructure:"rerank_top" json:"rerank_top"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold" json:"confidence_threshold"`
	FallbackCeiling     float64       `mapstructure:"fallback_ceiling" json:"fallback_ceiling"`
	FallbackTimeout     time.Duration `mapstructure:"fallback_timeout" json:"fallback_timeout"`
	FallbackConfidence  float64       `mapstructure:"fallback_confidence" json:"fallback_confidence"`
	FallbackSearchTop   int           `mapstructure:"fallback_search_top" json:"fallback_search_top"`
	ResponseTTL         time.Duration `mapstructure:"response_ttl" json:"response_ttl"`
	ContextChunks       int           `mapstructure:"context_chunks" json:"context_chunks"`
	ContextPages        int           `mapstructure:"context_pages" json:"context_pages"`
	FeedbackWorkers     int           `mapstructure:"feedback_workers" json:"feedback_workers"`
}

// DefaultOrchestratorConfig returns the default controller configuration.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		Timeout:             30 * time.Second,
		MaxSubQuestions:     5,
		BatchSize:           3,
		RerankTop:           8,
		ConfidenceThreshold: 0.7,
		FallbackCeiling:     0.5,
		FallbackTimeout:     2 * time.Second,
		FallbackConfidence:  0.6,
		FallbackSearchTop:   5,
		ResponseTTL:         time.Hour,
		ContextChunks:       3,
		ContextPages:        5,
		FeedbackWorkers:     4,
	}
}
