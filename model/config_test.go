package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigs(t *testing.T) {
	t.Run("Metrics defaults", func(t *testing.T) {
		config := DefaultMetricsConfig()
		assert.Equal(t, 0.85, config.Damping, "Expected damping factor 0.85")
		assert.Equal(t, 100, config.MaxIterations, "Expected iteration cap 100")
		assert.Equal(t, 100, config.BatchSize, "Expected batch size 100")
	})

	t.Run("Enrich defaults", func(t *testing.T) {
		config := DefaultEnrichConfig()
		assert.Equal(t, 10, config.SiblingLimit)
		assert.Equal(t, 5, config.RelatedPerDir)
		assert.Equal(t, 1.2, config.MaxBoostFactor)
		assert.Equal(t, 4, config.PathMaxHops)
	})

	t.Run("Retrieval weights sum to one for keyword and vector", func(t *testing.T) {
		config := DefaultRetrievalConfig()
		assert.InDelta(t, 1.0, config.KeywordWeight+config.VectorWeight, 1e-9)
		assert.Equal(t, 20, config.MaxResults)
	})

	t.Run("Orchestrator defaults", func(t *testing.T) {
		config := DefaultOrchestratorConfig()
		assert.Equal(t, 30*time.Second, config.Timeout)
		assert.Equal(t, 2*time.Second, config.FallbackTimeout)
		assert.Equal(t, 3, config.BatchSize)
		assert.Equal(t, 5, config.MaxSubQuestions)
	})
}

func TestRetrievalConfigWeightFor(t *testing.T) {
	config := DefaultRetrievalConfig()

	assert.Equal(t, 0.4, config.WeightFor(ModalityKeyword), "Expected keyword weight")
	assert.Equal(t, 0.6, config.WeightFor(ModalityVector), "Expected vector weight")
	assert.Equal(t, 0.5, config.WeightFor(ModalitySemantic), "Expected semantic weight")
	assert.Equal(t, 0.0, config.WeightFor(Modality("unknown")), "Expected zero for unknown modality")
}
