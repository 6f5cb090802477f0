package llm

import (
	"context"
	"testing"

	"github.com/siherrmann/pagegraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(m *MockModel) *Client {
	return NewClient(m, DefaultConfig(), nil)
}

func TestClassify(t *testing.T) {
	ctx := context.Background()

	t.Run("Decomposition with sub-questions", func(t *testing.T) {
		m := &MockModel{responses: []string{"```json\n{\"classification\": \"NeedsDecomposition\", \"subquestions\": [\"a?\", \" \", \"b?\"]}\n```"}}
		c, err := newTestClient(m).Classify(ctx, "a and b?")

		require.NoError(t, err, "Expected Classify to not return an error")
		assert.Equal(t, model.ClassificationNeedsDecomposition, c.Kind)
		assert.Equal(t, []string{"a?", "b?"}, c.SubQuestions)
		assert.True(t, m.jsonMode[0], "Expected JSON mode for classification")
	})

	t.Run("Clarification", func(t *testing.T) {
		m := &MockModel{responses: []string{`{"classification": "NeedsClarification", "clarification_needed": "Which version?", "suggestions": ["v1 setup"]}`}}
		c, err := newTestClient(m).Classify(ctx, "setup?")

		require.NoError(t, err)
		assert.Equal(t, model.ClassificationNeedsClarification, c.Kind)
		assert.Equal(t, "Which version?", c.Clarification)
		assert.Equal(t, []string{"v1 setup"}, c.Suggestions)
	})

	t.Run("Decomposition without sub-questions is atomic", func(t *testing.T) {
		m := &MockModel{responses: []string{`{"classification": "NeedsDecomposition"}`}}
		c, err := newTestClient(m).Classify(ctx, "q")
		require.NoError(t, err)
		assert.Equal(t, model.ClassificationAtomic, c.Kind)
	})

	t.Run("Sub-questions are capped", func(t *testing.T) {
		m := &MockModel{responses: []string{`{"classification": "NeedsDecomposition", "subquestions": ["1","2","3","4","5","6","7"]}`}}
		c, err := newTestClient(m).Classify(ctx, "q")
		require.NoError(t, err)
		assert.Len(t, c.SubQuestions, 5)
	})

	t.Run("Invalid output is retried once", func(t *testing.T) {
		m := &MockModel{responses: []string{"not json", `{"classification": "Atomic"}`}}
		c, err := newTestClient(m).Classify(ctx, "q")
		require.NoError(t, err)
		assert.Equal(t, model.ClassificationAtomic, c.Kind)
		assert.Equal(t, 2, m.calls)
	})

	t.Run("Second failure is returned", func(t *testing.T) {
		m := &MockModel{errs: []error{assert.AnError, assert.AnError}, responses: []string{"", "", `{"classification": "Atomic"}`}}
		_, err := newTestClient(m).Classify(ctx, "q")
		assert.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, 2, m.calls, "Expected at most one retry")
	})
}

func TestSynthesize(t *testing.T) {
	ctx := context.Background()
	blocks := []model.ContextBlock{{PageID: "p", Content: "## Install\nRun make [[c1]]"}}

	t.Run("Answer is trimmed", func(t *testing.T) {
		m := &MockModel{responses: []string{"  Run make [[c1]].  "}}
		answer, err := newTestClient(m).Synthesize(ctx, "How to install?", blocks)
		require.NoError(t, err)
		assert.Equal(t, "Run make [[c1]].", answer)
		assert.Contains(t, m.prompts[0], "Run make [[c1]]", "Expected context in prompt")
		assert.False(t, m.jsonMode[0])
	})

	t.Run("Empty answer is retried", func(t *testing.T) {
		m := &MockModel{responses: []string{"", "answer"}}
		answer, err := newTestClient(m).Synthesize(ctx, "q", blocks)
		require.NoError(t, err)
		assert.Equal(t, "answer", answer)
	})

	t.Run("No choices", func(t *testing.T) {
		_, err := newTestClient(&MockModel{}).Synthesize(ctx, "q", blocks)
		assert.ErrorIs(t, err, ErrNoChoices)
	})
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("High risk", func(t *testing.T) {
		m := &MockModel{responses: []string{`{"risk_level": "high", "confidence": 1.4, "issues": ["unsupported claim"]}`}}
		v, err := newTestClient(m).Verify(ctx, "answer", nil)
		require.NoError(t, err)
		assert.Equal(t, model.RiskHigh, v.Risk)
		assert.Equal(t, 1.0, v.Confidence, "Expected confidence to be clamped")
		assert.Equal(t, []string{"unsupported claim"}, v.Issues)
	})

	t.Run("None is low", func(t *testing.T) {
		m := &MockModel{responses: []string{`{"risk_level": "none", "confidence": 0.9}`}}
		v, err := newTestClient(m).Verify(ctx, "answer", nil)
		require.NoError(t, err)
		assert.Equal(t, model.RiskLow, v.Risk)
	})
}

func TestRerank(t *testing.T) {
	ctx := context.Background()
	hits := []*model.SearchHit{{ChunkID: "a", Title: "A"}, {ChunkID: "b", Title: "B"}, {ChunkID: "c", Title: "C"}}

	t.Run("Model order with unknown ids dropped", func(t *testing.T) {
		m := &MockModel{responses: []string{`{"ranking": ["c", "x", "a", "c"]}`}}
		ranked, err := newTestClient(m).Rerank(ctx, "q", hits, 8)
		require.NoError(t, err)
		require.Len(t, ranked, 2)
		assert.Equal(t, "c", ranked[0].ChunkID)
		assert.Equal(t, "a", ranked[1].ChunkID)
	})

	t.Run("Top limits the result", func(t *testing.T) {
		m := &MockModel{responses: []string{`{"ranking": ["b", "a", "c"]}`}}
		ranked, err := newTestClient(m).Rerank(ctx, "q", hits, 1)
		require.NoError(t, err)
		assert.Len(t, ranked, 1)
	})

	t.Run("No hits skips the model", func(t *testing.T) {
		m := &MockModel{}
		ranked, err := newTestClient(m).Rerank(ctx, "q", nil, 8)
		require.NoError(t, err)
		assert.Nil(t, ranked)
		assert.Equal(t, 0, m.calls)
	})
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFence(" {\"a\":1} "))
}

func TestEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("Embed single text", func(t *testing.T) {
		client := &mockEmbedderClient{}
		embedder, err := NewEmbedder(client, nil)
		require.NoError(t, err)

		vector, err := embedder.Embed(ctx, "hello\nworld")
		require.NoError(t, err)
		assert.Equal(t, []float32{11, 1}, vector)
		assert.Equal(t, []string{"hello world"}, client.texts, "Expected new lines to be stripped")
	})

	t.Run("Embed batch", func(t *testing.T) {
		embedder, err := NewEmbedder(&mockEmbedderClient{}, nil)
		require.NoError(t, err)
		vectors, err := embedder.EmbedBatch(ctx, []string{"a", "bb"})
		require.NoError(t, err)
		assert.Len(t, vectors, 2)
	})

	t.Run("Client error", func(t *testing.T) {
		embedder, err := NewEmbedder(&mockEmbedderClient{err: assert.AnError}, nil)
		require.NoError(t, err)
		_, err = embedder.Embed(ctx, "a")
		assert.ErrorIs(t, err, assert.AnError)
	})
}
