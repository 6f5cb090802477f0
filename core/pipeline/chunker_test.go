package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/siherrmann/pagegraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const structuredBody = `Install the agent first. It runs on Linux. It runs on macOS.

# Configuration

Set the token. Restart the agent!

| key | value |
| --- | --- |
| token | secret |

` + "```" + `
agent --config config.yaml

agent status
` + "```" + `
Done?`

// topicEmbedder maps sentences to one of two orthogonal topics.
type topicEmbedder struct {
	calls int
	err   error
}

func (e *topicEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if strings.Contains(strings.ToLower(text), "physics") {
			embeddings[i] = []float32{0, 1}
		} else {
			embeddings[i] = []float32{1, 0}
		}
	}
	return embeddings, nil
}

func chunkTypes(chunks []PageChunk) []model.ChunkType {
	types := make([]model.ChunkType, len(chunks))
	for i, c := range chunks {
		types[i] = c.Type
	}
	return types
}

func TestSentenceChunker(t *testing.T) {
	ctx := context.Background()

	t.Run("Structured page", func(t *testing.T) {
		chunks, err := SentenceChunker(2)(ctx, "Agent setup", structuredBody)
		require.NoError(t, err)

		assert.Equal(t, []model.ChunkType{
			model.ChunkTypeTitle,
			model.ChunkTypeBody,
			model.ChunkTypeBody,
			model.ChunkTypeSectionHeader,
			model.ChunkTypeBody,
			model.ChunkTypeTable,
			model.ChunkTypeCode,
			model.ChunkTypeBody,
		}, chunkTypes(chunks))

		assert.Equal(t, "Agent setup", chunks[0].Content)
		assert.Equal(t, "Install the agent first. It runs on Linux.", chunks[1].Content)
		assert.Equal(t, "It runs on macOS.", chunks[2].Content)
		assert.Equal(t, "Configuration", chunks[3].Content, "Expected heading markers to be stripped")
		assert.Equal(t, "Set the token. Restart the agent!", chunks[4].Content)
		assert.Equal(t, 3, strings.Count(chunks[5].Content, "\n")+1, "Expected table rows to stay together")
		assert.Contains(t, chunks[6].Content, "agent status", "Expected blank lines inside code to not split the block")
		assert.Equal(t, "Done?", chunks[7].Content)

		for i, chunk := range chunks {
			assert.Equal(t, i, chunk.Position, "Expected consecutive positions")
			assert.NotNil(t, chunk.Metadata)
		}
	})

	t.Run("Title only", func(t *testing.T) {
		chunks, err := SentenceChunker(3)(ctx, "Empty page", "   \n\n  ")
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, model.ChunkTypeTitle, chunks[0].Type)
	})

	t.Run("Empty title is skipped", func(t *testing.T) {
		chunks, err := SentenceChunker(3)(ctx, "", "Only body.")
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, model.ChunkTypeBody, chunks[0].Type)
		assert.Equal(t, 0, chunks[0].Position)
	})

	t.Run("Error with zero max sentences", func(t *testing.T) {
		_, err := SentenceChunker(0)(ctx, "Title", "Some text.")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "must be positive")
	})

	t.Run("Error with negative max sentences", func(t *testing.T) {
		_, err := SentenceChunker(-1)(ctx, "Title", "Some text.")
		assert.Error(t, err)
	})
}

func TestSemanticChunker(t *testing.T) {
	ctx := context.Background()

	t.Run("Splits at topic changes", func(t *testing.T) {
		embedder := &topicEmbedder{}
		body := "Dogs are happy. Puppies are joyful. Quantum physics is complex. Particle physics is hard."

		chunks, err := SemanticChunker(embedder, 1000, 0.5)(ctx, "Notes", body)
		require.NoError(t, err)

		require.Len(t, chunks, 3)
		assert.Equal(t, "Dogs are happy. Puppies are joyful.", chunks[1].Content)
		assert.Equal(t, "Quantum physics is complex. Particle physics is hard.", chunks[2].Content)
		assert.Equal(t, "semantic", chunks[1].Metadata["chunking_method"])
		assert.Equal(t, 2, chunks[1].Metadata["num_sentences"])
	})

	t.Run("Respects max chunk size", func(t *testing.T) {
		body := "First sentence here. Second sentence here. Third sentence here."

		chunks, err := SemanticChunker(&topicEmbedder{}, 25, 0.5)(ctx, "Notes", body)
		require.NoError(t, err)

		assert.Len(t, chunks, 4, "Expected one chunk per sentence")
		for _, chunk := range chunks[1:] {
			assert.LessOrEqual(t, len(chunk.Content), 25)
		}
	})

	t.Run("Embedding error", func(t *testing.T) {
		_, err := SemanticChunker(&topicEmbedder{err: errors.New("model down")}, 100, 0.5)(ctx, "Notes", "Some text.")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "model down")
	})

	t.Run("Only structural blocks need no embedding", func(t *testing.T) {
		embedder := &topicEmbedder{}
		chunks, err := SemanticChunker(embedder, 100, 0.5)(ctx, "Notes", "# Heading")
		require.NoError(t, err)
		assert.Len(t, chunks, 2)
		assert.Equal(t, 0, embedder.calls)
	})
}


func TestCosineSimilarity(t *testing.T) {
	t.Run("Identical vectors", func(t *testing.T) {
		a := []float32{1.0, 2.0, 3.0}
		b := []float32{1.0, 2.0, 3.0}

		similarity := cosineSimilarity(a, b)

		assert.InDelta(t, 1.0, similarity, 0.001, "Identical vectors should have similarity ~1.0")
	})

	t.Run("Orthogonal vectors", func(t *testing.T) {
		a := []float32{1.0, 0.0, 0.0}
		b := []float32{0.0, 1.0, 0.0}

		similarity := cosineSimilarity(a, b)

		assert.InDelta(t, 0.0, similarity, 0.001, "Orthogonal vectors should have similarity ~0.0")
	})

	t.Run("Opposite vectors", func(t *testing.T) {
		a := []float32{1.0, 2.0, 3.0}
		b := []float32{-1.0, -2.0, -3.0}

		similarity := cosineSimilarity(a, b)

		assert.InDelta(t, -1.0, similarity, 0.001, "Opposite vectors should have similarity ~-1.0")
	})

	t.Run("Different lengths return 0", func(t *testing.T) {
		a := []float32{1.0, 2.0}
		b := []float32{1.0, 2.0, 3.0}

		similarity := cosineSimilarity(a, b)

		assert.Equal(t, float32(0.0), similarity)
	})

	t.Run("Zero vectors return 0", func(t *testing.T) {
		a := []float32{0.0, 0.0, 0.0}
		b := []float32{1.0, 2.0, 3.0}

		similarity := cosineSimilarity(a, b)

		assert.Equal(t, float32(0.0), similarity)
	})

	t.Run("Similar but not identical vectors", func(t *testing.T) {
		a := []float32{1.0, 2.0, 3.0}
		b := []float32{1.0, 2.1, 2.9}

		similarity := cosineSimilarity(a, b)

		assert.Greater(t, similarity, float32(0.9), "Similar vectors should have high similarity")
		assert.Less(t, similarity, float32(1.0), "But not exactly 1.0")
	})
}
