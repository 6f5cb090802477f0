package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/siherrmann/pagegraph/model"
)

// block is a structural part of a page body.
type block struct {
	typ  model.ChunkType
	text string
}

// SentenceChunker creates a chunker that keeps headings, tables and code
// blocks whole and splits paragraphs into groups of sentences.
func SentenceChunker(maxSentencesPerChunk int) ChunkFunc {
	return func(ctx context.Context, title string, body string) ([]PageChunk, error) {
		if maxSentencesPerChunk <= 0 {
			return nil, fmt.Errorf("max sentences per chunk must be positive")
		}

		chunks := newChunkList(title)
		for _, b := range parseBlocks(body) {
			if b.typ != model.ChunkTypeBody {
				chunks.add(b.text, b.typ, nil)
				continue
			}

			sentences := splitSentences(b.text)
			for start := 0; start < len(sentences); start += maxSentencesPerChunk {
				end := min(start+maxSentencesPerChunk, len(sentences))
				chunks.add(strings.Join(sentences[start:end], " "), model.ChunkTypeBody, model.Metadata{
					"num_sentences":   end - start,
					"chunking_method": "sentence",
				})
			}
		}
		return chunks.items, nil
	}
}

// SemanticChunker creates a chunker that uses embeddings to find natural
// boundaries in paragraphs. A chunk ends where the similarity of the next
// sentence to the chunk average drops below the threshold, or where the
// chunk would exceed maxChunkSize bytes.
func SemanticChunker(embedder BatchEmbedder, maxChunkSize int, similarityThreshold float32) ChunkFunc {
	return func(ctx context.Context, title string, body string) ([]PageChunk, error) {
		if maxChunkSize <= 0 {
			return nil, fmt.Errorf("max chunk size must be positive")
		}

		chunks := newChunkList(title)
		for _, b := range parseBlocks(body) {
			if b.typ != model.ChunkTypeBody {
				chunks.add(b.text, b.typ, nil)
				continue
			}

			sentences := splitSentences(b.text)
			embeddings, err := embedder.EmbedBatch(ctx, sentences)
			if err != nil {
				return nil, fmt.Errorf("failed to generate embeddings: %w", err)
			}
			if len(embeddings) != len(sentences) {
				return nil, fmt.Errorf("embedding count mismatch: got %d embeddings for %d sentences", len(embeddings), len(sentences))
			}

			for _, group := range groupBySimilarity(sentences, embeddings, maxChunkSize, similarityThreshold) {
				chunks.add(strings.Join(group, " "), model.ChunkTypeBody, model.Metadata{
					"num_sentences":   len(group),
					"chunking_method": "semantic",
				})
			}
		}
		return chunks.items, nil
	}
}

func groupBySimilarity(sentences []string, embeddings [][]float32, maxChunkSize int, threshold float32) [][]string {
	var groups [][]string
	var current []string
	var currentEmbeddings [][]float32
	currentLength := 0

	for i, sentence := range sentences {
		if len(current) > 0 {
			similarity := cosineSimilarity(average(currentEmbeddings), embeddings[i])
			if similarity < threshold || currentLength+len(sentence) > maxChunkSize {
				groups = append(groups, current)
				current, currentEmbeddings, currentLength = nil, nil, 0
			}
		}
		current = append(current, sentence)
		currentEmbeddings = append(currentEmbeddings, embeddings[i])
		currentLength += len(sentence)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

type chunkList struct {
	items []PageChunk
}

func newChunkList(title string) *chunkList {
	l := &chunkList{}
	l.add(title, model.ChunkTypeTitle, nil)
	return l
}

func (l *chunkList) add(content string, typ model.ChunkType, metadata model.Metadata) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	if metadata == nil {
		metadata = model.Metadata{}
	}
	l.items = append(l.items, PageChunk{
		Content:  content,
		Type:     typ,
		Position: len(l.items),
		Metadata: metadata,
	})
}

// parseBlocks splits a body into headings, tables, fenced code and
// paragraphs separated by blank lines.
func parseBlocks(body string) []block {
	var blocks []block
	var current []string
	currentType := model.ChunkTypeBody
	inCode := false

	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, block{typ: currentType, text: strings.Join(current, "\n")})
		}
		current = nil
		currentType = model.ChunkTypeBody
	}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if inCode {
				flush()
			} else {
				flush()
				currentType = model.ChunkTypeCode
			}
			inCode = !inCode
			continue
		}
		if inCode {
			current = append(current, line)
			continue
		}

		switch {
		case trimmed == "":
			flush()
		case strings.HasPrefix(trimmed, "#"):
			flush()
			blocks = append(blocks, block{typ: model.ChunkTypeSectionHeader, text: strings.TrimSpace(strings.TrimLeft(trimmed, "#"))})
		case strings.HasPrefix(trimmed, "|"):
			if currentType != model.ChunkTypeTable {
				flush()
				currentType = model.ChunkTypeTable
			}
			current = append(current, trimmed)
		default:
			if currentType != model.ChunkTypeBody {
				flush()
			}
			current = append(current, trimmed)
		}
	}
	flush()
	return blocks
}

func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "! ", "!|")
	text = strings.ReplaceAll(text, "? ", "?|")
	text = strings.ReplaceAll(text, ". ", ".|")

	var sentences []string
	for _, s := range strings.Split(text, "|") {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func average(embeddings [][]float32) []float32 {
	avg := make([]float32, len(embeddings[0]))
	for _, emb := range embeddings {
		for j := range emb {
			if j < len(avg) {
				avg[j] += emb[j]
			}
		}
	}
	for j := range avg {
		avg[j] /= float32(len(embeddings))
	}
	return avg
}

// cosineSimilarity calculates the cosine similarity between two embedding vectors
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float32
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
