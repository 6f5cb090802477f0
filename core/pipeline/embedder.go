package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/pagegraph/helper"
)

// DefaultModelName is a sentence transformer producing 384-dimensional embeddings.
const DefaultModelName = "sentence-transformers/all-MiniLM-L6-v2"

// HugotEmbedder runs a local sentence transformer model with the hugot Go backend.
type HugotEmbedder struct {
	mu        sync.Mutex
	session   *hugot.Session
	run       func(texts []string) ([][]float32, error)
	modelName string
}

// NewHugotEmbedder prepares the model (download if needed) and creates the
// feature extraction pipeline. Close releases the session.
func NewHugotEmbedder(modelName string, modelDir string) (*HugotEmbedder, error) {
	if modelName == "" {
		modelName = DefaultModelName
	}
	if modelDir == "" {
		modelDir = "./models"
	}
	modelPath, err := helper.PrepareModel(modelName, modelDir, "")
	if err != nil {
		return nil, helper.NewError("prepare model", err)
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	return &HugotEmbedder{
		session:   session,
		modelName: modelName,
		run: func(texts []string) ([][]float32, error) {
			result, err := sentencePipeline.RunPipeline(texts)
			if err != nil {
				return nil, err
			}
			return result.Embeddings, nil
		},
	}, nil
}

// Embed generates the embedding of one text.
func (e *HugotEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding generated")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for all texts in one pipeline run.
func (e *HugotEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	embeddings, err := e.run(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	return embeddings, nil
}

// ModelName returns the name of the loaded model.
func (e *HugotEmbedder) ModelName() string {
	return e.modelName
}

// Close destroys the hugot session.
func (e *HugotEmbedder) Close() error {
	return e.session.Destroy()
}
