package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/siherrmann/pagegraph/helper"
	"github.com/siherrmann/pagegraph/metrics"
	"github.com/siherrmann/pagegraph/model"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrNoChoices is returned when the model answers without content.
var ErrNoChoices = errors.New("model returned no choices")

// Config configures an OpenAI compatible endpoint.
type Config struct {
	BaseURL        string        `mapstructure:"base_url" json:"base_url"`
	Token          string        `mapstructure:"token" json:"-"`
	Model          string        `mapstructure:"model" json:"model"`
	EmbeddingModel string        `mapstructure:"embedding_model" json:"embedding_model"`
	Temperature    float64       `mapstructure:"temperature" json:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens" json:"max_tokens"`
	CallTimeout    time.Duration `mapstructure:"call_timeout" json:"call_timeout"`
	MaxSubQueries  int           `mapstructure:"max_sub_questions" json:"max_sub_questions"`
}

// DefaultConfig returns settings for a local OpenAI compatible server.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://localhost:11434/v1",
		Token:          "none",
		Model:          "llama3.1",
		EmbeddingModel: "nomic-embed-text",
		Temperature:    0.0,
		MaxTokens:      2000,
		CallTimeout:    20 * time.Second,
		MaxSubQueries:  5,
	}
}

// Client runs the question answering prompts against a language model.
// Every call is retried once on failure or unparsable output.
type Client struct {
	model  llms.Model
	config Config
	logger *slog.Logger
}

// NewClient wraps an existing model.
func NewClient(llm llms.Model, config Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		model:  llm,
		config: config,
		logger: logger.With("component", "llm"),
	}
}

// NewOpenAIClient connects to an OpenAI compatible chat endpoint.
func NewOpenAIClient(config Config, logger *slog.Logger) (*Client, error) {
	token := config.Token
	if token == "" {
		token = "none"
	}
	llm, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithToken(token),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, helper.NewError("create openai client", err)
	}
	return NewClient(llm, config, logger), nil
}

type classifyResult struct {
	Classification      string   `json:"classification"`
	Confidence          float64  `json:"confidence"`
	SubQuestions        []string `json:"subquestions"`
	ClarificationNeeded string   `json:"clarification_needed"`
	Suggestions         []string `json:"suggestions"`
}

// Classify decides whether a question is atomic, needs decomposition or
// needs clarification. Unknown labels are treated as atomic.
func (c *Client) Classify(ctx context.Context, query string) (*model.Classification, error) {
	maxSub := c.config.MaxSubQueries
	if maxSub <= 0 {
		maxSub = 5
	}

	var result classifyResult
	err := c.generateJSON(ctx, "classify", fmt.Sprintf(classifyPrompt, maxSub), query, &result)
	if err != nil {
		return nil, err
	}

	classification := &model.Classification{
		Kind:          parseKind(result.Classification),
		Clarification: result.ClarificationNeeded,
		Suggestions:   result.Suggestions,
	}
	for _, q := range result.SubQuestions {
		if q = strings.TrimSpace(q); q != "" {
			classification.SubQuestions = append(classification.SubQuestions, q)
		}
	}
	if len(classification.SubQuestions) > maxSub {
		classification.SubQuestions = classification.SubQuestions[:maxSub]
	}
	if classification.Kind == model.ClassificationNeedsDecomposition && len(classification.SubQuestions) == 0 {
		classification.Kind = model.ClassificationAtomic
	}
	return classification, nil
}

func parseKind(label string) model.ClassificationKind {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(label), "_", "")) {
	case "needsdecomposition":
		return model.ClassificationNeedsDecomposition
	case "needsclarification":
		return model.ClassificationNeedsClarification
	}
	return model.ClassificationAtomic
}

// Synthesize writes an answer to query from the context blocks.
func (c *Client) Synthesize(ctx context.Context, query string, blocks []model.ContextBlock) (string, error) {
	user := fmt.Sprintf("Question: %s\n\nContext:\n%s", query, renderBlocks(blocks))
	answer, err := c.generate(ctx, "synthesize", synthesizePrompt, user, false, func(text string) error {
		if strings.TrimSpace(text) == "" {
			return ErrNoChoices
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

type verifyResult struct {
	RiskLevel  string   `json:"risk_level"`
	Confidence float64  `json:"confidence"`
	Issues     []string `json:"issues"`
}

// Verify checks an answer against the context blocks it was built from.
func (c *Client) Verify(ctx context.Context, answer string, blocks []model.ContextBlock) (*model.Verification, error) {
	user := fmt.Sprintf("Answer to verify:\n%s\n\nContext:\n%s", answer, renderBlocks(blocks))

	var result verifyResult
	if err := c.generateJSON(ctx, "verify", verifyPrompt, user, &result); err != nil {
		return nil, err
	}

	risk := model.RiskLow
	switch strings.ToLower(strings.TrimSpace(result.RiskLevel)) {
	case "medium":
		risk = model.RiskMedium
	case "high":
		risk = model.RiskHigh
	}
	return &model.Verification{
		Risk:       risk,
		Confidence: max(0, min(result.Confidence, 1)),
		Issues:     result.Issues,
	}, nil
}

type rerankResult struct {
	Ranking []string `json:"ranking"`
}

// Rerank orders hits by relevance and returns at most top hits. Ids the
// model invents are ignored.
func (c *Client) Rerank(ctx context.Context, query string, hits []*model.SearchHit, top int) ([]*model.SearchHit, error) {
	if len(hits) == 0 {
		return nil, nil
	}
	if top <= 0 || top > len(hits) {
		top = len(hits)
	}

	var docs strings.Builder
	byID := make(map[string]*model.SearchHit, len(hits))
	for _, hit := range hits {
		byID[hit.ChunkID] = hit
		fmt.Fprintf(&docs, "[%s] %s %s\n", hit.ChunkID, hit.Title, truncate(hit.Content, 500))
	}
	user := fmt.Sprintf("Query: %s\n\nDocuments:\n%s", query, docs.String())

	var result rerankResult
	if err := c.generateJSON(ctx, "rerank", fmt.Sprintf(rerankPrompt, top), user, &result); err != nil {
		return nil, err
	}

	ranked := make([]*model.SearchHit, 0, top)
	seen := map[string]bool{}
	for _, id := range result.Ranking {
		hit, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ranked = append(ranked, hit)
		if len(ranked) == top {
			break
		}
	}
	return ranked, nil
}

func (c *Client) generateJSON(ctx context.Context, operation, system, user string, target any) error {
	_, err := c.generate(ctx, operation, system, user, true, func(text string) error {
		return json.Unmarshal([]byte(StripCodeFence(text)), target)
	})
	return err
}

// generate calls the model at most twice. parse validates the output,
// a parse error counts as a failed attempt.
func (c *Client) generate(ctx context.Context, operation, system, user string, jsonMode bool, parse func(string) error) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	options := []llms.CallOption{llms.WithTemperature(c.config.Temperature)}
	if c.config.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(c.config.MaxTokens))
	}
	if jsonMode {
		options = append(options, llms.WithJSONMode())
	}

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		text, err := c.call(ctx, content, options)
		if err == nil {
			err = parse(text)
		}
		if err == nil {
			metrics.LLMCallsTotal.WithLabelValues(operation, "ok").Inc()
			return text, nil
		}

		lastErr = err
		c.logger.Warn("Language model call failed",
			slog.String("operation", operation),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
	}

	metrics.LLMCallsTotal.WithLabelValues(operation, "failed").Inc()
	return "", helper.NewError(operation, lastErr)
}

func (c *Client) call(ctx context.Context, content []llms.MessageContent, options []llms.CallOption) (string, error) {
	if c.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.CallTimeout)
		defer cancel()
	}

	response, err := c.model.GenerateContent(ctx, content, options...)
	if err != nil {
		return "", err
	}
	if response == nil || len(response.Choices) == 0 {
		return "", ErrNoChoices
	}
	return response.Choices[0].Content, nil
}

// StripCodeFence removes a surrounding markdown code fence.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func renderBlocks(blocks []model.ContextBlock) string {
	var b strings.Builder
	for i, block := range blocks {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		b.WriteString(block.Content)
	}
	return b.String()
}

func truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
