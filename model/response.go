package model

import "time"

// ClassificationKind is the outcome of classifying a question.
type ClassificationKind string

const (
	ClassificationAtomic             ClassificationKind = "atomic"
	ClassificationNeedsDecomposition ClassificationKind = "needs_decomposition"
	ClassificationNeedsClarification ClassificationKind = "needs_clarification"
)

// Classification is the language model's view of a question.
type Classification struct {
	Kind          ClassificationKind `json:"classification"`
	SubQuestions  []string           `json:"subquestions,omitempty"`
	Clarification string             `json:"clarification,omitempty"`
	Suggestions   []string           `json:"suggestions,omitempty"`
}

// Risk is the hallucination risk reported by answer verification.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Verification is the result of checking an answer against its context.
type Verification struct {
	Risk       Risk     `json:"risk"`
	Confidence float64  `json:"confidence"`
	Issues     []string `json:"issues,omitempty"`
}

// ContextBlock is one source passed to synthesis and verification.
type ContextBlock struct {
	PageID     string  `json:"page_id"`
	Title      string  `json:"title"`
	Breadcrumb string  `json:"breadcrumb"`
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
}

// TreeNode is a page in a rendered page tree.
type TreeNode struct {
	PageID         string      `json:"page_id"`
	Title          string      `json:"title"`
	ContainsAnswer bool        `json:"contains_answer"`
	Children       []*TreeNode `json:"children,omitempty"`
}

// PageTree is the hierarchy around the pages an answer was built from.
type PageTree struct {
	Root     *TreeNode `json:"root"`
	Markdown string    `json:"markdown"`
	Partial  bool      `json:"partial"`
}

// ThinkingStep records one stage of answering a question.
type ThinkingStep struct {
	Step      string        `json:"step"`
	Detail    string        `json:"detail,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
	Succeeded bool          `json:"succeeded"`
}

// Response is what a caller receives for a question. Timeout and
// FallbackUsed mark degraded answers.
type Response struct {
	Answer         string          `json:"answer"`
	Confidence     float64         `json:"confidence"`
	PageTrees      []*PageTree     `json:"page_trees,omitempty"`
	Citations      []PageRef       `json:"citations,omitempty"`
	ConversationID string          `json:"conversation_id"`
	FallbackUsed   bool            `json:"fallback_used"`
	Timeout        bool            `json:"timeout"`
	Cached         bool            `json:"cached"`
	PartialResults bool            `json:"partial_results"`
	Classification *Classification `json:"classification,omitempty"`
	Suggestions    []string        `json:"suggestions,omitempty"`
	Verification   *Verification   `json:"verification,omitempty"`
	ThinkingSteps  []ThinkingStep  `json:"thinking_steps,omitempty"`
	Duration       time.Duration   `json:"duration"`
}
