package orchestrator

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/siherrmann/pagegraph/cache"
	"github.com/siherrmann/pagegraph/helper"
	"github.com/siherrmann/pagegraph/metrics"
	"github.com/siherrmann/pagegraph/model"
)

const (
	questionIDLength  = 20
	questionSpaceKey  = "questions"
	feedbackTimeout   = 10 * time.Second
	metadataKindKey   = "kind"
	metadataKindValue = "question"
)

// FeedbackStore persists question nodes and their dependencies.
type FeedbackStore interface {
	UpsertPage(ctx context.Context, page *model.DocumentNode) error
	UpsertEdge(ctx context.Context, edge *model.Edge) error
}

// Feedback is one answered question with the questions and pages it depended on.
type Feedback struct {
	Question       string
	ConversationID string
	SubQuestions   []string
	Cited          []model.PageRef
}

// FeedbackQueue writes question feedback to the graph in the background.
// Failures are logged and never reach the caller.
type FeedbackQueue struct {
	pool   *ants.Pool
	store  FeedbackStore
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewFeedbackQueue creates a queue with the given number of workers.
// Submissions beyond the free workers are dropped.
func NewFeedbackQueue(store FeedbackStore, workers int, logger *slog.Logger) (*FeedbackQueue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, helper.NewError("create feedback pool", err)
	}
	return &FeedbackQueue{pool: pool, store: store, logger: logger}, nil
}

// QuestionNodeID returns the graph id of a question.
func QuestionNodeID(question string) string {
	sum := md5.Sum([]byte(cache.Normalize(question)))
	return "q_" + hex.EncodeToString(sum[:])[:questionIDLength]
}

// Submit queues a feedback write without blocking.
func (q *FeedbackQueue) Submit(feedback Feedback) {
	q.wg.Add(1)
	err := q.pool.Submit(func() {
		defer q.wg.Done()
		q.write(feedback)
	})
	if err != nil {
		q.wg.Done()
		metrics.FeedbackTotal.WithLabelValues("dropped").Inc()
		q.logger.Warn("Feedback dropped", slog.String("error", err.Error()))
	}
}

func (q *FeedbackQueue) write(feedback Feedback) {
	ctx, cancel := context.WithTimeout(context.Background(), feedbackTimeout)
	defer cancel()

	if err := q.persist(ctx, feedback); err != nil {
		metrics.FeedbackTotal.WithLabelValues("failed").Inc()
		q.logger.Warn("Feedback write failed",
			slog.String("question_id", QuestionNodeID(feedback.Question)),
			slog.String("error", err.Error()),
		)
		return
	}
	metrics.FeedbackTotal.WithLabelValues("ok").Inc()
}

func (q *FeedbackQueue) persist(ctx context.Context, feedback Feedback) error {
	questionID, err := q.upsertQuestion(ctx, feedback.Question, feedback.ConversationID)
	if err != nil {
		return err
	}

	for _, sub := range feedback.SubQuestions {
		subID, err := q.upsertQuestion(ctx, sub, feedback.ConversationID)
		if err != nil {
			return err
		}
		if err := q.upsertDependency(ctx, questionID, subID); err != nil {
			return err
		}
	}

	for _, page := range feedback.Cited {
		if err := q.upsertDependency(ctx, questionID, page.ID); err != nil {
			return err
		}
	}
	return nil
}

func (q *FeedbackQueue) upsertQuestion(ctx context.Context, question, conversationID string) (string, error) {
	id := QuestionNodeID(question)
	err := q.store.UpsertPage(ctx, &model.DocumentNode{
		ID:       id,
		Title:    question,
		SpaceKey: questionSpaceKey,
		Metadata: model.Metadata{
			metadataKindKey:   metadataKindValue,
			"conversation_id": conversationID,
		},
	})
	return id, helper.NewError("upsert question node", err)
}

func (q *FeedbackQueue) upsertDependency(ctx context.Context, sourceID, targetID string) error {
	err := q.store.UpsertEdge(ctx, &model.Edge{
		SourceID: sourceID,
		TargetID: targetID,
		EdgeType: model.EdgeTypeDependsOn,
		Weight:   1,
	})
	return helper.NewError("upsert depends_on edge", err)
}

// Wait blocks until all submitted writes finished.
func (q *FeedbackQueue) Wait() {
	q.wg.Wait()
}

// Close waits for pending writes and releases the workers.
func (q *FeedbackQueue) Close() {
	q.wg.Wait()
	q.pool.Release()
}
