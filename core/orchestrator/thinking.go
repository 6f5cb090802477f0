package orchestrator

import (
	"sync"
	"time"

	"github.com/siherrmann/pagegraph/model"
)

// thinking records the steps of one request. The pipeline goroutine may
// still record after a timeout, so access is locked.
type thinking struct {
	mu    sync.Mutex
	start time.Time
	steps []model.ThinkingStep
}

func newThinking(start time.Time) *thinking {
	return &thinking{start: start}
}

func (t *thinking) record(step, detail string, succeeded bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = append(t.steps, model.ThinkingStep{
		Step:      step,
		Detail:    detail,
		Elapsed:   time.Since(t.start),
		Succeeded: succeeded,
	})
}

func (t *thinking) snapshot() []model.ThinkingStep {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]model.ThinkingStep(nil), t.steps...)
}
