package review

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/aide-tools/aide/internal/storage"
)

// ErrInFlight is returned when a review is submitted while another is still
// running. The runner holds a single in-flight slot; a second concurrent
// review is rejected rather than silently racing the first.
var ErrInFlight = errors.New("a review is already in progress")

// Phase marks the lifecycle point a notification reports.
type Phase string

const (
	PhaseStarted  Phase = "started"
	PhaseFinished Phase = "finished"
)

// Notification is delivered to the consumer's event loop. For every request
// a started notification is published before its finished one. Delivery is
// best-effort: a consumer that stops draining loses notifications instead of
// blocking the worker; outcomes remain queryable from the history store.
type Notification struct {
	RequestID string
	Phase     Phase
	Result    string
	Err       error
}

// History records review outcomes. Implemented by storage.Store.
type History interface {
	SaveReview(r storage.ReviewRecord) error
	CompleteReview(id, result string) error
	FailReview(id, errMsg string) error
}

// Runner executes reviews on background goroutines, one at a time, and
// hands results back over the notification channel. The runner never
// mutates caller state; consumers apply results on their own loop.
type Runner struct {
	reviewer Reviewer
	history  History
	logger   *slog.Logger
	notify   chan Notification

	mu       sync.Mutex
	inFlight bool
}

// NewRunner creates a Runner. history may be nil to skip record keeping.
func NewRunner(reviewer Reviewer, history History) *Runner {
	return &Runner{
		reviewer: reviewer,
		history:  history,
		logger:   slog.Default(),
		notify:   make(chan Notification, 8),
	}
}

// Notifications returns the channel carrying started/finished events.
func (r *Runner) Notifications() <-chan Notification {
	return r.notify
}

// InFlight reports whether a review is currently running.
func (r *Runner) InFlight() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight
}

// Submit starts a review of the instructions on a background goroutine and
// returns its request ID. It returns ErrInFlight when one is already
// running; no timeout or cancellation is applied beyond ctx.
func (r *Runner) Submit(ctx context.Context, instructions string) (string, error) {
	r.mu.Lock()
	if r.inFlight {
		r.mu.Unlock()
		return "", ErrInFlight
	}
	r.inFlight = true
	r.mu.Unlock()

	id := uuid.New().String()
	if r.history != nil {
		if err := r.history.SaveReview(storage.ReviewRecord{
			ID:           id,
			Instructions: instructions,
			Status:       storage.ReviewPending,
		}); err != nil {
			r.mu.Lock()
			r.inFlight = false
			r.mu.Unlock()
			return "", err
		}
	}

	go r.run(ctx, id, instructions)
	return id, nil
}

func (r *Runner) run(ctx context.Context, id, instructions string) {
	r.publish(Notification{RequestID: id, Phase: PhaseStarted})

	result, err := r.reviewer.Review(ctx, instructions)

	if r.history != nil {
		var histErr error
		if err != nil {
			histErr = r.history.FailReview(id, err.Error())
		} else {
			histErr = r.history.CompleteReview(id, result)
		}
		if histErr != nil {
			r.logger.Error("recording review outcome failed", "request_id", id, "error", histErr)
		}
	}
	if err != nil {
		r.logger.Warn("instructions review failed", "request_id", id, "error", err)
	}

	r.mu.Lock()
	r.inFlight = false
	r.mu.Unlock()

	r.publish(Notification{RequestID: id, Phase: PhaseFinished, Result: result, Err: err})
}

// publish never blocks; the worker must be able to finish even when nothing
// drains the channel anymore, e.g. during shutdown.
func (r *Runner) publish(n Notification) {
	select {
	case r.notify <- n:
	default:
		r.logger.Warn("dropping review notification, no consumer draining",
			"request_id", n.RequestID, "phase", n.Phase)
	}
}
