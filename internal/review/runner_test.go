package review

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aide-tools/aide/internal/storage"
)

type stubReviewer struct {
	result  string
	err     error
	release chan struct{}
}

func (r *stubReviewer) Review(ctx context.Context, _ string) (string, error) {
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return r.result, r.err
}

type memHistory struct {
	mu      sync.Mutex
	saved   []storage.ReviewRecord
	saveErr error
}

func (h *memHistory) SaveReview(r storage.ReviewRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.saveErr != nil {
		return h.saveErr
	}
	h.saved = append(h.saved, r)
	return nil
}

func (h *memHistory) CompleteReview(id, result string) error {
	return h.finish(id, storage.ReviewCompleted, result, "")
}

func (h *memHistory) FailReview(id, errMsg string) error {
	return h.finish(id, storage.ReviewFailed, "", errMsg)
}

func (h *memHistory) finish(id, status, result, errMsg string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.saved {
		if h.saved[i].ID == id {
			h.saved[i].Status = status
			h.saved[i].Result = result
			h.saved[i].Error = errMsg
			return nil
		}
	}
	return storage.ErrNotFound
}

func (h *memHistory) record(id string) (storage.ReviewRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.saved {
		if r.ID == id {
			return r, true
		}
	}
	return storage.ReviewRecord{}, false
}

func awaitPhase(t *testing.T, r *Runner, phase Phase) Notification {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case n := <-r.Notifications():
			if n.Phase == phase {
				return n
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s notification", phase)
		}
	}
}

func TestSubmitDeliversStartedThenFinished(t *testing.T) {
	t.Parallel()

	history := &memHistory{}
	runner := NewRunner(&stubReviewer{result: "tighter wording"}, history)

	id, err := runner.Submit(context.Background(), "be concise")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	started := awaitPhase(t, runner, PhaseStarted)
	require.Equal(t, id, started.RequestID)

	finished := awaitPhase(t, runner, PhaseFinished)
	require.Equal(t, id, finished.RequestID)
	require.Equal(t, "tighter wording", finished.Result)
	require.NoError(t, finished.Err)

	rec, ok := history.record(id)
	require.True(t, ok)
	require.Equal(t, storage.ReviewCompleted, rec.Status)
	require.Equal(t, "tighter wording", rec.Result)
}

func TestSecondSubmitWhileInFlight(t *testing.T) {
	t.Parallel()

	reviewer := &stubReviewer{result: "ok", release: make(chan struct{})}
	runner := NewRunner(reviewer, &memHistory{})

	_, err := runner.Submit(context.Background(), "first")
	require.NoError(t, err)
	require.True(t, runner.InFlight())

	_, err = runner.Submit(context.Background(), "second")
	require.ErrorIs(t, err, ErrInFlight)

	close(reviewer.release)
	awaitPhase(t, runner, PhaseFinished)
	require.False(t, runner.InFlight())

	// The slot frees up once the first review finishes.
	_, err = runner.Submit(context.Background(), "third")
	require.NoError(t, err)
	awaitPhase(t, runner, PhaseFinished)
}

func TestReviewFailureRecorded(t *testing.T) {
	t.Parallel()

	history := &memHistory{}
	runner := NewRunner(&stubReviewer{err: errors.New("model overloaded")}, history)

	id, err := runner.Submit(context.Background(), "be concise")
	require.NoError(t, err)

	finished := awaitPhase(t, runner, PhaseFinished)
	require.Error(t, finished.Err)

	rec, ok := history.record(id)
	require.True(t, ok)
	require.Equal(t, storage.ReviewFailed, rec.Status)
	require.Contains(t, rec.Error, "model overloaded")
}

func TestSubmitFailsWhenHistoryRejectsRecord(t *testing.T) {
	t.Parallel()

	history := &memHistory{saveErr: errors.New("disk full")}
	runner := NewRunner(&stubReviewer{result: "ok"}, history)

	_, err := runner.Submit(context.Background(), "be concise")
	require.Error(t, err)

	// The in-flight slot must be released on a failed submit.
	require.False(t, runner.InFlight())
	history.saveErr = nil
	_, err = runner.Submit(context.Background(), "retry")
	require.NoError(t, err)
	awaitPhase(t, runner, PhaseFinished)
}

func TestWorkerFinishesWithoutConsumer(t *testing.T) {
	t.Parallel()

	history := &memHistory{}
	runner := NewRunner(&stubReviewer{result: "ok"}, history)

	// Nobody drains Notifications(); the buffer fills after a few reviews,
	// and the worker must drop notifications rather than block on the send.
	var lastID string
	for i := 0; i < 8; i++ {
		id, err := runner.Submit(context.Background(), "be concise")
		require.NoError(t, err)
		require.Eventually(t, func() bool { return !runner.InFlight() },
			5*time.Second, 10*time.Millisecond)
		lastID = id
	}

	rec, ok := history.record(lastID)
	require.True(t, ok)
	require.Equal(t, storage.ReviewCompleted, rec.Status)
}

func TestNilHistorySkipsRecording(t *testing.T) {
	t.Parallel()

	runner := NewRunner(&stubReviewer{result: "fine"}, nil)

	_, err := runner.Submit(context.Background(), "be concise")
	require.NoError(t, err)

	finished := awaitPhase(t, runner, PhaseFinished)
	require.Equal(t, "fine", finished.Result)
}
