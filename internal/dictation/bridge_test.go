package dictation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	started  int
	stopped  int
	startErr error
	stopErr  error
}

func (r *fakeRecognizer) Start(ctx context.Context) error {
	if r.startErr != nil {
		return r.startErr
	}
	r.started++
	return nil
}

func (r *fakeRecognizer) Stop() error {
	if r.stopErr != nil {
		return r.stopErr
	}
	r.stopped++
	return nil
}

func TestToggleStartsAndStops(t *testing.T) {
	t.Parallel()

	rec := &fakeRecognizer{}
	b := NewBridge(rec)

	listening, err := b.Toggle(context.Background())
	require.NoError(t, err)
	require.True(t, listening)
	require.True(t, b.Listening())
	require.Equal(t, 1, rec.started)

	listening, err = b.Toggle(context.Background())
	require.NoError(t, err)
	require.False(t, listening)
	require.False(t, b.Listening())
	require.Equal(t, 1, rec.stopped)
}

func TestToggleStartFailureLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	rec := &fakeRecognizer{startErr: errors.New("mic busy")}
	b := NewBridge(rec)

	listening, err := b.Toggle(context.Background())
	require.Error(t, err)
	require.False(t, listening)
	require.False(t, b.Listening())
}

func TestToggleStopFailureLeavesListening(t *testing.T) {
	t.Parallel()

	rec := &fakeRecognizer{}
	b := NewBridge(rec)

	_, err := b.Toggle(context.Background())
	require.NoError(t, err)

	rec.stopErr = errors.New("device wedged")
	listening, err := b.Toggle(context.Background())
	require.Error(t, err)
	require.True(t, listening)
	require.True(t, b.Listening())
}

func TestPartialAndFinalPublishSnapshots(t *testing.T) {
	t.Parallel()

	b := NewBridge(&fakeRecognizer{})

	b.Partial("hel")
	snap := <-b.Notifications()
	require.Equal(t, "hel", snap.Text)
	require.Equal(t, "hel", snap.Hypothesis)
	require.False(t, snap.Final)

	b.Final("hello")
	snap = <-b.Notifications()
	require.Equal(t, "hello\n", snap.Text)
	require.Empty(t, snap.Hypothesis)
	require.True(t, snap.Final)
}

func TestSetTextSeedsBuffer(t *testing.T) {
	t.Parallel()

	b := NewBridge(&fakeRecognizer{})
	b.SetText("existing notes\n")
	b.Partial("more")

	require.Equal(t, "existing notes\nmore", b.Text())
}

func TestCloseStopsActiveRecognizer(t *testing.T) {
	t.Parallel()

	rec := &fakeRecognizer{}
	b := NewBridge(rec)

	_, err := b.Toggle(context.Background())
	require.NoError(t, err)

	require.NoError(t, b.Close())
	require.Equal(t, 1, rec.stopped)
	require.False(t, b.Listening())
}

func TestCloseIdleIsNoop(t *testing.T) {
	t.Parallel()

	rec := &fakeRecognizer{}
	b := NewBridge(rec)

	require.NoError(t, b.Close())
	require.Zero(t, rec.stopped)
}

func TestNilRecognizerToggleFlipsState(t *testing.T) {
	t.Parallel()

	b := NewBridge(nil)

	listening, err := b.Toggle(context.Background())
	require.NoError(t, err)
	require.True(t, listening)

	listening, err = b.Toggle(context.Background())
	require.NoError(t, err)
	require.False(t, listening)
}
