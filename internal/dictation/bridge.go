package dictation

import (
	"context"
	"sync"
)

// Recognizer abstracts the external speech-recognition service. Start begins
// emitting partial/final events to whoever wired the recognizer up; Stop
// ends the listening session.
type Recognizer interface {
	Start(ctx context.Context) error
	Stop() error
}

// Snapshot is one outbound buffer-change notification.
type Snapshot struct {
	Text       string
	Hypothesis string
	Final      bool
}

// Bridge owns the dictation buffer and the microphone toggle. Inbound
// recognition events mutate the buffer; every change is published as a
// Snapshot so a UI layer can mirror the buffer without the bridge knowing
// anything about the toolkit.
type Bridge struct {
	rec    Recognizer
	notify chan Snapshot

	mu        sync.Mutex
	buf       Buffer
	listening bool
}

// NewBridge wires a bridge to the given recognizer. A nil recognizer is
// allowed; Toggle then only flips the listening state.
func NewBridge(rec Recognizer) *Bridge {
	return &Bridge{
		rec:    rec,
		notify: make(chan Snapshot, 16),
	}
}

// Notifications returns the outbound buffer-change channel.
func (b *Bridge) Notifications() <-chan Snapshot {
	return b.notify
}

// Listening reports whether the microphone is on.
func (b *Bridge) Listening() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listening
}

// Toggle flips the microphone state, starting or stopping the recognizer,
// and returns the new state. A recognizer failure leaves the state
// unchanged.
func (b *Bridge) Toggle(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.listening {
		if b.rec != nil {
			if err := b.rec.Stop(); err != nil {
				return true, err
			}
		}
		b.listening = false
		return false, nil
	}

	if b.rec != nil {
		if err := b.rec.Start(ctx); err != nil {
			return false, err
		}
	}
	b.listening = true
	return true, nil
}

// Partial applies an incremental recognition result to the buffer.
func (b *Bridge) Partial(text string) {
	b.mu.Lock()
	b.buf.Partial(text)
	snap := Snapshot{Text: b.buf.String(), Hypothesis: b.buf.Hypothesis()}
	b.mu.Unlock()
	b.publish(snap)
}

// Final applies a completed recognition result to the buffer.
func (b *Bridge) Final(text string) {
	b.mu.Lock()
	b.buf.Final(text)
	snap := Snapshot{Text: b.buf.String(), Final: true}
	b.mu.Unlock()
	b.publish(snap)
}

// Text returns the current buffer contents.
func (b *Bridge) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// SetText overwrites the buffer, as a manual edit in the UI would.
func (b *Bridge) SetText(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.SetText(text)
}

// ResetBuffer clears the buffer and pending hypothesis, e.g. when a
// different profile is loaded into the form.
func (b *Bridge) ResetBuffer() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// Close stops an active listening session. Safe to call when idle.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.listening {
		return nil
	}
	b.listening = false
	if b.rec == nil {
		return nil
	}
	return b.rec.Stop()
}

// publish delivers a snapshot without blocking; a slow or absent consumer
// drops updates rather than stalling recognition.
func (b *Bridge) publish(snap Snapshot) {
	select {
	case b.notify <- snap:
	default:
	}
}
