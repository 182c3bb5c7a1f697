package tracker

import (
	"context"
	"errors"

	"github.com/kozaktomas/facetrack/internal/sample"
)

// ErrNotRunning is returned by Submit when tracking is stopped.
var ErrNotRunning = errors.New("tracking is not running")

// Start launches the frame worker. Starting a running tracker is a no-op.
func (t *Tracker) Start(ctx context.Context) {
	t.runMu.Lock()
	defer t.runMu.Unlock()

	if t.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.slot = make(chan sample.Frame, 1)

	go t.run(ctx, t.slot, t.done)
}

func (t *Tracker) run(ctx context.Context, slot <-chan sample.Frame, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-slot:
			if !t.processSubmitted(ctx, frame) {
				return
			}
		}
	}
}

// processSubmitted classifies and emits one worker frame. It returns false
// when the worker was stopped mid-frame; that result is discarded.
func (t *Tracker) processSubmitted(ctx context.Context, frame sample.Frame) bool {
	t.frameMu.Lock()
	defer t.frameMu.Unlock()

	ev := t.classify(ctx, frame)
	if ctx.Err() != nil {
		return false
	}
	t.emit(ev)
	return true
}

// Submit hands frame to the worker. Only the latest pending frame is kept:
// a frame still waiting when a new one arrives is dropped. Frames arriving
// within MinFrameInterval of the previous accepted frame are skipped and
// Submit returns false.
func (t *Tracker) Submit(frame sample.Frame) (bool, error) {
	t.runMu.Lock()
	defer t.runMu.Unlock()

	if t.cancel == nil {
		return false, ErrNotRunning
	}
	t.submitted.Add(1)

	if !t.limiter.Allow() {
		t.throttled.Add(1)
		return false, nil
	}

	select {
	case t.slot <- frame:
		return true, nil
	default:
	}

	select {
	case <-t.slot:
		t.replaced.Add(1)
	default:
	}
	select {
	case t.slot <- frame:
	default:
	}
	return true, nil
}

// Running reports whether the frame worker is active.
func (t *Tracker) Running() bool {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	return t.cancel != nil
}

// Stop stops the frame worker and waits for it to exit. The local face list
// is cleared; the registry keeps its enrollments.
func (t *Tracker) Stop() {
	t.runMu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done, t.slot = nil, nil, nil
	t.runMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	t.facesMu.Lock()
	t.faces = nil
	t.facesMu.Unlock()
}
