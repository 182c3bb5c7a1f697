// Package tracker classifies camera frames against the enrolled faces and
// emits tracking events.
package tracker

import (
	"context"
	"errors"
	"image"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/facetrack/internal/detector"
	"github.com/kozaktomas/facetrack/internal/events"
	"github.com/kozaktomas/facetrack/internal/facematch"
	"github.com/kozaktomas/facetrack/internal/registry"
	"github.com/kozaktomas/facetrack/internal/sample"
)

// Encoder computes embeddings for prepared samples.
type Encoder interface {
	Encode(ctx context.Context, sample image.Image) ([]float32, error)
}

// Options configures a Tracker.
type Options struct {
	// MatchThreshold is the distance below which the best match is FaceFound.
	MatchThreshold float64
	// MinFrameInterval drops submitted frames arriving sooner than this after
	// the previous accepted frame.
	MinFrameInterval time.Duration
	// FrameTimeout bounds detection and encoding of one frame. Zero means no limit.
	FrameTimeout time.Duration
	// SinkQueueSize and SinkTimeout configure asynchronous sink delivery.
	SinkQueueSize int
	SinkTimeout   time.Duration
	// Now is the clock used for event timestamps and frame limiting.
	Now func() time.Time
}

// Tracker owns the tracking state: the registry, the dedup state, the local
// event stream and the frame worker.
type Tracker struct {
	detector detector.Detector
	pipeline *sample.Pipeline
	encoder  Encoder
	registry *registry.Registry

	stream     *events.Broadcaster
	dispatcher *events.Dispatcher
	dedup      *Dedup
	limiter    *FrameLimiter
	opts       Options

	facesMu sync.RWMutex
	faces   []EnrolledSample

	// frameMu keeps one frame in flight from detection to dedup/forwarding.
	frameMu sync.Mutex

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	slot   chan sample.Frame

	submitted atomic.Int64
	throttled atomic.Int64
	replaced  atomic.Int64
	processed atomic.Int64
	forwarded atomic.Int64
}

// New creates a tracker. A nil sink disables remote forwarding; the local
// event stream is always available.
func New(det detector.Detector, pipeline *sample.Pipeline, enc Encoder, reg *registry.Registry, sink events.Sink, opts Options) *Tracker {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	t := &Tracker{
		detector: det,
		pipeline: pipeline,
		encoder:  enc,
		registry: reg,
		stream:   events.NewBroadcaster(),
		dedup:    NewDedup(),
		limiter:  NewFrameLimiter(opts.MinFrameInterval, opts.Now),
		opts:     opts,
	}
	if sink != nil {
		t.dispatcher = events.NewDispatcher(sink, opts.SinkQueueSize, opts.SinkTimeout)
	}
	return t
}

// Registry returns the tracker's embedding registry.
func (t *Tracker) Registry() *registry.Registry {
	return t.registry
}

// Subscribe returns a channel receiving every classified event and a function
// that unsubscribes and closes it.
func (t *Tracker) Subscribe() (<-chan events.TrackingEvent, func()) {
	ch := t.stream.AddListener()
	return ch, func() { t.stream.RemoveListener(ch) }
}

// ProcessFrame classifies frame, publishes the event locally and forwards it
// to the sink when the dedup policy allows. It waits for any frame the worker
// is processing.
func (t *Tracker) ProcessFrame(ctx context.Context, frame sample.Frame) events.TrackingEvent {
	t.frameMu.Lock()
	defer t.frameMu.Unlock()

	ev := t.classify(ctx, frame)
	t.emit(ev)
	return ev
}

func (t *Tracker) emit(ev events.TrackingEvent) {
	t.processed.Add(1)
	t.stream.Publish(ev)

	if !t.dedup.ShouldForward(ev.Kind) {
		return
	}
	t.forwarded.Add(1)
	if t.dispatcher != nil {
		t.dispatcher.Enqueue(ev)
	}
}

// classify never fails; errors degrade to MovedAway.
func (t *Tracker) classify(ctx context.Context, frame sample.Frame) events.TrackingEvent {
	now := t.opts.Now()

	if frame.Image == nil {
		log.Printf("Tracker: frame without image")
		return events.NewEvent(events.MovedAway, 0, now)
	}

	if t.opts.FrameTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.FrameTimeout)
		defer cancel()
	}

	boxes, err := t.detector.Detect(ctx, frame)
	if err != nil {
		log.Printf("Tracker: face detection failed: %v", err)
		return events.NewEvent(events.MovedAway, 0, now)
	}

	switch len(boxes) {
	case 0:
		return events.NewEvent(events.MovedAway, 0, now)
	case 1:
		return t.classifySingle(ctx, frame, boxes[0], now)
	default:
		return events.NewEvent(events.MultipleSubjects, len(boxes), now)
	}
}

func (t *Tracker) classifySingle(ctx context.Context, frame sample.Frame, box facematch.BoundingBox, now time.Time) events.TrackingEvent {
	ev := events.NewEvent(events.MovedAway, 1, now)

	s, err := t.pipeline.Prepare(frame, box)
	if err != nil {
		log.Printf("Tracker: failed to prepare sample: %v", err)
		return ev
	}

	// Nothing to compare against; skip the encoder.
	if t.registry.Len() == 0 {
		return ev
	}

	embedding, err := t.encoder.Encode(ctx, s)
	if err != nil {
		log.Printf("Tracker: failed to encode sample: %v", err)
		return ev
	}

	nearest, err := t.registry.FindNearest(embedding)
	if err != nil {
		if !errors.Is(err, registry.ErrEmptyRegistry) {
			log.Printf("Tracker: nearest face lookup failed: %v", err)
		}
		return ev
	}

	ev.Identifier = nearest.Best.Identifier
	ev.Distance = nearest.Best.Distance
	if nearest.Best.Distance < t.opts.MatchThreshold {
		ev.Kind = events.FaceFound
	} else {
		ev.Kind = events.UnknownSubject
		ev.Embedding = embedding
	}
	return ev
}

// Stats is a snapshot of tracker counters.
type Stats struct {
	Running       bool                    `json:"running"`
	Enrolled      int                     `json:"enrolled"`
	Submitted     int64                   `json:"submitted"`
	Throttled     int64                   `json:"throttled"`
	Replaced      int64                   `json:"replaced"`
	Processed     int64                   `json:"processed"`
	Forwarded     int64                   `json:"forwarded"`
	LastForwarded events.Kind             `json:"last_forwarded"`
	Listeners     int                     `json:"listeners"`
	Sink          *events.DispatcherStats `json:"sink,omitempty"`
}

// Stats returns the current counters.
func (t *Tracker) Stats() Stats {
	s := Stats{
		Running:       t.Running(),
		Enrolled:      t.registry.Len(),
		Submitted:     t.submitted.Load(),
		Throttled:     t.throttled.Load(),
		Replaced:      t.replaced.Load(),
		Processed:     t.processed.Load(),
		Forwarded:     t.forwarded.Load(),
		LastForwarded: t.dedup.Last(),
		Listeners:     t.stream.ListenerCount(),
	}
	if t.dispatcher != nil {
		ds := t.dispatcher.Stats()
		s.Sink = &ds
	}
	return s
}

// Close stops tracking, flushes the sink queue and closes the event stream.
func (t *Tracker) Close(ctx context.Context) error {
	t.Stop()
	var err error
	if t.dispatcher != nil {
		err = t.dispatcher.Close(ctx)
	}
	t.stream.Close()
	return err
}
