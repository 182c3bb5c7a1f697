package tracker

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/facetrack/internal/detector"
	"github.com/kozaktomas/facetrack/internal/events"
	"github.com/kozaktomas/facetrack/internal/facematch"
	"github.com/kozaktomas/facetrack/internal/registry"
	"github.com/kozaktomas/facetrack/internal/sample"
)

var (
	red   = color.RGBA{255, 0, 0, 255}
	blue  = color.RGBA{0, 0, 255, 255}
	whole = facematch.BoundingBox{Left: 0, Top: 0, Width: 16, Height: 16}
)

func solid(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := range 16 {
		for x := range 16 {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// colorEncoder embeds a sample as its mean colour scaled to [0, 2].
type colorEncoder struct {
	err error
}

func (e colorEncoder) Encode(_ context.Context, img image.Image) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	var r, g, b float64
	bounds := img.Bounds()
	n := float64(bounds.Dx() * bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			r += float64(c.R)
			g += float64(c.G)
			b += float64(c.B)
		}
	}
	scale := 2 / (255 * n)
	return []float32{float32(r * scale), float32(g * scale), float32(b * scale)}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.TrackingEvent
	err    error
}

func (s *recordingSink) Emit(_ context.Context, ev events.TrackingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSink) kinds() []events.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]events.Kind, len(s.events))
	for i, ev := range s.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTracker(t *testing.T, det detector.Detector, enc Encoder, sink events.Sink, opts Options) *Tracker {
	t.Helper()
	if opts.MatchThreshold == 0 {
		opts.MatchThreshold = 1.1
	}
	if opts.SinkQueueSize == 0 {
		opts.SinkQueueSize = 16
	}
	if enc == nil {
		enc = colorEncoder{}
	}
	reg := registry.New(registry.Options{Dimension: 3})
	tr := New(det, sample.NewPipeline(8), enc, reg, sink, opts)
	t.Cleanup(func() { _ = tr.Close(context.Background()) })
	return tr
}

// boxesByImage reports one face for the images in faces, two for images in
// crowd and none otherwise.
func boxesByImage(faces, crowd []image.Image) detector.Func {
	return func(_ context.Context, frame sample.Frame) ([]facematch.BoundingBox, error) {
		for _, img := range crowd {
			if frame.Image == img {
				return []facematch.BoundingBox{whole, {Left: 8, Top: 0, Width: 8, Height: 8}}, nil
			}
		}
		for _, img := range faces {
			if frame.Image == img {
				return []facematch.BoundingBox{whole}, nil
			}
		}
		return nil, nil
	}
}

func TestProcessFrameClassification(t *testing.T) {
	alice := solid(red)
	stranger := solid(blue)
	crowd := solid(red)
	empty := solid(red)

	tr := newTestTracker(t, boxesByImage([]image.Image{alice, stranger}, []image.Image{crowd}), nil, nil, Options{})
	ctx := context.Background()

	// Empty registry: a single face is still MovedAway.
	if ev := tr.ProcessFrame(ctx, sample.Frame{Image: alice}); ev.Kind != events.MovedAway {
		t.Errorf("empty registry kind = %s, want MOVED_AWAY", ev.Kind)
	}

	if _, err := tr.AddFace(ctx, "alice", alice); err != nil {
		t.Fatalf("AddFace() error = %v", err)
	}

	tests := []struct {
		name      string
		img       image.Image
		wantKind  events.Kind
		wantFaces int
	}{
		{"no faces", empty, events.MovedAway, 0},
		{"two faces", crowd, events.MultipleSubjects, 2},
		{"enrolled face", alice, events.FaceFound, 1},
		{"stranger", stranger, events.UnknownSubject, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := tr.ProcessFrame(ctx, sample.Frame{Image: tt.img})
			if ev.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", ev.Kind, tt.wantKind)
			}
			if ev.Faces != tt.wantFaces {
				t.Errorf("faces = %d, want %d", ev.Faces, tt.wantFaces)
			}
			if ev.ID == "" {
				t.Error("event without ID")
			}
		})
	}
}

func TestEnrollThenClassifySameImage(t *testing.T) {
	img := solid(red)
	tr := newTestTracker(t, detector.Static{whole}, nil, nil, Options{})

	if _, err := tr.AddFace(context.Background(), "alice", img); err != nil {
		t.Fatal(err)
	}
	ev := tr.ProcessFrame(context.Background(), sample.Frame{Image: img})
	if ev.Kind != events.FaceFound || ev.Identifier != "alice" || ev.Distance != 0 {
		t.Errorf("event = %+v, want FaceFound alice at distance 0", ev)
	}
}

func TestUnknownSubjectCarriesEmbedding(t *testing.T) {
	tr := newTestTracker(t, detector.Static{whole}, nil, nil, Options{})
	if _, err := tr.AddFace(context.Background(), "alice", solid(red)); err != nil {
		t.Fatal(err)
	}

	ev := tr.ProcessFrame(context.Background(), sample.Frame{Image: solid(blue)})
	if ev.Kind != events.UnknownSubject {
		t.Fatalf("kind = %s, want UNKNOWN_SUBJECT", ev.Kind)
	}
	if len(ev.Embedding) != 3 || ev.Identifier != "alice" || ev.Distance < 1.1 {
		t.Errorf("event = %+v", ev)
	}
}

func TestThresholdIsStrict(t *testing.T) {
	// red vs black differs by 2 in the red channel only.
	black := color.RGBA{0, 0, 0, 255}
	tests := []struct {
		threshold float64
		want      events.Kind
	}{
		{2.0, events.UnknownSubject},
		{2.0001, events.FaceFound},
	}

	for _, tt := range tests {
		tr := newTestTracker(t, detector.Static{whole}, nil, nil, Options{MatchThreshold: tt.threshold})
		if _, err := tr.AddFace(context.Background(), "alice", solid(red)); err != nil {
			t.Fatal(err)
		}
		ev := tr.ProcessFrame(context.Background(), sample.Frame{Image: solid(black)})
		if ev.Kind != tt.want {
			t.Errorf("threshold %v: kind = %s (distance %v), want %s", tt.threshold, ev.Kind, ev.Distance, tt.want)
		}
	}
}

func TestFailuresDegradeToMovedAway(t *testing.T) {
	ctx := context.Background()

	failingDetector := detector.Func(func(context.Context, sample.Frame) ([]facematch.BoundingBox, error) {
		return nil, errors.New("detector offline")
	})
	badBox := detector.Static{{Left: 0, Top: 0, Width: 0, Height: 10}}

	tests := []struct {
		name  string
		det   detector.Detector
		enc   Encoder
		frame sample.Frame
	}{
		{"detector error", failingDetector, nil, sample.Frame{Image: solid(red)}},
		{"invalid box", badBox, nil, sample.Frame{Image: solid(red)}},
		{"encoder error", detector.Static{whole}, colorEncoder{err: errors.New("oom")}, sample.Frame{Image: solid(red)}},
		{"missing image", detector.Static{whole}, nil, sample.Frame{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTracker(t, tt.det, tt.enc, nil, Options{})
			_ = tr.Registry().Enroll("alice", []float32{2, 0, 0})

			ev := tr.ProcessFrame(ctx, tt.frame)
			if ev.Kind != events.MovedAway {
				t.Errorf("kind = %s, want MOVED_AWAY", ev.Kind)
			}
			if tr.Registry().Len() != 1 {
				t.Errorf("registry changed, Len() = %d", tr.Registry().Len())
			}
		})
	}
}

func TestDedupForwarding(t *testing.T) {
	stranger := solid(blue)
	alice := solid(red)
	empty := solid(color.RGBA{1, 1, 1, 255})
	crowd := solid(color.RGBA{2, 2, 2, 255})

	sink := &recordingSink{}
	tr := newTestTracker(t, boxesByImage([]image.Image{alice, stranger}, []image.Image{crowd}), nil, sink, Options{})
	if _, err := tr.AddFace(context.Background(), "alice", alice); err != nil {
		t.Fatal(err)
	}

	sequence := []*image.RGBA{stranger, stranger, empty, empty, alice, alice, crowd, alice, crowd, empty}
	for _, img := range sequence {
		tr.ProcessFrame(context.Background(), sample.Frame{Image: img})
	}
	if err := tr.Close(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []events.Kind{events.UnknownSubject, events.MovedAway, events.MultipleSubjects, events.MovedAway}
	got := sink.kinds()
	if len(got) != len(want) {
		t.Fatalf("forwarded %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("forwarded[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

// FaceFound is never forwarded, even as the very first event.
func TestFaceFoundNeverForwarded(t *testing.T) {
	img := solid(red)
	sink := &recordingSink{}
	tr := newTestTracker(t, detector.Static{whole}, nil, sink, Options{})
	if _, err := tr.AddFace(context.Background(), "alice", img); err != nil {
		t.Fatal(err)
	}

	for range 5 {
		if ev := tr.ProcessFrame(context.Background(), sample.Frame{Image: img}); ev.Kind != events.FaceFound {
			t.Fatalf("kind = %s, want FACE_FOUND", ev.Kind)
		}
	}
	_ = tr.Close(context.Background())

	if got := sink.kinds(); len(got) != 0 {
		t.Errorf("forwarded %v, want nothing", got)
	}
}

func TestSinkErrorsDoNotRollBackDedup(t *testing.T) {
	sink := &recordingSink{err: errors.New("collector down")}
	tr := newTestTracker(t, detector.Static{}, nil, sink, Options{})

	for range 3 {
		tr.ProcessFrame(context.Background(), sample.Frame{Image: solid(red)})
	}
	_ = tr.Close(context.Background())

	if got := sink.kinds(); len(got) != 1 {
		t.Errorf("sink saw %v, want a single MOVED_AWAY", got)
	}
	if tr.dedup.Last() != events.MovedAway {
		t.Errorf("dedup last = %s, want MOVED_AWAY", tr.dedup.Last())
	}
	if s := tr.Stats(); s.Sink == nil || s.Sink.Failed != 1 {
		t.Errorf("Stats().Sink = %+v, want one failure", s.Sink)
	}
}

func TestLocalStreamReceivesEveryEvent(t *testing.T) {
	img := solid(red)
	tr := newTestTracker(t, detector.Static{whole}, nil, &recordingSink{}, Options{})
	if _, err := tr.AddFace(context.Background(), "alice", img); err != nil {
		t.Fatal(err)
	}

	ch, unsubscribe := tr.Subscribe()
	defer unsubscribe()

	for range 3 {
		tr.ProcessFrame(context.Background(), sample.Frame{Image: img})
	}

	for i := range 3 {
		select {
		case ev := <-ch:
			if ev.Kind != events.FaceFound {
				t.Errorf("event %d kind = %s, want FACE_FOUND", i, ev.Kind)
			}
		case <-time.After(time.Second):
			t.Fatalf("event %d not received", i)
		}
	}
}

func TestDedup(t *testing.T) {
	d := NewDedup()
	if d.Last() != events.FaceFound {
		t.Fatalf("initial Last() = %s, want FACE_FOUND", d.Last())
	}

	tests := []struct {
		kind events.Kind
		want bool
	}{
		{events.UnknownSubject, true},
		{events.UnknownSubject, false},
		{events.MovedAway, true},
		{events.MovedAway, false},
		{events.FaceFound, false},
		{events.MovedAway, false},
		{events.MultipleSubjects, true},
		{events.FaceFound, false},
		{events.UnknownSubject, true},
	}
	for i, tt := range tests {
		if got := d.ShouldForward(tt.kind); got != tt.want {
			t.Errorf("step %d ShouldForward(%s) = %v, want %v", i, tt.kind, got, tt.want)
		}
	}
}

func TestFrameLimiter(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	l := NewFrameLimiter(10*time.Millisecond, clock.Now)

	steps := []struct {
		advance time.Duration
		want    bool
	}{
		{0, true},
		{5 * time.Millisecond, false},
		{4 * time.Millisecond, false},
		{1 * time.Millisecond, true},
		{10 * time.Millisecond, true},
		{0, false},
	}
	for i, s := range steps {
		clock.Advance(s.advance)
		if got := l.Allow(); got != s.want {
			t.Errorf("step %d Allow() = %v, want %v", i, got, s.want)
		}
	}

	unlimited := NewFrameLimiter(0, clock.Now)
	for range 3 {
		if !unlimited.Allow() {
			t.Error("zero interval limiter rejected a frame")
		}
	}
}

type countingEncoder struct {
	mu    sync.Mutex
	calls int
}

func (e *countingEncoder) Encode(ctx context.Context, img image.Image) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	return colorEncoder{}.Encode(ctx, img)
}

func TestEmptyRegistrySkipsEncoderAfterPipeline(t *testing.T) {
	ctx := context.Background()
	enc := &countingEncoder{}

	tr := newTestTracker(t, detector.Static{whole}, enc, nil, Options{})
	if ev := tr.ProcessFrame(ctx, sample.Frame{Image: solid(red)}); ev.Kind != events.MovedAway || ev.Faces != 1 {
		t.Errorf("event = %+v, want MOVED_AWAY with one face", ev)
	}
	if enc.calls != 0 {
		t.Errorf("encoder called %d times with an empty registry", enc.calls)
	}

	// The sample is still prepared, so a bad box fails the same way as with
	// enrollments present.
	bad := newTestTracker(t, detector.Static{{Left: 0, Top: 0, Width: 0, Height: 10}}, enc, nil, Options{})
	if ev := bad.ProcessFrame(ctx, sample.Frame{Image: solid(red)}); ev.Kind != events.MovedAway {
		t.Errorf("kind = %s, want MOVED_AWAY", ev.Kind)
	}
}
