package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facetrack/internal/config"
	"github.com/kozaktomas/facetrack/internal/detector"
	"github.com/kozaktomas/facetrack/internal/encoder"
	"github.com/kozaktomas/facetrack/internal/events"
	"github.com/kozaktomas/facetrack/internal/registry"
	"github.com/kozaktomas/facetrack/internal/sample"
	"github.com/kozaktomas/facetrack/internal/tracker"
)

// loadEncoder opens the configured model. Errors wrap encoder.ErrModelLoad.
func loadEncoder(ctx context.Context, cfg *config.Config) (*encoder.Encoder, error) {
	return encoder.Load(ctx, encoder.Config{
		Backend:   cfg.Encoder.Backend,
		ModelPath: cfg.Encoder.ModelPath,
		ONNX: encoder.ONNXConfig{
			LibraryPath: cfg.Encoder.LibraryPath,
			InputName:   cfg.Encoder.InputName,
			OutputName:  cfg.Encoder.OutputName,
		},
		URL:     cfg.Encoder.URL,
		Timeout: cfg.Encoder.Timeout,
	}, encoder.Options{
		InputSize:  cfg.Tracker.InputSize,
		OutputSize: cfg.Tracker.OutputSize,
		ImageMean:  float32(cfg.Tracker.ImageMean),
		ImageStd:   float32(cfg.Tracker.ImageStd),
	})
}

// newTracker wires the detector, registry and pipeline around enc.
// A nil sink disables forwarding.
func newTracker(cfg *config.Config, enc tracker.Encoder, sink events.Sink) *tracker.Tracker {
	det := detector.NewClient(cfg.Detector.URL, detector.ClientOptions{
		MinScore:     cfg.Detector.MinScore,
		IoUThreshold: cfg.Detector.IoUThreshold,
		Timeout:      cfg.Detector.Timeout,
	})

	reg := registry.New(registry.Options{
		Dimension:      cfg.Tracker.OutputSize,
		HNSWMinEntries: cfg.Registry.HNSWMinEntries,
		HNSWCandidates: cfg.Registry.HNSWCandidates,
	})

	return tracker.New(det, sample.NewPipeline(cfg.Tracker.InputSize), enc, reg, sink, tracker.Options{
		MatchThreshold:   cfg.Tracker.MatchThreshold,
		MinFrameInterval: cfg.Tracker.MinFrameInterval,
		FrameTimeout:     cfg.Tracker.FrameTimeout,
		SinkQueueSize:    cfg.Sink.QueueSize,
		SinkTimeout:      cfg.Sink.Timeout,
	})
}

// describeBackends prints the model contract and which optional
// integrations are active.
func describeBackends(cfg *config.Config, enc *encoder.Encoder) {
	opts := enc.Options()
	fmt.Printf("Face model: %s backend, %dx%d input, %d-dim embeddings\n",
		cfg.Encoder.Backend, opts.InputSize, opts.InputSize, opts.OutputSize)
	if cfg.EventAPI.URL != "" {
		fmt.Printf("Forwarding events to %s\n", cfg.EventAPI.URL)
	} else {
		fmt.Println("EVENT_API_URL not set, forwarded events are only logged")
	}
	if cfg.Detector.URL != "" {
		fmt.Printf("Using face detector at %s\n", cfg.Detector.URL)
	}
}
