// Package encoder wraps the face embedding model: it turns a prepared
// sample image into a fixed-length embedding vector.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
)

var (
	// ErrModelLoad is returned when the model artifact cannot be loaded.
	// The tracker cannot run without a model, callers treat it as fatal.
	ErrModelLoad = errors.New("failed to load face model")
	// ErrOutputSize is returned when the model produces an embedding of the wrong length.
	ErrOutputSize = errors.New("unexpected embedding size")
	// ErrInputSize is returned for samples that are not InputSize x InputSize.
	ErrInputSize = errors.New("unexpected sample size")
)

// Model runs inference on a normalized HWC tensor.
type Model interface {
	Run(ctx context.Context, input []float32) ([]float32, error)
	Close() error
}

// Options describes the model's tensor contract.
type Options struct {
	InputSize  int
	OutputSize int
	ImageMean  float32
	ImageStd   float32
}

// Encoder serializes access to a Model; the underlying interpreters are not reentrant.
type Encoder struct {
	model Model
	opts  Options
	mu    sync.Mutex
}

// New wraps an already loaded model.
func New(model Model, opts Options) *Encoder {
	return &Encoder{model: model, opts: opts}
}

// Options returns the tensor contract.
func (e *Encoder) Options() Options {
	return e.opts
}

// Encode computes the embedding for a sample of InputSize x InputSize pixels.
func (e *Encoder) Encode(ctx context.Context, sample image.Image) ([]float32, error) {
	tensor, err := NewTensor(sample, e.opts.InputSize, e.opts.ImageMean, e.opts.ImageStd)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	out, err := e.model.Run(ctx, tensor)
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("model inference failed: %w", err)
	}

	if len(out) != e.opts.OutputSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrOutputSize, len(out), e.opts.OutputSize)
	}

	embedding := make([]float32, len(out))
	copy(embedding, out)
	return embedding, nil
}

// Close releases the model.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model.Close()
}
