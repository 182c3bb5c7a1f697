package encoder

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"
)

// Backend names accepted by Load.
const (
	BackendONNX   = "onnx"
	BackendRemote = "remote"
)

// Config selects and locates the model backend.
type Config struct {
	Backend   string
	ModelPath string
	ONNX      ONNXConfig
	URL       string
	Timeout   time.Duration
}

// Load opens the configured backend once and returns a ready Encoder.
// Every failure wraps ErrModelLoad.
func Load(ctx context.Context, cfg Config, opts Options) (*Encoder, error) {
	var model Model

	switch cfg.Backend {
	case BackendONNX, "":
		f, err := os.Open(cfg.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
		}
		defer f.Close()

		m, err := LoadONNX(f, cfg.ONNX, opts)
		if err != nil {
			return nil, err
		}
		model = m
		log.Printf("Encoder: loaded ONNX model %s (%dx%d -> %d)", cfg.ModelPath, opts.InputSize, opts.InputSize, opts.OutputSize)

	case BackendRemote:
		m := NewRemoteModel(cfg.URL, opts.InputSize, cfg.Timeout)
		if err := m.Ping(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
		}
		model = m
		log.Printf("Encoder: using embedding server %s", m.baseURL)

	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrModelLoad, cfg.Backend)
	}

	return New(model, opts), nil
}
