package encoder

import (
	"context"
	"fmt"
	"io"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	runtimeOnce sync.Once
	runtimeErr  error
)

// initRuntime initializes the ONNX Runtime environment once per process.
func initRuntime(libraryPath string) error {
	runtimeOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		runtimeErr = ort.InitializeEnvironment()
	})
	return runtimeErr
}

// ONNXConfig names the runtime library and the graph's tensor names.
type ONNXConfig struct {
	LibraryPath string
	InputName   string
	OutputName  string
}

// ONNXModel runs a face embedding network through ONNX Runtime.
// Input shape is [1, size, size, 3] and output shape [1, outputSize].
type ONNXModel struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// LoadONNX reads the model artifact from r and creates an inference session.
func LoadONNX(r io.Reader, cfg ONNXConfig, opts Options) (*ONNXModel, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read model: %v", ErrModelLoad, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: model artifact is empty", ErrModelLoad)
	}

	if err := initRuntime(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("%w: initialize onnx runtime: %v", ErrModelLoad, err)
	}

	size := int64(opts.InputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, size, size, 3))
	if err != nil {
		return nil, fmt.Errorf("%w: create input tensor: %v", ErrModelLoad, err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(opts.OutputSize)))
	if err != nil {
		_ = inputTensor.Destroy()
		return nil, fmt.Errorf("%w: create output tensor: %v", ErrModelLoad, err)
	}

	session, err := ort.NewAdvancedSessionWithONNXData(data,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		nil,
	)
	if err != nil {
		_ = inputTensor.Destroy()
		_ = outputTensor.Destroy()
		return nil, fmt.Errorf("%w: create session: %v", ErrModelLoad, err)
	}

	return &ONNXModel{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Run copies input into the pre-allocated tensor and runs the session.
// The returned slice is only valid until the next call.
func (m *ONNXModel) Run(_ context.Context, input []float32) ([]float32, error) {
	in := m.inputTensor.GetData()
	if len(input) != len(in) {
		return nil, fmt.Errorf("input has %d values, tensor expects %d", len(input), len(in))
	}
	copy(in, input)

	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("run embedding: %w", err)
	}
	return m.outputTensor.GetData(), nil
}

// Close destroys the session and its tensors.
func (m *ONNXModel) Close() error {
	if m.session != nil {
		_ = m.session.Destroy()
	}
	if m.inputTensor != nil {
		_ = m.inputTensor.Destroy()
	}
	if m.outputTensor != nil {
		_ = m.outputTensor.Destroy()
	}
	return nil
}
