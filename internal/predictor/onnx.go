package predictor

import (
	"fmt"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/shadiayoub/okx-bot/internal/model"
)

var ortOnce sync.Once

// initORT points the runtime at the shared library and initializes the
// environment once per process.
func initORT() {
	ortOnce.Do(func() {
		libPath := "/usr/lib/libonnxruntime.so"
		switch runtime.GOOS {
		case "windows":
			libPath = "onnxruntime.dll"
		case "darwin":
			libPath = "libonnxruntime.dylib"
		}
		ort.SetSharedLibraryPath(libPath)
		_ = ort.InitializeEnvironment()
	})
}

// ONNXModel runs a single exported artifact. The session owns fixed
// input/output tensors, so Predict must not be called concurrently; the
// registry hands each symbol its own instance.
type ONNXModel struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	version string
}

// LoadONNXModel opens an artifact expecting a [1, FeatureCount] float32
// input named "input" and a [1, 2] output named "output" holding
// (value, confidence).
func LoadONNXModel(path, version string) (*ONNXModel, error) {
	initORT()

	inputShape := ort.NewShape(1, FeatureCount)
	inputTensor, err := ort.NewTensor(inputShape, make([]float32, FeatureCount))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 2))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(path,
		[]string{"input"}, []string{"output"},
		[]ort.Value{inputTensor}, []ort.Value{outputTensor}, nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create session for %s: %w", path, err)
	}

	return &ONNXModel{
		session: session,
		input:   inputTensor,
		output:  outputTensor,
		version: version,
	}, nil
}

// Predict runs inference over one feature vector.
func (m *ONNXModel) Predict(features []float32) (model.Prediction, error) {
	if len(features) != FeatureCount {
		return model.Prediction{}, &model.FeatureMismatchError{Want: FeatureCount, Got: len(features)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copy(m.input.GetData(), features)
	if err := m.session.Run(); err != nil {
		return model.Prediction{}, fmt.Errorf("inference failed: %w", err)
	}

	out := m.output.GetData()
	return model.Prediction{
		Value:        clamp(float64(out[0]), -1, 1),
		Confidence:   clamp(float64(out[1]), 0, 1),
		ModelVersion: m.version,
	}, nil
}

func (m *ONNXModel) Version() string { return m.version }

// Close releases the session and its tensors.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
	if m.input != nil {
		m.input.Destroy()
		m.input = nil
	}
	if m.output != nil {
		m.output.Destroy()
		m.output = nil
	}
	return nil
}
