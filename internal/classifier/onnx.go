package classifier

import (
	"fmt"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/silenttalk/signlens/internal/landmark"
)

// ONNXClassifier runs the exported sign network through the OpenCV DNN module.
// Input is a [T, 543, 3] float32 blob, output is one row of class logits.
type ONNXClassifier struct {
	mu    sync.Mutex
	net   gocv.Net
	vocab *Vocabulary
	path  string
}

// NewONNX loads the model at path.
func NewONNX(path string, vocab *Vocabulary) (*ONNXClassifier, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("onnx model: %w", err)
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("onnx model %s could not be loaded", path)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("set backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("set target: %w", err)
	}

	return &ONNXClassifier{net: net, vocab: vocab, path: path}, nil
}

// Classify normalizes window and returns the top-1 label.
func (c *ONNXClassifier) Classify(window []landmark.Frame) (Prediction, error) {
	if len(window) == 0 {
		return Prediction{}, ErrEmptyWindow
	}

	blob := gocv.NewMatWithSizes([]int{len(window), landmark.RowsPerFrame, 3}, gocv.MatTypeCV32F)
	defer blob.Close()

	data, err := blob.DataPtrFloat32()
	if err != nil {
		return Prediction{}, fmt.Errorf("input blob: %w", err)
	}
	copy(data, Normalize(window))

	c.mu.Lock()
	c.net.SetInput(blob, "")
	out := c.net.Forward("")
	c.mu.Unlock()
	defer out.Close()

	if out.Empty() {
		return Prediction{}, fmt.Errorf("forward pass returned no output")
	}
	logits, err := out.DataPtrFloat32()
	if err != nil {
		return Prediction{}, fmt.Errorf("read logits: %w", err)
	}

	idx, score := ArgMax(logits)
	label, err := c.vocab.Label(idx)
	if err != nil {
		return Prediction{}, err
	}
	return Prediction{Index: idx, Label: label, Score: score}, nil
}

// Version identifies the loaded model for health reports.
func (c *ONNXClassifier) Version() string { return c.path }

func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.Close()
}
