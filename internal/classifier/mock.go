package classifier

import (
	"sync"

	"github.com/silenttalk/signlens/internal/landmark"
)

// MockClassifier returns labels from a fixed script, cycling when exhausted.
type MockClassifier struct {
	mu      sync.Mutex
	labels  []string
	next    int
	err     error
	calls   int
	windows []int
}

// NewMockClassifier cycles through labels. With no labels every call
// returns "hello".
func NewMockClassifier(labels ...string) *MockClassifier {
	if len(labels) == 0 {
		labels = []string{"hello"}
	}
	return &MockClassifier{labels: labels}
}

// SetError makes every Classify call fail with err.
func (m *MockClassifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockClassifier) Classify(window []landmark.Frame) (Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.windows = append(m.windows, len(window))
	if m.err != nil {
		return Prediction{}, m.err
	}
	if len(window) == 0 {
		return Prediction{}, ErrEmptyWindow
	}

	i := m.next % len(m.labels)
	m.next++
	return Prediction{Index: i, Label: m.labels[i], Score: 1}, nil
}

// Calls returns how many times Classify ran.
func (m *MockClassifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// WindowSizes returns the window length seen by each call.
func (m *MockClassifier) WindowSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.windows...)
}

func (m *MockClassifier) Close() error { return nil }
