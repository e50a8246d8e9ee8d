package classifier

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/silenttalk/signlens/internal/landmark"
)

const epsilon = 1e-5

func TestArgMax(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct {
		name      string
		in        []float32
		wantIdx   int
		wantValue float32
	}{
		{"empty", nil, -1, 0},
		{"single", []float32{0.3}, 0, 0.3},
		{"middle", []float32{-1, 4, 2}, 1, 4},
		{"negatives", []float32{-3, -1, -2}, 1, -1},
		{"first of ties", []float32{5, 5}, 0, 5},
		{"skips NaN", []float32{nan, 1, nan}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, v := ArgMax(tt.in)
			if idx != tt.wantIdx || v != tt.wantValue {
				t.Errorf("ArgMax(%v) = %d, %v; want %d, %v", tt.in, idx, v, tt.wantIdx, tt.wantValue)
			}
		})
	}
}

func TestWindow(t *testing.T) {
	w := NewWindow(2)
	a, b, c := landmark.ThumbsUpFrame(), landmark.OpenPalmFrame(), landmark.NewFrame()

	w.Push(a)
	if w.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", w.Len())
	}
	w.Push(b)
	w.Push(c)

	frames := w.Frames()
	if len(frames) != 2 {
		t.Fatalf("Len() = %d, want 2", len(frames))
	}
	if frames[0][landmark.RightHandOffset+landmark.MiddleTip] != b[landmark.RightHandOffset+landmark.MiddleTip] {
		t.Error("oldest frame should have been evicted")
	}
	if frames[1].HasAny() {
		t.Error("newest frame should be last")
	}

	w.Reset()
	if w.Len() != 0 {
		t.Errorf("Len() after Reset = %d", w.Len())
	}
}

func TestNewWindow_MinimumSize(t *testing.T) {
	w := NewWindow(0)
	w.Push(landmark.NewFrame())
	w.Push(landmark.NewFrame())
	if w.Len() != 1 {
		t.Errorf("Len() = %d, want 1", w.Len())
	}
}

func TestNormalize_Statistics(t *testing.T) {
	f := landmark.NewFrame()
	// Four values: 1, 2, 3, 4 (mean 2.5, population std sqrt(1.25))
	f[0] = landmark.Point{X: 1, Y: 2, Z: float32(math.NaN())}
	f[1] = landmark.Point{X: 3, Y: 4, Z: float32(math.NaN())}

	out := Normalize([]landmark.Frame{f})
	if len(out) != landmark.RowsPerFrame*3 {
		t.Fatalf("len = %d", len(out))
	}

	std := math.Sqrt(1.25)
	want := []float64{(1 - 2.5) / std, (2 - 2.5) / std, 0, (3 - 2.5) / std, (4 - 2.5) / std, 0}
	for i, w := range want {
		if math.Abs(float64(out[i])-w) > epsilon {
			t.Errorf("out[%d] = %v, want %v", i, out[i], w)
		}
	}
	for i := 6; i < len(out); i++ {
		if out[i] != 0 {
			t.Fatalf("missing value at %d normalized to %v, want 0", i, out[i])
		}
	}
}

func TestNormalize_WholeWindowStats(t *testing.T) {
	a := landmark.NewFrame()
	a[0] = landmark.Point{X: 0, Y: 0, Z: 0}
	b := landmark.NewFrame()
	b[0] = landmark.Point{X: 2, Y: 2, Z: 2}

	out := Normalize([]landmark.Frame{a, b})

	// Mean over both frames is 1 and std is 1, so frame a maps to -1 and b to +1.
	if math.Abs(float64(out[0])+1) > epsilon {
		t.Errorf("frame a value = %v, want -1", out[0])
	}
	off := landmark.RowsPerFrame * 3
	if math.Abs(float64(out[off])-1) > epsilon {
		t.Errorf("frame b value = %v, want 1", out[off])
	}
}

func TestNormalize_Degenerate(t *testing.T) {
	t.Run("all missing", func(t *testing.T) {
		for _, v := range Normalize([]landmark.Frame{landmark.NewFrame()}) {
			if v != 0 {
				t.Fatalf("value = %v, want 0", v)
			}
		}
	})
	t.Run("constant", func(t *testing.T) {
		f := landmark.NewFrame()
		f[3] = landmark.Point{X: 0.5, Y: 0.5, Z: 0.5}
		for _, v := range Normalize([]landmark.Frame{f}) {
			if v != 0 {
				t.Fatalf("value = %v, want 0", v)
			}
		}
	})
}

func TestParseVocabulary(t *testing.T) {
	v, err := ParseVocabulary(strings.NewReader(`{"0": "TV", "1": "after", "2": "airplane"}`))
	if err != nil {
		t.Fatalf("ParseVocabulary() error = %v", err)
	}
	if v.Len() != 3 {
		t.Errorf("Len() = %d", v.Len())
	}
	if l, _ := v.Label(1); l != "after" {
		t.Errorf("Label(1) = %q", l)
	}
	if got := v.Labels(); strings.Join(got, ",") != "TV,after,airplane" {
		t.Errorf("Labels() = %v", got)
	}
	if _, err := v.Label(3); !errors.Is(err, ErrUnknownIndex) {
		t.Errorf("Label(3) error = %v, want ErrUnknownIndex", err)
	}
}

func TestParseVocabulary_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":  `["TV"]`,
		"empty":     `{}`,
		"bad key":   `{"zero": "TV"}`,
		"neg key":   `{"-1": "TV"}`,
		"truncated": `{"0": "TV"`,
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseVocabulary(strings.NewReader(in)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadVocabulary_Missing(t *testing.T) {
	if _, err := LoadVocabulary(t.TempDir() + "/labels.json"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMockClassifier(t *testing.T) {
	m := NewMockClassifier("A", "B")
	window := []landmark.Frame{landmark.ThumbsUpFrame()}

	var got []string
	for i := 0; i < 3; i++ {
		p, err := m.Classify(window)
		if err != nil {
			t.Fatalf("Classify() error = %v", err)
		}
		got = append(got, p.Label)
	}
	if strings.Join(got, "") != "ABA" {
		t.Errorf("labels = %v, want A B A", got)
	}
	if m.Calls() != 3 {
		t.Errorf("Calls() = %d", m.Calls())
	}

	if _, err := m.Classify(nil); !errors.Is(err, ErrEmptyWindow) {
		t.Errorf("empty window error = %v", err)
	}
}

func TestNewONNX_MissingModel(t *testing.T) {
	if _, err := NewONNX(t.TempDir()+"/asl.onnx", NewVocabulary("TV")); err == nil {
		t.Error("expected error for missing model")
	}
}
