package classifier

import (
	"math"

	"github.com/silenttalk/signlens/internal/landmark"
)

// Normalize flattens the window to T*543*3 values, standardizes them with
// the mean and population standard deviation of every non-NaN value in the
// whole window, and then replaces NaN with 0.
func Normalize(window []landmark.Frame) []float32 {
	out := make([]float32, 0, len(window)*landmark.RowsPerFrame*3)
	for i := range window {
		out = window[i].Flatten(out)
	}

	mean, std, n := stats(out)
	for i, v := range out {
		if v != v || n == 0 || std == 0 {
			out[i] = 0
			continue
		}
		out[i] = float32((float64(v) - mean) / std)
	}
	return out
}

// stats returns mean, population std and count of the non-NaN values.
func stats(values []float32) (mean, std float64, n int) {
	var sum float64
	for _, v := range values {
		if v != v {
			continue
		}
		sum += float64(v)
		n++
	}
	if n == 0 {
		return 0, 0, 0
	}
	mean = sum / float64(n)

	var sq float64
	for _, v := range values {
		if v != v {
			continue
		}
		d := float64(v) - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(n)), n
}
