package pipeline

import (
	"context"

	"github.com/silenttalk/signlens/internal/capture"
)

// collector records predictions of a detection-only run.
type collector struct {
	preds   []Prediction
	skipped int
}

func (c *collector) Opened(capture.Source)  {}
func (c *collector) Frame([]byte)           {}
func (c *collector) Predicted(p Prediction) { c.preds = append(c.preds, p) }
func (c *collector) Skipped(*StageError)    { c.skipped++ }

// Collect runs l over its whole source with detection on and without
// annotation, returning every raw prediction in frame order.
func Collect(ctx context.Context, l *Loop) ([]Prediction, error) {
	run := *l
	run.Config.Annotate = false
	run.Config.Pace = false

	c := &collector{}
	err := run.Run(ctx, Control{Detecting: true}, nil, c)
	return c.preds, err
}
