package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mdobak/go-xerrors"
	"gocv.io/x/gocv"

	"github.com/silenttalk/signlens/internal/capture"
	"github.com/silenttalk/signlens/internal/classifier"
	"github.com/silenttalk/signlens/internal/landmark"
	"github.com/silenttalk/signlens/internal/lgr"
	"github.com/silenttalk/signlens/internal/metrics"
)

// Config tunes the frame loop.
type Config struct {
	// SkipFactor classifies only frames whose 1-based index is a multiple of it.
	SkipFactor int
	// WindowFrames is how many sampled frames each classification sees.
	WindowFrames int
	// MaxConsecutiveErrors aborts the loop after that many recoverable
	// failures in a row.
	MaxConsecutiveErrors int
	JPEGQuality          int
	// Annotate draws landmarks and the status band and publishes JPEG frames.
	Annotate bool
	// Pace sleeps between file frames to match the file's frame rate.
	Pace bool
}

// DefaultConfig returns the settings of the live demo.
func DefaultConfig() Config {
	return Config{
		SkipFactor:           6,
		WindowFrames:         1,
		MaxConsecutiveErrors: 5,
		JPEGQuality:          80,
		Annotate:             true,
		Pace:                 true,
	}
}

// Control is the state the session wants the loop to follow. The loop
// applies the most recent value at the start of each iteration.
type Control struct {
	Detecting bool
	// Epoch changes every time detection restarts; predictions carry it so
	// the session can drop results from an earlier run.
	Epoch uint64
	// Signs are the detected signs shown in the caption.
	Signs []string
}

// Prediction is one classification made by the loop.
type Prediction struct {
	classifier.Prediction
	Frame int
	Epoch uint64
}

// Observer receives loop output. Calls happen on the loop goroutine.
type Observer interface {
	Opened(src capture.Source)
	Predicted(p Prediction)
	Frame(jpeg []byte)
	// Skipped reports a recoverable error; the frame was dropped.
	Skipped(err *StageError)
}

// Loop wires one source to the landmark extractor and classifier.
type Loop struct {
	Source     capture.Source
	Extractor  landmark.Extractor
	Classifier classifier.Classifier
	Config     Config
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Run opens the source and processes frames until the source ends
// (returns nil), ctx is cancelled (returns ctx.Err()) or a fatal or
// repeated stage error occurs (returns *StageError). The source is
// closed before Run returns.
func (l *Loop) Run(ctx context.Context, state Control, ctrl <-chan Control, obs Observer) error {
	log := l.Logger
	if log == nil {
		log = lgr.Logger
	}
	cfg := l.normalizedConfig()
	kind := l.Source.Kind()

	if err := l.Source.Open(); err != nil {
		return &StageError{Stage: StageSourceOpen, Source: kind, Err: err}
	}
	defer l.Source.Close()
	obs.Opened(l.Source)

	log.Info("video source opened",
		slog.String("source", l.Source.Name()),
		slog.Float64("fps", l.Source.FPS()),
	)

	window := classifier.NewWindow(cfg.WindowFrames)
	var interval time.Duration
	if cfg.Pace && kind == capture.KindFile && l.Source.FPS() > 0 {
		interval = time.Duration(float64(time.Second) / l.Source.FPS())
	}
	next := time.Now()

	frameIndex := 0
	consecutive := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Apply the latest control, dropping intermediate ones.
		for drained := false; !drained; {
			select {
			case c := <-ctrl:
				if c.Epoch != state.Epoch {
					window.Reset()
				}
				state = c
			default:
				drained = true
			}
		}

		frame, err := l.Source.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrEndOfStream) {
				log.Info("video source ended",
					slog.String("source", l.Source.Name()),
					slog.Int("frames", frameIndex),
				)
				return nil
			}
			return &StageError{Stage: StageFrameDecode, Frame: frameIndex + 1, Source: kind, Err: err}
		}
		frameIndex++
		l.Metrics.FrameRead()

		se := l.step(frame, frameIndex, state, window, cfg, obs)
		frame.Close()

		if se != nil {
			se.Source = kind
			consecutive++
			l.Metrics.StageError(string(se.Stage))
			log.Warn("frame skipped",
				slog.String("stage", string(se.Stage)),
				slog.Int("frame", frameIndex),
				slog.Int("consecutive", consecutive),
				slog.Any("error", xerrors.New(se.Error())),
			)
			obs.Skipped(se)
			if consecutive >= cfg.MaxConsecutiveErrors {
				return se
			}
		} else {
			consecutive = 0
		}

		if interval > 0 {
			next = next.Add(interval)
			if d := time.Until(next); d > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(d):
				}
			} else {
				next = time.Now()
			}
		}
	}
}

// step processes one frame. Landmarks are extracted when the frame is
// displayed or sampled for classification.
func (l *Loop) step(frame *gocv.Mat, idx int, state Control, window *classifier.Window, cfg Config, obs Observer) *StageError {
	sampled := state.Detecting && idx%cfg.SkipFactor == 0
	if !cfg.Annotate && !sampled {
		return nil
	}

	lm, err := l.Extractor.Extract(frame)
	if err != nil {
		return &StageError{Stage: StageLandmark, Frame: idx, Err: err}
	}

	if sampled && lm.HasAny() {
		window.Push(lm)
		pred, err := l.Classifier.Classify(window.Frames())
		l.Metrics.Classified()
		if err != nil {
			return &StageError{Stage: StageInference, Frame: idx, Err: err}
		}
		obs.Predicted(Prediction{Prediction: pred, Frame: idx, Epoch: state.Epoch})
	}

	if !cfg.Annotate {
		return nil
	}

	landmark.Draw(frame, &lm)
	drawStatus(frame, state.Detecting, state.Signs)

	data, err := EncodeJPEG(*frame, cfg.JPEGQuality)
	if err != nil {
		return &StageError{Stage: StageEncode, Frame: idx, Err: err}
	}
	obs.Frame(data)
	l.Metrics.FramePublished()
	return nil
}

func (l *Loop) normalizedConfig() Config {
	cfg := l.Config
	def := DefaultConfig()
	if cfg.SkipFactor < 1 {
		cfg.SkipFactor = def.SkipFactor
	}
	if cfg.WindowFrames < 1 {
		cfg.WindowFrames = def.WindowFrames
	}
	if cfg.MaxConsecutiveErrors < 1 {
		cfg.MaxConsecutiveErrors = def.MaxConsecutiveErrors
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = def.JPEGQuality
	}
	return cfg
}
