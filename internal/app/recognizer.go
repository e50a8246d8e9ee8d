package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/silenttalk/signlens/internal/capture"
	"github.com/silenttalk/signlens/internal/classifier"
	"github.com/silenttalk/signlens/internal/landmark"
	"github.com/silenttalk/signlens/internal/lgr"
	"github.com/silenttalk/signlens/internal/metrics"
	"github.com/silenttalk/signlens/internal/pipeline"
	"github.com/silenttalk/signlens/internal/session"
	"github.com/silenttalk/signlens/internal/store"
)

// Recognizer runs detection over a whole video file outside the live
// session. Results are cached by content hash.
type Recognizer struct {
	Extractor  landmark.Extractor
	Classifier classifier.Classifier
	Loop       pipeline.Config
	Source     func(path string) capture.Source
	Repo       *store.RecognitionRepository
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Recognize returns the signs found in the video at path. A file with the
// same content as an earlier one returns the stored result and cached=true.
func (r *Recognizer) Recognize(ctx context.Context, path, filename string) (*store.Recognition, bool, error) {
	log := r.Logger
	if log == nil {
		log = lgr.Logger
	}

	sum, err := fileSHA256(path)
	if err != nil {
		return nil, false, err
	}

	if r.Repo != nil {
		rec, err := r.Repo.GetBySHA256(ctx, sum)
		if err == nil {
			log.Info("recognition cache hit", slog.String("sha256", sum))
			return rec, true, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, false, fmt.Errorf("recognition cache: %w", err)
		}
	}

	newSource := r.Source
	if newSource == nil {
		newSource = capture.NewFile
	}

	start := time.Now()
	preds, err := pipeline.Collect(ctx, &pipeline.Loop{
		Source:     newSource(path),
		Extractor:  r.Extractor,
		Classifier: r.Classifier,
		Config:     r.Loop,
		Metrics:    r.Metrics,
		Logger:     log.With(slog.String("recognize", filename)),
	})
	if err != nil {
		return nil, false, err
	}
	r.Metrics.ObserveRecognition(time.Since(start))

	signs := []string{}
	for _, p := range preds {
		signs, _ = session.AppendDistinct(signs, p.Label)
	}

	rec := &store.Recognition{
		SHA256:   sum,
		Filename: filename,
		Signs:    signs,
		Sentence: strings.Join(signs, " "),
	}
	if r.Repo != nil {
		if err := r.Repo.Create(ctx, rec); err != nil {
			return nil, false, fmt.Errorf("save recognition: %w", err)
		}
	} else {
		rec.CreatedAt = time.Now()
	}

	log.Info("video recognized",
		slog.String("file", filename),
		slog.Int("predictions", len(preds)),
		slog.Int("signs", len(signs)),
		slog.Duration("took", time.Since(start)),
	)
	return rec, false, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash upload: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
