// Package translate turns detected English sign sentences into Vietnamese.
package translate

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Degraded is shown instead of a translation when every backend failed.
const Degraded = "Lỗi dịch"

// Language codes sent to the seq2seq model.
const (
	SourceLang = "en_XX"
	TargetLang = "vi_VN"
)

// ErrEmptyResponse is returned when a backend answers with fewer texts than asked.
var ErrEmptyResponse = errors.New("translate: backend returned no translation")

// Translator translates a batch of English texts, one output per input.
type Translator interface {
	Translate(ctx context.Context, texts []string) ([]string, error)
}

// Func adapts a plain function to Translator.
type Func func(ctx context.Context, texts []string) ([]string, error)

func (f Func) Translate(ctx context.Context, texts []string) ([]string, error) {
	return f(ctx, texts)
}

// Sentence translates a single sentence. An empty sentence translates to an
// empty string without calling t.
func Sentence(ctx context.Context, t Translator, sentence string) (string, error) {
	if strings.TrimSpace(sentence) == "" {
		return "", nil
	}
	out, err := t.Translate(ctx, []string{sentence})
	if err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", ErrEmptyResponse
	}
	return out[0], nil
}

// Observed reports the duration and outcome of every call to fn.
func Observed(next Translator, fn func(d time.Duration, err error)) Translator {
	return Func(func(ctx context.Context, texts []string) ([]string, error) {
		start := time.Now()
		out, err := next.Translate(ctx, texts)
		fn(time.Since(start), err)
		return out, err
	})
}

func checkCount(in, out []string) error {
	if len(out) < len(in) {
		return ErrEmptyResponse
	}
	return nil
}
