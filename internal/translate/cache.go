package translate

import (
	"context"
)

// Cache stores finished translations by English text.
type Cache interface {
	Get(ctx context.Context, english string) (string, error)
	Put(ctx context.Context, english, vietnamese string) error
}

// Cached serves repeated sentences from cache and stores fresh results.
// Cache errors never fail a translation.
type Cached struct {
	next  Translator
	cache Cache
}

// NewCached wraps next with cache.
func NewCached(next Translator, cache Cache) *Cached {
	return &Cached{next: next, cache: cache}
}

func (c *Cached) Translate(ctx context.Context, texts []string) ([]string, error) {
	out := make([]string, len(texts))
	var (
		missIdx   []int
		missTexts []string
	)
	for i, t := range texts {
		if vi, err := c.cache.Get(ctx, t); err == nil {
			out[i] = vi
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	fresh, err := c.next.Translate(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if err := checkCount(missTexts, fresh); err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = fresh[j]
		_ = c.cache.Put(ctx, missTexts[j], fresh[j])
	}
	return out, nil
}
