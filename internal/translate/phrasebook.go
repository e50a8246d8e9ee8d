package translate

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoPhrase is returned by a PhraseLookup without an entry.
var ErrNoPhrase = errors.New("translate: phrase not found")

// PhraseLookup finds a fixed translation and returns an error when there
// is no entry.
type PhraseLookup interface {
	Lookup(ctx context.Context, english string) (string, error)
}

// Phrasebook translates by exact (case-insensitive) lookup and falls back to
// a generic marker for unknown phrases.
type Phrasebook struct {
	lookup PhraseLookup
	isMiss func(error) bool
}

// NewPhrasebook wraps lookup. isMiss classifies lookup errors meaning "no
// entry"; nil means errors.Is(err, ErrNoPhrase).
func NewPhrasebook(lookup PhraseLookup, isMiss func(error) bool) *Phrasebook {
	if isMiss == nil {
		isMiss = func(err error) bool { return errors.Is(err, ErrNoPhrase) }
	}
	return &Phrasebook{lookup: lookup, isMiss: isMiss}
}

func (p *Phrasebook) Translate(ctx context.Context, texts []string) ([]string, error) {
	out := make([]string, len(texts))
	for i, t := range texts {
		vi, err := p.lookup.Lookup(ctx, t)
		switch {
		case err == nil:
			out[i] = vi
		case p.isMiss(err):
			out[i] = Generic(t)
		default:
			return nil, err
		}
	}
	return out, nil
}

// Known returns the fixed translation of text and whether one exists.
func (p *Phrasebook) Known(ctx context.Context, text string) (string, bool) {
	vi, err := p.lookup.Lookup(ctx, text)
	return vi, err == nil
}

// Generic is the marker used for text the phrasebook does not know.
func Generic(text string) string {
	return fmt.Sprintf("[%s - Translated to vi]", text)
}

// MapLookup is an in-memory PhraseLookup.
type MapLookup map[string]string

func (m MapLookup) Lookup(_ context.Context, english string) (string, error) {
	if vi, ok := m[english]; ok {
		return vi, nil
	}
	return "", ErrNoPhrase
}
