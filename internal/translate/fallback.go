package translate

import (
	"context"
)

// Fallback never fails: when primary errors, each text gets its phrasebook
// translation if one exists, otherwise Degraded. The error goes to OnError.
type Fallback struct {
	Primary    Translator
	Phrasebook *Phrasebook
	OnError    func(err error)
}

func (f *Fallback) Translate(ctx context.Context, texts []string) ([]string, error) {
	out, err := f.Primary.Translate(ctx, texts)
	if err == nil {
		return out, nil
	}
	if f.OnError != nil {
		f.OnError(err)
	}

	out = make([]string, len(texts))
	for i, t := range texts {
		out[i] = Degraded
		if f.Phrasebook != nil {
			if vi, ok := f.Phrasebook.Known(context.WithoutCancel(ctx), t); ok {
				out[i] = vi
			}
		}
	}
	return out, nil
}
