package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
)

// ErrUnknownIndex is returned for a class index the vocabulary lacks.
var ErrUnknownIndex = errors.New("classifier: class index not in vocabulary")

// Vocabulary maps class indices to sign labels. It is immutable once loaded.
type Vocabulary struct {
	labels map[int]string
}

// LoadVocabulary reads a label map file such as asl_label2sign.json.
func LoadVocabulary(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	defer f.Close()
	return ParseVocabulary(f)
}

// ParseVocabulary decodes a JSON object of stringified index to label,
// e.g. {"0": "TV", "1": "after"}.
func ParseVocabulary(r io.Reader) (*Vocabulary, error) {
	var raw map[string]string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode vocabulary: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("vocabulary is empty")
	}

	labels := make(map[int]string, len(raw))
	for k, v := range raw {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("vocabulary key %q is not a class index", k)
		}
		labels[i] = v
	}
	return &Vocabulary{labels: labels}, nil
}

// NewVocabulary builds a vocabulary from labels in index order.
func NewVocabulary(labels ...string) *Vocabulary {
	m := make(map[int]string, len(labels))
	for i, l := range labels {
		m[i] = l
	}
	return &Vocabulary{labels: m}
}

// Label returns the label of class i.
func (v *Vocabulary) Label(i int) (string, error) {
	l, ok := v.labels[i]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownIndex, i)
	}
	return l, nil
}

// Len returns the number of classes.
func (v *Vocabulary) Len() int { return len(v.labels) }

// Labels returns every label ordered by class index.
func (v *Vocabulary) Labels() []string {
	idx := make([]int, 0, len(v.labels))
	for i := range v.labels {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]string, len(idx))
	for j, i := range idx {
		out[j] = v.labels[i]
	}
	return out
}
