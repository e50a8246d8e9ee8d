package pipeline

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestCaptionLines(t *testing.T) {
	tests := []struct {
		name  string
		signs []string
		want  []string
	}{
		{"empty", nil, nil},
		{"one line", []string{"hello", "world"}, []string{"hello world"}},
		{
			"wraps between words",
			[]string{"thank you", "grandmother", "breakfast", "afternoon", "yesterday"},
			[]string{"thank you grandmother breakfast", "afternoon yesterday"},
		},
		{
			"last five signs",
			[]string{"old", "a", "b", "c", "d", "e"},
			[]string{"a b c d e"},
		},
	}
	for _, tt := range tests {
		if got := captionLines(tt.signs); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: captionLines() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestCaptionLines_SplitsOnRunes(t *testing.T) {
	word := strings.Repeat("ệ", captionChars+5)
	got := captionLines([]string{word})
	want := []string{strings.Repeat("ệ", captionChars), strings.Repeat("ệ", 5)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("captionLines() = %q, want %q", got, want)
	}
}

func TestCaptionLines_CapsLastLine(t *testing.T) {
	got := captionLines([]string{strings.Repeat("ă", 3*captionChars), "more"})
	if len(got) != captionRows {
		t.Fatalf("got %d lines, want %d", len(got), captionRows)
	}
	for i, line := range got {
		if !utf8.ValidString(line) {
			t.Errorf("line %d is not valid UTF-8: %q", i, line)
		}
		if n := utf8.RuneCountInString(line); n > captionChars {
			t.Errorf("line %d has %d runes, want at most %d", i, n, captionChars)
		}
	}
	if !strings.HasSuffix(got[captionRows-1], ellipsis) {
		t.Errorf("last line %q does not mark the cut", got[captionRows-1])
	}
}
