package session

import (
	"reflect"
	"testing"
)

func TestAppendDistinct(t *testing.T) {
	var signs []string
	for _, s := range []string{"A", "A", "B", "B", "B", "A"} {
		signs, _ = AppendDistinct(signs, s)
	}
	if want := []string{"A", "B", "A"}; !reflect.DeepEqual(signs, want) {
		t.Errorf("signs = %v, want %v", signs, want)
	}

	if _, added := AppendDistinct([]string{"A"}, "A"); added {
		t.Error("repeated sign reported as added")
	}
	if _, added := AppendDistinct(nil, "A"); !added {
		t.Error("first sign not added")
	}
}

func TestRing(t *testing.T) {
	tests := []struct {
		name string
		push []string
		want []string
	}{
		{"empty", nil, []string{}},
		{"partial", []string{"a", "b"}, []string{"a", "b"}},
		{"exactly full", []string{"a", "b", "c"}, []string{"a", "b", "c"}},
		{"wrapped", []string{"a", "b", "c", "d", "e"}, []string{"c", "d", "e"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRing(3)
			for _, s := range tt.push {
				r.Push(s)
			}
			if got := r.Items(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Items() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRing_Reset(t *testing.T) {
	r := NewRing(2)
	r.Push("a")
	r.Push("b")
	r.Push("c")
	r.Reset()
	r.Push("d")
	if got := r.Items(); !reflect.DeepEqual(got, []string{"d"}) {
		t.Errorf("Items() after reset = %v", got)
	}
}

func TestPhase(t *testing.T) {
	tests := []struct {
		phase     Phase
		name      string
		streaming bool
	}{
		{PhaseIdle, "idle", false},
		{PhaseOpening, "opening", true},
		{PhaseStreaming, "streaming", true},
		{PhaseDetecting, "detecting", true},
		{PhaseStopping, "stopping", false},
		{PhaseClosed, "closed", false},
		{Phase(42), "unknown", false},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.name {
			t.Errorf("String() = %q, want %q", got, tt.name)
		}
		if got := tt.phase.Streaming(); got != tt.streaming {
			t.Errorf("%s Streaming() = %v", tt.name, got)
		}
	}
}
