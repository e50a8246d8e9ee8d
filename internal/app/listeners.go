package app

import (
	"sync"

	"github.com/silenttalk/signlens/internal/session"
	"github.com/silenttalk/signlens/internal/stream"
)

// Listeners fans session events out to every registered listener, in
// registration order.
type Listeners struct {
	mu  sync.RWMutex
	all []session.Listener
}

// Add registers l.
func (ls *Listeners) Add(l session.Listener) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.all = append(ls.all, l)
}

func (ls *Listeners) snapshot() []session.Listener {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return append([]session.Listener(nil), ls.all...)
}

func (ls *Listeners) SignDetected(sign string, signs []string) {
	for _, l := range ls.snapshot() {
		l.SignDetected(sign, signs)
	}
}

func (ls *Listeners) StateChanged(s session.Snapshot) {
	for _, l := range ls.snapshot() {
		l.StateChanged(s)
	}
}

// clearOnIdle drops the last published frame once no stream is running,
// so new viewers get the placeholder instead of a frozen image.
type clearOnIdle struct {
	frames *stream.Broadcaster
}

func (c clearOnIdle) SignDetected(string, []string) {}

func (c clearOnIdle) StateChanged(s session.Snapshot) {
	if !s.Streaming {
		c.frames.Clear()
	}
}
