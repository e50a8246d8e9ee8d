// Package tray provides an optional desktop tray menu for the sign
// recognition server.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/silenttalk/signlens/internal/session"
)

// Tray is the system tray menu. It also listens to session events to keep
// its labels current.
type Tray struct {
	onWebcam func(start bool)
	onOpen   func()
	onQuit   func()

	mu        sync.RWMutex
	streaming bool
	lastSign  string

	// Menu items stored for later updates
	menuWebcam   *systray.MenuItem
	menuLastSign *systray.MenuItem
	menuStatus   *systray.MenuItem
}

// New creates a Tray with the webcam stopped.
func New() *Tray {
	return &Tray{}
}

// OnWebcam sets the callback run when the webcam item is clicked. start is
// true when the webcam should be started.
func (t *Tray) OnWebcam(fn func(start bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onWebcam = fn
}

// OnOpen sets the callback run when "Open in Browser" is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback run when Quit is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray. It blocks until Quit, and must run on the main
// goroutine on macOS.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("SignLens")
	systray.SetTooltip("SignLens ASL Recognition")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem("Idle", "Session state")
	t.menuStatus.Disable()
	t.menuLastSign = systray.AddMenuItem(lastSignTitle(t.lastSign), "Last detected sign")
	t.menuLastSign.Disable()
	systray.AddSeparator()
	t.menuWebcam = systray.AddMenuItem(webcamTitle(t.streaming), "Start or stop the webcam")
	t.mu.Unlock()

	menuOpen := systray.AddMenuItem("Open in Browser", "Open the ASL page")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit SignLens")

	go func() {
		for {
			select {
			case <-t.menuWebcam.ClickedCh:
				t.handleWebcam()
			case <-menuOpen.ClickedCh:
				t.mu.RLock()
				fn := t.onOpen
				t.mu.RUnlock()
				if fn != nil {
					fn()
				}
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) handleWebcam() {
	t.mu.RLock()
	start := !t.streaming
	callback := t.onWebcam
	t.mu.RUnlock()

	// Labels follow the session through StateChanged.
	if callback != nil {
		callback(start)
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	systray.Quit()
}

// SignDetected shows the newest sign in the menu.
func (t *Tray) SignDetected(sign string, _ []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSign = sign
	if t.menuLastSign != nil {
		t.menuLastSign.SetTitle(lastSignTitle(sign))
	}
}

// StateChanged updates the status line and the webcam item.
func (t *Tray) StateChanged(s session.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.streaming = s.Streaming
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(statusTitle(s))
	}
	if t.menuWebcam != nil {
		t.menuWebcam.SetTitle(webcamTitle(s.Streaming))
	}
	if len(s.DetectedSigns) == 0 {
		t.lastSign = ""
		if t.menuLastSign != nil {
			t.menuLastSign.SetTitle(lastSignTitle(""))
		}
	}
}

// Streaming reports whether the last known session state had a stream.
func (t *Tray) Streaming() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.streaming
}

// LastSign returns the last sign shown.
func (t *Tray) LastSign() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastSign
}

func lastSignTitle(sign string) string {
	if sign == "" {
		return "Last: none"
	}
	return "Last: " + sign
}

func webcamTitle(streaming bool) string {
	if streaming {
		return "■ Stop"
	}
	return "● Start Webcam"
}

func statusTitle(s session.Snapshot) string {
	switch {
	case s.Detecting && s.Streaming:
		return "Detecting"
	case s.Streaming:
		return "Streaming"
	case s.Detecting:
		return "Detection armed"
	}
	return "Idle"
}
