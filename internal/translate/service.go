package translate

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"
)

// stopGrace is how long Close waits after an interrupt before killing.
const stopGrace = 5 * time.Second

// Service runs the seq2seq gRPC server as a child process so the model is
// loaded once and kept in memory between translations.
type Service struct {
	command string
	args    []string

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// NewService prepares command with args. Nothing runs until Start.
func NewService(command string, args ...string) *Service {
	return &Service{command: command, args: args}
}

// ServeArgs are the script arguments that start its gRPC mode on addr.
func ServeArgs(script, addr string, numBeams int) []string {
	return []string{script, "--serve", "--addr", addr, "--num-beams", fmt.Sprint(numBeams)}
}

// Start launches the process. It is an error to start a running service.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil {
		return errors.New("translator service already started")
	}

	cmd := exec.Command(s.command, s.args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start translator service: %w", err)
	}

	done := make(chan struct{})
	s.cmd, s.done = cmd, done
	go func() {
		cmd.Wait()
		close(done)
	}()
	return nil
}

// Exited is closed when the process ends.
func (s *Service) Exited() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Close interrupts the process and kills it if it outlives stopGrace.
func (s *Service) Close() error {
	s.mu.Lock()
	cmd, done := s.cmd, s.done
	s.mu.Unlock()
	if cmd == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	default:
	}

	if runtime.GOOS == "windows" {
		cmd.Process.Kill()
	} else if err := cmd.Process.Signal(os.Interrupt); err != nil {
		cmd.Process.Kill()
	}

	select {
	case <-done:
	case <-time.After(stopGrace):
		cmd.Process.Kill()
		<-done
	}
	return nil
}
