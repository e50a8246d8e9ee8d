package landmark

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// idleTimeout stops the Python process after a period without frames.
const idleTimeout = 30 * time.Second

// HolisticExtractor implements Extractor using a Python MediaPipe Holistic subprocess.
//
// Protocol: each request is a 4-byte big-endian length followed by a JPEG.
// Each response is one JSON line with face, left_hand, pose and right_hand
// arrays of [x, y, z] triples, or null for a part that was not detected.
type HolisticExtractor struct {
	config    Config
	script    string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// NewHolisticExtractor creates a new extractor.
// The Python process is started lazily on first extraction.
func NewHolisticExtractor(config Config) (*HolisticExtractor, error) {
	script := findScript(config.Script)
	if script == "" {
		return nil, fmt.Errorf("holistic service %q not found", config.Script)
	}

	return &HolisticExtractor{
		config: config,
		script: script,
	}, nil
}

// Extract sends one frame to the service and decodes its landmarks.
func (e *HolisticExtractor) Extract(frame *gocv.Mat) (Frame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureStarted(); err != nil {
		return NewFrame(), err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return NewFrame(), fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := e.stdin.Write(length); err != nil {
		e.kill()
		return NewFrame(), fmt.Errorf("write length: %w", err)
	}
	if _, err := e.stdin.Write(data); err != nil {
		e.kill()
		return NewFrame(), fmt.Errorf("write data: %w", err)
	}

	line, err := e.stdout.ReadBytes('\n')
	if err != nil {
		e.kill()
		return NewFrame(), fmt.Errorf("read response: %w", err)
	}

	var resp holisticResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return NewFrame(), fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return NewFrame(), fmt.Errorf("holistic service: %s", resp.Error)
	}

	e.resetIdleTimer()

	return resp.frame(), nil
}

// Close shuts down the Python process.
func (e *HolisticExtractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shutdown()
}

func (e *HolisticExtractor) ensureStarted() error {
	if e.started {
		return nil
	}

	python := e.config.Python
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	e.cmd = exec.Command(python, e.script,
		"--min-detection-confidence", strconv.FormatFloat(e.config.MinDetectionConf, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(e.config.MinTrackingConf, 'f', -1, 64),
	)

	stdin, err := e.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := e.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	e.cmd.Stderr = os.Stderr

	if err := e.cmd.Start(); err != nil {
		return fmt.Errorf("start holistic service: %w", err)
	}

	e.stdin = stdin
	e.stdout = bufio.NewReaderSize(stdout, 256*1024)
	e.started = true

	return nil
}

func (e *HolisticExtractor) shutdown() error {
	if !e.started {
		return nil
	}

	if e.idleTimer != nil {
		e.idleTimer.Stop()
		e.idleTimer = nil
	}

	if e.stdin != nil {
		e.stdin.Close()
	}

	err := e.cmd.Wait()
	e.started = false
	e.cmd = nil
	e.stdin = nil
	e.stdout = nil

	return err
}

// kill drops a process whose pipe is out of sync; the next call restarts it.
func (e *HolisticExtractor) kill() {
	if e.cmd != nil && e.cmd.Process != nil {
		e.cmd.Process.Kill()
	}
	e.shutdown()
}

func (e *HolisticExtractor) resetIdleTimer() {
	if e.idleTimer != nil {
		e.idleTimer.Stop()
	}
	e.idleTimer = time.AfterFunc(idleTimeout, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.shutdown()
	})
}

func findScript(configured string) string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{configured}
	if !filepath.IsAbs(configured) {
		candidates = append(candidates,
			filepath.Join("..", configured),
			filepath.Join(execDir, configured),
		)
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment
// next to the working directory or the executable.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}

// holisticResponse is the JSON line written by the service.
type holisticResponse struct {
	Face      [][3]*float32 `json:"face"`
	LeftHand  [][3]*float32 `json:"left_hand"`
	Pose      [][3]*float32 `json:"pose"`
	RightHand [][3]*float32 `json:"right_hand"`
	Error     string        `json:"error,omitempty"`
}

func (r holisticResponse) frame() Frame {
	f := NewFrame()
	fill(&f, FaceOffset, FacePoints, r.Face)
	fill(&f, LeftHandOffset, HandPoints, r.LeftHand)
	fill(&f, PoseOffset, PosePoints, r.Pose)
	fill(&f, RightHandOffset, HandPoints, r.RightHand)
	return f
}

// fill copies up to n points into f at offset. JSON nulls stay NaN.
func fill(f *Frame, offset, n int, pts [][3]*float32) {
	for i := 0; i < n && i < len(pts); i++ {
		p := missing
		if v := pts[i][0]; v != nil {
			p.X = *v
		}
		if v := pts[i][1]; v != nil {
			p.Y = *v
		}
		if v := pts[i][2]; v != nil {
			p.Z = *v
		}
		f[offset+i] = p
	}
}
