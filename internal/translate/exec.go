package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ExecTranslator runs a local script per batch. The request JSON
// ({"texts": [...], "num_beams": 5, "src_lang": ..., "tgt_lang": ...}) is
// written to stdin and the script prints {"texts": [...]} or
// {"error": "..."} on stdout.
type ExecTranslator struct {
	command  string
	args     []string
	timeout  time.Duration
	numBeams int
}

// NewExec creates an ExecTranslator running command with args.
func NewExec(timeout time.Duration, numBeams int, command string, args ...string) *ExecTranslator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if numBeams <= 0 {
		numBeams = 5
	}
	return &ExecTranslator{command: command, args: args, timeout: timeout, numBeams: numBeams}
}

type execRequest struct {
	Texts    []string `json:"texts"`
	NumBeams int      `json:"num_beams"`
	SrcLang  string   `json:"src_lang"`
	TgtLang  string   `json:"tgt_lang"`
}

type execResponse struct {
	Texts []string `json:"texts"`
	Error string   `json:"error,omitempty"`
}

// Translate runs the script once for the whole batch.
func (e *ExecTranslator) Translate(ctx context.Context, texts []string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.command, e.args...)
	cmd.WaitDelay = time.Second

	reqJSON, err := json.Marshal(execRequest{
		Texts:    texts,
		NumBeams: e.numBeams,
		SrcLang:  SourceLang,
		TgtLang:  TargetLang,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	cmd.Stdin = bytes.NewReader(reqJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("translator timeout after %s", e.timeout)
	}
	if err != nil {
		if s := stderr.String(); s != "" {
			return nil, fmt.Errorf("translator failed: %w, stderr: %s", err, s)
		}
		return nil, fmt.Errorf("translator failed: %w", err)
	}

	var resp execResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse translator response: %w, stdout: %s", err, stdout.String())
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("translator: %s", resp.Error)
	}
	if err := checkCount(texts, resp.Texts); err != nil {
		return nil, err
	}
	return resp.Texts, nil
}
