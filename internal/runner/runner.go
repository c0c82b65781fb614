// Package runner executes external programs with a bounded wait, capturing
// stdout and stderr separately.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/wonny/crmgeek/backend/pkg/logger"
)

// ErrTimeout is returned when a process outlives its deadline
var ErrTimeout = errors.New("process timed out")

// Command describes one invocation
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Env     []string // appended to the parent environment when set
	Stdin   []byte
	Timeout time.Duration // zero uses the runner default
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result is the captured outcome of a finished process
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Diagnostic is the text worth showing an operator: stderr, else stdout
func (r *Result) Diagnostic() string {
	if r == nil {
		return ""
	}
	if s := strings.TrimSpace(string(r.Stderr)); s != "" {
		return s
	}
	return strings.TrimSpace(string(r.Stdout))
}

// ExitError reports a non-zero exit status
type ExitError struct {
	Command string
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

// Runner starts processes. Safe for concurrent use.
type Runner struct {
	log            *logger.Logger
	defaultTimeout time.Duration
}

// New creates a runner
func New(log *logger.Logger, defaultTimeout time.Duration) *Runner {
	if defaultTimeout <= 0 {
		defaultTimeout = time.Minute
	}
	return &Runner{log: log.Component("runner"), defaultTimeout: defaultTimeout}
}

// Run starts cmd and waits for it to exit.
// The Result is returned whenever the process ran, including on non-zero exit
// (*ExitError) and timeout (ErrTimeout).
func (r *Runner) Run(ctx context.Context, c Command) (*Result, error) {
	if c.Name == "" {
		return nil, fmt.Errorf("command name required")
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log := r.log.WithFields(map[string]interface{}{
		"command": c.String(),
		"timeout": timeout.String(),
	})
	log.Debug("process started")

	start := time.Now()
	err := cmd.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
		ExitCode: cmd.ProcessState.ExitCode(),
	}

	switch {
	case err == nil:
		log.WithField("duration", res.Duration).Debug("process finished")
		return res, nil

	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		log.WithField("duration", res.Duration).Warn("process timed out")
		return res, fmt.Errorf("%s: %w after %s", c.String(), ErrTimeout, timeout)

	case ctx.Err() != nil:
		return res, fmt.Errorf("%s: %w", c.String(), ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		log.WithFields(map[string]interface{}{
			"exit_code": res.ExitCode,
			"duration":  res.Duration,
		}).Warn("process exited with error")
		return res, &ExitError{Command: c.String(), Code: res.ExitCode, Stderr: res.Diagnostic()}
	}

	// never started (binary missing, permission denied)
	return nil, fmt.Errorf("start %s: %w", c.Name, err)
}
