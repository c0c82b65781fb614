// Package executor runs the external forecasting scripts.
package executor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wonny/crmgeek/backend/internal/apperr"
	"github.com/wonny/crmgeek/backend/internal/contracts"
	"github.com/wonny/crmgeek/backend/internal/runner"
	"github.com/wonny/crmgeek/backend/pkg/logger"
)

// Scripts locates the model programs
type Scripts struct {
	Python          string
	Classic         string
	Pro             string
	Regression      string
	ClassicExtra    []string
	ProExtra        []string
	RegressionExtra []string

	ClassicTimeout    time.Duration
	ProTimeout        time.Duration
	RegressionTimeout time.Duration
}

// ProcessExecutor implements contracts.ModelExecutor with child processes.
// Payloads are read from stdout, diagnostics from stderr.
type ProcessExecutor struct {
	runner  *runner.Runner
	scripts Scripts
	logger  *logger.Logger
}

var _ contracts.ModelExecutor = (*ProcessExecutor)(nil)

// NewProcessExecutor creates a process-backed executor
func NewProcessExecutor(r *runner.Runner, scripts Scripts, log *logger.Logger) *ProcessExecutor {
	return &ProcessExecutor{
		runner:  r,
		scripts: scripts,
		logger:  log.Component("executor"),
	}
}

// ClassicArgs builds `<script> [extra...] <model> <period> [client] --dataset <path> [--product <p>]`
func (e *ProcessExecutor) ClassicArgs(in contracts.ClassicInput) []string {
	args := append([]string{e.scripts.Classic}, e.scripts.ClassicExtra...)
	args = append(args, in.ModelID, in.Period)
	if in.ClientID != "" {
		args = append(args, in.ClientID)
	}
	args = append(args, "--dataset", in.DatasetPath)
	if in.Product != "" {
		args = append(args, "--product", in.Product)
	}
	return args
}

// ProArgs builds `<script> [extra...] <csv>`
func (e *ProcessExecutor) ProArgs(in contracts.ProInput) []string {
	args := append([]string{e.scripts.Pro}, e.scripts.ProExtra...)
	return append(args, in.CSVPath)
}

// RegressionArgs builds `<script> [extra...] <json>`
func (e *ProcessExecutor) RegressionArgs(in contracts.RegressionInput) []string {
	args := append([]string{e.scripts.Regression}, e.scripts.RegressionExtra...)
	return append(args, in.InputPath)
}

// ExecuteClassic implements contracts.ModelExecutor
func (e *ProcessExecutor) ExecuteClassic(ctx context.Context, in contracts.ClassicInput) ([]byte, error) {
	if in.DatasetPath == "" || in.ModelID == "" || in.Period == "" {
		return nil, apperr.Validation("classic execution needs dataset, model and period")
	}
	return e.execute(ctx, "classic", e.ClassicArgs(in), e.scripts.ClassicTimeout)
}

// ExecutePro implements contracts.ModelExecutor
func (e *ProcessExecutor) ExecutePro(ctx context.Context, in contracts.ProInput) ([]byte, error) {
	if in.CSVPath == "" {
		return nil, apperr.Validation("pro execution needs an input file")
	}
	return e.execute(ctx, "pro", e.ProArgs(in), e.scripts.ProTimeout)
}

// ExecuteProRegression implements contracts.ModelExecutor
func (e *ProcessExecutor) ExecuteProRegression(ctx context.Context, in contracts.RegressionInput) ([]byte, error) {
	if in.InputPath == "" {
		return nil, apperr.Validation("regression execution needs an input file")
	}
	return e.execute(ctx, "regression", e.RegressionArgs(in), e.scripts.RegressionTimeout)
}

func (e *ProcessExecutor) execute(ctx context.Context, stage string, args []string, timeout time.Duration) ([]byte, error) {
	res, err := e.runner.Run(ctx, runner.Command{
		Name:    e.scripts.Python,
		Args:    args,
		Timeout: timeout,
	})

	log := e.logger.WithField("stage", stage)
	if res != nil && len(res.Stderr) > 0 {
		log.WithField("stderr", strings.TrimSpace(string(res.Stderr))).Debug("model stderr")
	}

	if err != nil {
		log.WithError(err).Warn("model execution failed")
		switch {
		case errors.Is(err, runner.ErrTimeout):
			return nil, apperr.ModelExecution("model execution timed out", err)
		case res != nil:
			return nil, apperr.ModelExecution(res.Diagnostic(), err)
		default:
			return nil, apperr.ModelExecution(err.Error(), err)
		}
	}

	return res.Stdout, nil
}
