package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wonny/crmgeek/backend/internal/apperr"
	"github.com/wonny/crmgeek/backend/internal/contracts"
	"github.com/wonny/crmgeek/backend/internal/runner"
	"github.com/wonny/crmgeek/backend/pkg/logger"
)

// Regenerator rebuilds the dataset in-process from completed orders
// ⭐ SSOT: default dataset regeneration
type Regenerator struct {
	source contracts.SalesSource
	logger *logger.Logger
}

// NewRegenerator creates an in-process regenerator
func NewRegenerator(source contracts.SalesSource, log *logger.Logger) *Regenerator {
	return &Regenerator{source: source, logger: log.Component("dataset")}
}

// Facts reads completed sales and aggregates them
func (r *Regenerator) Facts(ctx context.Context) ([]contracts.SalesFact, error) {
	lines, err := r.source.CompletedSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("load completed sales: %w", err)
	}
	return Build(lines), nil
}

// Regenerate writes the dataset to path
func (r *Regenerator) Regenerate(ctx context.Context, path string) error {
	facts, err := r.Facts(ctx)
	if err != nil {
		return apperr.Regeneration(err.Error(), err)
	}

	if err := WriteFile(path, facts); err != nil {
		return apperr.Regeneration(err.Error(), err)
	}

	r.logger.WithFields(map[string]interface{}{
		"path":    path,
		"records": len(facts),
	}).Debug("dataset regenerated")
	return nil
}

// WriteFile writes facts as indented JSON, replacing path atomically
func WriteFile(path string, facts []contracts.SalesFact) error {
	if facts == nil {
		facts = []contracts.SalesFact{}
	}
	data, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ventas-*.json")
	if err != nil {
		return fmt.Errorf("create temp dataset: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close dataset: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move dataset into place: %w", err)
	}
	return nil
}

// ReadFile loads a dataset written by WriteFile
func ReadFile(path string) ([]contracts.SalesFact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var facts []contracts.SalesFact
	if err := json.Unmarshal(data, &facts); err != nil {
		return nil, fmt.Errorf("decode dataset %s: %w", path, err)
	}
	return facts, nil
}

// ScriptRegenerator delegates regeneration to an external script invoked as
// `<python> <script> --output <path>`.
type ScriptRegenerator struct {
	runner  *runner.Runner
	python  string
	script  string
	args    []string
	timeout time.Duration
}

// NewScriptRegenerator creates a script-backed regenerator
func NewScriptRegenerator(r *runner.Runner, python, script string, extraArgs []string, timeout time.Duration) *ScriptRegenerator {
	return &ScriptRegenerator{runner: r, python: python, script: script, args: extraArgs, timeout: timeout}
}

// Regenerate implements contracts.DatasetRegenerator
func (s *ScriptRegenerator) Regenerate(ctx context.Context, path string) error {
	args := append([]string{s.script}, s.args...)
	args = append(args, "--output", path)

	res, err := s.runner.Run(ctx, runner.Command{Name: s.python, Args: args, Timeout: s.timeout})
	if err != nil {
		return apperr.Regeneration(res.Diagnostic(), err)
	}
	if _, err := os.Stat(path); err != nil {
		return apperr.Regeneration("regeneration script produced no dataset at "+path, err)
	}
	return nil
}
