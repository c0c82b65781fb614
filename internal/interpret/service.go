// Package interpret asks an LLM to label forecast models by precision.
package interpret

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/crmgeek/backend/internal/apperr"
	"github.com/wonny/crmgeek/backend/internal/contracts"
	"github.com/wonny/crmgeek/backend/pkg/logger"
)

// Backend sends one system+user exchange and returns the assistant text
type Backend interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

// Service implements contracts.Interpreter on top of a Backend
// ⭐ SSOT: LLM interpretation goes through this service only
type Service struct {
	backend Backend
	timeout time.Duration
	logger  *logger.Logger
}

var _ contracts.Interpreter = (*Service)(nil)

// NewService creates an interpretation service
func NewService(backend Backend, timeout time.Duration, log *logger.Logger) *Service {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Service{backend: backend, timeout: timeout, logger: log.Component("interpret")}
}

// Backend returns the configured backend name
func (s *Service) Backend() string {
	return s.backend.Name()
}

// Interpret implements contracts.Interpreter.
// Transport failures and unreadable answers fail the whole call; the returned
// list may still omit models the backend chose not to label.
func (s *Service) Interpret(ctx context.Context, metrics []contracts.ModelMetricsInput) ([]contracts.Interpretation, error) {
	if len(metrics) == 0 {
		return nil, apperr.NoData("no model metrics to interpret")
	}

	prompt, err := BuildPrompt(metrics)
	if err != nil {
		return nil, apperr.Internal("build interpretation prompt", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	log := s.logger.WithFields(map[string]interface{}{
		"backend": s.backend.Name(),
		"models":  len(metrics),
	})

	start := time.Now()
	content, err := s.backend.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		log.WithError(err).Warn("interpretation request failed")
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.Interpretation("interpretation timed out", err)
		}
		return nil, apperr.Interpretation(err.Error(), err)
	}

	result, skipped, err := Decode(content)
	if err != nil {
		log.WithField("answer", content).Warn("unreadable interpretation answer")
		return nil, apperr.Interpretation("answer is not valid JSON", err)
	}

	log.WithFields(map[string]interface{}{
		"labelled": len(result),
		"skipped":  skipped,
		"duration": time.Since(start),
	}).Debug("interpretation received")

	return result, nil
}

// Unconfigured is used when no API key is set; every call fails
type Unconfigured struct {
	Provider string
}

func (u Unconfigured) Name() string { return u.Provider + "(unconfigured)" }

func (u Unconfigured) Complete(ctx context.Context, system, user string) (string, error) {
	return "", errors.New("interpretation backend " + u.Provider + " has no API key configured")
}
