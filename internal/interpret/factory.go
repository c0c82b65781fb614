package interpret

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/crmgeek/backend/pkg/config"
	"github.com/wonny/crmgeek/backend/pkg/httputil"
	"github.com/wonny/crmgeek/backend/pkg/logger"
	"github.com/wonny/crmgeek/backend/pkg/redis"
)

// NewThrottle prefers the shared Redis limiter and falls back to a
// process-local token bucket.
func NewThrottle(limiter *redis.RateLimiter, perMinute int) httputil.Throttle {
	cfg := redis.InterpreterRateLimit(perMinute)
	if limiter.Enabled() {
		return httputil.RedisThrottle{Limiter: limiter, Config: cfg}
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.Limit)), cfg.Limit)
}

// NewFromConfig builds the service for the configured provider.
// The returned close func must be called on shutdown.
func NewFromConfig(ctx context.Context, cfg config.InterpreterConfig, throttle httputil.Throttle, log *logger.Logger) (*Service, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Provider {
	case "gemini":
		if cfg.GeminiKey == "" {
			log.Warn("GEMINI_API_KEY not set, interpretation disabled")
			return NewService(Unconfigured{Provider: "gemini"}, cfg.Timeout, log), noop, nil
		}
		g, err := NewGemini(ctx, cfg.GeminiKey, cfg.GeminiModel, cfg.Temperature, throttle)
		if err != nil {
			return nil, noop, err
		}
		return NewService(g, cfg.Timeout, log), g.Close, nil

	default:
		if cfg.OpenAIKey == "" {
			log.Warn("OPENAI_API_KEY not set, interpretation disabled")
			return NewService(Unconfigured{Provider: "openai"}, cfg.Timeout, log), noop, nil
		}
		client := httputil.New(log, cfg.Timeout).
			WithThrottle(throttle).
			WithHeader("Authorization", "Bearer "+cfg.OpenAIKey)
		return NewService(NewOpenAI(client, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.Temperature), cfg.Timeout, log), noop, nil
	}
}
