package interpret

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/crmgeek/backend/internal/apperr"
	"github.com/wonny/crmgeek/backend/internal/contracts"
	"github.com/wonny/crmgeek/backend/pkg/config"
	"github.com/wonny/crmgeek/backend/pkg/httputil"
	"github.com/wonny/crmgeek/backend/pkg/logger"
	"github.com/wonny/crmgeek/backend/pkg/redis"
)

type stubBackend struct {
	content string
	err     error
	delay   time.Duration
	gotUser string
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Complete(ctx context.Context, system, user string) (string, error) {
	s.gotUser = user
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.content, s.err
}

func metrics() []contracts.ModelMetricsInput {
	return []contracts.ModelMetricsInput{
		{ModelID: "LinearRegression", MAE: 3.1, MAPE: 12.5, R2: 0.81},
		{ModelID: "RandomForest", MAE: 2.2, MAPE: 8.4, R2: 0.9},
	}
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n[]\n```", "[]"},
		{"  [1]  ", "[1]"},
		{"```\n[{\"a\":1}]```", `[{"a":1}]`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanResponse(tt.in))
	}
}

func TestDecode(t *testing.T) {
	got, skipped, err := Decode("```json\n[{\"modelo\":\"RF\",\"precision\":\"Alta\",\"recomendacion\":\"usar\"},{\"modelo\":42},{\"precision\":\"Baja\"}]\n```")
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, []contracts.Interpretation{{ModelID: "RF", Precision: "Alta", Recommendation: "usar"}}, got)

	_, _, err = Decode("Claro, aquí tienes")
	assert.Error(t, err)

	_, _, err = Decode("   ")
	assert.Error(t, err)
}

func TestBuildPromptContainsMetrics(t *testing.T) {
	prompt, err := BuildPrompt(metrics())
	require.NoError(t, err)
	assert.Contains(t, prompt, `"modelo": "RandomForest"`)
	assert.Contains(t, prompt, `"Alta", "Media" o "Baja"`)
}

func TestServiceInterpret(t *testing.T) {
	ctx := context.Background()

	t.Run("partial coverage is not an error", func(t *testing.T) {
		b := &stubBackend{content: `[{"modelo":"RandomForest","precision":"Alta","recomendacion":"ok"}]`}
		svc := NewService(b, time.Second, logger.Nop())

		in := metrics()
		before := append([]contracts.ModelMetricsInput(nil), in...)
		got, err := svc.Interpret(ctx, in)
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Equal(t, before, in)
		assert.Contains(t, b.gotUser, "LinearRegression")
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := NewService(&stubBackend{}, time.Second, logger.Nop()).Interpret(ctx, nil)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("transport failure", func(t *testing.T) {
		svc := NewService(&stubBackend{err: errors.New("connection refused")}, time.Second, logger.Nop())
		_, err := svc.Interpret(ctx, metrics())
		assert.True(t, apperr.IsKind(err, apperr.KindInterpretation))
	})

	t.Run("unparsable answer", func(t *testing.T) {
		svc := NewService(&stubBackend{content: "no sé"}, time.Second, logger.Nop())
		_, err := svc.Interpret(ctx, metrics())
		assert.True(t, apperr.IsKind(err, apperr.KindInterpretation))
	})

	t.Run("timeout", func(t *testing.T) {
		svc := NewService(&stubBackend{content: "[]", delay: time.Second}, 20*time.Millisecond, logger.Nop())
		_, err := svc.Interpret(ctx, metrics())
		require.Error(t, err)
		e, _ := apperr.As(err)
		assert.Equal(t, apperr.KindInterpretation, e.Kind)
		assert.Equal(t, "interpretation timed out", e.Detail)
	})

	t.Run("unconfigured", func(t *testing.T) {
		svc := NewService(Unconfigured{Provider: "openai"}, time.Second, logger.Nop())
		_, err := svc.Interpret(ctx, metrics())
		assert.True(t, apperr.IsKind(err, apperr.KindInterpretation))
	})
}

func TestOpenAI(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

			var req chatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "gpt-3.5-turbo", req.Model)
			assert.InDelta(t, 0.4, req.Temperature, 1e-9)
			require.Len(t, req.Messages, 2)
			assert.Equal(t, "system", req.Messages[0].Role)

			_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"` +
				"```json\\n[{\\\"modelo\\\":\\\"RandomForest\\\",\\\"precision\\\":\\\"Media\\\",\\\"recomendacion\\\":\\\"r\\\"}]\\n```" +
				`"}}]}`))
		}))
		defer server.Close()

		client := httputil.New(logger.Nop(), time.Second).WithHeader("Authorization", "Bearer sk-test")
		svc := NewService(NewOpenAI(client, server.URL+"/v1/", "gpt-3.5-turbo", 0.4), time.Second, logger.Nop())

		got, err := svc.Interpret(context.Background(), metrics())
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Media", got[0].Precision)
	})

	t.Run("non-2xx is an interpretation error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`))
		}))
		defer server.Close()

		svc := NewService(NewOpenAI(httputil.New(logger.Nop(), time.Second), server.URL, "m", 0), time.Second, logger.Nop())
		_, err := svc.Interpret(context.Background(), metrics())
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindInterpretation))
		assert.Contains(t, err.Error(), "Incorrect API key")
	})

	t.Run("no choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}))
		defer server.Close()

		_, err := NewOpenAI(httputil.New(logger.Nop(), time.Second), server.URL, "m", 0).Complete(context.Background(), "s", "u")
		assert.ErrorContains(t, err, "no choices")
	})
}

func TestNewFromConfig_Unconfigured(t *testing.T) {
	throttle := NewThrottle(redis.NewRateLimiter(redis.Disabled(), "crm"), 0)
	require.NotNil(t, throttle)

	for _, provider := range []string{"openai", "gemini"} {
		svc, closeFn, err := NewFromConfig(context.Background(), config.InterpreterConfig{Provider: provider, Timeout: time.Second}, throttle, logger.Nop())
		require.NoError(t, err)
		assert.Contains(t, svc.Backend(), provider)
		assert.NoError(t, closeFn())
	}
}
