package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/crmgeek/backend/internal/apperr"
	"github.com/wonny/crmgeek/backend/internal/contracts"
	"github.com/wonny/crmgeek/backend/internal/runner"
	"github.com/wonny/crmgeek/backend/pkg/logger"
)

type staticSource struct {
	lines []contracts.SaleLine
	err   error
}

func (s *staticSource) CompletedSales(ctx context.Context) ([]contracts.SaleLine, error) {
	return s.lines, s.err
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func sampleLines() []contracts.SaleLine {
	return []contracts.SaleLine{
		{Product: " iphone 13 ", Quantity: 2, SoldAt: day(2024, 3, 5)},
		{Product: "IPHONE 13", Quantity: 3, SoldAt: day(2024, 3, 10)}, // same ISO week (Sunday)
		{Product: "galaxy s22", Quantity: 1, SoldAt: day(2024, 3, 4)},
		{Product: "iphone 13", Quantity: 4, SoldAt: day(2024, 3, 11)},
		{Product: "", Quantity: 9, SoldAt: day(2024, 3, 4)},
		{Product: "PIXEL", Quantity: 0, SoldAt: day(2024, 3, 4)},
	}
}

func TestBuild(t *testing.T) {
	facts := Build(sampleLines())

	require.Len(t, facts, 3)
	assert.Equal(t, "GALAXY S22", facts[0].Product)
	assert.Equal(t, "2024-03-04", facts[0].WeekStart.Format(contracts.DateLayout))

	assert.Equal(t, "IPHONE 13", facts[1].Product)
	assert.Equal(t, 5, facts[1].Quantity)
	assert.Equal(t, "2024-03-04", facts[1].WeekStart.Format(contracts.DateLayout))

	assert.Equal(t, "IPHONE 13", facts[2].Product)
	assert.Equal(t, 4, facts[2].Quantity)
	assert.Equal(t, "2024-03-11", facts[2].WeekStart.Format(contracts.DateLayout))
}

func TestBuild_OrderIndependent(t *testing.T) {
	lines := sampleLines()
	reversed := make([]contracts.SaleLine, len(lines))
	for i := range lines {
		reversed[len(lines)-1-i] = lines[i]
	}
	assert.Equal(t, Build(lines), Build(reversed))
}

func TestBuild_Empty(t *testing.T) {
	assert.Empty(t, Build(nil))
}

func TestRegenerate_Idempotent(t *testing.T) {
	dir := t.TempDir()
	regen := NewRegenerator(&staticSource{lines: sampleLines()}, logger.Nop())

	first := filepath.Join(dir, "a", "ventas.json")
	second := filepath.Join(dir, "b", "ventas.json")
	require.NoError(t, regen.Regenerate(context.Background(), first))
	require.NoError(t, regen.Regenerate(context.Background(), second))

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	facts, err := ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, Build(sampleLines()), facts)
}

func TestRegenerate_EmptyWritesArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ventas.json")
	regen := NewRegenerator(&staticSource{}, logger.Nop())

	require.NoError(t, regen.Regenerate(context.Background(), path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestRegenerate_SourceFailure(t *testing.T) {
	regen := NewRegenerator(&staticSource{err: errors.New("connection refused")}, logger.Nop())
	err := regen.Regenerate(context.Background(), filepath.Join(t.TempDir(), "ventas.json"))

	require.Error(t, err)
	assert.Equal(t, apperr.KindRegeneration, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestScriptRegenerator(t *testing.T) {
	r := runner.New(logger.Nop(), 5*time.Second)

	t.Run("success", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ventas.json")
		// sh -c '<script>' <argv0> --output <path>
		s := NewScriptRegenerator(r, "sh", "-c", []string{`echo '[]' > "$2"`, "regen"}, time.Second)
		require.NoError(t, s.Regenerate(context.Background(), path))
		assert.FileExists(t, path)
	})

	t.Run("failure carries diagnostic", func(t *testing.T) {
		s := NewScriptRegenerator(r, "sh", "-c", []string{`echo 'mongo unreachable' >&2; exit 2`, "regen"}, time.Second)
		err := s.Regenerate(context.Background(), filepath.Join(t.TempDir(), "ventas.json"))
		require.Error(t, err)
		e, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.KindRegeneration, e.Kind)
		assert.Equal(t, "mongo unreachable", e.Detail)
	})

	t.Run("missing output", func(t *testing.T) {
		s := NewScriptRegenerator(r, "sh", "-c", []string{"true", "regen"}, time.Second)
		err := s.Regenerate(context.Background(), filepath.Join(t.TempDir(), "ventas.json"))
		assert.True(t, apperr.IsKind(err, apperr.KindRegeneration))
	})
}
