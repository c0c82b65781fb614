package forecast

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/crmgeek/backend/pkg/config"
)

func baseForecastConfig() config.ForecastConfig {
	return config.ForecastConfig{
		PythonBin:        "python3",
		ScriptsDir:       "scripts",
		ClassicScript:    "pronostico.py",
		ProScript:        "procesarCsvConModelos.py",
		RegressionScript: "pronostico_pro.py",
		WorkDir:          "/tmp/w",
		CacheDir:         "cache",
		RegenTimeout:     time.Minute,
		ModelTimeout:     3 * time.Minute,
		CacheTTL:         time.Hour,
	}
}

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestResolveSettings_Defaults(t *testing.T) {
	s, err := ResolveSettings(baseForecastConfig())
	require.NoError(t, err)

	assert.Equal(t, "python3", s.Python)
	assert.Equal(t, filepath.Join("scripts", "pronostico.py"), s.Classic.Script)
	assert.Equal(t, filepath.Join("scripts", "procesarCsvConModelos.py"), s.Pro.Script)
	assert.Equal(t, filepath.Join("scripts", "pronostico_pro.py"), s.Regression.Script)
	assert.Equal(t, 3*time.Minute, s.Regression.Timeout)
	assert.Empty(t, s.Regen.Script)
	assert.Equal(t, 3*time.Minute, s.Classic.Timeout)
	assert.Equal(t, time.Minute, s.Regen.Timeout)
	assert.NotEmpty(t, s.Hash())
}

func TestResolveSettings_File(t *testing.T) {
	cfg := baseForecastConfig()
	cfg.PipelineFile = writeYAML(t, `
python: /opt/venv/bin/python
classic:
  script: /srv/models/classic.py
  args: ["--quiet"]
  timeout: 90s
regression:
  timeout: 45s
regen:
  script: parse.py
keep_artifacts: true
`)

	s, err := ResolveSettings(cfg)
	require.NoError(t, err)

	assert.Equal(t, "/opt/venv/bin/python", s.Python)
	assert.Equal(t, "/srv/models/classic.py", s.Classic.Script)
	assert.Equal(t, []string{"--quiet"}, s.Classic.Args)
	assert.Equal(t, 90*time.Second, s.Classic.Timeout)
	assert.Equal(t, 3*time.Minute, s.Pro.Timeout)
	assert.Equal(t, 45*time.Second, s.Regression.Timeout)
	assert.Equal(t, filepath.Join("scripts", "pronostico_pro.py"), s.Regression.Script)
	assert.Equal(t, filepath.Join("scripts", "parse.py"), s.Regen.Script)
	assert.True(t, s.KeepArtifacts)

	base, _ := ResolveSettings(baseForecastConfig())
	assert.NotEqual(t, base.Hash(), s.Hash())
}

func TestLoadPipelineFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown field", "pyhton: python3\n"},
		{"negative timeout", "pro:\n  timeout: -5s\n"},
		{"negative regression timeout", "regression:\n  timeout: -1s\n"},
		{"regen args without script", "regen:\n  args: [\"x\"]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPipelineFile(writeYAML(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadPipelineFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
