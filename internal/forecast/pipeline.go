package forecast

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/crmgeek/backend/pkg/config"
)

// =============================================================================
// Pipeline file (optional YAML overrides)
// =============================================================================

// PipelineFile is the optional YAML overriding script locations and timeouts
type PipelineFile struct {
	Python        string     `yaml:"python" json:"python"`
	Classic       StageEntry `yaml:"classic" json:"classic"`
	Pro           StageEntry `yaml:"pro" json:"pro"`
	Regression    StageEntry `yaml:"regression" json:"regression"`
	Regen         StageEntry `yaml:"regen" json:"regen"`
	KeepArtifacts *bool      `yaml:"keep_artifacts" json:"keep_artifacts,omitempty"`
}

// StageEntry overrides one external stage
type StageEntry struct {
	Script  string        `yaml:"script" json:"script"`
	Args    []string      `yaml:"args" json:"args"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// LoadPipelineFile reads and validates the YAML file.
// Unknown keys are rejected so typos fail loudly.
func LoadPipelineFile(path string) (*PipelineFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline file: %w", err)
	}

	var pf PipelineFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil {
		return nil, fmt.Errorf("decode pipeline file %s: %w", path, err)
	}

	if err := pf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline file %s: %w", path, err)
	}
	return &pf, nil
}

// Validate checks the overrides
func (pf *PipelineFile) Validate() error {
	for name, s := range map[string]StageEntry{"classic": pf.Classic, "pro": pf.Pro, "regression": pf.Regression, "regen": pf.Regen} {
		if s.Timeout < 0 {
			return fmt.Errorf("%s.timeout must not be negative", name)
		}
		if len(s.Args) > 0 && s.Script == "" && name == "regen" {
			return fmt.Errorf("regen.args requires regen.script")
		}
	}
	return nil
}

// Hash fingerprints the effective settings for logs (canonical JSON)
func (s Settings) Hash() string {
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:12]
}

// =============================================================================
// Effective settings
// =============================================================================

// Stage is a resolved external program
type Stage struct {
	Script  string        `json:"script"`
	Args    []string      `json:"args,omitempty"`
	Timeout time.Duration `json:"timeout"`
}

// Settings are the effective pipeline settings: environment first, YAML on top
type Settings struct {
	Python        string        `json:"python"`
	Classic       Stage         `json:"classic"`
	Pro           Stage         `json:"pro"`
	Regression    Stage         `json:"regression"`
	Regen         Stage         `json:"regen"` // Script empty means in-process
	WorkDir       string        `json:"work_dir"`
	CacheDir      string        `json:"cache_dir"`
	CacheTTL      time.Duration `json:"cache_ttl"`
	KeepArtifacts bool          `json:"keep_artifacts"`
}

// ResolveSettings merges the environment config with the optional file
func ResolveSettings(cfg config.ForecastConfig) (Settings, error) {
	s := Settings{
		Python:        cfg.PythonBin,
		Classic:       Stage{Script: cfg.ScriptPath(cfg.ClassicScript), Timeout: cfg.ModelTimeout},
		Pro:           Stage{Script: cfg.ScriptPath(cfg.ProScript), Timeout: cfg.ModelTimeout},
		Regression:    Stage{Script: cfg.ScriptPath(cfg.RegressionScript), Timeout: cfg.ModelTimeout},
		Regen:         Stage{Script: cfg.ScriptPath(cfg.RegenScript), Timeout: cfg.RegenTimeout},
		WorkDir:       cfg.WorkDir,
		CacheDir:      cfg.CacheDir,
		CacheTTL:      cfg.CacheTTL,
		KeepArtifacts: cfg.KeepArtifacts,
	}

	if cfg.PipelineFile == "" {
		return s, nil
	}

	pf, err := LoadPipelineFile(cfg.PipelineFile)
	if err != nil {
		return s, err
	}

	if pf.Python != "" {
		s.Python = pf.Python
	}
	s.Classic = overlay(cfg, s.Classic, pf.Classic)
	s.Pro = overlay(cfg, s.Pro, pf.Pro)
	s.Regression = overlay(cfg, s.Regression, pf.Regression)
	s.Regen = overlay(cfg, s.Regen, pf.Regen)
	if pf.KeepArtifacts != nil {
		s.KeepArtifacts = *pf.KeepArtifacts
	}
	return s, nil
}

func overlay(cfg config.ForecastConfig, base Stage, e StageEntry) Stage {
	if e.Script != "" {
		base.Script = cfg.ScriptPath(e.Script)
	}
	if len(e.Args) > 0 {
		base.Args = append([]string(nil), e.Args...)
	}
	if e.Timeout > 0 {
		base.Timeout = e.Timeout
	}
	return base
}
