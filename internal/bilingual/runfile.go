// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bilingual

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bilingual-research/internal/expansion"
	"github.com/pdiddy/bilingual-research/pkg/types"
)

// RunFile is a saved research run. It can be reloaded and printed without
// searching again.
type RunFile struct {
	Config  RunFileConfig `yaml:"config"`
	Output  types.Output  `yaml:"output"`
	Summary RunSummary    `yaml:"summary"`
}

// RunFileConfig records the settings that shaped the run.
type RunFileConfig struct {
	MaxRounds             int     `yaml:"max_rounds"`
	Balance               float64 `yaml:"balance"`
	MaxResultsPerLanguage int     `yaml:"max_results_per_language"`
	Rerank                bool    `yaml:"rerank"`
}

// RunSummary holds result statistics and a timestamp.
type RunSummary struct {
	Total     int       `yaml:"total"`
	Zh        int       `yaml:"zh"`
	En        int       `yaml:"en"`
	Rounds    int       `yaml:"rounds"`
	Timestamp time.Time `yaml:"timestamp"`
}

// WriteRunFile saves out and the settings that produced it as YAML.
func WriteRunFile(path string, cfg types.PipelineConfig, out *types.Output) error {
	balance := expansion.DefaultBalance
	if cfg.Expansion.Balance != nil {
		balance = *cfg.Expansion.Balance
	}
	rf := RunFile{
		Config: RunFileConfig{
			MaxRounds:             cfg.Expansion.MaxRounds,
			Balance:               balance,
			MaxResultsPerLanguage: cfg.Fusion.MaxResultsPerLanguage,
			Rerank:                cfg.Rerank.Enabled,
		},
		Output: *out,
		Summary: RunSummary{
			Total:     out.TotalResults,
			Zh:        out.ZhCount,
			En:        out.EnCount,
			Rounds:    len(out.Decisions),
			Timestamp: time.Now().UTC(),
		},
	}

	data, err := yaml.Marshal(&rf)
	if err != nil {
		return fmt.Errorf("marshaling run file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadRunFile loads a previously saved run.
func ReadRunFile(path string) (*RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run file: %w", err)
	}
	var rf RunFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing run file: %w", err)
	}
	return &rf, nil
}
