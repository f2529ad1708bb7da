package matrix

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/skillbench/skillbench/internal/provider"
)

// matrixFile is the on-disk YAML form of a run matrix. It lists the
// (provider, model) combinations to benchmark along with per-unit overrides
// that have no flag equivalent.
type matrixFile struct {
	Units []struct {
		Provider    string  `yaml:"provider"`
		Model       string  `yaml:"model"`
		BaseURL     string  `yaml:"base_url"`
		Temperature float64 `yaml:"temperature"`
		ExtraArgs   string  `yaml:"extra_args"`
	} `yaml:"units"`
}

// LoadUnits reads the run matrix from a YAML file.
func LoadUnits(path string) ([]Unit, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read matrix file: %w", err)
	}

	var mf matrixFile
	if err := yaml.Unmarshal(raw, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse matrix file %s: %w", path, err)
	}
	if len(mf.Units) == 0 {
		return nil, fmt.Errorf("matrix file %s defines no units", path)
	}

	seen := make(map[string]bool, len(mf.Units))
	units := make([]Unit, 0, len(mf.Units))
	for i, u := range mf.Units {
		if u.Provider == "" || u.Model == "" {
			return nil, fmt.Errorf("matrix file %s: unit %d needs both provider and model", path, i+1)
		}
		cfg := provider.ModelConfig{
			Provider:    u.Provider,
			Model:       u.Model,
			BaseURL:     u.BaseURL,
			Temperature: u.Temperature,
			ExtraArgs:   u.ExtraArgs,
		}
		if seen[cfg.Key()] {
			return nil, fmt.Errorf("matrix file %s: duplicate unit %s", path, cfg.Key())
		}
		seen[cfg.Key()] = true
		units = append(units, Unit{Config: cfg})
	}
	return units, nil
}
