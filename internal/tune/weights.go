package tune

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/halfpoint/medianengine/internal/models"
)

// WeightsFile is the on-disk shape of tuned parameters, so a tuning pass can
// survive a restart.
type WeightsFile struct {
	StrategyTrust       map[string]float64 `yaml:"strategy_trust"`
	DetectorSensitivity map[string]float64 `yaml:"detector_sensitivity"`
}

// SaveWeights writes the current tuned state to path.
func SaveWeights(path string, params *Params) error {
	view := params.Snapshot()

	file := WeightsFile{
		StrategyTrust:       make(map[string]float64, len(view.StrategyTrust)),
		DetectorSensitivity: make(map[string]float64, len(view.DetectorSensitivity)),
	}
	for name, trust := range view.StrategyTrust {
		file.StrategyTrust[string(name)] = trust
	}
	for name, sens := range view.DetectorSensitivity {
		file.DetectorSensitivity[name] = sens
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write weights file %s: %w", path, err)
	}
	return nil
}

// LoadWeights reads a previously saved weights file into params. Values are
// validated against the tunable bounds; out-of-range entries are rejected
// rather than silently clamped so a corrupted file is noticed.
func LoadWeights(path string, params *Params) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read weights file %s: %w", path, err)
	}

	var file WeightsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse weights file: %w", err)
	}

	for name, trust := range file.StrategyTrust {
		if trust < MinTrust || trust > MaxTrust {
			return fmt.Errorf("strategy trust %q = %.3f outside [%.1f, %.1f]", name, trust, MinTrust, MaxTrust)
		}
	}
	for name, sens := range file.DetectorSensitivity {
		if sens < MinSensitivity || sens > MaxSensitivity {
			return fmt.Errorf("detector sensitivity %q = %.3f outside [%.1f, %.1f]", name, sens, MinSensitivity, MaxSensitivity)
		}
	}

	for name, trust := range file.StrategyTrust {
		params.setStrategyTrust(models.StrategyName(name), trust)
	}
	for name, sens := range file.DetectorSensitivity {
		params.setDetectorSensitivity(name, sens)
	}
	return nil
}
