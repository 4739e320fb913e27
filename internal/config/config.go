// Package config loads the engine configuration: core numeric bounds,
// initial strategy/detector parameters, and the optional infrastructure
// endpoints (Redis mirror, Postgres archive, diagnostics listener).
//
// Values come from a YAML file with defaults applied for anything omitted;
// deployment endpoints can additionally be overridden from the environment
// (a .env file is honored when present).
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/halfpoint/medianengine/internal/models"
	"github.com/halfpoint/medianengine/internal/tune"
	"github.com/halfpoint/medianengine/internal/validation"
)

// Config is the full engine configuration surface.
type Config struct {
	Engine     EngineConfig              `yaml:"engine"`
	Strategies map[string]StrategyConfig `yaml:"strategies"`
	Detectors  map[string]DetectorConfig `yaml:"detectors"`
	Redis      RedisConfig               `yaml:"redis"`
	Postgres   PostgresConfig            `yaml:"postgres"`
	HTTP       HTTPConfig                `yaml:"http"`
}

// EngineConfig holds the core numeric bounds.
type EngineConfig struct {
	TeamCount         int     `yaml:"team_count"`
	MaxScore          float64 `yaml:"max_score"`
	RoundingPrecision int     `yaml:"rounding_precision"`
	HistoryCapacity   int     `yaml:"history_capacity"`
	TuningWindow      int     `yaml:"tuning_window"`
	MedianTolerance   float64 `yaml:"median_tolerance"`
	SpreadMin         float64 `yaml:"spread_min"`
	SpreadMax         float64 `yaml:"spread_max"`
	WeightsFile       string  `yaml:"weights_file"`
}

// StrategyConfig holds per-strategy initial parameters.
type StrategyConfig struct {
	Confidence float64 `yaml:"confidence"`
}

// DetectorConfig holds per-detector initial parameters.
type DetectorConfig struct {
	Sensitivity float64 `yaml:"sensitivity"`
	Confidence  float64 `yaml:"confidence"`
}

// RedisConfig configures the optional history mirror.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Key     string `yaml:"key"`
}

// PostgresConfig configures the optional history archive.
type PostgresConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// HTTPConfig configures the diagnostics server.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			TeamCount:         12,
			MaxScore:          300,
			RoundingPrecision: 2,
			HistoryCapacity:   100,
			TuningWindow:      20,
			MedianTolerance:   0.01,
			SpreadMin:         5,
			SpreadMax:         50,
			WeightsFile:       "weights.yaml",
		},
		Strategies: map[string]StrategyConfig{
			string(models.StrategyStandard):    {Confidence: 0.9},
			string(models.StrategyStatistical): {Confidence: 0.8},
			string(models.StrategyWeighted):    {Confidence: 0.7},
		},
		Detectors: map[string]DetectorConfig{},
		Redis:     RedisConfig{Addr: "localhost:6379", Key: "medianengine:history"},
		Postgres:  PostgresConfig{},
		HTTP:      HTTPConfig{Listen: ":8090"},
	}
}

// Load reads configuration from path, applying defaults for omitted values
// and environment overrides for deployment endpoints. An empty path yields
// defaults plus environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
		applyDefaults(&cfg)
	}

	applyEnv(&cfg)

	if err := validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Engine.TeamCount == 0 {
		cfg.Engine.TeamCount = def.Engine.TeamCount
	}
	if cfg.Engine.MaxScore == 0 {
		cfg.Engine.MaxScore = def.Engine.MaxScore
	}
	if cfg.Engine.RoundingPrecision == 0 {
		cfg.Engine.RoundingPrecision = def.Engine.RoundingPrecision
	}
	if cfg.Engine.HistoryCapacity == 0 {
		cfg.Engine.HistoryCapacity = def.Engine.HistoryCapacity
	}
	if cfg.Engine.TuningWindow == 0 {
		cfg.Engine.TuningWindow = def.Engine.TuningWindow
	}
	if cfg.Engine.MedianTolerance == 0 {
		cfg.Engine.MedianTolerance = def.Engine.MedianTolerance
	}
	if cfg.Engine.SpreadMin == 0 {
		cfg.Engine.SpreadMin = def.Engine.SpreadMin
	}
	if cfg.Engine.SpreadMax == 0 {
		cfg.Engine.SpreadMax = def.Engine.SpreadMax
	}
	if cfg.Engine.WeightsFile == "" {
		cfg.Engine.WeightsFile = def.Engine.WeightsFile
	}
	if cfg.Strategies == nil {
		cfg.Strategies = def.Strategies
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = def.Redis.Addr
	}
	if cfg.Redis.Key == "" {
		cfg.Redis.Key = def.Redis.Key
	}
	if cfg.HTTP.Listen == "" {
		cfg.HTTP.Listen = def.HTTP.Listen
	}
}

// applyEnv overrides deployment endpoints from the environment. A .env file
// in the working directory is loaded first when present; a missing file is
// not an error.
func applyEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("MEDIANENGINE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("MEDIANENGINE_POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
		cfg.Postgres.Enabled = true
	}
	if v := os.Getenv("MEDIANENGINE_LISTEN"); v != "" {
		cfg.HTTP.Listen = v
	}
}

func validate(cfg Config) error {
	if cfg.Engine.TeamCount < 2 {
		return fmt.Errorf("team_count must be at least 2, got %d", cfg.Engine.TeamCount)
	}
	if cfg.Engine.MaxScore <= 0 {
		return fmt.Errorf("max_score must be positive, got %.2f", cfg.Engine.MaxScore)
	}
	if cfg.Engine.RoundingPrecision < 0 || cfg.Engine.RoundingPrecision > 6 {
		return fmt.Errorf("rounding_precision must be in [0, 6], got %d", cfg.Engine.RoundingPrecision)
	}
	if cfg.Engine.SpreadMin >= cfg.Engine.SpreadMax {
		return fmt.Errorf("spread band (%.2f, %.2f) is empty", cfg.Engine.SpreadMin, cfg.Engine.SpreadMax)
	}
	for name, det := range cfg.Detectors {
		if det.Sensitivity != 0 && (det.Sensitivity < tune.MinSensitivity || det.Sensitivity > tune.MaxSensitivity) {
			return fmt.Errorf("detector %q sensitivity %.2f outside [%.1f, %.1f]", name, det.Sensitivity, tune.MinSensitivity, tune.MaxSensitivity)
		}
	}
	return nil
}

// ValidationConfig projects the engine bounds into the validation package's
// config shape.
func (c Config) ValidationConfig() validation.Config {
	return validation.Config{
		TeamCount:         c.Engine.TeamCount,
		MaxScore:          c.Engine.MaxScore,
		RoundingPrecision: c.Engine.RoundingPrecision,
		MedianTolerance:   c.Engine.MedianTolerance,
		SpreadMin:         c.Engine.SpreadMin,
		SpreadMax:         c.Engine.SpreadMax,
	}
}

// BuildParams seeds the tunable parameters from the configured initial
// strategy confidences and detector sensitivities.
func (c Config) BuildParams() *tune.Params {
	strategyConfidence := make(map[models.StrategyName]float64, len(c.Strategies))
	for name, s := range c.Strategies {
		if s.Confidence != 0 {
			strategyConfidence[models.StrategyName(name)] = s.Confidence
		}
	}
	detectorSensitivity := make(map[string]float64, len(c.Detectors))
	detectorConfidence := make(map[string]float64, len(c.Detectors))
	for name, d := range c.Detectors {
		if d.Sensitivity != 0 {
			detectorSensitivity[name] = d.Sensitivity
		}
		if d.Confidence != 0 {
			detectorConfidence[name] = d.Confidence
		}
	}
	return tune.NewParams(strategyConfidence, detectorSensitivity, detectorConfidence)
}
