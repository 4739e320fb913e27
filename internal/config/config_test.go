package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halfpoint/medianengine/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_EmptyPathYieldsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Engine.TeamCount)
	assert.Equal(t, 300.0, cfg.Engine.MaxScore)
	assert.Equal(t, 2, cfg.Engine.RoundingPrecision)
	assert.Equal(t, 100, cfg.Engine.HistoryCapacity)
	assert.Equal(t, 0.01, cfg.Engine.MedianTolerance)
	assert.Equal(t, "medianengine:history", cfg.Redis.Key)
	assert.Equal(t, ":8090", cfg.HTTP.Listen)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Postgres.Enabled)
}

func TestLoad_FileOverridesWithDefaultsForOmitted(t *testing.T) {
	path := writeConfig(t, `
engine:
  team_count: 8
  max_score: 200
strategies:
  standard:
    confidence: 0.95
redis:
  enabled: true
  addr: redis.internal:6379
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Engine.TeamCount)
	assert.Equal(t, 200.0, cfg.Engine.MaxScore)
	assert.Equal(t, 2, cfg.Engine.RoundingPrecision, "omitted values keep defaults")
	assert.Equal(t, 100, cfg.Engine.HistoryCapacity)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, "medianengine:history", cfg.Redis.Key)
	assert.Equal(t, 0.95, cfg.Strategies["standard"].Confidence)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverridesEndpoints(t *testing.T) {
	t.Setenv("MEDIANENGINE_REDIS_ADDR", "redis.prod:6379")
	t.Setenv("MEDIANENGINE_POSTGRES_DSN", "postgres://engine@db/medianengine")
	t.Setenv("MEDIANENGINE_LISTEN", ":9999")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "redis.prod:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Redis.Enabled, "an env-supplied address enables the mirror")
	assert.Equal(t, "postgres://engine@db/medianengine", cfg.Postgres.DSN)
	assert.True(t, cfg.Postgres.Enabled)
	assert.Equal(t, ":9999", cfg.HTTP.Listen)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantIn  string
	}{
		{
			name:    "team count too small",
			content: "engine:\n  team_count: 1\n",
			wantIn:  "team_count",
		},
		{
			name:    "negative max score",
			content: "engine:\n  max_score: -10\n",
			wantIn:  "max_score",
		},
		{
			name:    "rounding precision too large",
			content: "engine:\n  rounding_precision: 9\n",
			wantIn:  "rounding_precision",
		},
		{
			name:    "empty spread band",
			content: "engine:\n  spread_min: 60\n  spread_max: 50\n",
			wantIn:  "spread band",
		},
		{
			name:    "detector sensitivity out of range",
			content: "detectors:\n  pattern_gap:\n    sensitivity: 1.5\n",
			wantIn:  "sensitivity",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantIn)
		})
	}
}

func TestValidationConfigProjection(t *testing.T) {
	cfg := Default()
	vc := cfg.ValidationConfig()

	assert.Equal(t, cfg.Engine.TeamCount, vc.TeamCount)
	assert.Equal(t, cfg.Engine.MaxScore, vc.MaxScore)
	assert.Equal(t, cfg.Engine.MedianTolerance, vc.MedianTolerance)
	assert.Equal(t, cfg.Engine.SpreadMin, vc.SpreadMin)
	assert.Equal(t, cfg.Engine.SpreadMax, vc.SpreadMax)
}

func TestBuildParams_SeedsFromConfig(t *testing.T) {
	cfg := Default()
	cfg.Detectors = map[string]DetectorConfig{
		"statistical_outlier": {Sensitivity: 0.6, Confidence: 0.9},
	}

	params := cfg.BuildParams()

	assert.Equal(t, 0.9, params.StrategyConfidence(models.StrategyStandard))
	assert.Equal(t, 0.8, params.StrategyConfidence(models.StrategyStatistical))
	assert.Equal(t, 0.7, params.StrategyConfidence(models.StrategyWeighted))
	assert.Equal(t, 0.6, params.DetectorSensitivity("statistical_outlier"))
	assert.Equal(t, 0.9, params.DetectorConfidence("statistical_outlier"))
	assert.Equal(t, 1.0, params.DetectorSensitivity("pattern_gap"), "unconfigured detectors use the default")
}
