package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/halfpoint/medianengine/internal/config"
	"github.com/halfpoint/medianengine/internal/engine"
	"github.com/halfpoint/medianengine/internal/history"
	"github.com/halfpoint/medianengine/internal/persistence"
	"github.com/halfpoint/medianengine/internal/persistence/postgres"
	"github.com/halfpoint/medianengine/internal/telemetry/metrics"
	"github.com/halfpoint/medianengine/internal/tune"
)

// app bundles the wired engine with the infrastructure handles the commands
// need to close on exit.
type app struct {
	Config  config.Config
	Engine  *engine.Engine
	Params  *tune.Params
	Tuner   *tune.Tuner
	Metrics *metrics.Registry

	redisClient *redis.Client
	archive     persistence.HistoryArchive
}

// buildApp loads configuration and wires the engine with whatever optional
// infrastructure the config enables.
func buildApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	params := cfg.BuildParams()
	if _, statErr := loadWeightsIfPresent(cfg.Engine.WeightsFile, params); statErr != nil {
		log.Warn().Err(statErr).Str("path", cfg.Engine.WeightsFile).Msg("ignoring weights file")
	}

	store := history.NewStore(cfg.Engine.HistoryCapacity)
	reg := metrics.NewRegistry()

	a := &app{
		Config:  cfg,
		Params:  params,
		Tuner:   tune.NewTuner(params, cfg.Engine.TuningWindow),
		Metrics: reg,
	}

	var mirror *history.RedisMirror
	if cfg.Redis.Enabled {
		a.redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		mirror = history.NewRedisMirror(a.redisClient, cfg.Redis.Key, cfg.Engine.HistoryCapacity)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("history mirror enabled")
	}

	if cfg.Postgres.Enabled {
		archive, err := postgres.Connect(cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		a.archive = archive
		log.Info().Msg("history archive enabled")
	}

	a.Engine = engine.New(engine.Options{
		Validation: cfg.ValidationConfig(),
		Params:     params,
		History:    store,
		Mirror:     mirror,
		Archive:    a.archive,
		Notifier:   engine.NewThrottledNotifier(engine.LogNotifier{}, time.Minute),
		Metrics:    reg,
	})
	return a, nil
}

// Close releases infrastructure handles. Safe on a partially built app.
func (a *app) Close() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close failed")
		}
	}
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			log.Warn().Err(err).Msg("archive close failed")
		}
	}
}

// loadWeightsIfPresent loads tuned weights when the file exists; a missing
// file is the normal first-run state, not an error.
func loadWeightsIfPresent(path string, params *tune.Params) (bool, error) {
	if path == "" {
		return false, nil
	}
	if err := tune.LoadWeights(path, params); err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// contextWithSignal returns a context cancelled on SIGINT/SIGTERM.
func contextWithSignal() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx
}
