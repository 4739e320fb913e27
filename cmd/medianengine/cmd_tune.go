package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/halfpoint/medianengine/internal/tune"
)

func newTuneCmd() *cobra.Command {
	var lookback int

	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Run one self-tuning pass over archived history",
		Long: `Fetches recent records from the history archive, recomputes per-strategy
trust weights, and writes the weights file. Requires the Postgres archive to
be configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTune(lookback)
		},
	}

	cmd.Flags().IntVar(&lookback, "lookback", 100, "how many archived records to inspect")
	return cmd
}

func runTune(lookback int) error {
	app, err := buildApp(flagConfig)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.archive == nil {
		return fmt.Errorf("tune requires the postgres history archive (set postgres.enabled or MEDIANENGINE_POSTGRES_DSN)")
	}

	records, err := app.archive.Recent(contextWithSignal(), lookback)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		log.Warn().Msg("no archived history, nothing to tune")
		return nil
	}

	app.Tuner.Run(records)
	if err := saveWeights(app); err != nil {
		return err
	}

	view := app.Params.Snapshot()
	log.Info().
		Int("records", len(records)).
		Interface("strategy_trust", view.StrategyTrust).
		Interface("detector_sensitivity", view.DetectorSensitivity).
		Msg("tuning pass complete")
	return nil
}

func saveWeights(a *app) error {
	if a.Config.Engine.WeightsFile == "" {
		return nil
	}
	return tune.SaveWeights(a.Config.Engine.WeightsFile, a.Params)
}
