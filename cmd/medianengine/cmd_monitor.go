package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpapi "github.com/halfpoint/medianengine/internal/interfaces/http"
)

func newMonitorCmd() *cobra.Command {
	var listen string
	var tuneEvery time.Duration

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Serve the diagnostics API and accept on-demand calculations",
		Long: `Starts the diagnostics HTTP server (/health, /metrics, /history, /verdict,
/tuning, POST /calculate) and runs a periodic self-tuning pass over the
rolling history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(listen, tuneEvery)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")
	cmd.Flags().DurationVar(&tuneEvery, "tune-every", 15*time.Minute, "self-tuning pass interval")
	return cmd
}

func runMonitor(listen string, tuneEvery time.Duration) error {
	app, err := buildApp(flagConfig)
	if err != nil {
		return err
	}
	defer app.Close()

	if listen == "" {
		listen = app.Config.HTTP.Listen
	}

	ctx := contextWithSignal()
	server := httpapi.NewServer(listen, app.Engine, app.Metrics)

	// Periodic tuning over the in-memory rolling history. The interval is a
	// deployment knob, not part of the calculation protocol.
	go func() {
		ticker := time.NewTicker(tuneEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				app.Tuner.Run(app.Engine.History().Snapshot())
				if err := saveWeights(app); err != nil {
					log.Warn().Err(err).Msg("failed to persist tuned weights")
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
