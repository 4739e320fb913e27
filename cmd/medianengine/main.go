package main

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	appName = "medianengine"
	version = "v1.2.0"
)

var (
	flagConfig  string
	flagVerbose bool
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Median scoring and anomaly detection engine",
		Version: version,
		Long: `medianengine computes the positional-average median for a fixed-size group
of competitor scores each period, with multi-strategy fallback, statistical
anomaly detection, and rolling-history self-tuning.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagVerbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to engine config YAML")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newCalcCmd())
	rootCmd.AddCommand(newMonitorCmd())
	rootCmd.AddCommand(newTuneCmd())

	bindEnvOverrides(rootCmd.PersistentFlags())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// bindEnvOverrides lets MEDIANENGINE_<FLAG> environment variables supply
// defaults for persistent flags the command line leaves unset.
func bindEnvOverrides(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		env := "MEDIANENGINE_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if v, ok := os.LookupEnv(env); ok && !f.Changed {
			if err := f.Value.Set(v); err != nil {
				log.Warn().Str("flag", f.Name).Str("env", env).Err(err).Msg("ignoring env override")
			}
		}
	})
}
