package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/halfpoint/medianengine/internal/models"
)

func newCalcCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Run one median calculation from a score file",
		Long:  "Reads a ScoreSet JSON file, runs the full calculation protocol, and prints the MedianResult as JSON.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalc(inputPath)
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "path to ScoreSet JSON file")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runCalc(inputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file %s: %w", inputPath, err)
	}

	var set models.ScoreSet
	if err := json.Unmarshal(data, &set); err != nil {
		return fmt.Errorf("failed to parse score set: %w", err)
	}

	app, err := buildApp(flagConfig)
	if err != nil {
		return err
	}
	defer app.Close()

	result, verdict, err := app.Engine.Calculate(contextWithSignal(), set)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(map[string]interface{}{
		"result":  result,
		"verdict": verdict,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render result: %w", err)
	}
	fmt.Println(string(out))

	if result.FlaggedForReview {
		log.Warn().Float64("severity", verdict.Severity).Msg("result flagged for review")
	}
	return nil
}
