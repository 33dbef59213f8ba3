// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/katalvlaran/amatch/cohort"
	"github.com/katalvlaran/amatch/flame"
	"github.com/katalvlaran/amatch/frame"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	runConfigPath string
	runVerbose    bool

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Execute a matching run described by a YAML file",
		Example: `  amatch run --config run.yaml
  amatch run --config run.yaml --verbose`,
		RunE: runMatch,
	}
)

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "path to the YAML run file (required)")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "log every committed iteration")
	_ = runCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(runCmd)
}

// runMatch loads the run file, reads every input table through one shared
// codebook, fans the searches out, and writes one JSON and one CSV report
// per imputation.
func runMatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(runConfigPath)
	if err != nil {
		return err
	}

	lvl := zerolog.InfoLevel
	if runVerbose {
		lvl = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.RFC3339}).
		Level(lvl).With().Timestamp().Logger()

	opts, err := cfg.options(logger)
	if err != nil {
		return err
	}

	bundle, book, err := loadBundle(cfg)
	if err != nil {
		return err
	}
	logger.Info().
		Int("imputations", bundle.Size()).
		Int("holdouts", len(bundle.Holdout)).
		Int("covariates", bundle.Covariates()).
		Stringer("outcome_kind", bundle.Kind()).
		Msg("bundle loaded")

	results, err := flame.RunBundle(cmd.Context(), bundle, opts)
	if err != nil {
		return err
	}

	outDir := cfg.OutputDir
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, res := range results {
		jsonPath, err := writeResultJSON(outDir, res)
		if err != nil {
			return err
		}
		csvPath, err := writeUnitsCSV(outDir, res, book)
		if err != nil {
			return err
		}
		logger.Info().
			Stringer("run_id", res.RunID).
			Int("imputation", res.Imputation).
			Stringer("stop", res.Stop).
			Int("groups", len(res.Groups)).
			Str("result", jsonPath).
			Str("units", csvPath).
			Msg("result written")
	}

	return nil
}

// loadBundle reads the data and holdout CSVs through one codebook so codes
// agree across every table, and pins the first resolved outcome kind for
// all later reads.
func loadBundle(cfg *runConfig) (*cohort.ImputationBundle, *frame.Codebook, error) {
	book := frame.NewCodebook()
	schema, err := cfg.schema(book)
	if err != nil {
		return nil, nil, err
	}

	data := make([]*cohort.UnitStore, 0, len(cfg.Data))
	for _, path := range cfg.Data {
		st, tab, err := readStore(path, schema)
		if err != nil {
			return nil, nil, err
		}
		if schema.Kind == cohort.Absent {
			schema.Kind = tab.Kind()
		}
		data = append(data, st)
	}

	holdout := make([]*cohort.UnitStore, 0, len(cfg.Holdout))
	for _, path := range cfg.Holdout {
		st, tab, err := readStore(path, schema)
		if err != nil {
			return nil, nil, err
		}
		if schema.Kind == cohort.Absent {
			schema.Kind = tab.Kind()
		}
		holdout = append(holdout, st)
	}

	bundle, err := cohort.NewImputationBundle(data, holdout)
	if err != nil {
		return nil, nil, err
	}

	return bundle, book, nil
}

// readStore parses one CSV and converts it to a unit store.
func readStore(path string, s frame.Schema) (*cohort.UnitStore, *frame.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()

	tab, err := frame.ReadCSV(f, s)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	st, err := tab.ToUnitStore()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	return st, tab, nil
}
