// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/katalvlaran/amatch/bitmatch"
	"github.com/katalvlaran/amatch/cohort"
	"github.com/katalvlaran/amatch/flame"
	"github.com/katalvlaran/amatch/frame"
	"github.com/katalvlaran/amatch/pefit"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// runConfig is the YAML run file. Omitted knobs keep the library defaults
// (flame.DefaultOptions); early-stop fields use pointers so zero is a real
// setting, not an accidental default.
type runConfig struct {
	// Data and Holdout name the input CSVs. A scalar is a single file;
	// a list reads pre-imputed variants (K data by M holdout searches).
	Data    fileList `yaml:"data"`
	Holdout fileList `yaml:"holdout"`

	// Columns assigns the CSV column roles; one assignment covers every
	// input file.
	Columns columnsConfig `yaml:"columns"`

	// OutcomeKind overrides inference: continuous, binary or multiclass.
	OutcomeKind string `yaml:"outcome_kind"`

	Algorithm  string   `yaml:"algorithm"`   // flame (default) or dame
	FLAMEIters int      `yaml:"flame_iters"` // greedy prefix under dame
	C          *float64 `yaml:"c"`
	Replace    bool     `yaml:"replace"`
	Missing    string   `yaml:"missing"` // skip (default) or match
	Fitter     string   `yaml:"fitter"`  // ridge (default) or boost
	Seed       int64    `yaml:"seed"`
	Workers    int      `yaml:"workers"`
	Trace      bool     `yaml:"trace"`

	EarlyStop earlyStopConfig `yaml:"early_stop"`

	// OutputDir receives result_<k>.json and units_<k>.csv per imputation.
	// Empty writes into the working directory.
	OutputDir string `yaml:"output_dir"`
}

type columnsConfig struct {
	Treatment    string   `yaml:"treatment"`
	Outcome      string   `yaml:"outcome"`
	ID           string   `yaml:"id"`
	Covariates   []string `yaml:"covariates"`
	MissingToken string   `yaml:"missing_token"`
}

type earlyStopConfig struct {
	Iterations   *int     `yaml:"iterations"`
	PEEpsilon    *float64 `yaml:"pe_epsilon"`
	PEAbsolute   *float64 `yaml:"pe_absolute"`
	BFFloor      *float64 `yaml:"bf_floor"`
	ControlFloor *float64 `yaml:"control_floor"`
	TreatedFloor *float64 `yaml:"treated_floor"`
}

// fileList accepts either a single path or a list of paths.
type fileList []string

// UnmarshalYAML implements yaml.Unmarshaler for the scalar-or-list form.
func (f *fileList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var one string
		if err := value.Decode(&one); err != nil {
			return err
		}
		*f = fileList{one}
	case yaml.SequenceNode:
		var many []string
		if err := value.Decode(&many); err != nil {
			return err
		}
		*f = fileList(many)
	default:
		return fmt.Errorf("line %d: expected a path or a list of paths", value.Line)
	}

	return nil
}

// loadConfig reads and decodes a run file, rejecting unknown keys so typos
// do not silently fall back to defaults.
func loadConfig(path string) (*runConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var cfg runConfig
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(cfg.Data) == 0 {
		return nil, fmt.Errorf("%s: no data files", path)
	}
	if len(cfg.Holdout) == 0 {
		return nil, fmt.Errorf("%s: no holdout files", path)
	}

	return &cfg, nil
}

// options maps the run file onto flame.Options, starting from the library
// defaults.
func (c *runConfig) options(logger zerolog.Logger) (flame.Options, error) {
	opts := flame.DefaultOptions()

	switch strings.ToLower(c.Algorithm) {
	case "", "flame":
		opts.Algo = flame.FLAME
	case "dame":
		opts.Algo = flame.DAME
	default:
		return opts, fmt.Errorf("unknown algorithm %q", c.Algorithm)
	}
	opts.FLAMEIters = c.FLAMEIters

	if c.C != nil {
		opts.C = *c.C
	}
	opts.Replace = c.Replace

	switch strings.ToLower(c.Missing) {
	case "", "skip":
		opts.Missing = bitmatch.SkipMissing
	case "match":
		opts.Missing = bitmatch.MatchMissing
	default:
		return opts, fmt.Errorf("unknown missing policy %q", c.Missing)
	}

	switch strings.ToLower(c.Fitter) {
	case "", "ridge":
		// DefaultOptions already selects ridge
	case "boost":
		opts.Fitter = pefit.NewBoost()
	default:
		return opts, fmt.Errorf("unknown fitter %q", c.Fitter)
	}

	opts.Seed = c.Seed
	opts.Workers = c.Workers
	opts.Trace = c.Trace

	if c.EarlyStop.Iterations != nil {
		opts.EarlyStop.Iterations = *c.EarlyStop.Iterations
	}
	if c.EarlyStop.PEEpsilon != nil {
		opts.EarlyStop.PEEpsilon = *c.EarlyStop.PEEpsilon
	}
	if c.EarlyStop.PEAbsolute != nil {
		opts.EarlyStop.PEAbsolute = *c.EarlyStop.PEAbsolute
	}
	if c.EarlyStop.BFFloor != nil {
		opts.EarlyStop.BFFloor = *c.EarlyStop.BFFloor
	}
	if c.EarlyStop.ControlFloor != nil {
		opts.EarlyStop.UnmatchedControlFloor = *c.EarlyStop.ControlFloor
	}
	if c.EarlyStop.TreatedFloor != nil {
		opts.EarlyStop.UnmatchedTreatedFloor = *c.EarlyStop.TreatedFloor
	}
	opts.Logger = logger

	return opts, nil
}

// schema maps the column assignment onto a frame.Schema bound to book.
func (c *runConfig) schema(book *frame.Codebook) (frame.Schema, error) {
	kind, err := parseKind(c.OutcomeKind)
	if err != nil {
		return frame.Schema{}, err
	}

	return frame.Schema{
		Treatment:    c.Columns.Treatment,
		Outcome:      c.Columns.Outcome,
		ID:           c.Columns.ID,
		Covariates:   c.Columns.Covariates,
		MissingToken: c.Columns.MissingToken,
		Kind:         kind,
		Codebook:     book,
	}, nil
}

// parseKind maps the config spelling onto cohort.OutcomeKind. Empty defers
// to inference.
func parseKind(name string) (cohort.OutcomeKind, error) {
	switch strings.ToLower(name) {
	case "":
		return cohort.Absent, nil
	case "continuous":
		return cohort.Continuous, nil
	case "binary":
		return cohort.Binary, nil
	case "multiclass":
		return cohort.Multiclass, nil
	default:
		return cohort.Absent, fmt.Errorf("unknown outcome kind %q", name)
	}
}
