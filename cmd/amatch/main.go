// SPDX-License-Identifier: MIT

// Command amatch runs almost-matching-exactly searches over CSV cohorts.
// A YAML run file names the inputs, the column roles and the search knobs;
// every imputation writes a result_<k>.json and a units_<k>.csv.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "amatch",
	Short: "Almost matching exactly for observational data",
	Long: `amatch pairs treated and control units that agree exactly on as many
covariates as possible, dropping one covariate per iteration in the order
that best preserves outcome predictability, and reports the matched groups
with their effect estimates.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
