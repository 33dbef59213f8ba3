// SPDX-License-Identifier: MIT

// Package frame reads matching tables from CSV into the cohort data model.
//
// # What
//
// A Schema names the column roles of a header-bearing CSV: the treatment
// indicator, an optional outcome, an optional unit ID, and the covariate
// columns. ReadCSV parses the file, encodes every covariate token to a
// dense integer code through a per-column dictionary, and returns a Table
// that converts to a *cohort.UnitStore.
//
// # Shared dictionaries
//
// Codes are only meaningful when data and holdout tables agree on them, so
// the dictionaries live in a Codebook that can be shared across reads: the
// first read pins the covariate column order, later reads are permuted to
// it and extend the same token maps. Reads against one codebook must be
// sequential.
//
// # Missing values
//
// An empty covariate cell, or one equal to Schema.MissingToken, becomes
// cohort.MissingCode and never enters a dictionary. Treatment, outcome and
// ID cells have no missing form; an unparsable cell fails the read.
package frame
