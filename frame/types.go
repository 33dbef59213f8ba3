// SPDX-License-Identifier: MIT

package frame

import (
	"errors"

	"github.com/katalvlaran/amatch/cohort"
)

// Schema names the column roles of a matching CSV. Treatment is the only
// required role; every other field narrows or overrides the defaults.
type Schema struct {
	// Treatment is the treatment-indicator column. Cells are parsed with
	// strconv.ParseBool, so 0/1 and true/false spellings all work.
	Treatment string

	// Outcome is the outcome column; empty reads a table without outcomes
	// (kind Absent, usable as matching data but not as a holdout).
	Outcome string

	// ID is the unit-ID column (integer cells). Empty numbers the rows
	// from zero in file order.
	ID string

	// Covariates lists the covariate columns explicitly. Empty takes every
	// header column that is not a role column, in header order.
	Covariates []string

	// MissingToken is a covariate cell value read as missing. Empty cells
	// are always missing, whatever the token.
	MissingToken string

	// Kind overrides outcome-kind inference. The zero value (Absent)
	// infers: outcomes all in {0,1} read as Binary, anything else as
	// Continuous; Multiclass is only ever selected explicitly.
	Kind cohort.OutcomeKind

	// Codebook carries shared covariate dictionaries across reads. Nil
	// gives the table a private book.
	Codebook *Codebook
}

// Sentinel errors returned by ReadCSV and Table conversion.
var (
	// ErrBadSchema indicates an unusable Schema (no treatment column,
	// colliding role columns, a kind override without an outcome column).
	ErrBadSchema = errors.New("frame: invalid schema")

	// ErrBadHeader indicates a CSV header that cannot satisfy the schema
	// (missing or duplicated columns, no covariate columns left).
	ErrBadHeader = errors.New("frame: header does not satisfy the schema")

	// ErrBadCell indicates an unparsable treatment, outcome or ID cell.
	ErrBadCell = errors.New("frame: cell cannot be parsed")

	// ErrNoRows indicates a CSV with a header but no data rows.
	ErrNoRows = errors.New("frame: no data rows")

	// ErrCodebookMismatch indicates a table whose covariate columns are
	// not a permutation of the codebook's pinned columns.
	ErrCodebookMismatch = errors.New("frame: covariates disagree with the codebook")
)
