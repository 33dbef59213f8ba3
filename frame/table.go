// SPDX-License-Identifier: MIT

package frame

import (
	"github.com/katalvlaran/amatch/cohort"
)

// Table is the column-oriented result of one ReadCSV call. Covariate codes
// are stored per column in codebook order; rows keep file order.
type Table struct {
	book    *Codebook
	ids     []int
	treated []bool
	outcome []float64 // nil when the schema had no outcome column
	codes   [][]int   // codes[col][row]
	kind    cohort.OutcomeKind
}

// Rows reports the number of data rows.
func (t *Table) Rows() int { return len(t.ids) }

// Covariates reports the number of covariate columns.
func (t *Table) Covariates() int { return len(t.codes) }

// Names returns the covariate column names in code order.
func (t *Table) Names() []string { return t.book.Covariates() }

// Kind returns the resolved outcome kind: the schema override when set,
// otherwise the inferred kind, Absent without an outcome column.
func (t *Table) Kind() cohort.OutcomeKind { return t.kind }

// Book returns the codebook the table was encoded with.
func (t *Table) Book() *Codebook { return t.book }

// Unit assembles row i as a cohort.Unit with a fresh code slice.
func (t *Table) Unit(i int) cohort.Unit {
	codes := make([]int, len(t.codes))
	for col := range t.codes {
		codes[col] = t.codes[col][i]
	}
	u := cohort.Unit{ID: t.ids[i], Treated: t.treated[i], Codes: codes}
	if t.outcome != nil {
		u.Outcome = t.outcome[i]
	}

	return u
}

// Units assembles every row in file order.
func (t *Table) Units() []cohort.Unit {
	out := make([]cohort.Unit, t.Rows())
	var i int
	for i = range out {
		out[i] = t.Unit(i)
	}

	return out
}

// ToUnitStore converts the table to a validated unit store carrying the
// table's outcome kind.
func (t *Table) ToUnitStore() (*cohort.UnitStore, error) {
	return cohort.NewUnitStore(t.Units(), t.kind)
}
