// SPDX-License-Identifier: MIT

// Package frame_test exercises CSV ingestion: role-column parsing, shared
// dictionaries, missing-value handling, outcome-kind inference and the
// failure modes.
package frame_test

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/katalvlaran/amatch/cohort"
	"github.com/katalvlaran/amatch/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mkTable parses src under s, failing the test on error.
func mkTable(t *testing.T, src string, s frame.Schema) *frame.Table {
	t.Helper()
	tab, err := frame.ReadCSV(strings.NewReader(src), s)
	require.NoError(t, err)

	return tab
}

// TestReadCSV_RolesAndCodes parses a full table: explicit IDs, both bool
// spellings of treatment, float outcomes, and first-seen code assignment
// per covariate column.
func TestReadCSV_RolesAndCodes(t *testing.T) {
	src := "unit,treat,y,color,size\n" +
		"10,1,2.5,red,S\n" +
		"11,0,1.0,blue,M\n" +
		"12,true,3.5,red,L\n" +
		"13,false,0.5,green,S\n"
	tab := mkTable(t, src, frame.Schema{Treatment: "treat", Outcome: "y", ID: "unit"})

	assert.Equal(t, 4, tab.Rows())
	assert.Equal(t, 2, tab.Covariates())
	assert.Equal(t, []string{"color", "size"}, tab.Names(), "auto covariates keep header order")
	assert.Equal(t, cohort.Continuous, tab.Kind())

	units := tab.Units()
	require.Len(t, units, 4)
	assert.Equal(t, cohort.Unit{ID: 10, Treated: true, Outcome: 2.5, Codes: []int{0, 0}}, units[0])
	assert.Equal(t, cohort.Unit{ID: 11, Treated: false, Outcome: 1.0, Codes: []int{1, 1}}, units[1])
	assert.Equal(t, cohort.Unit{ID: 12, Treated: true, Outcome: 3.5, Codes: []int{0, 2}}, units[2])
	assert.Equal(t, cohort.Unit{ID: 13, Treated: false, Outcome: 0.5, Codes: []int{2, 0}}, units[3])

	// Dictionary introspection.
	book := tab.Book()
	assert.Equal(t, 3, book.Levels(0))
	assert.Equal(t, 3, book.Levels(1))
	token, ok := book.Token(0, 1)
	require.True(t, ok)
	assert.Equal(t, "blue", token)
	_, ok = book.Token(0, cohort.MissingCode)
	assert.False(t, ok, "sentinels never decode")
	_, ok = book.Token(9, 0)
	assert.False(t, ok)

	// Rows convert to a valid store.
	st, err := tab.ToUnitStore()
	require.NoError(t, err)
	tt, tc := st.Totals()
	assert.Equal(t, 2, tt)
	assert.Equal(t, 2, tc)
	assert.Equal(t, cohort.Continuous, st.Kind())
}

// TestReadCSV_ExplicitCovariates narrows and reorders the covariates, and
// numbers rows from zero without an ID column.
func TestReadCSV_ExplicitCovariates(t *testing.T) {
	src := "treat,y,a,b,c\n" +
		"1,1,x,u,p\n" +
		"0,0,y,v,q\n"
	tab := mkTable(t, src, frame.Schema{
		Treatment:  "treat",
		Outcome:    "y",
		Covariates: []string{"c", "a"},
	})

	assert.Equal(t, []string{"c", "a"}, tab.Names(), "explicit order wins over header order")
	assert.Equal(t, cohort.Binary, tab.Kind(), "0/1 outcomes infer binary")

	u0, u1 := tab.Unit(0), tab.Unit(1)
	assert.Equal(t, 0, u0.ID)
	assert.Equal(t, 1, u1.ID)
	assert.Equal(t, []int{0, 0}, u0.Codes, "p and x are the first tokens of their columns")
	assert.Equal(t, []int{1, 1}, u1.Codes)

	// Unit assembles fresh slices; mutating one row does not leak back.
	u0.Codes[0] = 99
	assert.Equal(t, []int{0, 0}, tab.Unit(0).Codes)
}

// TestReadCSV_MissingTokens maps empty cells and the schema token to
// MissingCode and keeps both out of the dictionaries. Cells are trimmed.
func TestReadCSV_MissingTokens(t *testing.T) {
	src := "treat,a,b\n" +
		"1,,NA\n" +
		"0,red,NA\n" +
		"1, red ,blue\n"
	tab := mkTable(t, src, frame.Schema{Treatment: "treat", MissingToken: "NA"})

	assert.Equal(t, cohort.Absent, tab.Kind(), "no outcome column reads as absent")
	assert.Equal(t, []int{cohort.MissingCode, cohort.MissingCode}, tab.Unit(0).Codes)
	assert.Equal(t, []int{0, cohort.MissingCode}, tab.Unit(1).Codes)
	assert.Equal(t, []int{0, 0}, tab.Unit(2).Codes, "padded token must trim to the same level")

	book := tab.Book()
	assert.Equal(t, 1, book.Levels(0), "missing never enters the dictionary")
	assert.Equal(t, 1, book.Levels(1))
}

// TestReadCSV_SharedCodebook reads a data table and a holdout table with a
// different column order through one codebook: tokens keep their codes,
// new levels extend the maps, and columns land in pinned order.
func TestReadCSV_SharedCodebook(t *testing.T) {
	book := frame.NewCodebook()
	dataSchema := frame.Schema{Treatment: "treat", Outcome: "y", Codebook: book}

	data := mkTable(t, "treat,y,a,b\n1,2.0,red,S\n0,1.0,blue,M\n", dataSchema)
	assert.Equal(t, []string{"a", "b"}, data.Names())

	// The holdout file lists its columns in another order and carries one
	// unseen level per covariate.
	hold := mkTable(t, "b,treat,a,y\nL,1,blue,4.0\nS,0,green,2.0\n", dataSchema)
	assert.Equal(t, []string{"a", "b"}, hold.Names(), "columns land in pinned order")
	assert.Equal(t, []int{1, 2}, hold.Unit(0).Codes, "blue keeps its data code, L extends b")
	assert.Equal(t, []int{2, 0}, hold.Unit(1).Codes, "green extends a, S keeps its data code")
	assert.Equal(t, 3, book.Levels(0))
	assert.Equal(t, 3, book.Levels(1))

	// A table missing a pinned covariate is rejected.
	_, err := frame.ReadCSV(strings.NewReader("treat,y,a\n1,1.0,red\n"), dataSchema)
	assert.ErrorIs(t, err, frame.ErrCodebookMismatch)

	// So is one with an extra covariate.
	_, err = frame.ReadCSV(strings.NewReader("treat,y,a,b,c\n1,1.0,red,S,zz\n"), dataSchema)
	assert.ErrorIs(t, err, frame.ErrCodebookMismatch)
}

// TestReadCSV_KindInference checks the inference rule and its override.
func TestReadCSV_KindInference(t *testing.T) {
	binary := mkTable(t, "treat,y,a\n1,0,x\n0,1,y\n", frame.Schema{Treatment: "treat", Outcome: "y"})
	assert.Equal(t, cohort.Binary, binary.Kind())

	cont := mkTable(t, "treat,y,a\n1,0,x\n0,2,y\n", frame.Schema{Treatment: "treat", Outcome: "y"})
	assert.Equal(t, cohort.Continuous, cont.Kind())

	// Multiclass is never inferred, only selected.
	multi := mkTable(t, "treat,y,a\n1,0,x\n0,2,y\n", frame.Schema{
		Treatment: "treat",
		Outcome:   "y",
		Kind:      cohort.Multiclass,
	})
	assert.Equal(t, cohort.Multiclass, multi.Kind())
	_, err := multi.ToUnitStore()
	require.NoError(t, err, "integral class codes satisfy the multiclass store")
}

// TestReadCSV_SchemaErrors rejects every unusable schema before reading.
func TestReadCSV_SchemaErrors(t *testing.T) {
	src := "treat,y,a\n1,1.0,x\n"
	cases := map[string]frame.Schema{
		"no treatment":        {Outcome: "y"},
		"kind without column": {Treatment: "treat", Kind: cohort.Continuous},
		"unknown kind":        {Treatment: "treat", Outcome: "y", Kind: cohort.OutcomeKind(9)},
		"outcome is treat":    {Treatment: "treat", Outcome: "treat"},
		"id is treat":         {Treatment: "treat", ID: "treat"},
		"id is outcome":       {Treatment: "treat", Outcome: "y", ID: "y"},
		"covariate is role":   {Treatment: "treat", Outcome: "y", Covariates: []string{"y"}},
		"covariate repeats":   {Treatment: "treat", Covariates: []string{"a", "a"}},
		"covariate unnamed":   {Treatment: "treat", Covariates: []string{""}},
	}
	for name, s := range cases {
		_, err := frame.ReadCSV(strings.NewReader(src), s)
		assert.ErrorIs(t, err, frame.ErrBadSchema, name)
	}
}

// TestReadCSV_HeaderErrors rejects headers the schema cannot bind to.
func TestReadCSV_HeaderErrors(t *testing.T) {
	base := frame.Schema{Treatment: "treat", Outcome: "y"}

	_, err := frame.ReadCSV(strings.NewReader(""), base)
	assert.ErrorIs(t, err, frame.ErrBadHeader, "empty input")

	_, err = frame.ReadCSV(strings.NewReader("arm,y,a\n1,1.0,x\n"), base)
	assert.ErrorIs(t, err, frame.ErrBadHeader, "treatment column missing")

	_, err = frame.ReadCSV(strings.NewReader("treat,out,a\n1,1.0,x\n"), base)
	assert.ErrorIs(t, err, frame.ErrBadHeader, "outcome column missing")

	s := base
	s.ID = "unit"
	_, err = frame.ReadCSV(strings.NewReader("treat,y,a\n1,1.0,x\n"), s)
	assert.ErrorIs(t, err, frame.ErrBadHeader, "id column missing")

	_, err = frame.ReadCSV(strings.NewReader("treat,y,a,a\n1,1.0,x,x\n"), base)
	assert.ErrorIs(t, err, frame.ErrBadHeader, "duplicate header column")

	s = base
	s.Covariates = []string{"zz"}
	_, err = frame.ReadCSV(strings.NewReader("treat,y,a\n1,1.0,x\n"), s)
	assert.ErrorIs(t, err, frame.ErrBadHeader, "unknown covariate column")

	_, err = frame.ReadCSV(strings.NewReader("treat,y\n1,1.0\n"), base)
	assert.ErrorIs(t, err, frame.ErrBadHeader, "no covariate columns left")

	_, err = frame.ReadCSV(strings.NewReader("treat,y,a\n"), base)
	assert.ErrorIs(t, err, frame.ErrNoRows, "header without rows")
}

// TestReadCSV_CellErrors pinpoints unparsable role cells and passes csv
// structural errors through.
func TestReadCSV_CellErrors(t *testing.T) {
	base := frame.Schema{Treatment: "treat", Outcome: "y", ID: "unit"}

	_, err := frame.ReadCSV(strings.NewReader("unit,treat,y,a\n7,maybe,1.0,x\n"), base)
	assert.ErrorIs(t, err, frame.ErrBadCell, "bad treatment cell")

	_, err = frame.ReadCSV(strings.NewReader("unit,treat,y,a\n7,1,high,x\n"), base)
	assert.ErrorIs(t, err, frame.ErrBadCell, "bad outcome cell")

	_, err = frame.ReadCSV(strings.NewReader("unit,treat,y,a\nseven,1,1.0,x\n"), base)
	assert.ErrorIs(t, err, frame.ErrBadCell, "bad id cell")

	_, err = frame.ReadCSV(strings.NewReader("unit,treat,y,a\n7,1,1.0\n"), base)
	assert.ErrorIs(t, err, csv.ErrFieldCount, "ragged rows surface the csv error")
}

// TestTable_ToUnitStore_Validation defers unit-level validation to the
// cohort constructor and surfaces its sentinels.
func TestTable_ToUnitStore_Validation(t *testing.T) {
	dup := mkTable(t, "unit,treat,a\n5,1,x\n5,0,y\n",
		frame.Schema{Treatment: "treat", ID: "unit"})
	_, err := dup.ToUnitStore()
	assert.ErrorIs(t, err, cohort.ErrDuplicateUnitID)

	oneArm := mkTable(t, "treat,a\n1,x\n1,y\n", frame.Schema{Treatment: "treat"})
	_, err = oneArm.ToUnitStore()
	assert.ErrorIs(t, err, cohort.ErrNoControlUnits)
}
