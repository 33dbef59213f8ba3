// SPDX-License-Identifier: MIT

// Package frame - CSV parsing.
//
// ReadCSV makes one pass over a header-bearing CSV: role columns are parsed
// strictly, covariate tokens run through the codebook, and missing cells
// become cohort.MissingCode. All structural complaints wrap ErrBadSchema or
// ErrBadHeader; per-cell parse failures wrap ErrBadCell with the row and
// column.
package frame

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/katalvlaran/amatch/cohort"
)

// ReadCSV parses a header-bearing CSV into a Table under the given schema.
// Every cell is whitespace-trimmed before parsing; the reader is consumed
// to EOF. With a shared Schema.Codebook the table's covariate columns are
// permuted to the book's pinned order, so codes align across tables.
//
// Complexity: O(rows · columns).
func ReadCSV(r io.Reader, s Schema) (*Table, error) {
	if err := validateSchema(s); err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("frame: empty input: %w", ErrBadHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("frame: reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
		if _, dup := cols[header[i]]; dup {
			return nil, fmt.Errorf("frame: column %q repeats in header: %w", header[i], ErrBadHeader)
		}
		cols[header[i]] = i
	}

	treatIdx, ok := cols[s.Treatment]
	if !ok {
		return nil, fmt.Errorf("frame: treatment column %q not in header: %w", s.Treatment, ErrBadHeader)
	}
	outIdx := -1
	if s.Outcome != "" {
		if outIdx, ok = cols[s.Outcome]; !ok {
			return nil, fmt.Errorf("frame: outcome column %q not in header: %w", s.Outcome, ErrBadHeader)
		}
	}
	idIdx := -1
	if s.ID != "" {
		if idIdx, ok = cols[s.ID]; !ok {
			return nil, fmt.Errorf("frame: id column %q not in header: %w", s.ID, ErrBadHeader)
		}
	}

	names := s.Covariates
	if len(names) == 0 {
		names = make([]string, 0, len(header))
		for _, name := range header {
			if name == s.Treatment || (s.Outcome != "" && name == s.Outcome) || (s.ID != "" && name == s.ID) {
				continue
			}
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("frame: no covariate columns: %w", ErrBadHeader)
	}
	covIdx := make([]int, len(names))
	for k, name := range names {
		if covIdx[k], ok = cols[name]; !ok {
			return nil, fmt.Errorf("frame: covariate column %q not in header: %w", name, ErrBadHeader)
		}
	}

	book := s.Codebook
	if book == nil {
		book = NewCodebook()
	}
	perm, err := book.bind(names)
	if err != nil {
		return nil, err
	}

	var (
		ids      []int
		treated  []bool
		outcomes []float64
		codes    = make([][]int, len(names))
		row      int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("frame: reading row %d: %w", row+1, err)
		}

		id := row
		if idIdx >= 0 {
			if id, err = strconv.Atoi(strings.TrimSpace(rec[idIdx])); err != nil {
				return nil, fmt.Errorf("frame: row %d, column %q: %w", row+1, s.ID, ErrBadCell)
			}
		}
		tr, err := strconv.ParseBool(strings.TrimSpace(rec[treatIdx]))
		if err != nil {
			return nil, fmt.Errorf("frame: row %d, column %q: %w", row+1, s.Treatment, ErrBadCell)
		}
		if outIdx >= 0 {
			y, err := strconv.ParseFloat(strings.TrimSpace(rec[outIdx]), 64)
			if err != nil {
				return nil, fmt.Errorf("frame: row %d, column %q: %w", row+1, s.Outcome, ErrBadCell)
			}
			outcomes = append(outcomes, y)
		}
		for k, j := range covIdx {
			token := strings.TrimSpace(rec[j])
			code := cohort.MissingCode
			if token != "" && token != s.MissingToken {
				code = book.encode(perm[k], token)
			}
			codes[perm[k]] = append(codes[perm[k]], code)
		}

		ids = append(ids, id)
		treated = append(treated, tr)
		row++
	}
	if row == 0 {
		return nil, ErrNoRows
	}

	kind := cohort.Absent
	switch {
	case outIdx < 0:
		// no outcomes to interpret
	case s.Kind != cohort.Absent:
		kind = s.Kind
	default:
		kind = inferKind(outcomes)
	}

	return &Table{
		book:    book,
		ids:     ids,
		treated: treated,
		outcome: outcomes,
		codes:   codes,
		kind:    kind,
	}, nil
}

// validateSchema rejects schemas no header could satisfy.
func validateSchema(s Schema) error {
	if s.Treatment == "" {
		return fmt.Errorf("frame: treatment column is required: %w", ErrBadSchema)
	}
	switch s.Kind {
	case cohort.Absent, cohort.Continuous, cohort.Binary, cohort.Multiclass:
		// known kind
	default:
		return fmt.Errorf("frame: unknown outcome kind %d: %w", s.Kind, ErrBadSchema)
	}
	if s.Outcome == "" && s.Kind != cohort.Absent {
		return fmt.Errorf("frame: outcome kind %v without an outcome column: %w", s.Kind, ErrBadSchema)
	}
	if s.Outcome != "" && s.Outcome == s.Treatment {
		return fmt.Errorf("frame: outcome and treatment share column %q: %w", s.Outcome, ErrBadSchema)
	}
	if s.ID != "" && (s.ID == s.Treatment || s.ID == s.Outcome) {
		return fmt.Errorf("frame: id column %q doubles as a role column: %w", s.ID, ErrBadSchema)
	}

	seen := make(map[string]struct{}, len(s.Covariates))
	for _, name := range s.Covariates {
		if name == "" {
			return fmt.Errorf("frame: empty covariate name: %w", ErrBadSchema)
		}
		if name == s.Treatment || name == s.Outcome || name == s.ID {
			return fmt.Errorf("frame: covariate %q is a role column: %w", name, ErrBadSchema)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("frame: covariate %q repeats: %w", name, ErrBadSchema)
		}
		seen[name] = struct{}{}
	}

	return nil
}

// inferKind reads outcomes all in {0,1} as Binary and anything else as
// Continuous. Multiclass is never inferred; it must be set explicitly.
func inferKind(outcomes []float64) cohort.OutcomeKind {
	for _, y := range outcomes {
		if y != 0 && y != 1 {
			return cohort.Continuous
		}
	}

	return cohort.Binary
}
