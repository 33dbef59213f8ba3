// SPDX-License-Identifier: MIT

// Package frame - shared covariate dictionaries.
//
// A Codebook maps covariate tokens to dense integer codes, one dictionary
// per covariate column. The first table read against a book pins the
// covariate names and their order; every later read must present the same
// names (any order) and is permuted to the pinned order, so code j of
// covariate k means the same token in every table sharing the book.
package frame

import (
	"fmt"
)

// Codebook holds the pinned covariate order and one token dictionary per
// covariate. Codes are assigned in first-seen order across all reads
// sharing the book, which keeps them deterministic for a fixed read order.
// A Codebook is not safe for concurrent use.
type Codebook struct {
	names  []string         // pinned covariate names, in table order
	pos    map[string]int   // name -> pinned column
	levels []map[string]int // per column: token -> code
	labels [][]string       // per column: code -> token
}

// NewCodebook returns an empty book; the first read pins it.
func NewCodebook() *Codebook {
	return &Codebook{pos: make(map[string]int)}
}

// Covariates returns a copy of the pinned covariate names.
func (cb *Codebook) Covariates() []string {
	out := make([]string, len(cb.names))
	copy(out, cb.names)

	return out
}

// Levels reports the number of distinct codes assigned to covariate col.
func (cb *Codebook) Levels(col int) int {
	if col < 0 || col >= len(cb.labels) {
		return 0
	}

	return len(cb.labels[col])
}

// Token decodes a covariate code back to its original token. The second
// return is false for out-of-range columns and for codes never assigned,
// including the reserved negative sentinels.
func (cb *Codebook) Token(col, code int) (string, bool) {
	if col < 0 || col >= len(cb.labels) || code < 0 || code >= len(cb.labels[col]) {
		return "", false
	}

	return cb.labels[col][code], true
}

// bind pins the book to names on first use, or verifies that names is a
// permutation of the pinned set. It returns, per local column k, the pinned
// column names[k] maps to.
func (cb *Codebook) bind(names []string) ([]int, error) {
	var (
		perm = make([]int, len(names))
		k    int
	)

	if len(cb.names) == 0 {
		cb.names = make([]string, len(names))
		copy(cb.names, names)
		cb.levels = make([]map[string]int, len(names))
		cb.labels = make([][]string, len(names))
		for k = range names {
			if _, dup := cb.pos[names[k]]; dup {
				return nil, fmt.Errorf("frame: covariate %q repeats: %w", names[k], ErrCodebookMismatch)
			}
			cb.pos[names[k]] = k
			cb.levels[k] = make(map[string]int)
			perm[k] = k
		}

		return perm, nil
	}

	if len(names) != len(cb.names) {
		return nil, fmt.Errorf("frame: %d covariates where the book has %d: %w",
			len(names), len(cb.names), ErrCodebookMismatch)
	}
	seen := make(map[int]struct{}, len(names))
	for k = range names {
		p, ok := cb.pos[names[k]]
		if !ok {
			return nil, fmt.Errorf("frame: covariate %q not in book: %w", names[k], ErrCodebookMismatch)
		}
		if _, dup := seen[p]; dup {
			return nil, fmt.Errorf("frame: covariate %q repeats: %w", names[k], ErrCodebookMismatch)
		}
		seen[p] = struct{}{}
		perm[k] = p
	}

	return perm, nil
}

// encode returns the code of token in column col, assigning the next dense
// code on first sight.
func (cb *Codebook) encode(col int, token string) int {
	if code, ok := cb.levels[col][token]; ok {
		return code
	}
	code := len(cb.labels[col])
	cb.levels[col][token] = code
	cb.labels[col] = append(cb.labels[col], token)

	return code
}
