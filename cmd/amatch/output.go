// SPDX-License-Identifier: MIT

package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/katalvlaran/amatch/cohort"
	"github.com/katalvlaran/amatch/flame"
	"github.com/katalvlaran/amatch/frame"
)

// The view types mirror flame.Result with two report concerns folded in:
// predictive errors may be +Inf, which encoding/json refuses, so they
// travel as nullable pointers; and field names follow the snake_case
// convention of the downstream analysis scripts.

type resultView struct {
	RunID          string      `json:"run_id"`
	Imputation     int         `json:"imputation"`
	Stop           string      `json:"stop"`
	Iterations     int         `json:"iterations"`
	BaselinePE     *float64    `json:"baseline_pe"`
	MatchedTreated int         `json:"matched_treated"`
	MatchedControl int         `json:"matched_control"`
	Drops          []dropView  `json:"drops"`
	Groups         []groupView `json:"groups"`
	Units          []unitView  `json:"units"`
	Trace          []scoreView `json:"trace,omitempty"`
}

type dropView struct {
	Iteration  int      `json:"iteration"`
	Covariate  int      `json:"covariate"`
	Set        []int    `json:"set"`
	BF         float64  `json:"bf"`
	PE         *float64 `json:"pe"`
	MQ         *float64 `json:"mq"`
	NewTreated int      `json:"new_treated"`
	NewControl int      `json:"new_control"`
	Groups     int      `json:"groups"`
}

type groupView struct {
	ID        int      `json:"id"`
	Iteration int      `json:"iteration"`
	Set       []int    `json:"set"`
	Values    []int    `json:"values"`
	UnitIDs   []int    `json:"unit_ids"`
	Treated   int      `json:"treated"`
	Control   int      `json:"control"`
	CATE      *float64 `json:"cate"`
}

type unitView struct {
	ID        int     `json:"id"`
	Treated   bool    `json:"treated"`
	Outcome   float64 `json:"outcome"`
	Matched   bool    `json:"matched"`
	Weight    int     `json:"weight"`
	MatchedOn [][]int `json:"matched_on"`
	Codes     []int   `json:"codes"`
}

type scoreView struct {
	Iteration int      `json:"iteration"`
	Set       []int    `json:"set"`
	BF        float64  `json:"bf"`
	PE        *float64 `json:"pe"`
	MQ        *float64 `json:"mq"`
	Scorable  bool     `json:"scorable"`
}

// finite maps NaN and the infinities to nil so they serialize as null.
func finite(f float64) *float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}

func viewResult(res *flame.Result) resultView {
	v := resultView{
		RunID:          res.RunID.String(),
		Imputation:     res.Imputation,
		Stop:           res.Stop.String(),
		Iterations:     res.Iterations,
		BaselinePE:     finite(res.BaselinePE),
		MatchedTreated: res.MatchedTreated,
		MatchedControl: res.MatchedControl,
		Drops:          make([]dropView, 0, len(res.Drops)),
		Groups:         make([]groupView, 0, len(res.Groups)),
		Units:          make([]unitView, 0, len(res.Units)),
	}
	for _, d := range res.Drops {
		v.Drops = append(v.Drops, dropView{
			Iteration:  d.Iteration,
			Covariate:  d.Covariate,
			Set:        d.Set.Indices(),
			BF:         d.BF,
			PE:         finite(d.PE),
			MQ:         finite(d.MQ),
			NewTreated: d.NewTreated,
			NewControl: d.NewControl,
			Groups:     d.Groups,
		})
	}
	for _, g := range res.Groups {
		gv := groupView{
			ID:        g.ID,
			Iteration: g.Iteration,
			Set:       g.Set.Indices(),
			Values:    g.Values,
			UnitIDs:   g.UnitIDs,
			Treated:   g.Treated,
			Control:   g.Control,
		}
		if g.CATEValid {
			gv.CATE = finite(g.CATE)
		}
		v.Groups = append(v.Groups, gv)
	}
	for _, u := range res.Units {
		matchedOn := make([][]int, 0, len(u.MatchedOn))
		for _, set := range u.MatchedOn {
			matchedOn = append(matchedOn, set.Indices())
		}
		v.Units = append(v.Units, unitView{
			ID:        u.ID,
			Treated:   u.Treated,
			Outcome:   u.Outcome,
			Matched:   u.Matched,
			Weight:    u.Weight,
			MatchedOn: matchedOn,
			Codes:     u.Codes,
		})
	}
	if res.Trace != nil {
		v.Trace = make([]scoreView, 0, len(res.Trace))
		for _, s := range res.Trace {
			v.Trace = append(v.Trace, scoreView{
				Iteration: s.Iteration,
				Set:       s.Set.Indices(),
				BF:        s.BF,
				PE:        finite(s.PE),
				MQ:        finite(s.MQ),
				Scorable:  s.Scorable,
			})
		}
	}

	return v
}

// writeResultJSON writes result_<k>.json and returns its path.
func writeResultJSON(dir string, res *flame.Result) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("result_%d.json", res.Imputation))
	buf, err := json.MarshalIndent(viewResult(res), "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, append(buf, '\n'), 0o644); err != nil {
		return "", err
	}

	return path, nil
}

// writeUnitsCSV writes units_<k>.csv, one row per input unit with codes
// decoded back to their source tokens. Masked cells print "*", missing
// cells stay empty.
func writeUnitsCSV(dir string, res *flame.Result, book *frame.Codebook) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("units_%d.csv", res.Imputation))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	header := append([]string{"id", "treated", "outcome", "matched", "weight"}, book.Covariates()...)
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, u := range res.Units {
		rec := make([]string, 0, len(header))
		rec = append(rec,
			strconv.Itoa(u.ID),
			strconv.FormatBool(u.Treated),
			strconv.FormatFloat(u.Outcome, 'g', -1, 64),
			strconv.FormatBool(u.Matched),
			strconv.Itoa(u.Weight),
		)
		for col, code := range u.Codes {
			rec = append(rec, cellToken(book, col, code))
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return path, f.Close()
}

func cellToken(book *frame.Codebook, col, code int) string {
	switch code {
	case cohort.MaskedCode:
		return "*"
	case cohort.MissingCode:
		return ""
	}
	tok, ok := book.Token(col, code)
	if !ok {
		return strconv.Itoa(code)
	}

	return tok
}
