// Package amatch is your in-memory toolkit for almost-matching-exactly
// analysis of observational data: exact-match groups, iterative covariate
// dropping (FLAME and DAME) and per-group treatment effects.
//
// 🚀 What is amatch?
//
//	A pure-Go implementation of the Almost Matching Exactly family:
//		• Unit stores: categorical covariates, treated/control arms, match state
//		• Bit-signature grouping: exact matching on any covariate subset
//		• Lattice search: FLAME (greedy) & DAME (exhaustive) covariate dropping
//		• Predictive error: ridge (closed-form GCV) & boosted stumps (grid CV)
//		• Early stopping: six rules, from PE degradation to arm exhaustion
//		• Multiple imputation: bundle fan-out with per-imputation results
//
// ✨ Why choose amatch?
//
//   - Interpretable – every matched group names the covariates it agrees on
//   - Reproducible – seeded fits, deterministic searches, stable group order
//   - Pure Go – no cgo, no Python sidecar
//   - Composable – pluggable PE fitters, CSV ingestion or in-code stores
//
// Under the hood, everything is organized under six packages:
//
//	cohort/   — units, stores, covariate sets & imputation bundles
//	bitmatch/ — bit-vector exact matching on covariate subsets
//	pefit/    — predictive-error estimators (ridge, boosted stumps)
//	flame/    — the search engine: scoring, committing, stopping, results
//	frame/    — CSV ingestion with shared codebooks
//	cmd/      — the amatch command: YAML runs, JSON & CSV reports
//
// Quick sketch of one search:
//
//	      {age, sex, smoker}                 exact pass
//	     /         |         \
//	{sex,smoker} {age,smoker} {age,sex}      drop one, score, commit the best
//
//	every committed set turns identical code signatures into matched groups,
//	and units matched earlier never lose their groups.
//
// Dive into the examples directory for full scenarios, from a clinical
// cohort to pooled survey imputations.
//
//	go get github.com/katalvlaran/amatch
package amatch
