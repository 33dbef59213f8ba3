// SPDX-License-Identifier: MIT

// Package flame - deterministic seed derivation for bundle fan-out.
//
// Each imputation of a bundle runs its own search with a child seed derived
// from the caller seed and the imputation index, so parallel runs draw
// uncorrelated fitter streams yet stay fully reproducible.
package flame

// deriveSeed mixes a parent seed and a stream identifier into a new 64-bit
// seed with a SplitMix64-style avalanche (canonical constants, Vigna 2014).
//
// Complexity: O(1).
func deriveSeed(parent int64, stream uint64) int64 {
	var x uint64
	x = uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31

	return int64(x)
}
