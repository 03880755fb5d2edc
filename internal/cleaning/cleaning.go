// Package cleaning turns a raw wide factor matrix into a clean,
// cross-sectionally normalized one. Every step works on one date-row at a
// time; no value ever mixes across dates.
package cleaning

import (
	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/matrix"
)

// FillMethod selects how missing cells are filled.
type FillMethod string

// Fill methods.
const (
	FillNone         FillMethod = "none"
	FillMedian       FillMethod = "median"
	FillSectorMedian FillMethod = "sector_median"
)

// NeutralizeMethod selects how rows are demeaned.
type NeutralizeMethod string

// Neutralize methods.
const (
	NeutralizeSector NeutralizeMethod = "sector"
	NeutralizeGlobal NeutralizeMethod = "global"
)

// Options configures Clean.
type Options struct {
	WinsorLower float64
	WinsorUpper float64
	MinCoverage float64 // 0 disables the coverage filter
	Fill        FillMethod
	Neutralize  NeutralizeMethod
}

// DefaultOptions returns winsor (0.01, 0.99), coverage 0.3, median fill,
// sector neutralization.
func DefaultOptions() Options {
	return Options{
		WinsorLower: 0.01,
		WinsorUpper: 0.99,
		MinCoverage: 0.3,
		Fill:        FillMedian,
		Neutralize:  NeutralizeSector,
	}
}

// Clean runs the pipeline:
//  1. coverage filter
//  2. winsorize
//  3. fill
//  4. neutralize
//  5. z-score
//  6. drop all-missing rows
//
// It never fails and never mutates raw. An empty input yields an empty result.
func Clean(raw *matrix.Wide, sectors domain.SectorMap, opts Options) *matrix.Wide {
	if raw.Empty() {
		if raw == nil {
			return &matrix.Wide{}
		}
		return raw.Clone()
	}

	w := CoverageFilter(raw, opts.MinCoverage)
	w = Winsorize(w, opts.WinsorLower, opts.WinsorUpper)
	w = Fill(w, opts.Fill, sectors)
	w = Neutralize(w, opts.Neutralize, sectors)
	w = ZScore(w)
	return DropAllMissing(w)
}
