package cleaning

import (
	"math"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/matrix"
	"quantlab-factor-library/internal/metrics"
)

// CoverageFilter drops rows whose non-missing share is below minCoverage.
// minCoverage <= 0 disables the filter.
func CoverageFilter(w *matrix.Wide, minCoverage float64) *matrix.Wide {
	if minCoverage <= 0 || w.Cols() == 0 {
		return w.Clone()
	}
	keep := make([]int, 0, w.Rows())
	total := float64(w.Cols())
	for i, row := range w.Values {
		if float64(matrix.CountValid(row))/total >= minCoverage {
			keep = append(keep, i)
		}
	}
	return w.SelectRows(keep)
}

// Winsorize clips each row to its [lower, upper] quantiles computed over
// non-missing values. All-missing rows pass through.
func Winsorize(w *matrix.Wide, lower, upper float64) *matrix.Wide {
	out := w.Clone()
	for _, row := range out.Values {
		vals := matrix.Valid(row)
		if len(vals) == 0 {
			continue
		}
		lo := metrics.Quantile(vals, lower)
		hi := metrics.Quantile(vals, upper)
		for j, v := range row {
			if math.IsNaN(v) {
				continue
			}
			row[j] = math.Min(math.Max(v, lo), hi)
		}
	}
	return out
}

// Fill replaces missing cells per row. Unknown methods pass through.
func Fill(w *matrix.Wide, method FillMethod, sectors domain.SectorMap) *matrix.Wide {
	switch method {
	case FillMedian:
		return fillMedian(w)
	case FillSectorMedian:
		if sectors == nil {
			return w.Clone()
		}
		return fillSectorMedian(w, sectors)
	default:
		return w.Clone()
	}
}

func fillMedian(w *matrix.Wide) *matrix.Wide {
	out := w.Clone()
	for _, row := range out.Values {
		med := metrics.Median(matrix.Valid(row))
		if math.IsNaN(med) {
			continue
		}
		for j, v := range row {
			if math.IsNaN(v) {
				row[j] = med
			}
		}
	}
	return out
}

// fillSectorMedian fills mapped tickers with their sector's row median.
// Unmapped tickers keep their values, missing or not.
func fillSectorMedian(w *matrix.Wide, sectors domain.SectorMap) *matrix.Wide {
	out := w.Clone()
	groups := sectorGroups(w.Tickers, sectors)
	for _, row := range out.Values {
		for _, cols := range groups {
			med := metrics.Median(groupValid(row, cols))
			if math.IsNaN(med) {
				continue
			}
			for _, j := range cols {
				if math.IsNaN(row[j]) {
					row[j] = med
				}
			}
		}
	}
	return out
}

// Neutralize demeans rows by sector or globally. Unknown methods pass through.
func Neutralize(w *matrix.Wide, method NeutralizeMethod, sectors domain.SectorMap) *matrix.Wide {
	switch method {
	case NeutralizeSector:
		if sectors == nil {
			return w.Clone()
		}
		return sectorNeutralize(w, sectors)
	case NeutralizeGlobal:
		return globalNeutralize(w)
	default:
		return w.Clone()
	}
}

// sectorNeutralize subtracts each sector's row mean from its members.
// Tickers without a sector become missing; all-missing rows pass through.
func sectorNeutralize(w *matrix.Wide, sectors domain.SectorMap) *matrix.Wide {
	out := w.Clone()
	groups := sectorGroups(w.Tickers, sectors)
	for _, row := range out.Values {
		if matrix.CountValid(row) == 0 {
			continue
		}
		for j, t := range w.Tickers {
			if _, ok := sectors[t]; !ok {
				row[j] = math.NaN()
			}
		}
		for _, cols := range groups {
			vals := groupValid(row, cols)
			if len(vals) == 0 {
				continue
			}
			mean := metrics.Mean(vals)
			for _, j := range cols {
				row[j] -= mean
			}
		}
	}
	return out
}

func globalNeutralize(w *matrix.Wide) *matrix.Wide {
	out := w.Clone()
	for _, row := range out.Values {
		vals := matrix.Valid(row)
		if len(vals) == 0 {
			continue
		}
		mean := metrics.Mean(vals)
		for j := range row {
			row[j] -= mean
		}
	}
	return out
}

// ZScore standardizes each row with its mean and population std.
// A row whose std is zero or undefined becomes all-missing.
func ZScore(w *matrix.Wide) *matrix.Wide {
	out := w.Clone()
	for _, row := range out.Values {
		vals := matrix.Valid(row)
		std := metrics.PopStddev(vals)
		if std == 0 || math.IsNaN(std) || constant(vals) {
			for j := range row {
				row[j] = math.NaN()
			}
			continue
		}
		mean := metrics.Mean(vals)
		for j := range row {
			row[j] = (row[j] - mean) / std
		}
	}
	return out
}

// DropAllMissing removes rows without any non-missing cell.
func DropAllMissing(w *matrix.Wide) *matrix.Wide {
	keep := make([]int, 0, w.Rows())
	for i, row := range w.Values {
		if matrix.CountValid(row) > 0 {
			keep = append(keep, i)
		}
	}
	return w.SelectRows(keep)
}

// sectorGroups maps each sector to the column indices of its tickers.
func sectorGroups(tickers []string, sectors domain.SectorMap) map[string][]int {
	groups := make(map[string][]int)
	for j, t := range tickers {
		if s, ok := sectors[t]; ok {
			groups[s] = append(groups[s], j)
		}
	}
	return groups
}

func groupValid(row []float64, cols []int) []float64 {
	vals := make([]float64, 0, len(cols))
	for _, j := range cols {
		if !math.IsNaN(row[j]) {
			vals = append(vals, row[j])
		}
	}
	return vals
}

// constant reports identical values; floating noise in the mean can leave a
// tiny non-zero std for such rows.
func constant(vals []float64) bool {
	for _, v := range vals[1:] {
		if v != vals[0] {
			return false
		}
	}
	return true
}
