package cleaning

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/matrix"
	"quantlab-factor-library/internal/metrics"
)

var nan = math.NaN()

func days(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
	}
	return out
}

func TestClean_EmptyInput(t *testing.T) {
	out := Clean(&matrix.Wide{}, nil, DefaultOptions())
	assert.True(t, out.Empty())

	out = Clean(nil, nil, DefaultOptions())
	assert.True(t, out.Empty())
}

func TestClean_AllRowsDegenerate(t *testing.T) {
	// 3 dates x 2 tickers, one date all-missing, the other two constant
	raw := matrix.FromRows(days(3), []string{"A", "B"}, [][]float64{
		{nan, nan},
		{5, 5},
		{2, 2},
	})
	opts := DefaultOptions()
	opts.MinCoverage = 0.5

	out := Clean(raw, nil, opts)

	assert.Equal(t, 0, out.Rows())
}

func TestNeutralize_SectorDemean(t *testing.T) {
	sectors := domain.SectorMap{"A": "Tech", "B": "Tech", "C": "Health"}
	raw := matrix.FromRows(days(1), []string{"A", "B", "C"}, [][]float64{{1, 3, 5}})

	out := Neutralize(raw, NeutralizeSector, sectors)

	assert.Equal(t, []float64{-1, 1, 0}, out.Values[0])
}

func TestNeutralize_SectorDropsUnmapped(t *testing.T) {
	sectors := domain.SectorMap{"A": "Tech", "B": "Tech"}
	raw := matrix.FromRows(days(1), []string{"A", "B", "X"}, [][]float64{{1, 3, 7}})

	out := Neutralize(raw, NeutralizeSector, sectors)

	assert.Equal(t, -1.0, out.Values[0][0])
	assert.Equal(t, 1.0, out.Values[0][1])
	assert.True(t, math.IsNaN(out.Values[0][2]))
}

func TestNeutralize_NilSectorMapPassesThrough(t *testing.T) {
	raw := matrix.FromRows(days(1), []string{"A", "B"}, [][]float64{{1, 3}})

	out := Neutralize(raw, NeutralizeSector, nil)

	assert.Equal(t, []float64{1, 3}, out.Values[0])
}

func TestNeutralize_Global(t *testing.T) {
	raw := matrix.FromRows(days(1), []string{"A", "B", "C"}, [][]float64{{1, nan, 5}})

	out := Neutralize(raw, NeutralizeGlobal, nil)

	assert.Equal(t, -2.0, out.Values[0][0])
	assert.True(t, math.IsNaN(out.Values[0][1]))
	assert.Equal(t, 2.0, out.Values[0][2])
}

func TestFill_Median(t *testing.T) {
	raw := matrix.FromRows(days(2), []string{"A", "B", "C"}, [][]float64{
		{1, nan, 5},
		{nan, nan, nan},
	})

	out := Fill(raw, FillMedian, nil)

	assert.Equal(t, []float64{1, 3, 5}, out.Values[0])
	assert.True(t, math.IsNaN(out.Values[1][0]))
}

func TestFill_SectorMedianKeepsUnmappedMissing(t *testing.T) {
	sectors := domain.SectorMap{"A": "Tech", "B": "Tech", "C": "Tech", "D": "Health"}
	raw := matrix.FromRows(days(1), []string{"A", "B", "C", "D", "X"}, [][]float64{{1, 3, nan, nan, nan}})

	out := Fill(raw, FillSectorMedian, sectors)

	row := out.Values[0]
	assert.Equal(t, 2.0, row[2])       // Tech median
	assert.True(t, math.IsNaN(row[3])) // Health has no members with data
	assert.True(t, math.IsNaN(row[4])) // unmapped, untouched
	assert.True(t, math.IsNaN(raw.Values[0][2]), "input must not be mutated")
}

func TestFill_SectorMedianWithoutMapIsNoop(t *testing.T) {
	raw := matrix.FromRows(days(1), []string{"A", "B"}, [][]float64{{1, nan}})

	out := Fill(raw, FillSectorMedian, nil)

	assert.True(t, math.IsNaN(out.Values[0][1]))
}

func TestCoverageFilter(t *testing.T) {
	raw := matrix.FromRows(days(3), []string{"A", "B", "C", "D"}, [][]float64{
		{1, nan, nan, nan}, // 0.25
		{1, 2, nan, nan},   // 0.5
		{1, 2, 3, 4},       // 1.0
	})

	out := CoverageFilter(raw, 0.5)
	require.Equal(t, 2, out.Rows())
	assert.Equal(t, raw.Dates[1], out.Dates[0])

	disabled := CoverageFilter(raw, 0)
	assert.Equal(t, 3, disabled.Rows())
}

func TestWinsorize_BoundsRespected(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rows := make([][]float64, 20)
	for i := range rows {
		rows[i] = make([]float64, 50)
		for j := range rows[i] {
			rows[i][j] = rng.NormFloat64() * 10
			if j%11 == 0 {
				rows[i][j] = nan
			}
		}
		rows[i][3] = 1e6 // outlier
	}
	raw := matrix.FromRows(days(20), make([]string, 50), rows)

	out := Winsorize(raw, 0.05, 0.95)

	for i := range raw.Values {
		vals := matrix.Valid(raw.Values[i])
		lo := metrics.Quantile(vals, 0.05)
		hi := metrics.Quantile(vals, 0.95)
		for j, v := range out.Values[i] {
			if math.IsNaN(raw.Values[i][j]) {
				assert.True(t, math.IsNaN(v))
				continue
			}
			assert.GreaterOrEqual(t, v, lo)
			assert.LessOrEqual(t, v, hi)
		}
	}
}

func TestWinsorize_AllMissingRowUnchanged(t *testing.T) {
	raw := matrix.FromRows(days(1), []string{"A", "B"}, [][]float64{{nan, nan}})

	out := Winsorize(raw, 0.01, 0.99)

	assert.True(t, math.IsNaN(out.Values[0][0]))
	assert.True(t, math.IsNaN(out.Values[0][1]))
}

func TestZScore_DegenerateRows(t *testing.T) {
	raw := matrix.FromRows(days(3), []string{"A", "B", "C"}, [][]float64{
		{1, nan, nan}, // single value: std 0
		{0.1, 0.1, 0.1},
		{1, 2, 3},
	})

	out := ZScore(raw)

	for i := 0; i < 2; i++ {
		for _, v := range out.Values[i] {
			assert.True(t, math.IsNaN(v), "row %d", i)
		}
	}
	assertStandardized(t, out.Values[2])
}

func TestZScore_Idempotent(t *testing.T) {
	raw := matrix.FromRows(days(1), []string{"A", "B", "C", "D"}, [][]float64{{3, -1, 8, 2.5}})

	once := ZScore(raw)
	twice := ZScore(once)

	for j := range once.Values[0] {
		assert.InDelta(t, once.Values[0][j], twice.Values[0][j], 1e-12)
	}
}

func TestClean_OutputProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tickers := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	sectors := domain.SectorMap{"A": "s1", "B": "s1", "C": "s1", "D": "s2", "E": "s2", "F": "s2", "G": "s3", "H": "s3"}
	rows := make([][]float64, 30)
	for i := range rows {
		rows[i] = make([]float64, len(tickers))
		for j := range rows[i] {
			rows[i][j] = rng.Float64() * 100
			if rng.Float64() < 0.4 {
				rows[i][j] = nan
			}
		}
	}
	raw := matrix.FromRows(days(30), tickers, rows)
	opts := DefaultOptions()
	opts.MinCoverage = 0.5
	opts.Fill = FillNone
	before := raw.Clone()

	out := Clean(raw, sectors, opts)

	for i, d := range out.Dates {
		src := raw.RowOf(d)
		require.GreaterOrEqual(t, src, 0)
		coverage := float64(matrix.CountValid(raw.Values[src])) / float64(raw.Cols())
		assert.GreaterOrEqual(t, coverage, 0.5, "date %s", d)
		assertStandardized(t, out.Values[i])
	}
	for i := range before.Values {
		for j, v := range before.Values[i] {
			assert.Equal(t, math.Float64bits(v), math.Float64bits(raw.Values[i][j]), "input changed at row %d col %d", i, j)
		}
	}
}

func assertStandardized(t *testing.T, row []float64) {
	t.Helper()
	vals := matrix.Valid(row)
	require.NotEmpty(t, vals)
	assert.InDelta(t, 0, metrics.Mean(vals), 1e-9)
	assert.InDelta(t, 1, metrics.PopStddev(vals), 1e-9)
}
