package matrix

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantlab-factor-library/internal/domain"
)

var nan = math.NaN()

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func days(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = day(i)
	}
	return out
}

func TestShift_LagAndLead(t *testing.T) {
	w := FromRows(days(3), []string{"A"}, [][]float64{{1}, {2}, {3}})

	lag := w.Shift(1)
	assert.True(t, math.IsNaN(lag.Values[0][0]))
	assert.Equal(t, 1.0, lag.Values[1][0])
	assert.Equal(t, 2.0, lag.Values[2][0])

	lead := w.Shift(-1)
	assert.Equal(t, 2.0, lead.Values[0][0])
	assert.Equal(t, 3.0, lead.Values[1][0])
	assert.True(t, math.IsNaN(lead.Values[2][0]))

	// input untouched
	assert.Equal(t, 1.0, w.Values[0][0])
}

func TestReindexAndFFill(t *testing.T) {
	quarterly := FromRows([]time.Time{day(1), day(4)}, []string{"A"}, [][]float64{{10}, {20}})

	daily := quarterly.Reindex(days(6)).FFill()

	want := []float64{nan, 10, 10, 10, 20, 20}
	for i, v := range want {
		if math.IsNaN(v) {
			assert.True(t, math.IsNaN(daily.Values[i][0]), "row %d", i)
			continue
		}
		assert.Equal(t, v, daily.Values[i][0], "row %d", i)
	}
}

func TestDiv_ZeroDenominatorIsMissing(t *testing.T) {
	a := FromRows(days(1), []string{"A", "B"}, [][]float64{{1, 4}})
	b := FromRows(days(1), []string{"A", "B"}, [][]float64{{0, 2}})

	out := Div(a, b)
	assert.True(t, math.IsNaN(out.Values[0][0]))
	assert.Equal(t, 2.0, out.Values[0][1])
}

func TestAlign_UnionOfIndexes(t *testing.T) {
	a := FromRows([]time.Time{day(0), day(2)}, []string{"A"}, [][]float64{{1}, {3}})
	b := FromRows([]time.Time{day(1)}, []string{"B"}, [][]float64{{5}})

	x, y := Align(a, b)
	require.Equal(t, 3, x.Rows())
	require.Equal(t, []string{"A", "B"}, x.Tickers)
	assert.Equal(t, 3.0, x.Values[2][0])
	assert.Equal(t, 5.0, y.Values[1][1])
	assert.True(t, math.IsNaN(y.Values[0][1]))
}

func TestPctChange_SpansGaps(t *testing.T) {
	w := FromRows(days(5), []string{"A"}, [][]float64{{nan}, {100}, {nan}, {121}, {nan}})

	got := w.PctChange(1)

	assert.True(t, math.IsNaN(got.Values[0][0]), "before the first price")
	assert.True(t, math.IsNaN(got.Values[1][0]), "no prior price")
	assert.InDelta(t, 0, got.Values[2][0], 1e-12)
	assert.InDelta(t, 0.21, got.Values[3][0], 1e-12)
	assert.InDelta(t, 0, got.Values[4][0], 1e-12)
	assert.True(t, math.IsNaN(w.Values[2][0]), "input untouched")
}

func TestAlign_SameInstantInOtherLocation(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	a := FromRows([]time.Time{day(0)}, []string{"A"}, [][]float64{{1}})
	b := FromRows([]time.Time{day(0).In(est)}, []string{"B"}, [][]float64{{2}})

	x, y := Align(a, b)
	require.Equal(t, 1, x.Rows())
	assert.Equal(t, time.UTC, x.Dates[0].Location())
	assert.Equal(t, 1.0, x.Values[0][0])
	assert.Equal(t, 2.0, y.Values[0][1])
}

func TestPivot_SameInstantInOtherLocation(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	w := Pivot([]*domain.Record{
		{Ticker: "A", Date: day(0), Values: map[string]float64{"close": 1}},
		{Ticker: "A", Date: day(0).In(est), Values: map[string]float64{"close": 3}},
	}, "close")

	require.Equal(t, 1, w.Rows())
	assert.Equal(t, 2.0, w.Values[0][0])
}

func TestRolling_MinPeriods(t *testing.T) {
	w := FromRows(days(4), []string{"A"}, [][]float64{{1}, {nan}, {3}, {5}})

	strict := w.RollingMean(2, 0)
	assert.True(t, math.IsNaN(strict.Values[0][0]))
	assert.True(t, math.IsNaN(strict.Values[1][0]))
	assert.True(t, math.IsNaN(strict.Values[2][0]))
	assert.Equal(t, 4.0, strict.Values[3][0])

	loose := w.RollingMean(2, 1)
	assert.Equal(t, 1.0, loose.Values[1][0])
	assert.Equal(t, 3.0, loose.Values[2][0])
}

func TestRollingStd_Sample(t *testing.T) {
	w := FromRows(days(3), []string{"A"}, [][]float64{{1}, {2}, {3}})
	std := w.RollingStd(3, 0)
	assert.InDelta(t, 1.0, std.Values[2][0], 1e-12)
}

func TestPivot_AveragesDuplicates(t *testing.T) {
	records := []*domain.Record{
		{Ticker: "B", Date: day(1), Values: map[string]float64{"close": 4}},
		{Ticker: "A", Date: day(0), Values: map[string]float64{"close": 1}},
		{Ticker: "A", Date: day(0), Values: map[string]float64{"close": 3}},
		{Ticker: "A", Date: day(1), Values: map[string]float64{"volume": 7}},
	}

	w := Pivot(records, "close")
	require.Equal(t, []string{"A", "B"}, w.Tickers)
	require.Equal(t, 2, w.Rows())
	assert.Equal(t, 2.0, w.Values[0][0])
	assert.True(t, math.IsNaN(w.Values[1][0]))
	assert.Equal(t, 4.0, w.Values[1][1])
}

func TestStackUnstack(t *testing.T) {
	w := FromRows(days(2), []string{"A", "B"}, [][]float64{{1, nan}, {nan, 2}})

	cells := w.Stack()
	require.Len(t, cells, 2)
	assert.Equal(t, Cell{Date: day(0), Ticker: "A", Value: 1}, cells[0])

	back := Unstack(cells)
	assert.Equal(t, 2.0, back.Get(day(1), "B"))
	assert.True(t, math.IsNaN(back.Get(day(0), "B")))
}

func TestCumSum_TreatsMissingAsZero(t *testing.T) {
	w := FromRows(days(3), []string{"A"}, [][]float64{{1}, {nan}, {2}})
	out := w.CumSum()
	assert.Equal(t, []float64{1, 1, 3}, out.Column(0))
}

func TestAsOf_MapsToNextTargetDate(t *testing.T) {
	// fiscal dates fall on days 1 and 4; trading dates are 0, 2, 3, 5
	w := FromRows([]time.Time{day(1), day(4), day(9)}, []string{"A"}, [][]float64{{10}, {20}, {30}})
	target := []time.Time{day(0), day(2), day(3), day(5)}

	out := w.AsOf(target)

	require.Equal(t, 4, out.Rows())
	assert.True(t, math.IsNaN(out.Values[0][0]))
	assert.Equal(t, 10.0, out.Values[1][0])
	assert.True(t, math.IsNaN(out.Values[2][0]))
	assert.Equal(t, 20.0, out.Values[3][0])

	filled := out.FFill()
	assert.Equal(t, 10.0, filled.Values[2][0])
}
