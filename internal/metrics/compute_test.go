package metrics

import (
	"math"
	"testing"
)

func TestPercentile_LinearInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}

	cases := []struct {
		p    float64
		want float64
	}{
		{0.0, 1},
		{0.5, 3},
		{0.25, 2},
		{0.1, 1.4},
		{0.99, 4.96},
		{1.0, 5},
	}
	for _, c := range cases {
		got := Percentile(sorted, c.p)
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("Percentile(%v) = %v, want %v", c.p, got, c.want)
		}
	}
}

func TestPercentile_EmptyAndSingle(t *testing.T) {
	if got := Percentile(nil, 0.5); !math.IsNaN(got) {
		t.Errorf("expected NaN for empty input, got %v", got)
	}
	if got := Percentile([]float64{7}, 0.9); got != 7 {
		t.Errorf("expected 7 for single value, got %v", got)
	}
}

func TestMedian_EvenCount(t *testing.T) {
	// Unsorted input, even count → average of middle two
	if got := Median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("expected median 2.5, got %v", got)
	}
}

func TestPopStddev_UsesNDenominator(t *testing.T) {
	// Values 1, 3 → mean 2, deviations ±1 → population std 1 (sample std would be √2)
	got := PopStddev([]float64{1, 3})
	if math.Abs(got-1) > 1e-12 {
		t.Errorf("expected 1, got %v", got)
	}
	if got := PopStddev(nil); !math.IsNaN(got) {
		t.Errorf("expected NaN for empty input, got %v", got)
	}
}

func TestStddev_Sample(t *testing.T) {
	got := Stddev([]float64{1, 3})
	if math.Abs(got-math.Sqrt2) > 1e-12 {
		t.Errorf("expected √2, got %v", got)
	}
	if got := Stddev([]float64{1}); !math.IsNaN(got) {
		t.Errorf("expected NaN for one sample, got %v", got)
	}
}

func TestRanks_TiesAveraged(t *testing.T) {
	got := Ranks([]float64{10, 20, 20, 5})
	want := []float64{2, 3.5, 3.5, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rank[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSpearman_MonotoneIsOne(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{1, 8, 27, 64}
	if got := Spearman(x, y); math.Abs(got-1) > 1e-12 {
		t.Errorf("expected 1, got %v", got)
	}

	rev := []float64{4, 3, 2, 1}
	if got := Spearman(x, rev); math.Abs(got+1) > 1e-12 {
		t.Errorf("expected -1, got %v", got)
	}
}

func TestPearson_ConstantIsNaN(t *testing.T) {
	if got := Pearson([]float64{1, 2, 3}, []float64{5, 5, 5}); !math.IsNaN(got) {
		t.Errorf("expected NaN for constant series, got %v", got)
	}
	if got := Pearson([]float64{1}, []float64{2}); !math.IsNaN(got) {
		t.Errorf("expected NaN for single pair, got %v", got)
	}
}

func TestPairedValid_DropsMissingOnEitherSide(t *testing.T) {
	nan := math.NaN()
	xs, ys := PairedValid([]float64{1, nan, 3, 4}, []float64{5, 6, nan, 8})
	if len(xs) != 2 || xs[0] != 1 || xs[1] != 4 || ys[0] != 5 || ys[1] != 8 {
		t.Errorf("unexpected pairs: %v %v", xs, ys)
	}
}
