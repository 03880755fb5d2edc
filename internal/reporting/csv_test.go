package reporting

import (
	"math"
	"strings"
	"testing"
)

func TestRenderSummaryCSV(t *testing.T) {
	out := RenderSummaryCSV([]SummaryRow{
		{Factor: "momentum_12m", RunID: "r1", ICMean: 0.03, ICStd: 0.1, ICIR: 0.3, TStat: 2.5, HitRate: 0.55, NDates: 120, LSMean: 0.001, LSStd: 0.01, LSSharpe: 1.5},
		{Factor: "hurst_100d", RunID: "r1", ICMean: math.NaN()},
	})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "factor,run_id,ic_mean,ic_std,ic_ir,t_stat,hit_rate,n_dates,ls_mean,ls_std,ls_sharpe" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "momentum_12m,r1,0.030000,0.100000,0.300000,2.500000,0.550000,120,") {
		t.Errorf("unexpected row %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "hurst_100d,r1,NaN,") {
		t.Errorf("missing value should render NaN, got %q", lines[2])
	}
	for i, l := range lines {
		if n := strings.Count(l, ","); n != 10 {
			t.Errorf("line %d has %d separators, want 10", i, n)
		}
	}
}

func TestRenderCorrelationCSV(t *testing.T) {
	out := RenderCorrelationCSV([]CorrelationRow{{Left: "a", Right: "b", Value: -0.25, NObs: 42}})
	want := "left,right,value,n_obs\na,b,-0.250000,42\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}

	bench := RenderBenchmarkCSV([]BenchmarkRow{{Factor: "a", Benchmark: "mktrf", Value: 0.5, NObs: 7}})
	if bench != "factor,benchmark,value,n_obs\na,mktrf,0.500000,7\n" {
		t.Errorf("unexpected benchmark csv %q", bench)
	}
}

func TestSummaryTable(t *testing.T) {
	out := SummaryTable([]SummaryRow{{Factor: "momentum_12m", ICMean: 0.0312, NDates: 5, ICIR: math.NaN()}}).Render()
	for _, want := range []string{"Factor Summary", "momentum_12m", "0.0312", "n/a"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if FailureTable(nil) != nil {
		t.Error("expected nil failure table without failures")
	}
	if !strings.Contains(FailureTable([]FailureRow{{Factor: "x", Error: "boom"}}).Render(), "boom") {
		t.Error("failure table missing error text")
	}
}
