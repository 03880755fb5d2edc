// Package files stores datasets and factor values as CSV files in one
// directory, parsed and written with gota data frames.
package files

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/storage"
)

// Key columns. Lookup is case-insensitive.
var (
	tickerColumns = []string{"ticker", "symbol"}
	dateColumns   = []string{"date", "fiscaldateending"}
)

// Accepted date layouts, tried in order.
var dateLayouts = []string{
	domain.DateLayout,
	"20060102",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// readFrame loads a CSV file into a data frame with key columns kept as strings.
// A header-only file yields ok=false with a nil error.
func readFrame(path string) (df dataframe.DataFrame, ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return df, false, storage.ErrNotFound
		}
		return df, false, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(bytes.TrimSpace(data)) == 0 || bytes.Count(bytes.TrimSpace(data), []byte("\n")) == 0 {
		return df, false, nil
	}

	header, _, _ := bytes.Cut(data, []byte("\n"))
	types := make(map[string]series.Type)
	for _, name := range strings.Split(strings.TrimSpace(string(header)), ",") {
		if isKeyColumn(name) {
			types[name] = series.String
		}
	}

	df = dataframe.ReadCSV(bytes.NewReader(data), dataframe.WithTypes(types))
	if df.Err != nil {
		return df, false, fmt.Errorf("parse %s: %w", filepath.Base(path), df.Err)
	}
	return df, true, nil
}

func isKeyColumn(name string) bool {
	return findColumn([]string{name}, tickerColumns) != "" || findColumn([]string{name}, dateColumns) != ""
}

// findColumn returns the first name matching a candidate, ignoring case.
func findColumn(names, candidates []string) string {
	for _, c := range candidates {
		for _, n := range names {
			if strings.EqualFold(n, c) {
				return n
			}
		}
	}
	return ""
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// formatFloat renders v losslessly. gota's own float formatting keeps six decimals.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeFrame(path string, df dataframe.DataFrame) error {
	if df.Err != nil {
		return fmt.Errorf("build frame: %w", df.Err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := df.WriteCSV(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}

// validName rejects names that would escape the store directory.
func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, `/\`) && name != "." && name != ".."
}
