// Package factor defines the factor contract and the factor library.
package factor

import (
	"context"
	"errors"
	"fmt"

	"quantlab-factor-library/internal/cleaning"
	"quantlab-factor-library/internal/domain"
	"quantlab-factor-library/internal/matrix"
	"quantlab-factor-library/internal/provider"
)

// ErrMissingInput is returned when a factor's required input table or
// column is unavailable.
var ErrMissingInput = errors.New("missing factor input")

// Factor produces a raw date x ticker signal and its post-processing.
type Factor interface {
	// Name identifies the factor in stores and reports.
	Name() string

	// ComputeRaw builds the raw factor from input tables.
	ComputeRaw(ctx context.Context, tables provider.TableProvider) (*matrix.Wide, error)

	// PostProcess transforms the raw factor before cleaning.
	// Must not mutate raw.
	PostProcess(raw *matrix.Wide) *matrix.Wide
}

// Compute runs raw -> post-process -> clean for f.
func Compute(ctx context.Context, f Factor, tables provider.TableProvider, sectors domain.SectorMap, opts cleaning.Options) (*matrix.Wide, error) {
	raw, err := f.ComputeRaw(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name(), err)
	}
	if raw == nil {
		raw = &matrix.Wide{}
	}
	return cleaning.Clean(f.PostProcess(raw), sectors, opts), nil
}

// ShiftForward lags the raw factor one date so the value at t only uses
// information available through t-1.
func ShiftForward(raw *matrix.Wide) *matrix.Wide {
	return raw.Shift(1)
}

// shifted provides the ShiftForward post-processing to embedding factors.
type shifted struct{}

func (shifted) PostProcess(raw *matrix.Wide) *matrix.Wide {
	return ShiftForward(raw)
}

func prices(ctx context.Context, tables provider.TableProvider) (*matrix.Wide, error) {
	p, err := tables.PriceWide(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingInput, err)
	}
	return p, nil
}

func column(ctx context.Context, tables provider.TableProvider, dataset, col string) (*matrix.Wide, error) {
	w, err := tables.ColumnWide(ctx, dataset, col)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingInput, err)
	}
	return w, nil
}

func records(ctx context.Context, tables provider.TableProvider, dataset string) ([]*domain.Record, error) {
	r, err := tables.LoadLong(ctx, dataset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingInput, err)
	}
	return r, nil
}

func returns(p *matrix.Wide) *matrix.Wide {
	return p.PctChange(1)
}
