// Package interp implements the piecewise-linear lookup shared by reservoir routing and
// duration-curve scaling. Values outside the tabulated range are clamped to the boundary
// value rather than extrapolated; every clamp is reported as a *model.DomainWarning.
package interp

import (
	"fmt"
	"math"
	"sort"

	"critical-duration/internal/model"
)

// Table is a lookup table sorted by x. Build once with NewTable and reuse.
type Table struct {
	Name string
	xs   []float64
	ys   []float64
}

// NewTable copies xs/ys and sorts both by xs. Empty or mismatched inputs fail with a
// *model.ConfigurationError.
func NewTable(name string, xs, ys []float64) (*Table, error) {
	if len(xs) == 0 || len(ys) == 0 {
		return nil, &model.ConfigurationError{Op: "interp " + name, Reason: "known values are empty"}
	}
	if len(xs) != len(ys) {
		return nil, &model.ConfigurationError{
			Op:     "interp " + name,
			Reason: fmt.Sprintf("length mismatch: %d xs, %d ys", len(xs), len(ys)),
		}
	}
	t := &Table{Name: name, xs: append([]float64(nil), xs...), ys: append([]float64(nil), ys...)}
	sort.Stable(t)
	return t, nil
}

func (t *Table) Len() int           { return len(t.xs) }
func (t *Table) Less(i, j int) bool { return t.xs[i] < t.xs[j] }
func (t *Table) Swap(i, j int) {
	t.xs[i], t.xs[j] = t.xs[j], t.xs[i]
	t.ys[i], t.ys[j] = t.ys[j], t.ys[i]
}

func (t *Table) Min() float64 { return t.xs[0] }
func (t *Table) Max() float64 { return t.xs[len(t.xs)-1] }

// At returns y for x. Exact matches return the tabulated y untouched; interpolated values
// are rounded to decimals places. A non-nil warning means x was clamped. NaN has no
// place in the table and gives NaN.
func (t *Table) At(x float64, decimals int) (float64, *model.DomainWarning) {
	if math.IsNaN(x) {
		return math.NaN(), nil
	}
	lo := sort.SearchFloat64s(t.xs, x)
	if lo < len(t.xs) && t.xs[lo] == x {
		return t.ys[lo], nil
	}
	if x < t.xs[0] {
		return t.ys[0], t.warn(x, t.ys[0])
	}
	last := len(t.xs) - 1
	if x > t.xs[last] {
		return t.ys[last], t.warn(x, t.ys[last])
	}
	// xs[lo-1] < x < xs[lo]
	x0, y0 := t.xs[lo-1], t.ys[lo-1]
	x1, y1 := t.xs[lo], t.ys[lo]
	return Round(y0+(x-x0)*(y1-y0)/(x1-x0), decimals), nil
}

func (t *Table) warn(x, y float64) *model.DomainWarning {
	return &model.DomainWarning{Table: t.Name, Value: x, Min: t.Min(), Max: t.Max(), Clamped: y}
}

// Interpolate is the one-shot form of Table.At. The only error it returns is a
// *model.ConfigurationError; clamping is reported through the warning.
func Interpolate(x float64, xs, ys []float64, decimals int) (float64, *model.DomainWarning, error) {
	t, err := NewTable("interp", xs, ys)
	if err != nil {
		return 0, nil, err
	}
	if math.IsNaN(x) {
		return 0, nil, &model.ConfigurationError{Op: "interpolate", Reason: "x is NaN"}
	}
	y, w := t.At(x, decimals)
	return y, w, nil
}

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
