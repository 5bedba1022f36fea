// Package zcurve implements Z-order (Morton) space-filling-curve encoding of
// two- and three-dimensional points, plus decomposition of query rectangles
// into contiguous curve ranges.
package zcurve

import (
	"errors"
	"fmt"
)

// MaxBits is the per-dimension precision ceiling: three dimensions at 21 bits
// pack into 63 bits, leaving the sign bit of an int64 clear.
const MaxBits = 21

var ErrOutOfBounds = errors.New("zcurve: value out of dimension bounds")

// Mode selects how out-of-domain inputs are handled when encoding.
type Mode int

const (
	// Strict rejects out-of-domain values. Used on the write path: corrupt
	// input must not be silently mis-indexed.
	Strict Mode = iota
	// Lenient clamps marginally out-of-domain values to the domain edge.
	// Used on the query path, where windows may be looser than the domain.
	Lenient
)

// Dimension maps a bounded continuous domain onto a fixed-width integer grid.
// Immutable once constructed.
type Dimension struct {
	Min, Max float64
	Bits     uint

	maxCode uint64
	scale   float64 // codes per unit
}

func NewDimension(min, max float64, bits uint) (Dimension, error) {
	if bits == 0 || bits > MaxBits {
		return Dimension{}, fmt.Errorf("zcurve: precision bits %d outside 1..%d", bits, MaxBits)
	}
	if !(min < max) {
		return Dimension{}, fmt.Errorf("zcurve: invalid domain [%g, %g]", min, max)
	}
	return Dimension{
		Min:     min,
		Max:     max,
		Bits:    bits,
		maxCode: uint64(1)<<bits - 1,
		scale:   float64(uint64(1)<<bits) / (max - min),
	}, nil
}

// MaxCode returns the largest grid code, 2^Bits - 1.
func (d Dimension) MaxCode() uint64 { return d.maxCode }

// Resolution returns the width of one grid cell.
func (d Dimension) Resolution() float64 { return (d.Max - d.Min) / float64(d.maxCode+1) }

// Normalize maps x onto the grid. In Strict mode x must lie in [Min, Max);
// the top edge maps one cell past the grid and is treated as out of bounds.
// In Lenient mode x is clamped to the nearest valid code first.
func (d Dimension) Normalize(x float64, mode Mode) (uint64, error) {
	if x < d.Min || x >= d.Max {
		if mode == Strict {
			return 0, fmt.Errorf("%w: %g not in [%g, %g)", ErrOutOfBounds, x, d.Min, d.Max)
		}
		if x < d.Min {
			return 0, nil
		}
		return d.maxCode, nil
	}
	code := uint64((x - d.Min) * d.scale)
	if code > d.maxCode {
		code = d.maxCode
	}
	return code, nil
}

// Denormalize returns the center of the grid cell for code. Lossy: the result
// is within Resolution() of any input that normalized to code. Codes past the
// grid clamp to the last cell.
func (d Dimension) Denormalize(code uint64) float64 {
	if code > d.maxCode {
		code = d.maxCode
	}
	return d.Min + (float64(code)+0.5)/d.scale
}

// CellMin returns the low edge of the grid cell for code.
func (d Dimension) CellMin(code uint64) float64 {
	if code > d.maxCode {
		code = d.maxCode
	}
	return d.Min + float64(code)/d.scale
}

// CellMax returns the high edge of the grid cell for code.
func (d Dimension) CellMax(code uint64) float64 {
	return d.CellMin(code) + 1/d.scale
}

// LonDimension returns the standard longitude dimension at the given precision.
func LonDimension(bits uint) (Dimension, error) { return NewDimension(-180, 180, bits) }

// LatDimension returns the standard latitude dimension at the given precision.
func LatDimension(bits uint) (Dimension, error) { return NewDimension(-90, 90, bits) }
