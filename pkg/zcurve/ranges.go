package zcurve

import (
	"fmt"
	"sort"
)

// ZRange is a contiguous run of curve keys, inclusive on both ends.
type ZRange struct {
	Lower, Upper Key
}

// Contains reports whether k falls inside the range.
func (r ZRange) Contains(k Key) bool { return k >= r.Lower && k <= r.Upper }

// DefaultLevels is the bisection depth used when RangeOpts.Precision is zero,
// counted in single-bit splits per dimension. Unbounded recursion is never
// offered: a thin diagonal rectangle can otherwise degenerate into one range
// per curve cell along the diagonal.
const DefaultLevels = 7

// RangeOpts bounds the cost of a decomposition. More ranges means less
// false-positive scanning but more scan requests against the backend.
type RangeOpts struct {
	// Precision is the per-dimension bisection depth. Zero means
	// DefaultLevels. Capped at the curve's per-dimension bit width.
	Precision int
	// MaxRanges caps the emitted range count; excess ranges are coarsened by
	// merging nearest neighbors. Zero means unbounded.
	MaxRanges int
}

// Box2 is an axis-aligned query rectangle in (x, y). Must not wrap the domain
// boundary; callers split wrapping rectangles beforehand.
type Box2 struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Box3 is an axis-aligned query volume in (x, y, t).
type Box3 struct {
	MinX, MinY, MinT float64
	MaxX, MaxY, MaxT float64
}

// Ranges decomposes query rectangles into curve ranges covering every key
// whose cell intersects a rectangle. Over-approximation is expected; the
// caller filters residual false positives.
func (z *Z2) Ranges(boxes []Box2, opts RangeOpts) ([]ZRange, error) {
	d := newDecomposer(z, opts)
	for _, b := range boxes {
		if b.MinX > b.MaxX || b.MinY > b.MaxY {
			return nil, fmt.Errorf("zcurve: inverted box [%g %g %g %g]", b.MinX, b.MinY, b.MaxX, b.MaxY)
		}
		q, err := queryCodes(z, [3]float64{b.MinX, b.MinY}, [3]float64{b.MaxX, b.MaxY})
		if err != nil {
			return nil, err
		}
		d.decompose(q)
	}
	return d.finish(), nil
}

// Ranges decomposes query volumes into curve ranges. See (*Z2).Ranges.
func (z *Z3) Ranges(boxes []Box3, opts RangeOpts) ([]ZRange, error) {
	d := newDecomposer(z, opts)
	for _, b := range boxes {
		if b.MinX > b.MaxX || b.MinY > b.MaxY || b.MinT > b.MaxT {
			return nil, fmt.Errorf("zcurve: inverted box [%g %g %g %g %g %g]",
				b.MinX, b.MinY, b.MinT, b.MaxX, b.MaxY, b.MaxT)
		}
		q, err := queryCodes(z, [3]float64{b.MinX, b.MinY, b.MinT}, [3]float64{b.MaxX, b.MaxY, b.MaxT})
		if err != nil {
			return nil, err
		}
		d.decompose(q)
	}
	return d.finish(), nil
}

// curve is the shared surface Z2 and Z3 expose to the decomposer.
type curve interface {
	dims() int
	dim(i int) Dimension
	key(codes [3]uint64) Key
}

// codeBox holds inclusive per-dimension code bounds.
type codeBox struct {
	lo, hi [3]uint64
}

func queryCodes(c curve, mins, maxs [3]float64) (codeBox, error) {
	var q codeBox
	for i := 0; i < c.dims(); i++ {
		lo, err := c.dim(i).Normalize(mins[i], Lenient)
		if err != nil {
			return codeBox{}, err
		}
		hi, err := c.dim(i).Normalize(maxs[i], Lenient)
		if err != nil {
			return codeBox{}, err
		}
		q.lo[i], q.hi[i] = lo, hi
	}
	return q, nil
}

type decomposer struct {
	c         curve
	totalBits int
	maxRanges int
	out       []ZRange
}

func newDecomposer(c curve, opts RangeOpts) *decomposer {
	levels := opts.Precision
	if levels <= 0 {
		levels = DefaultLevels
	}
	bits := int(c.dim(0).Bits)
	if levels > bits {
		levels = bits
	}
	return &decomposer{
		c:         c,
		totalBits: levels * c.dims(),
		maxRanges: opts.MaxRanges,
	}
}

// decompose walks aligned curve cells top-down. Each cell is an aligned
// power-of-two box in code space, so its key interval is exactly
// [key(lo), key(hi)] with no dead space.
func (d *decomposer) decompose(q codeBox) {
	var cell codeBox
	for i := 0; i < d.c.dims(); i++ {
		cell.hi[i] = d.c.dim(i).MaxCode()
	}
	d.visit(q, cell, 0)
}

func (d *decomposer) visit(q, cell codeBox, depth int) {
	contained := true
	for i := 0; i < d.c.dims(); i++ {
		if cell.hi[i] < q.lo[i] || cell.lo[i] > q.hi[i] {
			return // disjoint
		}
		if cell.lo[i] < q.lo[i] || cell.hi[i] > q.hi[i] {
			contained = false
		}
	}
	if contained {
		d.emit(cell)
		return
	}
	// Depth budget spent, cell down to a single key, or range budget already
	// blown: emit the whole cell and accept over-selection.
	dim := depth % d.c.dims()
	if depth >= d.totalBits || cell.lo[dim] == cell.hi[dim] ||
		(d.maxRanges > 0 && len(d.out) >= d.maxRanges) {
		d.emit(cell)
		return
	}
	mid := cell.lo[dim] + (cell.hi[dim]-cell.lo[dim])/2
	left, right := cell, cell
	left.hi[dim] = mid
	right.lo[dim] = mid + 1
	d.visit(q, left, depth+1)
	d.visit(q, right, depth+1)
}

func (d *decomposer) emit(cell codeBox) {
	d.out = append(d.out, ZRange{Lower: d.c.key(cell.lo), Upper: d.c.key(cell.hi)})
}

// finish sorts, merges adjacent ranges, and coarsens down to the budget by
// repeatedly fusing the pair with the smallest gap between them.
func (d *decomposer) finish() []ZRange {
	rs := d.out
	if len(rs) == 0 {
		return rs
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].Lower < rs[j].Lower })

	merged := rs[:1]
	for _, r := range rs[1:] {
		last := &merged[len(merged)-1]
		if r.Lower <= last.Upper+1 {
			if r.Upper > last.Upper {
				last.Upper = r.Upper
			}
			continue
		}
		merged = append(merged, r)
	}

	for d.maxRanges > 0 && len(merged) > d.maxRanges {
		best, gap := 0, Key(0)
		for i := 0; i+1 < len(merged); i++ {
			g := merged[i+1].Lower - merged[i].Upper
			if i == 0 || g < gap {
				best, gap = i, g
			}
		}
		merged[best].Upper = merged[best+1].Upper
		merged = append(merged[:best+1], merged[best+2:]...)
	}
	return merged
}
