package filter

import "time"

// Extraction passes over the AST. Each returns the portion of the predicate a
// given index kind can satisfy, plus whether the extraction is exact (the
// extracted bounds imply the consumed clauses with no over-approximation).
// Malformed or non-reducible fragments never error; they simply fail to
// extract and fall through to less specific strategies.

// IDSet extracts a concrete identifier set when the predicate can be reduced
// to one. Returns the ids, the residual predicate that must still be applied
// post-lookup, and ok=false when no set is provable (e.g. ids only under OR
// with non-id clauses, or under NOT).
func IDSet(e Expr) (ids []string, residual Expr, ok bool) {
	switch v := e.(type) {
	case IDIn:
		return v.IDs, Include{}, true
	case And:
		var sets [][]string
		rest := make([]Expr, 0, len(v.Children))
		for _, c := range v.Children {
			if in, isID := c.(IDIn); isID {
				// Literal IDIn values may be unsorted; normalize before the
				// sorted-merge intersection below.
				sets = append(sets, NewIDIn(in.IDs...).IDs)
				continue
			}
			rest = append(rest, c)
		}
		if len(sets) == 0 {
			return nil, nil, false
		}
		ids := sets[0]
		for _, s := range sets[1:] {
			ids = intersectSorted(ids, s)
		}
		return ids, NewAnd(rest...), true
	case Or:
		// A disjunction is only id-reducible when every arm is.
		var union []string
		for _, c := range v.Children {
			in, isID := c.(IDIn)
			if !isID {
				return nil, nil, false
			}
			union = append(union, in.IDs...)
		}
		return NewIDIn(union...).IDs, Include{}, true
	}
	return nil, nil, false
}

func intersectSorted(a, b []string) []string {
	out := make([]string, 0, len(a))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

// SpatialBounds extracts the rectangles constraining the geometry. Multiple
// rectangles arise from disjunctions of bboxes. Antimeridian-wrapping boxes
// are split into two non-wrapping boxes here, since the range decomposer
// assumes non-wrapping input. exact reports whether the rectangles capture
// the consumed spatial clauses precisely.
func SpatialBounds(e Expr) (boxes []BBox, exact bool, ok bool) {
	switch v := e.(type) {
	case BBox:
		return splitWrap(v), true, true
	case And:
		var acc []BBox
		exact = true
		for _, c := range v.Children {
			bs, ex, sok := SpatialBounds(c)
			if !sok {
				continue
			}
			exact = exact && ex
			if acc == nil {
				acc = bs
				continue
			}
			acc = intersectBoxes(acc, bs)
		}
		if acc == nil {
			return nil, false, false
		}
		return acc, exact, true
	case Or:
		var acc []BBox
		exact = true
		for _, c := range v.Children {
			bs, ex, sok := SpatialBounds(c)
			if !sok {
				// An arm with no spatial bound makes the disjunction
				// spatially unbounded.
				return nil, false, false
			}
			exact = exact && ex
			acc = append(acc, bs...)
		}
		if len(v.Children) > 1 {
			exact = false
		}
		return acc, exact, true
	}
	return nil, false, false
}

func splitWrap(b BBox) []BBox {
	if b.MinX <= b.MaxX {
		return []BBox{b}
	}
	return []BBox{
		{MinX: b.MinX, MinY: b.MinY, MaxX: 180, MaxY: b.MaxY},
		{MinX: -180, MinY: b.MinY, MaxX: b.MaxX, MaxY: b.MaxY},
	}
}

func intersectBoxes(a, b []BBox) []BBox {
	var out []BBox
	for _, x := range a {
		for _, y := range b {
			minX, minY := maxf(x.MinX, y.MinX), maxf(x.MinY, y.MinY)
			maxX, maxY := minf(x.MaxX, y.MaxX), minf(x.MaxY, y.MaxY)
			if minX <= maxX && minY <= maxY {
				out = append(out, BBox{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY})
			}
		}
	}
	return out
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// TimeRange is a closed temporal interval; a zero end is open.
type TimeRange struct {
	Start, End time.Time
}

func (r TimeRange) openStart() bool { return r.Start.IsZero() }
func (r TimeRange) openEnd() bool   { return r.End.IsZero() }

// Bounded reports whether both ends are set.
func (r TimeRange) Bounded() bool { return !r.openStart() && !r.openEnd() }

// TemporalBounds extracts the interval constraining the timestamp. exact
// reports whether the interval captures the consumed temporal clauses
// precisely; a disjunction widens to its hull and is not exact.
func TemporalBounds(e Expr) (r TimeRange, exact bool, ok bool) {
	switch v := e.(type) {
	case During:
		return TimeRange{Start: v.Start, End: v.End}, true, true
	case Before:
		return TimeRange{End: v.T}, true, true
	case After:
		return TimeRange{Start: v.T}, true, true
	case And:
		var acc TimeRange
		found := false
		exact = true
		for _, c := range v.Children {
			tr, ex, tok := TemporalBounds(c)
			if !tok {
				continue
			}
			exact = exact && ex
			if !found {
				acc, found = tr, true
				continue
			}
			acc = intersectTime(acc, tr)
		}
		if !found {
			return TimeRange{}, false, false
		}
		return acc, exact, true
	case Or:
		var acc TimeRange
		for i, c := range v.Children {
			tr, _, tok := TemporalBounds(c)
			if !tok {
				return TimeRange{}, false, false
			}
			if i == 0 {
				acc = tr
				continue
			}
			acc = hullTime(acc, tr)
		}
		return acc, false, true
	}
	return TimeRange{}, false, false
}

func intersectTime(a, b TimeRange) TimeRange {
	out := a
	if !b.openStart() && (out.openStart() || b.Start.After(out.Start)) {
		out.Start = b.Start
	}
	if !b.openEnd() && (out.openEnd() || b.End.Before(out.End)) {
		out.End = b.End
	}
	return out
}

func hullTime(a, b TimeRange) TimeRange {
	out := a
	if out.openStart() || b.openStart() {
		out.Start = time.Time{}
	} else if b.Start.Before(out.Start) {
		out.Start = b.Start
	}
	if out.openEnd() || b.openEnd() {
		out.End = time.Time{}
	} else if b.End.After(out.End) {
		out.End = b.End
	}
	return out
}

// AttributeEq extracts the equality values for one attribute from a
// conjunction (or a bare equality). ok=false when the attribute is not
// constrained by equality at the top level.
func AttributeEq(e Expr, attr string) (values []string, residual Expr, ok bool) {
	switch v := e.(type) {
	case Eq:
		if v.Attr == attr {
			return []string{v.Value}, Include{}, true
		}
	case And:
		rest := make([]Expr, 0, len(v.Children))
		for _, c := range v.Children {
			if eq, isEq := c.(Eq); isEq && eq.Attr == attr {
				values = append(values, eq.Value)
				continue
			}
			rest = append(rest, c)
		}
		if len(values) > 0 {
			return values, NewAnd(rest...), true
		}
	}
	return nil, nil, false
}

// Residual returns the predicate that must still be applied after an index
// has consumed the clauses for which covered returns true. Only top-level
// conjunction children are dropped; any other structure is returned whole,
// which errs on the side of re-checking.
func Residual(e Expr, covered func(Expr) bool) Expr {
	if covered(e) {
		return Include{}
	}
	if and, isAnd := e.(And); isAnd {
		rest := make([]Expr, 0, len(and.Children))
		for _, c := range and.Children {
			if covered(c) {
				continue
			}
			rest = append(rest, c)
		}
		return NewAnd(rest...)
	}
	return e
}
