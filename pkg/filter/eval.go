package filter

import (
	"strconv"
	"time"
)

// Feature is the minimal view of a record the evaluator needs. Serialization
// is external to this core; backends adapt their decoded records to this.
type Feature interface {
	ID() string
	// Point returns the geometry's representative coordinates.
	Point() (x, y float64)
	Timestamp() time.Time
	// Attr returns the named attribute as text, ok=false when absent.
	Attr(name string) (string, bool)
}

// Evaluate applies a predicate to a feature. Used to re-check the residual
// (secondary) predicate on records returned by over-approximate range scans.
func Evaluate(e Expr, f Feature) bool {
	switch v := e.(type) {
	case Include:
		return true
	case Exclude:
		return false
	case And:
		for _, c := range v.Children {
			if !Evaluate(c, f) {
				return false
			}
		}
		return true
	case Or:
		for _, c := range v.Children {
			if Evaluate(c, f) {
				return true
			}
		}
		return false
	case Not:
		return !Evaluate(v.Child, f)
	case IDIn:
		id := f.ID()
		for _, want := range v.IDs {
			if id == want {
				return true
			}
		}
		return false
	case Eq:
		got, ok := f.Attr(v.Attr)
		return ok && got == v.Value
	case AttrRange:
		got, ok := f.Attr(v.Attr)
		if !ok {
			return false
		}
		n, err := strconv.ParseFloat(got, 64)
		if err != nil {
			return false
		}
		if v.Lo != nil && n < *v.Lo {
			return false
		}
		if v.Hi != nil && n > *v.Hi {
			return false
		}
		return true
	case BBox:
		x, y := f.Point()
		if y < v.MinY || y > v.MaxY {
			return false
		}
		if v.MinX > v.MaxX { // wraps the antimeridian
			return x >= v.MinX || x <= v.MaxX
		}
		return x >= v.MinX && x <= v.MaxX
	case During:
		t := f.Timestamp()
		return !t.Before(v.Start) && !t.After(v.End)
	case Before:
		return f.Timestamp().Before(v.T)
	case After:
		return f.Timestamp().After(v.T)
	}
	return false
}
