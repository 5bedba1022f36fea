// Package filter defines the abstract predicate tree consumed by the index
// planner: a tagged-union expression AST plus the extraction passes the
// planner needs (identifier sets, spatial rectangles, temporal intervals,
// attribute equalities). It assumes nothing about the parser that produced
// the tree.
package filter

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Expr is a node in a boolean filter expression.
type Expr interface {
	isExpr()
	String() string
}

// Include matches everything.
type Include struct{}

// Exclude matches nothing.
type Exclude struct{}

// And is a conjunction. Constructed via NewAnd, which flattens nesting.
type And struct{ Children []Expr }

// Or is a disjunction. Constructed via NewOr, which flattens nesting.
type Or struct{ Children []Expr }

// Not negates its child.
type Not struct{ Child Expr }

// IDIn matches features whose identifier is in the set.
type IDIn struct{ IDs []string }

// Eq matches features whose named attribute equals the value.
type Eq struct {
	Attr  string
	Value string
}

// AttrRange matches features whose named attribute lies in [Lo, Hi].
// A nil end is open.
type AttrRange struct {
	Attr   string
	Lo, Hi *float64
}

// BBox matches features whose geometry intersects the rectangle. MinX > MaxX
// means the box wraps the antimeridian; extraction splits it in two.
type BBox struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// During matches features whose timestamp lies in [Start, End].
type During struct{ Start, End time.Time }

// Before matches features whose timestamp is strictly before T.
type Before struct{ T time.Time }

// After matches features whose timestamp is strictly after T.
type After struct{ T time.Time }

func (Include) isExpr()   {}
func (Exclude) isExpr()   {}
func (And) isExpr()       {}
func (Or) isExpr()        {}
func (Not) isExpr()       {}
func (IDIn) isExpr()      {}
func (Eq) isExpr()        {}
func (AttrRange) isExpr() {}
func (BBox) isExpr()      {}
func (During) isExpr()    {}
func (Before) isExpr()    {}
func (After) isExpr()     {}

// NewAnd flattens nested conjunctions and drops Include children. An empty
// result collapses to Include, a single child is returned bare, any Exclude
// child collapses the whole conjunction to Exclude.
func NewAnd(children ...Expr) Expr {
	flat := make([]Expr, 0, len(children))
	for _, c := range children {
		switch v := c.(type) {
		case nil:
		case Include:
		case Exclude:
			return Exclude{}
		case And:
			flat = append(flat, v.Children...)
		default:
			flat = append(flat, c)
		}
	}
	switch len(flat) {
	case 0:
		return Include{}
	case 1:
		return flat[0]
	}
	return And{Children: flat}
}

// NewOr flattens nested disjunctions and drops Exclude children, collapsing
// symmetrically to NewAnd.
func NewOr(children ...Expr) Expr {
	flat := make([]Expr, 0, len(children))
	for _, c := range children {
		switch v := c.(type) {
		case nil:
		case Exclude:
		case Include:
			return Include{}
		case Or:
			flat = append(flat, v.Children...)
		default:
			flat = append(flat, c)
		}
	}
	switch len(flat) {
	case 0:
		return Exclude{}
	case 1:
		return flat[0]
	}
	return Or{Children: flat}
}

// NewIDIn deduplicates and sorts the identifier set.
func NewIDIn(ids ...string) IDIn {
	seen := make(map[string]struct{}, len(ids))
	uniq := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	sort.Strings(uniq)
	return IDIn{IDs: uniq}
}

func (Include) String() string { return "INCLUDE" }
func (Exclude) String() string { return "EXCLUDE" }

func (e And) String() string { return joinChildren(e.Children, " AND ") }
func (e Or) String() string  { return joinChildren(e.Children, " OR ") }

func (e Not) String() string { return "NOT (" + e.Child.String() + ")" }

func (e IDIn) String() string { return "id IN (" + strings.Join(e.IDs, ",") + ")" }

func (e Eq) String() string { return fmt.Sprintf("%s = %q", e.Attr, e.Value) }

func (e AttrRange) String() string {
	lo, hi := "-inf", "+inf"
	if e.Lo != nil {
		lo = fmt.Sprintf("%g", *e.Lo)
	}
	if e.Hi != nil {
		hi = fmt.Sprintf("%g", *e.Hi)
	}
	return fmt.Sprintf("%s IN [%s, %s]", e.Attr, lo, hi)
}

func (e BBox) String() string {
	return fmt.Sprintf("bbox(%g,%g,%g,%g)", e.MinX, e.MinY, e.MaxX, e.MaxY)
}

func (e During) String() string {
	return fmt.Sprintf("during [%s, %s]", e.Start.UTC().Format(time.RFC3339), e.End.UTC().Format(time.RFC3339))
}

func (e Before) String() string { return "before " + e.T.UTC().Format(time.RFC3339) }
func (e After) String() string  { return "after " + e.T.UTC().Format(time.RFC3339) }

func joinChildren(children []Expr, sep string) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = "(" + c.String() + ")"
	}
	return strings.Join(parts, sep)
}
