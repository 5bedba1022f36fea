package filter

import (
	"reflect"
	"testing"
	"time"
)

func TestNewAnd_Flattening(t *testing.T) {
	if got := NewAnd(); !isInclude(got) {
		t.Fatalf("NewAnd() = %v, want INCLUDE", got)
	}
	bb := BBox{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}
	if got := NewAnd(bb); got != Expr(bb) {
		t.Fatalf("NewAnd(bbox) = %v, want bare bbox", got)
	}
	if got := NewAnd(bb, Exclude{}); got != Expr(Exclude{}) {
		t.Fatalf("NewAnd(bbox, EXCLUDE) = %v, want EXCLUDE", got)
	}
	got := NewAnd(NewAnd(bb, Eq{Attr: "a", Value: "1"}), Include{}, Eq{Attr: "b", Value: "2"})
	and, ok := got.(And)
	if !ok || len(and.Children) != 3 {
		t.Fatalf("nested NewAnd = %v, want flat 3-clause AND", got)
	}
}

func TestIDSet(t *testing.T) {
	ids, residual, ok := IDSet(NewIDIn("b", "a", "a"))
	if !ok {
		t.Fatalf("bare IDIn not extracted")
	}
	if !reflect.DeepEqual(ids, []string{"a", "b"}) {
		t.Fatalf("ids = %v, want [a b]", ids)
	}
	if !isInclude(residual) {
		t.Fatalf("residual = %v, want INCLUDE", residual)
	}

	// AND(ids, attr) extracts with the attr clause residual
	pred := NewAnd(NewIDIn("x", "y"), Eq{Attr: "name", Value: "n"})
	ids, residual, ok = IDSet(pred)
	if !ok || len(ids) != 2 {
		t.Fatalf("IDSet(and) = %v, %v", ids, ok)
	}
	if _, isEq := residual.(Eq); !isEq {
		t.Fatalf("residual = %v, want the Eq clause", residual)
	}

	// AND of two id sets intersects
	ids, _, ok = IDSet(NewAnd(NewIDIn("a", "b", "c"), NewIDIn("b", "c", "d")))
	if !ok || !reflect.DeepEqual(ids, []string{"b", "c"}) {
		t.Fatalf("intersection = %v, %v", ids, ok)
	}

	// literal IDIn values may be unsorted; intersection must still be right
	ids, _, ok = IDSet(And{Children: []Expr{
		IDIn{IDs: []string{"c", "a", "b", "a"}},
		IDIn{IDs: []string{"b", "d", "c"}},
	}})
	if !ok || !reflect.DeepEqual(ids, []string{"b", "c"}) {
		t.Fatalf("unsorted intersection = %v, %v", ids, ok)
	}

	// OR of id sets unions; OR with anything else is not provable
	ids, _, ok = IDSet(NewOr(NewIDIn("a"), NewIDIn("b")))
	if !ok || !reflect.DeepEqual(ids, []string{"a", "b"}) {
		t.Fatalf("union = %v, %v", ids, ok)
	}
	if _, _, ok := IDSet(NewOr(NewIDIn("a"), Eq{Attr: "x", Value: "1"})); ok {
		t.Fatalf("OR with non-id arm must not extract")
	}
	if _, _, ok := IDSet(Not{Child: NewIDIn("a")}); ok {
		t.Fatalf("negated ids must not extract")
	}
	if _, _, ok := IDSet(Include{}); ok {
		t.Fatalf("INCLUDE must not extract ids")
	}
}

func TestSpatialBounds(t *testing.T) {
	bb := BBox{MinX: -10, MinY: -5, MaxX: 10, MaxY: 5}
	boxes, exact, ok := SpatialBounds(bb)
	if !ok || !exact || len(boxes) != 1 || boxes[0] != bb {
		t.Fatalf("SpatialBounds(bbox) = %v exact=%v ok=%v", boxes, exact, ok)
	}

	// AND intersects
	boxes, exact, ok = SpatialBounds(NewAnd(
		BBox{MinX: -10, MinY: -10, MaxX: 10, MaxY: 10},
		BBox{MinX: 0, MinY: 0, MaxX: 20, MaxY: 20},
		Eq{Attr: "a", Value: "1"},
	))
	if !ok || !exact || len(boxes) != 1 {
		t.Fatalf("AND bounds = %v exact=%v ok=%v", boxes, exact, ok)
	}
	if want := (BBox{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}); boxes[0] != want {
		t.Fatalf("intersection = %v, want %v", boxes[0], want)
	}

	// OR unions and is no longer exact
	boxes, exact, ok = SpatialBounds(NewOr(
		BBox{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1},
		BBox{MinX: 5, MinY: 5, MaxX: 6, MaxY: 6},
	))
	if !ok || exact || len(boxes) != 2 {
		t.Fatalf("OR bounds = %v exact=%v ok=%v", boxes, exact, ok)
	}

	// OR with a non-spatial arm is unbounded
	if _, _, ok := SpatialBounds(NewOr(bb, Eq{Attr: "a", Value: "1"})); ok {
		t.Fatalf("OR with non-spatial arm must not extract")
	}

	// no spatial clause at all
	if _, _, ok := SpatialBounds(Eq{Attr: "a", Value: "1"}); ok {
		t.Fatalf("attribute-only predicate must not extract spatial bounds")
	}
}

func TestSpatialBounds_AntimeridianSplit(t *testing.T) {
	boxes, exact, ok := SpatialBounds(BBox{MinX: 170, MinY: -10, MaxX: -170, MaxY: 10})
	if !ok || !exact {
		t.Fatalf("wrap box not extracted: exact=%v ok=%v", exact, ok)
	}
	if len(boxes) != 2 {
		t.Fatalf("wrap box split into %d boxes, want 2", len(boxes))
	}
	east := BBox{MinX: 170, MinY: -10, MaxX: 180, MaxY: 10}
	west := BBox{MinX: -180, MinY: -10, MaxX: -170, MaxY: 10}
	if boxes[0] != east || boxes[1] != west {
		t.Fatalf("split = %v, want [%v %v]", boxes, east, west)
	}
}

func TestTemporalBounds(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)
	t3 := t1.Add(48 * time.Hour)

	tr, exact, ok := TemporalBounds(During{Start: t1, End: t2})
	if !ok || !exact || !tr.Start.Equal(t1) || !tr.End.Equal(t2) {
		t.Fatalf("during = %+v exact=%v ok=%v", tr, exact, ok)
	}

	tr, exact, ok = TemporalBounds(Before{T: t2})
	if !ok || !exact || !tr.openStart() || !tr.End.Equal(t2) {
		t.Fatalf("before = %+v exact=%v ok=%v", tr, exact, ok)
	}
	if tr.Bounded() {
		t.Fatalf("before must be unbounded at the start")
	}

	// AND intersects: after t1 AND before t3 AND during [t1, t2] -> [t1, t2]
	tr, _, ok = TemporalBounds(NewAnd(After{T: t1}, Before{T: t3}, During{Start: t1, End: t2}))
	if !ok || !tr.Start.Equal(t1) || !tr.End.Equal(t2) {
		t.Fatalf("AND intersection = %+v ok=%v", tr, ok)
	}

	// OR takes the hull and is not exact
	tr, exact, ok = TemporalBounds(NewOr(During{Start: t1, End: t2}, During{Start: t2, End: t3}))
	if !ok || exact || !tr.Start.Equal(t1) || !tr.End.Equal(t3) {
		t.Fatalf("OR hull = %+v exact=%v ok=%v", tr, exact, ok)
	}

	if _, _, ok := TemporalBounds(Eq{Attr: "a", Value: "1"}); ok {
		t.Fatalf("attribute predicate must not extract temporal bounds")
	}
}

func TestAttributeEq(t *testing.T) {
	vals, residual, ok := AttributeEq(Eq{Attr: "type", Value: "road"}, "type")
	if !ok || len(vals) != 1 || vals[0] != "road" || !isInclude(residual) {
		t.Fatalf("bare eq = %v, %v, %v", vals, residual, ok)
	}

	pred := NewAnd(Eq{Attr: "type", Value: "road"}, BBox{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1})
	vals, residual, ok = AttributeEq(pred, "type")
	if !ok || len(vals) != 1 {
		t.Fatalf("and eq = %v, %v", vals, ok)
	}
	if _, isBox := residual.(BBox); !isBox {
		t.Fatalf("residual = %v, want bbox", residual)
	}

	if _, _, ok := AttributeEq(pred, "name"); ok {
		t.Fatalf("unconstrained attribute must not extract")
	}
}

func TestResidual(t *testing.T) {
	bb := BBox{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}
	eq := Eq{Attr: "a", Value: "1"}
	isBox := func(e Expr) bool { _, ok := e.(BBox); return ok }

	if got := Residual(bb, isBox); !isInclude(got) {
		t.Fatalf("fully covered = %v, want INCLUDE", got)
	}
	if got := Residual(NewAnd(bb, eq), isBox); got != Expr(eq) {
		t.Fatalf("partial = %v, want bare eq", got)
	}
	or := NewOr(bb, eq)
	if got := Residual(or, isBox); !reflect.DeepEqual(got, or) {
		t.Fatalf("non-conjunction = %v, want whole predicate back", got)
	}
}

func isInclude(e Expr) bool {
	_, ok := e.(Include)
	return ok
}
