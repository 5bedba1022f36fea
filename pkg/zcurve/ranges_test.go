package zcurve

import (
	"math/rand"
	"testing"
)

func testZ2(t *testing.T, bits uint) *Z2 {
	t.Helper()
	lon, lat := mustLonLat(t, bits)
	z, err := NewZ2(lon, lat)
	if err != nil {
		t.Fatalf("NewZ2: %v", err)
	}
	return z
}

func TestRanges_CoverQueryPoints(t *testing.T) {
	z := testZ2(t, 21)
	rng := rand.New(rand.NewSource(11))

	for trial := 0; trial < 50; trial++ {
		x1 := -180 + rng.Float64()*350
		y1 := -90 + rng.Float64()*170
		box := Box2{
			MinX: x1, MinY: y1,
			MaxX: x1 + rng.Float64()*20, MaxY: y1 + rng.Float64()*20,
		}
		ranges, err := z.Ranges([]Box2{box}, RangeOpts{Precision: 10, MaxRanges: 64})
		if err != nil {
			t.Fatalf("Ranges: %v", err)
		}
		if len(ranges) == 0 {
			t.Fatalf("no ranges for %+v", box)
		}
		if len(ranges) > 64 {
			t.Fatalf("got %d ranges, budget 64", len(ranges))
		}

		for i := 0; i < 200; i++ {
			px := box.MinX + rng.Float64()*(box.MaxX-box.MinX)
			py := box.MinY + rng.Float64()*(box.MaxY-box.MinY)
			k, err := z.Encode(px, py, Lenient)
			if err != nil {
				t.Fatalf("encode(%g, %g): %v", px, py, err)
			}
			if !anyContains(ranges, k) {
				t.Fatalf("point (%g, %g) key %d not covered by %d ranges of %+v",
					px, py, k, len(ranges), box)
			}
		}
	}
}

func TestRanges_SortedAndDisjoint(t *testing.T) {
	z := testZ2(t, 21)
	box := Box2{MinX: -10, MinY: -10, MaxX: 10, MaxY: 10}
	ranges, err := z.Ranges([]Box2{box}, RangeOpts{Precision: 12})
	if err != nil {
		t.Fatalf("Ranges: %v", err)
	}
	for i := 1; i < len(ranges); i++ {
		if ranges[i].Lower <= ranges[i-1].Upper {
			t.Fatalf("ranges %d and %d not disjoint and sorted: %+v, %+v",
				i-1, i, ranges[i-1], ranges[i])
		}
	}
}

func TestRanges_MaxRangesBudget(t *testing.T) {
	z := testZ2(t, 21)
	// a thin diagonal strip is the worst case for curve locality
	var boxes []Box2
	for i := 0; i < 16; i++ {
		f := float64(i)
		boxes = append(boxes, Box2{MinX: f * 10, MinY: f * 5, MaxX: f*10 + 1, MaxY: f*5 + 1})
	}
	for _, budget := range []int{1, 4, 16} {
		ranges, err := z.Ranges(boxes, RangeOpts{Precision: 12, MaxRanges: budget})
		if err != nil {
			t.Fatalf("Ranges: %v", err)
		}
		if len(ranges) == 0 || len(ranges) > budget {
			t.Fatalf("budget %d: got %d ranges", budget, len(ranges))
		}
	}
}

func TestRanges_FullDomainTerminates(t *testing.T) {
	z := testZ2(t, 21)
	box := Box2{MinX: -180, MinY: -90, MaxX: 180, MaxY: 90}
	ranges, err := z.Ranges([]Box2{box}, RangeOpts{})
	if err != nil {
		t.Fatalf("Ranges: %v", err)
	}
	// the whole domain is one aligned cell
	if len(ranges) != 1 {
		t.Fatalf("full domain gave %d ranges, want 1", len(ranges))
	}
	if ranges[0].Lower != 0 {
		t.Fatalf("full domain lower = %d, want 0", ranges[0].Lower)
	}
}

func TestRanges_PointQuery(t *testing.T) {
	z := testZ2(t, 21)
	box := Box2{MinX: 12.5, MinY: 41.9, MaxX: 12.5, MaxY: 41.9}
	ranges, err := z.Ranges([]Box2{box}, RangeOpts{Precision: 21})
	if err != nil {
		t.Fatalf("Ranges: %v", err)
	}
	if len(ranges) == 0 {
		t.Fatalf("no ranges for point query")
	}
	k, err := z.Encode(12.5, 41.9, Lenient)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !anyContains(ranges, k) {
		t.Fatalf("point key %d not covered", k)
	}
}

func TestRanges_InvertedBoxRejected(t *testing.T) {
	z := testZ2(t, 21)
	if _, err := z.Ranges([]Box2{{MinX: 10, MinY: 0, MaxX: -10, MaxY: 1}}, RangeOpts{}); err == nil {
		t.Fatalf("expected error for inverted box")
	}
}

func TestRanges_Z3Coverage(t *testing.T) {
	lon, lat := mustLonLat(t, 21)
	tdim, err := NewDimension(0, 604800, 21)
	if err != nil {
		t.Fatalf("NewDimension: %v", err)
	}
	z, err := NewZ3(lon, lat, tdim)
	if err != nil {
		t.Fatalf("NewZ3: %v", err)
	}

	box := Box3{MinX: 44, MinY: 49.1, MinT: 3600, MaxX: 46, MaxY: 50.1, MaxT: 7200}
	ranges, err := z.Ranges([]Box3{box}, RangeOpts{Precision: 8, MaxRanges: 128})
	if err != nil {
		t.Fatalf("Ranges: %v", err)
	}
	if len(ranges) == 0 {
		t.Fatalf("no ranges")
	}
	k, err := z.Encode(45, 50, 5000, Lenient)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !anyContains(ranges, k) {
		t.Fatalf("key %d for (45, 50, 5000) not covered by %d ranges", k, len(ranges))
	}
}

func anyContains(ranges []ZRange, k Key) bool {
	for _, r := range ranges {
		if r.Contains(k) {
			return true
		}
	}
	return false
}
