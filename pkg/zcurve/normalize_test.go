package zcurve

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestDimension_Validation(t *testing.T) {
	if _, err := NewDimension(-180, 180, 0); err == nil {
		t.Fatalf("expected error for 0 bits")
	}
	if _, err := NewDimension(-180, 180, 22); err == nil {
		t.Fatalf("expected error for 22 bits")
	}
	if _, err := NewDimension(10, 10, 8); err == nil {
		t.Fatalf("expected error for empty domain")
	}
	if _, err := NewDimension(5, -5, 8); err == nil {
		t.Fatalf("expected error for inverted domain")
	}
}

func TestNormalize_LongitudeEdges(t *testing.T) {
	lon, err := LonDimension(21)
	if err != nil {
		t.Fatalf("LonDimension: %v", err)
	}

	code, err := lon.Normalize(-180, Strict)
	if err != nil {
		t.Fatalf("normalize(-180): %v", err)
	}
	if code != 0 {
		t.Fatalf("normalize(-180) = %d, want 0", code)
	}

	// top edge: lenient clamps, strict rejects
	code, err = lon.Normalize(180, Lenient)
	if err != nil {
		t.Fatalf("lenient normalize(180): %v", err)
	}
	if want := uint64(1)<<21 - 1; code != want {
		t.Fatalf("lenient normalize(180) = %d, want %d", code, want)
	}
	if _, err := lon.Normalize(180, Strict); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("strict normalize(180): got %v, want ErrOutOfBounds", err)
	}
	if _, err := lon.Normalize(-180.0001, Strict); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("strict normalize(-180.0001): got %v, want ErrOutOfBounds", err)
	}

	// lenient clamps far outside the domain too
	code, err = lon.Normalize(500, Lenient)
	if err != nil || code != uint64(1)<<21-1 {
		t.Fatalf("lenient normalize(500) = %d, %v", code, err)
	}
	code, err = lon.Normalize(-500, Lenient)
	if err != nil || code != 0 {
		t.Fatalf("lenient normalize(-500) = %d, %v", code, err)
	}
}

func TestRoundTrip_Bound(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	dims := []struct {
		min, max float64
		bits     uint
	}{
		{-180, 180, 21},
		{-90, 90, 21},
		{0, 604800, 16},
		{-180, 180, 4},
	}
	for _, dc := range dims {
		d, err := NewDimension(dc.min, dc.max, dc.bits)
		if err != nil {
			t.Fatalf("NewDimension(%v): %v", dc, err)
		}
		bound := (dc.max - dc.min) / float64(uint64(1)<<dc.bits)
		for i := 0; i < 1000; i++ {
			x := dc.min + rng.Float64()*(dc.max-dc.min)
			code, err := d.Normalize(x, Strict)
			if err != nil {
				t.Fatalf("normalize(%g): %v", x, err)
			}
			got := d.Denormalize(code)
			if math.Abs(got-x) > bound {
				t.Fatalf("bits=%d |denormalize(normalize(%g)) - %g| = %g > %g",
					dc.bits, x, x, math.Abs(got-x), bound)
			}
			if got < dc.min || got > dc.max {
				t.Fatalf("denormalize(%d) = %g outside [%g, %g]", code, got, dc.min, dc.max)
			}
		}
	}
}

func TestCellEdges(t *testing.T) {
	d, err := NewDimension(0, 16, 2) // 4 cells of width 4
	if err != nil {
		t.Fatalf("NewDimension: %v", err)
	}
	if got := d.Resolution(); got != 4 {
		t.Fatalf("Resolution = %g, want 4", got)
	}
	if lo, hi := d.CellMin(1), d.CellMax(1); lo != 4 || hi != 8 {
		t.Fatalf("cell 1 = [%g, %g], want [4, 8]", lo, hi)
	}
	if got := d.Denormalize(3); got != 14 {
		t.Fatalf("Denormalize(3) = %g, want 14 (cell center)", got)
	}
}
