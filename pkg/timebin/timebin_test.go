package timebin

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	cases := map[string]Period{
		"day":   Day,
		"week":  Week,
		"Month": Month,
		" YEAR": Year,
	}
	for in, want := range cases {
		got, err := ParsePeriod(in)
		if err != nil {
			t.Fatalf("ParsePeriod(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParsePeriod(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParsePeriod("fortnight"); err == nil {
		t.Fatalf("expected error for unknown period")
	}
}

func TestNewBinner_InvalidPeriod(t *testing.T) {
	if _, err := NewBinner(Period(9)); err == nil {
		t.Fatalf("expected error for invalid period")
	}
}

func TestBin_WeekEpoch(t *testing.T) {
	b, err := NewBinner(Week)
	if err != nil {
		t.Fatalf("NewBinner: %v", err)
	}

	bt, err := b.Bin(time.Unix(0, 0))
	if err != nil {
		t.Fatalf("Bin(epoch): %v", err)
	}
	if bt.Bin != 0 || bt.Offset != 0 {
		t.Fatalf("Bin(epoch) = %+v, want bin 0 offset 0", bt)
	}

	// 10 days in: second week, 3 days of offset
	bt, err = b.Bin(time.Unix(10*86400, 0))
	if err != nil {
		t.Fatalf("Bin: %v", err)
	}
	if bt.Bin != 1 {
		t.Fatalf("bin = %d, want 1", bt.Bin)
	}
	if want := float64(3 * 86400); bt.Offset != want {
		t.Fatalf("offset = %g, want %g", bt.Offset, want)
	}
}

func TestBin_OffsetWithinBounds(t *testing.T) {
	for _, p := range []Period{Day, Week, Month, Year} {
		b, err := NewBinner(p)
		if err != nil {
			t.Fatalf("NewBinner(%v): %v", p, err)
		}
		for _, ts := range []time.Time{
			time.Unix(0, 0),
			time.Date(2016, 3, 15, 12, 30, 0, 0, time.UTC),
			time.Date(2026, 8, 31, 0, 0, 0, 500e6, time.UTC),
		} {
			bt, err := b.Bin(ts)
			if err != nil {
				t.Fatalf("Bin(%s): %v", ts, err)
			}
			if bt.Offset < 0 || bt.Offset >= p.MaxOffset() {
				t.Fatalf("period %v: offset %g outside [0, %g)", p, bt.Offset, p.MaxOffset())
			}
			// bin start + offset reproduces the timestamp
			back := b.Start(bt.Bin).Add(time.Duration(bt.Offset * float64(time.Second)))
			if d := back.Sub(ts); d > time.Millisecond || d < -time.Millisecond {
				t.Fatalf("period %v: bin %d + offset %g off by %s from %s", p, bt.Bin, bt.Offset, d, ts)
			}
		}
	}
}

func TestBin_BeforeEpoch(t *testing.T) {
	b, err := NewBinner(Day)
	if err != nil {
		t.Fatalf("NewBinner: %v", err)
	}
	if _, err := b.Bin(time.Unix(-1, 0)); !errors.Is(err, ErrBeforeEpoch) {
		t.Fatalf("got %v, want ErrBeforeEpoch", err)
	}
}

func TestBinsFor(t *testing.T) {
	b, err := NewBinner(Day)
	if err != nil {
		t.Fatalf("NewBinner: %v", err)
	}
	start := time.Unix(86400+3600, 0)   // day 1, 01:00
	end := time.Unix(3*86400+7200, 0)   // day 3, 02:00
	lo, hi, err := b.BinsFor(start, end)
	if err != nil {
		t.Fatalf("BinsFor: %v", err)
	}
	if lo.Bin != 1 || hi.Bin != 3 {
		t.Fatalf("bins = %d..%d, want 1..3", lo.Bin, hi.Bin)
	}
	if lo.Offset != 3600 || hi.Offset != 7200 {
		t.Fatalf("offsets = %g, %g, want 3600, 7200", lo.Offset, hi.Offset)
	}

	if _, _, err := b.BinsFor(end, start); err == nil {
		t.Fatalf("expected error for inverted interval")
	}
}

func TestBinsFor_ClampsToHorizon(t *testing.T) {
	b, err := NewBinner(Day)
	if err != nil {
		t.Fatalf("NewBinner: %v", err)
	}

	// pre-epoch start clamps to bin 0
	lo, hi, err := b.BinsFor(time.Unix(-1e9, 0), time.Unix(2*86400, 0))
	if err != nil {
		t.Fatalf("BinsFor: %v", err)
	}
	if lo.Bin != 0 || lo.Offset != 0 {
		t.Fatalf("clamped start = %+v, want bin 0 offset 0", lo)
	}
	if hi.Bin != 2 {
		t.Fatalf("end bin = %d, want 2", hi.Bin)
	}

	// far-future end clamps to the last representable bin
	lo, hi, err = b.BinsFor(time.Unix(86400, 0), time.Unix(1e13, 0))
	if err != nil {
		t.Fatalf("BinsFor: %v", err)
	}
	if lo.Bin != 1 || hi.Bin != math.MaxUint16 {
		t.Fatalf("bins = %d..%d, want 1..%d", lo.Bin, hi.Bin, math.MaxUint16)
	}

	// interval entirely outside the horizon collapses to its nearest bin
	lo, hi, err = b.BinsFor(time.Unix(1e13, 0), time.Unix(2e13, 0))
	if err != nil {
		t.Fatalf("BinsFor: %v", err)
	}
	if lo.Bin != math.MaxUint16 || hi.Bin != math.MaxUint16 {
		t.Fatalf("bins = %d..%d, want last bin twice", lo.Bin, hi.Bin)
	}
}

func TestStart_LastYearBin(t *testing.T) {
	b, err := NewBinner(Year)
	if err != nil {
		t.Fatalf("NewBinner: %v", err)
	}
	got := b.Start(math.MaxUint16)
	if want := int64(math.MaxUint16) * 365 * 86400; got.Unix() != want {
		t.Fatalf("Start(last bin) = %d, want %d", got.Unix(), want)
	}
}
