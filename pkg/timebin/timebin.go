// Package timebin partitions absolute time into fixed-width bins so the
// temporal dimension of a spatio-temporal curve stays bounded regardless of
// dataset age. Keys from different bins live in separate coordinate spaces and
// are only comparable bin id first, then key.
package timebin

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var ErrBeforeEpoch = errors.New("timebin: timestamp before epoch")

// Period is the bin width, fixed at index creation and immutable thereafter.
type Period int

const (
	Day Period = iota
	Week
	Month
	Year
)

var periodNames = [...]string{"day", "week", "month", "year"}

// Fixed bin lengths. Month and year use fixed 31-day and 365-day widths so
// that bin id stays a pure division; bins are index partitions, not calendar
// labels.
var periodLengths = [...]time.Duration{
	Day:   24 * time.Hour,
	Week:  7 * 24 * time.Hour,
	Month: 31 * 24 * time.Hour,
	Year:  365 * 24 * time.Hour,
}

func (p Period) valid() bool { return p >= Day && p <= Year }

func (p Period) String() string {
	if !p.valid() {
		return fmt.Sprintf("period(%d)", int(p))
	}
	return periodNames[p]
}

// Length returns the fixed bin width.
func (p Period) Length() time.Duration { return periodLengths[p] }

// MaxOffset returns the exclusive upper bound of a bin-relative offset,
// in seconds.
func (p Period) MaxOffset() float64 { return periodLengths[p].Seconds() }

func ParsePeriod(s string) (Period, error) {
	for i, n := range periodNames {
		if strings.EqualFold(strings.TrimSpace(s), n) {
			return Period(i), nil
		}
	}
	return 0, fmt.Errorf("timebin: unknown period %q", s)
}

// BinnedTime is an absolute timestamp projected through a Period: the bin id
// counts whole periods since the Unix epoch, the offset is seconds into the
// bin. Every timestamp lives in exactly one bin.
type BinnedTime struct {
	Bin    uint16
	Offset float64
}

// Binner projects timestamps for one configured period. Immutable.
type Binner struct {
	period Period
}

func NewBinner(p Period) (Binner, error) {
	if !p.valid() {
		return Binner{}, fmt.Errorf("timebin: invalid period %d", int(p))
	}
	return Binner{period: p}, nil
}

func (b Binner) Period() Period { return b.period }

// Bin projects t into its bin. Timestamps before the epoch or past the uint16
// bin horizon are rejected; they cannot be represented in the key layout.
func (b Binner) Bin(t time.Time) (BinnedTime, error) {
	secs := float64(t.UnixMilli()) / 1000
	if secs < 0 {
		return BinnedTime{}, fmt.Errorf("%w: %s", ErrBeforeEpoch, t.UTC())
	}
	length := b.period.Length().Seconds()
	bin := math.Floor(secs / length)
	if bin > math.MaxUint16 {
		return BinnedTime{}, fmt.Errorf("timebin: %s past bin horizon for period %s", t.UTC(), b.period)
	}
	return BinnedTime{Bin: uint16(bin), Offset: secs - bin*length}, nil
}

// Start returns the absolute start of a bin. Computed in whole seconds: a
// year-period bin id multiplied out as a Duration overflows int64 nanoseconds.
func (b Binner) Start(bin uint16) time.Time {
	return time.Unix(int64(bin)*int64(b.period.Length()/time.Second), 0).UTC()
}

// BinsFor returns the inclusive bin id span covered by [start, end], with the
// offsets of the interval ends inside the first and last bin. Used by the
// planner to clip the temporal dimension of per-bin curve queries. Bounds
// outside [epoch, bin horizon] are clamped, not rejected; only the write path
// is strict about representable time.
func (b Binner) BinsFor(start, end time.Time) (lo, hi BinnedTime, err error) {
	if end.Before(start) {
		return BinnedTime{}, BinnedTime{}, fmt.Errorf("timebin: interval end %s before start %s", end.UTC(), start.UTC())
	}
	start = b.clampToHorizon(start)
	end = b.clampToHorizon(end)
	lo, err = b.Bin(start)
	if err != nil {
		return BinnedTime{}, BinnedTime{}, err
	}
	hi, err = b.Bin(end)
	if err != nil {
		return BinnedTime{}, BinnedTime{}, err
	}
	return lo, hi, nil
}

func (b Binner) clampToHorizon(t time.Time) time.Time {
	epoch := time.Unix(0, 0)
	if t.Before(epoch) {
		return epoch
	}
	lengthSecs := int64(b.period.Length() / time.Second)
	horizon := time.Unix((math.MaxUint16+1)*lengthSecs, 0).Add(-time.Millisecond)
	if t.After(horizon) {
		return horizon
	}
	return t
}
