package zcurve

import "fmt"

// Z3 interleaves three dimensions, first dimension most significant. The third
// dimension is conventionally a bin-relative time offset (see pkg/timebin):
// keys from different bins are only comparable bin id first, then key.
// Safe for concurrent use; no mutable state after construction.
type Z3 struct {
	X, Y, T Dimension
	bits    uint
}

func NewZ3(x, y, t Dimension) (*Z3, error) {
	if x.Bits != y.Bits || x.Bits != t.Bits {
		return nil, fmt.Errorf("zcurve: z3 dimensions must share precision, got %d, %d and %d", x.Bits, y.Bits, t.Bits)
	}
	return &Z3{X: x, Y: y, T: t, bits: x.Bits}, nil
}

// Bits returns the per-dimension precision.
func (z *Z3) Bits() uint { return z.bits }

func (z *Z3) Encode(x, y, t float64, mode Mode) (Key, error) {
	xc, err := z.X.Normalize(x, mode)
	if err != nil {
		return 0, err
	}
	yc, err := z.Y.Normalize(y, mode)
	if err != nil {
		return 0, err
	}
	tc, err := z.T.Normalize(t, mode)
	if err != nil {
		return 0, err
	}
	return z.key([3]uint64{xc, yc, tc}), nil
}

func (z *Z3) Decode(k Key) (x, y, t float64) {
	xc := compact3(uint64(k) >> 2)
	yc := compact3(uint64(k) >> 1)
	tc := compact3(uint64(k))
	return z.X.Denormalize(xc), z.Y.Denormalize(yc), z.T.Denormalize(tc)
}

func (z *Z3) key(codes [3]uint64) Key {
	return Key(spread3(codes[0])<<2 | spread3(codes[1])<<1 | spread3(codes[2]))
}

func (z *Z3) dims() int           { return 3 }
func (z *Z3) dim(i int) Dimension { return [3]Dimension{z.X, z.Y, z.T}[i] }
