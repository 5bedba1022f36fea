package zcurve

import "fmt"

// Key is a sortable curve key. Bit-interleaved dimension codes occupy the low
// bits; the sign bit is never set, so int64 ordering matches curve ordering.
type Key int64

// Z2 interleaves two dimensions, first dimension most significant.
// Safe for concurrent use; no mutable state after construction.
type Z2 struct {
	X, Y Dimension
	bits uint
}

func NewZ2(x, y Dimension) (*Z2, error) {
	if x.Bits != y.Bits {
		return nil, fmt.Errorf("zcurve: z2 dimensions must share precision, got %d and %d", x.Bits, y.Bits)
	}
	return &Z2{X: x, Y: y, bits: x.Bits}, nil
}

// Bits returns the per-dimension precision.
func (z *Z2) Bits() uint { return z.bits }

func (z *Z2) Encode(x, y float64, mode Mode) (Key, error) {
	xc, err := z.X.Normalize(x, mode)
	if err != nil {
		return 0, err
	}
	yc, err := z.Y.Normalize(y, mode)
	if err != nil {
		return 0, err
	}
	return z.key([3]uint64{xc, yc}), nil
}

func (z *Z2) Decode(k Key) (x, y float64) {
	xc := compact2(uint64(k) >> 1)
	yc := compact2(uint64(k))
	return z.X.Denormalize(xc), z.Y.Denormalize(yc)
}

func (z *Z2) key(codes [3]uint64) Key {
	return Key(spread2(codes[0])<<1 | spread2(codes[1]))
}

func (z *Z2) dims() int           { return 2 }
func (z *Z2) dim(i int) Dimension { return [2]Dimension{z.X, z.Y}[i] }
