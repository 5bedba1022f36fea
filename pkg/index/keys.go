package index

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/spatialkv/zindex/pkg/shard"
	"github.com/spatialkv/zindex/pkg/timebin"
	"github.com/spatialkv/zindex/pkg/zcurve"
)

// Storage key layouts, all prefixed with one shard byte:
//
//	z3:   [shard][bin:2][z:8][id]
//	z2:   [shard][z:8][id]
//	attr: [shard][value][0x00][id]
//	id:   [shard][id]
//
// Scan bounds are start-inclusive, end-exclusive.

// ScanRange is one byte-range scan request against one shard partition.
type ScanRange struct {
	Shard      byte
	Start, End []byte
}

// Rect is an axis-aligned spatial query rectangle, non-wrapping.
type Rect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// maxBinSpan caps per-bin decomposition work; queries spanning more bins get
// one whole-bin range per bin instead.
const maxBinSpan = 1024

// Z3Index is the spatio-temporal curve index.
type Z3Index struct {
	curve   *zcurve.Z3
	binner  timebin.Binner
	sharder shard.Strategy
	opts    zcurve.RangeOpts
}

func (ix *Z3Index) Kind() Kind   { return SpatioTemporal }
func (ix *Z3Index) Name() string { return "z3" }

// Curve exposes the codec for tests and diagnostics.
func (ix *Z3Index) Curve() *zcurve.Z3 { return ix.curve }

func (ix *Z3Index) Binner() timebin.Binner { return ix.binner }

// WriteKey encodes a feature for storage. Strict bounds: out-of-domain
// coordinates reject the write rather than mis-index it.
func (ix *Z3Index) WriteKey(id string, x, y float64, t time.Time) ([]byte, error) {
	bt, err := ix.binner.Bin(t)
	if err != nil {
		return nil, err
	}
	z, err := ix.curve.Encode(x, y, bt.Offset, zcurve.Strict)
	if err != nil {
		return nil, fmt.Errorf("%w (feature %s)", err, id)
	}
	key := make([]byte, 0, 11+len(id))
	key = append(key, ix.sharder.Shard(id))
	key = binary.BigEndian.AppendUint16(key, bt.Bin)
	key = binary.BigEndian.AppendUint64(key, uint64(z))
	return append(key, id...), nil
}

// ScanRanges decomposes rectangles clipped by [start, end] into per-shard,
// per-bin scan bounds. The returned count is the number of curve ranges
// before shard replication, which the planner uses as a selectivity signal.
func (ix *Z3Index) ScanRanges(rects []Rect, start, end time.Time) ([]ScanRange, int, error) {
	lo, hi, err := ix.binner.BinsFor(start, end)
	if err != nil {
		return nil, 0, err
	}

	type binRanges struct {
		bin uint16
		zrs []zcurve.ZRange
	}
	var perBin []binRanges

	if int(hi.Bin)-int(lo.Bin) > maxBinSpan {
		// Too many bins to decompose: one whole-bin range each.
		for bin := lo.Bin; ; bin++ {
			perBin = append(perBin, binRanges{bin: bin, zrs: []zcurve.ZRange{{Lower: 0, Upper: zcurve.Key(math.MaxInt64)}}})
			if bin == hi.Bin {
				break
			}
		}
	} else {
		maxOff := ix.binner.Period().MaxOffset()
		var middle []zcurve.ZRange
		for bin := lo.Bin; ; bin++ {
			tLo, tHi := 0.0, maxOff
			if bin == lo.Bin {
				tLo = lo.Offset
			}
			if bin == hi.Bin {
				tHi = hi.Offset
			}
			var zrs []zcurve.ZRange
			if tLo == 0 && tHi == maxOff && middle != nil {
				zrs = middle
			} else {
				zrs, err = ix.curve.Ranges(boxes3(rects, tLo, tHi), ix.opts)
				if err != nil {
					return nil, 0, err
				}
				if tLo == 0 && tHi == maxOff {
					middle = zrs
				}
			}
			perBin = append(perBin, binRanges{bin: bin, zrs: zrs})
			if bin == hi.Bin {
				break
			}
		}
	}

	count := 0
	var out []ScanRange
	for _, sh := range shard.All(ix.sharder.Count()) {
		for _, br := range perBin {
			for _, zr := range br.zrs {
				prefix := []byte{sh}
				startKey := binary.BigEndian.AppendUint16(prefix, br.bin)
				startKey = binary.BigEndian.AppendUint64(startKey, uint64(zr.Lower))
				endKey := binary.BigEndian.AppendUint16([]byte{sh}, br.bin)
				endKey = binary.BigEndian.AppendUint64(endKey, uint64(zr.Upper)+1)
				out = append(out, ScanRange{Shard: sh, Start: startKey, End: endKey})
			}
		}
	}
	for _, br := range perBin {
		count += len(br.zrs)
	}
	return out, count, nil
}

func boxes3(rects []Rect, tLo, tHi float64) []zcurve.Box3 {
	out := make([]zcurve.Box3, len(rects))
	for i, r := range rects {
		out[i] = zcurve.Box3{
			MinX: r.MinX, MinY: r.MinY, MinT: tLo,
			MaxX: r.MaxX, MaxY: r.MaxY, MaxT: tHi,
		}
	}
	return out
}

// Z2Index is the pure-spatial curve index.
type Z2Index struct {
	curve   *zcurve.Z2
	sharder shard.Strategy
	opts    zcurve.RangeOpts
}

func (ix *Z2Index) Kind() Kind   { return Spatial }
func (ix *Z2Index) Name() string { return "z2" }

func (ix *Z2Index) Curve() *zcurve.Z2 { return ix.curve }

func (ix *Z2Index) WriteKey(id string, x, y float64) ([]byte, error) {
	z, err := ix.curve.Encode(x, y, zcurve.Strict)
	if err != nil {
		return nil, fmt.Errorf("%w (feature %s)", err, id)
	}
	key := make([]byte, 0, 9+len(id))
	key = append(key, ix.sharder.Shard(id))
	key = binary.BigEndian.AppendUint64(key, uint64(z))
	return append(key, id...), nil
}

func (ix *Z2Index) ScanRanges(rects []Rect) ([]ScanRange, int, error) {
	boxes := make([]zcurve.Box2, len(rects))
	for i, r := range rects {
		boxes[i] = zcurve.Box2{MinX: r.MinX, MinY: r.MinY, MaxX: r.MaxX, MaxY: r.MaxY}
	}
	zrs, err := ix.curve.Ranges(boxes, ix.opts)
	if err != nil {
		return nil, 0, err
	}
	var out []ScanRange
	for _, sh := range shard.All(ix.sharder.Count()) {
		for _, zr := range zrs {
			startKey := binary.BigEndian.AppendUint64([]byte{sh}, uint64(zr.Lower))
			endKey := binary.BigEndian.AppendUint64([]byte{sh}, uint64(zr.Upper)+1)
			out = append(out, ScanRange{Shard: sh, Start: startKey, End: endKey})
		}
	}
	return out, len(zrs), nil
}

// IDIndex supports point lookups by feature identifier.
type IDIndex struct {
	sharder shard.Strategy
}

func (ix *IDIndex) Kind() Kind   { return Identifier }
func (ix *IDIndex) Name() string { return "id" }

func (ix *IDIndex) WriteKey(id string) []byte {
	key := make([]byte, 0, 1+len(id))
	key = append(key, ix.sharder.Shard(id))
	return append(key, id...)
}

// ScanRanges returns one point range per id. With a reproducible sharder each
// id maps to a single shard; otherwise every shard is probed.
func (ix *IDIndex) ScanRanges(ids []string) []ScanRange {
	var out []ScanRange
	for _, id := range ids {
		shards := shard.All(ix.sharder.Count())
		if sh, ok := ix.sharder.Locate(id); ok {
			shards = []byte{sh}
		}
		for _, sh := range shards {
			start := append([]byte{sh}, id...)
			end := append(append([]byte{sh}, id...), 0x00)
			out = append(out, ScanRange{Shard: sh, Start: start, End: end})
		}
	}
	sortRanges(out)
	return out
}

// AttrIndex supports equality lookups on one attribute. Values are stored as
// text with a 0x00 terminator before the id suffix.
type AttrIndex struct {
	attr    string
	sharder shard.Strategy
}

func (ix *AttrIndex) Kind() Kind        { return Attribute }
func (ix *AttrIndex) Name() string      { return "attr:" + ix.attr }
func (ix *AttrIndex) Attribute() string { return ix.attr }

func (ix *AttrIndex) WriteKey(id, value string) []byte {
	key := make([]byte, 0, 2+len(value)+len(id))
	key = append(key, ix.sharder.Shard(id))
	key = append(key, value...)
	key = append(key, 0x00)
	return append(key, id...)
}

func (ix *AttrIndex) ScanRanges(values []string) []ScanRange {
	var out []ScanRange
	for _, sh := range shard.All(ix.sharder.Count()) {
		for _, v := range values {
			start := append(append([]byte{sh}, v...), 0x00)
			end := append(append([]byte{sh}, v...), 0x01)
			out = append(out, ScanRange{Shard: sh, Start: start, End: end})
		}
	}
	sortRanges(out)
	return out
}

// FullIndex scans everything; the planner's strategy of last resort.
type FullIndex struct {
	sharder shard.Strategy
}

func (ix *FullIndex) Kind() Kind   { return FullScan }
func (ix *FullIndex) Name() string { return "full" }

func (ix *FullIndex) ScanRanges() []ScanRange {
	var out []ScanRange
	for _, sh := range shard.All(ix.sharder.Count()) {
		out = append(out, ScanRange{Shard: sh, Start: []byte{sh}, End: []byte{sh + 1}})
	}
	return out
}

func sortRanges(rs []ScanRange) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Shard != rs[j].Shard {
			return rs[i].Shard < rs[j].Shard
		}
		return string(rs[i].Start) < string(rs[j].Start)
	})
}
