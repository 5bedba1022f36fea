// Package index defines index schema metadata, the per-kind index
// implementations, and the storage key layout shared with backends. Keys are
// big-endian throughout so byte order equals scan order.
package index

import (
	"errors"
	"fmt"

	"github.com/spatialkv/zindex/pkg/shard"
	"github.com/spatialkv/zindex/pkg/timebin"
	"github.com/spatialkv/zindex/pkg/zcurve"
)

var ErrConfig = errors.New("index: invalid configuration")

// Kind discriminates index implementations at the planner level.
type Kind int

const (
	SpatioTemporal Kind = iota
	Spatial
	Attribute
	Identifier
	FullScan
)

var kindNames = [...]string{"z3", "z2", "attr", "id", "full"}

func (k Kind) String() string {
	if k < SpatioTemporal || k > FullScan {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Schema is the external configuration of a feature type's indices. All
// fields are fixed at creation; changing curve precision or period requires
// a new index.
type Schema struct {
	TypeName string
	// Bits is the per-dimension curve precision, 1..21.
	Bits uint
	// Period is the temporal bin width for the spatio-temporal index.
	Period timebin.Period
	// Shards spreads keys over leading partition bytes, 1..127.
	Shards int
	// RoundRobin selects sequential shard assignment instead of id hashing.
	RoundRobin bool
	// MaxRanges caps decomposed ranges per query. Zero means DefaultMaxRanges.
	MaxRanges int
	// Precision is the decomposition depth per dimension. Zero means the
	// zcurve default.
	Precision int
	// Attributes lists equality-indexed attribute fields.
	Attributes []string
	// Kinds lists the indices to build. Empty means all applicable kinds.
	Kinds []Kind
}

// DefaultMaxRanges bounds scan fan-out per logical query.
const DefaultMaxRanges = 64

func (s Schema) Validate() error {
	if s.TypeName == "" {
		return fmt.Errorf("%w: empty type name", ErrConfig)
	}
	if s.Bits == 0 || s.Bits > zcurve.MaxBits {
		return fmt.Errorf("%w: precision bits %d outside 1..%d", ErrConfig, s.Bits, zcurve.MaxBits)
	}
	if s.Shards < 1 || s.Shards > shard.MaxShards {
		return fmt.Errorf("%w: shard count %d outside 1..%d", ErrConfig, s.Shards, shard.MaxShards)
	}
	if _, err := timebin.NewBinner(s.Period); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if s.MaxRanges < 0 {
		return fmt.Errorf("%w: negative max ranges %d", ErrConfig, s.MaxRanges)
	}
	if s.Precision < 0 {
		return fmt.Errorf("%w: negative precision %d", ErrConfig, s.Precision)
	}
	return nil
}

func (s Schema) maxRanges() int {
	if s.MaxRanges == 0 {
		return DefaultMaxRanges
	}
	return s.MaxRanges
}

// RangeOpts returns the decomposition budget configured by the schema.
func (s Schema) RangeOpts() zcurve.RangeOpts {
	return zcurve.RangeOpts{Precision: s.Precision, MaxRanges: s.maxRanges()}
}

func (s Schema) wants(k Kind) bool {
	if len(s.Kinds) == 0 {
		return true
	}
	for _, w := range s.Kinds {
		if w == k {
			return true
		}
	}
	return false
}

// Set holds the constructed indices for one feature type. Nil members were
// not configured. The full-scan index is always present.
type Set struct {
	Schema  Schema
	Sharder shard.Strategy

	Z3   *Z3Index
	Z2   *Z2Index
	Attr []*AttrIndex
	ID   *IDIndex
	Full *FullIndex
}

// NewSet validates the schema and builds its indices. Configuration errors
// surface here and nowhere later.
func NewSet(s Schema) (*Set, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var sharder shard.Strategy
	var err error
	if s.RoundRobin {
		sharder, err = shard.NewRoundRobin(s.Shards)
	} else {
		sharder, err = shard.NewHashed(s.Shards)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	set := &Set{Schema: s, Sharder: sharder, Full: &FullIndex{sharder: sharder}}

	lon, err := zcurve.LonDimension(s.Bits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	lat, err := zcurve.LatDimension(s.Bits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	if s.wants(SpatioTemporal) {
		binner, err := timebin.NewBinner(s.Period)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		tdim, err := zcurve.NewDimension(0, s.Period.MaxOffset(), s.Bits)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		z3, err := zcurve.NewZ3(lon, lat, tdim)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		set.Z3 = &Z3Index{curve: z3, binner: binner, sharder: sharder, opts: s.RangeOpts()}
	}

	if s.wants(Spatial) {
		z2, err := zcurve.NewZ2(lon, lat)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		set.Z2 = &Z2Index{curve: z2, sharder: sharder, opts: s.RangeOpts()}
	}

	if s.wants(Identifier) {
		set.ID = &IDIndex{sharder: sharder}
	}

	if s.wants(Attribute) {
		for _, a := range s.Attributes {
			if a == "" {
				return nil, fmt.Errorf("%w: empty attribute name", ErrConfig)
			}
			set.Attr = append(set.Attr, &AttrIndex{attr: a, sharder: sharder})
		}
	}

	return set, nil
}

// AttrIndexFor returns the attribute index covering attr, or nil.
func (s *Set) AttrIndexFor(attr string) *AttrIndex {
	for _, a := range s.Attr {
		if a.attr == attr {
			return a
		}
	}
	return nil
}
