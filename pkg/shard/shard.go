// Package shard assigns features to storage partitions. The shard id occupies
// a single leading key byte alongside a reserved sign bit, so counts are
// limited to 1..127. Range scans run once per shard and are merged by the
// caller; decomposed curve ranges are shard-agnostic.
package shard

import (
	"fmt"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// MaxShards is the largest allowed shard count.
const MaxShards = 127

// Strategy assigns a shard byte to a feature identifier.
type Strategy interface {
	// Shard returns the partition byte for id, in [0, Count).
	Shard(id string) byte
	// Locate returns the shard a previously written id lives on. ok=false
	// when assignment is not reproducible and all shards must be searched.
	Locate(id string) (byte, bool)
	// Count returns the configured shard count.
	Count() int
}

// All returns every shard byte for count shards, for replicating query ranges
// across partitions.
func All(count int) []byte {
	out := make([]byte, count)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}

func validate(count int) error {
	if count < 1 || count > MaxShards {
		return fmt.Errorf("shard: count %d outside 1..%d", count, MaxShards)
	}
	return nil
}

// hashed distributes by a hash of the identifier: even load, no locality.
type hashed struct {
	count uint64
}

// NewHashed returns the default strategy, keyed on xxhash of the identifier.
func NewHashed(count int) (Strategy, error) {
	if err := validate(count); err != nil {
		return nil, err
	}
	return &hashed{count: uint64(count)}, nil
}

func (h *hashed) Shard(id string) byte {
	return byte(xxhash.Sum64String(id) % h.count)
}

func (h *hashed) Locate(id string) (byte, bool) { return h.Shard(id), true }

func (h *hashed) Count() int { return int(h.count) }

// roundRobin cycles through shards in write order. Deterministic spread for
// small fixtures and quick test setups.
type roundRobin struct {
	count uint32
	next  atomic.Uint32
}

func NewRoundRobin(count int) (Strategy, error) {
	if err := validate(count); err != nil {
		return nil, err
	}
	return &roundRobin{count: uint32(count)}, nil
}

func (r *roundRobin) Shard(string) byte {
	n := r.next.Add(1) - 1
	return byte(n % r.count)
}

func (r *roundRobin) Locate(string) (byte, bool) { return 0, false }

func (r *roundRobin) Count() int { return int(r.count) }
