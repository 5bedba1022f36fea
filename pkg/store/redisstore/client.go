// Package redisstore maps the sorted byte keyspace onto Redis: a sorted set
// (all scores zero) provides lexicographic range scans, a hash holds record
// values. One namespace per feature type.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spatialkv/zindex/internal/core/observability"
	"github.com/spatialkv/zindex/pkg/store"
)

type Option func(*redis.Options)

func WithPoolSize(n int) Option {
	return func(o *redis.Options) { o.PoolSize = n }
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.DialTimeout = d }
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.ReadTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.WriteTimeout = d }
}

type Store struct {
	rdb      *redis.Client
	keysName string
	valsName string
}

var _ store.Scanner = (*Store)(nil)
var _ store.Writer = (*Store)(nil)

// New connects and pings. namespace is usually the feature type name.
func New(ctx context.Context, addr, namespace string, opts ...Option) (*Store, error) {
	if addr == "" {
		return nil, errors.New("redisstore: address is required")
	}
	if namespace == "" {
		return nil, errors.New("redisstore: namespace is required")
	}

	ro := &redis.Options{
		Addr:         addr,
		PoolSize:     32,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	}
	for _, f := range opts {
		f(ro)
	}

	rdb := redis.NewClient(ro)

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	observability.ObserveStoreOp("ping", err, time.Since(start).Seconds())
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}
	return &Store{
		rdb:      rdb,
		keysName: "zindex:" + namespace + ":keys",
		valsName: "zindex:" + namespace + ":vals",
	}, nil
}

func (s *Store) Close() error { return s.rdb.Close() }

func (s *Store) Put(ctx context.Context, key, value []byte) error {
	start := time.Now()
	pipe := s.rdb.TxPipeline()
	pipe.ZAdd(ctx, s.keysName, redis.Z{Score: 0, Member: string(key)})
	pipe.HSet(ctx, s.valsName, string(key), value)
	_, err := pipe.Exec(ctx)
	observability.ObserveStoreOp("put", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redisstore: put: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key []byte) error {
	start := time.Now()
	pipe := s.rdb.TxPipeline()
	pipe.ZRem(ctx, s.keysName, string(key))
	pipe.HDel(ctx, s.valsName, string(key))
	_, err := pipe.Exec(ctx)
	observability.ObserveStoreOp("delete", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redisstore: delete: %w", err)
	}
	return nil
}

// Scan runs ZRANGEBYLEX over [start, end) and fetches values in one HMGET.
func (s *Store) Scan(ctx context.Context, startKey, endKey []byte) (store.Iterator, error) {
	start := time.Now()
	keys, err := s.rdb.ZRangeByLex(ctx, s.keysName, &redis.ZRangeBy{
		Min: "[" + string(startKey),
		Max: "(" + string(endKey),
	}).Result()
	observability.ObserveStoreOp("scan", err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("redisstore: ZRANGEBYLEX: %w", err)
	}
	if len(keys) == 0 {
		return emptyIterator{}, nil
	}

	start = time.Now()
	vals, err := s.rdb.HMGet(ctx, s.valsName, keys...).Result()
	observability.ObserveStoreOp("hmget", err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("redisstore: HMGET %d keys: %w", len(keys), err)
	}

	recs := make([]store.Record, 0, len(keys))
	for i, k := range keys {
		rec := store.Record{Key: []byte(k)}
		switch v := vals[i].(type) {
		case nil:
			// key without value, tolerated as an empty record
		case string:
			rec.Value = []byte(v)
		case []byte:
			rec.Value = v
		default:
			rec.Value = fmt.Append(nil, v)
		}
		recs = append(recs, rec)
	}
	return &sliceIterator{recs: recs}, nil
}

type sliceIterator struct {
	recs []store.Record
	pos  int
}

func (it *sliceIterator) Next() bool {
	if it.pos >= len(it.recs) {
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Record() store.Record { return it.recs[it.pos-1] }
func (it *sliceIterator) Err() error           { return nil }
func (it *sliceIterator) Close() error         { return nil }

type emptyIterator struct{}

func (emptyIterator) Next() bool           { return false }
func (emptyIterator) Record() store.Record { return store.Record{} }
func (emptyIterator) Err() error           { return nil }
func (emptyIterator) Close() error         { return nil }
