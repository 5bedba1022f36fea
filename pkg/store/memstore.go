package store

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// MemStore is a sorted in-memory key-value store for tests and embedding.
type MemStore struct {
	mu   sync.RWMutex
	keys [][]byte
	vals map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{vals: make(map[string][]byte)}
}

func (m *MemStore) Put(_ context.Context, key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := string(key)
	if _, exists := m.vals[k]; !exists {
		i := sort.Search(len(m.keys), func(i int) bool { return bytes.Compare(m.keys[i], key) >= 0 })
		m.keys = append(m.keys, nil)
		copy(m.keys[i+1:], m.keys[i:])
		m.keys[i] = append([]byte(nil), key...)
	}
	m.vals[k] = append([]byte(nil), value...)
	return nil
}

func (m *MemStore) Delete(_ context.Context, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := string(key)
	if _, exists := m.vals[k]; !exists {
		return nil
	}
	delete(m.vals, k)
	i := sort.Search(len(m.keys), func(i int) bool { return bytes.Compare(m.keys[i], key) >= 0 })
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	return nil
}

func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

func (m *MemStore) Scan(_ context.Context, start, end []byte) (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lo := sort.Search(len(m.keys), func(i int) bool { return bytes.Compare(m.keys[i], start) >= 0 })
	hi := sort.Search(len(m.keys), func(i int) bool { return bytes.Compare(m.keys[i], end) >= 0 })
	recs := make([]Record, 0, hi-lo)
	for _, k := range m.keys[lo:hi] {
		recs = append(recs, Record{Key: append([]byte(nil), k...), Value: m.vals[string(k)]})
	}
	return &sliceIterator{recs: recs}, nil
}

type sliceIterator struct {
	recs []Record
	pos  int
}

func (it *sliceIterator) Next() bool {
	if it.pos >= len(it.recs) {
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Record() Record { return it.recs[it.pos-1] }
func (it *sliceIterator) Err() error     { return nil }
func (it *sliceIterator) Close() error   { return nil }
