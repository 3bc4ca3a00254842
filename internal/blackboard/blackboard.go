// Package blackboard provides the shared key/value store roles use to
// exchange data within one orchestration run. Entries are last-writer-wins
// with a version counter; there are no multi-key transactions, so callers
// needing atomic multi-key updates must coordinate externally.
package blackboard

import (
	"errors"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNotFound indicates the requested key has never been written.
var ErrNotFound = errors.New("blackboard: key not found")

// shardCount is the number of lock shards. Writes to keys on different
// shards do not contend.
const shardCount = 16

// Entry is one blackboard record. Entries are immutable once returned;
// a new write replaces the entry wholesale, so readers never observe a
// partially-written value.
type Entry struct {
	// Key is the entry's unique key within the run.
	Key string `json:"key"`
	// Value is the stored payload.
	Value string `json:"value"`
	// WriterRole names the role that performed the latest write.
	WriterRole string `json:"writer_role"`
	// Version starts at 1 and increments on every overwrite.
	Version int `json:"version"`
	// WrittenAt is when the latest write happened.
	WrittenAt time.Time `json:"written_at"`
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// Board is a concurrency-safe blackboard. It is created per orchestration
// run and passed explicitly into every role call; it is never a singleton.
type Board struct {
	shards [shardCount]*shard
}

// New creates an empty Board.
func New() *Board {
	b := &Board{}
	for i := range b.shards {
		b.shards[i] = &shard{entries: make(map[string]*Entry)}
	}
	return b
}

func (b *Board) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return b.shards[h.Sum32()%shardCount]
}

// Put stores value under key on behalf of writer. Writing an existing key
// overwrites the value and increments the version: last writer wins,
// no merge.
func (b *Board) Put(key, value, writer string) *Entry {
	s := b.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	version := 1
	if prev, ok := s.entries[key]; ok {
		version = prev.Version + 1
	}
	e := &Entry{
		Key:        key,
		Value:      value,
		WriterRole: writer,
		Version:    version,
		WrittenAt:  time.Now(),
	}
	s.entries[key] = e
	return e
}

// Get returns the entry for key, or ErrNotFound.
func (b *Board) Get(key string) (*Entry, error) {
	s := b.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// Keys returns all keys currently on the board, sorted.
func (b *Board) Keys() []string {
	var keys []string
	for _, s := range b.shards {
		s.mu.RLock()
		for k := range s.entries {
			keys = append(keys, k)
		}
		s.mu.RUnlock()
	}
	sort.Strings(keys)
	return keys
}

// GetPrefix returns all entries whose key starts with prefix, ordered
// by key.
func (b *Board) GetPrefix(prefix string) []*Entry {
	var entries []*Entry
	for _, s := range b.shards {
		s.mu.RLock()
		for k, e := range s.entries {
			if strings.HasPrefix(k, prefix) {
				entries = append(entries, e)
			}
		}
		s.mu.RUnlock()
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// Snapshot returns a copy of every entry, ordered by key. The snapshot
// is taken shard by shard and is not a point-in-time view across shards.
func (b *Board) Snapshot() []Entry {
	var entries []Entry
	for _, s := range b.shards {
		s.mu.RLock()
		for _, e := range s.entries {
			entries = append(entries, *e)
		}
		s.mu.RUnlock()
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// Len returns the number of entries on the board.
func (b *Board) Len() int {
	n := 0
	for _, s := range b.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}
