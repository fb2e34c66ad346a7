// Package seenset implements the global, cross-stream "have we extracted
// this domain yet" set: a hash map sharded on the first byte of the name,
// so concurrent streams don't serialize on one lock.
package seenset

import (
	"hash/fnv"
	"sync"
)

const shardCount = 256

// Set is a concurrency-safe string set with atomic contains-or-insert.
// Every harvest owns exactly one Set, passed by reference into its
// streams, and discards it on completion.
type Set struct {
	shards [shardCount]shard
}

type shard struct {
	mu      sync.Mutex
	members map[string]struct{}
}

// New returns an empty Set ready for concurrent use.
func New() *Set {
	s := &Set{}
	for i := range s.shards {
		s.shards[i].members = make(map[string]struct{})
	}
	return s
}

// InsertIfAbsent atomically checks whether name is already a member and,
// if not, inserts it. It returns true if this call performed the
// insertion (i.e. name was new), false if name was already present. This
// is the only cross-stream synchronization point a harvest needs.
func (s *Set) InsertIfAbsent(name string) bool {
	sh := &s.shards[shardFor(name)]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.members[name]; ok {
		return false
	}
	sh.members[name] = struct{}{}
	return true
}

// Len returns the total number of distinct names seen so far. Intended
// for status reporting, not for synchronization.
func (s *Set) Len() int {
	total := 0
	for i := range s.shards {
		s.shards[i].mu.Lock()
		total += len(s.shards[i].members)
		s.shards[i].mu.Unlock()
	}
	return total
}

func shardFor(name string) uint32 {
	if name == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte{name[0]})
	return h.Sum32() % shardCount
}
