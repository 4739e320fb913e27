// Package history holds the rolling window of past calculation records. The
// store is a fixed-capacity ring buffer with O(1) eviction: appending past
// capacity silently drops the oldest record, never shifts.
package history

import (
	"sync"

	"github.com/halfpoint/medianengine/internal/models"
)

// Store is the bounded FIFO of HistoryRecords. Safe for concurrent use; a
// single mutex is plenty at the engine's human-timescale call rate.
type Store struct {
	mu       sync.Mutex
	buf      []models.HistoryRecord
	head     int // index of the oldest record
	size     int
	capacity int
}

// NewStore creates a store holding at most capacity records. Capacity below 1
// is coerced to 1.
func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{
		buf:      make([]models.HistoryRecord, capacity),
		capacity: capacity,
	}
}

// Append records one calculation, evicting the oldest record when full.
func (s *Store) Append(rec models.HistoryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.size < s.capacity {
		s.buf[(s.head+s.size)%s.capacity] = rec
		s.size++
		return
	}
	s.buf[s.head] = rec
	s.head = (s.head + 1) % s.capacity
}

// Snapshot returns all records oldest-first. The slice is a copy; callers may
// hold it across further appends.
func (s *Store) Snapshot() []models.HistoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.HistoryRecord, s.size)
	for i := 0; i < s.size; i++ {
		out[i] = s.buf[(s.head+i)%s.capacity]
	}
	return out
}

// Recent returns the newest n records, oldest-first. n larger than the stored
// count returns everything.
func (s *Store) Recent(n int) []models.HistoryRecord {
	all := s.Snapshot()
	if n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Len reports how many records are currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Capacity reports the configured maximum.
func (s *Store) Capacity() int { return s.capacity }
