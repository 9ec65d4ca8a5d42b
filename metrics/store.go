package metrics

import (
	"sync"
	"time"
)

// Store is safe for concurrent use. History is a fixed-size ring; the counts
// in Summary cover everything since start.
type Store struct {
	mu sync.RWMutex

	history []Record
	head    int
	size    int

	total         int64
	byOutcome     map[string]int64
	requests      int64
	totalDuration time.Duration

	startTime time.Time
}

// NewStore keeps the last capacity records; capacity below 1 means 100.
func NewStore(capacity int, startTime time.Time) *Store {
	if capacity < 1 {
		capacity = 100
	}
	return &Store{
		history:   make([]Record, capacity),
		byOutcome: make(map[string]int64),
		startTime: startTime,
	}
}

// Record adds r. Records with a request ID count as requests and contribute
// to the average duration.
func (s *Store) Record(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[s.head] = r
	s.head = (s.head + 1) % len(s.history)
	if s.size < len(s.history) {
		s.size++
	}

	s.total++
	s.byOutcome[r.Outcome]++
	if r.RequestID != "" {
		s.requests++
		s.totalDuration += r.Duration
	}
}

// Summary returns the aggregate counts.
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{
		Total:     s.total,
		ByOutcome: make(map[string]int64, len(s.byOutcome)),
		Requests:  s.requests,
		Uptime:    time.Since(s.startTime),
	}
	for k, v := range s.byOutcome {
		sum.ByOutcome[k] = v
	}
	if s.requests > 0 {
		sum.AvgDuration = s.totalDuration / time.Duration(s.requests)
	}
	return sum
}

// Recent returns up to limit records, oldest first.
func (s *Store) Recent(limit int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || s.size == 0 {
		return []Record{}
	}
	if limit > s.size {
		limit = s.size
	}
	n := len(s.history)
	out := make([]Record, limit)
	for i := 0; i < limit; i++ {
		out[i] = s.history[(s.head-limit+i+n)%n]
	}
	return out
}
