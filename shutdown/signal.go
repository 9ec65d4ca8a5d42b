package shutdown

import "sync"

// SignalCounter counts shutdown signals and calls onForce once the count
// reaches forceAfter: the first signal is graceful, a repeat is not.
type SignalCounter struct {
	mu         sync.Mutex
	count      int
	forceAfter int
	onForce    func()
}

func NewSignalCounter(forceAfter int, onForce func()) *SignalCounter {
	return &SignalCounter{forceAfter: forceAfter, onForce: onForce}
}

// Increment records a signal and returns the new count.
func (s *SignalCounter) Increment() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	if s.count >= s.forceAfter && s.onForce != nil {
		s.onForce()
	}
	return s.count
}

func (s *SignalCounter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
