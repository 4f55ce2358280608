package protocol

import "sync"

// Sequence hands out request ids for a single buffer instance. Ids start at
// 0, increase by one per request and are never reused.
type Sequence struct {
	mu   sync.Mutex
	next uint64
}

// NewSequence constructs a sequence starting at 0.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next reserves and returns the next request id.
func (s *Sequence) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next - 1
}

// Peek returns the next id without reserving it.
func (s *Sequence) Peek() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
