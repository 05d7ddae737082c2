// Package diag keeps the process-wide diagnostic error stack.
package diag

import (
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
)

// DefaultDepth is the number of errors kept before the oldest is dropped.
const DefaultDepth = 32

// Entry is one recorded error.
type Entry struct {
	Time time.Time
	Err  error
}

// Stack is a fixed-capacity FIFO of errors. Safe for concurrent use.
type Stack struct {
	mu       sync.Mutex
	buf      []Entry
	capacity int
	head     int // next write position
	count    int
	total    uint64
	overflow bool // true if any entry was dropped since last drain
}

// NewStack creates a stack holding up to depth entries.
func NewStack(depth int) *Stack {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Stack{
		buf:      make([]Entry, depth),
		capacity: depth,
	}
}

// Push records err at time now. A nil err is ignored.
func (s *Stack) Push(now time.Time, err error) {
	if err == nil {
		return
	}
	logger.Errorf("diag: %v", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	e := Entry{Time: now, Err: err}
	if s.count == s.capacity {
		if !s.overflow {
			logger.Warnf("diag: stack full (%d errors), dropping oldest", s.capacity)
			s.overflow = true
		}
		// Overwrite oldest: head is already pointing at it
		s.buf[s.head] = e
		s.head = (s.head + 1) % s.capacity
		return
	}
	s.buf[s.head] = e
	s.head = (s.head + 1) % s.capacity
	s.count++
}

// Entries returns the recorded errors, oldest first, without removing them.
func (s *Stack) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Drain returns the recorded errors, oldest first, and empties the stack.
func (s *Stack) Drain() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.snapshot()
	s.count = 0
	s.head = 0
	s.overflow = false
	return out
}

func (s *Stack) snapshot() []Entry {
	if s.count == 0 {
		return nil
	}
	result := make([]Entry, s.count)
	// Oldest item is at (head - count) mod capacity
	start := (s.head - s.count + s.capacity) % s.capacity
	for i := 0; i < s.count; i++ {
		result[i] = s.buf[(start+i)%s.capacity]
	}
	return result
}

// Len returns the number of errors held.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Total returns the number of errors pushed since creation, including
// dropped and drained ones.
func (s *Stack) Total() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Last returns the most recent entry.
func (s *Stack) Last() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 {
		return Entry{}, false
	}
	return s.buf[(s.head-1+s.capacity)%s.capacity], true
}
