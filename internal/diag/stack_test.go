package diag

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestStackEmpty(t *testing.T) {
	s := NewStack(4)
	assert.Nil(t, s.Drain())
	assert.Zero(t, s.Len())
	_, ok := s.Last()
	assert.False(t, ok)
}

func TestStackIgnoresNil(t *testing.T) {
	s := NewStack(4)
	s.Push(t0, nil)
	assert.Zero(t, s.Len())
	assert.Zero(t, s.Total())
}

func TestStackPushAndDrain(t *testing.T) {
	s := NewStack(10)
	for i := 0; i < 5; i++ {
		s.Push(t0.Add(time.Duration(i)*time.Second), fmt.Errorf("err %d", i))
	}

	got := s.Drain()
	require.Len(t, got, 5)
	for i, e := range got {
		assert.EqualError(t, e.Err, fmt.Sprintf("err %d", i))
	}
	assert.Nil(t, s.Drain(), "second drain should be empty")
	assert.Equal(t, uint64(5), s.Total())
}

func TestStackOverflowDropsOldest(t *testing.T) {
	s := NewStack(5)
	// Push 8 errors (0..7); the stack keeps the most recent 5 (3..7)
	for i := 0; i < 8; i++ {
		s.Push(t0, fmt.Errorf("err %d", i))
	}

	got := s.Entries()
	require.Len(t, got, 5)
	for i, e := range got {
		assert.EqualError(t, e.Err, fmt.Sprintf("err %d", i+3))
	}
	last, ok := s.Last()
	require.True(t, ok)
	assert.EqualError(t, last.Err, "err 7")
	assert.Equal(t, uint64(8), s.Total())
}

func TestStackEntriesDoesNotRemove(t *testing.T) {
	s := NewStack(3)
	s.Push(t0, fmt.Errorf("a"))
	s.Entries()
	assert.Equal(t, 1, s.Len())
}

func TestStackDefaultDepth(t *testing.T) {
	s := NewStack(0)
	for i := 0; i < DefaultDepth+1; i++ {
		s.Push(t0, fmt.Errorf("err %d", i))
	}
	assert.Equal(t, DefaultDepth, s.Len())
}

func TestStackConcurrentPush(t *testing.T) {
	s := NewStack(DefaultDepth)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Push(t0, fmt.Errorf("g%d-%d", n, j))
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, uint64(200), s.Total())
	assert.Equal(t, DefaultDepth, s.Len())
}
