package hw

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickerCallsUntilStopped(t *testing.T) {
	var n atomic.Int32
	tk := NewTicker()

	require.NoError(t, tk.Start(5*time.Millisecond, func() { n.Add(1) }))
	assert.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, time.Millisecond)

	require.NoError(t, tk.Stop())
	after := n.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, n.Load(), "no calls after Stop")
}

func TestTickerRejectsDoubleStart(t *testing.T) {
	tk := NewTicker()
	require.NoError(t, tk.Start(time.Hour, func() {}))
	defer tk.Stop()

	assert.Error(t, tk.Start(time.Hour, func() {}))
}

func TestTickerRejectsZeroPeriod(t *testing.T) {
	assert.Error(t, NewTicker().Start(0, func() {}))
}

func TestTickerStopWhenStopped(t *testing.T) {
	assert.NoError(t, NewTicker().Stop())
}
