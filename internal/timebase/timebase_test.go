package timebase

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweeney/weather-emulator/internal/hw"
)

func TestTickSetsFlagAndAddsPeriod(t *testing.T) {
	c := New(3001 * time.Millisecond)

	assert.False(t, c.TakePeriod())
	c.Tick()
	c.Tick()

	assert.Equal(t, uint32(6002), c.Elapsed())
	assert.True(t, c.TakePeriod())
	assert.False(t, c.TakePeriod(), "two ticks before a read collapse into one flag")
}

func TestResetKeepsPendingPeriod(t *testing.T) {
	c := New(time.Second)
	c.Tick()
	c.Reset()

	assert.Zero(t, c.Elapsed())
	assert.True(t, c.TakePeriod())
}

func TestStartStopBindsTimer(t *testing.T) {
	c := New(6001 * time.Millisecond)
	tm := &hw.FakeTimer{}

	require.NoError(t, c.Start(tm))
	assert.Equal(t, 6001*time.Millisecond, tm.Period)
	tm.Fire()
	assert.Equal(t, uint32(6001), c.Elapsed())

	require.NoError(t, c.Stop(tm))
	tm.Fire()
	assert.Equal(t, uint32(6001), c.Elapsed())
}

func TestConcurrentTicks(t *testing.T) {
	c := New(10 * time.Millisecond)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Tick()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint32(8000), c.Elapsed())
}
