package hw

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

func TestFakeOutputWriteAndToggle(t *testing.T) {
	o := NewFakeOutput(false)

	require.NoError(t, o.Write(true))
	assert.True(t, o.Level)

	require.NoError(t, o.Toggle())
	assert.False(t, o.Level)

	require.NoError(t, o.Toggle())
	assert.Equal(t, []bool{true, false, true}, o.Writes)
}

func TestFakeOutputError(t *testing.T) {
	o := NewFakeOutput(true)
	o.WriteError = errors.New("simulated error")

	assert.EqualError(t, o.Write(false), "simulated error")
	assert.True(t, o.Level, "level must not change on error")
	assert.Empty(t, o.Writes)
}

func TestFakeInput(t *testing.T) {
	in := &FakeInput{Level: true}
	v, err := in.Read()
	require.NoError(t, err)
	assert.True(t, v)

	in.ReadError = errors.New("simulated error")
	_, err = in.Read()
	assert.Error(t, err)
}

func TestFakeEdgeTriggerOnlyWhenEnabled(t *testing.T) {
	e := &FakeEdge{}
	n := 0

	e.Trigger()
	assert.Equal(t, 0, n)

	require.NoError(t, e.Enable(func() { n++ }))
	assert.True(t, e.Enabled())
	e.Trigger()
	e.Trigger()
	assert.Equal(t, 2, n)

	require.NoError(t, e.Disable())
	e.Trigger()
	assert.Equal(t, 2, n)
}

func TestFakePWMRecordsWaveforms(t *testing.T) {
	p := &FakePWM{}
	assert.Equal(t, Waveform{}, p.Last())

	require.NoError(t, p.SetWaveform(physic.Hertz, 0))
	require.NoError(t, p.SetWaveform(5*physic.Hertz, 50))
	assert.Len(t, p.Waveforms, 2)
	assert.Equal(t, Waveform{Frequency: 5 * physic.Hertz, DutyPercent: 50}, p.Last())

	assert.Error(t, p.SetWaveform(physic.Hertz, 101))
}

func TestFakePulserPollsBeforeDone(t *testing.T) {
	p := &FakePulser{PollsPerPulse: 2}

	require.NoError(t, p.Pulse(100*time.Millisecond, 100*time.Millisecond))
	assert.ErrorIs(t, p.Pulse(time.Millisecond, time.Millisecond), ErrBusy)
	assert.Equal(t, 1, p.Overlaps)

	for i := 0; i < 2; i++ {
		done, err := p.Done()
		require.NoError(t, err)
		assert.False(t, done, "poll %d", i)
	}
	done, err := p.Done()
	require.NoError(t, err)
	assert.True(t, done)

	require.NoError(t, p.Pulse(time.Millisecond, time.Millisecond))
	assert.Equal(t, 2, p.Pulses)
}

func TestFakeTimerFire(t *testing.T) {
	tm := &FakeTimer{}
	n := 0

	tm.Fire()
	require.NoError(t, tm.Start(3*time.Second, func() { n++ }))
	assert.Equal(t, 3*time.Second, tm.Period)
	tm.Fire()
	require.NoError(t, tm.Stop())
	tm.Fire()

	assert.Equal(t, 1, n)
}
