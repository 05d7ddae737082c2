package synchro

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweeney/weather-emulator/internal/hw"
)

func TestEdgeIgnoredWhileDisarmed(t *testing.T) {
	var g Gate
	g.Edge()

	assert.False(t, g.FirstSeen())
	assert.False(t, g.TakePending())
}

func TestEdgeAcceptedOnceUntilRearmed(t *testing.T) {
	var g Gate
	g.Arm()

	g.Edge()
	assert.False(t, g.Armed(), "accepted edge disarms the gate")
	assert.True(t, g.FirstSeen())
	assert.True(t, g.Pending())

	g.Edge() // bounce
	assert.True(t, g.TakePending())
	assert.False(t, g.TakePending(), "bounce must not queue a second edge")

	g.Arm()
	g.Edge()
	assert.True(t, g.TakePending())
}

func TestReset(t *testing.T) {
	var g Gate
	g.Arm()
	g.Edge()
	g.Reset()

	assert.False(t, g.Armed())
	assert.False(t, g.Pending())
	assert.False(t, g.FirstSeen())
}

func TestAttachDetach(t *testing.T) {
	var g Gate
	line := &hw.FakeEdge{}

	require.NoError(t, g.Attach(line))
	assert.True(t, g.Armed())
	line.Trigger()
	assert.True(t, g.TakePending())

	g.Arm()
	require.NoError(t, g.Detach(line))
	assert.False(t, g.Armed())
	line.Trigger()
	assert.False(t, g.Pending())
}

func TestAttachError(t *testing.T) {
	var g Gate
	line := &hw.FakeEdge{EnableError: errors.New("irq busy")}

	assert.Error(t, g.Attach(line))
	assert.False(t, g.Armed())
}
