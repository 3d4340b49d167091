package device

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionNames(t *testing.T) {
	names := []string{"Vest", "VestFront", "VestBack", "ForearmL", "ForearmR", "GloveL", "GloveR"}
	for _, name := range names {
		pos, err := ParsePosition(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, pos.String())
	}

	_, err := ParsePosition("Ankle")
	assert.ErrorIs(t, err, ErrUnknownPosition)
}

func TestSimulatorRequiresConnect(t *testing.T) {
	sim := NewSimulator()

	err := sim.SubmitDot("k", PositionVestFront, []DotPoint{{Index: 0, Intensity: 50}}, 100)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, sim.IsConnected(PositionVest))

	require.NoError(t, sim.Connect(context.Background()))
	assert.True(t, sim.IsConnected(PositionVest))
}

func TestSimulatorRecordsFrames(t *testing.T) {
	sim := NewSimulator()
	require.NoError(t, sim.Connect(context.Background()))

	dots := []DotPoint{{Index: 3, Intensity: 80}, {Index: 4, Intensity: 80}}
	require.NoError(t, sim.SubmitDot("burst", PositionVestBack, dots, 200))
	require.NoError(t, sim.SubmitPath("sweep", PositionGloveL, []PathPoint{{X: 0.5, Y: 0.5, Intensity: 60}}, 150))

	frames := sim.Frames()
	require.Len(t, frames, 2)
	assert.Equal(t, "burst", frames[0].Key)
	assert.Equal(t, PositionVestBack, frames[0].Position)
	assert.Equal(t, dots, frames[0].Dots)
	assert.Equal(t, 200, frames[0].Duration)
	assert.Equal(t, "sweep", frames[1].Key)
}

func TestSimulatorActiveKeyExpires(t *testing.T) {
	sim := NewSimulator()
	require.NoError(t, sim.Connect(context.Background()))

	require.NoError(t, sim.SubmitDot("short", PositionVestFront, []DotPoint{{Index: 0, Intensity: 100}}, 30))
	assert.True(t, sim.IsPlaying())
	assert.True(t, sim.IsPlayingKey("short"))
	assert.False(t, sim.IsPlayingKey("other"))

	time.Sleep(60 * time.Millisecond)
	assert.False(t, sim.IsPlaying())
}

func TestSimulatorStop(t *testing.T) {
	sim := NewSimulator()
	require.NoError(t, sim.Connect(context.Background()))

	require.NoError(t, sim.SubmitDot("a", PositionVestFront, []DotPoint{{Index: 0, Intensity: 100}}, 10000))
	require.NoError(t, sim.SubmitDot("b", PositionVestBack, []DotPoint{{Index: 1, Intensity: 100}}, 10000))

	require.NoError(t, sim.StopKey("a"))
	assert.False(t, sim.IsPlayingKey("a"))
	assert.True(t, sim.IsPlayingKey("b"))

	require.NoError(t, sim.StopAll())
	assert.False(t, sim.IsPlaying())
}

func TestSimulatorRegister(t *testing.T) {
	sim := NewSimulator()
	require.NoError(t, sim.Connect(context.Background()))

	dir := t.TempDir()
	good := filepath.Join(dir, "pattern.tact")
	require.NoError(t, os.WriteFile(good, []byte(`{"project":{"tracks":[]}}`), 0o644))
	bad := filepath.Join(dir, "broken.tact")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0o644))

	require.NoError(t, sim.Register("jacket", good))
	assert.NoError(t, sim.SubmitRegistered("jacket", DefaultScale, RotationOption{}))

	assert.ErrorIs(t, sim.Register("broken", bad), ErrInvalidTactFile)
	assert.Error(t, sim.Register("missing", filepath.Join(dir, "nope.tact")))
	assert.ErrorIs(t, sim.SubmitRegistered("never", DefaultScale, RotationOption{}), ErrKeyNotRegistered)
}

func TestSimulatorDestroy(t *testing.T) {
	sim := NewSimulator()
	require.NoError(t, sim.Connect(context.Background()))
	require.NoError(t, sim.SubmitDot("k", PositionVestFront, []DotPoint{{Index: 0, Intensity: 100}}, 10000))

	require.NoError(t, sim.Destroy())
	assert.False(t, sim.IsConnected(PositionVest))
	assert.False(t, sim.IsPlaying())

	// Destroy is idempotent.
	require.NoError(t, sim.Destroy())
}

func TestSimulatorPositionOverride(t *testing.T) {
	sim := NewSimulator()
	require.NoError(t, sim.Connect(context.Background()))

	sim.SetConnected(PositionGloveR, false)
	assert.False(t, sim.IsConnected(PositionGloveR))
	assert.True(t, sim.IsConnected(PositionGloveL))
}
