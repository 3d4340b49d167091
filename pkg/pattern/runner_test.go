package pattern

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haptic-bridge/haptic-go/pkg/device"
)

func newTestRunner(t *testing.T) (*Runner, *device.Simulator) {
	sim := device.NewSimulator()
	require.NoError(t, sim.Connect(context.Background()))

	runner := NewRunner(RunnerConfig{
		Session:      sim,
		PollInterval: 5 * time.Millisecond,
		StepBuffer:   5 * time.Millisecond,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = runner.Shutdown(ctx)
	})
	return runner, sim
}

// resultCollector records done callbacks for assertions.
type resultCollector struct {
	mu      sync.Mutex
	results []Result
	ch      chan Result
}

func newResultCollector() *resultCollector {
	return &resultCollector{ch: make(chan Result, 16)}
}

func (c *resultCollector) done(r Result) {
	c.mu.Lock()
	c.results = append(c.results, r)
	c.mu.Unlock()
	c.ch <- r
}

func (c *resultCollector) waitOne(t *testing.T) Result {
	t.Helper()
	select {
	case r := <-c.ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no terminal result arrived")
		return Result{}
	}
}

func (c *resultCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

func TestRunnerConcurrentSequencesComplete(t *testing.T) {
	runner, sim := newTestRunner(t)

	wave := newResultCollector()
	alt := newResultCollector()

	_, err := runner.PlaySteps("wave", "wave_pattern", WaveSequence(), 10, wave.done)
	require.NoError(t, err)
	_, err = runner.PlaySteps("alternating", "alternating_pattern", AlternatingSequence(), 10, alt.done)
	require.NoError(t, err)

	waveResult := wave.waitOne(t)
	altResult := alt.waitOne(t)

	assert.Equal(t, StateCompleted, waveResult.State)
	assert.Equal(t, 5, waveResult.Steps)
	assert.Equal(t, StateCompleted, altResult.State)
	assert.Equal(t, 4, altResult.Steps)

	// Exactly one terminal result each.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, wave.count())
	assert.Equal(t, 1, alt.count())

	// Both panels saw frames from both sequences.
	frames := sim.Frames()
	assert.NotEmpty(t, frames)
}

func TestRunnerAbortEmitsNoResult(t *testing.T) {
	runner, _ := newTestRunner(t)

	results := newResultCollector()
	task, err := runner.PlaySteps("wave", "wave_pattern", WaveSequence(), 500, results.done)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return task.State() == StateRunning
	}, time.Second, time.Millisecond)

	assert.True(t, runner.Stop("wave_pattern"))

	require.Eventually(t, func() bool {
		return runner.Len() == 0
	}, time.Second, time.Millisecond)
	assert.Equal(t, StateAborted, task.State())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, results.count())
}

type failingSession struct {
	*device.Simulator
}

func (f *failingSession) SubmitDot(key string, pos device.Position, dots []device.DotPoint, duration int) error {
	return errors.New("device gone")
}

func TestRunnerSubmitFailure(t *testing.T) {
	sim := device.NewSimulator()
	require.NoError(t, sim.Connect(context.Background()))
	runner := NewRunner(RunnerConfig{
		Session:      &failingSession{Simulator: sim},
		PollInterval: 5 * time.Millisecond,
		StepBuffer:   5 * time.Millisecond,
	})

	results := newResultCollector()
	_, err := runner.PlaySteps("custom", "boom", WaveSequence(), 10, results.done)
	require.NoError(t, err)

	result := results.waitOne(t)
	assert.Equal(t, StateFailed, result.State)
	assert.ErrorContains(t, result.Err, "device gone")

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, results.count())
}

func TestRunnerTactPlayback(t *testing.T) {
	runner, sim := newTestRunner(t)

	path := writeTact(t, `{"project": {"mediaFileDuration": 0.05}}`)
	require.NoError(t, sim.Register("jacket", path))
	info, err := LoadTactInfo(path)
	require.NoError(t, err)

	results := newResultCollector()
	_, err = runner.PlayTact("jacket", info, device.DefaultScale, device.RotationOption{}, results.done)
	require.NoError(t, err)

	result := results.waitOne(t)
	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, "tact", result.Type)
}

func TestRunnerRejectsBadArguments(t *testing.T) {
	runner, _ := newTestRunner(t)

	_, err := runner.PlaySteps("custom", "k", nil, 100, nil)
	assert.Error(t, err)

	_, err = runner.PlaySteps("custom", "k", WaveSequence(), 0, nil)
	assert.Error(t, err)
}

func TestRunnerActiveTracking(t *testing.T) {
	runner, _ := newTestRunner(t)

	_, err := runner.PlaySteps("wave", "wave_pattern", WaveSequence(), 500, nil)
	require.NoError(t, err)

	assert.True(t, runner.IsActive("wave_pattern"))
	assert.False(t, runner.IsActive("other"))
	assert.Equal(t, []string{"wave_pattern"}, runner.Active())
	assert.Equal(t, 1, runner.Len())

	runner.StopAll()
	require.Eventually(t, func() bool {
		return runner.Len() == 0
	}, time.Second, time.Millisecond)
}

func TestRunnerShutdown(t *testing.T) {
	runner, _ := newTestRunner(t)

	results := newResultCollector()
	_, err := runner.PlaySteps("wave", "wave_pattern", WaveSequence(), 500, results.done)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, runner.Shutdown(ctx))

	assert.Equal(t, 0, runner.Len())
	assert.Equal(t, 0, results.count())

	// No new tasks after shutdown.
	_, err = runner.PlaySteps("wave", "again", WaveSequence(), 10, nil)
	assert.Error(t, err)
}
