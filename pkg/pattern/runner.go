package pattern

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haptic-bridge/haptic-go/pkg/device"
)

// State is a playback task's lifecycle state.
type State int

const (
	StateScheduled State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateScheduled:
		return "scheduled"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result is the terminal outcome of a playback task. It is delivered
// through the done callback exactly once for completed and failed
// tasks. Aborted tasks end silently.
type Result struct {
	Type  string
	Key   string
	State State
	Steps int
	Err   error
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Session is the device backend frames are submitted to.
	Session device.Session

	// Logger receives task lifecycle logs (default: slog.Default()).
	Logger *slog.Logger

	// PollInterval bounds how quickly tasks observe stop requests
	// (default: 100ms).
	PollInterval time.Duration

	// StepBuffer is added to each step's duration before the next step
	// starts (default: 100ms).
	StepBuffer time.Duration
}

// Task is one in-flight playback sequence.
type Task struct {
	id   uint64
	typ  string
	key  string
	data atomic.Int32 // State

	stop     chan struct{}
	stopOnce sync.Once
}

// Type returns the sequence kind (wave, alternating, custom, tact).
func (t *Task) Type() string { return t.typ }

// Key returns the playback key frames are submitted under.
func (t *Task) Key() string { return t.key }

// State returns the task's current lifecycle state.
func (t *Task) State() State { return State(t.data.Load()) }

func (t *Task) setState(s State) { t.data.Store(int32(s)) }

// Stop requests the task exit before its next step.
func (t *Task) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// Runner supervises playback tasks against a single device session.
// Tasks run concurrently; the session serializes physical submission.
type Runner struct {
	session device.Session
	logger  *slog.Logger
	poll    time.Duration
	buffer  time.Duration

	running  atomic.Bool
	shutdown chan struct{}
	shutOnce sync.Once

	mu     sync.Mutex
	nextID uint64
	tasks  map[uint64]*Task

	wg sync.WaitGroup
}

// NewRunner creates a Runner ready to accept tasks.
func NewRunner(config RunnerConfig) *Runner {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.PollInterval == 0 {
		config.PollInterval = 100 * time.Millisecond
	}
	if config.StepBuffer == 0 {
		config.StepBuffer = 100 * time.Millisecond
	}
	r := &Runner{
		session:  config.Session,
		logger:   config.Logger,
		poll:     config.PollInterval,
		buffer:   config.StepBuffer,
		shutdown: make(chan struct{}),
		tasks:    make(map[uint64]*Task),
	}
	r.running.Store(true)
	return r
}

// PlaySteps schedules a step sequence. Each step plays for stepDuration
// milliseconds plus the configured buffer. The done callback fires once
// when the task completes or fails; an aborted task fires no callback.
func (r *Runner) PlaySteps(taskType, key string, steps []Step, stepDuration int, done func(Result)) (*Task, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("no steps to play")
	}
	if stepDuration <= 0 {
		return nil, fmt.Errorf("step duration must be positive")
	}

	task, err := r.schedule(taskType, key)
	if err != nil {
		return nil, err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.remove(task)
		r.runSteps(task, steps, stepDuration, done)
	}()
	return task, nil
}

func (r *Runner) runSteps(task *Task, steps []Step, stepDuration int, done func(Result)) {
	task.setState(StateRunning)
	r.logger.Debug("playback started", "type", task.typ, "key", task.key, "steps", len(steps))

	pace := time.Duration(stepDuration)*time.Millisecond + r.buffer

	for i, step := range steps {
		if r.stopped(task) {
			task.setState(StateAborted)
			r.logger.Debug("playback aborted", "type", task.typ, "key", task.key, "step", i)
			return
		}

		if err := r.submitStep(task.key, step, stepDuration); err != nil {
			task.setState(StateFailed)
			r.logger.Warn("playback failed", "type", task.typ, "key", task.key, "step", i, "error", err)
			if done != nil {
				done(Result{Type: task.typ, Key: task.key, State: StateFailed, Steps: i, Err: err})
			}
			return
		}

		if !r.wait(task, pace) {
			task.setState(StateAborted)
			r.logger.Debug("playback aborted", "type", task.typ, "key", task.key, "step", i)
			return
		}
	}

	task.setState(StateCompleted)
	r.logger.Debug("playback completed", "type", task.typ, "key", task.key)
	if done != nil {
		done(Result{Type: task.typ, Key: task.key, State: StateCompleted, Steps: len(steps)})
	}
}

// submitStep sends one frame per panel with active motors.
func (r *Runner) submitStep(key string, step Step, duration int) error {
	if dots := step.Front.Dots(); len(dots) > 0 {
		if err := r.session.SubmitDot(key+"-front", device.PositionVestFront, dots, duration); err != nil {
			return err
		}
	}
	if dots := step.Back.Dots(); len(dots) > 0 {
		if err := r.session.SubmitDot(key+"-back", device.PositionVestBack, dots, duration); err != nil {
			return err
		}
	}
	return nil
}

// PlayTact schedules playback of a registered tact pattern. The task
// submits the pattern and then tracks the session's playback state,
// ending when the key goes inactive or the declared duration elapses.
func (r *Runner) PlayTact(key string, info TactInfo, scale device.ScaleOption, rotation device.RotationOption, done func(Result)) (*Task, error) {
	task, err := r.schedule("tact", key)
	if err != nil {
		return nil, err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.remove(task)
		r.runTact(task, info, scale, rotation, done)
	}()
	return task, nil
}

func (r *Runner) runTact(task *Task, info TactInfo, scale device.ScaleOption, rotation device.RotationOption, done func(Result)) {
	task.setState(StateRunning)
	r.logger.Debug("tact playback started", "key", task.key, "duration", info.Duration)

	if err := r.session.SubmitRegistered(task.key, scale, rotation); err != nil {
		task.setState(StateFailed)
		r.logger.Warn("tact submit failed", "key", task.key, "error", err)
		if done != nil {
			done(Result{Type: task.typ, Key: task.key, State: StateFailed, Err: err})
		}
		return
	}

	// Give the session a moment to report the key active before
	// watching for it to go inactive.
	startDeadline := time.Now().Add(time.Second)
	for !r.session.IsPlayingKey(task.key) && time.Now().Before(startDeadline) {
		if !r.wait(task, r.poll) {
			task.setState(StateAborted)
			return
		}
	}

	deadline := time.Now().Add(info.Duration + r.buffer)
	for r.session.IsPlayingKey(task.key) && time.Now().Before(deadline) {
		if !r.wait(task, r.poll) {
			_ = r.session.StopKey(task.key)
			task.setState(StateAborted)
			r.logger.Debug("tact playback aborted", "key", task.key)
			return
		}
	}

	task.setState(StateCompleted)
	r.logger.Debug("tact playback completed", "key", task.key)
	if done != nil {
		done(Result{Type: task.typ, Key: task.key, State: StateCompleted})
	}
}

func (r *Runner) schedule(taskType, key string) (*Task, error) {
	if !r.running.Load() {
		return nil, fmt.Errorf("runner is shut down")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	task := &Task{
		id:   r.nextID,
		typ:  taskType,
		key:  key,
		stop: make(chan struct{}),
	}
	task.setState(StateScheduled)
	r.tasks[task.id] = task
	return task, nil
}

func (r *Runner) remove(task *Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, task.id)
}

// stopped reports whether the task or the runner has been asked to
// stop.
func (r *Runner) stopped(task *Task) bool {
	if !r.running.Load() {
		return true
	}
	select {
	case <-task.stop:
		return true
	case <-r.shutdown:
		return true
	default:
		return false
	}
}

// wait sleeps for d, returning false if a stop arrives first. Long
// waits are broken into poll-sized slices so the runner flag is also
// observed promptly.
func (r *Runner) wait(task *Task, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		slice := remaining
		if slice > r.poll {
			slice = r.poll
		}
		timer := time.NewTimer(slice)
		select {
		case <-task.stop:
			timer.Stop()
			return false
		case <-r.shutdown:
			timer.Stop()
			return false
		case <-timer.C:
		}
		if !r.running.Load() {
			return false
		}
	}
}

// Stop signals all tasks playing under key and reports whether any
// were found.
func (r *Runner) Stop(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := false
	for _, task := range r.tasks {
		if task.key == key {
			task.Stop()
			found = true
		}
	}
	return found
}

// StopAll signals every in-flight task.
func (r *Runner) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, task := range r.tasks {
		task.Stop()
	}
}

// Active returns the keys of all in-flight tasks.
func (r *Runner) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.tasks))
	for _, task := range r.tasks {
		keys = append(keys, task.key)
	}
	return keys
}

// IsActive reports whether any task is playing under key.
func (r *Runner) IsActive(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, task := range r.tasks {
		if task.key == key {
			return true
		}
	}
	return false
}

// Len returns the number of in-flight tasks.
func (r *Runner) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Shutdown stops accepting tasks, signals the in-flight ones, and
// waits for them to drain or the context to expire.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.running.Store(false)
	r.shutOnce.Do(func() { close(r.shutdown) })

	drained := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("playback tasks did not drain: %w", ctx.Err())
	}
}
