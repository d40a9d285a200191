package timeutil

import (
	"encoding/json"
	"sync"
	"time"

	"braces.dev/errtrace"
)

// TimerState represents the current state of a serializable timer.
type TimerState string

const (
	// TimerStateRunning indicates the timer is currently running.
	TimerStateRunning TimerState = "running"
	// TimerStateStopped indicates the timer was stopped before expiration.
	TimerStateStopped TimerState = "stopped"
	// TimerStateExpired indicates the timer has expired.
	TimerStateExpired TimerState = "expired"
)

// SerializableTimer is a timer that can be serialized to/from JSON.
// It tracks the start time, duration and current state and can export
// or import a lightweight [TimerSnapshot] for storage. Runtime-only
// fields, the callback and the backing [time.Timer], are excluded
// from the snapshot and must be reattached after restoration.
type SerializableTimer struct {
	mu        sync.Mutex
	startTime time.Time
	duration  time.Duration
	state     TimerState
	stopTime  time.Time

	// runtime-only, never serialized
	callback         func()
	callbackExecuted bool
	realTimer        *time.Timer
}

// NewTimer creates a new SerializableTimer with the given duration.
// The timer is started immediately.
func NewTimer(duration time.Duration) *SerializableTimer {
	return &SerializableTimer{
		startTime: time.Now(),
		duration:  duration,
		state:     TimerStateRunning,
	}
}

// AfterFunc creates a new SerializableTimer with the given duration and callback.
// The timer is started immediately and the callback will be executed when it expires.
func AfterFunc(duration time.Duration, f func()) *SerializableTimer {
	timer := NewTimer(duration)
	timer.SetCallback(f)
	return timer
}

// FromTime creates a new SerializableTimer with the given start time and duration.
// Unlike FromJSON it does not call UpdateState; call it afterwards to check
// expiration and trigger callbacks.
func FromTime(startTime time.Time, duration time.Duration) *SerializableTimer {
	return &SerializableTimer{
		startTime: startTime,
		duration:  duration,
		state:     TimerStateRunning,
	}
}

// State returns the current timer state.
func (t *SerializableTimer) State() TimerState {
	if t == nil {
		return ""
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// StartTime returns the timer's start time.
func (t *SerializableTimer) StartTime() time.Time {
	if t == nil {
		return time.Time{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startTime
}

// Duration returns the timer's duration.
func (t *SerializableTimer) Duration() time.Duration {
	if t == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.duration
}

// StopTime returns the timer's stop time, zero if never stopped.
func (t *SerializableTimer) StopTime() time.Time {
	if t == nil {
		return time.Time{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopTime
}

// Elapsed returns the time elapsed since the timer started.
func (t *SerializableTimer) Elapsed() time.Duration {
	if t == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsedUnsafe()
}

func (t *SerializableTimer) elapsedUnsafe() time.Duration {
	switch t.state {
	case TimerStateRunning:
		return time.Since(t.startTime)
	case TimerStateStopped, TimerStateExpired:
		if !t.stopTime.IsZero() {
			return t.stopTime.Sub(t.startTime)
		}
	}
	return t.duration
}

// Left returns the time remaining until the timer expires.
// Returns 0 if the timer is expired or stopped.
func (t *SerializableTimer) Left() time.Duration {
	if t == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == TimerStateStopped {
		return 0
	}
	return max(t.duration-t.elapsedUnsafe(), 0)
}

// Expired returns true if the timer has expired.
func (t *SerializableTimer) Expired() bool {
	if t == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expiredUnsafe()
}

func (t *SerializableTimer) expiredUnsafe() bool {
	switch t.state {
	case TimerStateExpired:
		return true
	case TimerStateStopped:
		return false
	}
	return time.Since(t.startTime) >= t.duration
}

// Stop stops the timer. A stopped timer never runs its callback.
func (t *SerializableTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != TimerStateRunning {
		return false
	}

	t.stopTime = time.Now()
	t.state = TimerStateStopped
	t.callback = nil
	t.disarmUnsafe()
	return true
}

// SetCallback sets a function to be executed when the timer expires.
// As with time.AfterFunc, the function runs in its own goroutine. An
// already expired timer runs the function immediately; a stopped timer
// never runs it.
func (t *SerializableTimer) SetCallback(f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.callback = f

	if t.expiredUnsafe() && !t.callbackExecuted {
		t.callbackExecuted = true
		go f()
		return
	}

	if t.state == TimerStateRunning {
		// 1ns floor forces immediate firing when the deadline already passed
		t.armUnsafe(max(t.duration-time.Since(t.startTime), 1))
	}
}

// armUnsafe replaces the backing time.Timer with one firing after remaining.
// Caller must hold the mutex.
func (t *SerializableTimer) armUnsafe(remaining time.Duration) {
	t.disarmUnsafe()
	t.realTimer = time.AfterFunc(remaining, t.expire)
}

func (t *SerializableTimer) disarmUnsafe() {
	if t.realTimer != nil {
		t.realTimer.Stop()
		t.realTimer = nil
	}
}

func (t *SerializableTimer) expire() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != TimerStateRunning || t.callbackExecuted {
		return
	}
	t.state = TimerStateExpired
	t.stopTime = time.Now()
	t.callbackExecuted = true
	if callback := t.callback; callback != nil {
		go callback()
	}
}

// UpdateState re-evaluates the state against the current time.
// Call it after unmarshaling to detect expiration that happened while
// the timer was serialized.
func (t *SerializableTimer) UpdateState() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updateStateUnsafe()
}

func (t *SerializableTimer) updateStateUnsafe() {
	if time.Since(t.startTime) < t.duration {
		return
	}

	if t.state == TimerStateRunning {
		t.state = TimerStateExpired
	}
	if t.state == TimerStateExpired && t.callback != nil && !t.callbackExecuted {
		t.callbackExecuted = true
		go t.callback()
	}
}

// Reset restarts the timer with a new duration from now. A previously
// set callback is preserved and will run when the new duration expires;
// call Stop first to clear it.
func (t *SerializableTimer) Reset(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = time.Now()
	t.duration = duration
	t.state = TimerStateRunning
	t.stopTime = time.Time{}
	t.callbackExecuted = false

	t.disarmUnsafe()
	if t.callback != nil {
		t.armUnsafe(duration)
	}
}

var jsonNull = []byte("null")

// TimerSnapshot is the serializable view of a timer. Only the
// deterministic fields are included so the snapshot can be persisted
// or moved between processes.
type TimerSnapshot struct {
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	State     TimerState    `json:"state"`
	StopTime  time.Time     `json:"stop_time,omitzero"`
}

// Snapshot returns an immutable representation of the timer state,
// serializable directly or restorable with [RestoreTimer].
func (t *SerializableTimer) Snapshot() *TimerSnapshot {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	snap := t.snapshotUnsafe()
	t.mu.Unlock()

	return &snap
}

func (t *SerializableTimer) snapshotUnsafe() TimerSnapshot {
	t.updateStateUnsafe()

	return TimerSnapshot{
		StartTime: t.startTime,
		Duration:  t.duration,
		State:     t.state,
		StopTime:  t.stopTime,
	}
}

func (t *SerializableTimer) restoreUnsafe(snap *TimerSnapshot) {
	defer t.updateStateUnsafe()

	t.disarmUnsafe()
	t.callback = nil
	t.callbackExecuted = false

	if snap == nil {
		t.startTime = time.Time{}
		t.duration = 0
		t.state = ""
		t.stopTime = time.Time{}
		return
	}

	t.startTime = snap.StartTime
	t.duration = snap.Duration
	t.state = snap.State
	t.stopTime = snap.StopTime
}

// MarshalJSON implements json.Marshaler.
func (t *SerializableTimer) MarshalJSON() ([]byte, error) {
	if t == nil {
		return jsonNull, nil
	}

	t.mu.Lock()
	snap := t.snapshotUnsafe()
	t.mu.Unlock()

	return errtrace.Wrap2(json.Marshal(&snap))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *SerializableTimer) UnmarshalJSON(data []byte) error {
	var snap TimerSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return errtrace.Wrap(err)
	}

	t.mu.Lock()
	t.restoreUnsafe(&snap)
	t.mu.Unlock()

	return nil
}

// ToJSON serializes the timer to a JSON string.
func (t *SerializableTimer) ToJSON() ([]byte, error) {
	return errtrace.Wrap2(json.Marshal(t))
}

// FromJSON deserializes a timer from a JSON string.
func FromJSON(data []byte) (*SerializableTimer, error) {
	snap := new(TimerSnapshot)
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, errtrace.Wrap(err)
	}

	timer := new(SerializableTimer)
	timer.restoreUnsafe(snap)
	return timer, nil
}

// RestoreTimer recreates a SerializableTimer from its snapshot.
// Callbacks are runtime-only; reattach them with [SerializableTimer.SetCallback]
// or [SerializableTimer.Reset] after restoration.
func RestoreTimer(snap *TimerSnapshot) *SerializableTimer {
	if snap == nil {
		return nil
	}

	timer := new(SerializableTimer)
	timer.restoreUnsafe(snap)
	return timer
}
