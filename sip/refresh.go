package sip

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"braces.dev/errtrace"
	"github.com/qmuntal/stateless"

	"github.com/ghettovoice/sipcore/header"
	"github.com/ghettovoice/sipcore/internal/errorutil"
	"github.com/ghettovoice/sipcore/internal/timeutil"
	"github.com/ghettovoice/sipcore/internal/types"
)

// RefreshState is the lifecycle state of a periodically refreshed
// binding: a registration, a subscription or a publication.
type RefreshState string

const (
	RefreshStateInitial     RefreshState = "initial"
	RefreshStateActive      RefreshState = "active"
	RefreshStateTerminating RefreshState = "terminating"
	RefreshStateTerminated  RefreshState = "terminated"
)

func (s RefreshState) String() string { return string(s) }

// RefreshStateHandler is invoked on refresh state transitions.
type RefreshStateHandler = func(ctx context.Context, from, to RefreshState)

const (
	// DefaultExpires is the requested expiration when none is given.
	DefaultExpires = time.Hour
	// DefaultRefreshFrequency is the percentage of the granted
	// expiration after which the binding is refreshed.
	DefaultRefreshFrequency = 99
	// MinRefreshFrequency is the lowest legal refresh frequency.
	MinRefreshFrequency = 50
)

// Refresh triggers.
const (
	refEvtActivate    = "activate"
	refEvtTerminating = "terminating"
	refEvtTerminate   = "terminate"
)

// refresher carries the state shared by [Registerer], [Subscriber] and
// [Publisher]: the lifecycle machine, the refresh timer and the
// waiting latch that keeps a single request in flight.
type refresher struct {
	fsm  *stateless.StateMachine
	ctx  context.Context
	canc context.CancelFunc
	core *UserAgentCore
	log  *slog.Logger

	expires time.Duration
	freq    uint

	waiting    atomic.Bool
	retryAfter atomic.Pointer[time.Duration]
	refreshTmr atomic.Pointer[timeutil.SerializableTimer]

	onStateChanged types.CallbackManager[RefreshStateHandler]
	onErr          types.CallbackManager[ErrorHandler]
}

func newRefresher(core *UserAgentCore, expires time.Duration, freq uint, log *slog.Logger) (*refresher, error) {
	if expires < 0 {
		return nil, errtrace.Wrap(NewInvalidArgumentError("negative expiration"))
	}
	if expires == 0 {
		expires = DefaultExpires
	}
	if freq == 0 {
		freq = DefaultRefreshFrequency
	}
	if freq < MinRefreshFrequency || freq > DefaultRefreshFrequency {
		return nil, errtrace.Wrap(NewInvalidArgumentError(
			fmt.Sprintf("refresh frequency %d out of range [%d, %d]", freq, MinRefreshFrequency, DefaultRefreshFrequency)))
	}

	ctx, canc := context.WithCancel(context.Background())
	r := &refresher{
		ctx:     ctx,
		canc:    canc,
		core:    core,
		log:     log,
		expires: expires,
		freq:    freq,
	}

	fsm := stateless.NewStateMachineWithMode(RefreshStateInitial, stateless.FiringQueued)
	fsm.OnUnhandledTrigger(func(_ context.Context, state stateless.State, trigger stateless.Trigger, _ []string) error {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrActionNotAllowed,
			fmt.Sprintf("%q in state %q", trigger, state)))
	})
	fsm.OnTransitioned(func(ctx context.Context, tr stateless.Transition) {
		from, _ := tr.Source.(RefreshState)
		to, _ := tr.Destination.(RefreshState)
		if from == to {
			return
		}
		r.onStateChanged.Range(func(fn RefreshStateHandler) {
			fn(ctx, from, to)
		})
	})

	fsm.Configure(RefreshStateInitial).
		Permit(refEvtActivate, RefreshStateActive).
		Permit(refEvtTerminating, RefreshStateTerminating).
		Permit(refEvtTerminate, RefreshStateTerminated)

	fsm.Configure(RefreshStateActive).
		InternalTransition(refEvtActivate, func(context.Context, ...any) error { return nil }).
		Permit(refEvtTerminating, RefreshStateTerminating).
		Permit(refEvtTerminate, RefreshStateTerminated)

	fsm.Configure(RefreshStateTerminating).
		Permit(refEvtTerminate, RefreshStateTerminated)

	fsm.Configure(RefreshStateTerminated).
		OnEntry(func(context.Context, ...any) error {
			r.stopRefresh()
			r.canc()
			return nil
		})

	r.fsm = fsm
	return r, nil
}

// State returns the current refresh state.
func (r *refresher) State() RefreshState {
	st, _ := r.fsm.MustState().(RefreshState)
	return st
}

// RetryAfter returns the delay captured from the last failure response,
// when the server supplied one.
func (r *refresher) RetryAfter() (time.Duration, bool) {
	if d := r.retryAfter.Load(); d != nil {
		return *d, true
	}
	return 0, false
}

// OnStateChanged registers a callback invoked on each state transition.
func (r *refresher) OnStateChanged(fn RefreshStateHandler) (cancel func()) {
	return r.onStateChanged.Add(fn)
}

// OnError registers a callback invoked on refresh failures.
func (r *refresher) OnError(fn ErrorHandler) (cancel func()) {
	return r.onErr.Add(fn)
}

func (r *refresher) dispatchErr(ctx context.Context, err error) {
	r.onErr.Range(func(fn ErrorHandler) {
		fn(ctx, err)
	})
}

// begin latches the waiting flag so a single request stays in flight.
func (r *refresher) begin() error {
	switch r.State() {
	case RefreshStateTerminated:
		return errtrace.Wrap(errorutil.NewWrapperError(ErrActionNotAllowed, "terminated"))
	default:
	}
	if !r.waiting.CompareAndSwap(false, true) {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrActionNotAllowed, "request already in flight"))
	}
	return nil
}

func (r *refresher) finish() { r.waiting.Store(false) }

func (r *refresher) activate(ctx context.Context) {
	if err := r.fsm.FireCtx(ctx, refEvtActivate); err != nil {
		r.log.LogAttrs(ctx, slog.LevelWarn, "failed to activate", slog.Any("error", err))
	}
}

func (r *refresher) terminating(ctx context.Context) error {
	return errtrace.Wrap(r.fsm.FireCtx(ctx, refEvtTerminating))
}

func (r *refresher) terminate(ctx context.Context) {
	if r.State() == RefreshStateTerminated {
		return
	}
	if err := r.fsm.FireCtx(ctx, refEvtTerminate); err != nil {
		r.log.LogAttrs(ctx, slog.LevelWarn, "failed to terminate", slog.Any("error", err))
	}
}

// scheduleRefresh arms the refresh timer at the configured percentage
// of the granted expiration.
func (r *refresher) scheduleRefresh(granted time.Duration, fn func()) {
	if granted <= 0 {
		return
	}
	dur := granted * time.Duration(r.freq) / 100
	if prev := r.refreshTmr.Swap(timeutil.AfterFunc(dur, fn)); prev != nil {
		prev.Stop()
	}
}

func (r *refresher) stopRefresh() {
	if tmr := r.refreshTmr.Swap(nil); tmr != nil {
		tmr.Stop()
	}
}

// captureRetry records the Retry-After delay of a failure response.
func (r *refresher) captureRetry(res *InboundResponse) {
	if ra, ok := res.Headers().RetryAfter(); ok {
		d := ra.Delay
		r.retryAfter.Store(&d)
	}
}

// grantedExpiration extracts the expiration granted by the server: the
// expires parameter of the matching Contact wins over the Expires
// header, the requested value is the fallback.
func grantedExpiration(res *InboundResponse, contact *header.ContactAddr, requested time.Duration) time.Duration {
	hdrs := res.Headers()
	if cnt, ok := hdrs.Contact(); ok && contact != nil {
		for _, addr := range cnt {
			if addr.URI == nil || contact.URI == nil || !addr.URI.Equal(contact.URI) {
				continue
			}
			if v, ok := addr.Params.First("expires"); ok {
				if secs, err := strconv.ParseUint(v, 10, 32); err == nil {
					return time.Duration(secs) * time.Second
				}
			}
		}
	}
	if exp, ok := hdrs.Expires(); ok {
		return exp.Duration
	}
	return requested
}
