package sip

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipcore/header"
	"github.com/ghettovoice/sipcore/internal/errorutil"
	"github.com/ghettovoice/sipcore/log"
)

// Registration states.
const (
	RegistrationStateInitial     = RefreshStateInitial
	RegistrationStateRegistered  = RefreshStateActive
	RegistrationStateTerminating = RefreshStateTerminating
	RegistrationStateTerminated  = RefreshStateTerminated
)

// RegistererOptions configure a [Registerer].
type RegistererOptions struct {
	// Expires is the requested binding expiration.
	// Defaults to [DefaultExpires].
	Expires time.Duration
	// RefreshFrequency is the percentage of the granted expiration
	// after which the binding is refreshed. Defaults to
	// [DefaultRefreshFrequency], legal range is
	// [[MinRefreshFrequency], [DefaultRefreshFrequency]].
	RefreshFrequency uint
	// Headers are appended to each REGISTER request.
	Headers Headers
	// SendOptions are passed to the transport.
	SendOptions *SendRequestOptions
	// Log is the registerer logger.
	Log *slog.Logger
}

func (o *RegistererOptions) expires() time.Duration {
	if o == nil {
		return 0
	}
	return o.Expires
}

func (o *RegistererOptions) freq() uint {
	if o == nil {
		return 0
	}
	return o.RefreshFrequency
}

func (o *RegistererOptions) headers() Headers {
	if o == nil {
		return nil
	}
	return o.Headers
}

func (o *RegistererOptions) sendOpts() *SendRequestOptions {
	if o == nil {
		return nil
	}
	return o.SendOptions
}

func (o *RegistererOptions) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Default()
	}
	return o.Log
}

// Registerer maintains a registration binding at a registrar: it sends
// the initial REGISTER, refreshes it before the granted expiration
// runs out and removes the binding on [Registerer.Unregister].
//
// All REGISTER requests of one Registerer share a Call-ID and an
// incrementing CSeq number.
type Registerer struct {
	*refresher

	registrar URI
	aor       URI
	contact   *header.ContactAddr
	hdrs      Headers
	sendOpts  *SendRequestOptions

	callID header.CallID
	seqNum atomic.Uint64
	// exp holds the current requested expiration, raised on 423.
	exp        atomic.Int64
	retried423 atomic.Bool
}

// NewRegisterer creates a registerer for the address of record aor
// bound to contact at the given registrar. No request is sent until
// [Registerer.Register].
func NewRegisterer(
	core *UserAgentCore,
	registrar, aor URI,
	contact *header.ContactAddr,
	opts *RegistererOptions,
) (*Registerer, error) {
	if core == nil || registrar == nil || aor == nil || contact == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("nil core, registrar, aor or contact"))
	}

	ref, err := newRefresher(core, opts.expires(), opts.freq(), opts.log())
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	reg := &Registerer{
		refresher: ref,
		registrar: registrar.Clone(),
		aor:       aor.Clone(),
		contact:   contact,
		hdrs:      opts.headers().Clone(),
		sendOpts:  opts.sendOpts(),
		callID:    core.ident.CallID(),
	}
	reg.exp.Store(int64(ref.expires))
	return reg, nil
}

// Expires reports the expiration the registerer currently requests.
// It starts at the configured value and is raised when the registrar
// answers 423 with a larger Min-Expires.
func (reg *Registerer) Expires() time.Duration {
	return time.Duration(reg.exp.Load())
}

// Register sends a REGISTER for the configured binding. The request is
// asynchronous: the registration becomes [RegistrationStateRegistered]
// on a 2xx and refreshes itself afterwards, failures are reported
// through [Registerer.OnError].
func (reg *Registerer) Register(ctx context.Context) error {
	if err := reg.begin(); err != nil {
		return errtrace.Wrap(err)
	}
	if err := reg.sendRegister(ctx, time.Duration(reg.exp.Load())); err != nil {
		reg.finish()
		return errtrace.Wrap(err)
	}
	return nil
}

// Unregister removes the binding with a final expires=0 REGISTER and
// terminates the registerer. The removal is best-effort: the
// registerer ends up terminated whatever the registrar answers.
func (reg *Registerer) Unregister(ctx context.Context) error {
	if err := reg.terminating(ctx); err != nil {
		return errtrace.Wrap(err)
	}
	reg.stopRefresh()
	reg.waiting.Store(true)
	if err := reg.sendRegister(ctx, 0); err != nil {
		reg.finish()
		reg.terminate(ctx)
		return errtrace.Wrap(err)
	}
	return nil
}

func (reg *Registerer) sendRegister(ctx context.Context, expires time.Duration) error {
	hdrs := reg.hdrs.Clone()
	if hdrs == nil {
		hdrs = make(Headers)
	}
	hdrs.Set(&header.Expires{Duration: expires})

	ua, err := reg.core.Register(ctx, reg.registrar, &RequestOptions{
		From:        reg.aor,
		To:          reg.aor,
		Contact:     reg.contact,
		CallID:      reg.callID,
		SeqNum:      uint(reg.seqNum.Add(1)),
		Headers:     hdrs,
		SendOptions: reg.sendOpts,
		Delegate: &UACDelegate{
			OnAccept:   func(ctx context.Context, res *InboundResponse) { reg.recvAccept(ctx, res, expires) },
			OnRedirect: reg.recvReject,
			OnReject:   reg.recvReject,
		},
	})
	if err != nil {
		return errtrace.Wrap(err)
	}
	ua.OnError(func(ctx context.Context, err error) {
		reg.finish()
		reg.dispatchErr(ctx, errtrace.Wrap(errorutil.NewWrapperError(ErrRefreshFailed, err)))
		reg.terminate(ctx)
	})
	return nil
}

func (reg *Registerer) recvAccept(ctx context.Context, res *InboundResponse, requested time.Duration) {
	reg.finish()
	reg.retried423.Store(false)

	if reg.State() == RegistrationStateTerminating || requested == 0 {
		reg.terminate(ctx)
		return
	}

	granted := grantedExpiration(res, reg.contact, requested)
	if granted <= 0 {
		reg.terminate(ctx)
		return
	}
	reg.activate(ctx)
	reg.scheduleRefresh(granted, func() {
		if err := reg.sendRegister(reg.ctx, time.Duration(reg.exp.Load())); err != nil {
			reg.dispatchErr(reg.ctx, errtrace.Wrap(errorutil.NewWrapperError(ErrRefreshFailed, err)))
			reg.terminate(reg.ctx)
		}
	})
}

func (reg *Registerer) recvReject(ctx context.Context, res *InboundResponse) {
	reg.finish()
	reg.captureRetry(res)

	if reg.State() == RegistrationStateTerminating {
		reg.terminate(ctx)
		return
	}

	if res.Status() == ResponseStatusIntervalTooBrief {
		if minExp, ok := res.Headers().MinExpires(); ok && !reg.retried423.Swap(true) {
			if minExp.Duration > time.Duration(reg.exp.Load()) {
				reg.exp.Store(int64(minExp.Duration))
			}
			reg.log.LogAttrs(ctx, slog.LevelDebug, "interval too brief, retrying",
				slog.Duration("min_expires", minExp.Duration))

			reg.waiting.Store(true)
			if err := reg.sendRegister(ctx, time.Duration(reg.exp.Load())); err == nil {
				return
			}
			reg.finish()
		}
	}

	reg.dispatchErr(ctx, errtrace.Wrap(errorutil.NewWrapperError(ErrRefreshFailed,
		fmt.Sprintf("registration rejected with %d", res.Status()))))
	reg.terminate(ctx)
}
