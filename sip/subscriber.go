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
	"github.com/ghettovoice/sipcore/internal/timeutil"
	"github.com/ghettovoice/sipcore/internal/types"
	"github.com/ghettovoice/sipcore/log"
)

// Subscription states.
const (
	SubscriptionStateInitial     = RefreshStateInitial
	SubscriptionStateSubscribed  = RefreshStateActive
	SubscriptionStateTerminating = RefreshStateTerminating
	SubscriptionStateTerminated  = RefreshStateTerminated
)

// SubscriberOptions configure a [Subscriber].
type SubscriberOptions struct {
	// Expires is the requested subscription expiration.
	// Defaults to [DefaultExpires].
	Expires time.Duration
	// RefreshFrequency is the percentage of the granted expiration
	// after which the subscription is refreshed.
	// Defaults to [DefaultRefreshFrequency].
	RefreshFrequency uint
	// Contact is included in each SUBSCRIBE request.
	Contact *header.ContactAddr
	// Headers are appended to each SUBSCRIBE request.
	Headers Headers
	// Timings bound the wait for the first NOTIFY.
	Timings TimingConfig
	// SendOptions are passed to the transport.
	SendOptions *SendRequestOptions
	// Log is the subscriber logger.
	Log *slog.Logger
}

func (o *SubscriberOptions) expires() time.Duration {
	if o == nil {
		return 0
	}
	return o.Expires
}

func (o *SubscriberOptions) freq() uint {
	if o == nil {
		return 0
	}
	return o.RefreshFrequency
}

func (o *SubscriberOptions) contact() *header.ContactAddr {
	if o == nil {
		return nil
	}
	return o.Contact
}

func (o *SubscriberOptions) headers() Headers {
	if o == nil {
		return nil
	}
	return o.Headers
}

func (o *SubscriberOptions) timings() TimingConfig {
	if o == nil {
		return TimingConfig{}
	}
	return o.Timings
}

func (o *SubscriberOptions) sendOpts() *SendRequestOptions {
	if o == nil {
		return nil
	}
	return o.SendOptions
}

func (o *SubscriberOptions) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Default()
	}
	return o.Log
}

// Subscriber maintains an event subscription at a notifier. The
// subscription becomes [SubscriptionStateSubscribed] only once the
// first NOTIFY arrives: a 2xx to SUBSCRIBE alone keeps the attempt
// pending, and no NOTIFY within 64*T1 fails it with [ErrNoNotify].
type Subscriber struct {
	*refresher

	target   URI
	from     URI
	event    header.Event
	contact  *header.ContactAddr
	hdrs     Headers
	timings  TimingConfig
	sendOpts *SendRequestOptions

	ua       atomic.Pointer[UAC]
	dlg      atomic.Pointer[Dialog]
	unregDlg atomic.Pointer[func()]
	granted  atomic.Int64
	notifyN  atomic.Pointer[timeutil.SerializableTimer]

	onNotify types.CallbackManager[InboundRequestHandler]
}

// NewSubscriber creates a subscriber for the given event package at
// target. No request is sent until [Subscriber.Subscribe].
func NewSubscriber(
	core *UserAgentCore,
	target, from URI,
	event string,
	opts *SubscriberOptions,
) (*Subscriber, error) {
	if core == nil || target == nil || from == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("nil core, target or from"))
	}
	if event == "" {
		return nil, errtrace.Wrap(NewInvalidArgumentError("empty event type"))
	}

	ref, err := newRefresher(core, opts.expires(), opts.freq(), opts.log())
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	return &Subscriber{
		refresher: ref,
		target:    target.Clone(),
		from:      from.Clone(),
		event:     header.Event{Type: event},
		contact:   opts.contact(),
		hdrs:      opts.headers().Clone(),
		timings:   opts.timings(),
		sendOpts:  opts.sendOpts(),
	}, nil
}

// Dialog returns the subscription dialog, nil until the SUBSCRIBE is
// accepted.
func (sub *Subscriber) Dialog() *Dialog { return sub.dlg.Load() }

// OnNotify registers a callback invoked with each NOTIFY of this
// subscription. The NOTIFY is answered with 200 before the callbacks
// run.
func (sub *Subscriber) OnNotify(fn InboundRequestHandler) (cancel func()) {
	return sub.onNotify.Add(fn)
}

// Subscribe sends a SUBSCRIBE establishing or refreshing the
// subscription. The request is asynchronous: failures are reported
// through [Subscriber.OnError].
func (sub *Subscriber) Subscribe(ctx context.Context) error {
	if err := sub.begin(); err != nil {
		return errtrace.Wrap(err)
	}
	if err := sub.sendSubscribe(ctx, sub.expires); err != nil {
		sub.finish()
		return errtrace.Wrap(err)
	}
	return nil
}

// Unsubscribe ends the subscription with an expires=0 SUBSCRIBE and
// terminates the subscriber.
func (sub *Subscriber) Unsubscribe(ctx context.Context) error {
	if err := sub.terminating(ctx); err != nil {
		return errtrace.Wrap(err)
	}
	sub.stopRefresh()
	sub.stopNotifyWait()
	sub.waiting.Store(true)
	if err := sub.sendSubscribe(ctx, 0); err != nil {
		sub.finish()
		sub.terminate(ctx)
		return errtrace.Wrap(err)
	}
	return nil
}

func (sub *Subscriber) sendSubscribe(ctx context.Context, expires time.Duration) error {
	hdrs := sub.hdrs.Clone()
	if hdrs == nil {
		hdrs = make(Headers)
	}
	hdrs.Set(sub.event.Clone()).Set(&header.Expires{Duration: expires})

	delegate := &UACDelegate{
		OnAccept:   func(ctx context.Context, res *InboundResponse) { sub.recvAccept(ctx, res, expires) },
		OnRedirect: sub.recvReject,
		OnReject:   sub.recvReject,
	}

	var (
		ua  *UAC
		err error
	)
	if dlg := sub.dlg.Load(); dlg != nil {
		ua, err = sub.core.DialogRequest(ctx, dlg, RequestMethodSubscribe, &DialogSendOptions{
			Headers:     hdrs,
			Delegate:    delegate,
			SendOptions: sub.sendOpts,
		})
	} else {
		ua, err = sub.core.Subscribe(ctx, sub.target, &RequestOptions{
			From:        sub.from,
			Contact:     sub.contact,
			Headers:     hdrs,
			SendOptions: sub.sendOpts,
			Delegate:    delegate,
		})
	}
	if err != nil {
		return errtrace.Wrap(err)
	}
	sub.ua.Store(ua)
	ua.OnError(func(ctx context.Context, err error) {
		sub.finish()
		sub.dispatchErr(ctx, errtrace.Wrap(errorutil.NewWrapperError(ErrRefreshFailed, err)))
		sub.terminate(ctx)
	})

	if sub.State() == SubscriptionStateInitial {
		sub.armNotifyWait()
	}
	return nil
}

// armNotifyWait starts the wait for the first NOTIFY of a new
// subscription.
func (sub *Subscriber) armNotifyWait() {
	tmr := timeutil.AfterFunc(sub.timings.TimeF(), func() {
		sub.onNoNotify(sub.ctx)
	})
	if prev := sub.notifyN.Swap(tmr); prev != nil {
		prev.Stop()
	}
}

func (sub *Subscriber) stopNotifyWait() {
	if tmr := sub.notifyN.Swap(nil); tmr != nil {
		tmr.Stop()
	}
}

func (sub *Subscriber) onNoNotify(ctx context.Context) {
	if sub.State() != SubscriptionStateInitial {
		return
	}
	sub.finish()
	sub.unregisterDialog()
	sub.dispatchErr(ctx, errtrace.Wrap(ErrNoNotify))
	sub.terminate(ctx)
}

func (sub *Subscriber) recvAccept(ctx context.Context, res *InboundResponse, requested time.Duration) {
	sub.finish()

	if sub.State() == SubscriptionStateTerminating || requested == 0 {
		sub.terminate(ctx)
		return
	}

	granted := grantedExpiration(res, sub.contact, requested)
	sub.granted.Store(int64(granted))

	if sub.dlg.Load() == nil {
		ua := sub.ua.Load()
		if ua == nil {
			return
		}
		dlg, err := NewDialogUAC(ua.Request(), res)
		if err != nil {
			sub.dispatchErr(ctx, errtrace.Wrap(err))
			sub.terminate(ctx)
			return
		}
		dlg.Confirm()
		unreg, err := sub.core.RegisterDialog(dlg, sub.recvDialogReq)
		if err != nil {
			sub.dispatchErr(ctx, errtrace.Wrap(err))
			sub.terminate(ctx)
			return
		}
		sub.dlg.Store(dlg)
		if prev := sub.unregDlg.Swap(&unreg); prev != nil {
			(*prev)()
		}
	}

	// Active subscriptions re-arm the refresh directly, new ones wait
	// for the first NOTIFY.
	if sub.State() == SubscriptionStateSubscribed {
		sub.scheduleRefreshCycle(granted)
	}
}

func (sub *Subscriber) recvReject(ctx context.Context, res *InboundResponse) {
	sub.finish()
	sub.captureRetry(res)
	sub.stopNotifyWait()

	if sub.State() == SubscriptionStateTerminating {
		sub.terminate(ctx)
		return
	}
	sub.unregisterDialog()
	sub.dispatchErr(ctx, errtrace.Wrap(errorutil.NewWrapperError(ErrRefreshFailed,
		fmt.Sprintf("subscription rejected with %d", res.Status()))))
	sub.terminate(ctx)
}

func (sub *Subscriber) recvDialogReq(ctx context.Context, _ *Dialog, req *InboundRequest, ua *UAS) {
	if !req.Method().Equal(RequestMethodNotify) {
		if ua != nil {
			if err := ua.Reject(ctx, ResponseStatusMethodNotAllowed, nil); err != nil {
				sub.log.LogAttrs(ctx, slog.LevelWarn, "failed to reject request", slog.Any("error", err))
			}
		}
		return
	}
	sub.recvNotify(ctx, req, ua)
}

func (sub *Subscriber) recvNotify(ctx context.Context, req *InboundRequest, ua *UAS) {
	sub.stopNotifyWait()

	if ua != nil {
		if err := ua.Accept(ctx, ResponseStatusOK, nil); err != nil {
			sub.log.LogAttrs(ctx, slog.LevelWarn, "failed to accept NOTIFY", slog.Any("error", err))
		}
	}

	subSt, _ := req.Headers().SubscriptionState()
	terminated := subSt != nil && subSt.State == header.SubStateTerminated

	if !terminated && sub.State() == SubscriptionStateInitial {
		sub.activate(ctx)
		sub.scheduleRefreshCycle(time.Duration(sub.granted.Load()))
	}

	sub.onNotify.Range(func(fn InboundRequestHandler) {
		fn(ctx, req)
	})

	if terminated {
		sub.unregisterDialog()
		sub.terminate(ctx)
	}
}

func (sub *Subscriber) scheduleRefreshCycle(granted time.Duration) {
	sub.scheduleRefresh(granted, func() {
		if err := sub.sendSubscribe(sub.ctx, sub.expires); err != nil {
			sub.dispatchErr(sub.ctx, errtrace.Wrap(errorutil.NewWrapperError(ErrRefreshFailed, err)))
			sub.terminate(sub.ctx)
		}
	})
}

func (sub *Subscriber) unregisterDialog() {
	if unreg := sub.unregDlg.Swap(nil); unreg != nil {
		(*unreg)()
	}
}
