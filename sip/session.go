package sip

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"braces.dev/errtrace"
	"github.com/qmuntal/stateless"

	"github.com/ghettovoice/sipcore/header"
	"github.com/ghettovoice/sipcore/internal/errorutil"
	"github.com/ghettovoice/sipcore/internal/types"
	"github.com/ghettovoice/sipcore/log"
)

// SessionState represents the lifecycle state of an INVITE session
// (RFC 3261 Section 13).
type SessionState string

const (
	// SessionStateInitial is the state before the INVITE is sent or answered.
	SessionStateInitial SessionState = "initial"
	// SessionStateEstablishing indicates an INVITE in progress.
	SessionStateEstablishing SessionState = "establishing"
	// SessionStateEstablished indicates an accepted INVITE.
	SessionStateEstablished SessionState = "established"
	// SessionStateTerminating indicates a session winding down: the callee
	// waiting for an ACK before sending BYE, or the caller waiting for the
	// final response of a CANCEL.
	SessionStateTerminating SessionState = "terminating"
	// SessionStateTerminated is the final state of any session.
	SessionStateTerminated SessionState = "terminated"
)

func (s SessionState) String() string { return string(s) }

// SignalingState tracks the RFC 3264 offer/answer exchange of a session.
type SignalingState string

const (
	SignalingStateInitial         SignalingState = "initial"
	SignalingStateHaveLocalOffer  SignalingState = "have_local_offer"
	SignalingStateHaveRemoteOffer SignalingState = "have_remote_offer"
	SignalingStateStable          SignalingState = "stable"
	SignalingStateClosed          SignalingState = "closed"
)

func (s SignalingState) String() string { return string(s) }

// SessionStateHandler is invoked on session state transitions.
type SessionStateHandler = func(ctx context.Context, from, to SessionState)

// Option100Rel is the option tag of reliable provisional responses (RFC 3262).
const Option100Rel header.Option = "100rel"

// SessionDelegate receives session lifecycle events and in-dialog
// requests. Nil handlers fall back to a sensible default answer.
type SessionDelegate struct {
	// OnEstablished is invoked when the session reaches the established state.
	OnEstablished func(ctx context.Context)
	// OnTerminated is invoked when the session reaches the terminated state.
	OnTerminated func(ctx context.Context)
	// OnBye receives an in-dialog BYE. Without a handler the BYE is
	// answered with 200, the session terminates either way.
	OnBye func(ctx context.Context, bye *Bye)
	// OnInfo receives an in-dialog INFO. Without a handler the INFO is
	// answered with 200.
	OnInfo func(ctx context.Context, info *Info)
	// OnMessage receives an in-dialog MESSAGE. Without a handler the
	// MESSAGE is answered with 200.
	OnMessage func(ctx context.Context, msg *SessionMessage)
	// OnNotify receives an in-dialog NOTIFY. Without a handler the
	// NOTIFY is answered with 200.
	OnNotify func(ctx context.Context, ntf *Notification)
	// OnRefer receives an in-dialog REFER. Without a handler the REFER
	// is declined with 603.
	OnRefer func(ctx context.Context, ref *Referral)
}

// SessionOptions are the options shared by both session sides.
type SessionOptions struct {
	// SessionDescriptionHandler negotiates the session media. If nil,
	// bodies pass through without negotiation.
	SessionDescriptionHandler SessionDescriptionHandler
	// Delegate receives session events.
	Delegate *SessionDelegate
	// EarlyMedia establishes the media on the answer of a reliable
	// provisional response instead of the final one. Incompatible with
	// fork tolerant calls.
	EarlyMedia bool
	// Timings override the RFC 3261 timer base values.
	Timings TimingConfig
	// Log is the logger. If nil, the [log.Default] is used.
	Log *slog.Logger
}

func (o *SessionOptions) sdh() SessionDescriptionHandler {
	if o == nil {
		return nil
	}
	return o.SessionDescriptionHandler
}

func (o *SessionOptions) delegate() *SessionDelegate {
	if o == nil {
		return nil
	}
	return o.Delegate
}

func (o *SessionOptions) earlyMedia() bool {
	if o == nil {
		return false
	}
	return o.EarlyMedia
}

func (o *SessionOptions) timings() TimingConfig {
	if o == nil {
		return TimingConfig{}
	}
	return o.Timings
}

func (o *SessionOptions) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Default()
	}
	return o.Log
}

// Session is the common interface of the two sides of an INVITE
// session: the [Inviter] on the caller side and the [Invitation] on
// the callee side.
type Session interface {
	slog.LogValuer
	// State returns the current session state.
	State() SessionState
	// SignalingState returns the current offer/answer state.
	SignalingState() SignalingState
	// Dialog returns the session dialog, nil before one is formed.
	Dialog() *Dialog
	// Context returns the session context, canceled on termination.
	Context() context.Context
	// Bye terminates an established session with an in-dialog BYE.
	Bye(ctx context.Context, opts *DialogSendOptions) error
	// OnStateChanged registers a callback invoked on each state transition.
	OnStateChanged(fn SessionStateHandler) (cancel func())
	// OnError registers a callback invoked on session failures.
	OnError(fn ErrorHandler) (cancel func())
}

// Session triggers.
const (
	sessEvtEstablishing = "establishing"
	sessEvtEstablished  = "established"
	sessEvtTerminating  = "terminating"
	sessEvtTerminate    = "terminate"
)

// Signaling triggers.
const (
	sigEvtLocalOffer  = "local_offer"
	sigEvtRemoteOffer = "remote_offer"
	sigEvtAnswer      = "answer"
	sigEvtRollback    = "rollback"
	sigEvtClose       = "close"
)

type session struct {
	fsm  *stateless.StateMachine
	sig  *stateless.StateMachine
	ctx  context.Context
	canc context.CancelFunc
	impl Session
	log  *slog.Logger

	core       *UserAgentCore
	sdh        SessionDescriptionHandler
	delegate   *SessionDelegate
	timings    TimingConfig
	earlyMedia bool

	dlg      atomic.Pointer[Dialog]
	unregDlg atomic.Pointer[func()]

	// hooks installed by the concrete session side before the dialog
	// is registered with the core
	ackFn   func(ctx context.Context, req *InboundRequest)
	prackFn func(ctx context.Context, req *InboundRequest, ua *UAS) bool

	onStateChanged types.CallbackManager[SessionStateHandler]
	onErr          types.CallbackManager[ErrorHandler]
}

func newSession(core *UserAgentCore, impl Session, opts *SessionOptions) *session {
	ctx, canc := context.WithCancel(context.Background())
	s := &session{
		ctx:        ctx,
		canc:       canc,
		impl:       impl,
		log:        opts.log(),
		core:       core,
		sdh:        opts.sdh(),
		delegate:   opts.delegate(),
		timings:    opts.timings(),
		earlyMedia: opts.earlyMedia(),
	}
	s.initFSM()
	return s
}

func (s *session) initFSM() {
	fsm := stateless.NewStateMachineWithMode(SessionStateInitial, stateless.FiringQueued)
	fsm.OnUnhandledTrigger(func(_ context.Context, state stateless.State, trigger stateless.Trigger, _ []string) error {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrActionNotAllowed,
			fmt.Sprintf("%q in state %q", trigger, state)))
	})
	fsm.OnTransitioned(func(ctx context.Context, tr stateless.Transition) {
		from, _ := tr.Source.(SessionState)
		to, _ := tr.Destination.(SessionState)
		if from == to {
			return
		}
		s.onStateChanged.Range(func(fn SessionStateHandler) {
			fn(ctx, from, to)
		})
	})

	fsm.Configure(SessionStateInitial).
		Permit(sessEvtEstablishing, SessionStateEstablishing).
		Permit(sessEvtTerminate, SessionStateTerminated)

	fsm.Configure(SessionStateEstablishing).
		Permit(sessEvtEstablished, SessionStateEstablished).
		Permit(sessEvtTerminating, SessionStateTerminating).
		Permit(sessEvtTerminate, SessionStateTerminated)

	fsm.Configure(SessionStateEstablished).
		OnEntry(s.actEstablished).
		Permit(sessEvtTerminating, SessionStateTerminating).
		Permit(sessEvtTerminate, SessionStateTerminated)

	fsm.Configure(SessionStateTerminating).
		Permit(sessEvtTerminate, SessionStateTerminated)

	fsm.Configure(SessionStateTerminated).
		OnEntry(s.actTerminated)

	s.fsm = fsm

	sig := stateless.NewStateMachineWithMode(SignalingStateInitial, stateless.FiringQueued)
	sig.OnUnhandledTrigger(func(_ context.Context, state stateless.State, trigger stateless.Trigger, _ []string) error {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrSignalingStateInvalid,
			fmt.Sprintf("%q in state %q", trigger, state)))
	})

	sig.Configure(SignalingStateInitial).
		Permit(sigEvtLocalOffer, SignalingStateHaveLocalOffer).
		Permit(sigEvtRemoteOffer, SignalingStateHaveRemoteOffer).
		Permit(sigEvtClose, SignalingStateClosed)

	sig.Configure(SignalingStateHaveLocalOffer).
		Permit(sigEvtAnswer, SignalingStateStable).
		Permit(sigEvtRollback, SignalingStateInitial).
		Permit(sigEvtClose, SignalingStateClosed)

	sig.Configure(SignalingStateHaveRemoteOffer).
		Permit(sigEvtAnswer, SignalingStateStable).
		Permit(sigEvtRollback, SignalingStateInitial).
		Permit(sigEvtClose, SignalingStateClosed)

	sig.Configure(SignalingStateStable).
		Permit(sigEvtLocalOffer, SignalingStateHaveLocalOffer).
		Permit(sigEvtRemoteOffer, SignalingStateHaveRemoteOffer).
		Permit(sigEvtClose, SignalingStateClosed)

	sig.Configure(SignalingStateClosed).
		InternalTransition(sigEvtClose, func(context.Context, ...any) error { return nil })

	s.sig = sig
}

// State returns the current session state.
func (s *session) State() SessionState {
	st, _ := s.fsm.MustState().(SessionState)
	return st
}

// SignalingState returns the current offer/answer state.
func (s *session) SignalingState() SignalingState {
	st, _ := s.sig.MustState().(SignalingState)
	return st
}

// Dialog returns the session dialog, nil before one is formed.
func (s *session) Dialog() *Dialog { return s.dlg.Load() }

// Context returns the session context.
func (s *session) Context() context.Context { return s.ctx }

// OnStateChanged registers a callback invoked on each state transition.
func (s *session) OnStateChanged(fn SessionStateHandler) (cancel func()) {
	return s.onStateChanged.Add(fn)
}

// OnError registers a callback invoked on session failures.
func (s *session) OnError(fn ErrorHandler) (cancel func()) {
	return s.onErr.Add(fn)
}

func (s *session) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Any("state", s.State()),
		slog.Any("signaling", s.SignalingState()),
	}
	if dlg := s.dlg.Load(); dlg != nil {
		attrs = append(attrs, slog.Any("dialog_id", dlg.ID()))
	}
	return slog.GroupValue(attrs...)
}

func (s *session) dispatchErr(ctx context.Context, err error) {
	s.onErr.Range(func(fn ErrorHandler) {
		fn(ctx, err)
	})
}

func (s *session) actEstablished(ctx context.Context, _ ...any) error {
	s.log.LogAttrs(ctx, slog.LevelDebug, "session established", slog.Any("session", s.impl))
	if s.delegate != nil && s.delegate.OnEstablished != nil {
		s.delegate.OnEstablished(ctx)
	}
	return nil
}

func (s *session) actTerminated(ctx context.Context, _ ...any) error {
	s.log.LogAttrs(ctx, slog.LevelDebug, "session terminated", slog.Any("session", s.impl))

	s.sig.FireCtx(ctx, sigEvtClose) //nolint:errcheck
	if s.sdh != nil {
		if err := s.sdh.Close(); err != nil {
			s.log.LogAttrs(ctx, slog.LevelWarn,
				"failed to close session description handler",
				slog.Any("session", s.impl),
				slog.Any("error", err),
			)
		}
	}
	if unreg := s.unregDlg.Swap(nil); unreg != nil {
		(*unreg)()
	}
	s.canc()
	if s.delegate != nil && s.delegate.OnTerminated != nil {
		s.delegate.OnTerminated(ctx)
	}
	return nil
}

// adoptDialog registers the dialog with the core so in-dialog requests
// reach the session. Replaces a previously adopted dialog.
func (s *session) adoptDialog(dlg *Dialog) error {
	unreg, err := s.core.RegisterDialog(dlg, s.recvDialogReq)
	if err != nil {
		return errtrace.Wrap(err)
	}
	s.dlg.Store(dlg)
	if prev := s.unregDlg.Swap(&unreg); prev != nil {
		(*prev)()
	}
	return nil
}

// terminate moves the session to the terminated state from any state.
func (s *session) terminate(ctx context.Context) {
	if s.State() == SessionStateTerminated {
		return
	}
	if err := s.fsm.FireCtx(ctx, sessEvtTerminate); err != nil {
		s.log.LogAttrs(ctx, slog.LevelWarn,
			"failed to terminate session",
			slog.Any("session", s.impl),
			slog.Any("error", err),
		)
	}
}

// ---- offer/answer helpers ----

// setLocalOffer produces the local offer and advances the signaling
// state. A second local offer before an answer fails with
// [ErrSignalingStateInvalid].
func (s *session) setLocalOffer(ctx context.Context) (Body, error) {
	if s.sdh == nil {
		return Body{}, nil
	}
	if err := s.sig.FireCtx(ctx, sigEvtLocalOffer); err != nil {
		return Body{}, errtrace.Wrap(err)
	}
	body, err := s.sdh.GetDescription(ctx, nil)
	if err != nil {
		s.sig.FireCtx(ctx, sigEvtRollback) //nolint:errcheck
		return Body{}, errtrace.Wrap(err)
	}
	return body, nil
}

// setRemoteOffer applies the remote offer.
func (s *session) setRemoteOffer(ctx context.Context, body Body) error {
	if s.sdh == nil || body.IsZero() {
		return nil
	}
	if err := s.sig.FireCtx(ctx, sigEvtRemoteOffer); err != nil {
		return errtrace.Wrap(err)
	}
	if err := s.sdh.SetDescription(ctx, body, nil); err != nil {
		s.sig.FireCtx(ctx, sigEvtRollback) //nolint:errcheck
		if rerr := s.sdh.Rollback(ctx); rerr != nil {
			s.log.LogAttrs(ctx, slog.LevelWarn,
				"failed to roll back session description",
				slog.Any("session", s.impl),
				slog.Any("error", rerr),
			)
		}
		return errtrace.Wrap(err)
	}
	return nil
}

// setLocalAnswer produces the answer to a pending remote offer.
func (s *session) setLocalAnswer(ctx context.Context) (Body, error) {
	if s.sdh == nil {
		return Body{}, nil
	}
	body, err := s.sdh.GetDescription(ctx, nil)
	if err != nil {
		return Body{}, errtrace.Wrap(err)
	}
	if err := s.sig.FireCtx(ctx, sigEvtAnswer); err != nil {
		return Body{}, errtrace.Wrap(err)
	}
	return body, nil
}

// setRemoteAnswer applies the answer to a pending local offer.
// Answers arriving after the exchange is stable are ignored:
// retransmitted 2xx and extra reliable provisionals repeat the same
// description.
func (s *session) setRemoteAnswer(ctx context.Context, body Body) error {
	if s.sdh == nil || body.IsZero() {
		return nil
	}
	if s.SignalingState() == SignalingStateStable {
		return nil
	}
	if err := s.sdh.SetDescription(ctx, body, nil); err != nil {
		return errtrace.Wrap(err)
	}
	return errtrace.Wrap(s.sig.FireCtx(ctx, sigEvtAnswer))
}

func contentTypeHeader(ct string) *header.ContentType {
	typ, subtype, _ := strings.Cut(ct, "/")
	return &header.ContentType{Type: typ, Subtype: subtype}
}

// bodyHeaders returns the headers advertising the body content type.
func bodyHeaders(body Body) Headers {
	if body.IsZero() || body.ContentType == "" {
		return nil
	}
	return make(Headers).Set(contentTypeHeader(body.ContentType))
}

// ---- in-dialog requests, inbound ----

func (s *session) recvDialogReq(ctx context.Context, _ *Dialog, req *InboundRequest, ua *UAS) {
	mtd := req.Method()
	switch {
	case mtd.Equal(RequestMethodAck):
		if s.ackFn != nil {
			s.ackFn(ctx, req)
		}
	case mtd.Equal(RequestMethodPrack):
		if s.prackFn != nil && s.prackFn(ctx, req, ua) {
			return
		}
		ua.Reject(ctx, ResponseStatusCallTransactionDoesNotExist, nil) //nolint:errcheck
	case mtd.Equal(RequestMethodBye):
		s.recvBye(ctx, req, ua)
	case mtd.Equal(RequestMethodInvite):
		s.recvReinvite(ctx, req, ua)
	case mtd.Equal(RequestMethodInfo):
		if s.delegate != nil && s.delegate.OnInfo != nil {
			s.delegate.OnInfo(ctx, &Info{sessionRequest{req: req, ua: ua}})
			return
		}
		ua.Accept(ctx, ResponseStatusOK, nil) //nolint:errcheck
	case mtd.Equal(RequestMethodMessage):
		if s.delegate != nil && s.delegate.OnMessage != nil {
			s.delegate.OnMessage(ctx, &SessionMessage{sessionRequest{req: req, ua: ua}})
			return
		}
		ua.Accept(ctx, ResponseStatusOK, nil) //nolint:errcheck
	case mtd.Equal(RequestMethodNotify):
		if s.delegate != nil && s.delegate.OnNotify != nil {
			s.delegate.OnNotify(ctx, &Notification{sessionRequest{req: req, ua: ua}})
			return
		}
		ua.Accept(ctx, ResponseStatusOK, nil) //nolint:errcheck
	case mtd.Equal(RequestMethodRefer):
		if s.delegate != nil && s.delegate.OnRefer != nil {
			s.delegate.OnRefer(ctx, &Referral{sessionRequest{req: req, ua: ua}})
			return
		}
		ua.Reject(ctx, ResponseStatusDecline, nil) //nolint:errcheck
	default:
		ua.Reject(ctx, ResponseStatusMethodNotAllowed, nil) //nolint:errcheck
	}
}

func (s *session) recvBye(ctx context.Context, req *InboundRequest, ua *UAS) {
	if s.delegate != nil && s.delegate.OnBye != nil {
		s.delegate.OnBye(ctx, &Bye{sessionRequest{req: req, ua: ua}})
	} else if err := ua.Accept(ctx, ResponseStatusOK, nil); err != nil {
		s.log.LogAttrs(ctx, slog.LevelWarn,
			"failed to answer BYE",
			slog.Any("session", s.impl),
			slog.Any("error", err),
		)
	}
	s.terminate(ctx)
}

// recvReinvite renegotiates the session media. Renegotiation is legal
// only on an established session (RFC 3261 Section 14.2).
func (s *session) recvReinvite(ctx context.Context, req *InboundRequest, ua *UAS) {
	if s.State() != SessionStateEstablished {
		ua.Reject(ctx, ResponseStatusRequestPending, nil) //nolint:errcheck
		return
	}

	offer := BodyFromMessage(req.Message())
	if err := s.setRemoteOffer(ctx, offer); err != nil {
		s.dispatchErr(ctx, err)
		ua.Reject(ctx, ResponseStatusNotAcceptableHere, nil) //nolint:errcheck
		return
	}
	answer, err := s.setLocalAnswer(ctx)
	if err != nil && !offer.IsZero() {
		s.dispatchErr(ctx, err)
		ua.Reject(ctx, ResponseStatusNotAcceptableHere, nil) //nolint:errcheck
		return
	}

	if err := ua.Accept(ctx, ResponseStatusOK, &RespondOptions{
		ResponseOptions: &ResponseOptions{Headers: bodyHeaders(answer), Body: answer.Content},
	}); err != nil {
		s.log.LogAttrs(ctx, slog.LevelWarn,
			"failed to answer re-INVITE",
			slog.Any("session", s.impl),
			slog.Any("error", err),
		)
	}
}

// ---- in-dialog requests, outbound ----

// Bye terminates an established session (RFC 3261 Section 15.1).
func (s *session) Bye(ctx context.Context, opts *DialogSendOptions) error {
	switch s.State() {
	case SessionStateTerminating, SessionStateTerminated:
		return errtrace.Wrap(ErrSessionTerminated)
	case SessionStateEstablished:
	default:
		return errtrace.Wrap(errorutil.NewWrapperError(ErrActionNotAllowed, "session not established"))
	}

	dlg := s.dlg.Load()
	if dlg == nil {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrActionNotAllowed, "no dialog"))
	}
	if _, err := s.core.DialogRequest(ctx, dlg, RequestMethodBye, opts); err != nil {
		return errtrace.Wrap(err)
	}
	s.terminate(ctx)
	return nil
}

// Info sends an in-dialog INFO with the given payload.
func (s *session) Info(ctx context.Context, body Body, opts *DialogSendOptions) (*UAC, error) {
	return errtrace.Wrap2(s.dialogRequest(ctx, RequestMethodInfo, body, opts))
}

// Message sends an in-dialog MESSAGE with the given payload.
func (s *session) Message(ctx context.Context, body Body, opts *DialogSendOptions) (*UAC, error) {
	return errtrace.Wrap2(s.dialogRequest(ctx, RequestMethodMessage, body, opts))
}

// Notify sends an in-dialog NOTIFY with the given payload.
func (s *session) Notify(ctx context.Context, body Body, opts *DialogSendOptions) (*UAC, error) {
	return errtrace.Wrap2(s.dialogRequest(ctx, RequestMethodNotify, body, opts))
}

// Refer asks the remote party to send a request to the target
// (RFC 3515).
func (s *session) Refer(ctx context.Context, target URI, opts *DialogSendOptions) (*UAC, error) {
	if target == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("invalid refer target"))
	}
	var sendOpts DialogSendOptions
	if opts != nil {
		sendOpts = *opts
	}
	hdrs := sendOpts.Headers.Clone()
	if hdrs == nil {
		hdrs = make(Headers)
	}
	sendOpts.Headers = hdrs.Set(&header.Any{Name: "Refer-To", Value: target.Render(nil)})
	return errtrace.Wrap2(s.dialogRequest(ctx, RequestMethodRefer, Body{}, &sendOpts))
}

func (s *session) dialogRequest(ctx context.Context, method RequestMethod, body Body, opts *DialogSendOptions) (*UAC, error) {
	if s.State() != SessionStateEstablished {
		return nil, errtrace.Wrap(errorutil.NewWrapperError(ErrActionNotAllowed, "session not established"))
	}
	dlg := s.dlg.Load()
	if dlg == nil {
		return nil, errtrace.Wrap(errorutil.NewWrapperError(ErrActionNotAllowed, "no dialog"))
	}

	var sendOpts DialogSendOptions
	if opts != nil {
		sendOpts = *opts
	}
	if !body.IsZero() {
		sendOpts.Body = body.Content
		if body.ContentType != "" {
			hdrs := sendOpts.Headers.Clone()
			if hdrs == nil {
				hdrs = make(Headers)
			}
			sendOpts.Headers = hdrs.Set(contentTypeHeader(body.ContentType))
		}
	}
	return errtrace.Wrap2(s.core.DialogRequest(ctx, dlg, method, &sendOpts))
}

// ---- in-dialog request wrappers ----

type sessionRequest struct {
	req *InboundRequest
	ua  *UAS
}

// Request returns the wrapped request.
func (r *sessionRequest) Request() *InboundRequest { return r.req }

// Accept answers the request with 200.
func (r *sessionRequest) Accept(ctx context.Context, opts *RespondOptions) error {
	return errtrace.Wrap(r.ua.Accept(ctx, ResponseStatusOK, opts))
}

// Reject answers the request with a 4xx-6xx status.
func (r *sessionRequest) Reject(ctx context.Context, sts ResponseStatus, opts *RespondOptions) error {
	return errtrace.Wrap(r.ua.Reject(ctx, sts, opts))
}

// Bye is an in-dialog BYE delivered to [SessionDelegate.OnBye].
type Bye struct{ sessionRequest }

// Info is an in-dialog INFO delivered to [SessionDelegate.OnInfo].
type Info struct{ sessionRequest }

// SessionMessage is an in-dialog MESSAGE delivered to [SessionDelegate.OnMessage].
type SessionMessage struct{ sessionRequest }

// Notification is an in-dialog NOTIFY delivered to [SessionDelegate.OnNotify].
type Notification struct{ sessionRequest }

// Referral is an in-dialog REFER delivered to [SessionDelegate.OnRefer].
type Referral struct{ sessionRequest }

// ReferTo returns the refer target URI value.
func (r *Referral) ReferTo() (string, bool) {
	hdrs := r.req.Message().Headers.Get("Refer-To")
	if len(hdrs) == 0 {
		return "", false
	}
	if h, ok := hdrs[0].(*header.Any); ok {
		return h.Value, true
	}
	return "", false
}
