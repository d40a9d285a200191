package sip

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipcore/header"
	"github.com/ghettovoice/sipcore/internal/errorutil"
	"github.com/ghettovoice/sipcore/internal/timeutil"
)

// InvitationOptions are the options of the callee side of an INVITE session.
type InvitationOptions struct {
	SessionOptions

	// Contact is included in dialog-establishing responses when set.
	Contact *header.ContactAddr
}

func (o *InvitationOptions) contact() *header.ContactAddr {
	if o == nil {
		return nil
	}
	return o.Contact
}

// ProgressOptions are the options of [Invitation.Progress].
type ProgressOptions struct {
	// Status of the provisional response, 180 if zero.
	Status ResponseStatus
	// Headers are merged into the response headers.
	Headers Headers
	// Body of the response.
	Body []byte
	// Reliable sends the response reliably (RFC 3262). Forced when the
	// INVITE requires the 100rel extension.
	Reliable bool
}

func (o *ProgressOptions) status() ResponseStatus {
	if o == nil || o.Status == 0 {
		return ResponseStatusRinging
	}
	return o.Status
}

// pendingProv tracks one unacknowledged reliable provisional response.
type pendingProv struct {
	rseq  uint
	start time.Time
	done  chan struct{}
	acked atomic.Bool
	fin   sync.Once
	tmr   atomic.Pointer[timeutil.SerializableTimer]
}

func (p *pendingProv) finish(acked bool) {
	p.fin.Do(func() {
		p.acked.Store(acked)
		if tmr := p.tmr.Swap(nil); tmr != nil {
			tmr.Stop()
		}
		close(p.done)
	})
}

// Invitation is the callee side of an INVITE session (RFC 3261
// Section 13.3). It wraps the UAS of the INVITE and owns the dialog
// formed by the local tag.
type Invitation struct {
	*session

	ua       *UAS
	req      *InboundRequest
	localTag string
	contact  *header.ContactAddr

	offerless bool
	accepted  atomic.Bool
	canceled  atomic.Bool

	rseq    uint
	pending atomic.Pointer[pendingProv]

	ackSeen atomic.Bool
	ackTmr  atomic.Pointer[timeutil.SerializableTimer]
	expTmr  atomic.Pointer[timeutil.SerializableTimer]
}

// NewInvitation builds the callee side of an INVITE session from the
// server side user agent of the INVITE. The dialog is registered with
// the core right away so in-dialog PRACK, ACK and CANCEL reach the
// session.
func NewInvitation(core *UserAgentCore, ua *UAS, opts *InvitationOptions) (*Invitation, error) {
	if core == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("nil core"))
	}
	if ua == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("nil user agent"))
	}
	req := ua.Request()
	if req == nil || !req.Method().Equal(RequestMethodInvite) {
		return nil, errtrace.Wrap(NewInvalidArgumentError("not an INVITE transaction"))
	}

	inv := &Invitation{
		ua:       ua,
		req:      req,
		localTag: core.ident.Tag(),
		contact:  opts.contact(),
	}
	var sessOpts *SessionOptions
	if opts != nil {
		sessOpts = &opts.SessionOptions
	}
	inv.session = newSession(core, inv, sessOpts)
	inv.ackFn = inv.recvAck
	inv.prackFn = inv.recvPrack
	inv.onStateChanged.Add(func(_ context.Context, _, to SessionState) {
		if to == SessionStateTerminated {
			inv.failWaits()
		}
	})

	dlg, err := NewDialogUAS(req, inv.localTag)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	if err := inv.adoptDialog(dlg); err != nil {
		return nil, errtrace.Wrap(err)
	}

	if err := inv.setRemoteOffer(context.Background(), BodyFromMessage(req.Message())); err != nil {
		inv.terminate(context.Background())
		return nil, errtrace.Wrap(err)
	}
	inv.offerless = inv.SignalingState() == SignalingStateInitial

	if err := inv.fsm.FireCtx(context.Background(), sessEvtEstablishing); err != nil {
		return nil, errtrace.Wrap(err)
	}

	ua.OnCancel(inv.recvCancel)
	if exp, ok := req.Headers().Expires(); ok && exp.Duration > 0 {
		inv.expTmr.Store(timeutil.AfterFunc(exp.Duration, inv.onExpire))
	}
	return inv, nil
}

// Request returns the INVITE that created the session.
func (inv *Invitation) Request() *InboundRequest { return inv.req }

// Progress answers the INVITE with a provisional response. A reliable
// response carries RSeq and is retransmitted on a doubling interval
// until the matching PRACK arrives; without one the session fails.
func (inv *Invitation) Progress(ctx context.Context, opts *ProgressOptions) error {
	if inv.State() != SessionStateEstablishing {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrActionNotAllowed, "session not establishing"))
	}

	var hdrs Headers
	var body []byte
	reliable := inv.requires100Rel()
	if opts != nil {
		hdrs = opts.Headers.Clone()
		body = opts.Body
		reliable = reliable || opts.Reliable
	}
	if hdrs == nil {
		hdrs = make(Headers)
	}
	if inv.contact != nil {
		hdrs.Set(header.Contact{*inv.contact})
	}

	if !reliable {
		return errtrace.Wrap(inv.ua.Progress(ctx, opts.status(), &RespondOptions{
			ResponseOptions: &ResponseOptions{LocalTag: inv.localTag, Headers: hdrs, Body: body},
		}))
	}

	if inv.pending.Load() != nil {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrActionNotAllowed, "reliable provisional not acknowledged yet"))
	}

	inv.rseq++
	hdrs.Set(header.RSeq(inv.rseq)).Set(header.Require{Option100Rel})
	respOpts := &RespondOptions{
		ResponseOptions: &ResponseOptions{LocalTag: inv.localTag, Headers: hdrs, Body: body},
	}
	sts := opts.status()

	pend := &pendingProv{
		rseq:  inv.rseq,
		start: time.Now(),
		done:  make(chan struct{}),
	}
	inv.pending.Store(pend)

	if err := inv.ua.Progress(ctx, sts, respOpts); err != nil {
		inv.pending.Store(nil)
		pend.finish(false)
		return errtrace.Wrap(err)
	}

	pend.tmr.Store(timeutil.AfterFunc(inv.timings.T1(), func() {
		inv.retransmitProv(pend, sts, respOpts)
	}))
	return nil
}

func (inv *Invitation) requires100Rel() bool {
	req, ok := inv.req.Headers().Require()
	if !ok {
		return false
	}
	for _, opt := range req {
		if opt == Option100Rel {
			return true
		}
	}
	return false
}

// retransmitProv resends an unacknowledged reliable provisional with a
// doubling interval, bounded by 64*T1 (RFC 3262 Section 3).
func (inv *Invitation) retransmitProv(pend *pendingProv, sts ResponseStatus, opts *RespondOptions) {
	select {
	case <-pend.done:
		return
	default:
	}

	ctx := inv.ctx
	if time.Since(pend.start) >= inv.timings.TimeB() {
		inv.pending.Store(nil)
		pend.finish(false)
		inv.dispatchErr(ctx, errtrace.Wrap(ErrProvisionalNotAcknowledged))
		inv.ua.Reject(ctx, ResponseStatusServerInternalError, nil) //nolint:errcheck
		inv.terminate(ctx)
		return
	}

	if err := inv.ua.Progress(ctx, sts, opts); err != nil {
		inv.log.LogAttrs(ctx, slog.LevelWarn,
			"failed to retransmit reliable provisional response",
			slog.Any("session", inv),
			slog.Any("error", err),
		)
	}
	if tmr := pend.tmr.Load(); tmr != nil {
		tmr.Reset(2 * tmr.Duration())
	}
}

// recvPrack matches an inbound PRACK against the outstanding reliable
// provisional by the RAck triplet.
func (inv *Invitation) recvPrack(ctx context.Context, req *InboundRequest, ua *UAS) bool {
	pend := inv.pending.Load()
	if pend == nil {
		return false
	}
	rack, ok := req.Headers().RAck()
	if !ok {
		return false
	}
	cseq, ok := inv.req.Headers().CSeq()
	if !ok {
		return false
	}
	if rack.RSeqNum != pend.rseq || rack.SeqNum != cseq.SeqNum || !rack.Method.Equal(cseq.Method) {
		return false
	}

	inv.pending.Store(nil)
	pend.finish(true)
	if err := ua.Accept(ctx, ResponseStatusOK, nil); err != nil {
		inv.log.LogAttrs(ctx, slog.LevelWarn,
			"failed to answer PRACK",
			slog.Any("session", inv),
			slog.Any("error", err),
		)
	}
	return true
}

// Accept answers the INVITE with 200. The call suspends until the
// outstanding reliable provisional is acknowledged. The answer is
// produced by the session description handler, or the offer when the
// INVITE was offerless.
func (inv *Invitation) Accept(ctx context.Context, opts *ResponseOptions) error {
	if pend := inv.pending.Load(); pend != nil {
		select {
		case <-pend.done:
		case <-ctx.Done():
			return errtrace.Wrap(ctx.Err())
		case <-inv.ctx.Done():
			return errtrace.Wrap(ErrSessionTerminated)
		}
		if !pend.acked.Load() {
			return errtrace.Wrap(ErrProvisionalNotAcknowledged)
		}
	}

	switch inv.State() {
	case SessionStateEstablishing:
	case SessionStateTerminating, SessionStateTerminated:
		return errtrace.Wrap(ErrSessionTerminated)
	default:
		return errtrace.Wrap(errorutil.NewWrapperError(ErrActionNotAllowed, "session not establishing"))
	}
	if !inv.accepted.CompareAndSwap(false, true) {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrActionNotAllowed, "already accepted"))
	}

	var hdrs Headers
	var body []byte
	if opts != nil {
		hdrs = opts.Headers.Clone()
		body = opts.Body
	}
	if hdrs == nil {
		hdrs = make(Headers)
	}
	if inv.contact != nil {
		hdrs.Set(header.Contact{*inv.contact})
	}

	if body == nil {
		var descr Body
		var err error
		if inv.offerless {
			// the offer goes out in the 2xx, the answer comes back
			// in the ACK (RFC 3261 Section 13.2.1)
			descr, err = inv.setLocalOffer(ctx)
		} else if inv.SignalingState() == SignalingStateHaveRemoteOffer {
			descr, err = inv.setLocalAnswer(ctx)
		}
		if err != nil {
			return errtrace.Wrap(err)
		}
		if !descr.IsZero() {
			body = descr.Content
			if descr.ContentType != "" {
				hdrs.Set(contentTypeHeader(descr.ContentType))
			}
		}
	}

	if err := inv.ua.Accept(ctx, ResponseStatusOK, &RespondOptions{
		ResponseOptions: &ResponseOptions{
			LocalTag: inv.localTag,
			Reason:   opts.reason(),
			Headers:  hdrs,
			Body:     body,
		},
	}); err != nil {
		inv.accepted.Store(false)
		return errtrace.Wrap(err)
	}

	if dlg := inv.Dialog(); dlg != nil {
		dlg.Confirm()
	}
	if tmr := inv.expTmr.Swap(nil); tmr != nil {
		tmr.Stop()
	}
	inv.ackTmr.Store(timeutil.AfterFunc(inv.timings.TimeH(), inv.onAckTimeout))
	return errtrace.Wrap(inv.fsm.FireCtx(ctx, sessEvtEstablished))
}

// Reject answers the INVITE with a final non-2xx status and terminates
// the session.
func (inv *Invitation) Reject(ctx context.Context, sts ResponseStatus, opts *RespondOptions) error {
	if err := inv.ua.Reject(ctx, sts, opts); err != nil {
		return errtrace.Wrap(err)
	}
	inv.terminate(ctx)
	return nil
}

// recvAck completes the three-way handshake. For an offerless INVITE
// the ACK body is the answer.
func (inv *Invitation) recvAck(ctx context.Context, req *InboundRequest) {
	if !inv.ackSeen.CompareAndSwap(false, true) {
		return
	}
	if tmr := inv.ackTmr.Swap(nil); tmr != nil {
		tmr.Stop()
	}
	if inv.offerless {
		if err := inv.setRemoteAnswer(ctx, BodyFromMessage(req.Message())); err != nil {
			inv.dispatchErr(ctx, err)
		}
	}
}

// onAckTimeout gives up waiting for the ACK of the 2xx: the session is
// torn down with a BYE (RFC 6026 Section 7.1).
func (inv *Invitation) onAckTimeout() {
	ctx := inv.ctx
	if inv.ackSeen.Load() || inv.State() != SessionStateEstablished {
		return
	}
	inv.dispatchErr(ctx, errorutil.NewWrapperError(ErrSessionTerminated, "no ACK received"))
	if err := inv.fsm.FireCtx(ctx, sessEvtTerminating); err == nil {
		if dlg := inv.Dialog(); dlg != nil {
			if _, err := inv.core.DialogRequest(ctx, dlg, RequestMethodBye, nil); err != nil {
				inv.log.LogAttrs(ctx, slog.LevelWarn,
					"failed to send BYE for unacknowledged session",
					slog.Any("session", inv),
					slog.Any("error", err),
				)
			}
		}
	}
	inv.terminate(ctx)
}

// onExpire gives up on an unanswered INVITE when its Expires interval
// runs out: the call is answered 487 and the session torn down
// (RFC 3261 Section 13.3.1.1).
func (inv *Invitation) onExpire() {
	ctx := inv.ctx
	if inv.accepted.Load() || inv.State() != SessionStateEstablishing {
		return
	}
	inv.dispatchErr(ctx, errorutil.NewWrapperError(ErrSessionTerminated, "invitation expired"))
	if err := inv.ua.Reject(ctx, ResponseStatusRequestTerminated, nil); err != nil {
		inv.log.LogAttrs(ctx, slog.LevelWarn,
			"failed to reject expired invitation",
			slog.Any("session", inv),
			slog.Any("error", err),
		)
	}
	inv.terminate(ctx)
}

func (inv *Invitation) recvCancel(ctx context.Context, _ *InboundRequest) {
	if !inv.canceled.CompareAndSwap(false, true) {
		return
	}
	inv.terminate(ctx)
}

// failWaits releases anything blocked on the session: the PRACK wait,
// the ACK timer and the expiration timer.
func (inv *Invitation) failWaits() {
	if pend := inv.pending.Swap(nil); pend != nil {
		pend.finish(false)
	}
	if tmr := inv.ackTmr.Swap(nil); tmr != nil {
		tmr.Stop()
	}
	if tmr := inv.expTmr.Swap(nil); tmr != nil {
		tmr.Stop()
	}
}
