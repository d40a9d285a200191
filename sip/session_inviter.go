package sip

import (
	"context"
	"log/slog"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipcore/header"
	"github.com/ghettovoice/sipcore/internal/errorutil"
	"github.com/ghettovoice/sipcore/internal/timeutil"
)

// DefaultNoAnswerTimeout bounds the whole INVITE attempt.
const DefaultNoAnswerTimeout = time.Minute

// InviterOptions are the options of the caller side of an INVITE session.
type InviterOptions struct {
	SessionOptions

	// From is the local party URI. Required.
	From URI
	// Contact is included in the INVITE when set.
	Contact *header.ContactAddr
	// Headers are appended to the generated INVITE headers.
	Headers Headers
	// Offerless sends the INVITE without a local offer: the remote
	// party offers in the 2xx and the answer rides in the ACK.
	Offerless bool
	// ForkTolerant keeps extra 2xx forked legs alive long enough to
	// answer them with ACK and BYE instead of treating them as errors.
	ForkTolerant bool
	// NoAnswerTimeout bounds the INVITE attempt,
	// [DefaultNoAnswerTimeout] if zero.
	NoAnswerTimeout time.Duration
	// Expiry bounds the acceptance of the call from construction.
	// Zero means no bound.
	Expiry time.Duration
	// LocalAddr fills the Via sent-by and the message source address.
	LocalAddr netip.AddrPort
	// RemoteAddr sets the message target address.
	RemoteAddr netip.AddrPort
	// SendOptions are passed to the transport.
	SendOptions *SendRequestOptions
}

func (o *InviterOptions) noAnswerTimeout() time.Duration {
	if o == nil || o.NoAnswerTimeout <= 0 {
		return DefaultNoAnswerTimeout
	}
	return o.NoAnswerTimeout
}

// Inviter is the caller side of an INVITE session (RFC 3261 Section 13.2).
type Inviter struct {
	*session

	target       URI
	from         URI
	contact      *header.ContactAddr
	hdrs         Headers
	offerless    bool
	forkTolerant bool
	noAnswer     time.Duration
	locAddr      netip.AddrPort
	rmtAddr      netip.AddrPort
	sendOpts     *SendRequestOptions

	ua       atomic.Pointer[UAC]
	canceled atomic.Bool

	mu        sync.Mutex
	earlyDlgs map[string]*Dialog // keyed by remote tag
	lastRSeq  map[string]uint

	noAnswerTmr atomic.Pointer[timeutil.SerializableTimer]
	expiryTmr   atomic.Pointer[timeutil.SerializableTimer]
}

// NewInviter creates the caller side of an INVITE session targeting the
// given URI. The INVITE is not sent until [Inviter.Invite].
func NewInviter(core *UserAgentCore, target URI, opts *InviterOptions) (*Inviter, error) {
	if core == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("nil core"))
	}
	if target == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("invalid target"))
	}
	if opts == nil || opts.From == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("missing local party URI"))
	}
	if opts.EarlyMedia && opts.ForkTolerant {
		return nil, errtrace.Wrap(ErrEarlyMediaForking)
	}

	inv := &Inviter{
		target:       target,
		from:         opts.From,
		contact:      opts.Contact,
		hdrs:         opts.Headers,
		offerless:    opts.Offerless,
		forkTolerant: opts.ForkTolerant,
		noAnswer:     opts.noAnswerTimeout(),
		locAddr:      opts.LocalAddr,
		rmtAddr:      opts.RemoteAddr,
		sendOpts:     opts.SendOptions,
		earlyDlgs:    make(map[string]*Dialog),
		lastRSeq:     make(map[string]uint),
	}
	inv.session = newSession(core, inv, &opts.SessionOptions)
	inv.onStateChanged.Add(func(_ context.Context, _, to SessionState) {
		if to == SessionStateTerminated {
			inv.stopTimers()
		}
	})

	if opts.Expiry > 0 {
		inv.expiryTmr.Store(timeutil.AfterFunc(opts.Expiry, inv.onExpiry))
	}
	return inv, nil
}

// Request returns the sent INVITE, nil before [Inviter.Invite].
func (inv *Inviter) Request() *OutboundRequest {
	if ua := inv.ua.Load(); ua != nil {
		return ua.Request()
	}
	return nil
}

// Invite sends the INVITE. The local offer is produced by the session
// description handler unless the session is offerless.
func (inv *Inviter) Invite(ctx context.Context) error {
	if err := inv.fsm.FireCtx(ctx, sessEvtEstablishing); err != nil {
		return errtrace.Wrap(err)
	}

	var offer Body
	if !inv.offerless {
		var err error
		if offer, err = inv.setLocalOffer(ctx); err != nil {
			inv.terminate(ctx)
			return errtrace.Wrap(err)
		}
	}

	hdrs := inv.hdrs.Clone()
	if hdrs == nil {
		hdrs = make(Headers)
	}
	if _, ok := hdrs.Supported(); !ok {
		hdrs.Set(header.Supported{Option100Rel})
	}
	if !offer.IsZero() && offer.ContentType != "" {
		hdrs.Set(contentTypeHeader(offer.ContentType))
	}

	ua, err := inv.core.Invite(ctx, inv.target, &RequestOptions{
		From:       inv.from,
		Contact:    inv.contact,
		Headers:    hdrs,
		Body:       offer.Content,
		LocalAddr:  inv.locAddr,
		RemoteAddr: inv.rmtAddr,
		Delegate: &UACDelegate{
			OnProgress: inv.recvProgress,
			OnAccept:   inv.recvAccept,
			OnRedirect: inv.recvReject,
			OnReject:   inv.recvReject,
		},
		SendOptions: inv.sendOpts,
	})
	if err != nil {
		inv.terminate(ctx)
		return errtrace.Wrap(err)
	}
	inv.ua.Store(ua)
	ua.OnError(func(ctx context.Context, err error) {
		inv.dispatchErr(ctx, err)
	})

	inv.noAnswerTmr.Store(timeutil.AfterFunc(inv.noAnswerTimeout(), inv.onNoAnswer))
	return nil
}

func (inv *Inviter) noAnswerTimeout() time.Duration {
	if tmr := inv.expiryTmr.Load(); tmr != nil {
		if left := tmr.Left(); left > 0 && left < inv.noAnswer {
			return left
		}
	}
	return inv.noAnswer
}

// Cancel abandons an in-progress INVITE (RFC 3261 Section 15.1.1).
// The session converges to the terminated state via the 487 answer.
func (inv *Inviter) Cancel(ctx context.Context, opts *SendRequestOptions) error {
	if inv.State() != SessionStateEstablishing {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrActionNotAllowed, "no INVITE in progress"))
	}
	if err := inv.fsm.FireCtx(ctx, sessEvtTerminating); err != nil {
		return errtrace.Wrap(err)
	}
	inv.canceled.Store(true)

	ua := inv.ua.Load()
	if ua == nil {
		inv.terminate(ctx)
		return nil
	}
	return errtrace.Wrap(ua.Cancel(ctx, opts))
}

func (inv *Inviter) onNoAnswer() {
	ctx := inv.ctx
	if inv.State() != SessionStateEstablishing {
		return
	}
	inv.dispatchErr(ctx, errorutil.NewWrapperError(ErrSessionTerminated, "no answer"))
	if err := inv.Cancel(ctx, nil); err != nil {
		inv.log.LogAttrs(ctx, slog.LevelWarn,
			"failed to cancel unanswered call",
			slog.Any("session", inv),
			slog.Any("error", err),
		)
	}
}

func (inv *Inviter) onExpiry() {
	inv.onNoAnswer()
}

func (inv *Inviter) stopTimers() {
	if tmr := inv.noAnswerTmr.Swap(nil); tmr != nil {
		tmr.Stop()
	}
	if tmr := inv.expiryTmr.Swap(nil); tmr != nil {
		tmr.Stop()
	}
}

// recvProgress handles provisional responses: early dialogs form per
// remote tag, reliable provisionals are acknowledged with PRACK
// (RFC 3262 Section 4).
func (inv *Inviter) recvProgress(ctx context.Context, res *InboundResponse) {
	hdrs := res.Headers()
	to, ok := hdrs.To()
	if !ok {
		return
	}
	rmtTag, _ := to.Tag()
	if rmtTag == "" {
		return
	}

	dlg, fresh := inv.earlyDialog(res, rmtTag)
	if dlg == nil {
		return
	}
	if !fresh {
		dlg.RecomputeRouteSet(res) //nolint:errcheck
	}

	if !isReliableProvisional(hdrs) {
		return
	}
	rseq, ok := hdrs.RSeq()
	if !ok {
		return
	}
	inv.mu.Lock()
	last := inv.lastRSeq[rmtTag]
	ordered := last == 0 || uint(rseq) == last+1
	if ordered {
		inv.lastRSeq[rmtTag] = uint(rseq)
	}
	inv.mu.Unlock()
	if !ordered {
		return
	}

	if inv.earlyMedia {
		if err := inv.setRemoteAnswer(ctx, BodyFromMessage(res.Message())); err != nil {
			inv.dispatchErr(ctx, err)
		}
	}

	if err := inv.sendPrack(ctx, dlg, res, rseq); err != nil {
		inv.dispatchErr(ctx, err)
	}
}

func (inv *Inviter) earlyDialog(res *InboundResponse, rmtTag string) (dlg *Dialog, fresh bool) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if dlg = inv.earlyDlgs[rmtTag]; dlg != nil {
		return dlg, false
	}

	req := inv.Request()
	if req == nil {
		return nil, false
	}
	dlg, err := NewDialogUAC(req, res)
	if err != nil {
		inv.log.LogAttrs(inv.ctx, slog.LevelWarn,
			"failed to build early dialog",
			slog.Any("session", inv),
			slog.Any("error", err),
		)
		return nil, false
	}
	inv.earlyDlgs[rmtTag] = dlg
	return dlg, true
}

func (inv *Inviter) sendPrack(ctx context.Context, dlg *Dialog, res *InboundResponse, rseq header.RSeq) error {
	cseq, ok := res.Headers().CSeq()
	if !ok {
		return errtrace.Wrap(newMissHdrErr("CSeq"))
	}
	_, err := inv.core.DialogRequest(ctx, dlg, RequestMethodPrack, &DialogSendOptions{
		Headers: make(Headers).Set(&header.RAck{
			RSeqNum: uint(rseq),
			SeqNum:  cseq.SeqNum,
			Method:  cseq.Method,
		}),
		LocalAddr: res.LocalAddr(),
	})
	return errtrace.Wrap(err)
}

// recvAccept handles 2xx responses. The first one establishes the
// session, later ones are forked or retransmitted legs.
func (inv *Inviter) recvAccept(ctx context.Context, res *InboundResponse) {
	inv.stopTimers()

	if inv.canceled.Load() {
		// the race lost: the far end answered before the CANCEL
		// arrived, hang up that leg right away. No 487 is coming on
		// this branch, so the session must settle here.
		inv.ackAndBye(ctx, res)
		inv.terminate(ctx)
		return
	}

	to, _ := res.Headers().To()
	var rmtTag string
	if to != nil {
		rmtTag, _ = to.Tag()
	}

	switch inv.State() {
	case SessionStateEstablishing:
	case SessionStateEstablished:
		dlg := inv.Dialog()
		if dlg != nil && dlg.ID().RemoteTag == rmtTag {
			// retransmitted 2xx, absorb with another ACK
			if err := inv.core.SendAck(ctx, dlg, res, nil); err != nil {
				inv.dispatchErr(ctx, err)
			}
			return
		}
		// forked leg answered after the session is up
		if !inv.forkTolerant {
			inv.dispatchErr(ctx, errorutil.NewWrapperError(ErrSessionTerminated, "unexpected forked leg"))
		}
		inv.ackAndBye(ctx, res)
		return
	default:
		inv.ackAndBye(ctx, res)
		return
	}

	inv.mu.Lock()
	dlg := inv.earlyDlgs[rmtTag]
	inv.mu.Unlock()
	if dlg != nil {
		dlg.RecomputeRouteSet(res) //nolint:errcheck
	} else {
		req := inv.Request()
		if req == nil {
			return
		}
		var err error
		if dlg, err = NewDialogUAC(req, res); err != nil {
			inv.dispatchErr(ctx, err)
			return
		}
	}
	dlg.Confirm()
	if err := inv.adoptDialog(dlg); err != nil {
		inv.dispatchErr(ctx, err)
		inv.ackAndBye(ctx, res)
		inv.terminate(ctx)
		return
	}

	body := BodyFromMessage(res.Message())
	var ackOpts *DialogSendOptions
	if inv.offerless {
		// pattern two of RFC 3261 Section 13.2.1: offer in the 2xx,
		// answer in the ACK
		if err := inv.setRemoteOffer(ctx, body); err != nil {
			inv.dispatchErr(ctx, err)
			inv.ackAndBye(ctx, res)
			inv.terminate(ctx)
			return
		}
		answer, err := inv.setLocalAnswer(ctx)
		if err != nil {
			inv.dispatchErr(ctx, err)
			inv.ackAndBye(ctx, res)
			inv.terminate(ctx)
			return
		}
		ackOpts = &DialogSendOptions{
			Headers: bodyHeaders(answer),
			Body:    answer.Content,
		}
	} else if err := inv.setRemoteAnswer(ctx, body); err != nil {
		inv.dispatchErr(ctx, err)
		inv.ackAndBye(ctx, res)
		inv.terminate(ctx)
		return
	}

	if err := inv.core.SendAck(ctx, dlg, res, ackOpts); err != nil {
		inv.dispatchErr(ctx, err)
	}
	if err := inv.fsm.FireCtx(ctx, sessEvtEstablished); err != nil {
		inv.log.LogAttrs(ctx, slog.LevelWarn,
			"failed to establish session",
			slog.Any("session", inv),
			slog.Any("error", err),
		)
	}
}

func (inv *Inviter) recvReject(ctx context.Context, _ *InboundResponse) {
	inv.terminate(ctx)
}

// ackAndBye answers a 2xx of an unwanted leg with ACK followed by BYE
// inside the dialog of that response. The session state is left alone.
func (inv *Inviter) ackAndBye(ctx context.Context, res *InboundResponse) {
	req := inv.Request()
	if req == nil {
		return
	}
	dlg, err := NewDialogUAC(req, res)
	if err != nil {
		inv.dispatchErr(ctx, err)
		return
	}
	dlg.Confirm()
	if err := inv.core.SendAck(ctx, dlg, res, nil); err != nil {
		inv.dispatchErr(ctx, err)
		return
	}
	if _, err := inv.core.DialogRequest(ctx, dlg, RequestMethodBye, &DialogSendOptions{
		LocalAddr: res.LocalAddr(),
	}); err != nil {
		inv.dispatchErr(ctx, err)
	}
}

func isReliableProvisional(hdrs Headers) bool {
	req, ok := hdrs.Require()
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
