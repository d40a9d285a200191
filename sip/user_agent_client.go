package sip

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipcore/header"
	"github.com/ghettovoice/sipcore/internal/errorutil"
	"github.com/ghettovoice/sipcore/internal/types"
	"github.com/ghettovoice/sipcore/log"
)

// UACDelegate receives responses classified by status class.
// Nil handlers are skipped, the generic [UAC.OnResponse] callbacks
// fire regardless.
type UACDelegate struct {
	// OnTrying handles 100 responses.
	OnTrying InboundResponseHandler
	// OnProgress handles 101-199 responses.
	OnProgress InboundResponseHandler
	// OnAccept handles 2xx responses.
	OnAccept InboundResponseHandler
	// OnRedirect handles 3xx responses.
	OnRedirect InboundResponseHandler
	// OnReject handles 4xx-6xx responses.
	OnReject InboundResponseHandler
}

// UACOptions are the options for a [UAC].
type UACOptions struct {
	// Authenticator answers 401/407 challenges with one authorized
	// resend. If nil, challenges are passed through as rejects.
	Authenticator *Authenticator
	// Delegate receives responses classified by status class.
	Delegate *UACDelegate
	// TransactionOptions are passed to the underlying client transactions.
	TransactionOptions *ClientTransactionOptions
	// Log is the logger. If nil, the [log.Default] is used.
	Log *slog.Logger
}

func (o *UACOptions) auth() *Authenticator {
	if o == nil {
		return nil
	}
	return o.Authenticator
}

func (o *UACOptions) delegate() *UACDelegate {
	if o == nil {
		return nil
	}
	return o.Delegate
}

func (o *UACOptions) txOpts() *ClientTransactionOptions {
	if o == nil {
		return nil
	}
	return o.TransactionOptions
}

func (o *UACOptions) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Default()
	}
	return o.Log
}

// UAC drives one out-of-dialog client request through the transaction
// layer (RFC 3261 Section 8.1). It owns the client transaction of the
// request, maps transaction failures to synthetic 408/503 responses and
// resends the request once with credentials on a 401/407 challenge.
type UAC struct {
	txl      *TransactionLayer
	tp       ClientTransport
	auth     *Authenticator
	delegate *UACDelegate
	txOpts   *ClientTransactionOptions
	log      *slog.Logger

	req atomic.Pointer[OutboundRequest]

	provisional atomic.Bool
	finalRes    atomic.Pointer[InboundResponse]
	canceled    atomic.Bool
	cancPending atomic.Bool
	cancOpts    atomic.Pointer[SendRequestOptions]

	onRes types.CallbackManager[InboundResponseHandler]
	onErr types.CallbackManager[ErrorHandler]
}

// NewUAC creates a UAC and immediately sends the request through a new
// client transaction.
func NewUAC(
	ctx context.Context,
	txl *TransactionLayer,
	tp ClientTransport,
	req *OutboundRequest,
	opts *UACOptions,
) (*UAC, error) {
	if txl == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("invalid transaction layer"))
	}
	if tp == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("invalid transport"))
	}
	if err := req.Validate(); err != nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError(err))
	}

	ua := &UAC{
		txl:      txl,
		tp:       tp,
		auth:     opts.auth(),
		delegate: opts.delegate(),
		txOpts:   opts.txOpts(),
		log:      opts.log(),
	}
	ua.req.Store(req)
	if err := ua.send(ctx, req); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return ua, nil
}

func (ua *UAC) send(ctx context.Context, req *OutboundRequest) error {
	tx, err := ua.txl.NewClientTransaction(ctx, req, ua.tp, ua.txOpts)
	if err != nil {
		return errtrace.Wrap(err)
	}
	tx.OnResponse(ua.recvRes)
	tx.OnError(ua.recvErr)
	return nil
}

// Request returns the request in its current form, including the
// credentials added by the authorized resend.
func (ua *UAC) Request() *OutboundRequest { return ua.req.Load() }

// FinalResponse returns the final response if one was received,
// including the synthetic 408/503 forms.
func (ua *UAC) FinalResponse() *InboundResponse { return ua.finalRes.Load() }

// Cancel cancels a pending INVITE (RFC 3261 Section 9.1).
// The CANCEL goes out after a provisional response proves some server
// got the INVITE; calling before that arms it. Canceling after a final
// response fails with [ErrActionNotAllowed].
func (ua *UAC) Cancel(ctx context.Context, opts *SendRequestOptions) error {
	req := ua.req.Load()
	if !req.Method().Equal(RequestMethodInvite) {
		return errtrace.Wrap(NewInvalidArgumentError(ErrMethodNotAllowed))
	}
	if ua.finalRes.Load() != nil {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrActionNotAllowed, "final response already received"))
	}
	if !ua.canceled.CompareAndSwap(false, true) {
		return nil
	}

	if !ua.provisional.Load() {
		ua.cancOpts.Store(opts)
		ua.cancPending.Store(true)
		ua.log.LogAttrs(ctx, slog.LevelDebug,
			"cancel armed until a provisional response",
			slog.Any("request", req),
		)
		return nil
	}
	return errtrace.Wrap(ua.sendCancel(ctx, opts))
}

func (ua *UAC) sendCancel(ctx context.Context, opts *SendRequestOptions) error {
	invite := ua.req.Load()
	creq := NewOutboundRequest(newCancelMessage(invite.Message()))
	creq.SetLocalAddr(invite.LocalAddr())
	creq.SetRemoteAddr(invite.RemoteAddr())

	_, err := ua.txl.NewClientTransaction(ctx, creq, ua.tp, &ClientTransactionOptions{
		SendOptions: opts,
		Log:         ua.log,
	})
	return errtrace.Wrap(err)
}

// newCancelMessage builds a CANCEL for the INVITE per RFC 3261
// Section 9.1: same Request-URI, Call-ID, From, To, Route linkage and
// the single topmost Via with the INVITE branch.
func newCancelMessage(invite *Request) *Request {
	canc := &Request{
		Proto:   invite.Proto,
		Method:  RequestMethodCancel,
		URI:     invite.URI.Clone(),
		Headers: make(Headers, 6).CopyFrom(invite.Headers, "From", "To", "Call-ID", "Route"),
	}
	if via, ok := invite.Headers.FirstVia(); ok {
		canc.Headers.Set(header.Via{via.Clone()})
	}
	if cseq, ok := invite.Headers.CSeq(); ok {
		canc.Headers.Set(&header.CSeq{SeqNum: cseq.SeqNum, Method: RequestMethodCancel})
	}
	canc.Headers.Set(header.MaxForwards(70))
	return canc
}

func (ua *UAC) recvRes(ctx context.Context, res *InboundResponse) {
	sts := res.Status()
	if (sts == ResponseStatusUnauthorized || sts == ResponseStatusProxyAuthenticationRequired) &&
		ua.tryAuthorize(ctx, res) {
		return
	}

	if sts.IsProvisional() {
		ua.provisional.Store(true)
		if ua.cancPending.CompareAndSwap(true, false) {
			if err := ua.sendCancel(ctx, ua.cancOpts.Load()); err != nil {
				ua.dispatchErr(ctx, err)
			}
		}
	} else {
		ua.finalRes.CompareAndSwap(nil, res)
	}
	ua.dispatchRes(ctx, res)
}

// tryAuthorize reports whether the challenge was answered with a resend.
func (ua *UAC) tryAuthorize(ctx context.Context, res *InboundResponse) bool {
	if ua.auth == nil || ua.canceled.Load() {
		return false
	}
	cur := ua.req.Load()
	if m := cur.Method(); m.Equal(RequestMethodAck) || m.Equal(RequestMethodCancel) {
		return false
	}

	msg := cur.Message().Clone().(*Request) //nolint:forcetypeassert
	if err := ua.auth.AuthorizeRequest(msg, res.Message()); err != nil {
		ua.log.LogAttrs(ctx, slog.LevelDebug,
			"challenge not answered, passing response through",
			slog.Any("response", res),
			slog.Any("error", err),
		)
		if !errors.Is(err, ErrAuthFailed) && !errors.Is(err, ErrUnsupportedChallenge) {
			ua.dispatchErr(ctx, err)
		}
		return false
	}

	req := NewOutboundRequest(msg)
	req.SetLocalAddr(cur.LocalAddr())
	req.SetRemoteAddr(cur.RemoteAddr())
	if err := ua.send(ctx, req); err != nil {
		ua.dispatchErr(ctx, err)
		return false
	}
	ua.req.Store(req)

	ua.log.LogAttrs(ctx, slog.LevelDebug,
		"request resent with credentials",
		slog.Any("request", req),
	)
	return true
}

// recvErr maps transaction failures to the synthetic final responses
// of RFC 3261 Section 8.1.3.1: timeout to 408, transport error to 503.
func (ua *UAC) recvErr(ctx context.Context, err error) {
	ua.dispatchErr(ctx, err)

	sts := ResponseStatusServiceUnavailable
	if errors.Is(err, ErrTransactionTimedOut) {
		sts = ResponseStatusRequestTimeout
	}

	req := ua.req.Load()
	msg, rerr := req.Message().NewResponse(sts, &ResponseOptions{
		Headers: make(Headers).Set(&header.Any{Name: "Warning", Value: "399 sipcore " + err.Error()}),
	})
	if rerr != nil {
		ua.log.LogAttrs(ctx, slog.LevelError,
			"failed to build synthetic response",
			slog.Any("request", req),
			slog.Any("error", rerr),
		)
		return
	}
	res := NewInboundResponse(msg, req.LocalAddr(), req.RemoteAddr())
	if !ua.finalRes.CompareAndSwap(nil, res) {
		return
	}
	ua.dispatchRes(ctx, res)
}

func (ua *UAC) dispatchRes(ctx context.Context, res *InboundResponse) {
	if d := ua.delegate; d != nil {
		var fn InboundResponseHandler
		sts := res.Status()
		switch {
		case sts == ResponseStatusTrying:
			fn = d.OnTrying
		case sts.IsProvisional():
			fn = d.OnProgress
		case sts.IsSuccessful():
			fn = d.OnAccept
		case sts.IsRedirection():
			fn = d.OnRedirect
		default:
			fn = d.OnReject
		}
		if fn != nil {
			fn(ctx, res)
		}
	}

	ua.onRes.Range(func(fn InboundResponseHandler) {
		fn(ctx, res)
	})
}

func (ua *UAC) dispatchErr(ctx context.Context, err error) {
	ua.onErr.Range(func(fn ErrorHandler) {
		fn(ctx, err)
	})
}

// OnResponse registers a callback for every response the UAC receives,
// including the synthetic 408/503 forms.
func (ua *UAC) OnResponse(fn InboundResponseHandler) (cancel func()) {
	return ua.onRes.Add(fn)
}

// OnError registers a callback for transaction failures.
func (ua *UAC) OnError(fn ErrorHandler) (cancel func()) {
	return ua.onErr.Add(fn)
}
