package sip

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipcore/internal/errorutil"
	"github.com/ghettovoice/sipcore/internal/types"
	"github.com/ghettovoice/sipcore/log"
)

// UASOptions are the options for a [UAS].
type UASOptions struct {
	// Log is the logger. If nil, the [log.Default] is used.
	Log *slog.Logger
}

func (o *UASOptions) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Default()
	}
	return o.Log
}

// UAS answers one inbound request through its server transaction
// (RFC 3261 Section 8.2). Response methods are gated by the response
// already sent: any attempt after a final response fails with
// [ErrActionNotAllowed].
type UAS struct {
	tx  ServerTransaction
	req *InboundRequest
	log *slog.Logger

	final atomic.Bool

	onCancel types.CallbackManager[CancelHandler]
	onErr    types.CallbackManager[ErrorHandler]
}

// NewUAS wraps the server transaction created for the request.
func NewUAS(tx ServerTransaction, opts *UASOptions) (*UAS, error) {
	if tx == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("invalid transaction"))
	}
	v, ok := tx.(interface{ Request() *InboundRequest })
	if !ok {
		return nil, errtrace.Wrap(NewInvalidArgumentError("transaction without request accessor"))
	}

	ua := &UAS{
		tx:  tx,
		req: v.Request(),
		log: opts.log(),
	}
	tx.OnError(ua.dispatchErr)
	return ua, nil
}

// Request returns the request that created the transaction.
func (ua *UAS) Request() *InboundRequest { return ua.req }

// Respond sends a response with the given status through the transaction.
func (ua *UAS) Respond(ctx context.Context, sts ResponseStatus, opts *RespondOptions) error {
	if ua.final.Load() {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrActionNotAllowed, "final response already sent"))
	}
	if err := ua.tx.Respond(ctx, sts, opts); err != nil {
		return errtrace.Wrap(err)
	}
	if sts.IsFinal() {
		ua.final.Store(true)
	}
	return nil
}

// Trying sends a 100 response.
func (ua *UAS) Trying(ctx context.Context, opts *RespondOptions) error {
	return errtrace.Wrap(ua.Respond(ctx, ResponseStatusTrying, opts))
}

// Progress sends a non-100 provisional response.
func (ua *UAS) Progress(ctx context.Context, sts ResponseStatus, opts *RespondOptions) error {
	if !sts.IsProvisional() || sts == ResponseStatusTrying {
		return errtrace.Wrap(NewInvalidArgumentError(fmt.Sprintf("status %d is not a progress status", uint(sts))))
	}
	return errtrace.Wrap(ua.Respond(ctx, sts, opts))
}

// Accept sends a 2xx response.
func (ua *UAS) Accept(ctx context.Context, sts ResponseStatus, opts *RespondOptions) error {
	if !sts.IsSuccessful() {
		return errtrace.Wrap(NewInvalidArgumentError(fmt.Sprintf("status %d is not a success status", uint(sts))))
	}
	return errtrace.Wrap(ua.Respond(ctx, sts, opts))
}

// Redirect sends a 3xx response.
func (ua *UAS) Redirect(ctx context.Context, sts ResponseStatus, opts *RespondOptions) error {
	if !sts.IsRedirection() {
		return errtrace.Wrap(NewInvalidArgumentError(fmt.Sprintf("status %d is not a redirect status", uint(sts))))
	}
	return errtrace.Wrap(ua.Respond(ctx, sts, opts))
}

// Reject sends a 4xx-6xx response.
func (ua *UAS) Reject(ctx context.Context, sts ResponseStatus, opts *RespondOptions) error {
	if !sts.IsFinal() || sts.IsSuccessful() || sts.IsRedirection() {
		return errtrace.Wrap(NewInvalidArgumentError(fmt.Sprintf("status %d is not a reject status", uint(sts))))
	}
	return errtrace.Wrap(ua.Respond(ctx, sts, opts))
}

// ReceiveCancel resolves an inbound CANCEL against the transaction
// (RFC 3261 Section 9.2): before a final response the request is
// answered with 487, after one the CANCEL has no effect. The delegate
// is notified either way.
func (ua *UAS) ReceiveCancel(ctx context.Context, req *InboundRequest) {
	if ua.final.CompareAndSwap(false, true) {
		if err := ua.tx.Respond(ctx, ResponseStatusRequestTerminated, nil); err != nil {
			ua.log.LogAttrs(ctx, slog.LevelWarn,
				"failed to terminate canceled transaction",
				slog.Any("transaction", ua.tx),
				slog.Any("error", err),
			)
			ua.dispatchErr(ctx, err)
		}
	}

	ua.onCancel.Range(func(fn CancelHandler) {
		fn(ctx, req)
	})
}

func (ua *UAS) dispatchErr(ctx context.Context, err error) {
	ua.onErr.Range(func(fn ErrorHandler) {
		fn(ctx, err)
	})
}

// OnCancel registers a callback invoked when the request is canceled.
func (ua *UAS) OnCancel(fn CancelHandler) (cancel func()) {
	return ua.onCancel.Add(fn)
}

// OnError registers a callback for transaction failures.
func (ua *UAS) OnError(fn ErrorHandler) (cancel func()) {
	return ua.onErr.Add(fn)
}
