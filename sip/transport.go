package sip

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"math"
	"net/netip"
	"strconv"
	"time"

	"github.com/ghettovoice/sipcore/header"
	"github.com/ghettovoice/sipcore/internal/types"
	"github.com/ghettovoice/sipcore/internal/util"
	"github.com/ghettovoice/sipcore/log"
)

// Transport configuration variables.
var (
	// Maximum Transport Unit.
	// It is used to limit the size of the message that can be sent over the unreliable transport.
	MTU uint = 1500
	// Maximum network message size.
	// It is used to limit read buffer size for the streamed transport.
	MaxMsgSize uint = math.MaxUint16
)

// Default timeout for the message sending process.
const msgSendTimeout = time.Minute

// TransportProto is a transport protocol.
type TransportProto = types.TransportProto

// ClientTransport represents a client transport.
// It is used to send requests and receive responses.
type ClientTransport interface {
	// SendRequest sends a request to the remote address.
	SendRequest(ctx context.Context, req *OutboundRequest, opts *SendRequestOptions) error
	// OnResponse registers a response callback.
	OnResponse(fn TransportResponseHandler) (cancel func())
}

// SendRequestOptions are options for sending a request.
type SendRequestOptions struct {
	// Timeout is the timeout for the request sending process.
	// If zero, the default timeout 1m is used.
	Timeout time.Duration `json:"timeout,omitempty"`
	// RenderCompact is the flag that indicates whether the message should be rendered in compact form.
	// See [RenderOptions] for more details.
	RenderCompact bool `json:"render_compact,omitempty"`
	// TODO: options for multicast
}

func (o *SendRequestOptions) timeout() time.Duration {
	if o == nil || o.Timeout == 0 {
		return msgSendTimeout
	}
	return o.Timeout
}

func (o *SendRequestOptions) rendOpts() *RenderOptions {
	if o == nil {
		return nil
	}
	return &RenderOptions{
		Compact: o.RenderCompact,
	}
}

func cloneSendReqOpts(opts *SendRequestOptions) *SendRequestOptions {
	if opts == nil {
		return nil
	}
	newOpts := *opts
	return &newOpts
}

type TransportResponseHandler = func(ctx context.Context, tp ClientTransport, res *InboundResponse)

const clnTranspCtxKey types.ContextKey = "client_transport"

// ClientTransportFromContext returns the [ClientTransport] from the given context.
func ClientTransportFromContext(ctx context.Context) (ClientTransport, bool) {
	tp, ok := ctx.Value(clnTranspCtxKey).(ClientTransport)
	return tp, ok
}

// ServerTransport represents a server transport.
// It is used to receive requests and send responses.
type ServerTransport interface {
	// SendResponse sends a response to a remote address resolved with steps
	// defined in RFC 3261 Section 18.2.2. and RFC 3263 Section 5.
	SendResponse(ctx context.Context, res *OutboundResponse, opts *SendResponseOptions) error
	// OnRequest registers a request callback.
	OnRequest(fn TransportRequestHandler) (cancel func())
}

// SendResponseOptions are options for sending a response.
type SendResponseOptions struct {
	// Timeout is the timeout for the response sending process.
	// If zero, the default timeout 1m is used.
	Timeout time.Duration `json:"timeout,omitempty"`
	// RenderCompact is the flag that indicates whether the message should be rendered in compact form.
	// See [RenderOptions] for more details.
	RenderCompact bool `json:"render_compact,omitempty"`
}

func (o *SendResponseOptions) timeout() time.Duration {
	if o == nil || o.Timeout == 0 {
		return msgSendTimeout
	}
	return o.Timeout
}

func (o *SendResponseOptions) rendOpts() *RenderOptions {
	if o == nil {
		return nil
	}
	return &RenderOptions{
		Compact: o.RenderCompact,
	}
}

func cloneSendResOpts(opts *SendResponseOptions) *SendResponseOptions {
	if opts == nil {
		return nil
	}
	newOpts := *opts
	return &newOpts
}

type TransportRequestHandler = func(ctx context.Context, tp ServerTransport, req *InboundRequest)

const srvTranspCtxKey types.ContextKey = "server_transport"

// ServerTransportFromContext returns the [ServerTransport] from the given context.
func ServerTransportFromContext(ctx context.Context) (ServerTransport, bool) {
	tp, ok := ctx.Value(srvTranspCtxKey).(ServerTransport)
	return tp, ok
}

const transpCtxKey types.ContextKey = "transport"

// ContextWithTransport returns a new context carrying the transport.
func ContextWithTransport(ctx context.Context, tp any) context.Context {
	return context.WithValue(ctx, transpCtxKey, tp)
}

// TransportFromContext returns the transport bound to the context
// with [ContextWithTransport].
func TransportFromContext(ctx context.Context) (any, bool) {
	tp := ctx.Value(transpCtxKey)
	return tp, tp != nil
}

// Transport represents a combination of client and server transports.
type Transport interface {
	ClientTransport
	ServerTransport
	// Serve starts the transport read loop and blocks until the transport is closed.
	Serve() error
	// Close closes the transport.
	Close() error
}

// transportAs resolves the capability interface T on the transport,
// unwrapping decorators that expose the underlying transport via
// an Unwrap method.
func transportAs[T any](tp any) (T, bool) {
	for {
		if v, ok := tp.(T); ok {
			return v, true
		}
		w, ok := tp.(interface{ Unwrap() any })
		if !ok {
			var zero T
			return zero, false
		}
		tp = w.Unwrap()
	}
}

func GetTransportProto(tp any) (TransportProto, bool) {
	if v, ok := transportAs[interface{ Proto() TransportProto }](tp); ok {
		return v.Proto(), true
	}
	return "", false
}

func GetTransportNetwork(tp any) (string, bool) {
	if v, ok := transportAs[interface{ Network() string }](tp); ok {
		return v.Network(), true
	}
	return "", false
}

func GetTransportLocalAddr(tp any) (netip.AddrPort, bool) {
	if v, ok := transportAs[interface{ LocalAddr() netip.AddrPort }](tp); ok {
		return v.LocalAddr(), true
	}
	return zeroAddrPort, false
}

func IsReliableTransport(tp any) bool {
	if v, ok := transportAs[interface{ Reliable() bool }](tp); ok {
		return v.Reliable()
	}
	return false
}

func IsSecuredTransport(tp any) bool {
	if v, ok := transportAs[interface{ Secured() bool }](tp); ok {
		return v.Secured()
	}
	return false
}

func IsStreamedTransport(tp any) bool {
	if v, ok := transportAs[interface{ Streamed() bool }](tp); ok {
		return v.Streamed()
	}
	return false
}

func GetTransportDefaultPort(tp any) (uint16, bool) {
	if v, ok := transportAs[interface{ DefaultPort() uint16 }](tp); ok {
		return v.DefaultPort(), true
	}
	return 0, false
}

func respondStateless(ctx context.Context, tp ServerTransport, req *InboundRequest, sts ResponseStatus) {
	logger := log.LoggerFromValues(ctx, tp)
	if tp == nil {
		logger.LogAttrs(ctx, slog.LevelError, "silently discard inbound request due to missing transport",
			slog.Any("request", req),
		)
		return
	}
	if req.Method().Equal(RequestMethodAck) {
		logger.LogAttrs(ctx, slog.LevelDebug, "silently discard inbound ACK request", slog.Any("request", req))
		return
	}

	var hdrs Headers
	if sts == ResponseStatusServerInternalError || sts == ResponseStatusServiceUnavailable {
		hdrs = make(Headers).Append(&header.RetryAfter{Delay: time.Minute})
	}
	res, err := req.NewResponse(sts, &ResponseOptions{
		Headers:  hdrs,
		LocalTag: stableStatelessToTag(req),
	})
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to build response on inbound request",
			slog.Any("request", req),
			slog.Any("error", err),
		)
		return
	}

	if err := tp.SendResponse(ctx, res, nil); err != nil {
		if errors.Is(err, ErrInvalidMessage) {
			logger.LogAttrs(ctx, slog.LevelDebug, "silently discard inbound request due to invalid response",
				slog.Any("request", req),
				slog.Any("response", res),
				slog.Any("error", err),
			)
			return
		}

		logger.LogAttrs(ctx, slog.LevelError, "failed to respond on inbound request",
			slog.Any("request", req),
			slog.Any("response", res),
			slog.Any("error", err),
		)
		return
	}
}

func stableStatelessToTag(req *InboundRequest) string {
	if req == nil {
		return ""
	}

	hdrs := req.Headers()
	if hdrs == nil {
		return ""
	}

	var reqURI string
	if uri := req.URI(); uri != nil {
		reqURI = util.LCase(uri.Render(nil))
	}

	var topVia string
	if via, ok := hdrs.FirstVia(); ok && via != nil {
		topVia = util.LCase(via.String())
	}

	callID, _ := hdrs.CallID()

	var fromTag string
	if from, ok := hdrs.From(); ok && from != nil {
		if t, ok := from.Tag(); ok {
			fromTag = t
		}
	}

	var cseqNum uint
	var cseqMethod RequestMethod
	if cseq, ok := hdrs.CSeq(); ok && cseq != nil {
		cseqNum = cseq.SeqNum
		cseqMethod = util.UCase(cseq.Method)
	}

	key := make([]byte, 0, 96)
	key = append(key, "uri="...)
	key = append(key, reqURI...)
	key = append(key, "|via="...)
	key = append(key, topVia...)
	key = append(key, "|callid="...)
	key = append(key, callID...)
	key = append(key, "|fromtag="...)
	key = append(key, fromTag...)
	key = append(key, "|cseq="...)
	key = strconv.AppendUint(key, uint64(cseqNum), 10)
	key = append(key, "|cseqm="...)
	key = append(key, cseqMethod...)

	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:8])
}
