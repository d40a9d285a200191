package sip

import (
	"context"

	"github.com/ghettovoice/sipcore/log"
)

// RequestReceiver consumes inbound requests.
type RequestReceiver interface {
	RecvRequest(ctx context.Context, req *InboundRequest) error
}

type RequestReceiverFunc func(ctx context.Context, req *InboundRequest) error

func (fn RequestReceiverFunc) RecvRequest(ctx context.Context, req *InboundRequest) error {
	return fn(ctx, req) //errtrace:skip
}

// ResponseReceiver consumes inbound responses.
type ResponseReceiver interface {
	RecvResponse(ctx context.Context, res *InboundResponse) error
}

type ResponseReceiverFunc func(ctx context.Context, res *InboundResponse) error

func (fn ResponseReceiverFunc) RecvResponse(ctx context.Context, res *InboundResponse) error {
	return fn(ctx, res) //errtrace:skip
}

// RequestSender sends outbound requests.
type RequestSender interface {
	SendRequest(ctx context.Context, req *OutboundRequest, opts *SendRequestOptions) error
}

type RequestSenderFunc func(ctx context.Context, req *OutboundRequest, opts *SendRequestOptions) error

func (fn RequestSenderFunc) SendRequest(ctx context.Context, req *OutboundRequest, opts *SendRequestOptions) error {
	return fn(ctx, req, opts) //errtrace:skip
}

// ResponseSender sends outbound responses.
type ResponseSender interface {
	SendResponse(ctx context.Context, res *OutboundResponse, opts *SendResponseOptions) error
}

type ResponseSenderFunc func(ctx context.Context, res *OutboundResponse, opts *SendResponseOptions) error

func (fn ResponseSenderFunc) SendResponse(ctx context.Context, res *OutboundResponse, opts *SendResponseOptions) error {
	return fn(ctx, res, opts) //errtrace:skip
}

// InboundRequestInterceptor intercepts inbound requests before they reach the receiver.
type InboundRequestInterceptor interface {
	InterceptInboundRequest(ctx context.Context, req *InboundRequest, next RequestReceiver) error
}

type InboundRequestInterceptorFunc func(
	ctx context.Context,
	req *InboundRequest,
	next RequestReceiver,
) error

func (fn InboundRequestInterceptorFunc) InterceptInboundRequest(
	ctx context.Context,
	req *InboundRequest,
	next RequestReceiver,
) error {
	return fn(ctx, req, next) //errtrace:skip
}

// InboundResponseInterceptor intercepts inbound responses before they reach the receiver.
type InboundResponseInterceptor interface {
	InterceptInboundResponse(ctx context.Context, res *InboundResponse, next ResponseReceiver) error
}

type InboundResponseInterceptorFunc func(
	ctx context.Context,
	res *InboundResponse,
	next ResponseReceiver,
) error

func (fn InboundResponseInterceptorFunc) InterceptInboundResponse(
	ctx context.Context,
	res *InboundResponse,
	next ResponseReceiver,
) error {
	return fn(ctx, res, next) //errtrace:skip
}

// OutboundRequestInterceptor intercepts outbound requests before they are sent.
type OutboundRequestInterceptor interface {
	InterceptOutboundRequest(
		ctx context.Context,
		req *OutboundRequest,
		opts *SendRequestOptions,
		next RequestSender,
	) error
}

type OutboundRequestInterceptorFunc func(
	ctx context.Context,
	req *OutboundRequest,
	opts *SendRequestOptions,
	next RequestSender,
) error

func (fn OutboundRequestInterceptorFunc) InterceptOutboundRequest(
	ctx context.Context,
	req *OutboundRequest,
	opts *SendRequestOptions,
	next RequestSender,
) error {
	return fn(ctx, req, opts, next) //errtrace:skip
}

// OutboundResponseInterceptor intercepts outbound responses before they are sent.
type OutboundResponseInterceptor interface {
	InterceptOutboundResponse(
		ctx context.Context,
		res *OutboundResponse,
		opts *SendResponseOptions,
		next ResponseSender,
	) error
}

type OutboundResponseInterceptorFunc func(
	ctx context.Context,
	res *OutboundResponse,
	opts *SendResponseOptions,
	next ResponseSender,
) error

func (fn OutboundResponseInterceptorFunc) InterceptOutboundResponse(
	ctx context.Context,
	res *OutboundResponse,
	opts *SendResponseOptions,
	next ResponseSender,
) error {
	return fn(ctx, res, opts, next) //errtrace:skip
}

// MessageInterceptor provides optional inbound/outbound interceptors.
type MessageInterceptor interface {
	InboundRequestInterceptor() InboundRequestInterceptor
	InboundResponseInterceptor() InboundResponseInterceptor
	OutboundRequestInterceptor() OutboundRequestInterceptor
	OutboundResponseInterceptor() OutboundResponseInterceptor
}

// MessageInterceptorAdapter is a helper to create an [MessageInterceptor] from functions.
type MessageInterceptorAdapter struct {
	InboundRequest   InboundRequestInterceptor
	InboundResponse  InboundResponseInterceptor
	OutboundRequest  OutboundRequestInterceptor
	OutboundResponse OutboundResponseInterceptor
}

func (f MessageInterceptorAdapter) InboundRequestInterceptor() InboundRequestInterceptor {
	return f.InboundRequest
}

func (f MessageInterceptorAdapter) InboundResponseInterceptor() InboundResponseInterceptor {
	return f.InboundResponse
}

func (f MessageInterceptorAdapter) OutboundRequestInterceptor() OutboundRequestInterceptor {
	return f.OutboundRequest
}

func (f MessageInterceptorAdapter) OutboundResponseInterceptor() OutboundResponseInterceptor {
	return f.OutboundResponse
}

type noopMessageInterceptor struct{}

type NoopMessageInterceptor = noopMessageInterceptor

func (noopMessageInterceptor) InboundRequestInterceptor() InboundRequestInterceptor { return nil }

func (noopMessageInterceptor) InboundResponseInterceptor() InboundResponseInterceptor { return nil }

func (noopMessageInterceptor) OutboundRequestInterceptor() OutboundRequestInterceptor { return nil }

func (noopMessageInterceptor) OutboundResponseInterceptor() OutboundResponseInterceptor { return nil }

type MessageInterceptorChain interface {
	UseInterceptor(interceptor MessageInterceptor) (unbind func())
}

// ChainInboundRequest builds a request receiver pipeline in FIFO order.
func ChainInboundRequest(
	interceptors []InboundRequestInterceptor,
	final RequestReceiver,
) RequestReceiver {
	if final == nil {
		return nil
	}

	receiver := final
	for i := len(interceptors) - 1; i >= 0; i-- {
		interceptor := interceptors[i]
		if interceptor == nil {
			continue
		}
		next := receiver
		receiver = RequestReceiverFunc(func(ctx context.Context, req *InboundRequest) error {
			return interceptor.InterceptInboundRequest(ctx, req, next) //errtrace:skip
		})
	}
	return receiver
}

// ChainInboundResponse builds a response receiver pipeline in FIFO order.
func ChainInboundResponse(
	interceptors []InboundResponseInterceptor,
	final ResponseReceiver,
) ResponseReceiver {
	if final == nil {
		return nil
	}

	receiver := final
	for i := len(interceptors) - 1; i >= 0; i-- {
		interceptor := interceptors[i]
		if interceptor == nil {
			continue
		}
		next := receiver
		receiver = ResponseReceiverFunc(func(ctx context.Context, res *InboundResponse) error {
			return interceptor.InterceptInboundResponse(ctx, res, next) //errtrace:skip
		})
	}
	return receiver
}

// ChainOutboundRequest builds a request sender pipeline in LIFO order.
func ChainOutboundRequest(
	interceptors []OutboundRequestInterceptor,
	final RequestSender,
) RequestSender {
	if final == nil {
		return nil
	}

	sender := final
	for i := range interceptors {
		interceptor := interceptors[i]
		if interceptor == nil {
			continue
		}
		next := sender
		sender = RequestSenderFunc(
			func(ctx context.Context, req *OutboundRequest, opts *SendRequestOptions) error {
				return interceptor.InterceptOutboundRequest(ctx, req, opts, next) //errtrace:skip
			},
		)
	}
	return sender
}

// WrapTransport decorates tp with the given message interceptors.
// Outbound messages pass through the interceptor chains before reaching tp,
// inbound messages pass through the chains before reaching handlers
// registered via OnRequest/OnResponse. Transport capability lookups
// such as [GetTransportProto] see through the returned decorator.
func WrapTransport(tp Transport, interceptors ...MessageInterceptor) Transport {
	var (
		inReqs  []InboundRequestInterceptor
		inRess  []InboundResponseInterceptor
		outReqs []OutboundRequestInterceptor
		outRess []OutboundResponseInterceptor
	)
	for _, mi := range interceptors {
		if mi == nil {
			continue
		}
		if itc := mi.InboundRequestInterceptor(); itc != nil {
			inReqs = append(inReqs, itc)
		}
		if itc := mi.InboundResponseInterceptor(); itc != nil {
			inRess = append(inRess, itc)
		}
		if itc := mi.OutboundRequestInterceptor(); itc != nil {
			outReqs = append(outReqs, itc)
		}
		if itc := mi.OutboundResponseInterceptor(); itc != nil {
			outRess = append(outRess, itc)
		}
	}
	if len(inReqs)+len(inRess)+len(outReqs)+len(outRess) == 0 {
		return tp
	}
	return &interceptedTransport{
		tp:      tp,
		inReqs:  inReqs,
		inRess:  inRess,
		sendReq: ChainOutboundRequest(outReqs, RequestSenderFunc(tp.SendRequest)),
		sendRes: ChainOutboundResponse(outRess, ResponseSenderFunc(tp.SendResponse)),
	}
}

type interceptedTransport struct {
	tp      Transport
	inReqs  []InboundRequestInterceptor
	inRess  []InboundResponseInterceptor
	sendReq RequestSender
	sendRes ResponseSender
}

func (t *interceptedTransport) Unwrap() any { return t.tp }

func (t *interceptedTransport) SendRequest(
	ctx context.Context,
	req *OutboundRequest,
	opts *SendRequestOptions,
) error {
	return t.sendReq.SendRequest(ctx, req, opts) //errtrace:skip
}

func (t *interceptedTransport) SendResponse(
	ctx context.Context,
	res *OutboundResponse,
	opts *SendResponseOptions,
) error {
	return t.sendRes.SendResponse(ctx, res, opts) //errtrace:skip
}

func (t *interceptedTransport) OnRequest(fn TransportRequestHandler) (cancel func()) {
	recv := ChainInboundRequest(t.inReqs, RequestReceiverFunc(
		func(ctx context.Context, req *InboundRequest) error {
			fn(ctx, t, req)
			return nil
		},
	))
	return t.tp.OnRequest(func(ctx context.Context, _ ServerTransport, req *InboundRequest) {
		if err := recv.RecvRequest(ctx, req); err != nil {
			log.Default().WarnContext(ctx, "inbound request dropped by interceptor", "error", err)
		}
	})
}

func (t *interceptedTransport) OnResponse(fn TransportResponseHandler) (cancel func()) {
	recv := ChainInboundResponse(t.inRess, ResponseReceiverFunc(
		func(ctx context.Context, res *InboundResponse) error {
			fn(ctx, t, res)
			return nil
		},
	))
	return t.tp.OnResponse(func(ctx context.Context, _ ClientTransport, res *InboundResponse) {
		if err := recv.RecvResponse(ctx, res); err != nil {
			log.Default().WarnContext(ctx, "inbound response dropped by interceptor", "error", err)
		}
	})
}

func (t *interceptedTransport) Serve() error {
	return t.tp.Serve() //errtrace:skip
}

func (t *interceptedTransport) Close() error {
	return t.tp.Close() //errtrace:skip
}

// ChainOutboundResponse builds a response sender pipeline in LIFO order.
func ChainOutboundResponse(
	interceptors []OutboundResponseInterceptor,
	final ResponseSender,
) ResponseSender {
	if final == nil {
		return nil
	}

	sender := final
	for i := range interceptors {
		interceptor := interceptors[i]
		if interceptor == nil {
			continue
		}
		next := sender
		sender = ResponseSenderFunc(
			func(ctx context.Context, res *OutboundResponse, opts *SendResponseOptions) error {
				return interceptor.InterceptOutboundResponse(ctx, res, opts, next) //errtrace:skip
			},
		)
	}
	return sender
}
