package sip_test

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipcore/sip"
)

// sendReqCall captures a request send call for testing.
type sendReqCall struct {
	req  *sip.OutboundRequest
	opts *sip.SendRequestOptions
}

// sendResCall captures a response send call for testing.
type sendResCall struct {
	res  *sip.OutboundResponse
	opts *sip.SendResponseOptions
}

// stubTransport is a unified test stub implementing sip.Transport.
// It records sent messages and lets tests inject inbound ones.
type stubTransport struct {
	proto   sip.TransportProto
	laddr   netip.AddrPort
	network string
	rel     bool // reliable transport flag

	mu       sync.Mutex
	closed   bool
	serveCh  chan struct{}
	reqHdlrs []sip.TransportRequestHandler
	resHdlrs []sip.TransportResponseHandler

	// Request tracking
	sentReqs    []sendReqCall
	sendReqCh   chan sendReqCall
	sendReqHook func(call sendReqCall, index int) error

	// Response tracking
	sentRess    []sendResCall
	sendResCh   chan sendResCall
	sendResHook func(call sendResCall, index int) error
}

func newStubTransport(proto sip.TransportProto, port uint16) *stubTransport {
	laddr := netip.MustParseAddrPort(fmt.Sprintf("127.0.0.1:%d", port))
	return newStubTransportExt(proto, strings.ToLower(string(proto)), laddr, false)
}

func newStubTransportExt(
	proto sip.TransportProto,
	netw string,
	laddr netip.AddrPort,
	rel bool,
) *stubTransport {
	return &stubTransport{
		proto:     proto,
		laddr:     laddr,
		network:   netw,
		rel:       rel,
		serveCh:   make(chan struct{}),
		sendReqCh: make(chan sendReqCall, 16),
		sendResCh: make(chan sendResCall, 16),
	}
}

func (st *stubTransport) Serve() error {
	st.mu.Lock()
	ch := st.serveCh
	st.mu.Unlock()

	<-ch
	return errtrace.Wrap(sip.ErrTransportClosed)
}

func (st *stubTransport) Close() error {
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return errtrace.Wrap(sip.ErrTransportClosed)
	}
	st.closed = true
	st.mu.Unlock()
	close(st.serveCh)
	return nil
}

func (st *stubTransport) LocalAddr() netip.AddrPort { return st.laddr }

func (st *stubTransport) Proto() sip.TransportProto { return st.proto }

func (st *stubTransport) Network() string { return st.network }

func (st *stubTransport) Reliable() bool { return st.rel }

func (*stubTransport) Secured() bool { return false }

func (*stubTransport) Streamed() bool { return false }

func (st *stubTransport) DefaultPort() uint16 { return st.laddr.Port() }

func (st *stubTransport) OnRequest(fn sip.TransportRequestHandler) (cancel func()) {
	st.mu.Lock()
	idx := len(st.reqHdlrs)
	st.reqHdlrs = append(st.reqHdlrs, fn)
	st.mu.Unlock()
	return func() {
		st.mu.Lock()
		if idx < len(st.reqHdlrs) {
			st.reqHdlrs[idx] = nil
		}
		st.mu.Unlock()
	}
}

func (st *stubTransport) OnResponse(fn sip.TransportResponseHandler) (cancel func()) {
	st.mu.Lock()
	idx := len(st.resHdlrs)
	st.resHdlrs = append(st.resHdlrs, fn)
	st.mu.Unlock()
	return func() {
		st.mu.Lock()
		if idx < len(st.resHdlrs) {
			st.resHdlrs[idx] = nil
		}
		st.mu.Unlock()
	}
}

func (st *stubTransport) SendRequest(_ context.Context, req *sip.OutboundRequest, opts *sip.SendRequestOptions) error {
	call := sendReqCall{req: req}
	if opts != nil {
		copied := *opts
		call.opts = &copied
	}

	st.mu.Lock()
	st.sentReqs = append(st.sentReqs, call)
	idx := len(st.sentReqs) - 1
	hook := st.sendReqHook
	st.mu.Unlock()

	if hook != nil {
		if err := hook(call, idx); err != nil {
			return errtrace.Wrap(err)
		}
	}

	st.sendReqCh <- call
	return nil
}

func (st *stubTransport) setSendReqHook(fn func(sendReqCall, int) error) {
	st.mu.Lock()
	st.sendReqHook = fn
	st.mu.Unlock()
}

func (st *stubTransport) SendResponse(_ context.Context, res *sip.OutboundResponse, opts *sip.SendResponseOptions) error {
	call := sendResCall{res: res}
	if opts != nil {
		copied := *opts
		call.opts = &copied
	}

	st.mu.Lock()
	st.sentRess = append(st.sentRess, call)
	idx := len(st.sentRess) - 1
	hook := st.sendResHook
	st.mu.Unlock()

	if hook != nil {
		if err := hook(call, idx); err != nil {
			return errtrace.Wrap(err)
		}
	}

	st.sendResCh <- call
	return nil
}

func (st *stubTransport) setSendResHook(fn func(sendResCall, int) error) {
	st.mu.Lock()
	st.sendResHook = fn
	st.mu.Unlock()
}

// triggerRequest delivers an inbound request to registered request handlers.
func (st *stubTransport) triggerRequest(ctx context.Context, req *sip.InboundRequest) {
	st.mu.Lock()
	hdlrs := append([]sip.TransportRequestHandler(nil), st.reqHdlrs...)
	st.mu.Unlock()

	for _, fn := range hdlrs {
		if fn != nil {
			fn(sip.ContextWithTransport(ctx, st), st, req)
		}
	}
}

// triggerResponse delivers an inbound response to registered response handlers.
func (st *stubTransport) triggerResponse(ctx context.Context, res *sip.InboundResponse) {
	st.mu.Lock()
	hdlrs := append([]sip.TransportResponseHandler(nil), st.resHdlrs...)
	st.mu.Unlock()

	for _, fn := range hdlrs {
		if fn != nil {
			fn(sip.ContextWithTransport(ctx, st), st, res)
		}
	}
}

func (st *stubTransport) requestCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sentReqs)
}

func (st *stubTransport) responseCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sentRess)
}

// waitSendReq waits for a request to be sent and returns it.
func (st *stubTransport) waitSendReq(tb testing.TB, timeout time.Duration) sendReqCall {
	tb.Helper()
	select {
	case call := <-st.sendReqCh:
		return call
	case <-time.After(timeout):
		tb.Fatalf("expected request send within %v", timeout)
		return sendReqCall{}
	}
}

// waitSendRes waits for a response to be sent and returns it.
func (st *stubTransport) waitSendRes(tb testing.TB, timeout time.Duration) sendResCall {
	tb.Helper()
	select {
	case call := <-st.sendResCh:
		return call
	case <-time.After(timeout):
		tb.Fatalf("expected response send within %v", timeout)
		return sendResCall{}
	}
}

// ensureNoSendReq asserts no request is sent within timeout.
func (st *stubTransport) ensureNoSendReq(tb testing.TB, timeout time.Duration) {
	tb.Helper()
	select {
	case call := <-st.sendReqCh:
		tb.Fatalf("unexpected send: method %v", call.req.Method())
	case <-time.After(timeout):
	}
}

// ensureNoSendRes asserts no response is sent within timeout.
func (st *stubTransport) ensureNoSendRes(tb testing.TB, timeout time.Duration) {
	tb.Helper()
	select {
	case call := <-st.sendResCh:
		tb.Fatalf("unexpected send: status %v", call.res.Status())
	case <-time.After(timeout):
	}
}

// drainSendReqs drains all pending request sends from the channel.
func (st *stubTransport) drainSendReqs() {
	for {
		select {
		case <-st.sendReqCh:
		default:
			return
		}
	}
}

// drainSendRess drains all pending response sends from the channel.
func (st *stubTransport) drainSendRess() {
	for {
		select {
		case <-st.sendResCh:
		default:
			return
		}
	}
}

// stubClientTransport narrows the stub to the client side with
// request-oriented send helpers.
type stubClientTransport struct {
	*stubTransport
}

func newStubClientTransport(
	proto sip.TransportProto,
	netw string,
	laddr netip.AddrPort,
	rel bool,
) *stubClientTransport {
	return &stubClientTransport{newStubTransportExt(proto, netw, laddr, rel)}
}

func (st *stubClientTransport) sendCh() <-chan sendReqCall { return st.sendReqCh }

func (st *stubClientTransport) setSendHook(fn func(sendReqCall, int) error) { st.setSendReqHook(fn) }

func (st *stubClientTransport) waitSend(tb testing.TB, timeout time.Duration) sendReqCall {
	tb.Helper()
	return st.waitSendReq(tb, timeout)
}

func (st *stubClientTransport) ensureNoSend(tb testing.TB, timeout time.Duration) {
	tb.Helper()
	st.ensureNoSendReq(tb, timeout)
}

func (st *stubClientTransport) drainSends() { st.drainSendReqs() }

// stubServerTransport narrows the stub to the server side with
// response-oriented send helpers.
type stubServerTransport struct {
	*stubTransport
}

func newStubServerTransport(
	proto sip.TransportProto,
	netw string,
	laddr netip.AddrPort,
	rel bool,
) *stubServerTransport {
	return &stubServerTransport{newStubTransportExt(proto, netw, laddr, rel)}
}

func (st *stubServerTransport) sendCh() <-chan sendResCall { return st.sendResCh }

func (st *stubServerTransport) setSendHook(fn func(sendResCall, int) error) { st.setSendResHook(fn) }

func (st *stubServerTransport) waitSend(tb testing.TB, timeout time.Duration) sendResCall {
	tb.Helper()
	return st.waitSendRes(tb, timeout)
}

func (st *stubServerTransport) ensureNoSend(tb testing.TB, timeout time.Duration) {
	tb.Helper()
	st.ensureNoSendRes(tb, timeout)
}

func (st *stubServerTransport) drainSends() { st.drainSendRess() }
