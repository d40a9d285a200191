package sip_test

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/ghettovoice/sipcore/sip"
)

func newTestUAS(tb testing.TB, req *sip.InboundRequest, tp sip.ServerTransport) (*sip.UAS, sip.ServerTransaction) {
	tb.Helper()

	var (
		tx  sip.ServerTransaction
		err error
	)
	if req.Method().Equal(sip.RequestMethodInvite) {
		tx, err = sip.NewInviteServerTransaction(req, tp, nil)
	} else {
		tx, err = sip.NewNonInviteServerTransaction(req, tp, nil)
	}
	if err != nil {
		tb.Fatalf("failed to create server transaction: %v", err)
	}
	tb.Cleanup(func() {
		tx.Terminate(context.Background()) //nolint:errcheck
	})

	ua, err := sip.NewUAS(tx, nil)
	if err != nil {
		tb.Fatalf("NewUAS() error = %v", err)
	}
	return ua, tx
}

func TestUAS_RespondSequence(t *testing.T) {
	t.Parallel()

	laddr := netip.MustParseAddrPort("127.0.0.1:5060")
	raddr := netip.MustParseAddrPort("192.168.1.100:5060")
	tp := newStubServerTransport(sip.TransportProto("UDP"), "udp", laddr, false)

	req := newInInviteReq(t, sip.TransportProto("UDP"), "", laddr, raddr)
	ua, _ := newTestUAS(t, req, tp)

	if got := ua.Request(); got != req {
		t.Fatalf("Request() = %p, want %p", got, req)
	}

	ctx := t.Context()
	if err := ua.Trying(ctx, nil); err != nil {
		t.Fatalf("Trying() error = %v", err)
	}
	call := tp.waitSend(t, 100*time.Millisecond)
	if call.res.Status() != sip.ResponseStatusTrying {
		t.Fatalf("sent status = %v, want %v", call.res.Status(), sip.ResponseStatusTrying)
	}

	if err := ua.Progress(ctx, sip.ResponseStatusRinging, nil); err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	call = tp.waitSend(t, 100*time.Millisecond)
	if call.res.Status() != sip.ResponseStatusRinging {
		t.Fatalf("sent status = %v, want %v", call.res.Status(), sip.ResponseStatusRinging)
	}

	if err := ua.Accept(ctx, sip.ResponseStatusOK, nil); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	call = tp.waitSend(t, 100*time.Millisecond)
	if call.res.Status() != sip.ResponseStatusOK {
		t.Fatalf("sent status = %v, want %v", call.res.Status(), sip.ResponseStatusOK)
	}

	// Only one final response per transaction.
	if err := ua.Reject(ctx, sip.ResponseStatusBusyHere, nil); !errors.Is(err, sip.ErrActionNotAllowed) {
		t.Fatalf("Reject() after final error = %v, want %v", err, sip.ErrActionNotAllowed)
	}
}

func TestUAS_StatusValidation(t *testing.T) {
	t.Parallel()

	laddr := netip.MustParseAddrPort("127.0.0.1:5060")
	raddr := netip.MustParseAddrPort("192.168.1.100:5060")
	tp := newStubServerTransport(sip.TransportProto("UDP"), "udp", laddr, false)

	req := newInInviteReq(t, sip.TransportProto("UDP"), "", laddr, raddr)
	ua, _ := newTestUAS(t, req, tp)

	ctx := t.Context()
	for _, tc := range []struct {
		name string
		err  error
	}{
		{"Progress(100)", ua.Progress(ctx, sip.ResponseStatusTrying, nil)},
		{"Progress(200)", ua.Progress(ctx, sip.ResponseStatusOK, nil)},
		{"Accept(180)", ua.Accept(ctx, sip.ResponseStatusRinging, nil)},
		{"Redirect(200)", ua.Redirect(ctx, sip.ResponseStatusOK, nil)},
		{"Reject(302)", ua.Reject(ctx, sip.ResponseStatusMovedTemporarily, nil)},
		{"Reject(180)", ua.Reject(ctx, sip.ResponseStatusRinging, nil)},
	} {
		if !errors.Is(tc.err, sip.ErrInvalidArgument) {
			t.Fatalf("%s error = %v, want wrapped %v", tc.name, tc.err, sip.ErrInvalidArgument)
		}
	}
	tp.ensureNoSend(t, 20*time.Millisecond)
}

func TestUAS_ReceiveCancel(t *testing.T) {
	t.Parallel()

	laddr := netip.MustParseAddrPort("127.0.0.1:5060")
	raddr := netip.MustParseAddrPort("192.168.1.100:5060")
	tp := newStubServerTransport(sip.TransportProto("UDP"), "udp", laddr, false)

	req := newInInviteReq(t, sip.TransportProto("UDP"), "", laddr, raddr)
	ua, _ := newTestUAS(t, req, tp)

	cancCh := make(chan *sip.InboundRequest, 2)
	ua.OnCancel(func(_ context.Context, req *sip.InboundRequest) { cancCh <- req })

	ctx := t.Context()
	if err := ua.Progress(ctx, sip.ResponseStatusRinging, nil); err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	tp.waitSend(t, 100*time.Millisecond)

	canc := newInviteReq(t, sip.TransportProto("UDP"), "", raddr)
	canc.Method = sip.RequestMethodCancel
	ua.ReceiveCancel(ctx, sip.NewInboundRequest(canc, laddr, raddr))

	call := tp.waitSend(t, 100*time.Millisecond)
	if call.res.Status() != sip.ResponseStatusRequestTerminated {
		t.Fatalf("sent status = %v, want %v", call.res.Status(), sip.ResponseStatusRequestTerminated)
	}
	select {
	case <-cancCh:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected the cancel callback to fire")
	}

	// No second 487 on a repeated CANCEL, only the notification.
	ua.ReceiveCancel(ctx, sip.NewInboundRequest(canc, laddr, raddr))
	select {
	case <-cancCh:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected the cancel callback to fire again")
	}
	tp.ensureNoSend(t, 20*time.Millisecond)

	// The transaction answered the INVITE already.
	if err := ua.Accept(ctx, sip.ResponseStatusOK, nil); !errors.Is(err, sip.ErrActionNotAllowed) {
		t.Fatalf("Accept() after cancel error = %v, want %v", err, sip.ErrActionNotAllowed)
	}
}

func TestUAS_CancelAfterFinalKeepsResponse(t *testing.T) {
	t.Parallel()

	laddr := netip.MustParseAddrPort("127.0.0.1:5060")
	raddr := netip.MustParseAddrPort("192.168.1.100:5060")
	tp := newStubServerTransport(sip.TransportProto("UDP"), "udp", laddr, false)

	req := newInInviteReq(t, sip.TransportProto("UDP"), "", laddr, raddr)
	ua, _ := newTestUAS(t, req, tp)

	cancCh := make(chan *sip.InboundRequest, 1)
	ua.OnCancel(func(_ context.Context, req *sip.InboundRequest) { cancCh <- req })

	ctx := t.Context()
	if err := ua.Accept(ctx, sip.ResponseStatusOK, nil); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	tp.waitSend(t, 100*time.Millisecond)

	canc := newInviteReq(t, sip.TransportProto("UDP"), "", raddr)
	canc.Method = sip.RequestMethodCancel
	ua.ReceiveCancel(ctx, sip.NewInboundRequest(canc, laddr, raddr))

	// Too late to cancel, the 200 stands.
	tp.ensureNoSend(t, 20*time.Millisecond)
	select {
	case <-cancCh:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected the cancel callback to fire")
	}
}
