package sip_test

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ghettovoice/sipcore/header"
	"github.com/ghettovoice/sipcore/sip"
	"github.com/ghettovoice/sipcore/uri"
)

func newUACDialog(tb testing.TB, sts sip.ResponseStatus, rryHdrs ...header.RecordRoute) (*sip.Dialog, *sip.OutboundRequest, *sip.InboundResponse) {
	tb.Helper()

	local := netip.MustParseAddrPort("22.22.22.22:5070")
	remote := netip.MustParseAddrPort("55.55.55.55:5060")
	req := newOutInviteReq(tb, "UDP", sip.MagicCookie+".dlg-uac", local, remote)

	msg, err := req.Message().NewResponse(sts, &sip.ResponseOptions{
		Headers: make(sip.Headers).
			Set(header.Contact{{URI: &uri.SIP{User: uri.User("alice"), Addr: uri.HostPort("55.55.55.55", 5060)}}}),
	})
	if err != nil {
		tb.Fatalf("req.NewResponse(%v) error = %v, want nil", sts, err)
	}
	for _, rry := range rryHdrs {
		msg.Headers.Append(rry)
	}
	res := sip.NewInboundResponse(msg, local, remote)

	dlg, err := sip.NewDialogUAC(req, res)
	if err != nil {
		tb.Fatalf("sip.NewDialogUAC(req, res) error = %v, want nil", err)
	}
	return dlg, req, res
}

func TestNewDialogUAC_RouteSetReversal(t *testing.T) {
	t.Parallel()

	hop := func(host string) header.RouteHop {
		return header.RouteHop{URI: &uri.SIP{
			Addr:   uri.Host(host),
			Params: make(header.Values).Set("lr", ""),
		}}
	}

	dlg, _, _ := newUACDialog(t, sip.ResponseStatusOK,
		header.RecordRoute{hop("p1.voip.com"), hop("p2.voip.com")},
		header.RecordRoute{hop("p3.voip.com")},
	)

	want := []header.RouteHop{hop("p3.voip.com"), hop("p2.voip.com"), hop("p1.voip.com")}
	if diff := cmp.Diff(dlg.RouteSet(), want); diff != "" {
		t.Errorf("dlg.RouteSet() mismatch (-got +want):\n%v", diff)
	}
	if dlg.Early() {
		t.Error("dlg.Early() = true, want false after 2xx")
	}
}

func TestNewDialogUAS_RouteSetOrder(t *testing.T) {
	t.Parallel()

	hop := func(host string) header.RouteHop {
		return header.RouteHop{URI: &uri.SIP{
			Addr:   uri.Host(host),
			Params: make(header.Values).Set("lr", ""),
		}}
	}

	local := netip.MustParseAddrPort("55.55.55.55:5060")
	remote := netip.MustParseAddrPort("22.22.22.22:5070")
	msg := newInviteReq(t, "UDP", sip.MagicCookie+".dlg-uas", remote)
	msg.Headers.
		Append(header.RecordRoute{hop("p1.voip.com")}).
		Append(header.RecordRoute{hop("p2.voip.com")})
	req := sip.NewInboundRequest(msg, local, remote)

	dlg, err := sip.NewDialogUAS(req, "to-tag-1")
	if err != nil {
		t.Fatalf("sip.NewDialogUAS(req, tag) error = %v, want nil", err)
	}

	want := []header.RouteHop{hop("p1.voip.com"), hop("p2.voip.com")}
	if diff := cmp.Diff(dlg.RouteSet(), want); diff != "" {
		t.Errorf("dlg.RouteSet() mismatch (-got +want):\n%v", diff)
	}
	if !dlg.Early() {
		t.Error("dlg.Early() = false, want true before 2xx")
	}
	if got, want := dlg.RemoteSeq(), uint(1); got != want {
		t.Errorf("dlg.RemoteSeq() = %d, want %d", got, want)
	}

	id := dlg.ID()
	if id.LocalTag != "to-tag-1" || id.RemoteTag != "from-1234" {
		t.Errorf("dlg.ID() = %+v, want local tag %q, remote tag %q", id, "to-tag-1", "from-1234")
	}

	dlg.Confirm()
	if dlg.Early() {
		t.Error("dlg.Early() = true after Confirm(), want false")
	}
}

func TestDialog_SequenceGuard(t *testing.T) {
	t.Parallel()

	local := netip.MustParseAddrPort("55.55.55.55:5060")
	remote := netip.MustParseAddrPort("22.22.22.22:5070")
	msg := newInviteReq(t, "UDP", sip.MagicCookie+".dlg-seq", remote)
	msg.Headers.Set(&header.CSeq{SeqNum: 10, Method: sip.RequestMethodInvite})
	req := sip.NewInboundRequest(msg, local, remote)

	dlg, err := sip.NewDialogUAS(req, "to-tag-2")
	if err != nil {
		t.Fatalf("sip.NewDialogUAS(req, tag) error = %v, want nil", err)
	}

	inDlgReq := func(seqNum uint, method sip.RequestMethod) *sip.InboundRequest {
		m := newInviteReq(t, "UDP", sip.MagicCookie+".dlg-seq-in", remote)
		m.Method = method
		m.Headers.Set(&header.CSeq{SeqNum: seqNum, Method: method})
		return sip.NewInboundRequest(m, local, remote)
	}

	// below the remote sequence number
	if err := dlg.SequenceGuard(inDlgReq(9, sip.RequestMethodInfo)); !errors.Is(err, sip.ErrOutOfOrder) {
		t.Errorf("dlg.SequenceGuard(CSeq 9) error = %v, want %v", err, sip.ErrOutOfOrder)
	}
	if got, want := dlg.RemoteSeq(), uint(10); got != want {
		t.Errorf("dlg.RemoteSeq() = %d, want untouched %d", got, want)
	}

	// ACK and CANCEL share the INVITE number
	if err := dlg.SequenceGuard(inDlgReq(10, sip.RequestMethodAck)); err != nil {
		t.Errorf("dlg.SequenceGuard(ACK CSeq 10) error = %v, want nil", err)
	}
	if err := dlg.SequenceGuard(inDlgReq(10, sip.RequestMethodCancel)); err != nil {
		t.Errorf("dlg.SequenceGuard(CANCEL CSeq 10) error = %v, want nil", err)
	}

	if err := dlg.SequenceGuard(inDlgReq(12, sip.RequestMethodBye)); err != nil {
		t.Errorf("dlg.SequenceGuard(BYE CSeq 12) error = %v, want nil", err)
	}
	if got, want := dlg.RemoteSeq(), uint(12); got != want {
		t.Errorf("dlg.RemoteSeq() = %d, want %d", got, want)
	}
}

func TestDialog_NewRequest(t *testing.T) {
	t.Parallel()

	dlg, _, _ := newUACDialog(t, sip.ResponseStatusOK)

	inviteSeq := dlg.LocalSeq()

	byeMsg, err := dlg.NewRequest(sip.RequestMethodBye, nil)
	if err != nil {
		t.Fatalf("dlg.NewRequest(BYE, nil) error = %v, want nil", err)
	}
	cseq, ok := byeMsg.Headers.CSeq()
	if !ok {
		t.Fatal("BYE has no CSeq header")
	}
	if got, want := cseq.SeqNum, inviteSeq+1; got != want {
		t.Errorf("BYE CSeq = %d, want %d", got, want)
	}
	if callID, _ := byeMsg.Headers.CallID(); string(callID) != dlg.ID().CallID {
		t.Errorf("BYE Call-ID = %q, want %q", callID, dlg.ID().CallID)
	}
	from, _ := byeMsg.Headers.From()
	if tag, _ := from.Tag(); tag != dlg.ID().LocalTag {
		t.Errorf("BYE From tag = %q, want %q", tag, dlg.ID().LocalTag)
	}
	to, _ := byeMsg.Headers.To()
	if tag, _ := to.Tag(); tag != dlg.ID().RemoteTag {
		t.Errorf("BYE To tag = %q, want %q", tag, dlg.ID().RemoteTag)
	}

	// ACK reuses the INVITE sequence number instead of bumping it
	ackMsg, err := dlg.NewRequest(sip.RequestMethodAck, &sip.DialogRequestOptions{SeqNum: inviteSeq})
	if err != nil {
		t.Fatalf("dlg.NewRequest(ACK, opts) error = %v, want nil", err)
	}
	if cseq, _ := ackMsg.Headers.CSeq(); cseq.SeqNum != inviteSeq {
		t.Errorf("ACK CSeq = %d, want %d", cseq.SeqNum, inviteSeq)
	}
	if got, want := dlg.LocalSeq(), inviteSeq+1; got != want {
		t.Errorf("dlg.LocalSeq() = %d, want %d", got, want)
	}
}

func TestDialog_NewRequestRouting(t *testing.T) {
	t.Parallel()

	looseHop := header.RouteHop{URI: &uri.SIP{
		Addr:   uri.Host("loose.voip.com"),
		Params: make(header.Values).Set("lr", ""),
	}}
	strictHop := header.RouteHop{URI: &uri.SIP{Addr: uri.Host("strict.voip.com")}}

	uriHost := func(u uri.URI) string {
		if su, ok := u.(*uri.SIP); ok {
			return su.Addr.Host()
		}
		return ""
	}

	t.Run("loose", func(t *testing.T) {
		t.Parallel()

		dlg, _, _ := newUACDialog(t, sip.ResponseStatusOK, header.RecordRoute{looseHop})
		msg, err := dlg.NewRequest(sip.RequestMethodBye, nil)
		if err != nil {
			t.Fatalf("dlg.NewRequest(BYE, nil) error = %v, want nil", err)
		}

		if got, want := uriHost(msg.URI), "55.55.55.55"; got != want {
			t.Errorf("request URI host = %q, want remote target %q", got, want)
		}
		var hops []header.RouteHop
		for hop := range msg.Headers.Route() {
			hops = append(hops, *hop)
		}
		if diff := cmp.Diff(hops, []header.RouteHop{looseHop}); diff != "" {
			t.Errorf("Route set mismatch (-got +want):\n%v", diff)
		}
	})

	t.Run("strict", func(t *testing.T) {
		t.Parallel()

		dlg, _, _ := newUACDialog(t, sip.ResponseStatusOK, header.RecordRoute{strictHop})
		msg, err := dlg.NewRequest(sip.RequestMethodBye, nil)
		if err != nil {
			t.Fatalf("dlg.NewRequest(BYE, nil) error = %v, want nil", err)
		}

		if got, want := uriHost(msg.URI), "strict.voip.com"; got != want {
			t.Errorf("request URI host = %q, want first route %q", got, want)
		}
		var hops []header.RouteHop
		for hop := range msg.Headers.Route() {
			hops = append(hops, *hop)
		}
		if len(hops) != 1 || uriHost(hops[0].URI) != "55.55.55.55" {
			t.Errorf("Route set = %+v, want single hop with the remote target", hops)
		}
	})
}

func TestDialogID_BinaryRoundTrip(t *testing.T) {
	t.Parallel()

	id := sip.DialogID{
		CallID:    "call-1234@bob.voip.com",
		LocalTag:  "from-1234",
		RemoteTag: "to-5678",
	}
	data, err := id.MarshalBinary()
	if err != nil {
		t.Fatalf("id.MarshalBinary() error = %v, want nil", err)
	}

	var got sip.DialogID
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("id.UnmarshalBinary(data) error = %v, want nil", err)
	}
	if got != id {
		t.Errorf("round trip = %+v, want %+v", got, id)
	}
}

func TestDialog_RecomputeRouteSet(t *testing.T) {
	t.Parallel()

	hop := func(host string) header.RouteHop {
		return header.RouteHop{URI: &uri.SIP{
			Addr:   uri.Host(host),
			Params: make(header.Values).Set("lr", ""),
		}}
	}

	dlg, req, _ := newUACDialog(t, sip.ResponseStatusRinging, header.RecordRoute{hop("p1.voip.com")})
	if !dlg.Early() {
		t.Fatal("dlg.Early() = false, want true after 180")
	}

	msg, err := req.Message().NewResponse(sip.ResponseStatusSessionProgress, nil)
	if err != nil {
		t.Fatalf("req.NewResponse(183) error = %v, want nil", err)
	}
	msg.Headers.Append(header.RecordRoute{hop("p2.voip.com")})
	res := sip.NewInboundResponse(msg, req.LocalAddr(), req.RemoteAddr())

	if err := dlg.RecomputeRouteSet(res); err != nil {
		t.Fatalf("dlg.RecomputeRouteSet(res) error = %v, want nil", err)
	}
	if diff := cmp.Diff(dlg.RouteSet(), []header.RouteHop{hop("p2.voip.com")}); diff != "" {
		t.Errorf("dlg.RouteSet() mismatch (-got +want):\n%v", diff)
	}

	dlg.Confirm()
	if err := dlg.RecomputeRouteSet(res); !errors.Is(err, sip.ErrActionNotAllowed) {
		t.Errorf("dlg.RecomputeRouteSet(res) after Confirm() error = %v, want %v", err, sip.ErrActionNotAllowed)
	}
}
