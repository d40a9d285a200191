package sip_test

import (
	"context"
	"net/netip"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ghettovoice/sipcore/sip"
)

func TestStatsCollector_TransactionMetrics(t *testing.T) {
	t.Parallel()

	stats := &sip.StatsRecorder{}
	hdlrs := &stubTransactionInitHandlers{}
	t.Cleanup(stats.BindTransactionInitHandlers(hdlrs))

	clientTx := &stubClientTransaction{stubTransaction: stubTransaction{typ: sip.TransactionTypeClientInvite}}
	serverTx := &stubServerTransaction{stubTransaction: stubTransaction{typ: sip.TransactionTypeServerNonInvite}}
	hdlrs.fireClient(t.Context(), clientTx)
	hdlrs.fireServer(t.Context(), serverTx)
	serverTx.fireState(sip.TransactionStateTerminated)

	coll := sip.NewStatsCollector(stats, "")

	want := `
# HELP sip_transactions Number of active SIP transactions.
# TYPE sip_transactions gauge
sip_transactions{kind="invite_client"} 1
sip_transactions{kind="invite_server"} 0
sip_transactions{kind="non_invite_client"} 0
sip_transactions{kind="non_invite_server"} 0
# HELP sip_transactions_created_total Number of created SIP transactions.
# TYPE sip_transactions_created_total counter
sip_transactions_created_total{kind="invite_client"} 1
sip_transactions_created_total{kind="invite_server"} 0
sip_transactions_created_total{kind="non_invite_client"} 0
sip_transactions_created_total{kind="non_invite_server"} 1
`
	if err := testutil.CollectAndCompare(coll, strings.NewReader(want),
		"sip_transactions", "sip_transactions_created_total"); err != nil {
		t.Fatalf("CollectAndCompare() error = %v", err)
	}
}

func TestStatsCollector_TransportMetrics(t *testing.T) {
	t.Parallel()

	stats := &sip.StatsRecorder{}
	tp := newStubTransport("UDP", 5071)
	ctx := sip.ContextWithTransport(t.Context(), tp)

	raddr := netip.MustParseAddrPort("192.168.1.10:5060")
	inReq := newInInviteReq(t, tp.Proto(), "", tp.LocalAddr(), raddr)
	receiver := sip.RequestReceiverFunc(func(context.Context, *sip.InboundRequest) error { return nil })
	if err := stats.InboundRequestInterceptor().InterceptInboundRequest(ctx, inReq, receiver); err != nil {
		t.Fatalf("InterceptInboundRequest() error = %v", err)
	}

	coll := sip.NewStatsCollector(stats, "sip")

	want := `
# HELP sip_transport_requests_received_total Number of received SIP requests.
# TYPE sip_transport_requests_received_total counter
sip_transport_requests_received_total{local_addr="127.0.0.1:5071",proto="UDP"} 1
`
	if err := testutil.CollectAndCompare(coll, strings.NewReader(want),
		"sip_transport_requests_received_total"); err != nil {
		t.Fatalf("CollectAndCompare() error = %v", err)
	}
}
