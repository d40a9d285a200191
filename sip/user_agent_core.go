package sip

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"sync"
	"sync/atomic"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipcore/header"
	"github.com/ghettovoice/sipcore/internal/errorutil"
	"github.com/ghettovoice/sipcore/log"
)

// DialogRequestHandler handles an in-dialog request routed to the dialog
// owner. The ua argument carries the server transaction of the request
// and is nil for ACK, which has no transaction.
type DialogRequestHandler = func(ctx context.Context, dlg *Dialog, req *InboundRequest, ua *UAS)

// CoreDelegate dispatches new out-of-dialog requests by method.
// Methods without a handler are answered with 405 and an Allow header
// listing the handled ones.
type CoreDelegate struct {
	OnInvite    func(ctx context.Context, ua *UAS)
	OnMessage   func(ctx context.Context, ua *UAS)
	OnRefer     func(ctx context.Context, ua *UAS)
	OnRegister  func(ctx context.Context, ua *UAS)
	OnSubscribe func(ctx context.Context, ua *UAS)
	OnNotify    func(ctx context.Context, ua *UAS)
	OnOptions   func(ctx context.Context, ua *UAS)
	OnPublish   func(ctx context.Context, ua *UAS)
}

func (d *CoreDelegate) handler(m RequestMethod) func(ctx context.Context, ua *UAS) {
	if d == nil {
		return nil
	}
	switch {
	case m.Equal(RequestMethodInvite):
		return d.OnInvite
	case m.Equal(RequestMethodMessage):
		return d.OnMessage
	case m.Equal(RequestMethodRefer):
		return d.OnRefer
	case m.Equal(RequestMethodRegister):
		return d.OnRegister
	case m.Equal(RequestMethodSubscribe):
		return d.OnSubscribe
	case m.Equal(RequestMethodNotify):
		return d.OnNotify
	case m.Equal(RequestMethodOptions):
		return d.OnOptions
	case m.Equal(RequestMethodPublish):
		return d.OnPublish
	default:
		return nil
	}
}

func (d *CoreDelegate) methods() header.Allow {
	if d == nil {
		return nil
	}
	var allow header.Allow
	for _, m := range []struct {
		method RequestMethod
		fn     func(ctx context.Context, ua *UAS)
	}{
		{RequestMethodInvite, d.OnInvite},
		{RequestMethodMessage, d.OnMessage},
		{RequestMethodRefer, d.OnRefer},
		{RequestMethodRegister, d.OnRegister},
		{RequestMethodSubscribe, d.OnSubscribe},
		{RequestMethodNotify, d.OnNotify},
		{RequestMethodOptions, d.OnOptions},
		{RequestMethodPublish, d.OnPublish},
	} {
		if m.fn != nil {
			allow = append(allow, m.method)
		}
	}
	if d.OnInvite != nil {
		allow = append(allow, RequestMethodAck, RequestMethodCancel, RequestMethodBye)
	}
	return allow
}

// UserAgentCoreOptions are the options for a [UserAgentCore].
type UserAgentCoreOptions struct {
	// Authenticator answers 401/407 challenges on outbound requests.
	Authenticator *Authenticator
	// Ident generates Call-ID, tag and branch values.
	// If nil, the [DefaultIdentGenerator] is used.
	Ident IdentGenerator
	// Delegate dispatches new out-of-dialog requests.
	Delegate *CoreDelegate
	// Element decorates the transport with the element message pipeline,
	// stamping User-Agent/Server headers on self-generated messages.
	Element *Element
	// TransactionLayerOptions are passed to the transaction layer.
	TransactionLayerOptions *TransactionLayerOptions
	// Log is the logger. If nil, the [log.Default] is used.
	Log *slog.Logger
}

func (o *UserAgentCoreOptions) auth() *Authenticator {
	if o == nil {
		return nil
	}
	return o.Authenticator
}

func (o *UserAgentCoreOptions) ident() IdentGenerator {
	if o == nil || o.Ident == nil {
		return DefaultIdentGenerator()
	}
	return o.Ident
}

func (o *UserAgentCoreOptions) delegate() *CoreDelegate {
	if o == nil {
		return nil
	}
	return o.Delegate
}

func (o *UserAgentCoreOptions) element() *Element {
	if o == nil {
		return nil
	}
	return o.Element
}

func (o *UserAgentCoreOptions) txlOpts() *TransactionLayerOptions {
	if o == nil {
		return nil
	}
	return o.TransactionLayerOptions
}

func (o *UserAgentCoreOptions) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Default()
	}
	return o.Log
}

// UserAgentCore glues the transaction layer to the UA role objects
// (RFC 3261 Section 8): it builds and sends out-of-dialog requests
// through [UAC] handles, dispatches inbound requests to dialogs and
// the [CoreDelegate], detects merged requests and resolves CANCEL
// against the INVITE transaction it targets.
type UserAgentCore struct {
	tp       Transport
	txl      *TransactionLayer
	auth     *Authenticator
	ident    IdentGenerator
	delegate *CoreDelegate
	log      *slog.Logger

	cancOnReq func()

	// dialog key -> dialogEntry
	dialogs sync.Map
	// server transaction key -> *UAS, for CANCEL resolution
	uass sync.Map
	// request identity -> Via branch, for merged request detection
	identities sync.Map

	closed atomic.Bool
}

type dialogEntry struct {
	dlg *Dialog
	fn  DialogRequestHandler
}

// NewUserAgentCore creates a core on top of the transport.
func NewUserAgentCore(tp Transport, opts *UserAgentCoreOptions) (*UserAgentCore, error) {
	if tp == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("invalid transport"))
	}
	if elm := opts.element(); elm != nil {
		tp = WrapTransport(tp, elm)
	}
	txl, err := NewTransactionLayer(tp, opts.txlOpts())
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	core := &UserAgentCore{
		tp:       tp,
		txl:      txl,
		auth:     opts.auth(),
		ident:    opts.ident(),
		delegate: opts.delegate(),
		log:      opts.log(),
	}
	core.cancOnReq = txl.OnRequest(core.recvReq)
	return core, nil
}

// TransactionLayer returns the transaction layer owned by the core.
func (core *UserAgentCore) TransactionLayer() *TransactionLayer { return core.txl }

// Run starts the transport read loop and blocks until the transport is closed.
func (core *UserAgentCore) Run() error {
	return errtrace.Wrap(core.tp.Serve())
}

// Close shuts down the transaction layer and the transport.
func (core *UserAgentCore) Close(ctx context.Context) error {
	if !core.closed.CompareAndSwap(false, true) {
		return nil
	}
	if core.cancOnReq != nil {
		core.cancOnReq()
	}

	var errs []error
	if err := core.txl.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := core.tp.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return errtrace.Wrap(errorutil.JoinPrefix("failed to close user agent core:", errs...))
}

// RegisterDialog makes the dialog visible to the inbound request
// dispatch. In-dialog requests pass the dialog sequence guard and are
// routed to fn. The dialog is forgotten when unregister is called.
func (core *UserAgentCore) RegisterDialog(dlg *Dialog, fn DialogRequestHandler) (unregister func(), err error) {
	if dlg == nil || fn == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("invalid dialog or handler"))
	}
	key, err := dlg.ID().MarshalBinary()
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	core.dialogs.Store(string(key), dialogEntry{dlg: dlg, fn: fn})
	return func() { core.dialogs.Delete(string(key)) }, nil
}

// FindDialog returns a registered dialog by its ID.
func (core *UserAgentCore) FindDialog(id DialogID) (*Dialog, bool) {
	key, err := id.MarshalBinary()
	if err != nil {
		return nil, false
	}
	if v, ok := core.dialogs.Load(string(key)); ok {
		return v.(dialogEntry).dlg, true //nolint:forcetypeassert
	}
	return nil, false
}

// recvReq handles inbound requests not matched to any transaction.
func (core *UserAgentCore) recvReq(ctx context.Context, req *InboundRequest) {
	if req.Method().Equal(RequestMethodCancel) {
		core.recvCancel(ctx, req)
		return
	}

	id, err := GetUASDialogID(req.Headers())
	if err != nil {
		respondStateless(ctx, core.tp, req, ResponseStatusBadRequest)
		return
	}
	if id.IsValid() {
		core.recvDialogReq(ctx, id, req)
		return
	}

	if core.isMergedReq(req) {
		respondStateless(ctx, core.tp, req, ResponseStatusLoopDetected)
		return
	}
	if req.Method().Equal(RequestMethodAck) {
		// stray ACK outside any dialog
		core.log.LogAttrs(ctx, slog.LevelDebug, "silently discard stray ACK request", slog.Any("request", req))
		return
	}
	core.recvNewReq(ctx, req)
}

// recvCancel answers CANCEL statelessly with 200 and resolves it
// against the INVITE server transaction it targets (RFC 3261
// Section 9.2).
func (core *UserAgentCore) recvCancel(ctx context.Context, req *InboundRequest) {
	var key ServerTransactionKey
	if err := key.FillFromMessage(req); err != nil {
		respondStateless(ctx, core.tp, req, ResponseStatusBadRequest)
		return
	}
	key.Method = string(RequestMethodInvite)

	if _, err := core.txl.LoadServerTransaction(ctx, key); err != nil {
		respondStateless(ctx, core.tp, req, ResponseStatusCallTransactionDoesNotExist)
		return
	}
	respondStateless(ctx, core.tp, req, ResponseStatusOK)

	if v, ok := core.uass.Load(key.String()); ok {
		v.(*UAS).ReceiveCancel(ctx, req) //nolint:forcetypeassert
		return
	}
	core.log.LogAttrs(ctx, slog.LevelDebug,
		"canceled transaction has no user agent attached",
		slog.Any("request", req),
	)
}

func (core *UserAgentCore) recvDialogReq(ctx context.Context, id DialogID, req *InboundRequest) {
	key, err := id.MarshalBinary()
	if err != nil {
		respondStateless(ctx, core.tp, req, ResponseStatusServerInternalError)
		return
	}
	v, ok := core.dialogs.Load(string(key))
	if !ok {
		core.log.LogAttrs(ctx, slog.LevelDebug,
			"inbound request does not match any dialog",
			slog.Any("request", req),
			slog.Any("dialog_id", id),
		)
		respondStateless(ctx, core.tp, req, ResponseStatusCallTransactionDoesNotExist)
		return
	}
	entry := v.(dialogEntry) //nolint:forcetypeassert

	if err := entry.dlg.SequenceGuard(req); err != nil {
		if errors.Is(err, ErrOutOfOrder) {
			respondStateless(ctx, core.tp, req, ResponseStatusServerInternalError)
			return
		}
		respondStateless(ctx, core.tp, req, ResponseStatusBadRequest)
		return
	}

	if req.Method().Equal(RequestMethodAck) {
		entry.fn(ctx, entry.dlg, req, nil)
		return
	}

	ua, err := core.newUAS(ctx, req)
	if err != nil {
		core.log.LogAttrs(ctx, slog.LevelWarn,
			"failed to create transaction on in-dialog request",
			slog.Any("request", req),
			slog.Any("error", err),
		)
		respondStateless(ctx, core.tp, req, ResponseStatusServerInternalError)
		return
	}
	entry.fn(ctx, entry.dlg, req, ua)
}

func (core *UserAgentCore) recvNewReq(ctx context.Context, req *InboundRequest) {
	fn := core.delegate.handler(req.Method())

	ua, err := core.newUAS(ctx, req)
	if err != nil {
		core.log.LogAttrs(ctx, slog.LevelWarn,
			"failed to create transaction on inbound request",
			slog.Any("request", req),
			slog.Any("error", err),
		)
		respondStateless(ctx, core.tp, req, ResponseStatusServerInternalError)
		return
	}

	if fn == nil {
		opts := &RespondOptions{}
		if allow := core.delegate.methods(); allow != nil {
			opts.ResponseOptions = &ResponseOptions{Headers: make(Headers).Set(allow)}
		}
		if err := ua.Reject(ctx, ResponseStatusMethodNotAllowed, opts); err != nil {
			core.log.LogAttrs(ctx, slog.LevelWarn,
				"failed to reject unhandled request",
				slog.Any("request", req),
				slog.Any("error", err),
			)
		}
		return
	}
	fn(ctx, ua)
}

// newUAS spins up a server transaction for the request and registers
// the UAS for CANCEL resolution and merged request detection until the
// transaction terminates.
func (core *UserAgentCore) newUAS(ctx context.Context, req *InboundRequest) (*UAS, error) {
	tx, err := core.txl.NewServerTransaction(ctx, req, core.tp, &ServerTransactionOptions{Log: core.log})
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	ua, err := NewUAS(tx, &UASOptions{Log: core.log})
	if err != nil {
		tx.Terminate(ctx) //nolint:errcheck
		return nil, errtrace.Wrap(err)
	}

	txKey, _ := GetServerTransactionKey(tx)
	identKey, branch := reqIdentity(req)
	core.uass.Store(txKey.String(), ua)
	if identKey != "" {
		core.identities.Store(identKey, branch)
	}
	tx.OnStateChanged(func(ctx context.Context, _, to TransactionState) {
		if to == TransactionStateTerminated {
			core.uass.Delete(txKey.String())
			if identKey != "" {
				core.identities.Delete(identKey)
			}
		}
	})
	return ua, nil
}

// isMergedReq reports whether the request is a merged copy of a request
// already in progress: same From tag, Call-ID and CSeq arriving on a
// different branch (RFC 3261 Section 8.2.2.2).
func (core *UserAgentCore) isMergedReq(req *InboundRequest) bool {
	identKey, branch := reqIdentity(req)
	if identKey == "" {
		return false
	}
	if v, ok := core.identities.Load(identKey); ok {
		return v.(string) != branch //nolint:forcetypeassert
	}
	return false
}

func reqIdentity(req *InboundRequest) (key, branch string) {
	hdrs := req.Headers()
	from, ok := hdrs.From()
	if !ok {
		return "", ""
	}
	fromTag, _ := from.Tag()
	callID, _ := hdrs.CallID()
	cseq, ok := hdrs.CSeq()
	if !ok {
		return "", ""
	}
	via, ok := hdrs.FirstVia()
	if !ok {
		return "", ""
	}
	branch, _ = via.Branch()
	return fromTag + "\x00" + string(callID) + "\x00" + cseq.Render(nil), branch
}

// RequestOptions customize the out-of-dialog requests built by the core.
type RequestOptions struct {
	// From is the local party URI. Required.
	From URI
	// To overrides the remote party URI, defaults to the target.
	To URI
	// Contact is included when set.
	Contact *header.ContactAddr
	// CallID overrides the generated Call-ID.
	CallID header.CallID
	// SeqNum overrides the CSeq number, defaults to 1.
	SeqNum uint
	// Headers are appended to the generated ones.
	Headers Headers
	// Body of the request.
	Body []byte
	// LocalAddr fills the Via sent-by and the message source address.
	LocalAddr netip.AddrPort
	// RemoteAddr sets the message target address.
	// If zero, the target is resolved by the transport from the request URI.
	RemoteAddr netip.AddrPort
	// Delegate receives the responses classified by status class.
	Delegate *UACDelegate
	// SendOptions are passed to the transport.
	SendOptions *SendRequestOptions
}

func (o *RequestOptions) from() URI {
	if o == nil {
		return nil
	}
	return o.From
}

// Invite sends an out-of-dialog INVITE to the target.
func (core *UserAgentCore) Invite(ctx context.Context, target URI, opts *RequestOptions) (*UAC, error) {
	return errtrace.Wrap2(core.Request(ctx, RequestMethodInvite, target, opts))
}

// Message sends a MESSAGE to the target.
func (core *UserAgentCore) Message(ctx context.Context, target URI, opts *RequestOptions) (*UAC, error) {
	return errtrace.Wrap2(core.Request(ctx, RequestMethodMessage, target, opts))
}

// Register sends a REGISTER to the registrar.
func (core *UserAgentCore) Register(ctx context.Context, registrar URI, opts *RequestOptions) (*UAC, error) {
	return errtrace.Wrap2(core.Request(ctx, RequestMethodRegister, registrar, opts))
}

// Subscribe sends a SUBSCRIBE to the target.
func (core *UserAgentCore) Subscribe(ctx context.Context, target URI, opts *RequestOptions) (*UAC, error) {
	return errtrace.Wrap2(core.Request(ctx, RequestMethodSubscribe, target, opts))
}

// Publish sends a PUBLISH to the target.
func (core *UserAgentCore) Publish(ctx context.Context, target URI, opts *RequestOptions) (*UAC, error) {
	return errtrace.Wrap2(core.Request(ctx, RequestMethodPublish, target, opts))
}

// Request builds an out-of-dialog request and sends it through a new
// client transaction, returning the UAC handle immediately.
func (core *UserAgentCore) Request(
	ctx context.Context,
	method RequestMethod,
	target URI,
	opts *RequestOptions,
) (*UAC, error) {
	if core.closed.Load() {
		return nil, errtrace.Wrap(ErrTransactionLayerClosed)
	}
	msg, err := core.buildRequest(method, target, opts)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	req := NewOutboundRequest(msg)
	if opts != nil {
		if opts.LocalAddr.IsValid() {
			req.SetLocalAddr(opts.LocalAddr)
		}
		if opts.RemoteAddr.IsValid() {
			req.SetRemoteAddr(opts.RemoteAddr)
		}
	}

	var (
		delegate *UACDelegate
		sendOpts *SendRequestOptions
	)
	if opts != nil {
		delegate = opts.Delegate
		sendOpts = opts.SendOptions
	}
	return errtrace.Wrap2(NewUAC(ctx, core.txl, core.tp, req, &UACOptions{
		Authenticator:      core.auth,
		Delegate:           delegate,
		TransactionOptions: &ClientTransactionOptions{SendOptions: sendOpts, Log: core.log},
		Log:                core.log,
	}))
}

func (core *UserAgentCore) buildRequest(method RequestMethod, target URI, opts *RequestOptions) (*Request, error) {
	if method == "" || target == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("empty method or target"))
	}
	from := opts.from()
	if from == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("missing From URI"))
	}

	to := target
	callID := core.ident.CallID()
	seqNum := uint(1)
	var (
		hdrs Headers
		body []byte
	)
	if opts != nil {
		if opts.To != nil {
			to = opts.To
		}
		if opts.CallID != "" {
			callID = opts.CallID
		}
		if opts.SeqNum > 0 {
			seqNum = opts.SeqNum
		}
		hdrs = opts.Headers
		body = opts.Body
	}

	viaHop := header.ViaHop{
		Proto:  ProtoVer20(),
		Params: make(header.Values).Set("branch", core.ident.Branch()),
	}
	if proto, ok := GetTransportProto(core.tp); ok {
		viaHop.Transport = proto
	}
	if opts != nil && opts.LocalAddr.IsValid() {
		viaHop.Addr = header.HostPort(opts.LocalAddr.Addr().String(), opts.LocalAddr.Port())
	}

	msg := &Request{
		Proto:  ProtoVer20(),
		Method: method,
		URI:    target.Clone(),
		Body:   body,
		Headers: make(Headers, 8).
			Set(header.Via{viaHop}).
			Set(&header.From{
				URI:    from.Clone(),
				Params: make(header.Values).Set("tag", core.ident.Tag()),
			}).
			Set(&header.To{URI: to.Clone()}).
			Set(callID).
			Set(&header.CSeq{SeqNum: seqNum, Method: method}).
			Set(header.MaxForwards(70)),
	}
	if opts != nil && opts.Contact != nil {
		msg.Headers.Set(header.Contact{*opts.Contact})
	}
	for _, hs := range hdrs {
		for _, h := range hs {
			msg.Headers.Append(h)
		}
	}
	return msg, nil
}

// DialogSendOptions customize in-dialog requests built by the core.
type DialogSendOptions struct {
	// Headers are appended to the generated ones.
	Headers Headers
	// Body of the request.
	Body []byte
	// SeqNum overrides the sequence number.
	SeqNum uint
	// LocalAddr fills the Via sent-by and the message source address.
	LocalAddr netip.AddrPort
	// RemoteAddr sets the message target address.
	RemoteAddr netip.AddrPort
	// Delegate receives the responses classified by status class.
	Delegate *UACDelegate
	// SendOptions are passed to the transport.
	SendOptions *SendRequestOptions
}

func (o *DialogSendOptions) dlgReqOpts() *DialogRequestOptions {
	if o == nil {
		return nil
	}
	return &DialogRequestOptions{Headers: o.Headers, Body: o.Body, SeqNum: o.SeqNum}
}

// DialogRequest builds an in-dialog request (RFC 3261 Section 12.2.1)
// and sends it through a new client transaction, returning the UAC
// handle immediately.
func (core *UserAgentCore) DialogRequest(
	ctx context.Context,
	dlg *Dialog,
	method RequestMethod,
	opts *DialogSendOptions,
) (*UAC, error) {
	if core.closed.Load() {
		return nil, errtrace.Wrap(ErrTransactionLayerClosed)
	}
	if dlg == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("invalid dialog"))
	}

	msg, err := dlg.NewRequest(method, opts.dlgReqOpts())
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	msg.Headers.Set(header.Via{core.newViaHop(opts.localAddr())})

	req := NewOutboundRequest(msg)
	if opts != nil {
		if opts.LocalAddr.IsValid() {
			req.SetLocalAddr(opts.LocalAddr)
		}
		if opts.RemoteAddr.IsValid() {
			req.SetRemoteAddr(opts.RemoteAddr)
		}
	}

	var (
		delegate *UACDelegate
		sendOpts *SendRequestOptions
	)
	if opts != nil {
		delegate = opts.Delegate
		sendOpts = opts.SendOptions
	}
	return errtrace.Wrap2(NewUAC(ctx, core.txl, core.tp, req, &UACOptions{
		Authenticator:      core.auth,
		Delegate:           delegate,
		TransactionOptions: &ClientTransactionOptions{SendOptions: sendOpts, Log: core.log},
		Log:                core.log,
	}))
}

func (o *DialogSendOptions) localAddr() netip.AddrPort {
	if o == nil {
		return netip.AddrPort{}
	}
	return o.LocalAddr
}

func (core *UserAgentCore) newViaHop(locAddr netip.AddrPort) header.ViaHop {
	hop := header.ViaHop{
		Proto:  ProtoVer20(),
		Params: make(header.Values).Set("branch", core.ident.Branch()),
	}
	if proto, ok := GetTransportProto(core.tp); ok {
		hop.Transport = proto
	}
	if locAddr.IsValid() {
		hop.Addr = header.HostPort(locAddr.Addr().String(), locAddr.Port())
	}
	return hop
}

// SendAck acknowledges a 2xx response inside its dialog. The ACK goes
// directly through the client transport and bypasses the transaction
// layer (RFC 3261 Section 13.2.2.4, RFC 6026).
func (core *UserAgentCore) SendAck(
	ctx context.Context,
	dlg *Dialog,
	res *InboundResponse,
	opts *DialogSendOptions,
) error {
	if dlg == nil || res == nil {
		return errtrace.Wrap(NewInvalidArgumentError("invalid dialog or response"))
	}
	cseq, ok := res.Headers().CSeq()
	if !ok {
		return errtrace.Wrap(newMissHdrErr("CSeq"))
	}

	msg, err := dlg.NewRequest(RequestMethodAck, &DialogRequestOptions{
		Headers: opts.headers(),
		Body:    opts.body(),
		SeqNum:  cseq.SeqNum,
	})
	if err != nil {
		return errtrace.Wrap(err)
	}

	// ACK for a 2xx opens its own branch
	msg.Headers.Set(header.Via{core.newViaHop(res.LocalAddr())})

	req := NewOutboundRequest(msg)
	req.SetLocalAddr(res.LocalAddr())
	req.SetRemoteAddr(res.RemoteAddr())
	return errtrace.Wrap(core.tp.SendRequest(ctx, req, opts.sendOpts()))
}

func (o *DialogSendOptions) headers() Headers {
	if o == nil {
		return nil
	}
	return o.Headers
}

func (o *DialogSendOptions) body() []byte {
	if o == nil {
		return nil
	}
	return o.Body
}

func (o *DialogSendOptions) sendOpts() *SendRequestOptions {
	if o == nil {
		return nil
	}
	return o.SendOptions
}
