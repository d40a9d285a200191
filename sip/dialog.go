package sip

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipcore/header"
	"github.com/ghettovoice/sipcore/internal/errorutil"
	"github.com/ghettovoice/sipcore/internal/util"
	"github.com/ghettovoice/sipcore/uri"
)

// DialogID identifies a dialog by the Call-ID and the local/remote tags
// (RFC 3261 Section 12).
type DialogID struct {
	CallID    string `json:"call_id"`
	LocalTag  string `json:"local_tag"`
	RemoteTag string `json:"remote_tag"`
}

var zeroDialogID DialogID

// IsValid checks whether the ID is complete.
func (id DialogID) IsValid() bool {
	return id.CallID != "" && id.LocalTag != "" && id.RemoteTag != ""
}

// IsZero checks whether the ID is zero.
func (id DialogID) IsZero() bool { return id == zeroDialogID }

func (id DialogID) String() string {
	return id.CallID + ":" + id.LocalTag + ":" + id.RemoteTag
}

// LogValue returns a [slog.Value] for the ID.
func (id DialogID) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("call_id", id.CallID),
		slog.String("local_tag", id.LocalTag),
		slog.String("remote_tag", id.RemoteTag),
	)
}

func (id DialogID) MarshalBinary() ([]byte, error) {
	size := util.SizePrefixedString(id.CallID) +
		util.SizePrefixedString(id.LocalTag) +
		util.SizePrefixedString(id.RemoteTag)

	buf := make([]byte, 0, size)
	buf = util.AppendPrefixedString(buf, id.CallID)
	buf = util.AppendPrefixedString(buf, id.LocalTag)
	buf = util.AppendPrefixedString(buf, id.RemoteTag)
	return buf, nil
}

func (id *DialogID) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		return errtrace.Wrap(NewInvalidArgumentError("invalid data"))
	}

	var err error
	if id.CallID, data, err = util.ConsumePrefixedString(data); err != nil {
		return errtrace.Wrap(NewInvalidArgumentError(err))
	}
	if id.LocalTag, data, err = util.ConsumePrefixedString(data); err != nil {
		return errtrace.Wrap(NewInvalidArgumentError(err))
	}
	if id.RemoteTag, _, err = util.ConsumePrefixedString(data); err != nil {
		return errtrace.Wrap(NewInvalidArgumentError(err))
	}
	return nil
}

// GetUACDialogID builds the dialog ID from the point of view of the request
// sender: local tag from From, remote tag from To.
func GetUACDialogID(hdrs Headers) (DialogID, error) {
	return errtrace.Wrap2(getDialogID(hdrs, false))
}

// GetUASDialogID builds the dialog ID from the point of view of the request
// receiver: local tag from To, remote tag from From.
func GetUASDialogID(hdrs Headers) (DialogID, error) {
	return errtrace.Wrap2(getDialogID(hdrs, true))
}

func getDialogID(hdrs Headers, uas bool) (DialogID, error) {
	callID, ok := hdrs.CallID()
	if !ok {
		return zeroDialogID, errtrace.Wrap(newMissHdrErr("Call-ID"))
	}
	from, ok := hdrs.From()
	if !ok {
		return zeroDialogID, errtrace.Wrap(newMissHdrErr("From"))
	}
	to, ok := hdrs.To()
	if !ok {
		return zeroDialogID, errtrace.Wrap(newMissHdrErr("To"))
	}

	fromTag, _ := from.Tag()
	toTag, _ := to.Tag()
	id := DialogID{
		CallID:    string(callID),
		LocalTag:  fromTag,
		RemoteTag: toTag,
	}
	if uas {
		id.LocalTag, id.RemoteTag = id.RemoteTag, id.LocalTag
	}
	return id, nil
}

// Dialog holds the peer-to-peer state shared by requests within one
// SIP dialog (RFC 3261 Section 12): tags, sequence numbers, route set
// and the remote target.
type Dialog struct {
	mu sync.RWMutex

	id     DialogID
	uac    bool
	early  bool
	secure bool

	localSeq  uint
	remoteSeq uint

	localURI  uri.URI
	remoteURI uri.URI

	remoteTarget uri.URI
	routeSet     []header.RouteHop
}

// NewDialogUAC builds a dialog on the caller side from the sent request and
// the received response that created the dialog (RFC 3261 Section 12.1.2).
// The route set is the reversed Record-Route set of the response.
func NewDialogUAC(req *OutboundRequest, res *InboundResponse) (*Dialog, error) {
	if req == nil || res == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("nil request or response"))
	}

	reqHdrs := req.Headers()
	resHdrs := res.Headers()
	id, err := GetUACDialogID(resHdrs)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	if !id.IsValid() {
		return nil, errtrace.Wrap(NewInvalidMessageError("incomplete dialog id"))
	}
	cseq, ok := reqHdrs.CSeq()
	if !ok {
		return nil, errtrace.Wrap(newMissHdrErr("CSeq"))
	}
	from, ok := reqHdrs.From()
	if !ok {
		return nil, errtrace.Wrap(newMissHdrErr("From"))
	}
	to, ok := reqHdrs.To()
	if !ok {
		return nil, errtrace.Wrap(newMissHdrErr("To"))
	}

	d := &Dialog{
		id:        id,
		uac:       true,
		early:     res.Status().IsProvisional(),
		localSeq:  cseq.SeqNum,
		localURI:  from.URI,
		remoteURI: to.URI,
	}
	if u, ok := req.URI().(*uri.SIP); ok {
		d.secure = u.Secured
	}
	d.remoteTarget = remoteTargetFromHdrs(resHdrs, req.URI())
	d.routeSet = routeSetFromHdrs(resHdrs, true)
	return d, nil
}

// NewDialogUAS builds a dialog on the callee side from the received request
// (RFC 3261 Section 12.1.1). The dialog stays early until [Dialog.Confirm].
// The route set keeps the Record-Route order of the request.
func NewDialogUAS(req *InboundRequest, localTag string) (*Dialog, error) {
	if req == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("nil request"))
	}
	if localTag == "" {
		return nil, errtrace.Wrap(NewInvalidArgumentError("empty local tag"))
	}

	hdrs := req.Headers()
	callID, ok := hdrs.CallID()
	if !ok {
		return nil, errtrace.Wrap(newMissHdrErr("Call-ID"))
	}
	from, ok := hdrs.From()
	if !ok {
		return nil, errtrace.Wrap(newMissHdrErr("From"))
	}
	to, ok := hdrs.To()
	if !ok {
		return nil, errtrace.Wrap(newMissHdrErr("To"))
	}
	cseq, ok := hdrs.CSeq()
	if !ok {
		return nil, errtrace.Wrap(newMissHdrErr("CSeq"))
	}

	remoteTag, _ := from.Tag()
	if remoteTag == "" {
		return nil, errtrace.Wrap(NewInvalidMessageError("missing From tag"))
	}

	d := &Dialog{
		id: DialogID{
			CallID:    string(callID),
			LocalTag:  localTag,
			RemoteTag: remoteTag,
		},
		early:     true,
		remoteSeq: cseq.SeqNum,
		localURI:  to.URI,
		remoteURI: from.URI,
	}
	if u, ok := req.URI().(*uri.SIP); ok {
		d.secure = u.Secured
	}
	d.remoteTarget = remoteTargetFromHdrs(hdrs, req.URI())
	d.routeSet = routeSetFromHdrs(hdrs, false)
	return d, nil
}

func remoteTargetFromHdrs(hdrs Headers, fallback URI) uri.URI {
	if cnt, ok := hdrs.Contact(); ok && len(cnt) > 0 && cnt[0].URI != nil {
		return cnt[0].URI
	}
	return fallback
}

func routeSetFromHdrs(hdrs Headers, reverse bool) []header.RouteHop {
	var hops []header.RouteHop
	for hop := range hdrs.RecordRoute() {
		hops = append(hops, *hop)
	}
	if reverse {
		slices.Reverse(hops)
	}
	return hops
}

// ID returns the dialog ID.
func (d *Dialog) ID() DialogID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.id
}

// Early reports whether the dialog is still in the early state.
func (d *Dialog) Early() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.early
}

// Secure reports whether the dialog requires a sips remote target.
func (d *Dialog) Secure() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.secure
}

// Confirm moves the dialog out of the early state.
func (d *Dialog) Confirm() {
	d.mu.Lock()
	d.early = false
	d.mu.Unlock()
}

// LocalSeq returns the last local sequence number.
func (d *Dialog) LocalSeq() uint {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.localSeq
}

// RemoteSeq returns the last seen remote sequence number.
func (d *Dialog) RemoteSeq() uint {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.remoteSeq
}

// LocalURI returns the local party URI.
func (d *Dialog) LocalURI() uri.URI { return d.localURI }

// RemoteURI returns the remote party URI.
func (d *Dialog) RemoteURI() uri.URI { return d.remoteURI }

// RemoteTarget returns the current remote target URI.
func (d *Dialog) RemoteTarget() uri.URI {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.remoteTarget
}

// RouteSet returns a copy of the dialog route set.
func (d *Dialog) RouteSet() []header.RouteHop {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.routeSet)
}

// RecomputeRouteSet rebuilds the route set and the remote target from
// another response of the same early dialog. Confirmed dialogs are left
// untouched, sequence numbers are never modified.
func (d *Dialog) RecomputeRouteSet(res *InboundResponse) error {
	if res == nil {
		return errtrace.Wrap(NewInvalidArgumentError("nil response"))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.early {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrActionNotAllowed, "dialog already confirmed"))
	}

	hdrs := res.Headers()
	d.routeSet = routeSetFromHdrs(hdrs, d.uac)
	d.remoteTarget = remoteTargetFromHdrs(hdrs, d.remoteTarget)
	return nil
}

// SequenceGuard validates the CSeq of an in-dialog request against the
// remote sequence number (RFC 3261 Section 12.2.2). Requests below the
// last seen number fail with [ErrOutOfOrder], the caller is expected to
// answer them with a 500. ACK and CANCEL share the INVITE number and pass.
func (d *Dialog) SequenceGuard(req *InboundRequest) error {
	if req == nil {
		return errtrace.Wrap(NewInvalidArgumentError("nil request"))
	}
	cseq, ok := req.Headers().CSeq()
	if !ok {
		return errtrace.Wrap(newMissHdrErr("CSeq"))
	}
	mtd := req.Method()
	if mtd.Equal(RequestMethodAck) || mtd.Equal(RequestMethodCancel) {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.remoteSeq != 0 && cseq.SeqNum < d.remoteSeq {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrOutOfOrder,
			fmt.Sprintf("got CSeq %d, last seen %d", cseq.SeqNum, d.remoteSeq)))
	}
	d.remoteSeq = cseq.SeqNum
	return nil
}

// DialogRequestOptions customizes requests built by [Dialog.NewRequest].
type DialogRequestOptions struct {
	// Headers are appended to the generated ones.
	Headers Headers
	// Body of the request.
	Body []byte
	// SeqNum overrides the sequence number, used by ACK and CANCEL
	// to reuse the number of the INVITE they belong to.
	SeqNum uint
}

func (o *DialogRequestOptions) headers() Headers {
	if o == nil {
		return nil
	}
	return o.Headers
}

func (o *DialogRequestOptions) body() []byte {
	if o == nil {
		return nil
	}
	return o.Body
}

func (o *DialogRequestOptions) seqNum() uint {
	if o == nil {
		return 0
	}
	return o.SeqNum
}

// NewRequest builds an in-dialog request (RFC 3261 Section 12.2.1.1).
//
// The local sequence number is incremented unless the method is ACK or
// CANCEL, which reuse the number of the INVITE they belong to. The route
// set decides between loose and strict routing by the lr parameter of the
// first route URI. The Via header is left for the sending layer to fill.
func (d *Dialog) NewRequest(method RequestMethod, opts *DialogRequestOptions) (*Request, error) {
	if method == "" {
		return nil, errtrace.Wrap(NewInvalidArgumentError("empty method"))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	seqNum := opts.seqNum()
	if seqNum == 0 {
		if method.Equal(RequestMethodAck) || method.Equal(RequestMethodCancel) {
			seqNum = d.localSeq
		} else {
			d.localSeq++
			seqNum = d.localSeq
		}
	}

	hdrs := make(Headers).
		Set(&header.From{
			URI:    d.localURI,
			Params: make(header.Values).Set("tag", d.id.LocalTag),
		}).
		Set(&header.To{
			URI:    d.remoteURI,
			Params: make(header.Values).Set("tag", d.id.RemoteTag),
		}).
		Set(header.CallID(d.id.CallID)).
		Set(&header.CSeq{SeqNum: seqNum, Method: method}).
		Set(header.MaxForwards(70))

	ruri := d.remoteTarget
	if len(d.routeSet) > 0 {
		if uriHasLR(d.routeSet[0].URI) {
			hdrs.Set(header.Route(slices.Clone(d.routeSet)))
		} else {
			// strict routing: the first route becomes the request URI and
			// the remote target goes to the end of the Route set
			ruri = d.routeSet[0].URI
			route := make(header.Route, 0, len(d.routeSet))
			route = append(route, d.routeSet[1:]...)
			route = append(route, header.RouteHop{URI: d.remoteTarget})
			hdrs.Set(route)
		}
	}

	for _, list := range opts.headers() {
		for _, hdr := range list {
			hdrs.Append(hdr)
		}
	}

	return &Request{
		Method:  method,
		URI:     ruri,
		Proto:   ProtoVer20(),
		Headers: hdrs,
		Body:    opts.body(),
	}, nil
}

func uriHasLR(u uri.URI) bool {
	if su, ok := u.(*uri.SIP); ok {
		return su.LR()
	}
	return false
}
