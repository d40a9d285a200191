package sip

import (
	"encoding/json"
	"io"
	"iter"
	"maps"
	"slices"
	"strings"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipcore/header"
	"github.com/ghettovoice/sipcore/internal/errorutil"
	"github.com/ghettovoice/sipcore/internal/ioutil"
	"github.com/ghettovoice/sipcore/internal/util"
)

// Headers is a collection of SIP message headers keyed by canonical header name.
// Each entry keeps the headers of one name in their original order.
type Headers map[HeaderName][]Header

// Set replaces all headers with the same name by the given header.
// It returns the receiver to allow chaining.
func (hs Headers) Set(hdr Header) Headers {
	if hdr == nil {
		return hs
	}
	hs[hdr.CanonicName()] = []Header{hdr}
	return hs
}

// Append adds the header after any headers with the same name.
// It returns the receiver to allow chaining.
func (hs Headers) Append(hdr Header) Headers {
	if hdr == nil {
		return hs
	}
	name := hdr.CanonicName()
	hs[name] = append(hs[name], hdr)
	return hs
}

// Get returns all headers with the given name.
// The name may be given in any case or compact form.
func (hs Headers) Get(name HeaderName) []Header {
	return hs[CanonicHeaderName(name)]
}

// Has returns whether at least one header with the given name is present.
func (hs Headers) Has(name HeaderName) bool {
	return len(hs[CanonicHeaderName(name)]) > 0
}

// Del removes all headers with the given name.
// It returns the receiver to allow chaining.
func (hs Headers) Del(name HeaderName) Headers {
	delete(hs, CanonicHeaderName(name))
	return hs
}

// CopyFrom deep-copies all headers with the given names from the source collection.
// It returns the receiver to allow chaining.
func (hs Headers) CopyFrom(src Headers, name HeaderName, names ...HeaderName) Headers {
	for _, n := range append([]HeaderName{name}, names...) {
		n = CanonicHeaderName(n)
		for _, h := range src[n] {
			hs[n] = append(hs[n], h.Clone())
		}
	}
	return hs
}

// Clone returns a deep copy of the headers.
func (hs Headers) Clone() Headers {
	if hs == nil {
		return nil
	}
	hs2 := make(Headers, len(hs))
	for n, hdrs := range hs {
		hdrs2 := make([]Header, len(hdrs))
		for i, h := range hdrs {
			hdrs2[i] = h.Clone()
		}
		hs2[n] = hdrs2
	}
	return hs2
}

func firstHdr[T Header](hs Headers, name HeaderName) (T, bool) {
	for _, h := range hs[name] {
		if v, ok := h.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Via iterates over all Via hops in topmost-first order.
func (hs Headers) Via() iter.Seq[*header.ViaHop] {
	return func(yield func(*header.ViaHop) bool) {
		for _, h := range hs["Via"] {
			via, ok := h.(header.Via)
			if !ok {
				continue
			}
			for i := range via {
				if !yield(&via[i]) {
					return
				}
			}
		}
	}
}

// FirstVia returns the topmost Via hop.
func (hs Headers) FirstVia() (*header.ViaHop, bool) {
	return util.IterFirst(hs.Via())
}

// From returns the From header.
func (hs Headers) From() (*header.From, bool) { return firstHdr[*header.From](hs, "From") }

// To returns the To header.
func (hs Headers) To() (*header.To, bool) { return firstHdr[*header.To](hs, "To") }

// CallID returns the Call-ID header.
func (hs Headers) CallID() (header.CallID, bool) { return firstHdr[header.CallID](hs, "Call-ID") }

// CSeq returns the CSeq header.
func (hs Headers) CSeq() (*header.CSeq, bool) { return firstHdr[*header.CSeq](hs, "CSeq") }

// MaxForwards returns the Max-Forwards header.
func (hs Headers) MaxForwards() (header.MaxForwards, bool) {
	return firstHdr[header.MaxForwards](hs, "Max-Forwards")
}

// ContentLength returns the Content-Length header.
func (hs Headers) ContentLength() (header.ContentLength, bool) {
	return firstHdr[header.ContentLength](hs, "Content-Length")
}

// ContentType returns the Content-Type header.
func (hs Headers) ContentType() (*header.ContentType, bool) {
	return firstHdr[*header.ContentType](hs, "Content-Type")
}

// Contact returns the Contact header.
func (hs Headers) Contact() (header.Contact, bool) {
	return firstHdr[header.Contact](hs, "Contact")
}

// Expires returns the Expires header.
func (hs Headers) Expires() (*header.Expires, bool) {
	return firstHdr[*header.Expires](hs, "Expires")
}

// MinExpires returns the Min-Expires header.
func (hs Headers) MinExpires() (*header.MinExpires, bool) {
	return firstHdr[*header.MinExpires](hs, "Min-Expires")
}

// Timestamp returns the Timestamp header.
func (hs Headers) Timestamp() (*header.Timestamp, bool) {
	return firstHdr[*header.Timestamp](hs, "Timestamp")
}

// RetryAfter returns the Retry-After header.
func (hs Headers) RetryAfter() (*header.RetryAfter, bool) {
	return firstHdr[*header.RetryAfter](hs, "Retry-After")
}

func hopsSeq(hs Headers, name HeaderName) iter.Seq[*header.RouteHop] {
	return func(yield func(*header.RouteHop) bool) {
		for _, h := range hs[name] {
			var hops []header.RouteHop
			switch v := h.(type) {
			case header.Route:
				hops = v
			case header.RecordRoute:
				hops = v
			default:
				continue
			}
			for i := range hops {
				if !yield(&hops[i]) {
					return
				}
			}
		}
	}
}

// Route iterates over all Route hops in topmost-first order.
func (hs Headers) Route() iter.Seq[*header.RouteHop] { return hopsSeq(hs, "Route") }

// RecordRoute iterates over all Record-Route hops in topmost-first order.
func (hs Headers) RecordRoute() iter.Seq[*header.RouteHop] { return hopsSeq(hs, "Record-Route") }

// Event returns the Event header.
func (hs Headers) Event() (*header.Event, bool) { return firstHdr[*header.Event](hs, "Event") }

// SubscriptionState returns the Subscription-State header.
func (hs Headers) SubscriptionState() (*header.SubscriptionState, bool) {
	return firstHdr[*header.SubscriptionState](hs, "Subscription-State")
}

// RSeq returns the RSeq header.
func (hs Headers) RSeq() (header.RSeq, bool) { return firstHdr[header.RSeq](hs, "RSeq") }

// RAck returns the RAck header.
func (hs Headers) RAck() (*header.RAck, bool) { return firstHdr[*header.RAck](hs, "RAck") }

// Allow returns the Allow header.
func (hs Headers) Allow() (header.Allow, bool) { return firstHdr[header.Allow](hs, "Allow") }

// Require returns the Require header.
func (hs Headers) Require() (header.Require, bool) {
	return firstHdr[header.Require](hs, "Require")
}

// Supported returns the Supported header.
func (hs Headers) Supported() (header.Supported, bool) {
	return firstHdr[header.Supported](hs, "Supported")
}

// SIPETag returns the SIP-ETag header.
func (hs Headers) SIPETag() (header.SIPETag, bool) {
	return firstHdr[header.SIPETag](hs, "SIP-ETag")
}

// SIPIfMatch returns the SIP-If-Match header.
func (hs Headers) SIPIfMatch() (header.SIPIfMatch, bool) {
	return firstHdr[header.SIPIfMatch](hs, "SIP-If-Match")
}

// WWWAuthenticate returns the WWW-Authenticate header.
func (hs Headers) WWWAuthenticate() (*header.WWWAuthenticate, bool) {
	return firstHdr[*header.WWWAuthenticate](hs, "WWW-Authenticate")
}

// ProxyAuthenticate returns the Proxy-Authenticate header.
func (hs Headers) ProxyAuthenticate() (*header.ProxyAuthenticate, bool) {
	return firstHdr[*header.ProxyAuthenticate](hs, "Proxy-Authenticate")
}

// Authorization returns the Authorization header.
func (hs Headers) Authorization() (*header.Authorization, bool) {
	return firstHdr[*header.Authorization](hs, "Authorization")
}

// ProxyAuthorization returns the Proxy-Authorization header.
func (hs Headers) ProxyAuthorization() (*header.ProxyAuthorization, bool) {
	return firstHdr[*header.ProxyAuthorization](hs, "Proxy-Authorization")
}

// AuthenticationInfo returns the Authentication-Info header.
func (hs Headers) AuthenticationInfo() (*header.AuthenticationInfo, bool) {
	return firstHdr[*header.AuthenticationInfo](hs, "Authentication-Info")
}

func (hs Headers) MarshalJSON() ([]byte, error) {
	data := make(map[string][]string, len(hs))
	for n, hdrs := range hs {
		vals := make([]string, len(hdrs))
		for i, h := range hdrs {
			vals[i] = h.RenderValue()
		}
		data[string(n)] = vals
	}
	return errtrace.Wrap2(json.Marshal(data))
}

func (hs *Headers) UnmarshalJSON(data []byte) error {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return errtrace.Wrap(err)
	}

	hs2 := make(Headers, len(raw))
	for n, vals := range raw {
		for _, v := range vals {
			h, err := header.FromNameValue(n, v)
			if err != nil {
				return errtrace.Wrap(err)
			}
			hs2.Append(h)
		}
	}
	*hs = hs2
	return nil
}

// Header names rendered before all others, in this order.
var hdrRenderPriority = map[HeaderName]int{
	"Via":            -9,
	"Record-Route":   -8,
	"Route":          -7,
	"From":           -6,
	"To":             -5,
	"Call-ID":        -4,
	"CSeq":           -3,
	"Max-Forwards":   -2,
	"Contact":        -1,
	"Content-Length": 1,
}

func renderHdrs(w io.Writer, hs Headers, opts *RenderOptions) (num int, err error) {
	names := slices.Collect(maps.Keys(hs))
	slices.SortFunc(names, func(a, b HeaderName) int {
		if d := hdrRenderPriority[a] - hdrRenderPriority[b]; d != 0 {
			return d
		}
		return strings.Compare(string(a), string(b))
	})

	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	for _, n := range names {
		for _, h := range hs[n] {
			cw.Call(func(w io.Writer) (int, error) {
				return errtrace.Wrap2(h.RenderTo(w, opts))
			})
			cw.Fprint("\r\n")
		}
	}
	return errtrace.Wrap2(cw.Result())
}

func compareHdrs(hs1, hs2 Headers) bool {
	if len(hs1) != len(hs2) {
		return false
	}
	for n, hdrs1 := range hs1 {
		hdrs2, ok := hs2[n]
		if !ok || len(hdrs1) != len(hdrs2) {
			return false
		}
		for i, h := range hdrs1 {
			if !h.Equal(hdrs2[i]) {
				return false
			}
		}
	}
	return true
}

func validateHdrs(hs Headers) error {
	var errs []error
	for n, hdrs := range hs {
		for _, h := range hdrs {
			if !h.IsValid() {
				errs = append(errs, errorutil.Errorf("invalid %q header", n))
			}
		}
	}
	if len(errs) > 0 {
		return errtrace.Wrap(errorutil.Join(errs...))
	}
	return nil
}

func newMissHdrErr(name HeaderName) error {
	return errorutil.NewWrapperError(errMissHdrs, &missingHeaderError{Header: string(name)}) //errtrace:skip
}
