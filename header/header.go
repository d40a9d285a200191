package header

//go:generate go tool errtrace -w .

import (
	"encoding/json"
	"fmt"
	"io"
	"net/textproto"
	"slices"
	"strings"
	"sync"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipcore/internal/errorutil"
	"github.com/ghettovoice/sipcore/internal/grammar"
	"github.com/ghettovoice/sipcore/internal/ioutil"
	"github.com/ghettovoice/sipcore/internal/types"
	"github.com/ghettovoice/sipcore/internal/util"
)

// Addr represents a network address consisting of a host and optional port.
type Addr = types.Addr

// Host creates an Addr from a hostname without a port.
func Host(host string) Addr { return types.Host(host) }

// HostPort creates an Addr from a hostname and port.
func HostPort(host string, port uint16) Addr { return types.HostPort(host, port) }

// ParseAddr parses a network address from the given input s (string or []byte).
func ParseAddr[T ~string | ~[]byte](s T) (Addr, error) { return errtrace.Wrap2(types.ParseAddr(s)) }

// Values represents header parameters as a multi-value map.
type Values = types.Values

// ProtoInfo represents SIP protocol information (name and version).
type ProtoInfo = types.ProtoInfo

// TransportProto represents a transport protocol (UDP, TCP, TLS, SCTP, WS, WSS).
type TransportProto = types.TransportProto

// RequestMethod represents a SIP request method (INVITE, ACK, BYE, etc.).
type RequestMethod = types.RequestMethod

// RenderOptions contains options for rendering headers and URIs.
type RenderOptions = types.RenderOptions

// Header represents a generic SIP header.
type Header interface {
	types.Renderer
	types.Cloneable[Header]
	types.ValidFlag
	types.Equalable
	CanonicName() Name
	CompactName() Name
	RenderValue() string
}

// Name represents a SIP header name.
type Name string

// ToCanonic converts the Name to its canonical form.
func (n Name) ToCanonic() Name { return CanonicName(n) }

// IsValid checks whether the Name is syntactically valid.
func (n Name) IsValid() bool { return grammar.IsToken(n) }

// Equal compares this Name with another for equality.
func (n Name) Equal(val any) bool {
	var other Name
	switch v := val.(type) {
	case Name:
		other = v
	case *Name:
		if v == nil {
			return false
		}
		other = *v
	default:
		return false
	}
	return CanonicName(n) == CanonicName(other)
}

var hdrNames = map[string]Name{
	"c":                "Content-Type",
	"e":                "Content-Encoding",
	"f":                "From",
	"i":                "Call-ID",
	"k":                "Supported",
	"l":                "Content-Length",
	"m":                "Contact",
	"o":                "Event",
	"s":                "Subject",
	"t":                "To",
	"v":                "Via",
	"Call-Id":          "Call-ID",
	"Cseq":             "CSeq",
	"Mime-Version":     "MIME-Version",
	"Rack":             "RAck",
	"Rseq":             "RSeq",
	"Sip-Etag":         "SIP-ETag",
	"Sip-If-Match":     "SIP-If-Match",
	"Www-Authenticate": "WWW-Authenticate",
}

// CanonicName converts name to the canonical form.
// The canonicalization converts the first letter and any letter following a hyphen to upper case;
// the rest are converted to lowercase. For example, the canonical name for "accept-encoding" is "Accept-Encoding".
// Also, any compact name is converted to its full canonical form. For example, "c" converts to "Content-Type".
func CanonicName[T ~string](name T) Name {
	name = util.TrimSP(name)
	if n, ok := hdrNames[string(name)]; ok {
		return n
	}

	name = T(textproto.CanonicalMIMEHeaderKey(string(name)))
	if n, ok := hdrNames[string(name)]; ok {
		return n
	}
	return Name(name)
}

func renderHdrEntries[H ~[]E, E any](w io.Writer, hdr H) (num int, err error) {
	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	for i := range hdr {
		if i > 0 {
			cw.Fprint(", ")
		}
		cw.Fprint(hdr[i])
	}
	return errtrace.Wrap2(cw.Result())
}

func renderHdrParams(w io.Writer, params Values, addQParam bool) (num int, err error) {
	if len(params) == 0 {
		return 0, nil
	}

	// Sort parameters in alphabet order, but with "q" parameter always the first place.
	// If missing the "q" param, then dump it with the default value.
	// RFC 2616 Section 14.1.
	var kvs [][]string //nolint:prealloc
	if addQParam && !params.Has("q") {
		kvs = append(kvs, []string{"q", "1"})
	}
	for k := range params {
		v, _ := params.Last(k)
		kvs = append(kvs, []string{util.LCase(k), v})
	}
	slices.SortFunc(kvs, func(a, b []string) int {
		if a[0] == "q" && b[0] != "q" {
			return -1
		} else if a[0] != "q" && b[0] == "q" {
			return 1
		}
		return util.CmpKVs(a, b)
	})

	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	for _, kv := range kvs {
		cw.Fprint(";", kv[0])
		if kv[1] != "" {
			cw.Fprint("=", kv[1])
		}
	}
	return errtrace.Wrap2(cw.Result())
}

func compareHdrParams(params1, params2 Values, specParams map[string]bool) bool {
	switch {
	case len(params1) == 0 && len(params2) == 0:
		return true
	case len(params1) == 0:
		return !hasSpecHdrParam(params2, specParams)
	case len(params2) == 0:
		return !hasSpecHdrParam(params1, specParams)
	}

	checked := map[string]bool{}
	// Any non-special parameters appearing in only one list are ignored.
	// First, traverse over self-parameters, compare values appearing in both lists,
	// check on speciality and save checked param names.
	for k := range params1 {
		if params2.Has(k) {
			// Any parameter appearing in both URIs must match.
			v1, _ := params1.Last(k)
			v2, _ := params2.Last(k)
			if !grammar.IsQuoted(v1) {
				v1 = util.LCase(v1)
			}
			if !grammar.IsQuoted(v1) {
				v2 = util.LCase(v2)
			}
			if v1 != v2 {
				return false
			}
		} else if specParams[util.LCase(k)] {
			// Any special SIP URI parameter appearing in one URI must appear in the other.
			return false
		}
		checked[util.LCase(k)] = true
	}
	// Then need only check that there are no non-checked special parameters in the other list.
	for k := range specParams {
		if checked[k] {
			continue
		}
		if params2.Has(k) {
			return false
		}
	}
	return true
}

func hasSpecHdrParam(params Values, specParams map[string]bool) bool {
	for k := range specParams {
		if params.Has(k) {
			return true
		}
	}
	return false
}

func validateHdrParams(params Values) bool {
	for k := range params {
		if !grammar.IsToken(k) {
			return false
		}
		v, _ := params.Last(k)
		if v != "" && !(grammar.IsToken(v) || grammar.IsHost(v) || grammar.IsQuoted(v)) {
			return false
		}
	}
	return true
}

func cloneHdrEntries[H ~[]E, E interface{ Clone() E }](hdr H) H {
	var hdr2 H
	if hdr == nil {
		return hdr2
	}
	hdr2 = make(H, len(hdr))
	for i := range hdr {
		hdr2[i] = hdr[i].Clone()
	}
	return hdr2
}

// Parser is a function type for parsing a custom SIP header.
type Parser func(name string, value []byte) Header

var customParsers sync.Map // map[string]Parser

// RegisterParser registers a custom SIP header parser.
func RegisterParser(name string, parser Parser) {
	customParsers.Store(util.LCase(name), parser)
}

// UnregisterParser unregisters a custom SIP header parser.
func UnregisterParser(name string) {
	customParsers.Delete(util.LCase(name))
}

// Parse parses a SIP header from the given input s (string or []byte) and
// returns the parsed header as an instance of [Header].
// If the parsing fails, an error is returned along with nil as the header value.
//
// Example usage:
//
//	hdr, err := header.Parse("From: <sip:alice@example.com;foo>;tag=qwerty")
func Parse[T ~string | ~[]byte](s T) (Header, error) {
	if len(s) == 0 {
		return nil, errtrace.Wrap(fmt.Errorf("parse header: %w", grammar.ErrEmptyInput))
	}
	name, value, ok := strings.Cut(string(s), ":")
	if !ok {
		return nil, errtrace.Wrap(fmt.Errorf("missing header name separator: %w", grammar.ErrMalformedInput))
	}
	return errtrace.Wrap2(FromNameValue(name, value))
}

// FromNameValue creates a Header from a header name and its raw value.
// The name may be given in any case or compact form, the value without
// the leading colon. Unknown header names and standard header values that
// do not match the header grammar produce an [Any] header.
func FromNameValue[T ~string | ~[]byte](name string, value T) (Header, error) {
	cname := CanonicName(name)
	name = util.TrimSP(name)
	if !Name(name).IsValid() {
		return nil, errtrace.Wrap(fmt.Errorf("invalid header name %q: %w", name, grammar.ErrMalformedInput))
	}

	val := util.TrimSP(string(value))
	if hdr, ok := parseStdHdrValue(cname, val); ok {
		return hdr, nil
	}
	if prs, ok := customParsers.Load(util.LCase(name)); ok && prs != nil {
		//nolint:forcetypeassert
		if hdr := prs.(Parser)(name, []byte(val)); hdr != nil {
			return hdr, nil
		}
	}
	return &Any{Name: name, Value: val}, nil
}

// parseStdHdrValue parses the value of a standard header.
// It reports false when the name is not standard or the value does not
// match the header grammar.
func parseStdHdrValue(name Name, val string) (Header, bool) {
	var (
		hdr Header
		err error
	)
	switch name {
	case "Allow":
		hdr, err = parseAllowValue(val)
	case "Authentication-Info":
		hdr, err = parseAuthenticationInfoValue(val)
	case "Authorization":
		hdr, err = parseAuthorizationValue(val)
	case "Call-ID":
		hdr, err = parseCallIDValue(val)
	case "Contact":
		hdr, err = parseContactValue(val)
	case "Content-Length":
		hdr, err = parseContentLengthValue(val)
	case "Content-Type":
		hdr, err = parseContentTypeValue(val)
	case "CSeq":
		hdr, err = parseCSeqValue(val)
	case "Event":
		hdr, err = parseEventValue(val)
	case "Expires":
		hdr, err = parseExpiresValue(val)
	case "From":
		hdr, err = parseFromValue(val)
	case "Max-Forwards":
		hdr, err = parseMaxForwardsValue(val)
	case "Min-Expires":
		hdr, err = parseMinExpiresValue(val)
	case "Proxy-Authenticate":
		hdr, err = parseProxyAuthenticateValue(val)
	case "Proxy-Authorization":
		hdr, err = parseProxyAuthorizationValue(val)
	case "RAck":
		hdr, err = parseRAckValue(val)
	case "Record-Route":
		hdr, err = parseRecordRouteValue(val)
	case "Require":
		hdr, err = parseRequireValue(val)
	case "Retry-After":
		hdr, err = parseRetryAfterValue(val)
	case "Route":
		hdr, err = parseRouteValue(val)
	case "RSeq":
		hdr, err = parseRSeqValue(val)
	case "Server":
		hdr, err = parseServerValue(val)
	case "SIP-ETag":
		hdr, err = parseSIPETagValue(val)
	case "SIP-If-Match":
		hdr, err = parseSIPIfMatchValue(val)
	case "Subscription-State":
		hdr, err = parseSubscriptionStateValue(val)
	case "Supported":
		hdr, err = parseSupportedValue(val)
	case "Timestamp":
		hdr, err = parseTimestampValue(val)
	case "To":
		hdr, err = parseToValue(val)
	case "Unsupported":
		hdr, err = parseUnsupportedValue(val)
	case "User-Agent":
		hdr, err = parseUserAgentValue(val)
	case "Via":
		hdr, err = parseViaValue(val)
	case "WWW-Authenticate":
		hdr, err = parseWWWAuthenticateValue(val)
	default:
		return nil, false
	}
	if err != nil {
		return nil, false
	}
	return hdr, true
}

// splitHdrValue splits s on sep occurring outside quoted strings and
// angle bracket enclosed URIs.
func splitHdrValue(s string, sep byte) []string {
	var parts []string
	var inBrackets, inQuotes bool
	start := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case inQuotes:
			switch c {
			case '\\':
				i++
			case '"':
				inQuotes = false
			}
		case c == '"':
			inQuotes = true
		case c == '<':
			inBrackets = true
		case c == '>':
			inBrackets = false
		case c == sep && !inBrackets:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// parseHdrParams parses a ";k=v;k2;k3=v3" tail into params.
// The input must not include the part before the first semicolon.
func parseHdrParams(s string, params Values) (Values, error) {
	for _, p := range splitHdrValue(s, ';') {
		p = util.TrimSP(p)
		if p == "" {
			continue
		}
		k, v, _ := strings.Cut(p, "=")
		k = util.TrimSP(k)
		if !grammar.IsToken(k) {
			return params, errtrace.Wrap(fmt.Errorf("invalid parameter name %q: %w", k, grammar.ErrMalformedInput))
		}
		if params == nil {
			params = make(Values)
		}
		params.Append(k, util.TrimSP(v))
	}
	return params, nil
}

// parseHdrTokens parses a comma separated token list, e.g. the Allow or Supported value.
func parseHdrTokens(s string) ([]string, error) {
	var toks []string
	for _, t := range strings.Split(s, ",") {
		t = util.TrimSP(t)
		if t == "" {
			continue
		}
		if !grammar.IsToken(t) {
			return nil, errtrace.Wrap(fmt.Errorf("invalid token %q: %w", t, grammar.ErrMalformedInput))
		}
		toks = append(toks, t)
	}
	return toks, nil
}

type headerData struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func ToJSON(hdr Header) ([]byte, error) {
	var hd *headerData
	if hdr != nil {
		hd = &headerData{
			Name:  string(hdr.CanonicName()),
			Value: hdr.RenderValue(),
		}
	}
	return errtrace.Wrap2(json.Marshal(hd))
}

var errNotHeaderJSON errorutil.Error = "not a header JSON"

func FromJSON[T ~string | ~[]byte](data T) (Header, error) {
	var hd *headerData
	if err := json.Unmarshal([]byte(data), &hd); err != nil {
		return nil, errtrace.Wrap(err)
	}
	if hd == nil {
		return nil, errtrace.Wrap(errNotHeaderJSON)
	}

	hdr, err := Parse(hd.Name + ":" + hd.Value)
	if err != nil {
		return nil, errtrace.Wrap(fmt.Errorf("parse header %q: %w", hd.Name, err))
	}
	return hdr, nil
}
