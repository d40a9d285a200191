package sip

import (
	"crypto/md5" //nolint:gosec // mandated by RFC 3261 digest authentication
	"encoding/hex"
	"fmt"
	"io"
	"slices"
	"sync"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipcore/header"
	"github.com/ghettovoice/sipcore/internal/errorutil"
	"github.com/ghettovoice/sipcore/internal/util"
)

// Credentials is a username/password pair for one protection domain.
type Credentials struct {
	Username string
	Password string
}

// AuthenticatorOptions customizes an [Authenticator].
type AuthenticatorOptions struct {
	// Ident overrides the identifier generator used for cnonce and
	// branch values. Defaults to [DefaultIdentGenerator].
	Ident IdentGenerator
}

func (o *AuthenticatorOptions) ident() IdentGenerator {
	if o == nil || o.Ident == nil {
		return DefaultIdentGenerator()
	}
	return o.Ident
}

// Authenticator answers digest challenges on behalf of a client
// (RFC 3261 Section 22, RFC 2617). Credentials are selected by the
// challenge realm, the empty realm key acts as a fallback for any realm.
//
// The authenticator tracks the last nonce per realm. A repeated
// challenge carrying the same nonce without stale=true means the
// credentials were rejected and [AuthorizeRequest] fails with
// [ErrAuthFailed], the caller is expected to surface the 401/407
// as a normal final response. Safe for concurrent use.
type Authenticator struct {
	mu     sync.Mutex
	creds  map[string]Credentials
	nonces map[string]*nonceState
	ident  IdentGenerator
}

type nonceState struct {
	nonce string
	count uint
}

// NewAuthenticator creates an authenticator from per-realm credentials.
func NewAuthenticator(creds map[string]Credentials, opts *AuthenticatorOptions) *Authenticator {
	return &Authenticator{
		creds:  creds,
		nonces: make(map[string]*nonceState),
		ident:  opts.ident(),
	}
}

// AuthorizeRequest answers the digest challenge of a 401/407 response
// by adding an Authorization or Proxy-Authorization header to req and
// preparing it for the resend: fresh Via branch, sequence number
// incremented, Call-ID untouched.
func (a *Authenticator) AuthorizeRequest(req *Request, res *Response) error {
	if req == nil || res == nil {
		return errtrace.Wrap(NewInvalidArgumentError("nil request or response"))
	}

	var (
		cln   *header.DigestChallenge
		proxy bool
	)
	switch res.Status {
	case ResponseStatusUnauthorized:
		hdr, ok := res.Headers.WWWAuthenticate()
		if !ok {
			return errtrace.Wrap(newMissHdrErr("WWW-Authenticate"))
		}
		cln, _ = hdr.AuthChallenge.(*header.DigestChallenge)
	case ResponseStatusProxyAuthenticationRequired:
		hdr, ok := res.Headers.ProxyAuthenticate()
		if !ok {
			return errtrace.Wrap(newMissHdrErr("Proxy-Authenticate"))
		}
		cln, _ = hdr.AuthChallenge.(*header.DigestChallenge)
		proxy = true
	default:
		return errtrace.Wrap(NewInvalidArgumentError(
			fmt.Sprintf("unexpected response status %d", uint(res.Status))))
	}
	if cln == nil {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrUnsupportedChallenge, "not a digest challenge"))
	}
	if alg := util.UCase(cln.Algorithm); alg != "" && alg != "MD5" {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrUnsupportedChallenge,
			fmt.Sprintf("algorithm %q", cln.Algorithm)))
	}

	crd, ok := a.credentials(cln.Realm)
	if !ok {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrAuthFailed,
			fmt.Sprintf("no credentials for realm %q", cln.Realm)))
	}

	nc, err := a.nextNonceCount(cln)
	if err != nil {
		return errtrace.Wrap(err)
	}

	dig := &header.DigestCredentials{
		Username:  crd.Username,
		Realm:     cln.Realm,
		Nonce:     cln.Nonce,
		Opaque:    cln.Opaque,
		Algorithm: cln.Algorithm,
		URI:       req.URI.Clone(),
	}
	if slices.Contains(cln.QOP, "auth") {
		dig.QOP = "auth"
		dig.CNonce = a.ident.CNonce()
		dig.NonceCount = nc
	}
	dig.Response = digestResponse(crd, req.Method, req.URI.Render(nil), dig)

	if proxy {
		req.Headers.Set(&header.ProxyAuthorization{AuthCredentials: dig})
	} else {
		req.Headers.Set(&header.Authorization{AuthCredentials: dig})
	}

	// the resend is a new transaction within the same call
	if via, ok := req.Headers.FirstVia(); ok {
		if via.Params == nil {
			via.Params = make(header.Values)
		}
		via.Params.Set("branch", a.ident.Branch())
	}
	if cseq, ok := req.Headers.CSeq(); ok {
		cseq.SeqNum++
	}
	return nil
}

func (a *Authenticator) credentials(realm string) (Credentials, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if crd, ok := a.creds[realm]; ok {
		return crd, true
	}
	crd, ok := a.creds[""]
	return crd, ok
}

// nextNonceCount advances the nc counter for the challenge nonce,
// failing when the server repeats a nonce without marking it stale.
func (a *Authenticator) nextNonceCount(cln *header.DigestChallenge) (uint, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := a.nonces[cln.Realm]
	if st != nil && st.nonce == cln.Nonce {
		if !cln.Stale {
			return 0, errtrace.Wrap(errorutil.NewWrapperError(ErrAuthFailed,
				fmt.Sprintf("credentials rejected for realm %q", cln.Realm)))
		}
		st.count++
		return st.count, nil
	}
	a.nonces[cln.Realm] = &nonceState{nonce: cln.Nonce, count: 1}
	return 1, nil
}

// digestResponse computes the RFC 2617 response value, falling back to
// the RFC 2069 form when the challenge offers no qop.
func digestResponse(crd Credentials, method RequestMethod, digURI string, dig *header.DigestCredentials) string {
	ha1 := md5Hex(crd.Username, dig.Realm, crd.Password)
	ha2 := md5Hex(string(method), digURI)
	if dig.QOP == "" {
		return md5Hex(ha1, dig.Nonce, ha2)
	}
	return md5Hex(ha1, dig.Nonce, fmt.Sprintf("%08x", dig.NonceCount), dig.CNonce, dig.QOP, ha2)
}

func md5Hex(parts ...string) string {
	h := md5.New() //nolint:gosec
	for i, p := range parts {
		if i > 0 {
			io.WriteString(h, ":") //nolint:errcheck
		}
		io.WriteString(h, p) //nolint:errcheck
	}
	return hex.EncodeToString(h.Sum(nil))
}
