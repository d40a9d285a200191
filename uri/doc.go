// Package uri provides the SIP Uniform Resource Identifier model used
// across the module.
//
// # Overview
//
// The [SIP] type represents SIP and SIPS URIs (sip:, sips:), the
// addressing mechanism of the Session Initiation Protocol. It supports
// user credentials, host:port addressing, URI parameters, and headers
// as defined in RFC 3261.
//
// The [URI] interface unifies access to common operations: rendering,
// cloning, validation, and equality comparison.
//
// # SIP URI structure
//
// SIP and SIPS URIs follow the pattern:
//
//	sip:user:password@host:port;param1=value1;param2?header1=value1&header2=value2
//	sips:user@host:port;transport=tls
//
// The [SIP] type provides structured access to all components:
//
//	u := &uri.SIP{
//	    User:    uri.UserPassword("alice", "secret"),
//	    Addr:    uri.HostPort("example.com", 5060),
//	    Params:  uri.Values{"transport": []string{"udp"}},
//	    Headers: uri.Values{"Subject": []string{"Meeting"}},
//	    Secured: false, // false for "sip:", true for "sips:"
//	}
//
// SIP URI equality follows RFC 3261 Section 19.1.4 rules, where special
// parameters (transport, user, method, maddr, ttl, lr) must match, but
// non-special parameters are optional for equality.
//
// # Parsing
//
// [ParseSIP] accepts the programmatic URI shape used by this module:
// scheme, optional userinfo, host[:port], parameters and headers. Full
// RFC 3261 grammar coverage is intentionally out of scope; URIs are
// normally constructed, not parsed.
//
// # Thread safety
//
// URI types are not safe for concurrent modification. When sharing URIs
// across goroutines, either use synchronization or create copies using
// the Clone method.
package uri
