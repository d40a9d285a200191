// Package header provides typed SIP message headers as defined by
// RFC 3261 and the extensions this module speaks (RFC 3262 reliable
// provisionals, RFC 3265 events, RFC 3903 publication, RFC 2617
// digest authentication).
//
// Headers are constructed as Go values and rendered to wire form on
// demand. Every concrete type implements the [Header] interface:
// rendering ([types.Renderer]), deep copying, syntactic validity and
// semantic equality.
//
// # Naming
//
// Header names are canonicalized with [CanonicName]: MIME-style
// capitalization plus the SIP special cases (Call-ID, CSeq,
// WWW-Authenticate and friends). The RFC 3261 compact forms ("f" for
// From, "v" for Via, ...) are understood on input and produced when
// rendering with the Compact option.
//
// # Parsing
//
// [Parse] turns a "Name: value" line into a typed header,
// [FromNameValue] does the same for an already split pair. Extension
// headers without a dedicated type round-trip through [Any]; custom
// value parsers are installed with [RegisterParser] and removed with
// [UnregisterParser]. [ToJSON] and [FromJSON] carry headers through
// the transaction snapshot format.
//
// # Parameters
//
// Headers carrying generic parameters store them as [Values].
// Equality follows RFC 3261 19.1.4: parameters present on both sides
// must match, one-sided ordinary parameters are ignored, and the
// special parameters of each header type must be present on both
// sides or neither. Unquoted values compare case-insensitively.
package header
