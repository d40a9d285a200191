package header

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipcore/internal/errorutil"
	"github.com/ghettovoice/sipcore/internal/grammar"
	"github.com/ghettovoice/sipcore/internal/util"
)

// SIPIfMatch represents the SIP-If-Match header field.
// A client sends it in a PUBLISH to refresh, modify or remove the
// publication identified by a previously returned SIP-ETag.
type SIPIfMatch string

// CanonicName returns the canonical name of the header.
func (SIPIfMatch) CanonicName() Name { return "SIP-If-Match" }

// CompactName returns the compact name of the header (SIP-If-Match has no compact form).
func (SIPIfMatch) CompactName() Name { return "SIP-If-Match" }

// RenderTo writes the header to the provided writer.
func (hdr SIPIfMatch) RenderTo(w io.Writer, _ *RenderOptions) (num int, err error) {
	return errtrace.Wrap2(fmt.Fprint(w, hdr.CanonicName(), ": ", hdr.RenderValue()))
}

// Render returns the string representation of the header.
func (hdr SIPIfMatch) Render(opts *RenderOptions) string {
	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	hdr.RenderTo(sb, opts) //nolint:errcheck
	return sb.String()
}

// RenderValue returns the header value without the name prefix.
func (hdr SIPIfMatch) RenderValue() string { return string(hdr) }

func (hdr SIPIfMatch) String() string { return hdr.RenderValue() }

// Format implements fmt.Formatter for custom formatting of the header.
func (hdr SIPIfMatch) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		if f.Flag('+') {
			hdr.RenderTo(f, nil) //nolint:errcheck
			return
		}
		fmt.Fprint(f, string(hdr))
		return
	case 'q':
		if f.Flag('+') {
			fmt.Fprint(f, strconv.Quote(hdr.Render(nil)))
			return
		}
		fmt.Fprint(f, strconv.Quote(string(hdr)))
		return
	default:
		type hideMethods SIPIfMatch
		type SIPIfMatch hideMethods
		fmt.Fprintf(f, fmt.FormatString(f, verb), SIPIfMatch(hdr))
		return
	}
}

// Clone returns a copy of the header.
func (hdr SIPIfMatch) Clone() Header { return hdr }

// Equal compares this header with another for equality.
func (hdr SIPIfMatch) Equal(val any) bool {
	var other SIPIfMatch
	switch v := val.(type) {
	case SIPIfMatch:
		other = v
	case *SIPIfMatch:
		if v == nil {
			return false
		}
		other = *v
	default:
		return false
	}
	return hdr == other
}

// IsValid checks whether the header is syntactically valid.
func (hdr SIPIfMatch) IsValid() bool { return grammar.IsToken(hdr) }

func (hdr SIPIfMatch) MarshalJSON() ([]byte, error) {
	return errtrace.Wrap2(ToJSON(hdr))
}

func (hdr *SIPIfMatch) UnmarshalJSON(data []byte) error {
	gh, err := FromJSON(data)
	if err != nil {
		*hdr = ""
		if errors.Is(err, errNotHeaderJSON) {
			return nil
		}
		return errtrace.Wrap(err)
	}

	h, ok := gh.(SIPIfMatch)
	if !ok {
		*hdr = ""
		return errtrace.Wrap(errorutil.Errorf("unexpected header: got %T, want %T", gh, *hdr))
	}

	*hdr = h
	return nil
}

func parseSIPIfMatchValue(s string) (SIPIfMatch, error) {
	if !grammar.IsToken(s) {
		return "", errtrace.Wrap(fmt.Errorf("invalid entity tag %q: %w", s, grammar.ErrMalformedInput))
	}
	return SIPIfMatch(s), nil
}
