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

// SIPETag represents the SIP-ETag header field.
// A server returns it in a 2xx response to PUBLISH to identify
// the publication it just created or refreshed.
type SIPETag string

// CanonicName returns the canonical name of the header.
func (SIPETag) CanonicName() Name { return "SIP-ETag" }

// CompactName returns the compact name of the header (SIP-ETag has no compact form).
func (SIPETag) CompactName() Name { return "SIP-ETag" }

// RenderTo writes the header to the provided writer.
func (hdr SIPETag) RenderTo(w io.Writer, _ *RenderOptions) (num int, err error) {
	return errtrace.Wrap2(fmt.Fprint(w, hdr.CanonicName(), ": ", hdr.RenderValue()))
}

// Render returns the string representation of the header.
func (hdr SIPETag) Render(opts *RenderOptions) string {
	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	hdr.RenderTo(sb, opts) //nolint:errcheck
	return sb.String()
}

// RenderValue returns the header value without the name prefix.
func (hdr SIPETag) RenderValue() string { return string(hdr) }

func (hdr SIPETag) String() string { return hdr.RenderValue() }

// Format implements fmt.Formatter for custom formatting of the header.
func (hdr SIPETag) Format(f fmt.State, verb rune) {
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
		type hideMethods SIPETag
		type SIPETag hideMethods
		fmt.Fprintf(f, fmt.FormatString(f, verb), SIPETag(hdr))
		return
	}
}

// Clone returns a copy of the header.
func (hdr SIPETag) Clone() Header { return hdr }

// Equal compares this header with another for equality.
func (hdr SIPETag) Equal(val any) bool {
	var other SIPETag
	switch v := val.(type) {
	case SIPETag:
		other = v
	case *SIPETag:
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
func (hdr SIPETag) IsValid() bool { return grammar.IsToken(hdr) }

func (hdr SIPETag) MarshalJSON() ([]byte, error) {
	return errtrace.Wrap2(ToJSON(hdr))
}

func (hdr *SIPETag) UnmarshalJSON(data []byte) error {
	gh, err := FromJSON(data)
	if err != nil {
		*hdr = ""
		if errors.Is(err, errNotHeaderJSON) {
			return nil
		}
		return errtrace.Wrap(err)
	}

	h, ok := gh.(SIPETag)
	if !ok {
		*hdr = ""
		return errtrace.Wrap(errorutil.Errorf("unexpected header: got %T, want %T", gh, *hdr))
	}

	*hdr = h
	return nil
}

func parseSIPETagValue(s string) (SIPETag, error) {
	if !grammar.IsToken(s) {
		return "", errtrace.Wrap(fmt.Errorf("invalid entity tag %q: %w", s, grammar.ErrMalformedInput))
	}
	return SIPETag(s), nil
}
