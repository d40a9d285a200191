package header

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipcore/internal/errorutil"
	"github.com/ghettovoice/sipcore/internal/grammar"
	"github.com/ghettovoice/sipcore/internal/ioutil"
	"github.com/ghettovoice/sipcore/internal/util"
)

// Event represents the Event header field.
// The Event header field names the event package a subscription or
// notification refers to.
type Event struct {
	Type   string
	Params Values
}

// CanonicName returns the canonical name of the header.
func (*Event) CanonicName() Name { return "Event" }

// CompactName returns the compact name of the header.
func (*Event) CompactName() Name { return "o" }

// RenderTo writes the header to the provided writer.
func (hdr *Event) RenderTo(w io.Writer, opts *RenderOptions) (num int, err error) {
	if hdr == nil {
		return 0, nil
	}

	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	cw.Fprint(hdr.name(opts), ": ")
	cw.Call(hdr.renderValueTo)
	return errtrace.Wrap2(cw.Result())
}

func (hdr *Event) name(opts *RenderOptions) Name {
	if opts != nil && opts.Compact {
		return hdr.CompactName()
	}
	return hdr.CanonicName()
}

func (hdr *Event) renderValueTo(w io.Writer) (num int, err error) {
	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	cw.Fprint(hdr.Type)
	cw.Call(func(w io.Writer) (int, error) {
		return errtrace.Wrap2(renderHdrParams(w, hdr.Params, false))
	})
	return errtrace.Wrap2(cw.Result())
}

// Render returns the string representation of the header.
func (hdr *Event) Render(opts *RenderOptions) string {
	if hdr == nil {
		return ""
	}

	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	hdr.RenderTo(sb, opts) //nolint:errcheck
	return sb.String()
}

// String returns the string representation of the header value.
func (hdr *Event) String() string { return hdr.RenderValue() }

// RenderValue returns the header value without the name prefix.
func (hdr *Event) RenderValue() string {
	if hdr == nil {
		return ""
	}

	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	hdr.renderValueTo(sb) //nolint:errcheck
	return sb.String()
}

// Format implements fmt.Formatter for custom formatting of the header.
func (hdr *Event) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		if f.Flag('+') {
			hdr.RenderTo(f, nil) //nolint:errcheck
			return
		}
		fmt.Fprint(f, hdr.String())
		return
	case 'q':
		if f.Flag('+') {
			fmt.Fprint(f, strconv.Quote(hdr.Render(nil)))
			return
		}
		fmt.Fprint(f, strconv.Quote(hdr.String()))
		return
	default:
		type hideMethods Event
		type Event hideMethods
		fmt.Fprintf(f, fmt.FormatString(f, verb), (*Event)(hdr))
		return
	}
}

// Clone returns a copy of the header.
func (hdr *Event) Clone() Header {
	if hdr == nil {
		return nil
	}

	hdr2 := *hdr
	hdr2.Params = hdr.Params.Clone()
	return &hdr2
}

// Equal compares this header with another for equality.
func (hdr *Event) Equal(val any) bool {
	var other *Event
	switch v := val.(type) {
	case Event:
		other = &v
	case *Event:
		other = v
	default:
		return false
	}

	if hdr == other {
		return true
	} else if hdr == nil || other == nil {
		return false
	}

	return util.EqFold(hdr.Type, other.Type) &&
		compareHdrParams(hdr.Params, other.Params, map[string]bool{"id": true})
}

// IsValid checks whether the header is syntactically valid.
func (hdr *Event) IsValid() bool {
	return hdr != nil && grammar.IsToken(hdr.Type) && validateHdrParams(hdr.Params)
}

func (hdr *Event) MarshalJSON() ([]byte, error) {
	return errtrace.Wrap2(ToJSON(hdr))
}

var zeroEvent Event

func (hdr *Event) UnmarshalJSON(data []byte) error {
	gh, err := FromJSON(data)
	if err != nil {
		*hdr = zeroEvent
		if errors.Is(err, errNotHeaderJSON) {
			return nil
		}
		return errtrace.Wrap(err)
	}

	h, ok := gh.(*Event)
	if !ok {
		*hdr = zeroEvent
		return errtrace.Wrap(errorutil.Errorf("unexpected header: got %T, want %T", gh, hdr))
	}

	*hdr = *h
	return nil
}

// ID returns the "id" parameter distinguishing multiple subscriptions
// to the same event package within one dialog.
func (hdr *Event) ID() (string, bool) {
	if hdr == nil {
		return "", false
	}
	return hdr.Params.Last("id")
}

func parseEventValue(s string) (*Event, error) {
	s = util.TrimSP(s)
	if s == "" {
		return nil, errtrace.Wrap(grammar.ErrEmptyInput)
	}

	var hdr Event
	if i := strings.IndexByte(s, ';'); i >= 0 {
		var err error
		if hdr.Params, err = parseHdrParams(s[i:], nil); err != nil {
			return nil, errtrace.Wrap(err)
		}
		s = util.TrimSP(s[:i])
	}

	if !grammar.IsToken(s) {
		return nil, errtrace.Wrap(fmt.Errorf("invalid event type %q: %w", s, grammar.ErrMalformedInput))
	}
	hdr.Type = s
	return &hdr, nil
}
