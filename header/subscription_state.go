package header

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipcore/internal/errorutil"
	"github.com/ghettovoice/sipcore/internal/grammar"
	"github.com/ghettovoice/sipcore/internal/ioutil"
	"github.com/ghettovoice/sipcore/internal/util"
)

// Subscription states carried by the Subscription-State header.
const (
	SubStateActive     = "active"
	SubStatePending    = "pending"
	SubStateTerminated = "terminated"
)

// SubscriptionState represents the Subscription-State header field.
// A notifier includes it in every NOTIFY to tell the subscriber whether
// the subscription is active, pending or terminated.
type SubscriptionState struct {
	State  string
	Params Values
}

// CanonicName returns the canonical name of the header.
func (*SubscriptionState) CanonicName() Name { return "Subscription-State" }

// CompactName returns the compact name of the header (Subscription-State has no compact form).
func (*SubscriptionState) CompactName() Name { return "Subscription-State" }

// RenderTo writes the header to the provided writer.
func (hdr *SubscriptionState) RenderTo(w io.Writer, _ *RenderOptions) (num int, err error) {
	if hdr == nil {
		return 0, nil
	}

	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	cw.Fprint(hdr.CanonicName(), ": ")
	cw.Call(hdr.renderValueTo)
	return errtrace.Wrap2(cw.Result())
}

func (hdr *SubscriptionState) renderValueTo(w io.Writer) (num int, err error) {
	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	cw.Fprint(hdr.State)
	cw.Call(func(w io.Writer) (int, error) {
		return errtrace.Wrap2(renderHdrParams(w, hdr.Params, false))
	})
	return errtrace.Wrap2(cw.Result())
}

// Render returns the string representation of the header.
func (hdr *SubscriptionState) Render(opts *RenderOptions) string {
	if hdr == nil {
		return ""
	}

	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	hdr.RenderTo(sb, opts) //nolint:errcheck
	return sb.String()
}

// String returns the string representation of the header value.
func (hdr *SubscriptionState) String() string { return hdr.RenderValue() }

// RenderValue returns the header value without the name prefix.
func (hdr *SubscriptionState) RenderValue() string {
	if hdr == nil {
		return ""
	}

	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	hdr.renderValueTo(sb) //nolint:errcheck
	return sb.String()
}

// Format implements fmt.Formatter for custom formatting of the header.
func (hdr *SubscriptionState) Format(f fmt.State, verb rune) {
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
		type hideMethods SubscriptionState
		type SubscriptionState hideMethods
		fmt.Fprintf(f, fmt.FormatString(f, verb), (*SubscriptionState)(hdr))
		return
	}
}

// Clone returns a copy of the header.
func (hdr *SubscriptionState) Clone() Header {
	if hdr == nil {
		return nil
	}

	hdr2 := *hdr
	hdr2.Params = hdr.Params.Clone()
	return &hdr2
}

// Equal compares this header with another for equality.
func (hdr *SubscriptionState) Equal(val any) bool {
	var other *SubscriptionState
	switch v := val.(type) {
	case SubscriptionState:
		other = &v
	case *SubscriptionState:
		other = v
	default:
		return false
	}

	if hdr == other {
		return true
	} else if hdr == nil || other == nil {
		return false
	}

	return util.EqFold(hdr.State, other.State) &&
		compareHdrParams(hdr.Params, other.Params, map[string]bool{
			"expires":     true,
			"reason":      true,
			"retry-after": true,
		})
}

// IsValid checks whether the header is syntactically valid.
func (hdr *SubscriptionState) IsValid() bool {
	return hdr != nil && grammar.IsToken(hdr.State) && validateHdrParams(hdr.Params)
}

func (hdr *SubscriptionState) MarshalJSON() ([]byte, error) {
	return errtrace.Wrap2(ToJSON(hdr))
}

var zeroSubscriptionState SubscriptionState

func (hdr *SubscriptionState) UnmarshalJSON(data []byte) error {
	gh, err := FromJSON(data)
	if err != nil {
		*hdr = zeroSubscriptionState
		if errors.Is(err, errNotHeaderJSON) {
			return nil
		}
		return errtrace.Wrap(err)
	}

	h, ok := gh.(*SubscriptionState)
	if !ok {
		*hdr = zeroSubscriptionState
		return errtrace.Wrap(errorutil.Errorf("unexpected header: got %T, want %T", gh, hdr))
	}

	*hdr = *h
	return nil
}

// Expires returns the remaining subscription lifetime.
func (hdr *SubscriptionState) Expires() (time.Duration, bool) {
	if hdr == nil {
		return 0, false
	}
	v, ok := hdr.Params.Last("expires")
	if !ok {
		return 0, false
	}
	sec, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, false
	}
	return time.Duration(sec) * time.Second, true
}

// Reason returns the termination reason.
func (hdr *SubscriptionState) Reason() (string, bool) {
	if hdr == nil {
		return "", false
	}
	return hdr.Params.Last("reason")
}

// RetryAfter returns the delay after which the subscriber may try to re-subscribe.
func (hdr *SubscriptionState) RetryAfter() (time.Duration, bool) {
	if hdr == nil {
		return 0, false
	}
	v, ok := hdr.Params.Last("retry-after")
	if !ok {
		return 0, false
	}
	sec, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, false
	}
	return time.Duration(sec) * time.Second, true
}

func parseSubscriptionStateValue(s string) (*SubscriptionState, error) {
	s = util.TrimSP(s)
	if s == "" {
		return nil, errtrace.Wrap(grammar.ErrEmptyInput)
	}

	var hdr SubscriptionState
	if i := strings.IndexByte(s, ';'); i >= 0 {
		var err error
		if hdr.Params, err = parseHdrParams(s[i:], nil); err != nil {
			return nil, errtrace.Wrap(err)
		}
		s = util.TrimSP(s[:i])
	}

	if !grammar.IsToken(s) {
		return nil, errtrace.Wrap(fmt.Errorf("invalid subscription state %q: %w", s, grammar.ErrMalformedInput))
	}
	hdr.State = util.LCase(s)
	return &hdr, nil
}
