package header

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipcore/internal/grammar"
	"github.com/ghettovoice/sipcore/internal/types"
	"github.com/ghettovoice/sipcore/internal/util"
	"github.com/ghettovoice/sipcore/uri"
)

// NameAddr represents a single element in From, To, Contact, Reply-To headers.
// It contains a display name, URI, and parameters.
type NameAddr struct {
	DisplayName string
	URI         uri.URI
	Params      Values
}

// String returns the string representation of the NameAddr.
func (addr NameAddr) String() string {
	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)

	if addr.DisplayName != "" {
		fmt.Fprint(sb, grammar.Quote(addr.DisplayName), " ")
	}

	fmt.Fprint(sb, "<")
	if addr.URI != nil {
		addr.URI.RenderTo(sb, nil) //nolint:errcheck
	}
	fmt.Fprint(sb, ">")

	renderHdrParams(sb, addr.Params, false) //nolint:errcheck

	return sb.String()
}

// Format implements fmt.Formatter for custom formatting of the NameAddr.
func (addr NameAddr) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		fmt.Fprint(f, addr.String())
		return
	case 'q':
		fmt.Fprint(f, strconv.Quote(addr.String()))
		return
	default:
		if !f.Flag('+') && !f.Flag('#') {
			fmt.Fprint(f, addr.String())
			return
		}

		type hideMethods NameAddr
		type NameAddr hideMethods
		fmt.Fprintf(f, fmt.FormatString(f, verb), NameAddr(addr))
		return
	}
}

// Equal compares this NameAddr with another for equality.
func (addr NameAddr) Equal(val any) bool {
	var other NameAddr
	switch v := val.(type) {
	case NameAddr:
		other = v
	case *NameAddr:
		if v == nil {
			return false
		}
		other = *v
	default:
		return false
	}

	return types.IsEqual(addr.URI, other.URI) &&
		compareHdrParams(addr.Params, other.Params, map[string]bool{
			"q":       true,
			"tag":     true,
			"expires": true,
		})
}

// IsValid checks whether the NameAddr is syntactically valid.
func (addr NameAddr) IsValid() bool {
	return types.IsValid(addr.URI) && validateHdrParams(addr.Params)
}

// IsZero checks whether the NameAddr is empty.
func (addr NameAddr) IsZero() bool {
	return addr.DisplayName == "" && addr.URI == nil && len(addr.Params) == 0
}

// Clone returns a copy of the NameAddr.
func (addr NameAddr) Clone() NameAddr {
	addr.URI = types.Clone[uri.URI](addr.URI)
	addr.Params = addr.Params.Clone()
	return addr
}

func (addr NameAddr) MarshalText() ([]byte, error) {
	return []byte(addr.String()), nil
}

func (addr *NameAddr) UnmarshalText(data []byte) error {
	a, err := parseNameAddr(string(data))
	if err != nil {
		*addr = NameAddr{}
		if errors.Is(err, grammar.ErrEmptyInput) {
			return nil
		}
		return errtrace.Wrap(err)
	}

	*addr = a
	return nil
}

func (addr NameAddr) Tag() (string, bool) {
	return addr.Params.Last("tag")
}

func (addr NameAddr) Expires() (time.Duration, bool) {
	v, ok := addr.Params.Last("expires")
	if !ok {
		return 0, false
	}
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(sec) * time.Second, true
}

func parseNameAddr(s string) (NameAddr, error) {
	s = util.TrimSP(s)
	if s == "" {
		return NameAddr{}, errtrace.Wrap(grammar.ErrEmptyInput)
	}

	var addr NameAddr
	if i := nameAddrBracket(s); i >= 0 {
		j := strings.IndexByte(s[i:], '>')
		if j < 0 {
			return NameAddr{}, errtrace.Wrap(fmt.Errorf("missing '>': %w", grammar.ErrMalformedInput))
		}
		j += i

		if dname := util.TrimSP(s[:i]); dname != "" {
			addr.DisplayName = grammar.Unquote(dname)
		}

		u, err := uri.Parse(s[i+1 : j])
		if err != nil {
			return NameAddr{}, errtrace.Wrap(err)
		}
		addr.URI = u

		if rest := util.TrimSP(s[j+1:]); rest != "" {
			if rest[0] != ';' {
				return NameAddr{}, errtrace.Wrap(fmt.Errorf("unexpected trailer %q: %w", rest, grammar.ErrMalformedInput))
			}
			if addr.Params, err = parseHdrParams(rest, nil); err != nil {
				return NameAddr{}, errtrace.Wrap(err)
			}
		}
		return addr, nil
	}

	// addr-spec form, any parameters belong to the header.
	// https://datatracker.ietf.org/doc/rfc8217/
	rawURI := s
	var rest string
	if i := strings.IndexByte(s, ';'); i >= 0 {
		rawURI, rest = s[:i], s[i:]
	}
	u, err := uri.Parse(rawURI)
	if err != nil {
		return NameAddr{}, errtrace.Wrap(err)
	}
	addr.URI = u
	if rest != "" {
		if addr.Params, err = parseHdrParams(rest, nil); err != nil {
			return NameAddr{}, errtrace.Wrap(err)
		}
	}
	return addr, nil
}

// nameAddrBracket returns the index of the URI opening bracket
// or -1 for the addr-spec form. A '<' inside a quoted display name
// does not count.
func nameAddrBracket(s string) int {
	var inQuotes bool
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
			return i
		}
	}
	return -1
}
