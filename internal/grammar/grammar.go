// Package grammar provides the small set of RFC 3261 syntax predicates
// used for validation and rendering of URIs and headers.
package grammar

import (
	"net"
	"strconv"
	"strings"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipcore/internal/constraints"
)

type Error string

func (e Error) Error() string { return string(e) }

func (Error) Grammar() bool { return true }

const (
	ErrEmptyInput     Error = "empty input"
	ErrMalformedInput Error = "malformed input"
)

var tokenChars = map[byte]bool{
	'-': true, '.': true, '!': true, '%': true, '*': true,
	'_': true, '+': true, '`': true, '\'': true, '~': true,
}

// IsToken checks the token rule (RFC 3261 Section 25.1).
func IsToken[T constraints.Byteseq](s T) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !IsAlphanumChar(s[i]) && !tokenChars[s[i]] {
			return false
		}
	}
	return true
}

// IsHost checks the host rule: hostname, IPv4 or IPv6 literal.
func IsHost[T constraints.Byteseq](s T) bool {
	if len(s) == 0 {
		return false
	}

	host := strings.Trim(string(s), "[]")
	if ip := net.ParseIP(host); ip != nil {
		return true
	}
	// hostname: labels of alphanum and "-", separated by "."
	for _, label := range strings.Split(host, ".") {
		if label == "" || label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			if !IsAlphanumChar(label[i]) && label[i] != '-' {
				return false
			}
		}
	}
	return true
}

// IsQuoted checks the quoted-string rule.
func IsQuoted[T constraints.Byteseq](s T) bool {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return false
	}
	for i := 1; i < len(s)-1; i++ {
		if s[i] == '\\' {
			i++
			if i >= len(s)-1 {
				return false
			}
			continue
		}
		if s[i] == '"' {
			return false
		}
	}
	return true
}

func Quote(s string) string {
	return strconv.Quote(s)
}

func Unquote(s string) string {
	qs, err := strconv.Unquote(s)
	if err != nil {
		qs = s
	}
	return qs
}

// IsUsername checks the user rule: any user char or escaped byte.
func IsUsername[T constraints.Byteseq](s T) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '%':
			if i+2 >= len(s) || !ishex(s[i+1]) || !ishex(s[i+2]) {
				return false
			}
			i += 2
		case IsURIUserCharUnreserved(s[i]):
		default:
			return false
		}
	}
	return true
}

// ParseHostPort splits s into a host and an optional port.
func ParseHostPort[T constraints.Byteseq](s T) (host string, port uint16, hasPort bool, err error) {
	if len(s) == 0 {
		return "", 0, false, errtrace.Wrap(ErrEmptyInput)
	}

	str := string(s)
	// IPv6 literal keeps its colons inside brackets.
	if i := strings.LastIndexByte(str, ':'); i >= 0 && i > strings.LastIndexByte(str, ']') {
		p, perr := strconv.ParseUint(str[i+1:], 10, 16)
		if perr != nil {
			return "", 0, false, errtrace.Wrap(ErrMalformedInput)
		}
		host, port, hasPort = str[:i], uint16(p), true
	} else {
		host = str
	}

	host = strings.Trim(host, "[]")
	if !IsHost(host) {
		return "", 0, false, errtrace.Wrap(ErrMalformedInput)
	}
	return host, port, hasPort, nil
}
