package sip

import (
	"fmt"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipcore/header"
)

// Header represents a generic SIP header.
// See [header.Header].
type Header = header.Header

type HeaderName = header.Name

// HeaderParser represents a custom SIP header parser.
// See [header.Parser].
type HeaderParser = header.Parser

// ParseHeader parses a generic SIP header.
// See [header.Parse].
func ParseHeader[T ~string | ~[]byte](s T) (Header, error) {
	return errtrace.Wrap2(header.Parse(s))
}

// RegisterHeaderParser registers a custom SIP header parser.
// See [header.RegisterParser].
func RegisterHeaderParser(name string, parser HeaderParser) {
	header.RegisterParser(name, parser)
}

// CanonicHeaderName returns a canonicalized header name.
// See [header.CanonicName].
func CanonicHeaderName[T ~string](name T) HeaderName { return header.CanonicName(name) }

type missingHeaderError struct {
	Header string
}

func (err *missingHeaderError) Error() string {
	return fmt.Sprintf("missing %q header", CanonicHeaderName(err.Header))
}

func (*missingHeaderError) Grammar() bool { return true }
