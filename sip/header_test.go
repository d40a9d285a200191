package sip_test

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ghettovoice/sipcore/header"
	"github.com/ghettovoice/sipcore/internal/grammar"
	"github.com/ghettovoice/sipcore/sip"
)

type customHeader struct {
	name string
	num  int
	str  string
}

func parseCustomHeader(name string, value []byte) header.Header {
	parts := strings.SplitN(strings.TrimSpace(string(value)), " ", 2)
	num, _ := strconv.Atoi(parts[0])
	var str string
	if len(parts) > 1 {
		str = parts[1]
	}
	return &customHeader{name: name, num: num, str: str}
}

func (hdr *customHeader) CanonicName() sip.HeaderName {
	return header.CanonicName(hdr.name)
}

func (hdr *customHeader) CompactName() sip.HeaderName {
	return header.CanonicName(hdr.name)
}

func (hdr *customHeader) RenderTo(w io.Writer, _ *sip.RenderOptions) (int, error) {
	if hdr == nil {
		return 0, nil
	}
	return fmt.Fprint(w, hdr.CanonicName(), ": ", hdr.RenderValue())
}

func (hdr *customHeader) Render(opts *sip.RenderOptions) string {
	if hdr == nil {
		return ""
	}
	var sb strings.Builder
	hdr.RenderTo(&sb, opts) //nolint:errcheck
	return sb.String()
}

func (hdr *customHeader) RenderValue() string {
	if hdr == nil {
		return ""
	}
	return strconv.Itoa(hdr.num) + " " + hdr.str
}

func (hdr *customHeader) String() string { return hdr.RenderValue() }

func (hdr *customHeader) Clone() header.Header {
	if hdr == nil {
		return nil
	}
	hdr2 := *hdr
	return &hdr2
}

func (hdr *customHeader) Equal(val any) bool {
	var other *customHeader
	switch v := val.(type) {
	case *customHeader:
		other = v
	case customHeader:
		other = &v
	default:
		return false
	}

	if hdr == other {
		return true
	} else if hdr == nil || other == nil {
		return false
	}

	return header.CanonicName(hdr.name) == header.CanonicName(other.name) &&
		hdr.num == other.num &&
		hdr.str == other.str
}

func (hdr *customHeader) IsValid() bool {
	return hdr != nil && grammar.IsToken(hdr.name) && hdr.num > 0 && len(hdr.str) > 0
}
