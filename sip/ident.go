package sip

import (
	"strings"

	"github.com/google/uuid"

	"github.com/ghettovoice/sipcore/header"
	"github.com/ghettovoice/sipcore/internal/util"
)

// MagicCookie is the RFC 3261 branch prefix.
const MagicCookie = "z9hG4bK"

// IsRFC3261Branch reports whether the branch value starts with the RFC 3261 magic cookie.
func IsRFC3261Branch(branch string) bool {
	return strings.HasPrefix(branch, MagicCookie)
}

const defTagLen = 16

// GenerateTag returns a random tag value of the given size.
// Size below or equal zero falls back to the default size.
func GenerateTag(size int) string {
	if size <= 0 {
		size = defTagLen
	}
	return util.RandStringLC(size)
}

// GenerateBranch returns a random RFC 3261 branch value.
func GenerateBranch() string {
	return MagicCookie + "." + uuid.NewString()
}

// IdentGenerator produces the random identifiers used in SIP messages.
// Implementations must be safe for concurrent use.
type IdentGenerator interface {
	// CallID returns a new Call-ID value.
	CallID() header.CallID
	// Tag returns a new From/To tag value.
	Tag() string
	// Branch returns a new RFC 3261 Via branch value.
	Branch() string
	// CNonce returns a new client nonce for digest authentication.
	CNonce() string
}

// StdIdentGenerator is the default [IdentGenerator] built on random UUIDs.
type StdIdentGenerator struct {
	// Host is an optional host part appended to generated Call-ID values.
	Host string
}

var defIdentGenerator = &StdIdentGenerator{}

// DefaultIdentGenerator returns the shared default identifier generator.
func DefaultIdentGenerator() *StdIdentGenerator { return defIdentGenerator }

func (g *StdIdentGenerator) CallID() header.CallID {
	id := uuid.NewString()
	if g != nil && g.Host != "" {
		return header.CallID(id + "@" + g.Host)
	}
	return header.CallID(id)
}

func (g *StdIdentGenerator) Tag() string { return GenerateTag(0) }

func (g *StdIdentGenerator) Branch() string { return GenerateBranch() }

func (g *StdIdentGenerator) CNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
