package sip

import (
	"context"

	"github.com/ghettovoice/sipcore/header"
)

//go:generate go tool mockgen -destination mock_session_description_handler_test.go -package sip_test . SessionDescriptionHandler

// Body is a message payload with its MIME content type.
type Body struct {
	Content     []byte
	ContentType string
}

// IsZero reports whether the body carries no payload.
func (b Body) IsZero() bool { return len(b.Content) == 0 }

// BodyFromMessage extracts the payload of a message together with its
// Content-Type header value.
func BodyFromMessage(msg Message) Body {
	if msg == nil {
		return Body{}
	}
	var b Body
	switch m := msg.(type) {
	case *Request:
		b.Content = m.Body
	case *Response:
		b.Content = m.Body
	default:
		return Body{}
	}
	if ct, ok := GetMessageHeaders(msg).ContentType(); ok && ct != nil {
		b.ContentType = header.MIMEType(*ct).String()
	}
	return b
}

// DescriptionOptions carry implementation-specific hints for a
// [SessionDescriptionHandler].
type DescriptionOptions struct {
	// Constraints are free-form hints interpreted by the handler.
	Constraints map[string]any
}

// SessionDescriptionHandler negotiates the media description of a
// session (RFC 3264 offer/answer). The session drives it: GetDescription
// produces the local offer or answer, SetDescription applies the remote
// one. Implementations must be safe for concurrent use.
type SessionDescriptionHandler interface {
	// GetDescription returns the local description: an offer when no
	// remote description is set, an answer otherwise.
	GetDescription(ctx context.Context, opts *DescriptionOptions) (Body, error)
	// SetDescription applies the remote description.
	SetDescription(ctx context.Context, body Body, opts *DescriptionOptions) error
	// HasDescription reports whether the handler understands the content type.
	HasDescription(contentType string) bool
	// Rollback restores the state before the pending offer.
	Rollback(ctx context.Context) error
	// Close releases the handler resources.
	Close() error
}
