// Package sdp provides the default session description handler built
// on pion/sdp. It negotiates plain RFC 3264 offer/answer over
// application/sdp bodies.
package sdp

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"braces.dev/errtrace"
	"github.com/pion/sdp/v3"

	"github.com/ghettovoice/sipcore/internal/errorutil"
	"github.com/ghettovoice/sipcore/sip"
)

// ContentType is the MIME type of SDP bodies.
const ContentType = "application/sdp"

// Handler errors.
const (
	// ErrClosed is returned for operations on a closed handler.
	ErrClosed sip.Error = "session description handler closed"
	// ErrUnsupportedDescription is returned for bodies the handler
	// does not understand.
	ErrUnsupportedDescription sip.Error = "unsupported description"
	// ErrNegotiationFailed is returned when an answer leaves no media
	// section alive.
	ErrNegotiationFailed sip.Error = "media negotiation failed"
)

// Format describes one RTP payload format of a media section.
type Format struct {
	// Payload is the RTP payload type number.
	Payload uint8
	// Name is the encoding name, as in the a=rtpmap attribute.
	Name string
	// ClockRate is the encoding clock rate in Hz.
	ClockRate uint32
	// Channels is the channel count, 0 for the default of one.
	Channels uint16
	// Params go into an a=fmtp attribute when set.
	Params string
}

func (f Format) rtpmap() string {
	v := fmt.Sprintf("%d %s/%d", f.Payload, f.Name, f.ClockRate)
	if f.Channels > 1 {
		v += "/" + strconv.FormatUint(uint64(f.Channels), 10)
	}
	return v
}

// Media describes one media section the handler offers and accepts.
type Media struct {
	// Type is the media type: audio, video.
	Type string
	// Port is the local transport port advertised in the m= line.
	Port uint16
	// Protos is the transport protocol, defaults to RTP/AVP.
	Protos []string
	// Formats are the supported payload formats, in preference order.
	Formats []Format
}

func (m Media) protos() []string {
	if len(m.Protos) == 0 {
		return []string{"RTP", "AVP"}
	}
	return m.Protos
}

// HandlerOptions configure a [Handler].
type HandlerOptions struct {
	// SessionName fills the s= line, defaults to "-".
	SessionName string
	// Host is the connection address, defaults to 127.0.0.1.
	Host string
}

func (o *HandlerOptions) sessionName() string {
	if o == nil || o.SessionName == "" {
		return "-"
	}
	return o.SessionName
}

func (o *HandlerOptions) host() string {
	if o == nil || o.Host == "" {
		return "127.0.0.1"
	}
	return o.Host
}

// Handler is a [sip.SessionDescriptionHandler] negotiating the
// configured media set. An answer echoes the remote media sections in
// order, keeping the payload formats both sides support and rejecting
// unsupported sections with a zero port.
type Handler struct {
	name  string
	host  string
	media []Media

	mu      sync.Mutex
	closed  bool
	sessID  uint64
	version uint64

	local      *sdp.SessionDescription
	remote     *sdp.SessionDescription
	prevLocal  *sdp.SessionDescription
	prevRemote *sdp.SessionDescription
	// offered is set while a local offer awaits the remote answer.
	offered     bool
	prevOffered bool
	pending     bool
}

var _ sip.SessionDescriptionHandler = (*Handler)(nil)

// NewHandler creates a handler negotiating the given media set.
func NewHandler(media []Media, opts *HandlerOptions) (*Handler, error) {
	if len(media) == 0 {
		return nil, errtrace.Wrap(sip.NewInvalidArgumentError("empty media set"))
	}
	for _, m := range media {
		if m.Type == "" || len(m.Formats) == 0 {
			return nil, errtrace.Wrap(sip.NewInvalidArgumentError("media misses type or formats"))
		}
	}
	return &Handler{
		name:   opts.sessionName(),
		host:   opts.host(),
		media:  media,
		sessID: uint64(time.Now().Unix()), //nolint:gosec
	}, nil
}

// HasDescription reports whether the handler understands the content type.
func (h *Handler) HasDescription(contentType string) bool {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.EqualFold(strings.TrimSpace(mt), ContentType)
}

// GetDescription returns the local description: an offer from the
// configured media set when no remote description arrived yet, an
// answer to the remote offer otherwise.
func (h *Handler) GetDescription(_ context.Context, _ *sip.DescriptionOptions) (sip.Body, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return sip.Body{}, errtrace.Wrap(ErrClosed)
	}

	h.snapshot()
	var (
		sd  *sdp.SessionDescription
		err error
	)
	if h.remote == nil {
		sd = h.buildOffer()
		h.offered = true
	} else {
		sd, err = h.buildAnswer(h.remote)
		if err != nil {
			h.restore()
			return sip.Body{}, errtrace.Wrap(err)
		}
		h.offered = false
	}
	raw, err := sd.Marshal()
	if err != nil {
		h.restore()
		return sip.Body{}, errtrace.Wrap(err)
	}
	h.local = sd
	return sip.Body{Content: raw, ContentType: ContentType}, nil
}

// SetDescription applies the remote description.
func (h *Handler) SetDescription(_ context.Context, body sip.Body, _ *sip.DescriptionOptions) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return errtrace.Wrap(ErrClosed)
	}
	if body.ContentType != "" && !h.HasDescription(body.ContentType) {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrUnsupportedDescription, body.ContentType))
	}

	var sd sdp.SessionDescription
	if err := sd.Unmarshal(body.Content); err != nil {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrUnsupportedDescription, err))
	}

	// An answer must keep at least one media section alive.
	if h.offered && rejectsAll(&sd) {
		return errtrace.Wrap(ErrNegotiationFailed)
	}

	h.snapshot()
	h.remote = &sd
	h.offered = false
	return nil
}

// Rollback restores the descriptions captured before the pending
// offer or answer.
func (h *Handler) Rollback(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return errtrace.Wrap(ErrClosed)
	}
	h.restore()
	return nil
}

// Close releases the handler. Subsequent operations fail with
// [ErrClosed].
func (h *Handler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	h.local, h.remote, h.prevLocal, h.prevRemote = nil, nil, nil, nil
	return nil
}

func (h *Handler) snapshot() {
	h.prevLocal, h.prevRemote, h.prevOffered = h.local, h.remote, h.offered
	h.pending = true
}

func (h *Handler) restore() {
	if !h.pending {
		return
	}
	h.local, h.remote, h.offered = h.prevLocal, h.prevRemote, h.prevOffered
	h.pending = false
}

func (h *Handler) buildOffer() *sdp.SessionDescription {
	sd := h.newSessionDescription()
	for _, m := range h.media {
		sd.MediaDescriptions = append(sd.MediaDescriptions, h.newMediaDescription(m, m.Formats))
	}
	return sd
}

// buildAnswer mirrors the remote media sections in order: sections of
// a supported type keep the formats both sides share, the rest come
// back with a zero port (RFC 3264 section 6).
func (h *Handler) buildAnswer(remote *sdp.SessionDescription) (*sdp.SessionDescription, error) {
	sd := h.newSessionDescription()
	alive := false
	for _, rm := range remote.MediaDescriptions {
		local, formats := h.matchMedia(rm)
		if local == nil || len(formats) == 0 {
			sd.MediaDescriptions = append(sd.MediaDescriptions, rejectMediaDescription(rm))
			continue
		}
		alive = true
		sd.MediaDescriptions = append(sd.MediaDescriptions, h.newMediaDescription(*local, formats))
	}
	if !alive {
		return nil, errtrace.Wrap(errorutil.NewWrapperError(ErrNegotiationFailed, "no common media"))
	}
	return sd, nil
}

// matchMedia finds the configured media of the remote section's type
// and the payload formats both sides list.
func (h *Handler) matchMedia(rm *sdp.MediaDescription) (*Media, []Format) {
	for i := range h.media {
		m := &h.media[i]
		if !strings.EqualFold(m.Type, rm.MediaName.Media) {
			continue
		}
		var formats []Format
		for _, f := range m.Formats {
			pt := strconv.FormatUint(uint64(f.Payload), 10)
			for _, rf := range rm.MediaName.Formats {
				if rf == pt {
					formats = append(formats, f)
					break
				}
			}
		}
		return m, formats
	}
	return nil, nil
}

func (h *Handler) newSessionDescription() *sdp.SessionDescription {
	h.version++
	return &sdp.SessionDescription{
		Origin: sdp.Origin{
			Username:       "-",
			SessionID:      h.sessID,
			SessionVersion: h.version,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: h.host,
		},
		SessionName: sdp.SessionName(h.name),
		ConnectionInformation: &sdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     &sdp.Address{Address: h.host},
		},
		TimeDescriptions: []sdp.TimeDescription{{}},
	}
}

func (h *Handler) newMediaDescription(m Media, formats []Format) *sdp.MediaDescription {
	md := &sdp.MediaDescription{
		MediaName: sdp.MediaName{
			Media:  m.Type,
			Port:   sdp.RangedPort{Value: int(m.Port)},
			Protos: m.protos(),
		},
	}
	for _, f := range formats {
		md.MediaName.Formats = append(md.MediaName.Formats, strconv.FormatUint(uint64(f.Payload), 10))
		md.Attributes = append(md.Attributes, sdp.NewAttribute("rtpmap", f.rtpmap()))
		if f.Params != "" {
			md.Attributes = append(md.Attributes,
				sdp.NewAttribute("fmtp", fmt.Sprintf("%d %s", f.Payload, f.Params)))
		}
	}
	md.Attributes = append(md.Attributes, sdp.NewPropertyAttribute("sendrecv"))
	return md
}

// rejectMediaDescription mirrors a remote section with a zero port.
func rejectMediaDescription(rm *sdp.MediaDescription) *sdp.MediaDescription {
	return &sdp.MediaDescription{
		MediaName: sdp.MediaName{
			Media:   rm.MediaName.Media,
			Port:    sdp.RangedPort{Value: 0},
			Protos:  rm.MediaName.Protos,
			Formats: rm.MediaName.Formats,
		},
	}
}

func rejectsAll(sd *sdp.SessionDescription) bool {
	if len(sd.MediaDescriptions) == 0 {
		return true
	}
	for _, md := range sd.MediaDescriptions {
		if md.MediaName.Port.Value != 0 {
			return false
		}
	}
	return true
}
