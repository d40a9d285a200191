package sip

import (
	"encoding/json"
	"log/slog"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipcore/internal/types"
)

// ProtoInfo describes the SIP protocol name and version of a message start line.
// See [types.ProtoInfo].
type ProtoInfo = types.ProtoInfo

// ProtoVer20 returns the SIP/2.0 protocol info.
func ProtoVer20() ProtoInfo { return ProtoInfo{Name: "SIP", Version: "2.0"} }

// RenderOptions holds message rendering options.
// See [types.RenderOptions].
type RenderOptions = types.RenderOptions

// Message is the common interface of SIP requests and responses.
type Message interface {
	types.Renderer
	types.Validatable
	types.ValidFlag
	types.Equalable
	// Clone returns a deep copy of the message.
	Clone() Message
	// String returns a short string representation of the message.
	String() string
}

// messageEntity is implemented by the bare message types carried by
// inbound and outbound envelopes.
type messageEntity interface {
	Message
	getHeaders() Headers
}

var (
	zeroSlogValue slog.Value
	zeroAddrPort  netip.AddrPort
)

// GetMessageHeaders returns the headers of the message or envelope.
func GetMessageHeaders(msg any) Headers {
	switch m := msg.(type) {
	case *Request:
		return m.Headers
	case *Response:
		return m.Headers
	case interface{ getHeaders() Headers }:
		return m.getHeaders()
	case interface{ Headers() Headers }:
		return m.Headers()
	default:
		return nil
	}
}

// MessageMetadata is an arbitrary key-value storage attached to
// an inbound or outbound message envelope.
type MessageMetadata struct {
	mu  sync.RWMutex
	kvs map[string]any
}

// Set stores the value under the key.
func (d *MessageMetadata) Set(key string, val any) *MessageMetadata {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.kvs == nil {
		d.kvs = make(map[string]any)
	}
	d.kvs[key] = val
	return d
}

// Get returns the value stored under the key.
func (d *MessageMetadata) Get(key string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	val, ok := d.kvs[key]
	return val, ok
}

// Delete removes the value stored under the key.
func (d *MessageMetadata) Delete(key string) *MessageMetadata {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.kvs, key)
	return d
}

// Clone returns a copy of the metadata.
func (d *MessageMetadata) Clone() *MessageMetadata {
	if d == nil {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	d2 := new(MessageMetadata)
	if len(d.kvs) > 0 {
		d2.kvs = make(map[string]any, len(d.kvs))
		for k, v := range d.kvs {
			d2.kvs[k] = v
		}
	}
	return d2
}

func (d *MessageMetadata) MarshalJSON() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return errtrace.Wrap2(json.Marshal(d.kvs))
}

func (d *MessageMetadata) UnmarshalJSON(data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return errtrace.Wrap(json.Unmarshal(data, &d.kvs))
}

// message is the base of inbound and outbound message envelopes.
// It carries the bare SIP message together with the receive or build time,
// the transport addresses and arbitrary metadata.
type message[T messageEntity] struct {
	msg     T
	msgTime time.Time
	locAddr netip.AddrPort
	rmtAddr netip.AddrPort
	data    *MessageMetadata
}

// MessageTime returns the time the message was received or built.
func (m *message[T]) MessageTime() time.Time { return m.msgTime }

// Metadata returns the metadata attached to the message.
func (m *message[T]) Metadata() *MessageMetadata { return m.data }

type messageEnvelopeData[T messageEntity] struct {
	Message    T                `json:"message"`
	Time       time.Time        `json:"time"`
	LocalAddr  netip.AddrPort   `json:"local_addr,omitzero"`
	RemoteAddr netip.AddrPort   `json:"remote_addr,omitzero"`
	Data       *MessageMetadata `json:"metadata,omitempty"`
}

// inboundMessage is the base of envelopes around messages received
// from the transport layer. Inbound messages are immutable.
type inboundMessage[T messageEntity] message[T]

// MessageTime returns the time the message was received.
func (m *inboundMessage[T]) MessageTime() time.Time { return m.msgTime }

// Metadata returns the metadata attached to the message.
func (m *inboundMessage[T]) Metadata() *MessageMetadata { return m.data }

// Message returns the bare SIP message.
func (m *inboundMessage[T]) Message() T { return m.msg }

// Headers returns the headers of the message.
func (m *inboundMessage[T]) Headers() Headers { return m.msg.getHeaders() }

// LocalAddr returns the local address the message was received on.
func (m *inboundMessage[T]) LocalAddr() netip.AddrPort { return m.locAddr }

// RemoteAddr returns the remote address the message was received from.
func (m *inboundMessage[T]) RemoteAddr() netip.AddrPort { return m.rmtAddr }

// LogValue implements [slog.LogValuer].
func (m *inboundMessage[T]) LogValue() slog.Value {
	if m == nil {
		return zeroSlogValue
	}
	if lv, ok := any(m.msg).(slog.LogValuer); ok {
		return lv.LogValue()
	}
	return zeroSlogValue
}

func (m *inboundMessage[T]) MarshalJSON() ([]byte, error) {
	return errtrace.Wrap2(json.Marshal(messageEnvelopeData[T]{
		Message:    m.msg,
		Time:       m.msgTime,
		LocalAddr:  m.locAddr,
		RemoteAddr: m.rmtAddr,
		Data:       m.data,
	}))
}

func (m *inboundMessage[T]) UnmarshalJSON(data []byte) error {
	var ed messageEnvelopeData[T]
	if err := json.Unmarshal(data, &ed); err != nil {
		return errtrace.Wrap(err)
	}
	m.msg = ed.Message
	m.msgTime = ed.Time
	m.locAddr = ed.LocalAddr
	m.rmtAddr = ed.RemoteAddr
	m.data = ed.Data
	if m.data == nil {
		m.data = new(MessageMetadata)
	}
	return nil
}

// outboundMessage is the base of envelopes around locally built messages.
// An outbound message stays mutable through [outboundMessage.AccessMessage]
// until it is handed to the transport.
type outboundMessage[T messageEntity] struct {
	message[T]
	mu   sync.RWMutex
	sent atomic.Bool
}

// Message returns the bare SIP message.
func (m *outboundMessage[T]) Message() T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.msg
}

// AccessMessage grants exclusive mutable access to the bare message.
// After the message was handed to the transport the callback is not invoked.
func (m *outboundMessage[T]) AccessMessage(fn func(msg T)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sent.Load() {
		return
	}
	fn(m.msg)
}

// markSent freezes the message before it is handed to the transport.
func (m *outboundMessage[T]) markSent() { m.sent.Store(true) }

// Headers returns the headers of the message.
func (m *outboundMessage[T]) Headers() Headers {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.msg.getHeaders()
}

// LocalAddr returns the local address the message will be sent from.
func (m *outboundMessage[T]) LocalAddr() netip.AddrPort {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.locAddr
}

// SetLocalAddr sets the local address the message will be sent from.
func (m *outboundMessage[T]) SetLocalAddr(addr netip.AddrPort) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locAddr = addr
}

// RemoteAddr returns the remote address the message will be sent to.
func (m *outboundMessage[T]) RemoteAddr() netip.AddrPort {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rmtAddr
}

// SetRemoteAddr sets the remote address the message will be sent to.
func (m *outboundMessage[T]) SetRemoteAddr(addr netip.AddrPort) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rmtAddr = addr
}

// LogValue implements [slog.LogValuer].
func (m *outboundMessage[T]) LogValue() slog.Value {
	if m == nil {
		return zeroSlogValue
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if lv, ok := any(m.msg).(slog.LogValuer); ok {
		return lv.LogValue()
	}
	return zeroSlogValue
}

func (m *outboundMessage[T]) MarshalJSON() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return errtrace.Wrap2(json.Marshal(messageEnvelopeData[T]{
		Message:    m.msg,
		Time:       m.msgTime,
		LocalAddr:  m.locAddr,
		RemoteAddr: m.rmtAddr,
		Data:       m.data,
	}))
}

func (m *outboundMessage[T]) UnmarshalJSON(data []byte) error {
	var ed messageEnvelopeData[T]
	if err := json.Unmarshal(data, &ed); err != nil {
		return errtrace.Wrap(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.msg = ed.Message
	m.msgTime = ed.Time
	m.locAddr = ed.LocalAddr
	m.rmtAddr = ed.RemoteAddr
	m.data = ed.Data
	if m.data == nil {
		m.data = new(MessageMetadata)
	}
	return nil
}
