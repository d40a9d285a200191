package sip

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipcore/header"
	"github.com/ghettovoice/sipcore/internal/errorutil"
	"github.com/ghettovoice/sipcore/internal/grammar"
	"github.com/ghettovoice/sipcore/uri"
)

// ParsePacket parses a single SIP message from the given buffer.
//
// It assumes that the buffer contains a full SIP message.
// Without a Content-Length header the whole remainder of the buffer becomes
// the message body. If the buffer contains more than one SIP message, only
// the first one is parsed and anything else is ignored. To parse multiple
// messages from a continuous byte stream, use [ParseStream].
//
// On failure it returns a nil message and a [*ParseError] carrying the
// partially parsed message, if any.
func ParsePacket[T ~string | ~[]byte](src T) (Message, error) {
	r := getBytesRdr([]byte(src))
	br := getBufRdr(r)
	defer func() {
		freeBufRdr(br)
		freeBytesRdr(r)
	}()
	return errtrace.Wrap2(parseMessage(br, true))
}

// ParseStream returns an iterator that parses SIP messages from the given
// byte stream and yields each parsed [Message] and an error, if any.
//
// In stream mode the Content-Length header is mandatory, a message without
// it yields a [*ParseError]. After a parse error the iterator resumes at the
// next message start line. A clean end of input yields a final [io.EOF].
//
// Example:
//
//	for msg, err := range sip.ParseStream(conn) {
//		if err != nil {
//			var perr *sip.ParseError
//			if errors.As(err, &perr) {
//				// perr.Msg may contain an incomplete message
//				continue
//			}
//			break
//		}
//		// handle msg
//	}
func ParseStream(rdr io.Reader) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		br := getBufRdr(rdr)
		defer freeBufRdr(br)
		for {
			msg, err := parseMessage(br, false)
			if !yield(msg, err) {
				return
			}
			var perr *ParseError
			if err != nil && !errors.As(err, &perr) {
				// the underlying reader failed or drained, no more messages
				return
			}
		}
	}
}

// ParseError represents an error that occurred during message parsing.
type ParseError struct {
	// Err is the underlying error.
	Err error
	// State is the parsing state in which the error occurred.
	State ParseState
	// Data contains the bytes that caused the error, if any.
	Data []byte
	// Msg contains the partially parsed message, if any.
	Msg Message
}

func (err *ParseError) Error() string {
	return fmt.Sprintf("parse error in %v state: %v", err.State, err.Err)
}

func (err *ParseError) Unwrap() error { return err.Err }

func (err *ParseError) Grammar() bool { return errorutil.IsGrammarErr(err.Err) }

func (err *ParseError) Timeout() bool { return errorutil.IsTimeoutErr(err.Err) }

func (err *ParseError) Temporary() bool { return errorutil.IsTemporaryErr(err.Err) }

// ParseState represents a state of the message parsing process.
type ParseState int

const (
	ParseStateStart   ParseState = iota // parsing message start line
	ParseStateHeaders                   // parsing message headers
	ParseStateBody                      // parsing message body
)

func (s ParseState) String() string {
	switch s {
	case ParseStateStart:
		return "start line"
	case ParseStateHeaders:
		return "headers"
	case ParseStateBody:
		return "body"
	default:
		return "unknown"
	}
}

func parseMessage(rdr *bufio.Reader, packetMode bool) (Message, error) {
	var (
		line []byte
		err  error
	)
	// empty lines between messages are allowed as a stream keep-alive
	for {
		line, err = readLine(rdr)
		if len(line) > 0 {
			break
		}
		if err != nil {
			return nil, errtrace.Wrap(err)
		}
	}

	msg, serr := parseMessageStart(line)
	if serr != nil {
		return nil, &ParseError{serr, ParseStateStart, line, nil}
	}

	hdrs := make(Headers)
	setMessageHeaders(msg, hdrs)
	for {
		line, err = readHdrLine(rdr)
		if len(line) == 0 {
			if err == nil {
				break
			}
			return nil, &ParseError{NewInvalidMessageError("incomplete headers"), ParseStateHeaders, nil, msg}
		}

		hdr, herr := ParseHeader(line)
		if herr != nil {
			return nil, &ParseError{herr, ParseStateHeaders, line, msg}
		}
		hdrs.Append(hdr)

		if err != nil {
			return nil, &ParseError{NewInvalidMessageError("incomplete headers"), ParseStateHeaders, nil, msg}
		}
	}

	bodyLen := int64(-1)
	if clHdrs := hdrs.Get("Content-Length"); len(clHdrs) > 0 {
		if cl, ok := clHdrs[0].(header.ContentLength); ok {
			bodyLen = int64(cl)
		}
	}
	switch {
	case bodyLen > int64(MaxMsgSize):
		return nil, &ParseError{ErrEntityTooLarge, ParseStateHeaders, nil, msg}
	case bodyLen < 0:
		if !packetMode {
			return nil, &ParseError{
				NewInvalidMessageError(fmt.Sprintf("missing mandatory header %q", "Content-Length")),
				ParseStateHeaders, nil, msg,
			}
		}
		body, rerr := io.ReadAll(rdr)
		if rerr != nil {
			return nil, &ParseError{rerr, ParseStateBody, body, msg}
		}
		if len(body) > 0 {
			setMessageBody(msg, body)
		}
		return msg, nil
	case bodyLen == 0:
		return msg, nil
	}

	body := make([]byte, bodyLen)
	setMessageBody(msg, body)
	if n, rerr := io.ReadFull(rdr, body); rerr != nil {
		return nil, &ParseError{NewInvalidMessageError("incomplete body"), ParseStateBody, body[:n], msg}
	}
	return msg, nil
}

func parseMessageStart(line []byte) (Message, error) {
	parts := strings.SplitN(string(line), " ", 3)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, errtrace.Wrap(fmt.Errorf("malformed start line: %w", grammar.ErrMalformedInput))
	}

	if proto, ok := parseProtoInfo(parts[0]); ok {
		status, err := strconv.ParseUint(parts[1], 10, 16)
		if err != nil || status < 100 || status > 699 {
			return nil, errtrace.Wrap(fmt.Errorf("invalid response status %q: %w", parts[1], grammar.ErrMalformedInput))
		}
		return &Response{
			Status: ResponseStatus(status),
			Reason: ResponseReason(parts[2]),
			Proto:  proto,
		}, nil
	}

	proto, ok := parseProtoInfo(parts[2])
	if !ok {
		return nil, errtrace.Wrap(fmt.Errorf("invalid protocol %q: %w", parts[2], grammar.ErrMalformedInput))
	}
	if !grammar.IsToken(parts[0]) {
		return nil, errtrace.Wrap(fmt.Errorf("invalid request method %q: %w", parts[0], grammar.ErrMalformedInput))
	}
	ruri, err := uri.Parse(parts[1])
	if err != nil {
		return nil, errtrace.Wrap(fmt.Errorf("invalid request uri %q: %w", parts[1], err))
	}
	return &Request{
		Method: RequestMethod(parts[0]),
		URI:    ruri,
		Proto:  proto,
	}, nil
}

func parseProtoInfo(s string) (ProtoInfo, bool) {
	name, ver, ok := strings.Cut(s, "/")
	if !ok || !grammar.IsToken(name) || !grammar.IsToken(ver) {
		return ProtoInfo{}, false
	}
	return ProtoInfo{Name: name, Version: ver}, true
}

func setMessageHeaders(msg Message, hdrs Headers) {
	switch m := msg.(type) {
	case *Request:
		m.Headers = hdrs
	case *Response:
		m.Headers = hdrs
	}
}

func setMessageBody(msg Message, body []byte) {
	switch m := msg.(type) {
	case *Request:
		m.Body = body
	case *Response:
		m.Body = body
	}
}

// readLine reads a single line from the reader stripping the trailing CRLF.
// On EOF in the middle of a line it returns the partial line together with the error.
func readLine(rdr *bufio.Reader) ([]byte, error) {
	line, err := rdr.ReadBytes('\n')
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
		if n > 1 && line[n-2] == '\r' {
			line = line[:n-2]
		}
	}
	return line, err
}

// readHdrLine reads a single header line joining continuation lines
// (RFC 3261 Section 7.3.1) with a single space.
func readHdrLine(rdr *bufio.Reader) ([]byte, error) {
	line, err := readLine(rdr)
	if err != nil || len(line) == 0 {
		return line, err
	}
	for {
		b, perr := rdr.Peek(1)
		if perr != nil || (b[0] != ' ' && b[0] != '\t') {
			return line, nil
		}
		cont, cerr := readLine(rdr)
		line = append(line, ' ')
		line = append(line, bytes.TrimLeft(cont, " \t")...)
		if cerr != nil {
			return line, cerr
		}
	}
}
