// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rpcframe provides the transport framing layer for JSON-RPC based
// protocols that delimit messages with Content-Length headers, as used by
// Language Server Protocol and Build Server Protocol implementations. It
// turns a raw, arbitrarily-chunked byte stream into discrete message
// payloads and turns payloads back into wire bytes.
//
// Semantics and design:
//   - Incremental by construction: the Framer consumes byte chunks of
//     caller-chosen size (a single byte at a time is a valid input), with no
//     backtracking and no re-reading of consumed bytes. BytesWanted tells
//     the caller how much to read next so a chunk never straddles a
//     header/body boundary.
//   - Recoverable wire errors: malformed headers and failed payload decodes
//     are reported to the Logger and the stream stays synchronized. Contract
//     violations by the driving loop are programmer errors and panic.
//   - Non-blocking first: Reader, Writer, and Forwarder surface
//     iox.ErrWouldBlock and iox.ErrMore as control-flow signals (re-exposed
//     as rpcframe.ErrWouldBlock / rpcframe.ErrMore) and keep in-flight state
//     so interrupted operations resume where they left off.
//
// Wire format:
//
//	<field-name>: <field-value>\r\n   (zero or more, any order, unknown fields ignored)
//	\r\n                              (terminator; header block ends here)
//	<exactly Content-Length bytes of payload, no trailing separator>
//
// Content-Length is the only semantically meaningful field and must parse as
// a positive base-10 integer. A declared length of zero is treated as an
// invalid header: the message is dropped and logged, and the framer waits
// for the next header. Payload bytes are opaque; interpretation (e.g., as
// UTF-8 JSON text) is the injected Decoder's contract.
package rpcframe

import "bytes"

// Decoder turns one complete payload into a message of type M. It must be
// pure with respect to framing and may fail without panicking.
//
// The payload span is only valid for the duration of the call: it aliases an
// internal buffer that is reused for the next message. A decoder that wants
// to retain raw bytes must copy them.
type Decoder[M any] func(payload []byte) (M, error)

// Encoder turns a message into its payload bytes. Counterpart of Decoder,
// used on the write side by Conn.
type Encoder[M any] func(msg M) ([]byte, error)

// readState is the framing phase. remaining is meaningful only in
// stateContent and is strictly positive there.
type readState uint8

const (
	// stateHeader: accumulating header bytes; no payload length known yet.
	stateHeader readState = iota
	// stateContent: header accepted; collecting the declared payload bytes.
	stateContent
)

// separator terminates a header block.
var separator = []byte("\r\n\r\n")

// Framer is the incremental message framing state machine. It owns a read
// buffer and alternates between collecting a header block and collecting the
// declared number of payload bytes, handing each complete payload to the
// injected Decoder.
//
// A Framer expects exclusive, serialized access from one reader loop; it
// holds no locks and performs no I/O. The loop protocol is: call BytesWanted,
// read at most that many bytes from the transport, pass them to Consume, and
// repeat. Reader implements that loop over an io.Reader.
type Framer[M any] struct {
	decode    Decoder[M]
	logger    Logger
	readLimit int64

	state     readState
	remaining int64 // payload bytes still missing; stateContent only
	buf       []byte
}

// NewFramer constructs a Framer that hands complete payloads to decode.
func NewFramer[M any](decode Decoder[M], opts ...Option) (*Framer[M], error) {
	if decode == nil {
		return nil, ErrInvalidArgument
	}
	o := defaultOptions
	for _, fn := range opts {
		fn(&o)
	}
	return newFramer(decode, o), nil
}

func newFramer[M any](decode Decoder[M], o Options) *Framer[M] {
	return &Framer[M]{
		decode:    decode,
		logger:    o.logger(),
		readLimit: int64(o.ReadLimit),
	}
}

// BytesWanted returns how many bytes the driving loop should read next. The
// caller must feed Consume at most this many bytes; reading fewer (a short
// read) is fine.
//
// In the header phase the hint is sized so a read can never run past the end
// of the header block: 4 bytes when the buffer tail shows no part of the
// \r\n\r\n separator, 1 when the tail ends in CR, and 2 when it ends in LF
// (covers both \r\n and a bare \n defensively). In the content phase it is
// exactly the number of payload bytes still missing, so it never reaches
// into the next message. Always >= 1.
func (f *Framer[M]) BytesWanted() int {
	if f.state == stateContent {
		return int(f.remaining)
	}
	if n := len(f.buf); n > 0 {
		switch f.buf[n-1] {
		case '\r':
			return 1
		case '\n':
			return 2
		}
	}
	return 4
}

// Consume feeds one chunk of newly-read bytes into the state machine. When
// the chunk completes a message whose payload decodes successfully, the
// decoded message is returned with ok == true.
//
// Wire-level problems never poison the stream: a header that fails to parse
// or lacks a positive Content-Length, and a payload the Decoder rejects, are
// logged and dropped, and the framer is immediately ready for the next
// message. The only hard error is ErrTooLong (declared length above the
// configured ReadLimit), which the framer can neither buffer nor skip.
//
// A chunk larger than the remaining content is a contract violation by the
// driving loop, not a wire error, and panics.
func (f *Framer[M]) Consume(chunk []byte) (msg M, ok bool, err error) {
	if f.state == stateHeader {
		f.buf = append(f.buf, chunk...)
		if !bytes.HasSuffix(f.buf, separator) {
			return msg, false, nil
		}
		hdr, complete, perr := parseHeaderBlock(f.buf)
		f.buf = f.buf[:0]
		if perr == nil && !complete {
			// A buffer ending with the separator always parses to completion;
			// keep the drop path in case the parser ever gets stricter.
			perr = ErrMalformedHeader
		}
		switch {
		case perr != nil:
			f.logger.Error("dropping message with malformed header", "error", perr)
		case !hdr.hasContentLength || hdr.contentLength <= 0:
			f.logger.Error("dropping message without positive Content-Length",
				"content_length", hdr.contentLength, "present", hdr.hasContentLength)
		case f.readLimit > 0 && hdr.contentLength > f.readLimit:
			return msg, false, ErrTooLong
		default:
			f.state = stateContent
			f.remaining = hdr.contentLength
		}
		return msg, false, nil
	}

	if int64(len(chunk)) > f.remaining {
		panic("rpcframe: chunk exceeds remaining message content")
	}
	if int64(len(chunk)) < f.remaining {
		f.buf = append(f.buf, chunk...)
		f.remaining -= int64(len(chunk))
		return msg, false, nil
	}

	// Chunk completes the message. When nothing was buffered the chunk is
	// decoded directly, avoiding a copy for the common single-read case.
	payload := chunk
	if len(f.buf) > 0 {
		f.buf = append(f.buf, chunk...)
		payload = f.buf
	}
	m, derr := f.decode(payload)
	f.buf = f.buf[:0]
	f.state = stateHeader
	f.remaining = 0
	if derr != nil {
		// The declared byte count was consumed in full, so the stream stays
		// synchronized regardless of decode success.
		f.logger.Error("dropping undecodable message payload",
			"length", len(payload), "error", derr)
		return msg, false, nil
	}
	return m, true, nil
}

// idle reports whether the framer sits at a message boundary with nothing
// buffered. Used by Reader to tell a clean EOF from a truncated stream.
func (f *Framer[M]) idle() bool {
	return f.state == stateHeader && len(f.buf) == 0
}
