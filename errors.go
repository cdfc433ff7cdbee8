// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpcframe

import (
	"errors"

	"code.hybscloud.com/iox"
)

var (
	// ErrInvalidArgument reports an invalid configuration, a nil
	// reader/writer/decoder, or an empty payload on the write side.
	ErrInvalidArgument = errors.New("rpcframe: invalid argument")

	// ErrTooLong reports a message whose declared Content-Length exceeds the
	// configured read limit. The framer cannot buffer or skip such a message
	// without losing its place in the stream, so this error is fatal to the
	// connection rather than recoverable.
	ErrTooLong = errors.New("rpcframe: message too long")

	// ErrMalformedHeader is the base error for header blocks that cannot be
	// parsed: a field key not followed by ':', or a Content-Length value
	// that is not an integer. Parse sites wrap it with positional context;
	// match with errors.Is.
	ErrMalformedHeader = errors.New("rpcframe: malformed message header")

	// ErrConnClosed is returned when sending on a closed connection.
	ErrConnClosed = errors.New("rpcframe: connection closed")

	// ErrQueueFull is returned by Conn.Send when the outbound queue cannot
	// accept another message without blocking. It signals backpressure from
	// the peer; use SendBlocking to wait for space instead.
	ErrQueueFull = errors.New("rpcframe: send queue full")
)

// These are provided as package-level aliases so callers can reference the
// semantic control-flow errors without importing iox directly.
var (
	// ErrWouldBlock means “no further progress without waiting”.
	//
	// It is an expected, non-failure control-flow signal for non-blocking I/O.
	// In-flight framing state is preserved; retry the same call later (after
	// readiness/event), or configure RetryDelay to emulate cooperative
	// blocking on top of a non-blocking transport.
	ErrWouldBlock = iox.ErrWouldBlock

	// ErrMore means “this completion is usable and more completions will follow”.
	//
	// It is not io.EOF and not “try later”. Process the returned result, then
	// call again to obtain the next one.
	ErrMore = iox.ErrMore
)
