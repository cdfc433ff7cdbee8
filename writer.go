// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpcframe

import (
	"io"
	"runtime"
	"strconv"
	"time"
)

// Writer turns discrete message payloads back into wire bytes: each payload
// is emitted as a Content-Length header block followed by exactly that many
// payload bytes.
//
// Non-blocking semantics: on iox.ErrWouldBlock the in-flight write position
// (header and payload offsets) is kept, and the caller must retry
// WriteMessage with the SAME payload to finish the message. Calling it with
// a different payload mid-message returns io.ErrShortWrite.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	wr io.Writer

	retryDelay time.Duration

	// In-flight message state for ErrWouldBlock resumption.
	hdr    []byte // reusable header scratch
	length int    // payload length of the in-flight message
	offset int    // wire bytes (header+payload) already written
}

// NewWriter constructs a Writer that frames messages onto w.
func NewWriter(w io.Writer, opts ...Option) (*Writer, error) {
	if w == nil {
		return nil, ErrInvalidArgument
	}
	o := defaultOptions
	for _, fn := range opts {
		fn(&o)
	}
	return &Writer{wr: w, retryDelay: o.RetryDelay}, nil
}

// appendHeader appends "Content-Length: <n>\r\n\r\n" to dst.
func appendHeader(dst []byte, n int) []byte {
	dst = append(dst, "Content-Length: "...)
	dst = strconv.AppendInt(dst, int64(n), 10)
	return append(dst, "\r\n\r\n"...)
}

// WriteMessage frames payload and writes it out, returning the number of
// payload bytes written. Empty payloads are rejected with ErrInvalidArgument:
// a zero Content-Length is an invalid header on the read side, so the write
// side never produces one.
func (w *Writer) WriteMessage(payload []byte) (n int, err error) {
	if w.offset == 0 {
		if len(payload) == 0 {
			return 0, ErrInvalidArgument
		}
		w.length = len(payload)
		w.hdr = appendHeader(w.hdr[:0], len(payload))
	}
	if w.length != len(payload) {
		// The caller changed the message buffer mid-frame.
		return 0, io.ErrShortWrite
	}

	hdrSize := len(w.hdr)
	for w.offset < hdrSize {
		wn, we := w.writeOnce(w.hdr[w.offset:])
		w.offset += wn
		if we != nil {
			return 0, we
		}
	}
	for w.offset < hdrSize+w.length {
		payloadOff := w.offset - hdrSize
		wn, we := w.writeOnce(payload[payloadOff:])
		w.offset += wn
		n += wn
		if we != nil {
			return n, we
		}
	}

	w.offset = 0
	w.length = 0
	return n, nil
}

// writeOnce performs a single logical write, applying the RetryDelay policy
// on ErrWouldBlock.
func (w *Writer) writeOnce(p []byte) (n int, err error) {
	for {
		n, err = w.wr.Write(p)
		// Guard against broken Writers that violate the io.Writer contract by
		// returning (0, nil) on a non-empty buffer.
		if len(p) != 0 && n == 0 && err == nil {
			return 0, io.ErrShortWrite
		}
		if n > 0 {
			return n, err
		}
		if err != ErrWouldBlock {
			return n, err
		}
		if !w.waitOnceOnWouldBlock() {
			return n, err
		}
	}
}

func (w *Writer) waitOnceOnWouldBlock() bool {
	if w.retryDelay < 0 {
		return false
	}
	if w.retryDelay == 0 {
		runtime.Gosched()
		return true
	}
	time.Sleep(w.retryDelay)
	return true
}
