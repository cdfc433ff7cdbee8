// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpcframe

import (
	"io"
	"runtime"
	"time"
)

// Reader is the loop that drives a Framer over an io.Reader: it asks the
// framer how many bytes it wants next, performs one bounded read, feeds the
// chunk back in, and repeats until a message is complete.
//
// Non-blocking semantics: if the underlying reader returns iox.ErrWouldBlock,
// Next returns it per the configured RetryDelay policy; already-consumed
// bytes stay buffered in the framer, so calling Next again resumes the
// in-flight message.
//
// A Reader is not safe for concurrent use; confine it to one reader
// goroutine.
type Reader[M any] struct {
	fr *Framer[M]
	rd io.Reader

	retryDelay time.Duration
	scratch    []byte
}

// NewReader constructs a Reader that decodes framed messages from r.
func NewReader[M any](r io.Reader, decode Decoder[M], opts ...Option) (*Reader[M], error) {
	if r == nil || decode == nil {
		return nil, ErrInvalidArgument
	}
	o := defaultOptions
	for _, fn := range opts {
		fn(&o)
	}
	return &Reader[M]{
		fr:         newFramer(decode, o),
		rd:         r,
		retryDelay: o.RetryDelay,
	}, nil
}

// Next reads from the underlying stream until one complete message has been
// decoded and returns it. Messages dropped for wire-level reasons (malformed
// header, decode failure) are logged and skipped; Next keeps reading.
//
// io.EOF is returned only at a message boundary; a stream that ends
// mid-header or mid-content yields io.ErrUnexpectedEOF. ErrTooLong and
// transport errors are returned as-is.
func (r *Reader[M]) Next() (M, error) {
	var zero M
	for {
		want := r.fr.BytesWanted()
		if cap(r.scratch) < want {
			r.scratch = make([]byte, want)
		}
		buf := r.scratch[:want]

		n, err := r.readOnce(buf)
		if n > 0 {
			msg, ok, cerr := r.fr.Consume(buf[:n])
			if cerr != nil {
				return zero, cerr
			}
			if ok {
				return msg, nil
			}
		}
		if err != nil {
			if err == io.EOF {
				if r.fr.idle() {
					return zero, io.EOF
				}
				// Stream truncated inside a header block or payload.
				return zero, io.ErrUnexpectedEOF
			}
			return zero, err
		}
	}
}

// readOnce performs a single logical read, applying the RetryDelay policy on
// ErrWouldBlock.
func (r *Reader[M]) readOnce(p []byte) (n int, err error) {
	for {
		n, err = r.rd.Read(p)
		// Guard against broken Readers that violate the io.Reader contract by
		// returning (0, nil) on a non-empty buffer. Without this, the framing
		// loop can spin indefinitely.
		if len(p) != 0 && n == 0 && err == nil {
			return 0, io.ErrNoProgress
		}
		if n > 0 {
			return n, err
		}
		if err != ErrWouldBlock {
			return n, err
		}
		if !r.waitOnceOnWouldBlock() {
			return n, err
		}
	}
}

func (r *Reader[M]) waitOnceOnWouldBlock() bool {
	// returns whether the caller should retry
	if r.retryDelay < 0 {
		return false
	}
	if r.retryDelay == 0 {
		runtime.Gosched()
		return true
	}
	time.Sleep(r.retryDelay)
	return true
}
