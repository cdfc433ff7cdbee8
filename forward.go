// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpcframe

import "io"

// Forwarder relays framed messages from a source stream to a destination
// stream while preserving message boundaries: each inbound payload is
// re-emitted on dst as exactly one Content-Length framed message. Useful for
// proxies and multiplexers that sit between an editor and a language server
// without interpreting the traffic.
//
// Semantics:
//   - One call to ForwardOnce relays at most one logical message.
//   - Two-phase per message: read a whole payload from src, then write it as
//     one framed message to dst.
//   - Messages dropped on the read side (malformed header, etc.) are logged
//     there and never reach dst.
//
// Retry rule: on ErrWouldBlock or ErrMore, retry ForwardOnce on the SAME
// Forwarder instance to complete the in-flight message; the read/write
// progress is maintained internally.
type Forwarder struct {
	r *Reader[[]byte]
	w *Writer

	// In-flight payload between a completed read phase and a completed
	// write phase.
	pending []byte
}

// NewForwarder constructs a Forwarder that relays messages from src to dst.
// Options apply to both directions.
func NewForwarder(dst io.Writer, src io.Reader, opts ...Option) (*Forwarder, error) {
	// The payload span handed to a Decoder is only valid during the call, so
	// the relay decoder copies it out.
	r, err := NewReader(src, func(payload []byte) ([]byte, error) {
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(dst, opts...)
	if err != nil {
		return nil, err
	}
	return &Forwarder{r: r, w: w}, nil
}

// ForwardOnce relays at most one message and returns the number of payload
// bytes written to dst. io.EOF is returned once src is exhausted at a
// message boundary.
func (f *Forwarder) ForwardOnce() (int, error) {
	if f.pending == nil {
		payload, err := f.r.Next()
		if err != nil {
			return 0, err
		}
		f.pending = payload
	}
	n, err := f.w.WriteMessage(f.pending)
	if err != nil {
		return n, err
	}
	f.pending = nil
	return n, nil
}

// Forward relays messages until src is exhausted, returning the total number
// of payload bytes written to dst. ErrWouldBlock and ErrMore are propagated
// with the progress so far; call Forward again to resume.
func (f *Forwarder) Forward() (int64, error) {
	var total int64
	for {
		n, err := f.ForwardOnce()
		total += int64(n)
		if err != nil {
			if err == io.EOF {
				return total, nil
			}
			return total, err
		}
	}
}
