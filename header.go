// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpcframe

import (
	"bytes"

	"github.com/pkg/errors"

	"code.hybscloud.com/rpcframe/internal/ascii"
)

// contentLengthKey is the only header field with framing semantics. The
// comparison is case-sensitive; anything else is an unknown field and is
// ignored for forward compatibility.
var contentLengthKey = []byte("Content-Length")

var crlf = []byte("\r\n")

// headerField is one key:value pair of a header block. Both spans alias the
// input block; neither is trimmed.
type headerField struct {
	key   []byte
	value []byte
}

type tokenKind uint8

const (
	// tokenIncomplete means the span does not yet hold a full field or the
	// block terminator. Nothing was consumed; buffer more bytes and retry
	// from the same starting point.
	tokenIncomplete tokenKind = iota
	// tokenField means one complete key:value\r\n field was consumed.
	tokenField
	// tokenTerminator means the span began with the blank-line marker that
	// ends a header block.
	tokenTerminator
)

// nextHeaderField consumes at most one field (or the block terminator) from
// b and returns the unconsumed remainder. It never consumes partially: on
// tokenIncomplete the caller retries with more bytes appended to the same
// span.
//
// A key terminated by CR instead of ':' is a hard error, not an incomplete
// read: the stream is desynchronized below the framer's own recovery.
func nextHeaderField(b []byte) (kind tokenKind, f headerField, rest []byte, err error) {
	if len(b) >= 2 && b[0] == '\r' && b[1] == '\n' {
		return tokenTerminator, f, b[2:], nil
	}
	if len(b) == 1 && b[0] == '\r' {
		// Could be one byte away from the terminator.
		return tokenIncomplete, f, b, nil
	}

	ci := bytes.IndexByte(b, ':')
	ri := bytes.IndexByte(b, '\r')
	if ci < 0 && ri < 0 {
		return tokenIncomplete, f, b, nil
	}
	if ci < 0 || (ri >= 0 && ri < ci) {
		return kind, f, b, errors.Wrap(ErrMalformedHeader, "expected ':' in message header")
	}

	tail := b[ci+1:]
	end := bytes.Index(tail, crlf)
	if end < 0 {
		// Value's terminating CRLF not present yet.
		return tokenIncomplete, f, b, nil
	}
	f = headerField{key: b[:ci], value: tail[:end]}
	return tokenField, f, tail[end+2:], nil
}

// messageHeader holds the framing fields recognized in one header block. It
// is built fresh per message and discarded once the declared length has been
// captured into the framer's state.
type messageHeader struct {
	contentLength    int64
	hasContentLength bool
}

// parseHeaderBlock applies nextHeaderField over a header block starting at
// the beginning of b. complete reports whether the block terminator was
// reached; complete == false with a nil error means more bytes are needed,
// which is distinct from a malformed block.
func parseHeaderBlock(b []byte) (hdr messageHeader, complete bool, err error) {
	rest := b
	for {
		kind, f, next, err := nextHeaderField(rest)
		if err != nil {
			return hdr, false, err
		}
		switch kind {
		case tokenIncomplete:
			return hdr, false, nil
		case tokenTerminator:
			return hdr, true, nil
		case tokenField:
			if bytes.Equal(f.key, contentLengthKey) {
				v, ok := ascii.Int(f.value)
				if !ok {
					return hdr, false, errors.Wrapf(ErrMalformedHeader,
						"expected integer value in %s", ascii.Sanitize(bytes.TrimSpace(f.value)))
				}
				hdr.contentLength = v
				hdr.hasContentLength = true
			}
			rest = next
		}
	}
}
