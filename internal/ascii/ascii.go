// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ascii

import (
	"math"
	"strings"
	"unicode/utf8"
)

// InvalidBytePlaceholder replaces bytes that are not valid UTF-8 when a raw
// wire span has to appear in diagnostic text.
const InvalidBytePlaceholder = "<invalid>"

// Int parses a signed base-10 integer from b. Leading and trailing ASCII
// whitespace is tolerated; any other non-digit content makes the parse fail.
// The second result reports whether a value was found.
//
// Overflow of int64 panics: a numeral that wide is a protocol bug in the
// peer, not a value this layer can meaningfully recover from.
func Int(b []byte) (int64, bool) {
	i, n := 0, len(b)
	for i < n && isSpace(b[i]) {
		i++
	}
	if i == n {
		return 0, false
	}

	sign := int64(1)
	if b[i] == '+' || b[i] == '-' {
		if b[i] == '-' {
			sign = -1
		}
		i++
	}

	// At least one digit is required. The sign is applied per digit so the
	// full negative range parses without an intermediate positive overflow.
	start := i
	var v int64
	for i < n && b[i] >= '0' && b[i] <= '9' {
		v = accumulate(v, sign*int64(b[i]-'0'))
		i++
	}
	if i == start {
		return 0, false
	}

	for i < n && isSpace(b[i]) {
		i++
	}
	if i != n {
		return 0, false
	}
	return v, true
}

// accumulate appends one signed digit to v, panicking when the result no
// longer fits in int64.
func accumulate(v, d int64) int64 {
	if v > math.MaxInt64/10 || v < math.MinInt64/10 {
		panic("ascii: integer overflow")
	}
	v *= 10
	if (d > 0 && v > math.MaxInt64-d) || (d < 0 && v < math.MinInt64-d) {
		panic("ascii: integer overflow")
	}
	return v + d
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	}
	return false
}

// Sanitize renders b as text safe to embed in diagnostics. Bytes that do not
// form valid UTF-8 are replaced with InvalidBytePlaceholder instead of being
// copied through raw.
func Sanitize(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var sb strings.Builder
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			sb.WriteString(InvalidBytePlaceholder)
		} else {
			sb.Write(b[:size])
		}
		b = b[size:]
	}
	return sb.String()
}
