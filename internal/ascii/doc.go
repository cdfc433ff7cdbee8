// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ascii provides byte-span parsing helpers for ASCII protocol text.
//
// The integer parser operates on raw byte spans (not strings) so header
// values can be parsed without copying, and it tolerates surrounding ASCII
// whitespace the way header values arrive on the wire.
package ascii
