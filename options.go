// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpcframe

import "time"

// Options configures framing and connection behavior.
type Options struct {
	// Logger receives diagnostics for recoverable wire errors. Nil selects
	// the default slog logger.
	Logger Logger

	// ReadLimit caps the declared Content-Length of inbound messages
	// (bytes). Zero means no limit. A message exceeding the limit yields
	// ErrTooLong.
	ReadLimit int

	// RetryDelay controls how the I/O-driving layers handle iox.ErrWouldBlock
	// from the underlying transport:
	//   - negative: nonblock, return ErrWouldBlock immediately
	//   - zero: yield (runtime.Gosched) and retry
	//   - positive: sleep for the duration and retry
	RetryDelay time.Duration

	// QueueSize is the capacity of a Conn's outbound message queue.
	QueueSize int

	// OnError decides whether a Conn survives an I/O or framing error.
	// Nil means every error disconnects.
	OnError func(error) ErrorAction
}

var defaultOptions = Options{
	ReadLimit:  0,
	RetryDelay: -1, // default: nonblock
	QueueSize:  1,
}

// logger resolves the configured diagnostics sink.
func (o *Options) logger() Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return defaultLogger()
}

func (o *Options) onError(err error) ErrorAction {
	if o.OnError != nil {
		return o.OnError(err)
	}
	return Disconnect
}

type Option func(*Options)

// WithLogger sets the diagnostics sink for recoverable wire errors.
func WithLogger(l Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithReadLimit caps the declared length of inbound message payloads.
func WithReadLimit(limit int) Option {
	return func(o *Options) { o.ReadLimit = limit }
}

// WithRetryDelay sets the retry/wait policy used when the underlying transport returns iox.ErrWouldBlock.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Options) { o.RetryDelay = d }
}

// WithBlock enables cooperative blocking (yield-and-retry) on iox.ErrWouldBlock.
func WithBlock() Option {
	return func(o *Options) { o.RetryDelay = 0 }
}

// WithNonblock forces non-blocking behavior (return iox.ErrWouldBlock immediately).
func WithNonblock() Option {
	return func(o *Options) { o.RetryDelay = -1 }
}

// WithQueueSize sets the capacity of a Conn's outbound message queue.
func WithQueueSize(n int) Option {
	return func(o *Options) { o.QueueSize = n }
}

// WithOnError sets the error policy callback for a Conn. Return Disconnect to
// close the connection, or Continue to suppress the error and keep going.
func WithOnError(cb func(error) ErrorAction) Option {
	return func(o *Options) { o.OnError = cb }
}
