// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpcframe

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ErrorAction defines the action a Conn takes when an error occurs.
type ErrorAction int

const (
	// Disconnect closes the connection when an error occurs.
	Disconnect ErrorAction = iota
	// Continue suppresses the error and continues processing.
	Continue
)

// Conn runs a framed bidirectional message stream over an
// io.ReadWriteCloser (a TCP connection, an stdio pipe pair, ...). Inbound
// payloads are decoded and handed to the message handler in arrival order;
// outbound messages are encoded and queued for a dedicated write loop.
//
// Conn is the thin transport runner below a JSON-RPC dispatch layer:
// request/response correlation, cancellation, and the protocol type catalog
// all live above it.
type Conn[M any] struct {
	rw io.ReadWriteCloser

	reader *Reader[M]
	writer *Writer
	encode Encoder[M]
	logger Logger

	onMessage func(M) error
	onError   func(error) ErrorAction

	sendq  chan []byte
	closed atomic.Bool
	done   chan struct{} // closed by Close
}

// NewConn wraps rw with framed message I/O. decode and onMessage are
// required; encode may be nil for a receive-only connection (Send then
// returns ErrInvalidArgument).
func NewConn[M any](rw io.ReadWriteCloser, decode Decoder[M], encode Encoder[M], onMessage func(M) error, opts ...Option) (*Conn[M], error) {
	if rw == nil || decode == nil || onMessage == nil {
		return nil, ErrInvalidArgument
	}
	o := defaultOptions
	for _, fn := range opts {
		fn(&o)
	}
	if o.QueueSize <= 0 {
		o.QueueSize = defaultOptions.QueueSize
	}

	return &Conn[M]{
		rw:        rw,
		reader:    &Reader[M]{fr: newFramer(decode, o), rd: rw, retryDelay: o.RetryDelay},
		writer:    &Writer{wr: rw, retryDelay: o.RetryDelay},
		encode:    encode,
		logger:    o.logger(),
		onMessage: onMessage,
		onError:   o.onError,
		sendq:     make(chan []byte, o.QueueSize),
		done:      make(chan struct{}),
	}, nil
}

// Run starts the connection's read and write loops and blocks until an
// error occurs, the context is canceled, or Close is called. The underlying
// stream is closed when Run returns.
//
// The stream is a generic io.ReadWriteCloser with no deadline hook, so
// closing it is the only way to interrupt the read loop's pending Read; Run
// does that itself as soon as its context ends.
func (c *Conn[M]) Run(ctx context.Context) error {
	group, child := errgroup.WithContext(ctx)

	group.Go(func() error {
		return c.readLoop(child)
	})

	group.Go(func() error {
		return c.writeLoop(child)
	})

	// Cancellation alone does not unblock a pending Read: close the stream
	// once the group context ends or Close is called.
	group.Go(func() error {
		select {
		case <-child.Done():
			c.closeConn()
			return nil
		case <-c.done:
			c.closeConn()
			return ErrConnClosed
		}
	})

	err := group.Wait()
	c.closeConn()

	switch {
	case err == nil || errors.Is(err, context.Canceled) ||
		errors.Is(err, io.EOF) || errors.Is(err, ErrConnClosed):
		c.logger.Info("connection closed")
	default:
		c.logger.Info("connection closed with error", "error", err)
	}
	return err
}

// Close gracefully closes the connection. Safe to call multiple times.
// Closing the underlying stream unblocks the read loop's pending read, and
// the closed done channel stops the loops even when the error policy keeps
// suppressing the resulting read errors.
func (c *Conn[M]) Close() error {
	if c.closed.Swap(true) {
		return nil // already closed
	}
	close(c.done)
	return c.rw.Close()
}

// IsClosed returns true if the connection has been closed.
func (c *Conn[M]) IsClosed() bool {
	return c.closed.Load()
}

// Send encodes a message and queues it for sending without blocking
// (fire-and-forget). Returns ErrQueueFull when the outbound queue is full;
// use SendBlocking for guaranteed queueing.
func (c *Conn[M]) Send(msg M) error {
	payload, err := c.encodePayload(msg)
	if err != nil {
		return err
	}
	select {
	case c.sendq <- payload:
		return nil
	default:
		return ErrQueueFull
	}
}

// SendBlocking encodes a message and queues it for sending, blocking until
// there is queue space or the context is canceled.
func (c *Conn[M]) SendBlocking(ctx context.Context, msg M) error {
	payload, err := c.encodePayload(msg)
	if err != nil {
		return err
	}
	select {
	case c.sendq <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn[M]) encodePayload(msg M) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrConnClosed
	}
	if c.encode == nil {
		return nil, ErrInvalidArgument
	}
	return c.encode(msg)
}

// readLoop decodes inbound messages and hands them to the handler. Framing
// keeps itself synchronized across malformed messages, so errors surfacing
// here are transport-level; the error policy decides whether they
// disconnect.
func (c *Conn[M]) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := c.reader.Next()
		if err != nil {
			c.logger.Debug("read error", "error", err)
			if c.onError(err) == Disconnect {
				return err
			}
			continue
		}
		if err = c.onMessage(msg); err != nil {
			return err
		}
	}
}

// writeLoop drains the outbound queue onto the wire.
func (c *Conn[M]) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload := <-c.sendq:
			if _, err := c.writer.WriteMessage(payload); err != nil {
				c.logger.Debug("write error", "error", err)
				if c.onError(err) == Disconnect {
					return err
				}
			}
		}
	}
}

// closeConn marks the connection as closed and closes the underlying stream.
func (c *Conn[M]) closeConn() {
	c.closed.Store(true)
	_ = c.rw.Close()
}
