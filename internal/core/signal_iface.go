package core

import "errors"

// Frame is a raw encoded message.
type Frame []byte

// ConnID identifies one live connection for the lifetime of the process.
type ConnID string

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	ID() ConnID
	// TrySend never blocks: it returns ErrBackpressure when the outbound
	// buffer is full and ErrConnClosed after Close.
	TrySend(Frame) error
	Close()
	Closed() bool
}
