package core

import "errors"

// Frame is one complete UTF-8 JSON text message.
type Frame []byte

// CloseCode is a WebSocket close status.
type CloseCode int

const (
	CloseNormal          CloseCode = 1000
	CloseGoingAway       CloseCode = 1001
	ClosePolicyViolation CloseCode = 1008
	CloseInternalError   CloseCode = 1011
)

var (
	ErrBackpressure     = errors.New("backpressure")
	ErrConnectionClosed = errors.New("connection closed")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
//
// TrySend never blocks: a full buffer yields ErrBackpressure.
// Close flushes already queued frames before the close frame is written.
type SignalConnection interface {
	TrySend(Frame) error
	Close(CloseCode)
}
