package core

// Frame is one raw outbound message, already serialized.
type Frame []byte

// SignalConnection abstracts the sendable side of a client transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues a frame without blocking. A full queue or a
	// closed connection returns an error; delivery is never awaited.
	TrySend(Frame) error
	Close()
}
