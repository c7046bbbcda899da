package core

import (
	"github.com/parley-app/parley/internal/domain"
)

// Frame is a raw outbound payload (already encoded JSON).
type Frame []byte

// SignalConn abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConn interface {
	TrySend(Frame) error
	Close()
}

// Peer binds a seated participant's meta to its transport endpoint.
// This is what the registry stores and the relay/broadcast fan out to.
type Peer struct {
	Info *domain.Participant
	Conn SignalConn
}

// Waiting binds a parked join request to the requester's transport endpoint,
// so an admit/reject decision can be delivered later.
type Waiting struct {
	Info *domain.WaitingGuest
	Conn SignalConn

	// notified records that the host has been told about this request.
	// Owned by the registry; guarded by the room lock.
	notified bool
}

type MediaField int

const (
	MediaCamera MediaField = iota
	MediaMic
	MediaScreen
)
