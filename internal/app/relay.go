package app

import (
	"encoding/json"
	"errors"

	"github.com/parley-app/parley/internal/domain"
	"github.com/parley-app/parley/internal/metrics"
)

var (
	ErrNotInRoom           = errors.New("sender not in a room")
	ErrTargetNotFound      = errors.New("target not found")
	ErrTargetDifferentRoom = errors.New("target in different room")
)

type SignalKind string

const (
	SignalOffer     SignalKind = "offer"
	SignalAnswer    SignalKind = "answer"
	SignalCandidate SignalKind = "candidate"
)

// Relay forwards an opaque signaling payload from one seated connection to
// another in the same room. Offers, answers and candidates are treated
// uniformly; this is a routing function, not a protocol interpreter. On any
// validation failure the error goes back to the caller and nothing is
// forwarded; the relay never falls back to broadcast.
func (c *Coordinator) Relay(from, to domain.ConnID, kind SignalKind, payload json.RawMessage) error {
	fromRoom, ok := c.registry.Lookup(from)
	if !ok {
		return ErrNotInRoom
	}
	toRoom, ok := c.registry.Lookup(to)
	if !ok {
		return ErrTargetNotFound
	}
	if fromRoom != toRoom {
		return ErrTargetDifferentRoom
	}
	target, ok := c.registry.Peer(to)
	if !ok {
		return ErrTargetNotFound
	}
	src, ok := c.registry.Peer(from)
	if !ok {
		return ErrNotInRoom
	}

	c.send(target.Conn, signalEvent{
		Type:         string(kind),
		FromConnID:   src.Info.ConnID,
		FromUserID:   src.Info.UserID,
		FromUsername: src.Info.Username,
		Payload:      payload,
	})
	metrics.SignalsRelayed.WithLabelValues(string(kind)).Inc()
	return nil
}
