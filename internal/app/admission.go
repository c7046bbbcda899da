package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/parley-app/parley/internal/core"
	"github.com/parley-app/parley/internal/domain"
	"github.com/parley-app/parley/internal/store"
)

type JoinRequest struct {
	RoomID   domain.RoomID
	ConnID   domain.ConnID
	UserID   domain.UserID
	Username string
	Camera   bool
	Mic      bool
}

// Join runs the admission state machine for one join attempt. The membership
// record decides the path: hosts are seated immediately and the waiting list
// is flushed to them; rejected guests are refused; previously admitted guests
// are re-seated without re-queuing; pending guests are parked until the host
// decides.
func (c *Coordinator) Join(ctx context.Context, conn core.SignalConn, req JoinRequest) {
	mem, err := c.store.GetParticipation(ctx, req.UserID, req.RoomID)
	if errors.Is(err, store.ErrNotFound) {
		c.sendError(conn, "you must request to join the room via the api first")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "app.admission").
			Str("room", string(req.RoomID)).Str("user", string(req.UserID)).
			Msg("participation lookup failed")
		c.sendError(conn, "failed to join room")
		return
	}

	switch {
	case mem.Role == domain.RoleHost:
		if !c.seat(ctx, conn, req, true) {
			return
		}
		c.flushWaiting(req.RoomID)
	case mem.Status == domain.StatusRejected:
		c.send(conn, rejectedEvent{Type: "rejected"})
	case mem.Status == domain.StatusJoined:
		// Reconnection tolerance: admitted before, no re-queue. Capacity is
		// not re-checked; the seat was already counted against the room.
		c.seat(ctx, conn, req, false)
	case mem.Status == domain.StatusPending:
		c.queueGuest(req.RoomID, conn, req)
	default:
		c.sendError(conn, "you have left this room, request to join again via the api")
	}
}

// seat persists the join before touching the registry, so a store failure
// never leaves a seated connection without a record.
func (c *Coordinator) seat(ctx context.Context, conn core.SignalConn, req JoinRequest, asHost bool) bool {
	now := time.Now().UTC()
	if err := c.store.SetParticipationStatus(ctx, req.RoomID, req.UserID, domain.StatusJoined, &now); err != nil {
		log.Error().Err(err).Str("module", "app.admission").
			Str("room", string(req.RoomID)).Str("user", string(req.UserID)).
			Msg("participation update failed")
		c.sendError(conn, "failed to join room")
		return false
	}

	p := &core.Peer{
		Info: &domain.Participant{
			ConnID:   req.ConnID,
			UserID:   req.UserID,
			Username: req.Username,
			Camera:   req.Camera,
			Mic:      req.Mic,
			IsHost:   asHost,
			JoinedAt: now,
		},
		Conn: conn,
	}
	if err := c.registry.Seat(req.RoomID, p); err != nil {
		c.sendError(conn, "already in a meeting, leave it first")
		return false
	}

	peers := c.registry.ListPeers(req.RoomID, req.ConnID)
	c.send(conn, existingParticipants(peers))
	c.broadcast(peers, userJoinedEvent{Type: "user_joined", Participant: viewOf(p.Info)})
	c.occupancyChanged(req.RoomID)
	return true
}

// flushWaiting delivers every parked join request to the just-seated host.
// The host must still act on each; nothing is auto-admitted. The claim is
// atomic, so a guest enqueued while the host is seating is announced by
// exactly one of the two paths.
func (c *Coordinator) flushWaiting(roomID domain.RoomID) {
	host, ok := c.registry.HostOf(roomID)
	if !ok {
		return
	}
	for _, w := range c.registry.ClaimWaitingNotifications(roomID) {
		c.send(host.Conn, guestRequestedEvent{Type: "guest_requested", Guest: guestViewOf(w.Info)})
	}
}

func (c *Coordinator) queueGuest(roomID domain.RoomID, conn core.SignalConn, req JoinRequest) {
	w := &core.Waiting{
		Info: &domain.WaitingGuest{
			ConnID:      req.ConnID,
			UserID:      req.UserID,
			Username:    req.Username,
			RequestedAt: time.Now().UTC(),
		},
		Conn: conn,
	}
	added, host := c.registry.EnqueueWaiting(roomID, w)
	c.send(conn, waitingEvent{Type: "waiting"})
	if !added {
		// Duplicate request; the host was already told once.
		return
	}
	if host != nil {
		c.send(host.Conn, guestRequestedEvent{Type: "guest_requested", Guest: guestViewOf(w.Info)})
	}
	c.occupancyChanged(roomID)
}

// resolveActor resolves the caller's own room and seat via the reverse
// index. Host actions are scoped this way on purpose: the client never
// supplies a room id, so it cannot admit into someone else's room.
func (c *Coordinator) resolveActor(cid domain.ConnID) (domain.RoomID, *core.Peer, bool) {
	roomID, ok := c.registry.Lookup(cid)
	if !ok {
		return "", nil, false
	}
	p, ok := c.registry.Peer(cid)
	if !ok {
		return "", nil, false
	}
	return roomID, p, true
}

// Admit seats a waiting guest on the host's say-so. Unknown guests and
// unseated callers are benign no-ops; connections vanish between the host's
// click and the server processing it.
func (c *Coordinator) Admit(ctx context.Context, hostCID, guestCID domain.ConnID) {
	roomID, actor, ok := c.resolveActor(hostCID)
	if !ok {
		log.Debug().Str("module", "app.admission").Str("conn", string(hostCID)).Msg("admit from unseated connection")
		return
	}
	if !actor.Info.IsHost {
		c.sendError(actor.Conn, "only the host can admit guests")
		return
	}

	room, err := c.store.GetRoom(ctx, roomID)
	if err != nil {
		log.Error().Err(err).Str("module", "app.admission").Str("room", string(roomID)).Msg("room lookup failed")
		c.sendError(actor.Conn, "failed to admit guest")
		return
	}
	if seated, _ := c.registry.Counts(roomID); room.Max > 0 && seated >= room.Max {
		c.sendError(actor.Conn, "room is full")
		return
	}

	w, ok := c.registry.RemoveWaiting(roomID, guestCID)
	if !ok {
		log.Debug().Str("module", "app.admission").
			Str("room", string(roomID)).Str("conn", string(guestCID)).
			Msg("admit for absent guest")
		return
	}

	now := time.Now().UTC()
	if err := c.store.SetParticipationStatus(ctx, roomID, w.Info.UserID, domain.StatusJoined, &now); err != nil {
		// Put the claim back so the host can retry.
		c.registry.EnqueueWaiting(roomID, w)
		log.Error().Err(err).Str("module", "app.admission").
			Str("room", string(roomID)).Str("user", string(w.Info.UserID)).
			Msg("participation update failed")
		c.sendError(actor.Conn, "failed to admit guest")
		return
	}

	p := &core.Peer{
		Info: &domain.Participant{
			ConnID:   w.Info.ConnID,
			UserID:   w.Info.UserID,
			Username: w.Info.Username,
			JoinedAt: now,
		},
		Conn: w.Conn,
	}
	if err := c.registry.Seat(roomID, p); err != nil {
		log.Warn().Err(err).Str("module", "app.admission").
			Str("conn", string(guestCID)).Msg("admitted guest could not be seated")
		return
	}

	peers := c.registry.ListPeers(roomID, guestCID)
	c.send(p.Conn, existingParticipants(peers))
	c.broadcast(peers, userJoinedEvent{Type: "user_joined", Participant: viewOf(p.Info)})
	c.occupancyChanged(roomID)
}

// Reject refuses a waiting guest and records the decision so the guest is not
// auto-admitted on a later attempt.
func (c *Coordinator) Reject(ctx context.Context, hostCID, guestCID domain.ConnID) {
	roomID, actor, ok := c.resolveActor(hostCID)
	if !ok {
		log.Debug().Str("module", "app.admission").Str("conn", string(hostCID)).Msg("reject from unseated connection")
		return
	}
	if !actor.Info.IsHost {
		c.sendError(actor.Conn, "only the host can reject guests")
		return
	}

	w, ok := c.registry.RemoveWaiting(roomID, guestCID)
	if !ok {
		log.Debug().Str("module", "app.admission").
			Str("room", string(roomID)).Str("conn", string(guestCID)).
			Msg("reject for absent guest")
		return
	}

	if err := c.store.SetParticipationStatus(ctx, roomID, w.Info.UserID, domain.StatusRejected, nil); err != nil {
		c.registry.EnqueueWaiting(roomID, w)
		log.Error().Err(err).Str("module", "app.admission").
			Str("room", string(roomID)).Str("user", string(w.Info.UserID)).
			Msg("participation update failed")
		c.sendError(actor.Conn, "failed to reject guest")
		return
	}

	c.send(w.Conn, rejectedEvent{Type: "rejected"})
	c.occupancyChanged(roomID)
}
