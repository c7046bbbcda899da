package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/parley-app/parley/internal/domain"
	"github.com/parley-app/parley/internal/metrics"
)

// Disconnect tears down whatever state a vanished connection held. Explicit
// leaves and abrupt transport drops both land here and are indistinguishable.
// The unseat is idempotent, so duplicate triggers are harmless.
func (c *Coordinator) Disconnect(ctx context.Context, cid domain.ConnID) {
	if roomID, w, ok := c.registry.DropWaiting(cid); ok {
		log.Info().Str("module", "app.teardown").
			Str("room", string(roomID)).Str("conn", string(cid)).
			Str("user", string(w.Info.UserID)).
			Msg("waiting guest gave up")
		c.occupancyChanged(roomID)
	}

	roomID, p, wasHost, ok := c.registry.Unseat(cid)
	if !ok {
		return
	}

	if !wasHost {
		if err := c.store.RecordLeave(ctx, roomID, p.Info.UserID); err != nil {
			log.Error().Err(err).Str("module", "app.teardown").
				Str("room", string(roomID)).Str("user", string(p.Info.UserID)).
				Msg("record leave failed")
		}
		peers := c.registry.ListPeers(roomID, cid)
		c.broadcast(peers, userLeftEvent{Type: "user_left", ConnID: p.Info.ConnID, UserID: p.Info.UserID})
		c.occupancyChanged(roomID)
		return
	}

	// Host departure ends the meeting for everyone: the host is the
	// admission authority, and a host-less room with a stale waiting list
	// would strand guests that can never be admitted. Snapshot first, then
	// mutate; peers' own disconnect detection becomes a no-op because their
	// index entries are already gone.
	peers, waiting := c.registry.DropRoom(roomID)
	if err := c.store.RecordLeave(ctx, roomID, p.Info.UserID); err != nil {
		log.Error().Err(err).Str("module", "app.teardown").
			Str("room", string(roomID)).Str("user", string(p.Info.UserID)).
			Msg("record host leave failed")
	}
	for _, peer := range peers {
		if err := c.store.RecordLeave(ctx, roomID, peer.Info.UserID); err != nil {
			log.Error().Err(err).Str("module", "app.teardown").
				Str("room", string(roomID)).Str("user", string(peer.Info.UserID)).
				Msg("record forced leave failed")
		}
		c.send(peer.Conn, meetingEndedEvent{Type: "meeting_ended"})
	}
	for _, w := range waiting {
		c.send(w.Conn, meetingEndedEvent{Type: "meeting_ended"})
	}
	metrics.MeetingsEnded.Inc()
	c.occupancyChanged(roomID)
	log.Info().Str("module", "app.teardown").
		Str("room", string(roomID)).
		Int("peers", len(peers)).
		Msg("meeting ended by host")
}
