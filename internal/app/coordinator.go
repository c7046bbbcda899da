// Package app implements the meeting coordinator: admission control, the
// signal relay, presence broadcasting and session teardown, operating over
// the connection registry and the membership store.
package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/parley-app/parley/internal/core"
	"github.com/parley-app/parley/internal/domain"
	"github.com/parley-app/parley/internal/metrics"
	"github.com/parley-app/parley/internal/store"
)

// OccupancySink receives room occupancy changes, for monitoring surfaces.
type OccupancySink interface {
	RoomChanged(roomID domain.RoomID, seated, waiting int)
}

type Coordinator struct {
	registry *core.Registry
	store    store.Store
	monitor  OccupancySink // optional
}

func NewCoordinator(reg *core.Registry, st store.Store, monitor OccupancySink) *Coordinator {
	return &Coordinator{registry: reg, store: st, monitor: monitor}
}

// Registry exposes the live registry for read-only surfaces (REST occupancy).
func (c *Coordinator) Registry() *core.Registry { return c.registry }

func (c *Coordinator) send(conn core.SignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app").Msg("marshal notification")
		return
	}
	if err := conn.TrySend(b); err != nil {
		metrics.NotificationsDropped.Inc()
		log.Warn().Err(err).Str("module", "app").Msg("notification dropped")
	}
}

func (c *Coordinator) sendError(conn core.SignalConn, msg string) {
	c.send(conn, errorEvent{Type: "error", Error: msg})
}

func (c *Coordinator) broadcast(peers []*core.Peer, v any) {
	for _, p := range peers {
		c.send(p.Conn, v)
	}
}

// occupancyChanged refreshes gauges and pushes the room's live counts to the
// monitor, outside any room lock.
func (c *Coordinator) occupancyChanged(roomID domain.RoomID) {
	metrics.SyncOccupancy(c.registry.Stats())
	if c.monitor != nil {
		seated, waiting := c.registry.Counts(roomID)
		c.monitor.RoomChanged(roomID, seated, waiting)
	}
}
