package http

import (
	"io"
	"sync"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/parley-app/parley/internal/domain"
)

type occupancyUpdate struct {
	RoomID  domain.RoomID `json:"room_id"`
	Seated  int           `json:"seated"`
	Waiting int           `json:"waiting"`
}

// MonitorController streams room occupancy changes to dashboards over SSE.
// It implements the coordinator's OccupancySink.
type MonitorController struct {
	mu   sync.Mutex
	subs map[chan occupancyUpdate]struct{}
}

func NewMonitorController() *MonitorController {
	return &MonitorController{subs: make(map[chan occupancyUpdate]struct{})}
}

func (m *MonitorController) RoomChanged(roomID domain.RoomID, seated, waiting int) {
	upd := occupancyUpdate{RoomID: roomID, Seated: seated, Waiting: waiting}
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs {
		select {
		case ch <- upd:
		default:
			// slow dashboard, skip this tick
		}
	}
}

func (m *MonitorController) subscribe() chan occupancyUpdate {
	ch := make(chan occupancyUpdate, 16)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()
	return ch
}

func (m *MonitorController) unsubscribe(ch chan occupancyUpdate) {
	m.mu.Lock()
	delete(m.subs, ch)
	m.mu.Unlock()
}

func (m *MonitorController) Stream(c *gin.Context) {
	ch := m.subscribe()
	defer m.unsubscribe(ch)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	log.Info().Str("module", "adapters.http").Msg("monitor stream opened")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case upd := <-ch:
			if err := sse.Encode(w, sse.Event{Event: "occupancy", Data: upd}); err != nil {
				return false
			}
			return true
		}
	})
}
