// Package metrics exposes prometheus instruments for the coordinator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parley_active_rooms",
		Help: "Number of rooms with live state in the registry.",
	})
	SeatedConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parley_seated_connections",
		Help: "Number of seated connections across all rooms.",
	})
	WaitingGuests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parley_waiting_guests",
		Help: "Number of guests parked in waiting rooms.",
	})
	SignalsRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_signals_relayed_total",
		Help: "Signaling payloads forwarded between peers.",
	}, []string{"kind"})
	NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parley_notifications_dropped_total",
		Help: "Outbound notifications dropped due to backpressure.",
	})
	MeetingsEnded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parley_meetings_ended_total",
		Help: "Meetings terminated by host departure.",
	})
)

// SyncOccupancy sets the occupancy gauges from a registry snapshot.
func SyncOccupancy(rooms, seated, waiting int) {
	ActiveRooms.Set(float64(rooms))
	SeatedConnections.Set(float64(seated))
	WaitingGuests.Set(float64(waiting))
}
