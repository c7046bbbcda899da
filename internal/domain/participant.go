// Package domain contains entities without logic, just meta-data
package domain

import "time"

type (
	RoomID string
	UserID string
	// ConnID identifies a single transport connection. Opaque, unique per physical link.
	ConnID string
)

// Participant is a live, seated connection in a meeting room.
type Participant struct {
	ConnID   ConnID    `json:"connection_id"`
	UserID   UserID    `json:"user_id"`
	Username string    `json:"username"`
	Camera   bool      `json:"camera"`
	Mic      bool      `json:"mic"`
	Screen   bool      `json:"screen"`
	IsHost   bool      `json:"is_host"`
	JoinedAt time.Time `json:"joined_at"`
}

// WaitingGuest is a join request parked until the host admits or rejects it.
type WaitingGuest struct {
	ConnID      ConnID    `json:"connection_id"`
	UserID      UserID    `json:"user_id"`
	Username    string    `json:"username"`
	RequestedAt time.Time `json:"requested_at"`
}
