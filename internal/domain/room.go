package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	MaxRoomNameLen  = 64
	MinParticipants = 2
	MaxParticipants = 100
)

var (
	ErrRoomNameEmpty   = errors.New("room name empty")
	ErrRoomNameTooLong = errors.New("room name too long")
	ErrBadCapacity     = errors.New("max participants out of range")
)

// Room is the persisted room definition. Live occupancy is not stored here;
// the connection registry owns it.
type Room struct {
	ID        RoomID    `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	Max       int       `json:"max"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRoom avoids raw literals in adapters and keeps construction obvious.
func NewRoom(name string, max int) (*Room, error) {
	if len(name) == 0 {
		return nil, ErrRoomNameEmpty
	}
	if len(name) > MaxRoomNameLen {
		return nil, ErrRoomNameTooLong
	}
	if max < MinParticipants || max > MaxParticipants {
		return nil, ErrBadCapacity
	}
	return &Room{
		ID:        RoomID(uuid.NewString()),
		Key:       uuid.NewString()[:8],
		Name:      name,
		Max:       max,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}, nil
}
