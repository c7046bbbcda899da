package domain

import "time"

type Role string

const (
	RoleHost        Role = "host"
	RoleParticipant Role = "participant"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusJoined   Status = "joined"
	StatusRejected Status = "rejected"
	StatusLeft     Status = "left"
)

// Membership is the persisted participation record for a (user, room) pair.
// The coordinator reads it to decide admission and writes it on
// admit/reject/leave; it never owns it.
type Membership struct {
	RoomID   RoomID     `json:"room_id"`
	UserID   UserID     `json:"user_id"`
	Role     Role       `json:"role"`
	Status   Status     `json:"status"`
	JoinedAt *time.Time `json:"joined_at,omitempty"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
}
