// Package store defines the persistence contract for room definitions and
// participation records. The coordinator consumes it through this narrow
// interface; implementations live in the subpackages (memory, redis,
// postgres) and are wired in main by the configured driver.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/parley-app/parley/internal/domain"
)

var (
	ErrNotFound = errors.New("entity not found")
	ErrConflict = errors.New("entity already exists")
)

// Store is the membership collaborator. It serializes its own writes per
// record; last-write-wins is acceptable for leave-time stamps.
type Store interface {
	// Room definitions
	CreateRoom(ctx context.Context, room *domain.Room) error
	GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	GetRoomByKey(ctx context.Context, key string) (*domain.Room, error)
	ListActiveRooms(ctx context.Context) ([]*domain.Room, error)
	CloseRoom(ctx context.Context, id domain.RoomID) error

	// Participation records
	UpsertParticipation(ctx context.Context, m *domain.Membership) error
	GetParticipation(ctx context.Context, userID domain.UserID, roomID domain.RoomID) (*domain.Membership, error)
	SetParticipationStatus(ctx context.Context, roomID domain.RoomID, userID domain.UserID, status domain.Status, joinedAt *time.Time) error
	RecordLeave(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error
	ListParticipants(ctx context.Context, roomID domain.RoomID) ([]*domain.Membership, error)

	Close() error
}
