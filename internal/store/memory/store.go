// Package memory provides an in-memory implementation of the membership
// store, used in tests and single-node development setups.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/parley-app/parley/internal/domain"
	"github.com/parley-app/parley/internal/store"
)

type partKey struct {
	room domain.RoomID
	user domain.UserID
}

type Store struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*domain.Room
	keys  map[string]domain.RoomID
	parts map[partKey]*domain.Membership
}

func NewStore() *Store {
	return &Store{
		rooms: make(map[domain.RoomID]*domain.Room),
		keys:  make(map[string]domain.RoomID),
		parts: make(map[partKey]*domain.Membership),
	}
}

func (s *Store) CreateRoom(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.ID]; ok {
		return store.ErrConflict
	}
	cp := *room
	s.rooms[room.ID] = &cp
	s.keys[room.Key] = room.ID
	return nil
}

func (s *Store) GetRoom(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *room
	return &cp, nil
}

func (s *Store) GetRoomByKey(ctx context.Context, key string) (*domain.Room, error) {
	s.mu.RLock()
	id, ok := s.keys[key]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.GetRoom(ctx, id)
}

func (s *Store) ListActiveRooms(_ context.Context) ([]*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		if !room.IsActive {
			continue
		}
		cp := *room
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) CloseRoom(_ context.Context, id domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return store.ErrNotFound
	}
	room.IsActive = false
	return nil
}

func (s *Store) UpsertParticipation(_ context.Context, m *domain.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.parts[partKey{m.RoomID, m.UserID}] = &cp
	return nil
}

func (s *Store) GetParticipation(_ context.Context, userID domain.UserID, roomID domain.RoomID) (*domain.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.parts[partKey{roomID, userID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *Store) SetParticipationStatus(_ context.Context, roomID domain.RoomID, userID domain.UserID, status domain.Status, joinedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.parts[partKey{roomID, userID}]
	if !ok {
		return store.ErrNotFound
	}
	m.Status = status
	if joinedAt != nil {
		m.JoinedAt = joinedAt
	}
	return nil
}

func (s *Store) RecordLeave(_ context.Context, roomID domain.RoomID, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.parts[partKey{roomID, userID}]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	m.Status = domain.StatusLeft
	m.LeftAt = &now
	return nil
}

func (s *Store) ListParticipants(_ context.Context, roomID domain.RoomID) ([]*domain.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Membership
	for k, m := range s.parts {
		if k.room != roomID {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) Close() error { return nil }
