// Package redis provides a Redis implementation of the membership store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parley-app/parley/internal/config"
	"github.com/parley-app/parley/internal/domain"
	"github.com/parley-app/parley/internal/store"
)

type Store struct {
	client    *redis.Client
	keyPrefix string
}

func NewStore(cfg config.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{client: client, keyPrefix: cfg.KeyPrefix}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) roomKey(id domain.RoomID) string {
	return fmt.Sprintf("%srooms:%s", s.keyPrefix, id)
}

func (s *Store) roomByKeyKey(key string) string {
	return fmt.Sprintf("%sroomkeys:%s", s.keyPrefix, key)
}

func (s *Store) activeSetKey() string {
	return s.keyPrefix + "rooms:active"
}

func (s *Store) partKey(roomID domain.RoomID, userID domain.UserID) string {
	return fmt.Sprintf("%sparts:%s:%s", s.keyPrefix, roomID, userID)
}

func (s *Store) partSetKey(roomID domain.RoomID) string {
	return fmt.Sprintf("%sparts:%s", s.keyPrefix, roomID)
}

func (s *Store) CreateRoom(ctx context.Context, room *domain.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.roomKey(room.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to save room: %w", err)
	}
	if !ok {
		return store.ErrConflict
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.roomByKeyKey(room.Key), string(room.ID), 0)
	pipe.SAdd(ctx, s.activeSetKey(), string(room.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index room: %w", err)
	}
	return nil
}

func (s *Store) GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	data, err := s.client.Get(ctx, s.roomKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	var room domain.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}
	return &room, nil
}

func (s *Store) GetRoomByKey(ctx context.Context, key string) (*domain.Room, error) {
	id, err := s.client.Get(ctx, s.roomByKeyKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve room key: %w", err)
	}
	return s.GetRoom(ctx, domain.RoomID(id))
}

func (s *Store) ListActiveRooms(ctx context.Context) ([]*domain.Room, error) {
	ids, err := s.client.SMembers(ctx, s.activeSetKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list active rooms: %w", err)
	}
	rooms := make([]*domain.Room, 0, len(ids))
	for _, id := range ids {
		room, err := s.GetRoom(ctx, domain.RoomID(id))
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (s *Store) CloseRoom(ctx context.Context, id domain.RoomID) error {
	room, err := s.GetRoom(ctx, id)
	if err != nil {
		return err
	}
	room.IsActive = false
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.roomKey(id), data, 0)
	pipe.SRem(ctx, s.activeSetKey(), string(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to close room: %w", err)
	}
	return nil
}

func (s *Store) UpsertParticipation(ctx context.Context, m *domain.Membership) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal participation: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.partKey(m.RoomID, m.UserID), data, 0)
	pipe.SAdd(ctx, s.partSetKey(m.RoomID), string(m.UserID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save participation: %w", err)
	}
	return nil
}

func (s *Store) GetParticipation(ctx context.Context, userID domain.UserID, roomID domain.RoomID) (*domain.Membership, error) {
	data, err := s.client.Get(ctx, s.partKey(roomID, userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participation: %w", err)
	}
	var m domain.Membership
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal participation: %w", err)
	}
	return &m, nil
}

func (s *Store) SetParticipationStatus(ctx context.Context, roomID domain.RoomID, userID domain.UserID, status domain.Status, joinedAt *time.Time) error {
	m, err := s.GetParticipation(ctx, userID, roomID)
	if err != nil {
		return err
	}
	m.Status = status
	if joinedAt != nil {
		m.JoinedAt = joinedAt
	}
	return s.UpsertParticipation(ctx, m)
}

func (s *Store) RecordLeave(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	m, err := s.GetParticipation(ctx, userID, roomID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	m.Status = domain.StatusLeft
	m.LeftAt = &now
	return s.UpsertParticipation(ctx, m)
}

func (s *Store) ListParticipants(ctx context.Context, roomID domain.RoomID) ([]*domain.Membership, error) {
	ids, err := s.client.SMembers(ctx, s.partSetKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	out := make([]*domain.Membership, 0, len(ids))
	for _, id := range ids {
		m, err := s.GetParticipation(ctx, domain.UserID(id), roomID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
