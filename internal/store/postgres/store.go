// Package postgres provides a PostgreSQL implementation of the membership store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/parley-app/parley/internal/config"
	"github.com/parley-app/parley/internal/domain"
	"github.com/parley-app/parley/internal/store"
)

type Store struct {
	db *sql.DB
}

func NewStore(cfg config.PostgresConfig) (*Store, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an existing connection, for tests.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateRoom(ctx context.Context, room *domain.Room) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (id, room_key, room_name, max_participants, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(room.ID), room.Key, room.Name, room.Max, room.IsActive, room.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert room: %w", err)
	}
	return nil
}

func (s *Store) scanRoom(row *sql.Row) (*domain.Room, error) {
	var room domain.Room
	var id string
	err := row.Scan(&id, &room.Key, &room.Name, &room.Max, &room.IsActive, &room.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan room: %w", err)
	}
	room.ID = domain.RoomID(id)
	return &room, nil
}

func (s *Store) GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, room_key, room_name, max_participants, is_active, created_at
		FROM rooms WHERE id = $1`, string(id))
	return s.scanRoom(row)
}

func (s *Store) GetRoomByKey(ctx context.Context, key string) (*domain.Room, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, room_key, room_name, max_participants, is_active, created_at
		FROM rooms WHERE room_key = $1`, key)
	return s.scanRoom(row)
}

func (s *Store) ListActiveRooms(ctx context.Context) ([]*domain.Room, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_key, room_name, max_participants, is_active, created_at
		FROM rooms WHERE is_active ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var out []*domain.Room
	for rows.Next() {
		var room domain.Room
		var id string
		if err := rows.Scan(&id, &room.Key, &room.Name, &room.Max, &room.IsActive, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		room.ID = domain.RoomID(id)
		out = append(out, &room)
	}
	return out, rows.Err()
}

func (s *Store) CloseRoom(ctx context.Context, id domain.RoomID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rooms SET is_active = FALSE WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("failed to close room: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpsertParticipation(ctx context.Context, m *domain.Membership) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO participations (room_id, user_id, role, status, joined_at, left_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (room_id, user_id)
		DO UPDATE SET role = $3, status = $4, joined_at = $5, left_at = $6`,
		string(m.RoomID), string(m.UserID), string(m.Role), string(m.Status), m.JoinedAt, m.LeftAt)
	if err != nil {
		return fmt.Errorf("failed to upsert participation: %w", err)
	}
	return nil
}

func (s *Store) GetParticipation(ctx context.Context, userID domain.UserID, roomID domain.RoomID) (*domain.Membership, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT room_id, user_id, role, status, joined_at, left_at
		FROM participations WHERE room_id = $1 AND user_id = $2`,
		string(roomID), string(userID))

	m, err := scanParticipation(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return m, err
}

func scanParticipation(scan func(dest ...any) error) (*domain.Membership, error) {
	var m domain.Membership
	var roomID, userID, role, status string
	var joinedAt, leftAt sql.NullTime
	if err := scan(&roomID, &userID, &role, &status, &joinedAt, &leftAt); err != nil {
		return nil, err
	}
	m.RoomID = domain.RoomID(roomID)
	m.UserID = domain.UserID(userID)
	m.Role = domain.Role(role)
	m.Status = domain.Status(status)
	if joinedAt.Valid {
		t := joinedAt.Time
		m.JoinedAt = &t
	}
	if leftAt.Valid {
		t := leftAt.Time
		m.LeftAt = &t
	}
	return &m, nil
}

func (s *Store) SetParticipationStatus(ctx context.Context, roomID domain.RoomID, userID domain.UserID, status domain.Status, joinedAt *time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE participations SET status = $3, joined_at = COALESCE($4, joined_at)
		WHERE room_id = $1 AND user_id = $2`,
		string(roomID), string(userID), string(status), joinedAt)
	if err != nil {
		return fmt.Errorf("failed to update participation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) RecordLeave(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE participations SET status = $3, left_at = $4
		WHERE room_id = $1 AND user_id = $2`,
		string(roomID), string(userID), string(domain.StatusLeft), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record leave: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListParticipants(ctx context.Context, roomID domain.RoomID) ([]*domain.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT room_id, user_id, role, status, joined_at, left_at
		FROM participations WHERE room_id = $1 ORDER BY joined_at`,
		string(roomID))
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var out []*domain.Membership
	for rows.Next() {
		m, err := scanParticipation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participation: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
