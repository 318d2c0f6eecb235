package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/parley-chat/parley/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/parley.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/parley.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		is_private INTEGER DEFAULT 0,
		key_hash TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_active_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		message_count INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_rooms_name ON rooms(name);
	CREATE INDEX IF NOT EXISTS idx_rooms_is_private ON rooms(is_private);
	CREATE INDEX IF NOT EXISTS idx_rooms_last_active ON rooms(last_active_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateRoom creates a new room.
func (s *SQLiteStore) CreateRoom(ctx context.Context, name string, isPrivate bool, keyHash string) (*models.Room, error) {
	id := uuid.New().String()
	now := time.Now()

	var keyHashPtr *string
	if keyHash != "" {
		keyHashPtr = &keyHash
	}

	isPrivateInt := 0
	if isPrivate {
		isPrivateInt = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (id, name, is_private, key_hash, created_at, last_active_at, message_count)
		VALUES (?, ?, ?, ?, ?, ?, 0)
	`, id, name, isPrivateInt, keyHashPtr, now, now)
	if err != nil {
		return nil, err
	}

	return s.GetRoom(ctx, uuid.MustParse(id))
}

// GetRoom retrieves a room by ID.
func (s *SQLiteStore) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	return s.getRoomWhere(ctx, `id = ?`, id.String())
}

// GetRoomByName retrieves a room by name. Returns the oldest match if several exist.
func (s *SQLiteStore) GetRoomByName(ctx context.Context, name string) (*models.Room, error) {
	return s.getRoomWhere(ctx, `name = ? ORDER BY created_at ASC`, name)
}

func (s *SQLiteStore) getRoomWhere(ctx context.Context, where string, arg any) (*models.Room, error) {
	room := &models.Room{}
	var idStr string
	var isPrivateInt int

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, is_private, created_at, last_active_at, message_count
		FROM rooms WHERE `+where+` LIMIT 1
	`, arg).Scan(
		&idStr,
		&room.Name,
		&isPrivateInt,
		&room.CreatedAt,
		&room.LastActiveAt,
		&room.MessageCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	room.ID = uuid.MustParse(idStr)
	room.IsPrivate = isPrivateInt == 1
	return room, nil
}

// GetRoomKeyHash retrieves the key hash for a private room.
func (s *SQLiteStore) GetRoomKeyHash(ctx context.Context, id uuid.UUID) (string, error) {
	var keyHash *string
	err := s.db.QueryRowContext(ctx, `
		SELECT key_hash FROM rooms WHERE id = ?
	`, id.String()).Scan(&keyHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	if keyHash == nil {
		return "", nil
	}
	return *keyHash, nil
}

// ListPublicRooms retrieves public rooms with pagination.
func (s *SQLiteStore) ListPublicRooms(ctx context.Context, limit, offset int) ([]models.Room, int, error) {
	// Get total count
	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms WHERE is_private = 0`).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, is_private, created_at, last_active_at, message_count
		FROM rooms
		WHERE is_private = 0
		ORDER BY last_active_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	rooms, err := scanRoomRows(rows)
	if err != nil {
		return nil, 0, err
	}

	return rooms, total, nil
}

func scanRoomRows(rows *sql.Rows) ([]models.Room, error) {
	var rooms []models.Room
	for rows.Next() {
		var room models.Room
		var idStr string
		var isPrivateInt int

		err := rows.Scan(
			&idStr,
			&room.Name,
			&isPrivateInt,
			&room.CreatedAt,
			&room.LastActiveAt,
			&room.MessageCount,
		)
		if err != nil {
			return nil, err
		}

		room.ID = uuid.MustParse(idStr)
		room.IsPrivate = isPrivateInt == 1
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// UpdateRoomActivity updates the last_active_at timestamp.
func (s *SQLiteStore) UpdateRoomActivity(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE rooms SET last_active_at = CURRENT_TIMESTAMP WHERE id = ?
	`, id.String())
	return err
}

// IncrementMessageCount increments the message count and updates activity.
func (s *SQLiteStore) IncrementMessageCount(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE rooms
		SET message_count = message_count + 1, last_active_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, id.String())
	return err
}

// CountPublicRooms returns the total number of public rooms.
func (s *SQLiteStore) CountPublicRooms(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms WHERE is_private = 0`).Scan(&count)
	return count, err
}

// SumMessageCount returns the total message count across all rooms.
func (s *SQLiteStore) SumMessageCount(ctx context.Context) (int64, error) {
	var sum int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(message_count), 0) FROM rooms`).Scan(&sum)
	return sum, err
}

// GetMostRecentActivity returns the most recent activity timestamp across all
// rooms, or nil when no rooms exist. Selects the column directly instead of
// MAX(): an aggregate loses the DATETIME declared type, and the driver then
// hands back a string that cannot scan into time.Time.
func (s *SQLiteStore) GetMostRecentActivity(ctx context.Context) (*time.Time, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT last_active_at FROM rooms ORDER BY last_active_at DESC LIMIT 1
	`).Scan(&t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// GetTopActiveRooms returns the top N most active public rooms.
func (s *SQLiteStore) GetTopActiveRooms(ctx context.Context, limit int) ([]models.Room, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, is_private, created_at, last_active_at, message_count
		FROM rooms
		WHERE is_private = 0
		ORDER BY message_count DESC, last_active_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRoomRows(rows)
}
