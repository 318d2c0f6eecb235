package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/parley-chat/parley/internal/models"
)

// DataStore defines the interface for persistent room storage.
// Both PostgresStore and SQLiteStore implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Room operations
	CreateRoom(ctx context.Context, name string, isPrivate bool, keyHash string) (*models.Room, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	GetRoomByName(ctx context.Context, name string) (*models.Room, error)
	GetRoomKeyHash(ctx context.Context, id uuid.UUID) (string, error)
	ListPublicRooms(ctx context.Context, limit, offset int) ([]models.Room, int, error)
	UpdateRoomActivity(ctx context.Context, id uuid.UUID) error
	IncrementMessageCount(ctx context.Context, id uuid.UUID) error
	CountPublicRooms(ctx context.Context) (int64, error)
	SumMessageCount(ctx context.Context) (int64, error)
	GetMostRecentActivity(ctx context.Context) (*time.Time, error)
	GetTopActiveRooms(ctx context.Context, limit int) ([]models.Room, error)
}

// DefaultRooms are seeded at startup so a fresh install has somewhere to talk.
var DefaultRooms = []string{"general", "memes"}

// EnsureDefaultRooms creates the default public rooms if they don't exist yet.
func EnsureDefaultRooms(ctx context.Context, ds DataStore) error {
	for _, name := range DefaultRooms {
		room, err := ds.GetRoomByName(ctx, name)
		if err != nil {
			return err
		}
		if room != nil {
			continue
		}
		if _, err := ds.CreateRoom(ctx, name, false, ""); err != nil {
			return err
		}
	}
	return nil
}
