package memory

import (
	"context"
	"sync"

	"github.com/starweave/starweave/internal/model"
	"github.com/starweave/starweave/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu      sync.RWMutex
	players map[playerKey]*model.PlayerRecord
}

type playerKey struct {
	userID model.UserID
	roomID model.RoomID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players: make(map[playerKey]*model.PlayerRecord),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SavePlayerState(ctx context.Context, record *model.PlayerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *record
	copied.ConnectionIDs = append([]model.ConnectionID(nil), record.ConnectionIDs...)
	s.players[playerKey{record.UserID, record.RoomID}] = &copied
	return nil
}

func (s *Storage) GetPlayerState(ctx context.Context, userID model.UserID, roomID model.RoomID) (*model.PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.players[playerKey{userID, roomID}]
	if !ok {
		return nil, model.ErrPlayerStateNotFound
	}
	copied := *record
	copied.ConnectionIDs = append([]model.ConnectionID(nil), record.ConnectionIDs...)
	return &copied, nil
}

func (s *Storage) DeletePlayerState(ctx context.Context, userID model.UserID, roomID model.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, playerKey{userID, roomID})
	return nil
}
