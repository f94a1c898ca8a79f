package storage

import (
	"context"

	"github.com/starweave/starweave/internal/model"
)

// Storage defines the interface for durable player actor state.
// Writes are issued explicitly by the actor layer after operations that
// must survive an actor unload.
type Storage interface {
	SavePlayerState(ctx context.Context, record *model.PlayerRecord) error
	// GetPlayerState returns model.ErrPlayerStateNotFound when no state
	// has been persisted for the pair yet.
	GetPlayerState(ctx context.Context, userID model.UserID, roomID model.RoomID) (*model.PlayerRecord, error)
	DeletePlayerState(ctx context.Context, userID model.UserID, roomID model.RoomID) error
}
