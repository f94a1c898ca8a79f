package gameplay

import (
	"context"

	"github.com/starweave/starweave/internal/model"
)

// Room is the polymorphic entity a player actor belongs to. At any
// moment a room reference is exactly one of two variants: *Lobby before
// a game starts, *Game while one is running.
type Room interface {
	Phase() model.RoomPhase

	// Join registers a user as a present participant. Fired on the
	// 0 -> 1 live connection boundary, not on every connect.
	Join(ctx context.Context, userID model.UserID) error

	// Leave marks a user as no longer present. Fired on the 1 -> 0
	// live connection boundary.
	Leave(ctx context.Context, userID model.UserID) error

	// NotifyEverybody publishes the event once per participant topic,
	// so every joined player's actor receives it regardless of which
	// player triggered it.
	NotifyEverybody(ctx context.Context, event Event) error

	// View returns a snapshot of the room filtered to one user's
	// perspective. It never mutates state.
	View(userID model.UserID) (model.RoomView, error)
}

var (
	_ Room = (*Lobby)(nil)
	_ Room = (*Game)(nil)
)
