package redis

import (
	"fmt"

	"github.com/starweave/starweave/internal/model"
)

// Key prefix for all session-core data
const keyPrefix = "starweave"

// playerStateKey returns the Redis key for one (user, room) actor's state
func playerStateKey(userID model.UserID, roomID model.RoomID) string {
	return fmt.Sprintf("%s:player:%s:%s", keyPrefix, roomID, userID)
}
