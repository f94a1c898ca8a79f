package model

import "fmt"

// UserID uniquely identifies a user across the system
type UserID string

// RoomID identifies a room; one room hosts at most one running game at a time
type RoomID string

// ConnectionID identifies a single live client connection
type ConnectionID string

// PlayerTopic returns the bus topic for one (user, room) player actor.
// The same string is used as the stream address the transport layer
// listens on when forwarding events to live connections.
func PlayerTopic(userID UserID, roomID RoomID) string {
	return fmt.Sprintf("player/%s/%s", roomID, userID)
}
