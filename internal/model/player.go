package model

import "time"

// PlayerOptions holds a player's presentation settings within a room
type PlayerOptions struct {
	Nickname string
	Color    string
}

// PlayerRecord is the durable shape of a player actor's state.
// Room and game references are runtime objects; what survives an actor
// unload is the room address and whether a game was running.
type PlayerRecord struct {
	UserID        UserID
	RoomID        RoomID
	ConnectionIDs []ConnectionID
	GameActive    bool
	UpdatedAt     time.Time
}
