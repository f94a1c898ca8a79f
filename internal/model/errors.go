package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Construction errors - hard precondition violations, never retried
	ErrMissingUserID = errors.New("user id must be initialized")
	ErrMissingRoomID = errors.New("room id must not be empty")
	ErrMissingRoom   = errors.New("room must be initialized")

	// Invalid state is matched via errors.Is against InvalidStateError
	ErrInvalidState = errors.New("room is in the wrong state for this action")

	// Room errors
	ErrNotInRoom      = errors.New("player is not a member of this room")
	ErrGameInProgress = errors.New("a game is already in progress")
	ErrNoPlayers      = errors.New("cannot start a game with no joined players")

	// Game errors
	ErrGameEnded        = errors.New("game has already ended")
	ErrPlayerEliminated = errors.New("player has been eliminated")
	ErrUnknownPlanet    = errors.New("no such planet")
	ErrNotPlanetOwner   = errors.New("planet is not owned by this player")
	ErrNotEnoughShips   = errors.New("not enough ships on the source planet")
	ErrUnknownFleet     = errors.New("no waiting fleet at this index")

	// Chat message validation errors
	ErrEmptyMessage   = errors.New("message text must not be empty")
	ErrMessageTooLong = errors.New("message text is too long")

	// Storage errors
	ErrPlayerStateNotFound = errors.New("player state not found")

	// Options validation errors
	ErrInvalidMapSize = errors.New("map is too small for the configured planets")
)

// InvalidStateError reports a command issued against the wrong room
// variant, naming the variant the command requires.
type InvalidStateError struct {
	Required RoomPhase
}

// NewInvalidStateError creates an InvalidStateError for the given variant
func NewInvalidStateError(required RoomPhase) *InvalidStateError {
	return &InvalidStateError{Required: required}
}

// Error implements error
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("player must be in %s to perform this action", e.Required)
}

// Is makes errors.Is(err, ErrInvalidState) match any InvalidStateError
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}
