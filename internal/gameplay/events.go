package gameplay

import (
	"time"

	"github.com/starweave/starweave/internal/model"
)

// EventType identifies the type of event
type EventType string

const (
	EventConnected           EventType = "connected"
	EventDisconnected        EventType = "disconnected"
	EventPlayerJoined        EventType = "player_joined"
	EventPlayerLeft          EventType = "player_left"
	EventGameStarted         EventType = "game_started"
	EventGameEnded           EventType = "game_ended"
	EventChatMessageReceived EventType = "chat_message_received"
	EventPlayerDead          EventType = "player_dead"
	EventTurnCalculated      EventType = "turn_calculated"
)

// Event is an immutable message broadcast through the bus. Events are
// side-effect-free; handling them must be idempotent because bus
// delivery is at-least-once.
type Event interface {
	EventType() EventType
}

// Connected signals a new live client connection for a player
type Connected struct {
	ConnectionID model.ConnectionID
}

// Disconnected signals a client connection going away
type Disconnected struct {
	ConnectionID model.ConnectionID
}

// PlayerJoined signals a user becoming present in the room
type PlayerJoined struct {
	UserID model.UserID
}

// PlayerLeft signals a user's last connection going away
type PlayerLeft struct {
	UserID model.UserID
}

// GameStarted carries the new game to every participant's actor,
// including those that did not issue the start command themselves.
type GameStarted struct {
	Game *Game
}

// GameEnded signals the game reaching its termination condition
type GameEnded struct{}

// ChatMessageReceived carries a chat message to every room participant
type ChatMessageReceived struct {
	SenderID model.UserID
	Text     string
	SentAt   time.Time
}

// PlayerDead signals a player losing their last planet and fleet
type PlayerDead struct {
	UserID model.UserID
}

// TurnCalculated signals that a turn has been resolved
type TurnCalculated struct {
	Turn int
}

func (Connected) EventType() EventType           { return EventConnected }
func (Disconnected) EventType() EventType        { return EventDisconnected }
func (PlayerJoined) EventType() EventType        { return EventPlayerJoined }
func (PlayerLeft) EventType() EventType          { return EventPlayerLeft }
func (GameStarted) EventType() EventType         { return EventGameStarted }
func (GameEnded) EventType() EventType           { return EventGameEnded }
func (ChatMessageReceived) EventType() EventType { return EventChatMessageReceived }
func (PlayerDead) EventType() EventType          { return EventPlayerDead }
func (TurnCalculated) EventType() EventType      { return EventTurnCalculated }
