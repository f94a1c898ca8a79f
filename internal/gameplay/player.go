package gameplay

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/starweave/starweave/internal/dependencies/clock"
	"github.com/starweave/starweave/internal/model"
)

// MaxChatMessageLength bounds chat text in runes
const MaxChatMessageLength = 1024

// PlayerState is the in-memory state exclusively owned by one player
// actor instance.
type PlayerState struct {
	UserID        model.UserID
	RoomID        model.RoomID
	ConnectionIDs map[model.ConnectionID]struct{}
	Lobby         *Lobby
	Game          *Game
}

// Room returns the current room variant: the game while one is
// running, the lobby otherwise.
func (s *PlayerState) Room() Room {
	if s.Game != nil {
		return s.Game
	}
	return s.Lobby
}

// Record returns the durable shape of the state
func (s *PlayerState) Record() *model.PlayerRecord {
	ids := make([]model.ConnectionID, 0, len(s.ConnectionIDs))
	for id := range s.ConnectionIDs {
		ids = append(ids, id)
	}
	return &model.PlayerRecord{
		UserID:        s.UserID,
		RoomID:        s.RoomID,
		ConnectionIDs: ids,
		GameActive:    s.Game != nil,
	}
}

// Player exposes the command surface of one (user, room) pair and
// reacts to events delivered on that player's topic. Commands that do
// not match the current room variant fail with an InvalidStateError.
//
// The mutex is held only across plain field accesses; it is always
// released before calling into the room or the bus, so another
// operation against the same player may interleave at those points.
// Handlers therefore re-check state instead of assuming it unchanged.
type Player struct {
	mu    sync.Mutex
	state *PlayerState
	clock clock.Clock
}

// NewPlayer validates the initial state and wraps it. Missing required
// fields are hard precondition violations, not retryable errors.
func NewPlayer(state *PlayerState, clk clock.Clock) (*Player, error) {
	if state == nil || state.UserID == "" {
		return nil, model.ErrMissingUserID
	}
	if state.RoomID == "" {
		return nil, model.ErrMissingRoomID
	}
	if state.Lobby == nil {
		return nil, model.ErrMissingRoom
	}
	if state.ConnectionIDs == nil {
		state.ConnectionIDs = make(map[model.ConnectionID]struct{})
	}
	return &Player{state: state, clock: clk}, nil
}

// State returns the underlying player state. The caller must respect
// the actor's turn discipline when mutating it.
func (p *Player) State() *PlayerState {
	return p.state
}

// UpdateOptions updates this player's presentation settings; only legal
// in the lobby.
func (p *Player) UpdateOptions(options model.PlayerOptions) error {
	lobby, err := p.ensureIsInLobby()
	if err != nil {
		return err
	}
	return lobby.UpdatePlayerOptions(p.state.UserID, options)
}

// UpdateGameOptions updates the room's game settings; only legal in the
// lobby.
func (p *Player) UpdateGameOptions(options model.GameOptions) error {
	lobby, err := p.ensureIsInLobby()
	if err != nil {
		return err
	}
	return lobby.UpdateGameOptions(p.state.UserID, options)
}

// StartGame starts the game for the whole room and adopts the new game
// reference synchronously. The matching GameStarted event is a
// duplicate for this actor and is absorbed by HandleGameStarted.
func (p *Player) StartGame(ctx context.Context) error {
	lobby, err := p.ensureIsInLobby()
	if err != nil {
		return err
	}
	game, err := lobby.StartGame(ctx, p.state.UserID)
	if err != nil {
		return err
	}
	p.mu.Lock()
	if p.state.Game == nil {
		p.state.Game = game
	}
	p.mu.Unlock()
	return nil
}

// LaunchFleet sends ships between planets; only legal in a game
func (p *Player) LaunchFleet(fleet model.Fleet) error {
	game, err := p.ensureIsInGame()
	if err != nil {
		return err
	}
	return game.LaunchFleet(p.state.UserID, fleet)
}

// CancelFleet recalls a waiting fleet; only legal in a game
func (p *Player) CancelFleet(cancelation model.FleetCancelation) error {
	game, err := p.ensureIsInGame()
	if err != nil {
		return err
	}
	return game.CancelFleet(p.state.UserID, cancelation)
}

// EndTurn marks this player done with the current turn; only legal in a
// game.
func (p *Player) EndTurn(ctx context.Context) error {
	game, err := p.ensureIsInGame()
	if err != nil {
		return err
	}
	return game.EndTurn(ctx, p.state.UserID)
}

// Write broadcasts a chat message to every participant of the room,
// including this player. Legal in both variants.
func (p *Player) Write(ctx context.Context, text string) error {
	if err := ValidateChatText(text); err != nil {
		return err
	}
	p.mu.Lock()
	room := p.state.Room()
	userID := p.state.UserID
	p.mu.Unlock()
	return room.NotifyEverybody(ctx, ChatMessageReceived{
		SenderID: userID,
		Text:     text,
		SentAt:   p.clock.Now(),
	})
}

// GetState returns the room view from this player's perspective. It is
// always legal regardless of variant and never mutates state.
func (p *Player) GetState() (model.RoomView, error) {
	p.mu.Lock()
	room := p.state.Room()
	userID := p.state.UserID
	p.mu.Unlock()
	return room.View(userID)
}

// HandleConnected tracks a new live connection. Only the 0 -> 1
// transition joins the room; the set insertion makes duplicate
// deliveries for the same connection id harmless.
func (p *Player) HandleConnected(ctx context.Context, event Connected) error {
	p.mu.Lock()
	before := len(p.state.ConnectionIDs)
	p.state.ConnectionIDs[event.ConnectionID] = struct{}{}
	first := before == 0 && len(p.state.ConnectionIDs) == 1
	room := p.state.Room()
	userID := p.state.UserID
	p.mu.Unlock()

	if !first {
		return nil
	}
	return room.Join(ctx, userID)
}

// HandleDisconnected drops a live connection. Only the 1 -> 0
// transition leaves the room.
func (p *Player) HandleDisconnected(ctx context.Context, event Disconnected) error {
	p.mu.Lock()
	before := len(p.state.ConnectionIDs)
	delete(p.state.ConnectionIDs, event.ConnectionID)
	last := before > 0 && len(p.state.ConnectionIDs) == 0
	room := p.state.Room()
	userID := p.state.UserID
	p.mu.Unlock()

	if !last {
		return nil
	}
	return room.Leave(ctx, userID)
}

// HandleGameStarted adopts the game reference only if it is unset: the
// actor that called StartGame already holds it, and a duplicate
// delivery must not clobber it.
func (p *Player) HandleGameStarted(event GameStarted) error {
	p.mu.Lock()
	if p.state.Game == nil {
		p.state.Game = event.Game
	}
	p.mu.Unlock()
	return nil
}

// HandleGameEnded clears the game reference if set; a no-op otherwise
func (p *Player) HandleGameEnded(GameEnded) error {
	p.mu.Lock()
	if p.state.Game != nil {
		p.state.Game = nil
	}
	p.mu.Unlock()
	return nil
}

// ensureIsInLobby is the variant gate for lobby-only commands
func (p *Player) ensureIsInLobby() (*Lobby, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if lobby, ok := p.state.Room().(*Lobby); ok {
		return lobby, nil
	}
	return nil, model.NewInvalidStateError(model.PhaseLobby)
}

// ensureIsInGame is the variant gate for game-only commands
func (p *Player) ensureIsInGame() (*Game, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if game, ok := p.state.Room().(*Game); ok {
		return game, nil
	}
	return nil, model.NewInvalidStateError(model.PhaseGame)
}

// ValidateChatText enforces the message validity rules: non-empty after
// trimming and bounded length.
func ValidateChatText(text string) error {
	if strings.TrimSpace(text) == "" {
		return model.ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxChatMessageLength {
		return model.ErrMessageTooLong
	}
	return nil
}
