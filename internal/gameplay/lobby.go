package gameplay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starweave/starweave/internal/bus"
	"github.com/starweave/starweave/internal/dependencies/clock"
	"github.com/starweave/starweave/internal/dependencies/random"
	"github.com/starweave/starweave/internal/model"
)

type lobbyMember struct {
	options  model.PlayerOptions
	online   bool
	joinedAt time.Time
}

// Lobby is the pre-game room variant. It owns the roster of
// participating players and the options for the next game, and it is
// the only place a game can be started from.
type Lobby struct {
	roomID model.RoomID
	bus    *bus.Bus
	clock  clock.Clock
	random random.Random
	logger *slog.Logger

	mu      sync.Mutex
	members map[model.UserID]*lobbyMember
	order   []model.UserID
	options model.GameOptions
	game    *Game
}

// NewLobby creates an empty lobby for a room
func NewLobby(roomID model.RoomID, b *bus.Bus, clk clock.Clock, rnd random.Random, logger *slog.Logger) *Lobby {
	return &Lobby{
		roomID:  roomID,
		bus:     b,
		clock:   clk,
		random:  rnd,
		logger:  logger.With(slog.String("component", "lobby"), slog.String("room_id", string(roomID))),
		members: make(map[model.UserID]*lobbyMember),
		options: model.DefaultGameOptions(),
	}
}

// Phase implements Room
func (l *Lobby) Phase() model.RoomPhase { return model.PhaseLobby }

// RoomID returns the room this lobby belongs to
func (l *Lobby) RoomID() model.RoomID { return l.roomID }

// CurrentGame returns the running game, or nil when none is in
// progress. A finished game is treated as absent so the room can host
// another one.
func (l *Lobby) CurrentGame() *Game {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentGameLocked()
}

func (l *Lobby) currentGameLocked() *Game {
	if l.game != nil && l.game.Ended() {
		l.game = nil
	}
	return l.game
}

// Join implements Room. A first-time joiner is added to the roster; a
// returning member is marked present again. Every participant observes
// the change via a PlayerJoined broadcast.
func (l *Lobby) Join(ctx context.Context, userID model.UserID) error {
	l.mu.Lock()
	m, ok := l.members[userID]
	if !ok {
		m = &lobbyMember{
			options:  model.PlayerOptions{Nickname: string(userID)},
			joinedAt: l.clock.Now(),
		}
		l.members[userID] = m
		l.order = append(l.order, userID)
	}
	m.online = true
	l.mu.Unlock()

	l.logger.Info("player joined", slog.String("user_id", string(userID)))
	return l.NotifyEverybody(ctx, PlayerJoined{UserID: userID})
}

// Leave implements Room. The member stays on the roster so they can
// rejoin, but is no longer counted as present.
func (l *Lobby) Leave(ctx context.Context, userID model.UserID) error {
	l.mu.Lock()
	m, ok := l.members[userID]
	if !ok {
		l.mu.Unlock()
		return model.ErrNotInRoom
	}
	m.online = false
	l.mu.Unlock()

	l.logger.Info("player left", slog.String("user_id", string(userID)))
	return l.NotifyEverybody(ctx, PlayerLeft{UserID: userID})
}

// UpdatePlayerOptions updates one member's presentation settings
func (l *Lobby) UpdatePlayerOptions(userID model.UserID, options model.PlayerOptions) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.members[userID]
	if !ok {
		return model.ErrNotInRoom
	}
	m.options = options
	return nil
}

// UpdateGameOptions replaces the options for the next game. The map
// must be large enough for every roster member plus the configured
// neutral planets.
func (l *Lobby) UpdateGameOptions(userID model.UserID, options model.GameOptions) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.members[userID]; !ok {
		return model.ErrNotInRoom
	}
	if options.MapWidth <= 0 || options.MapHeight <= 0 {
		return model.ErrInvalidMapSize
	}
	if options.MapWidth*options.MapHeight < len(l.members)+options.NeutralPlanets {
		return model.ErrInvalidMapSize
	}
	l.options = options
	return nil
}

// StartGame transitions the room from lobby to game. The initiator must
// be a roster member and there must be at least one joined player. The
// new game is broadcast to every participant's topic; actors other than
// the initiator pick their reference up from that event.
func (l *Lobby) StartGame(ctx context.Context, initiator model.UserID) (*Game, error) {
	l.mu.Lock()
	if _, ok := l.members[initiator]; !ok {
		l.mu.Unlock()
		return nil, model.ErrNotInRoom
	}
	if l.currentGameLocked() != nil {
		l.mu.Unlock()
		return nil, model.ErrGameInProgress
	}
	if len(l.members) == 0 {
		l.mu.Unlock()
		return nil, model.ErrNoPlayers
	}

	players := make([]gameRosterEntry, 0, len(l.members))
	for _, id := range l.order {
		players = append(players, gameRosterEntry{
			userID:  id,
			options: l.members[id].options,
			online:  l.members[id].online,
		})
	}
	game := newGame(l.roomID, l.bus, l.clock, l.random, l.logger, l.options, players)
	l.game = game
	l.mu.Unlock()

	l.logger.Info("game started",
		slog.String("initiator", string(initiator)),
		slog.Int("players", len(players)))
	if err := l.NotifyEverybody(ctx, GameStarted{Game: game}); err != nil {
		return nil, err
	}
	return game, nil
}

// NotifyEverybody implements Room by publishing once per roster
// member's topic.
func (l *Lobby) NotifyEverybody(ctx context.Context, event Event) error {
	l.mu.Lock()
	topics := make([]string, 0, len(l.members))
	for _, id := range l.order {
		topics = append(topics, model.PlayerTopic(id, l.roomID))
	}
	l.mu.Unlock()

	for _, topic := range topics {
		l.bus.Publish(ctx, topic, event)
	}
	return nil
}

// View implements Room
func (l *Lobby) View(model.UserID) (model.RoomView, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	members := make([]model.RoomMember, 0, len(l.members))
	for _, id := range l.order {
		m := l.members[id]
		members = append(members, model.RoomMember{
			UserID:  id,
			Options: m.options,
			Online:  m.online,
		})
	}
	return model.LobbyView{
		RoomID:  l.roomID,
		Members: members,
		Options: l.options,
	}, nil
}
