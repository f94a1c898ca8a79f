package actor

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/starweave/starweave/internal/bus"
	"github.com/starweave/starweave/internal/dependencies/clock"
	"github.com/starweave/starweave/internal/dependencies/random"
	"github.com/starweave/starweave/internal/gameplay"
	"github.com/starweave/starweave/internal/model"
	"github.com/starweave/starweave/internal/storage"
)

// Identity is the compound key addressing one player actor
type Identity struct {
	UserID model.UserID
	RoomID model.RoomID
}

// Registry resolves actor identities to running instances on demand.
// Rooms are keyed by room id and player actors by (user, room); both
// are created on first use. Activating a player actor loads or
// initializes its durable state and subscribes it exactly once to its
// own topic; deactivating unsubscribes before the actor is dropped.
type Registry struct {
	bus    *bus.Bus
	store  storage.Storage
	clock  clock.Clock
	random random.Random
	logger *slog.Logger

	mu      sync.Mutex
	rooms   map[model.RoomID]*gameplay.Lobby
	players map[Identity]*PlayerActor
}

// NewRegistry creates an empty registry
func NewRegistry(b *bus.Bus, store storage.Storage, clk clock.Clock, rnd random.Random, logger *slog.Logger) *Registry {
	return &Registry{
		bus:     b,
		store:   store,
		clock:   clk,
		random:  rnd,
		logger:  logger.With(slog.String("component", "actor-registry")),
		rooms:   make(map[model.RoomID]*gameplay.Lobby),
		players: make(map[Identity]*PlayerActor),
	}
}

// Room returns the lobby for a room id, creating it on first use
func (r *Registry) Room(roomID model.RoomID) *gameplay.Lobby {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roomLocked(roomID)
}

func (r *Registry) roomLocked(roomID model.RoomID) *gameplay.Lobby {
	if lobby, ok := r.rooms[roomID]; ok {
		return lobby
	}
	lobby := gameplay.NewLobby(roomID, r.bus, r.clock, r.random, r.logger)
	r.rooms[roomID] = lobby
	r.logger.Info("room created", slog.String("room_id", string(roomID)))
	return lobby
}

// HasRoom reports whether a room already exists without creating it
func (r *Registry) HasRoom(roomID model.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rooms[roomID]
	return ok
}

// Player returns the actor for an identity, activating it on first use
func (r *Registry) Player(ctx context.Context, id Identity) (*PlayerActor, error) {
	r.mu.Lock()
	if actor, ok := r.players[id]; ok {
		r.mu.Unlock()
		return actor, nil
	}
	actor, err := r.activatePlayer(ctx, id)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.players[id] = actor
	r.mu.Unlock()

	r.bus.Subscribe(actor.Topic(), actor)
	return actor, nil
}

// activatePlayer loads or initializes the durable state and builds the
// in-memory wrapper. Callers hold r.mu.
func (r *Registry) activatePlayer(ctx context.Context, id Identity) (*PlayerActor, error) {
	state := &gameplay.PlayerState{
		UserID:        id.UserID,
		RoomID:        id.RoomID,
		ConnectionIDs: make(map[model.ConnectionID]struct{}),
		Lobby:         r.roomLocked(id.RoomID),
	}

	record, err := r.store.GetPlayerState(ctx, id.UserID, id.RoomID)
	switch {
	case err == nil:
		// Connections may outlive an actor unload in the transport
		// layer, so presence is restored from the record
		for _, connID := range record.ConnectionIDs {
			state.ConnectionIDs[connID] = struct{}{}
		}
	case errors.Is(err, model.ErrPlayerStateNotFound):
		// First activation for this identity
	default:
		return nil, err
	}

	// Rejoin a game that started or kept running while the actor was
	// unloaded; the GameStarted event was delivered before this actor
	// subscribed.
	if game := state.Lobby.CurrentGame(); game != nil {
		state.Game = game
	}

	player, err := gameplay.NewPlayer(state, r.clock)
	if err != nil {
		return nil, err
	}

	actor := &PlayerActor{
		player: player,
		topic:  model.PlayerTopic(id.UserID, id.RoomID),
		store:  r.store,
		logger: r.logger.With(
			slog.String("user_id", string(id.UserID)),
			slog.String("room_id", string(id.RoomID))),
	}

	if record == nil {
		if err := r.store.SavePlayerState(ctx, state.Record()); err != nil {
			return nil, err
		}
	}

	r.logger.Info("player actor activated",
		slog.String("user_id", string(id.UserID)),
		slog.String("room_id", string(id.RoomID)))
	return actor, nil
}

// DeactivatePlayer persists state, unsubscribes the actor from its
// topic and drops it, so the bus never holds a dangling subscriber.
// Deactivating an unknown identity is a no-op.
func (r *Registry) DeactivatePlayer(ctx context.Context, id Identity) error {
	r.mu.Lock()
	actor, ok := r.players[id]
	if ok {
		delete(r.players, id)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}

	r.bus.Unsubscribe(actor.Topic(), actor)
	if err := actor.persist(ctx); err != nil {
		return err
	}
	r.logger.Info("player actor deactivated",
		slog.String("user_id", string(id.UserID)),
		slog.String("room_id", string(id.RoomID)))
	return nil
}

// Close deactivates every player actor; used on shutdown
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	ids := make([]Identity, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if err := r.DeactivatePlayer(ctx, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
