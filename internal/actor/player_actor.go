package actor

import (
	"context"
	"log/slog"

	"github.com/starweave/starweave/internal/bus"
	"github.com/starweave/starweave/internal/gameplay"
	"github.com/starweave/starweave/internal/model"
	"github.com/starweave/starweave/internal/storage"
)

// PlayerActor hosts one gameplay.Player for a (user, room) pair. It is
// the bus subscriber for that player's topic and issues the explicit
// persistence writes that keep the state durable across unloads.
type PlayerActor struct {
	player *gameplay.Player
	topic  string
	store  storage.Storage
	logger *slog.Logger
}

var _ bus.Subscriber = (*PlayerActor)(nil)

// SubscriberID implements bus.Subscriber; one actor exists per topic
func (a *PlayerActor) SubscriberID() string {
	return a.topic
}

// Topic returns the player topic this actor is subscribed to
func (a *PlayerActor) Topic() string {
	return a.topic
}

// HandleEvent implements bus.Subscriber. The catalogue is closed:
// events the player does not react to are forwarded to live
// connections by the transport layer, not here.
func (a *PlayerActor) HandleEvent(ctx context.Context, event any) error {
	switch e := event.(type) {
	case gameplay.Connected:
		if err := a.player.HandleConnected(ctx, e); err != nil {
			return err
		}
		return a.persist(ctx)
	case gameplay.Disconnected:
		if err := a.player.HandleDisconnected(ctx, e); err != nil {
			return err
		}
		return a.persist(ctx)
	case gameplay.GameStarted:
		if err := a.player.HandleGameStarted(e); err != nil {
			return err
		}
		return a.persist(ctx)
	case gameplay.GameEnded:
		if err := a.player.HandleGameEnded(e); err != nil {
			return err
		}
		return a.persist(ctx)
	default:
		return nil
	}
}

// UpdateOptions updates this player's presentation settings
func (a *PlayerActor) UpdateOptions(options model.PlayerOptions) error {
	return a.player.UpdateOptions(options)
}

// UpdateGameOptions updates the room's game settings
func (a *PlayerActor) UpdateGameOptions(options model.GameOptions) error {
	return a.player.UpdateGameOptions(options)
}

// StartGame starts the game and persists the new game reference before
// returning, so it survives an unload.
func (a *PlayerActor) StartGame(ctx context.Context) error {
	if err := a.player.StartGame(ctx); err != nil {
		return err
	}
	return a.persist(ctx)
}

// LaunchFleet sends ships between planets
func (a *PlayerActor) LaunchFleet(fleet model.Fleet) error {
	return a.player.LaunchFleet(fleet)
}

// CancelFleet recalls a waiting fleet
func (a *PlayerActor) CancelFleet(cancelation model.FleetCancelation) error {
	return a.player.CancelFleet(cancelation)
}

// EndTurn marks this player done with the current turn
func (a *PlayerActor) EndTurn(ctx context.Context) error {
	return a.player.EndTurn(ctx)
}

// Write broadcasts a chat message to the room
func (a *PlayerActor) Write(ctx context.Context, text string) error {
	return a.player.Write(ctx, text)
}

// GetState returns the room view from this player's perspective
func (a *PlayerActor) GetState() (model.RoomView, error) {
	return a.player.GetState()
}

func (a *PlayerActor) persist(ctx context.Context) error {
	record := a.player.State().Record()
	if err := a.store.SavePlayerState(ctx, record); err != nil {
		a.logger.Error("failed to persist player state", slog.Any("error", err))
		return err
	}
	return nil
}
