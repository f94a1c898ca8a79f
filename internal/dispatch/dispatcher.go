package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/starweave/starweave/internal/actor"
	"github.com/starweave/starweave/internal/bus"
	"github.com/starweave/starweave/internal/dependencies/random"
	"github.com/starweave/starweave/internal/gameplay"
	"github.com/starweave/starweave/internal/model"
)

// DefaultTimeout races production command handlers; debug builds use a
// much longer window so a debugger does not trip it.
const (
	DefaultTimeout = 10 * time.Second
	DebugTimeout   = 2 * time.Minute
)

const (
	// RoomCodeLength is the length of server-minted room codes
	RoomCodeLength = 6
	// RoomCodeAlphabet is the characters used in room codes (avoid confusing chars)
	RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Dispatcher routes generic command envelopes to player actors and
// races every handler against a fixed timeout. The handler is not
// informed of, or cancelable by, that race: a timed-out command may
// still complete in the background.
type Dispatcher struct {
	registry *actor.Registry
	bus      *bus.Bus
	random   random.Random
	timeout  time.Duration
	logger   *slog.Logger
	handlers map[string]handlerFunc
}

type handlerFunc func(ctx context.Context, payload json.RawMessage) Result

// New creates a dispatcher with the given handler timeout
func New(registry *actor.Registry, b *bus.Bus, rnd random.Random, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		bus:      b,
		random:   rnd,
		timeout:  timeout,
		logger:   logger.With(slog.String("component", "dispatch")),
	}
	d.handlers = map[string]handlerFunc{
		TypeCreateRoom:        d.createRoom,
		TypeConnect:           d.connect,
		TypeDisconnect:        d.disconnect,
		TypeUpdateOptions:     d.updateOptions,
		TypeUpdateGameOptions: d.updateGameOptions,
		TypeStartGame:         d.startGame,
		TypeLaunchFleet:       d.launchFleet,
		TypeCancelFleet:       d.cancelFleet,
		TypeEndTurn:           d.endTurn,
		TypeWrite:             d.write,
		TypeGetState:          d.getState,
	}
	return d
}

// Dispatch resolves the envelope type and runs the handler, returning a
// gateway-timeout result with no payload if the timeout wins the race.
func (d *Dispatcher) Dispatch(ctx context.Context, env Envelope) Result {
	handler, ok := d.handlers[env.Type]
	if env.Type == "" || !ok {
		return Result{StatusCode: http.StatusNotFound}
	}

	done := make(chan Result, 1)
	go func() {
		done <- handler(ctx, env.Payload)
	}()

	select {
	case res := <-done:
		return res
	case <-time.After(d.timeout):
		d.logger.Warn("command timed out", slog.String("type", env.Type))
		return Result{StatusCode: http.StatusGatewayTimeout}
	}
}

func (d *Dispatcher) createRoom(_ context.Context, _ json.RawMessage) Result {
	// Mint a room code no existing room is using
	var roomID model.RoomID
	for {
		roomID = model.RoomID(d.random.String(RoomCodeLength, RoomCodeAlphabet))
		if !d.registry.HasRoom(roomID) {
			break
		}
	}
	d.registry.Room(roomID)
	d.logger.Info("room created", slog.String("room_id", string(roomID)))
	return Result{StatusCode: http.StatusOK, Payload: CreateRoomResult{RoomID: string(roomID)}}
}

func (d *Dispatcher) connect(ctx context.Context, payload json.RawMessage) Result {
	var p connectPayload
	if err := decode(payload, &p); err != nil {
		return badRequest(err)
	}
	a, err := d.player(ctx, p.target)
	if err != nil {
		return errorResult(err)
	}
	if p.ConnectionID == "" {
		p.ConnectionID = uuid.NewString()
	}
	d.bus.Publish(ctx, a.Topic(), gameplay.Connected{ConnectionID: model.ConnectionID(p.ConnectionID)})
	return Result{StatusCode: http.StatusOK, Payload: ConnectResult{ConnectionID: p.ConnectionID}}
}

func (d *Dispatcher) disconnect(ctx context.Context, payload json.RawMessage) Result {
	var p disconnectPayload
	if err := decode(payload, &p); err != nil {
		return badRequest(err)
	}
	if p.ConnectionID == "" {
		return badRequest(errMissingField("connection_id"))
	}
	a, err := d.player(ctx, p.target)
	if err != nil {
		return errorResult(err)
	}
	d.bus.Publish(ctx, a.Topic(), gameplay.Disconnected{ConnectionID: model.ConnectionID(p.ConnectionID)})
	return Result{StatusCode: http.StatusNoContent}
}

func (d *Dispatcher) updateOptions(ctx context.Context, payload json.RawMessage) Result {
	var p updateOptionsPayload
	if err := decode(payload, &p); err != nil {
		return badRequest(err)
	}
	a, err := d.player(ctx, p.target)
	if err != nil {
		return errorResult(err)
	}
	if err := a.UpdateOptions(model.PlayerOptions{Nickname: p.Nickname, Color: p.Color}); err != nil {
		return errorResult(err)
	}
	return Result{StatusCode: http.StatusNoContent}
}

func (d *Dispatcher) updateGameOptions(ctx context.Context, payload json.RawMessage) Result {
	var p updateGameOptionsPayload
	if err := decode(payload, &p); err != nil {
		return badRequest(err)
	}
	a, err := d.player(ctx, p.target)
	if err != nil {
		return errorResult(err)
	}
	options := model.GameOptions{
		MapWidth:       p.MapWidth,
		MapHeight:      p.MapHeight,
		NeutralPlanets: p.NeutralPlanets,
	}
	if err := a.UpdateGameOptions(options); err != nil {
		return errorResult(err)
	}
	return Result{StatusCode: http.StatusNoContent}
}

func (d *Dispatcher) startGame(ctx context.Context, payload json.RawMessage) Result {
	var p target
	if err := decode(payload, &p); err != nil {
		return badRequest(err)
	}
	a, err := d.player(ctx, p)
	if err != nil {
		return errorResult(err)
	}
	if err := a.StartGame(ctx); err != nil {
		return errorResult(err)
	}
	return Result{StatusCode: http.StatusNoContent}
}

func (d *Dispatcher) launchFleet(ctx context.Context, payload json.RawMessage) Result {
	var p launchFleetPayload
	if err := decode(payload, &p); err != nil {
		return badRequest(err)
	}
	a, err := d.player(ctx, p.target)
	if err != nil {
		return errorResult(err)
	}
	if err := a.LaunchFleet(model.Fleet{From: p.From, To: p.To, Ships: p.Ships}); err != nil {
		return errorResult(err)
	}
	return Result{StatusCode: http.StatusNoContent}
}

func (d *Dispatcher) cancelFleet(ctx context.Context, payload json.RawMessage) Result {
	var p cancelFleetPayload
	if err := decode(payload, &p); err != nil {
		return badRequest(err)
	}
	a, err := d.player(ctx, p.target)
	if err != nil {
		return errorResult(err)
	}
	if err := a.CancelFleet(model.FleetCancelation{Index: p.Index}); err != nil {
		return errorResult(err)
	}
	return Result{StatusCode: http.StatusNoContent}
}

func (d *Dispatcher) endTurn(ctx context.Context, payload json.RawMessage) Result {
	var p target
	if err := decode(payload, &p); err != nil {
		return badRequest(err)
	}
	a, err := d.player(ctx, p)
	if err != nil {
		return errorResult(err)
	}
	if err := a.EndTurn(ctx); err != nil {
		return errorResult(err)
	}
	return Result{StatusCode: http.StatusNoContent}
}

func (d *Dispatcher) write(ctx context.Context, payload json.RawMessage) Result {
	var p writePayload
	if err := decode(payload, &p); err != nil {
		return badRequest(err)
	}
	a, err := d.player(ctx, p.target)
	if err != nil {
		return errorResult(err)
	}
	if err := a.Write(ctx, p.Text); err != nil {
		return errorResult(err)
	}
	return Result{StatusCode: http.StatusNoContent}
}

func (d *Dispatcher) getState(ctx context.Context, payload json.RawMessage) Result {
	var p target
	if err := decode(payload, &p); err != nil {
		return badRequest(err)
	}
	a, err := d.player(ctx, p)
	if err != nil {
		return errorResult(err)
	}
	view, err := a.GetState()
	if err != nil {
		return errorResult(err)
	}
	return Result{
		StatusCode: http.StatusOK,
		Payload:    StateResult{Phase: string(view.Phase()), Room: view},
	}
}

func (d *Dispatcher) player(ctx context.Context, t target) (*actor.PlayerActor, error) {
	if t.UserID == "" {
		return nil, model.ErrMissingUserID
	}
	if t.RoomID == "" {
		return nil, model.ErrMissingRoomID
	}
	return d.registry.Player(ctx, actor.Identity{
		UserID: model.UserID(t.UserID),
		RoomID: model.RoomID(t.RoomID),
	})
}
