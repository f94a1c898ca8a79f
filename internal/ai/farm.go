package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starweave/starweave/internal/dependencies/random"
	"github.com/starweave/starweave/internal/dispatch"
	"github.com/starweave/starweave/internal/model"
)

// Options configures a bot farm run
type Options struct {
	// Rooms is the number of rooms to fill with bots
	Rooms int
	// BotsPerRoom is the number of bots joining each room
	BotsPerRoom int
	// GameOptions are applied by each room's first bot before starting
	GameOptions model.GameOptions
	// JoinDelay is the pause between consecutive bot connections in a room
	JoinDelay time.Duration
	// TurnDelay is the pause between a bot's turn submissions
	TurnDelay time.Duration
	// MaxTurns stops a bot after this many turns even if the game has
	// not ended. Zero means play until the game ends.
	MaxTurns int
}

// DefaultOptions returns a small smoke-test configuration
func DefaultOptions() Options {
	return Options{
		Rooms:       1,
		BotsPerRoom: 4,
		GameOptions: model.DefaultGameOptions(),
		JoinDelay:   50 * time.Millisecond,
		TurnDelay:   100 * time.Millisecond,
	}
}

// Farm drives synthetic players through the command dispatcher to
// exercise rooms under load. Each room gets its own set of bots; the
// first bot in a room acts as leader and starts the game once everyone
// has joined.
type Farm struct {
	dispatcher *dispatch.Dispatcher
	random     random.Random
	logger     *slog.Logger
}

// NewFarm creates a bot farm driving the given dispatcher
func NewFarm(d *dispatch.Dispatcher, rnd random.Random, logger *slog.Logger) *Farm {
	return &Farm{
		dispatcher: d,
		random:     rnd,
		logger:     logger.With(slog.String("component", "ai.farm")),
	}
}

// Run fills the configured rooms with bots and plays every game to
// completion. It returns the first bot error, or nil once all rooms
// finish.
func (f *Farm) Run(ctx context.Context, opts Options) error {
	if opts.Rooms <= 0 || opts.BotsPerRoom <= 0 {
		return fmt.Errorf("farm needs at least one room and one bot per room")
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < opts.Rooms; i++ {
		roomID := fmt.Sprintf("bots-%d", i)
		g.Go(func() error {
			return f.runRoom(ctx, roomID, opts)
		})
	}
	return g.Wait()
}

func (f *Farm) runRoom(ctx context.Context, roomID string, opts Options) error {
	logger := f.logger.With(slog.String("room_id", roomID))

	bots := make([]*bot, opts.BotsPerRoom)
	for i := range bots {
		bots[i] = &bot{
			dispatcher: f.dispatcher,
			random:     f.random,
			logger:     logger,
			userID:     fmt.Sprintf("bot-%s-%d", roomID, i),
			roomID:     roomID,
		}
	}

	// Connect one at a time so join order, and therefore the leader,
	// is deterministic
	for _, b := range bots {
		if err := b.connect(ctx); err != nil {
			return fmt.Errorf("bot %s failed to connect: %w", b.userID, err)
		}
		if opts.JoinDelay > 0 {
			select {
			case <-time.After(opts.JoinDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	leader := bots[0]
	if err := leader.configure(ctx, opts.GameOptions); err != nil {
		return fmt.Errorf("leader %s failed to configure: %w", leader.userID, err)
	}
	if err := leader.startGame(ctx); err != nil {
		return fmt.Errorf("leader %s failed to start game: %w", leader.userID, err)
	}
	logger.Info("game started", slog.Int("bots", len(bots)))

	g, ctx := errgroup.WithContext(ctx)
	for _, b := range bots {
		b := b
		g.Go(func() error {
			return b.play(ctx, opts)
		})
	}
	err := g.Wait()

	for _, b := range bots {
		b.disconnect(context.WithoutCancel(ctx))
	}
	if err != nil {
		return err
	}
	logger.Info("room finished")
	return nil
}

type bot struct {
	dispatcher *dispatch.Dispatcher
	random     random.Random
	logger     *slog.Logger
	userID     string
	roomID     string

	connectionID string
}

// send dispatches one command and fails on any error status
func (b *bot) send(ctx context.Context, commandType string, payload any) (dispatch.Result, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("failed to marshal %s payload: %w", commandType, err)
	}
	res := b.dispatcher.Dispatch(ctx, dispatch.Envelope{Type: commandType, Payload: raw})
	if res.StatusCode >= 400 {
		return res, fmt.Errorf("%s rejected with status %d", commandType, res.StatusCode)
	}
	return res, nil
}

func (b *bot) connect(ctx context.Context) error {
	res, err := b.send(ctx, dispatch.TypeConnect, map[string]any{
		"user_id": b.userID,
		"room_id": b.roomID,
	})
	if err != nil {
		return err
	}
	conn, ok := res.Payload.(dispatch.ConnectResult)
	if !ok {
		return fmt.Errorf("unexpected connect payload %T", res.Payload)
	}
	b.connectionID = conn.ConnectionID

	_, err = b.send(ctx, dispatch.TypeUpdateOptions, map[string]any{
		"user_id":  b.userID,
		"room_id":  b.roomID,
		"nickname": b.userID,
	})
	return err
}

func (b *bot) disconnect(ctx context.Context) {
	if b.connectionID == "" {
		return
	}
	if _, err := b.send(ctx, dispatch.TypeDisconnect, map[string]any{
		"user_id":       b.userID,
		"room_id":       b.roomID,
		"connection_id": b.connectionID,
	}); err != nil {
		b.logger.Warn("bot disconnect failed",
			slog.String("user_id", b.userID),
			slog.String("error", err.Error()))
	}
	b.connectionID = ""
}

func (b *bot) configure(ctx context.Context, opts model.GameOptions) error {
	_, err := b.send(ctx, dispatch.TypeUpdateGameOptions, map[string]any{
		"user_id":         b.userID,
		"room_id":         b.roomID,
		"map_width":       opts.MapWidth,
		"map_height":      opts.MapHeight,
		"neutral_planets": opts.NeutralPlanets,
	})
	return err
}

func (b *bot) startGame(ctx context.Context) error {
	_, err := b.send(ctx, dispatch.TypeStartGame, map[string]any{
		"user_id": b.userID,
		"room_id": b.roomID,
	})
	return err
}

// play submits turns until the game ends, the bot dies, or the turn
// cap is reached
func (b *bot) play(ctx context.Context, opts Options) error {
	for {
		view, err := b.gameView(ctx)
		if err != nil {
			return err
		}
		if view == nil {
			// Still in the lobby, the leader has not started yet
			select {
			case <-time.After(opts.TurnDelay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if view.Ended {
			return nil
		}
		if b.dead(view) {
			b.logger.Info("bot eliminated",
				slog.String("user_id", b.userID),
				slog.Int("turn", view.Turn))
			return nil
		}
		if opts.MaxTurns > 0 && view.Turn >= opts.MaxTurns {
			return nil
		}

		if !view.TurnEnded {
			if err := b.maybeLaunchFleet(ctx, view); err != nil {
				return err
			}
			if _, err := b.send(ctx, dispatch.TypeEndTurn, map[string]any{
				"user_id": b.userID,
				"room_id": b.roomID,
			}); err != nil {
				return err
			}
		}

		select {
		case <-time.After(opts.TurnDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// gameView fetches the bot's room snapshot, returning nil while the
// room is still a lobby
func (b *bot) gameView(ctx context.Context) (*model.GameView, error) {
	res, err := b.send(ctx, dispatch.TypeGetState, map[string]any{
		"user_id": b.userID,
		"room_id": b.roomID,
	})
	if err != nil {
		return nil, err
	}
	state, ok := res.Payload.(dispatch.StateResult)
	if !ok {
		return nil, fmt.Errorf("unexpected state payload %T", res.Payload)
	}
	if view, ok := state.Room.(model.GameView); ok {
		return &view, nil
	}
	return nil, nil
}

func (b *bot) dead(view *model.GameView) bool {
	for _, id := range view.DeadPlayers {
		if id == model.UserID(b.userID) {
			return true
		}
	}
	return false
}

// maybeLaunchFleet sends roughly half the ships from the bot's
// strongest planet at a random planet it does not own
func (b *bot) maybeLaunchFleet(ctx context.Context, view *model.GameView) error {
	var from *model.PlanetView
	var targets []*model.PlanetView
	for i := range view.Planets {
		p := &view.Planets[i]
		if p.OwnerID == model.UserID(b.userID) {
			if p.Ships > 1 && (from == nil || p.Ships > from.Ships) {
				from = p
			}
		} else {
			targets = append(targets, p)
		}
	}
	if from == nil || len(targets) == 0 {
		return nil
	}
	to := targets[b.random.Intn(len(targets))]

	ships := from.Ships / 2
	if ships < 1 {
		ships = 1
	}
	_, err := b.send(ctx, dispatch.TypeLaunchFleet, map[string]any{
		"user_id": b.userID,
		"room_id": b.roomID,
		"from":    from.Position,
		"to":      to.Position,
		"ships":   ships,
	})
	return err
}
