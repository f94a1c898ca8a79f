package gameplay

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starweave/starweave/internal/bus"
	"github.com/starweave/starweave/internal/dependencies/clock"
	"github.com/starweave/starweave/internal/dependencies/random"
	"github.com/starweave/starweave/internal/model"
)

const (
	homePlanetShips      = 50
	homePlanetProduction = 5
	neutralPlanetShips   = 10
)

type planet struct {
	position   int
	name       string
	owner      model.UserID // empty for neutral
	ships      int
	production int
}

type gamePlayer struct {
	options   model.PlayerOptions
	online    bool
	turnEnded bool
	dead      bool
	waiting   []model.Fleet
}

type movingFleet struct {
	owner model.UserID
	fleet model.Fleet
	eta   int // turns until arrival
}

type gameRosterEntry struct {
	userID  model.UserID
	options model.PlayerOptions
	online  bool
}

// Game is the in-progress room variant. It owns per-player fleet queues
// and the planet map, resolves turns when every present player has
// ended theirs, and detects player elimination and game termination.
type Game struct {
	roomID model.RoomID
	bus    *bus.Bus
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.Mutex
	width   int
	height  int
	planets map[int]*planet
	players map[model.UserID]*gamePlayer
	order   []model.UserID
	moving  []movingFleet
	turn    int
	ended   bool
}

// newGame builds the map and assigns one home planet per roster player.
// Joiners that arrive after the game started become observers without
// planets; they never block turn resolution.
func newGame(
	roomID model.RoomID,
	b *bus.Bus,
	clk clock.Clock,
	rnd random.Random,
	logger *slog.Logger,
	options model.GameOptions,
	roster []gameRosterEntry,
) *Game {
	g := &Game{
		roomID:  roomID,
		bus:     b,
		clock:   clk,
		logger:  logger.With(slog.String("component", "game"), slog.String("room_id", string(roomID))),
		width:   options.MapWidth,
		height:  options.MapHeight,
		planets: make(map[int]*planet),
		players: make(map[model.UserID]*gamePlayer),
	}

	cells := options.MapWidth * options.MapHeight
	free := make([]int, cells)
	for i := range free {
		free[i] = i
	}
	takeCell := func() int {
		i := rnd.Intn(len(free))
		pos := free[i]
		free[i] = free[len(free)-1]
		free = free[:len(free)-1]
		return pos
	}

	nameIdx := 0
	for _, entry := range roster {
		pos := takeCell()
		g.planets[pos] = &planet{
			position:   pos,
			name:       planetName(nameIdx),
			owner:      entry.userID,
			ships:      homePlanetShips,
			production: homePlanetProduction,
		}
		g.players[entry.userID] = &gamePlayer{options: entry.options, online: entry.online}
		g.order = append(g.order, entry.userID)
		nameIdx++
	}

	neutral := options.NeutralPlanets
	if neutral > len(free) {
		neutral = len(free)
	}
	for i := 0; i < neutral; i++ {
		pos := takeCell()
		g.planets[pos] = &planet{
			position: pos,
			name:     planetName(nameIdx),
			ships:    neutralPlanetShips,
		}
		nameIdx++
	}

	return g
}

// planetName maps 0 -> A, 25 -> Z, 26 -> AA and so on
func planetName(i int) string {
	name := ""
	for {
		name = string(rune('A'+i%26)) + name
		i = i/26 - 1
		if i < 0 {
			return name
		}
	}
}

// Phase implements Room
func (g *Game) Phase() model.RoomPhase { return model.PhaseGame }

// RoomID returns the room this game belongs to
func (g *Game) RoomID() model.RoomID { return g.roomID }

// Join implements Room. A user unknown to the game joins as an observer
// with no planets.
func (g *Game) Join(ctx context.Context, userID model.UserID) error {
	g.mu.Lock()
	p, ok := g.players[userID]
	if !ok {
		p = &gamePlayer{
			options: model.PlayerOptions{Nickname: string(userID)},
			dead:    true,
		}
		g.players[userID] = p
		g.order = append(g.order, userID)
	}
	p.online = true
	g.mu.Unlock()

	g.logger.Info("player joined", slog.String("user_id", string(userID)))
	return g.NotifyEverybody(ctx, PlayerJoined{UserID: userID})
}

// Leave implements Room. A turn blocked only on the leaving player is
// resolved immediately.
func (g *Game) Leave(ctx context.Context, userID model.UserID) error {
	g.mu.Lock()
	p, ok := g.players[userID]
	if !ok {
		g.mu.Unlock()
		return model.ErrNotInRoom
	}
	p.online = false
	events := g.maybeResolveTurn()
	g.mu.Unlock()

	g.logger.Info("player left", slog.String("user_id", string(userID)))
	if err := g.NotifyEverybody(ctx, PlayerLeft{UserID: userID}); err != nil {
		return err
	}
	return g.broadcast(ctx, events)
}

// LaunchFleet queues ships to travel between two planets. The ships
// leave the source planet immediately and depart when the turn ends.
func (g *Game) LaunchFleet(userID model.UserID, fleet model.Fleet) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.activePlayer(userID)
	if err != nil {
		return err
	}
	from, ok := g.planets[fleet.From]
	if !ok {
		return model.ErrUnknownPlanet
	}
	if _, ok := g.planets[fleet.To]; !ok {
		return model.ErrUnknownPlanet
	}
	if from.owner != userID {
		return model.ErrNotPlanetOwner
	}
	if fleet.Ships <= 0 || fleet.Ships > from.ships {
		return model.ErrNotEnoughShips
	}
	from.ships -= fleet.Ships
	p.waiting = append(p.waiting, fleet)
	return nil
}

// CancelFleet recalls a waiting fleet and returns its ships to the
// source planet.
func (g *Game) CancelFleet(userID model.UserID, cancelation model.FleetCancelation) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.activePlayer(userID)
	if err != nil {
		return err
	}
	if cancelation.Index < 0 || cancelation.Index >= len(p.waiting) {
		return model.ErrUnknownFleet
	}
	fleet := p.waiting[cancelation.Index]
	p.waiting = append(p.waiting[:cancelation.Index], p.waiting[cancelation.Index+1:]...)
	if from, ok := g.planets[fleet.From]; ok {
		from.ships += fleet.Ships
	}
	return nil
}

// EndTurn marks the player as done with the current turn. When every
// present, still-alive player has ended theirs, the turn is resolved.
func (g *Game) EndTurn(ctx context.Context, userID model.UserID) error {
	g.mu.Lock()
	p, err := g.activePlayer(userID)
	if err != nil {
		g.mu.Unlock()
		return err
	}
	p.turnEnded = true
	events := g.maybeResolveTurn()
	g.mu.Unlock()

	return g.broadcast(ctx, events)
}

// Ended reports whether the termination condition has been reached
func (g *Game) Ended() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ended
}

// NotifyEverybody implements Room by publishing once per participant topic
func (g *Game) NotifyEverybody(ctx context.Context, event Event) error {
	g.mu.Lock()
	topics := make([]string, 0, len(g.players))
	for _, id := range g.order {
		topics = append(topics, model.PlayerTopic(id, g.roomID))
	}
	g.mu.Unlock()

	for _, topic := range topics {
		g.bus.Publish(ctx, topic, event)
	}
	return nil
}

// View implements Room. Only the requesting user's waiting fleets are
// visible; everything else is shared knowledge.
func (g *Game) View(userID model.UserID) (model.RoomView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	members := make([]model.RoomMember, 0, len(g.players))
	var dead []model.UserID
	for _, id := range g.order {
		p := g.players[id]
		members = append(members, model.RoomMember{
			UserID:  id,
			Options: p.options,
			Online:  p.online,
		})
		if p.dead {
			dead = append(dead, id)
		}
	}

	planets := make([]model.PlanetView, 0, len(g.planets))
	for pos := 0; pos < g.width*g.height; pos++ {
		pl, ok := g.planets[pos]
		if !ok {
			continue
		}
		planets = append(planets, model.PlanetView{
			Position:   pl.position,
			Name:       pl.name,
			OwnerID:    pl.owner,
			Ships:      pl.ships,
			Production: pl.production,
		})
	}

	view := model.GameView{
		RoomID:      g.roomID,
		Members:     members,
		MapWidth:    g.width,
		MapHeight:   g.height,
		Planets:     planets,
		Turn:        g.turn,
		DeadPlayers: dead,
		Ended:       g.ended,
	}
	if p, ok := g.players[userID]; ok {
		view.TurnEnded = p.turnEnded
		view.WaitingFleets = append([]model.Fleet(nil), p.waiting...)
	}
	return view, nil
}

// activePlayer returns the player if they can still act. Callers hold g.mu.
func (g *Game) activePlayer(userID model.UserID) (*gamePlayer, error) {
	if g.ended {
		return nil, model.ErrGameEnded
	}
	p, ok := g.players[userID]
	if !ok {
		return nil, model.ErrNotInRoom
	}
	if p.dead {
		return nil, model.ErrPlayerEliminated
	}
	return p, nil
}

// maybeResolveTurn advances the turn if every present living player has
// ended theirs. Callers hold g.mu; returned events are broadcast after
// the lock is released.
func (g *Game) maybeResolveTurn() []Event {
	if g.ended {
		return nil
	}
	waiting := 0
	present := 0
	for _, p := range g.players {
		if p.dead || !p.online {
			continue
		}
		present++
		if !p.turnEnded {
			waiting++
		}
	}
	if present == 0 || waiting > 0 {
		return nil
	}
	return g.resolveTurn()
}

func (g *Game) resolveTurn() []Event {
	var events []Event

	// Waiting fleets depart
	for _, id := range g.order {
		p := g.players[id]
		for _, fleet := range p.waiting {
			g.moving = append(g.moving, movingFleet{
				owner: id,
				fleet: fleet,
				eta:   g.travelTime(fleet.From, fleet.To),
			})
		}
		p.waiting = nil
	}

	// Fleets travel; arrivals resolve by ship comparison
	remaining := g.moving[:0]
	for _, mf := range g.moving {
		mf.eta--
		if mf.eta > 0 {
			remaining = append(remaining, mf)
			continue
		}
		target, ok := g.planets[mf.fleet.To]
		if !ok {
			continue
		}
		switch {
		case target.owner == mf.owner:
			target.ships += mf.fleet.Ships
		case mf.fleet.Ships > target.ships:
			target.owner = mf.owner
			target.ships = mf.fleet.Ships - target.ships
		default:
			target.ships -= mf.fleet.Ships
		}
	}
	g.moving = remaining

	// Production
	for _, pl := range g.planets {
		if pl.owner != "" {
			pl.ships += pl.production
		}
	}

	// Elimination: no planets and no fleets in flight
	for _, id := range g.order {
		p := g.players[id]
		if p.dead {
			continue
		}
		if g.ownsNothing(id) {
			p.dead = true
			events = append(events, PlayerDead{UserID: id})
			g.logger.Info("player eliminated", slog.String("user_id", string(id)))
		}
	}

	g.turn++
	for _, p := range g.players {
		p.turnEnded = false
	}
	events = append(events, TurnCalculated{Turn: g.turn})

	// Termination: at most one player left standing
	alive := 0
	for _, p := range g.players {
		if !p.dead {
			alive++
		}
	}
	if alive <= 1 {
		g.ended = true
		events = append(events, GameEnded{})
		g.logger.Info("game ended", slog.Int("turns", g.turn))
	}

	return events
}

func (g *Game) ownsNothing(userID model.UserID) bool {
	for _, pl := range g.planets {
		if pl.owner == userID {
			return false
		}
	}
	for _, mf := range g.moving {
		if mf.owner == userID {
			return false
		}
	}
	return true
}

// travelTime is the chebyshev distance between two map cells, minimum
// one turn.
func (g *Game) travelTime(from, to int) int {
	fx, fy := from%g.width, from/g.width
	tx, ty := to%g.width, to/g.width
	dx, dy := fx-tx, fy-ty
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	d := dx
	if dy > d {
		d = dy
	}
	if d < 1 {
		d = 1
	}
	return d
}

func (g *Game) broadcast(ctx context.Context, events []Event) error {
	for _, event := range events {
		if err := g.NotifyEverybody(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
