package model

// RoomPhase distinguishes the two shapes a room can take
type RoomPhase string

const (
	PhaseLobby RoomPhase = "lobby"
	PhaseGame  RoomPhase = "game"
)

// GameOptions holds configurable settings for the next game in a room
type GameOptions struct {
	MapWidth       int
	MapHeight      int
	NeutralPlanets int
}

// DefaultGameOptions returns the default game configuration
func DefaultGameOptions() GameOptions {
	return GameOptions{
		MapWidth:       8,
		MapHeight:      8,
		NeutralPlanets: 8,
	}
}

// Fleet is an order to send ships between two planets.
// Planet positions are flat map indexes (y*width + x).
type Fleet struct {
	From  int
	To    int
	Ships int
}

// FleetCancelation identifies a waiting fleet to recall by its
// position in the player's launch queue.
type FleetCancelation struct {
	Index int
}

// RoomMember describes one participant in a room view
type RoomMember struct {
	UserID  UserID
	Options PlayerOptions
	Online  bool
}

// PlanetView is a planet as seen in a game view
type PlanetView struct {
	Position   int
	Name       string
	OwnerID    UserID // empty for neutral planets
	Ships      int
	Production int
}

// RoomView is a user-scoped snapshot of a room, one of LobbyView or GameView
type RoomView interface {
	Phase() RoomPhase
}

// LobbyView is the pre-game room snapshot
type LobbyView struct {
	RoomID  RoomID
	Members []RoomMember
	Options GameOptions
}

// Phase implements RoomView
func (LobbyView) Phase() RoomPhase { return PhaseLobby }

// GameView is the in-game room snapshot, filtered to one user's
// perspective: only that user's waiting fleets are included.
type GameView struct {
	RoomID        RoomID
	Members       []RoomMember
	MapWidth      int
	MapHeight     int
	Planets       []PlanetView
	Turn          int
	TurnEnded     bool
	WaitingFleets []Fleet
	DeadPlayers   []UserID
	Ended         bool
}

// Phase implements RoomView
func (GameView) Phase() RoomPhase { return PhaseGame }
