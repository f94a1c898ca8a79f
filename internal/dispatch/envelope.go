package dispatch

import "encoding/json"

// Envelope is the generic command shape the boundary layer receives.
// An empty or unrecognized type means the command is not handled.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Result is the generic command outcome: an HTTP-style status code and
// an optional payload.
type Result struct {
	StatusCode int `json:"status_code"`
	Payload    any `json:"payload,omitempty"`
}

// Command types understood by the dispatcher
const (
	TypeCreateRoom        = "create_room"
	TypeConnect           = "connect"
	TypeDisconnect        = "disconnect"
	TypeUpdateOptions     = "update_options"
	TypeUpdateGameOptions = "update_game_options"
	TypeStartGame         = "start_game"
	TypeLaunchFleet       = "launch_fleet"
	TypeCancelFleet       = "cancel_fleet"
	TypeEndTurn           = "end_turn"
	TypeWrite             = "write"
	TypeGetState          = "get_state"
)

// target identifies the player actor a command is addressed to
type target struct {
	UserID string `json:"user_id"`
	RoomID string `json:"room_id"`
}

type connectPayload struct {
	target
	// ConnectionID is minted server-side when empty
	ConnectionID string `json:"connection_id"`
}

type disconnectPayload struct {
	target
	ConnectionID string `json:"connection_id"`
}

type updateOptionsPayload struct {
	target
	Nickname string `json:"nickname"`
	Color    string `json:"color"`
}

type updateGameOptionsPayload struct {
	target
	MapWidth       int `json:"map_width"`
	MapHeight      int `json:"map_height"`
	NeutralPlanets int `json:"neutral_planets"`
}

type launchFleetPayload struct {
	target
	From  int `json:"from"`
	To    int `json:"to"`
	Ships int `json:"ships"`
}

type cancelFleetPayload struct {
	target
	Index int `json:"index"`
}

type writePayload struct {
	target
	Text string `json:"text"`
}

// CreateRoomResult reports the code minted for a new room
type CreateRoomResult struct {
	RoomID string `json:"room_id"`
}

// ConnectResult reports the connection id assigned to a new connection
type ConnectResult struct {
	ConnectionID string `json:"connection_id"`
}

// StateResult wraps a room view with its variant tag
type StateResult struct {
	Phase string `json:"phase"`
	Room  any    `json:"room"`
}
