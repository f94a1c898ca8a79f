package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/starweave/starweave/internal/actor"
	"github.com/starweave/starweave/internal/bus"
	"github.com/starweave/starweave/internal/dependencies/mocks"
	"github.com/starweave/starweave/internal/model"
	"github.com/starweave/starweave/internal/storage/memory"
	"github.com/starweave/starweave/internal/testutil"
)

type DispatcherSuite struct {
	suite.Suite
	bus        *bus.Bus
	storage    *memory.Storage
	random     *mocks.MockRandom
	registry   *actor.Registry
	dispatcher *Dispatcher
	ctx        context.Context
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	logger := testutil.NopLogger()
	s.bus = bus.New(logger)
	s.storage = memory.New()
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.registry = actor.NewRegistry(s.bus, s.storage, clk, s.random, logger)
	s.dispatcher = New(s.registry, s.bus, s.random, DefaultTimeout, logger)
	s.ctx = context.Background()
}

// send dispatches a command built from a payload map
func (s *DispatcherSuite) send(commandType string, payload map[string]any) Result {
	raw, err := json.Marshal(payload)
	s.Require().NoError(err)
	return s.dispatcher.Dispatch(s.ctx, Envelope{Type: commandType, Payload: raw})
}

func (s *DispatcherSuite) connect(userID string) string {
	res := s.send(TypeConnect, map[string]any{"user_id": userID, "room_id": "room-1"})
	s.Require().Equal(http.StatusOK, res.StatusCode)
	conn, ok := res.Payload.(ConnectResult)
	s.Require().True(ok)
	return conn.ConnectionID
}

func (s *DispatcherSuite) lobbyView(userID string) model.LobbyView {
	res := s.send(TypeGetState, map[string]any{"user_id": userID, "room_id": "room-1"})
	s.Require().Equal(http.StatusOK, res.StatusCode)
	state, ok := res.Payload.(StateResult)
	s.Require().True(ok)
	view, ok := state.Room.(model.LobbyView)
	s.Require().True(ok)
	return view
}

func (s *DispatcherSuite) errorCode(res Result) string {
	cmdErr, ok := res.Payload.(CommandError)
	s.Require().True(ok)
	return cmdErr.Code
}

func (s *DispatcherSuite) TestCreateRoomMintsCode() {
	s.random.QueueString("ALPHA2")

	res := s.dispatcher.Dispatch(s.ctx, Envelope{Type: TypeCreateRoom})

	s.Require().Equal(http.StatusOK, res.StatusCode)
	created, ok := res.Payload.(CreateRoomResult)
	s.Require().True(ok)
	s.Equal("ALPHA2", created.RoomID)
	s.True(s.registry.HasRoom("ALPHA2"))

	// The minted room hosts players like any client-named room
	res = s.send(TypeConnect, map[string]any{"user_id": "alice", "room_id": created.RoomID})
	s.Equal(http.StatusOK, res.StatusCode)
}

func (s *DispatcherSuite) TestCreateRoomSkipsTakenCodes() {
	s.random.QueueString("ALPHA2", "ALPHA2", "BRAVO3")

	first := s.dispatcher.Dispatch(s.ctx, Envelope{Type: TypeCreateRoom})
	s.Require().Equal(http.StatusOK, first.StatusCode)
	s.Equal("ALPHA2", first.Payload.(CreateRoomResult).RoomID)

	second := s.dispatcher.Dispatch(s.ctx, Envelope{Type: TypeCreateRoom})
	s.Require().Equal(http.StatusOK, second.StatusCode)
	s.Equal("BRAVO3", second.Payload.(CreateRoomResult).RoomID)
}

func (s *DispatcherSuite) TestUnknownCommandType() {
	res := s.dispatcher.Dispatch(s.ctx, Envelope{Type: "teleport"})
	s.Equal(http.StatusNotFound, res.StatusCode)

	res = s.dispatcher.Dispatch(s.ctx, Envelope{})
	s.Equal(http.StatusNotFound, res.StatusCode)
}

func (s *DispatcherSuite) TestMissingPayload() {
	res := s.dispatcher.Dispatch(s.ctx, Envelope{Type: TypeConnect})
	s.Equal(http.StatusBadRequest, res.StatusCode)
	s.Equal(CodeInvalidRequest, s.errorCode(res))
}

func (s *DispatcherSuite) TestMissingTarget() {
	res := s.send(TypeConnect, map[string]any{"room_id": "room-1"})
	s.Equal(http.StatusBadRequest, res.StatusCode)
	s.Equal(CodeValidationFailed, s.errorCode(res))

	res = s.send(TypeConnect, map[string]any{"user_id": "alice"})
	s.Equal(http.StatusBadRequest, res.StatusCode)
}

func (s *DispatcherSuite) TestConnectMintsConnectionID() {
	connID := s.connect("alice")
	s.NotEmpty(connID)

	view := s.lobbyView("alice")
	s.Require().Len(view.Members, 1)
	s.True(view.Members[0].Online)
}

func (s *DispatcherSuite) TestConnectKeepsProvidedConnectionID() {
	res := s.send(TypeConnect, map[string]any{
		"user_id": "alice", "room_id": "room-1", "connection_id": "conn-7",
	})
	s.Require().Equal(http.StatusOK, res.StatusCode)
	s.Equal(ConnectResult{ConnectionID: "conn-7"}, res.Payload)
}

func (s *DispatcherSuite) TestDisconnectRequiresConnectionID() {
	res := s.send(TypeDisconnect, map[string]any{"user_id": "alice", "room_id": "room-1"})
	s.Equal(http.StatusBadRequest, res.StatusCode)
	s.Equal(CodeInvalidRequest, s.errorCode(res))
}

func (s *DispatcherSuite) TestDisconnectLastConnectionLeavesRoom() {
	connID := s.connect("alice")

	res := s.send(TypeDisconnect, map[string]any{
		"user_id": "alice", "room_id": "room-1", "connection_id": connID,
	})
	s.Equal(http.StatusNoContent, res.StatusCode)

	view := s.lobbyView("alice")
	s.Require().Len(view.Members, 1)
	s.False(view.Members[0].Online)
}

func (s *DispatcherSuite) TestUpdateOptions() {
	s.connect("alice")

	res := s.send(TypeUpdateOptions, map[string]any{
		"user_id": "alice", "room_id": "room-1", "nickname": "Cmdr Alice", "color": "#00ff00",
	})
	s.Equal(http.StatusNoContent, res.StatusCode)

	view := s.lobbyView("alice")
	s.Equal("Cmdr Alice", view.Members[0].Options.Nickname)
}

func (s *DispatcherSuite) TestStartGameFlow() {
	s.connect("alice")
	s.connect("bob")

	res := s.send(TypeUpdateGameOptions, map[string]any{
		"user_id": "alice", "room_id": "room-1",
		"map_width": 4, "map_height": 4, "neutral_planets": 2,
	})
	s.Require().Equal(http.StatusNoContent, res.StatusCode)

	res = s.send(TypeStartGame, map[string]any{"user_id": "alice", "room_id": "room-1"})
	s.Require().Equal(http.StatusNoContent, res.StatusCode)

	res = s.send(TypeGetState, map[string]any{"user_id": "bob", "room_id": "room-1"})
	s.Require().Equal(http.StatusOK, res.StatusCode)
	state := res.Payload.(StateResult)
	s.Equal(string(model.PhaseGame), state.Phase)
	view, ok := state.Room.(model.GameView)
	s.Require().True(ok)
	s.Len(view.Planets, 4)
}

func (s *DispatcherSuite) TestStartGameTwiceConflicts() {
	s.connect("alice")
	res := s.send(TypeStartGame, map[string]any{"user_id": "alice", "room_id": "room-1"})
	s.Require().Equal(http.StatusNoContent, res.StatusCode)

	res = s.send(TypeStartGame, map[string]any{"user_id": "alice", "room_id": "room-1"})
	s.Equal(http.StatusConflict, res.StatusCode)
	s.Equal(CodeInvalidState, s.errorCode(res))
}

func (s *DispatcherSuite) TestGameCommandInLobbyConflicts() {
	s.connect("alice")

	res := s.send(TypeLaunchFleet, map[string]any{
		"user_id": "alice", "room_id": "room-1", "from": 0, "to": 1, "ships": 5,
	})
	s.Equal(http.StatusConflict, res.StatusCode)
	s.Equal(CodeInvalidState, s.errorCode(res))

	res = s.send(TypeEndTurn, map[string]any{"user_id": "alice", "room_id": "room-1"})
	s.Equal(http.StatusConflict, res.StatusCode)
}

func (s *DispatcherSuite) TestWriteValidation() {
	s.connect("alice")

	res := s.send(TypeWrite, map[string]any{"user_id": "alice", "room_id": "room-1", "text": "  "})
	s.Equal(http.StatusBadRequest, res.StatusCode)
	s.Equal(CodeValidationFailed, s.errorCode(res))

	res = s.send(TypeWrite, map[string]any{"user_id": "alice", "room_id": "room-1", "text": "gl hf"})
	s.Equal(http.StatusNoContent, res.StatusCode)
}

func (s *DispatcherSuite) TestSlowHandlerTimesOut() {
	logger := testutil.NopLogger()
	slow := &slowStorage{inner: s.storage, delay: 500 * time.Millisecond}
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	rnd := mocks.NewMockRandom()
	registry := actor.NewRegistry(s.bus, slow, clk, rnd, logger)
	dispatcher := New(registry, s.bus, rnd, 20*time.Millisecond, logger)

	raw, _ := json.Marshal(map[string]any{"user_id": "alice", "room_id": "room-1"})
	res := dispatcher.Dispatch(s.ctx, Envelope{Type: TypeConnect, Payload: raw})

	s.Equal(http.StatusGatewayTimeout, res.StatusCode)
	s.Nil(res.Payload)
}

// slowStorage delays reads to force the dispatch timeout
type slowStorage struct {
	inner *memory.Storage
	delay time.Duration
}

func (s *slowStorage) SavePlayerState(ctx context.Context, record *model.PlayerRecord) error {
	return s.inner.SavePlayerState(ctx, record)
}

func (s *slowStorage) GetPlayerState(ctx context.Context, userID model.UserID, roomID model.RoomID) (*model.PlayerRecord, error) {
	time.Sleep(s.delay)
	return s.inner.GetPlayerState(ctx, userID, roomID)
}

func (s *slowStorage) DeletePlayerState(ctx context.Context, userID model.UserID, roomID model.RoomID) error {
	return s.inner.DeletePlayerState(ctx, userID, roomID)
}
