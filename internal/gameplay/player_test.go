package gameplay

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/starweave/starweave/internal/bus"
	"github.com/starweave/starweave/internal/dependencies/mocks"
	"github.com/starweave/starweave/internal/model"
	"github.com/starweave/starweave/internal/testutil"
)

type PlayerSuite struct {
	suite.Suite
	bus    *bus.Bus
	clock  *mocks.MockClock
	random *mocks.MockRandom
	lobby  *Lobby
	ctx    context.Context
}

func TestPlayerSuite(t *testing.T) {
	suite.Run(t, new(PlayerSuite))
}

func (s *PlayerSuite) SetupTest() {
	s.bus = bus.New(testutil.NopLogger())
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.lobby = NewLobby("room-1", s.bus, s.clock, s.random, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *PlayerSuite) newPlayer(userID model.UserID) *Player {
	player, err := NewPlayer(&PlayerState{
		UserID: userID,
		RoomID: "room-1",
		Lobby:  s.lobby,
	}, s.clock)
	s.Require().NoError(err)
	return player
}

// connect brings the player online with a single connection
func (s *PlayerSuite) connect(p *Player, connID model.ConnectionID) {
	s.Require().NoError(p.HandleConnected(s.ctx, Connected{ConnectionID: connID}))
}

func (s *PlayerSuite) listen(userID model.UserID) *recordingSubscriber {
	topic := model.PlayerTopic(userID, "room-1")
	sub := &recordingSubscriber{id: topic}
	s.bus.Subscribe(topic, sub)
	return sub
}

func (s *PlayerSuite) lobbyMembers(p *Player) []model.RoomMember {
	view, err := p.GetState()
	s.Require().NoError(err)
	return view.(model.LobbyView).Members
}

func (s *PlayerSuite) TestNewPlayerValidation() {
	_, err := NewPlayer(nil, s.clock)
	s.ErrorIs(err, model.ErrMissingUserID)

	_, err = NewPlayer(&PlayerState{RoomID: "room-1", Lobby: s.lobby}, s.clock)
	s.ErrorIs(err, model.ErrMissingUserID)

	_, err = NewPlayer(&PlayerState{UserID: "alice", Lobby: s.lobby}, s.clock)
	s.ErrorIs(err, model.ErrMissingRoomID)

	_, err = NewPlayer(&PlayerState{UserID: "alice", RoomID: "room-1"}, s.clock)
	s.ErrorIs(err, model.ErrMissingRoom)
}

func (s *PlayerSuite) TestFirstConnectionJoinsRoom() {
	alice := s.newPlayer("alice")

	s.connect(alice, "conn-1")

	members := s.lobbyMembers(alice)
	s.Require().Len(members, 1)
	s.True(members[0].Online)
}

func (s *PlayerSuite) TestSecondConnectionDoesNotRejoin() {
	alice := s.newPlayer("alice")
	s.connect(alice, "conn-1")
	sub := s.listen("alice")

	s.connect(alice, "conn-2")

	s.Empty(sub.events)
}

func (s *PlayerSuite) TestDuplicateConnectedDeliveryIsHarmless() {
	alice := s.newPlayer("alice")
	s.connect(alice, "conn-1")
	sub := s.listen("alice")

	s.connect(alice, "conn-1")

	s.Empty(sub.events)
	s.Len(alice.State().ConnectionIDs, 1)
}

func (s *PlayerSuite) TestOnlyLastDisconnectLeavesRoom() {
	alice := s.newPlayer("alice")
	s.connect(alice, "conn-1")
	s.connect(alice, "conn-2")

	s.Require().NoError(alice.HandleDisconnected(s.ctx, Disconnected{ConnectionID: "conn-1"}))
	s.True(s.lobbyMembers(alice)[0].Online)

	s.Require().NoError(alice.HandleDisconnected(s.ctx, Disconnected{ConnectionID: "conn-2"}))
	s.False(s.lobbyMembers(alice)[0].Online)
}

func (s *PlayerSuite) TestDisconnectUnknownConnectionIsHarmless() {
	alice := s.newPlayer("alice")
	s.connect(alice, "conn-1")

	s.Require().NoError(alice.HandleDisconnected(s.ctx, Disconnected{ConnectionID: "conn-99"}))

	s.True(s.lobbyMembers(alice)[0].Online)
}

func (s *PlayerSuite) TestGameCommandsRequireRunningGame() {
	alice := s.newPlayer("alice")
	s.connect(alice, "conn-1")

	s.ErrorIs(alice.LaunchFleet(model.Fleet{From: 0, To: 1, Ships: 1}), model.ErrInvalidState)
	s.ErrorIs(alice.CancelFleet(model.FleetCancelation{}), model.ErrInvalidState)
	s.ErrorIs(alice.EndTurn(s.ctx), model.ErrInvalidState)
}

func (s *PlayerSuite) TestLobbyCommandsRequireLobby() {
	alice := s.newPlayer("alice")
	bob := s.newPlayer("bob")
	s.connect(alice, "conn-a")
	s.connect(bob, "conn-b")
	s.Require().NoError(alice.UpdateGameOptions(model.GameOptions{MapWidth: 2, MapHeight: 1}))
	s.Require().NoError(alice.StartGame(s.ctx))

	s.ErrorIs(alice.UpdateOptions(model.PlayerOptions{Nickname: "Alice"}), model.ErrInvalidState)
	s.ErrorIs(alice.UpdateGameOptions(model.GameOptions{MapWidth: 4, MapHeight: 4}), model.ErrInvalidState)
	s.ErrorIs(alice.StartGame(s.ctx), model.ErrInvalidState)
}

func (s *PlayerSuite) TestStartGameSwitchesVariant() {
	alice := s.newPlayer("alice")
	s.connect(alice, "conn-1")

	view, err := alice.GetState()
	s.Require().NoError(err)
	s.Equal(model.PhaseLobby, view.Phase())

	s.Require().NoError(alice.StartGame(s.ctx))

	view, err = alice.GetState()
	s.Require().NoError(err)
	s.Equal(model.PhaseGame, view.Phase())
}

func (s *PlayerSuite) TestGameStartedEventSwitchesOtherPlayers() {
	alice := s.newPlayer("alice")
	bob := s.newPlayer("bob")
	s.connect(alice, "conn-a")
	s.connect(bob, "conn-b")

	s.Require().NoError(alice.StartGame(s.ctx))

	// Bob learns about the game through the broadcast, not the command
	game := s.lobby.CurrentGame()
	s.Require().NotNil(game)
	s.Require().NoError(bob.HandleGameStarted(GameStarted{Game: game}))

	view, err := bob.GetState()
	s.Require().NoError(err)
	s.Equal(model.PhaseGame, view.Phase())
}

func (s *PlayerSuite) TestHandleGameStartedDoesNotClobberExistingGame() {
	alice := s.newPlayer("alice")
	s.connect(alice, "conn-1")
	s.Require().NoError(alice.StartGame(s.ctx))
	game := alice.State().Game
	s.Require().NotNil(game)

	// The broadcast that follows the command is a duplicate
	s.Require().NoError(alice.HandleGameStarted(GameStarted{Game: s.lobby.CurrentGame()}))

	s.Same(game, alice.State().Game)
}

func (s *PlayerSuite) TestHandleGameEndedIsIdempotent() {
	alice := s.newPlayer("alice")
	s.connect(alice, "conn-1")
	s.Require().NoError(alice.StartGame(s.ctx))

	s.Require().NoError(alice.HandleGameEnded(GameEnded{}))
	s.Nil(alice.State().Game)

	s.Require().NoError(alice.HandleGameEnded(GameEnded{}))
	s.Nil(alice.State().Game)

	// Back in the lobby after the game is gone
	view, err := alice.GetState()
	s.Require().NoError(err)
	s.Equal(model.PhaseLobby, view.Phase())
}

func (s *PlayerSuite) TestWriteBroadcastsChatMessage() {
	alice := s.newPlayer("alice")
	bob := s.newPlayer("bob")
	s.connect(alice, "conn-a")
	s.connect(bob, "conn-b")
	bobSub := s.listen("bob")

	s.Require().NoError(alice.Write(s.ctx, "hello fleet"))

	s.Require().Len(bobSub.events, 1)
	s.Equal(ChatMessageReceived{
		SenderID: "alice",
		Text:     "hello fleet",
		SentAt:   s.clock.Now(),
	}, bobSub.events[0])

	// Later messages carry the later clock readings
	sent := s.clock.Now()
	s.clock.Advance(42 * time.Second)
	s.Require().NoError(alice.Write(s.ctx, "gl hf"))

	s.Require().Len(bobSub.events, 2)
	second := bobSub.events[1].(ChatMessageReceived)
	s.Equal(sent.Add(42*time.Second), second.SentAt)

	nextDay := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	s.clock.Set(nextDay)
	s.Require().NoError(alice.Write(s.ctx, "o7"))

	s.Require().Len(bobSub.events, 3)
	s.Equal(nextDay, bobSub.events[2].(ChatMessageReceived).SentAt)
}

func (s *PlayerSuite) TestWriteValidatesText() {
	alice := s.newPlayer("alice")
	s.connect(alice, "conn-1")

	s.ErrorIs(alice.Write(s.ctx, ""), model.ErrEmptyMessage)
	s.ErrorIs(alice.Write(s.ctx, "   \t\n"), model.ErrEmptyMessage)
	s.ErrorIs(alice.Write(s.ctx, strings.Repeat("x", MaxChatMessageLength+1)), model.ErrMessageTooLong)
}

func (s *PlayerSuite) TestValidateChatTextCountsRunesNotBytes() {
	// Multi-byte runes up to the limit are fine
	s.NoError(ValidateChatText(strings.Repeat("ö", MaxChatMessageLength)))
	s.ErrorIs(ValidateChatText(strings.Repeat("ö", MaxChatMessageLength+1)), model.ErrMessageTooLong)
}

func (s *PlayerSuite) TestRecordReflectsState() {
	alice := s.newPlayer("alice")
	s.connect(alice, "conn-1")
	s.connect(alice, "conn-2")

	record := alice.State().Record()
	s.Equal(model.UserID("alice"), record.UserID)
	s.Equal(model.RoomID("room-1"), record.RoomID)
	s.ElementsMatch([]model.ConnectionID{"conn-1", "conn-2"}, record.ConnectionIDs)
	s.False(record.GameActive)

	s.Require().NoError(alice.StartGame(s.ctx))
	s.True(alice.State().Record().GameActive)
}
