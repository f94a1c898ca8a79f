package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/starweave/starweave/internal/factory"
	"github.com/starweave/starweave/internal/model"
	"github.com/starweave/starweave/internal/testutil"
)

type FarmSuite struct {
	suite.Suite
	app *factory.TestApp
	ctx context.Context
}

func TestFarmSuite(t *testing.T) {
	suite.Run(t, new(FarmSuite))
}

func (s *FarmSuite) SetupTest() {
	s.app = factory.NewTestApp()
	s.ctx = context.Background()
}

func (s *FarmSuite) TestRejectsEmptyConfiguration() {
	farm := NewFarm(s.app.Dispatcher, s.app.Random, testutil.NopLogger())

	s.Error(farm.Run(s.ctx, Options{Rooms: 0, BotsPerRoom: 2}))
	s.Error(farm.Run(s.ctx, Options{Rooms: 1, BotsPerRoom: 0}))
}

func (s *FarmSuite) TestBotsPlayThroughTurns() {
	farm := NewFarm(s.app.Dispatcher, s.app.Random, testutil.NopLogger())

	opts := Options{
		Rooms:       1,
		BotsPerRoom: 2,
		GameOptions: model.GameOptions{MapWidth: 3, MapHeight: 3, NeutralPlanets: 1},
		TurnDelay:   time.Millisecond,
		MaxTurns:    3,
	}
	s.Require().NoError(farm.Run(s.ctx, opts))

	// The leader's room ran a real game for at least MaxTurns turns
	lobby := s.app.Registry.Room("bots-0")
	game := lobby.CurrentGame()
	s.Require().NotNil(game)

	view, err := game.View("bot-bots-0-0")
	s.Require().NoError(err)
	s.GreaterOrEqual(view.(model.GameView).Turn, 3)
}

func (s *FarmSuite) TestRunStopsOnCancel() {
	farm := NewFarm(s.app.Dispatcher, s.app.Random, testutil.NopLogger())

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	opts := DefaultOptions()
	opts.JoinDelay = time.Second
	s.ErrorIs(farm.Run(ctx, opts), context.Canceled)
}

func (s *FarmSuite) TestMultipleRoomsRunIndependently() {
	farm := NewFarm(s.app.Dispatcher, s.app.Random, testutil.NopLogger())

	opts := Options{
		Rooms:       2,
		BotsPerRoom: 2,
		GameOptions: model.GameOptions{MapWidth: 3, MapHeight: 3, NeutralPlanets: 1},
		TurnDelay:   time.Millisecond,
		MaxTurns:    2,
	}
	s.Require().NoError(farm.Run(s.ctx, opts))

	s.NotNil(s.app.Registry.Room("bots-0").CurrentGame())
	s.NotNil(s.app.Registry.Room("bots-1").CurrentGame())
}
