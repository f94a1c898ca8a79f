package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/starweave/starweave/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.PlayerStateTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) record() *model.PlayerRecord {
	return &model.PlayerRecord{
		UserID:        "alice",
		RoomID:        "room-1",
		ConnectionIDs: []model.ConnectionID{"conn-1", "conn-2"},
		GameActive:    true,
	}
}

func (s *StorageSuite) TestSaveAndGetPlayerState() {
	s.Require().NoError(s.storage.SavePlayerState(s.ctx, s.record()))

	retrieved, err := s.storage.GetPlayerState(s.ctx, "alice", "room-1")
	s.Require().NoError(err)
	s.Equal(model.UserID("alice"), retrieved.UserID)
	s.Equal(model.RoomID("room-1"), retrieved.RoomID)
	s.ElementsMatch([]model.ConnectionID{"conn-1", "conn-2"}, retrieved.ConnectionIDs)
	s.True(retrieved.GameActive)
	s.False(retrieved.UpdatedAt.IsZero())
}

func (s *StorageSuite) TestGetMissingPlayerState() {
	_, err := s.storage.GetPlayerState(s.ctx, "ghost", "room-1")
	s.ErrorIs(err, model.ErrPlayerStateNotFound)
}

func (s *StorageSuite) TestSaveOverwritesPlayerState() {
	s.Require().NoError(s.storage.SavePlayerState(s.ctx, s.record()))

	updated := s.record()
	updated.ConnectionIDs = nil
	updated.GameActive = false
	s.Require().NoError(s.storage.SavePlayerState(s.ctx, updated))

	retrieved, err := s.storage.GetPlayerState(s.ctx, "alice", "room-1")
	s.Require().NoError(err)
	s.Empty(retrieved.ConnectionIDs)
	s.False(retrieved.GameActive)
}

func (s *StorageSuite) TestDeletePlayerState() {
	s.Require().NoError(s.storage.SavePlayerState(s.ctx, s.record()))

	s.Require().NoError(s.storage.DeletePlayerState(s.ctx, "alice", "room-1"))

	_, err := s.storage.GetPlayerState(s.ctx, "alice", "room-1")
	s.ErrorIs(err, model.ErrPlayerStateNotFound)
}

func (s *StorageSuite) TestPlayerStateExpires() {
	s.Require().NoError(s.storage.SavePlayerState(s.ctx, s.record()))

	s.mini.FastForward(2 * time.Hour)

	_, err := s.storage.GetPlayerState(s.ctx, "alice", "room-1")
	s.ErrorIs(err, model.ErrPlayerStateNotFound)
}

func (s *StorageSuite) TestKeyIsScopedByRoom() {
	s.Require().NoError(s.storage.SavePlayerState(s.ctx, s.record()))

	s.True(s.mini.Exists("starweave:player:room-1:alice"))

	_, err := s.storage.GetPlayerState(s.ctx, "alice", "room-2")
	s.ErrorIs(err, model.ErrPlayerStateNotFound)
}
