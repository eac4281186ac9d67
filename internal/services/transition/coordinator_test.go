package transition

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/arenalab/arena-server/internal/metrics"
	"github.com/arenalab/arena-server/internal/model"
	"github.com/arenalab/arena-server/internal/services/directory"
	"github.com/arenalab/arena-server/internal/services/registry"
	"github.com/arenalab/arena-server/internal/services/room"
	"github.com/arenalab/arena-server/internal/testutil"
)

type CoordinatorSuite struct {
	suite.Suite
	dir         *directory.Directory
	registry    *registry.Registry
	coordinator *Coordinator
	ctx         context.Context
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	m := metrics.New(prometheus.NewRegistry())
	logger := testutil.NopLogger()
	s.dir = directory.New(logger, m)
	s.registry = registry.New(s.dir, m, logger)
	s.coordinator = New(s.registry, m, logger)
	s.ctx = context.Background()

	s.registerPipeline()
}

func (s *CoordinatorSuite) registerPipeline() {
	s.Require().NoError(s.registry.Register(registry.RoomType{
		Stage:      model.StageLobby,
		Advertised: true,
		Rules:      room.Rules{MaxOccupancy: 2, ReadyWhen: room.FixedSize(2)},
	}))
	s.Require().NoError(s.registry.Register(registry.RoomType{
		Stage:      model.StagePreparation,
		Advertised: true,
		Rules:      room.Rules{MaxOccupancy: 4, ReadyWhen: room.AllReady(2)},
	}))
	s.Require().NoError(s.registry.Register(registry.RoomType{
		Stage: model.StageGame,
		Rules: room.Rules{MaxOccupancy: 8, ReadyWhen: room.MinOccupancy(2)},
	}))
	s.Require().NoError(s.registry.Register(registry.RoomType{
		Stage: model.StageAfterGame,
		Rules: room.Rules{MaxOccupancy: 8},
	}))
}

// fillLobby creates a lobby at its forming size so it is InProgress
func (s *CoordinatorSuite) fillLobby(p1, p2 model.Identity) *room.Instance {
	inst, err := s.registry.JoinOrCreate(model.StageLobby, p1)
	s.Require().NoError(err)
	same, err := s.registry.JoinOrCreate(model.StageLobby, p2)
	s.Require().NoError(err)
	s.Require().Equal(inst.ID(), same.ID())
	s.Require().Equal(model.RoomStateInProgress, inst.State())
	return inst
}

func (s *CoordinatorSuite) TestAdvanceIfReadyNotInProgress() {
	inst, err := s.registry.JoinOrCreate(model.StageLobby, "p1")
	s.Require().NoError(err)

	dest, err := s.coordinator.AdvanceIfReady(s.ctx, inst)
	s.Require().NoError(err)
	s.Nil(dest)
	s.Equal(model.RoomStateOpen, inst.State())
}

func (s *CoordinatorSuite) TestLobbyGroupMovesToPreparation() {
	lobby := s.fillLobby("p1", "p2")
	s.Require().NoError(lobby.SetCarryValue("origin", string(lobby.ID())))

	dest, err := s.coordinator.AdvanceIfReady(s.ctx, lobby)
	s.Require().NoError(err)
	s.Require().NotNil(dest)

	s.Equal(model.StagePreparation, dest.Stage())
	s.True(dest.Contains("p1"))
	s.True(dest.Contains("p2"))

	// Carry-over context followed the group
	origin, ok := dest.CarryValue("origin")
	s.True(ok)
	s.Equal(string(lobby.ID()), origin)

	// Membership now points at the destination
	id, ok := s.registry.MemberRoom("p1")
	s.True(ok)
	s.Equal(dest.ID(), id)

	// The source was retired and deregistered
	_, err = s.registry.Get(lobby.ID())
	s.Require().ErrorIs(err, model.ErrRoomNotFound)
	s.Equal(model.RoomStateClosed, lobby.State())
}

func (s *CoordinatorSuite) TestSecondAdvanceIsNoOp() {
	lobby := s.fillLobby("p1", "p2")
	group := model.NewMatchGroup(lobby.Participants(), lobby.Carry())

	dest, err := s.coordinator.Advance(s.ctx, lobby, group)
	s.Require().NoError(err)
	s.Require().NotNil(dest)

	// The source is already closed; a concurrent caller loses quietly
	again, err := s.coordinator.Advance(s.ctx, lobby, group)
	s.Require().NoError(err)
	s.Nil(again)
	s.Equal(2, dest.Occupancy())
}

func (s *CoordinatorSuite) TestGroupJoinsExistingRoomWithCapacity() {
	existing, err := s.registry.JoinOrCreate(model.StagePreparation, "p0")
	s.Require().NoError(err)

	lobby := s.fillLobby("p1", "p2")
	dest, err := s.coordinator.AdvanceIfReady(s.ctx, lobby)
	s.Require().NoError(err)
	s.Require().NotNil(dest)

	s.Equal(existing.ID(), dest.ID())
	s.Equal(3, dest.Occupancy())
}

func (s *CoordinatorSuite) TestReadyUpMovesGroupToGame() {
	lobby := s.fillLobby("p1", "p2")
	prep, err := s.coordinator.AdvanceIfReady(s.ctx, lobby)
	s.Require().NoError(err)

	s.Require().NoError(prep.MarkReady("p1"))
	dest, err := s.coordinator.AdvanceIfReady(s.ctx, prep)
	s.Require().NoError(err)
	s.Nil(dest)

	s.Require().NoError(prep.MarkReady("p2"))
	dest, err = s.coordinator.AdvanceIfReady(s.ctx, prep)
	s.Require().NoError(err)
	s.Require().NotNil(dest)

	s.Equal(model.StageGame, dest.Stage())
	// The game starts the moment the group lands
	s.Equal(model.RoomStateInProgress, dest.State())
}

func (s *CoordinatorSuite) TestFinalStageFinalizes() {
	lobby := s.fillLobby("p1", "p2")
	prep, err := s.coordinator.AdvanceIfReady(s.ctx, lobby)
	s.Require().NoError(err)
	s.Require().NoError(prep.MarkReady("p1"))
	s.Require().NoError(prep.MarkReady("p2"))
	game, err := s.coordinator.AdvanceIfReady(s.ctx, prep)
	s.Require().NoError(err)
	s.Require().NoError(game.SetCarryValue("winner", "p1"))

	after, err := s.coordinator.AdvanceIfReady(s.ctx, game)
	s.Require().NoError(err)
	s.Require().Equal(model.StageAfterGame, after.Stage())

	group := model.NewMatchGroup(after.Participants(), after.Carry())
	dest, err := s.coordinator.Advance(s.ctx, after, group)
	s.Require().NoError(err)
	s.Nil(dest)

	// The pipeline is over: memberships freed, instance retired
	_, ok := s.registry.MemberRoom("p1")
	s.False(ok)
	_, ok = s.registry.MemberRoom("p2")
	s.False(ok)
	_, err = s.registry.Get(after.ID())
	s.Require().ErrorIs(err, model.ErrRoomNotFound)
}

func (s *CoordinatorSuite) TestLeaverIsNotMigrated() {
	lobby := s.fillLobby("p1", "p2")
	group := model.NewMatchGroup(lobby.Participants(), lobby.Carry())

	// p1 leaves after the group was snapshotted but before the source is
	// sealed; the move must not undo that
	s.Require().NoError(s.registry.LeaveRoom(lobby.ID(), "p1"))

	dest, err := s.coordinator.Advance(s.ctx, lobby, group)
	s.Require().NoError(err)
	s.Require().NotNil(dest)

	s.False(dest.Contains("p1"))
	s.True(dest.Contains("p2"))
	s.Equal(1, dest.Occupancy())

	_, ok := s.registry.MemberRoom("p1")
	s.False(ok)
}

func (s *CoordinatorSuite) TestAdvanceAfterEveryoneLeft() {
	lobby := s.fillLobby("p1", "p2")
	group := model.NewMatchGroup(lobby.Participants(), lobby.Carry())

	s.Require().NoError(s.registry.LeaveRoom(lobby.ID(), "p1"))
	s.Require().NoError(s.registry.LeaveRoom(lobby.ID(), "p2"))

	dest, err := s.coordinator.Advance(s.ctx, lobby, group)
	s.Require().NoError(err)
	s.Nil(dest)

	for _, p := range []model.Identity{"p1", "p2"} {
		_, ok := s.registry.MemberRoom(p)
		s.False(ok)
	}
}

func (s *CoordinatorSuite) TestFailedAttemptsLeaveNoEmptyInstances() {
	// Preparation rooms too small for any lobby group: every attempt
	// creates a destination and fails to place the group in it
	m := metrics.New(prometheus.NewRegistry())
	logger := testutil.NopLogger()
	dir := directory.New(logger, m)
	reg := registry.New(dir, m, logger)
	coord := New(reg, m, logger)
	s.Require().NoError(reg.Register(registry.RoomType{
		Stage:      model.StageLobby,
		Advertised: true,
		Rules:      room.Rules{MaxOccupancy: 2, ReadyWhen: room.FixedSize(2)},
	}))
	s.Require().NoError(reg.Register(registry.RoomType{
		Stage:      model.StagePreparation,
		Advertised: true,
		Rules:      room.Rules{MaxOccupancy: 1, ReadyWhen: room.AllReady(1)},
	}))

	lobby, err := reg.JoinOrCreate(model.StageLobby, "p1")
	s.Require().NoError(err)
	_, err = reg.JoinOrCreate(model.StageLobby, "p2")
	s.Require().NoError(err)

	_, err = coord.AdvanceIfReady(s.ctx, lobby)
	s.Require().ErrorIs(err, model.ErrMatchAborted)

	// None of the failed destinations survives, in the registry or the
	// directory
	for _, inst := range reg.Instances() {
		s.NotEqual(model.StagePreparation, inst.Stage())
	}
	s.Empty(dir.Snapshot(model.StagePreparation).Rooms)
}

func (s *CoordinatorSuite) TestAbortReturnsGroupToLobby() {
	// A pipeline whose preparation stage was never registered cannot
	// resolve a destination
	m := metrics.New(prometheus.NewRegistry())
	logger := testutil.NopLogger()
	dir := directory.New(logger, m)
	reg := registry.New(dir, m, logger)
	coord := New(reg, m, logger)
	s.Require().NoError(reg.Register(registry.RoomType{
		Stage:      model.StageLobby,
		Advertised: true,
		Rules:      room.Rules{MaxOccupancy: 2, ReadyWhen: room.FixedSize(2)},
	}))

	lobby, err := reg.JoinOrCreate(model.StageLobby, "p1")
	s.Require().NoError(err)
	_, err = reg.JoinOrCreate(model.StageLobby, "p2")
	s.Require().NoError(err)
	s.Require().Equal(model.RoomStateInProgress, lobby.State())

	_, err = coord.AdvanceIfReady(s.ctx, lobby)
	s.Require().ErrorIs(err, model.ErrUnknownType)

	// Both members were forced back into a lobby
	for _, p := range []model.Identity{"p1", "p2"} {
		id, ok := reg.MemberRoom(p)
		s.Require().True(ok)
		inst, err := reg.Get(id)
		s.Require().NoError(err)
		s.Equal(model.StageLobby, inst.Stage())
		s.NotEqual(lobby.ID(), inst.ID())
	}

	// The failed source is gone
	_, err = reg.Get(lobby.ID())
	s.Require().ErrorIs(err, model.ErrRoomNotFound)
}

func (s *CoordinatorSuite) TestDirectoryEmitsOneRemovedPerRoom() {
	_, sub := s.dir.Subscribe("")
	defer sub.Cancel()

	lobby := s.fillLobby("p1", "p2")
	prep, err := s.coordinator.AdvanceIfReady(s.ctx, lobby)
	s.Require().NoError(err)
	s.Require().NoError(prep.MarkReady("p1"))
	s.Require().NoError(prep.MarkReady("p2"))
	_, err = s.coordinator.AdvanceIfReady(s.ctx, prep)
	s.Require().NoError(err)
	sub.Cancel()

	removed := make(map[model.RoomID]int)
	sawAfterRemove := make(map[model.RoomID]bool)
	for delta := range sub.Updates() {
		if removed[delta.RoomID] > 0 {
			sawAfterRemove[delta.RoomID] = true
		}
		if delta.Kind == model.DeltaRemoved {
			removed[delta.RoomID]++
		}
	}

	s.Equal(1, removed[lobby.ID()])
	s.Equal(1, removed[prep.ID()])
	s.Empty(sawAfterRemove)
}
