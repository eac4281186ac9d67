package registry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/arenalab/arena-server/internal/metrics"
	"github.com/arenalab/arena-server/internal/model"
	"github.com/arenalab/arena-server/internal/services/directory"
	"github.com/arenalab/arena-server/internal/services/room"
	"github.com/arenalab/arena-server/internal/testutil"
)

type RegistrySuite struct {
	suite.Suite
	dir      *directory.Directory
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	m := metrics.New(prometheus.NewRegistry())
	logger := testutil.NopLogger()
	s.dir = directory.New(logger, m)
	s.registry = New(s.dir, m, logger)

	s.Require().NoError(s.registry.Register(RoomType{
		Stage:      model.StageLobby,
		Advertised: true,
		Rules:      room.Rules{MaxOccupancy: 4},
	}))
	s.Require().NoError(s.registry.Register(RoomType{
		Stage: model.StageGame,
		Rules: room.Rules{MaxOccupancy: 8},
	}))
}

func (s *RegistrySuite) TestRegisterDuplicateType() {
	err := s.registry.Register(RoomType{Stage: model.StageLobby})
	s.Require().ErrorIs(err, model.ErrDuplicateType)
}

func (s *RegistrySuite) TestRegisterUnknownStage() {
	err := s.registry.Register(RoomType{Stage: "warmup"})
	s.Require().ErrorIs(err, model.ErrUnknownType)
}

func (s *RegistrySuite) TestTypesInStageOrder() {
	types := s.registry.Types()
	s.Require().Len(types, 2)
	s.Equal(model.StageLobby, types[0].Stage)
	s.Equal(model.StageGame, types[1].Stage)
	s.Equal("lobby", types[0].DisplayName)
}

func (s *RegistrySuite) TestCreateInstanceUnknownType() {
	_, err := s.registry.CreateInstance(model.StagePreparation)
	s.Require().ErrorIs(err, model.ErrUnknownType)
}

func (s *RegistrySuite) TestAdvertisedInstanceAppearsInDirectory() {
	inst, err := s.registry.CreateInstance(model.StageLobby)
	s.Require().NoError(err)

	snap := s.dir.Snapshot("")
	s.Require().Len(snap.Rooms, 1)
	s.Equal(inst.ID(), snap.Rooms[0].RoomID)
}

func (s *RegistrySuite) TestUnadvertisedInstanceStaysHidden() {
	_, err := s.registry.CreateInstance(model.StageGame)
	s.Require().NoError(err)
	s.Empty(s.dir.Snapshot("").Rooms)
}

func (s *RegistrySuite) TestGetUnknownRoom() {
	_, err := s.registry.Get("nope")
	s.Require().ErrorIs(err, model.ErrRoomNotFound)
}

func (s *RegistrySuite) TestFindJoinablePrefersFullestRoom() {
	emptier, err := s.registry.CreateInstance(model.StageLobby)
	s.Require().NoError(err)
	fuller, err := s.registry.CreateInstance(model.StageLobby)
	s.Require().NoError(err)
	s.Require().NoError(s.registry.JoinRoom(fuller.ID(), "p1"))

	got := s.registry.FindJoinable(model.StageLobby)
	s.Require().NotNil(got)
	s.Equal(fuller.ID(), got.ID())
	s.NotEqual(emptier.ID(), got.ID())
}

func (s *RegistrySuite) TestFindJoinableTieGoesToEarliestCreated() {
	first, err := s.registry.CreateInstance(model.StageLobby)
	s.Require().NoError(err)
	_, err = s.registry.CreateInstance(model.StageLobby)
	s.Require().NoError(err)

	got := s.registry.FindJoinable(model.StageLobby)
	s.Require().NotNil(got)
	s.Equal(first.ID(), got.ID())
}

func (s *RegistrySuite) TestFindJoinableForGroupSize() {
	inst, err := s.registry.CreateInstance(model.StageLobby)
	s.Require().NoError(err)
	s.Require().NoError(s.registry.JoinRoom(inst.ID(), "p1"))
	s.Require().NoError(s.registry.JoinRoom(inst.ID(), "p2"))

	// Two spare seats left; a group of three doesn't fit anywhere
	s.Nil(s.registry.FindJoinableFor(model.StageLobby, 3))
	s.NotNil(s.registry.FindJoinableFor(model.StageLobby, 2))
}

func (s *RegistrySuite) TestSingleMembershipAcrossPipeline() {
	lobby, err := s.registry.CreateInstance(model.StageLobby)
	s.Require().NoError(err)
	game, err := s.registry.CreateInstance(model.StageGame)
	s.Require().NoError(err)

	s.Require().NoError(s.registry.JoinRoom(lobby.ID(), "p1"))

	// Already a member of a lobby; joining any other room is refused
	err = s.registry.JoinRoom(game.ID(), "p1")
	s.Require().ErrorIs(err, model.ErrAlreadyInRoom)

	id, ok := s.registry.MemberRoom("p1")
	s.True(ok)
	s.Equal(lobby.ID(), id)
}

func (s *RegistrySuite) TestJoinOrCreateSpawnsWhenNothingFits() {
	inst, err := s.registry.JoinOrCreate(model.StageLobby, "p1")
	s.Require().NoError(err)
	s.Equal(1, inst.Occupancy())

	// Second identity lands in the same instance
	same, err := s.registry.JoinOrCreate(model.StageLobby, "p2")
	s.Require().NoError(err)
	s.Equal(inst.ID(), same.ID())
}

func (s *RegistrySuite) TestJoinOrCreateRefusesDoubleMembership() {
	_, err := s.registry.JoinOrCreate(model.StageLobby, "p1")
	s.Require().NoError(err)

	_, err = s.registry.JoinOrCreate(model.StageLobby, "p1")
	s.Require().ErrorIs(err, model.ErrAlreadyInRoom)
}

func (s *RegistrySuite) TestLeaveRoomRetiresEmptyRoom() {
	inst, err := s.registry.JoinOrCreate(model.StageLobby, "p1")
	s.Require().NoError(err)

	s.Require().NoError(s.registry.LeaveRoom(inst.ID(), "p1"))

	_, ok := s.registry.MemberRoom("p1")
	s.False(ok)
	_, err = s.registry.Get(inst.ID())
	s.Require().ErrorIs(err, model.ErrRoomNotFound)
	s.Empty(s.dir.Snapshot("").Rooms)

	// The identity is free to join again, landing in a fresh instance
	again, err := s.registry.JoinOrCreate(model.StageLobby, "p1")
	s.Require().NoError(err)
	s.NotEqual(inst.ID(), again.ID())
}

func (s *RegistrySuite) TestLeaveRoomKeepsOccupiedRoom() {
	inst, err := s.registry.JoinOrCreate(model.StageLobby, "p1")
	s.Require().NoError(err)
	_, err = s.registry.JoinOrCreate(model.StageLobby, "p2")
	s.Require().NoError(err)

	s.Require().NoError(s.registry.LeaveRoom(inst.ID(), "p1"))

	got, err := s.registry.Get(inst.ID())
	s.Require().NoError(err)
	s.Equal(1, got.Occupancy())
}

func (s *RegistrySuite) TestRetirePublishesRemovedDelta() {
	inst, err := s.registry.CreateInstance(model.StageLobby)
	s.Require().NoError(err)

	_, sub := s.dir.Subscribe("")
	defer sub.Cancel()

	s.True(s.registry.Retire(inst))

	delta := <-sub.Updates()
	s.Equal(model.DeltaRemoved, delta.Kind)
	s.Equal(inst.ID(), delta.RoomID)
}

func (s *RegistrySuite) TestRetireRefusesOccupiedRoom() {
	inst, err := s.registry.JoinOrCreate(model.StageLobby, "p1")
	s.Require().NoError(err)

	s.False(s.registry.Retire(inst))
	_, err = s.registry.Get(inst.ID())
	s.Require().NoError(err)
}
