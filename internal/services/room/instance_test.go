package room

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/arenalab/arena-server/internal/model"
)

type InstanceSuite struct {
	suite.Suite
	notifications []model.RoomMetadata
}

func TestInstanceSuite(t *testing.T) {
	suite.Run(t, new(InstanceSuite))
}

func (s *InstanceSuite) SetupTest() {
	s.notifications = nil
}

func (s *InstanceSuite) newInstance(rules Rules) *Instance {
	inst := New("room-1", model.StageLobby, "lobby-1", 1, rules)
	inst.SetNotify(func(meta model.RoomMetadata) {
		s.notifications = append(s.notifications, meta)
	})
	return inst
}

func (s *InstanceSuite) TestJoinUpToCapacity() {
	inst := s.newInstance(Rules{MaxOccupancy: 2})

	s.Require().NoError(inst.Join("p1"))
	s.Require().NoError(inst.Join("p2"))
	s.Equal(2, inst.Occupancy())
	s.Equal(model.RoomStateFull, inst.State())

	err := inst.Join("p3")
	s.Require().ErrorIs(err, model.ErrRoomFull)
	s.Equal(2, inst.Occupancy())
}

func (s *InstanceSuite) TestJoinDuplicate() {
	inst := s.newInstance(Rules{MaxOccupancy: 4})

	s.Require().NoError(inst.Join("p1"))
	err := inst.Join("p1")
	s.Require().ErrorIs(err, model.ErrAlreadyInRoom)
	s.Equal(1, inst.Occupancy())
}

func (s *InstanceSuite) TestLeaveReopensFullRoom() {
	inst := s.newInstance(Rules{MaxOccupancy: 2})
	s.Require().NoError(inst.Join("p1"))
	s.Require().NoError(inst.Join("p2"))
	s.Equal(model.RoomStateFull, inst.State())

	s.Require().NoError(inst.Leave("p1"))
	s.Equal(model.RoomStateOpen, inst.State())
	s.Require().NoError(inst.Join("p3"))
}

func (s *InstanceSuite) TestLeaveUnknownParticipant() {
	inst := s.newInstance(Rules{MaxOccupancy: 2})
	s.Require().ErrorIs(inst.Leave("ghost"), model.ErrNotInRoom)
}

func (s *InstanceSuite) TestLeaveClosingRoomRejected() {
	inst := s.newInstance(Rules{MaxOccupancy: 2})
	s.Require().NoError(inst.Join("p1"))
	s.Require().True(inst.TryBeginClosing())

	s.Require().ErrorIs(inst.Leave("p1"), model.ErrRoomClosed)
	s.Equal(1, inst.Occupancy())
}

func (s *InstanceSuite) TestFixedSizeReadiness() {
	inst := s.newInstance(Rules{MaxOccupancy: 2, ReadyWhen: FixedSize(2)})

	s.Require().NoError(inst.Join("p1"))
	s.Equal(model.RoomStateOpen, inst.State())

	s.Require().NoError(inst.Join("p2"))
	s.Equal(model.RoomStateInProgress, inst.State())
}

func (s *InstanceSuite) TestAllReadyReadiness() {
	inst := s.newInstance(Rules{MaxOccupancy: 4, ReadyWhen: AllReady(2)})
	s.Require().NoError(inst.Join("p1"))
	s.Require().NoError(inst.Join("p2"))

	s.Require().NoError(inst.MarkReady("p1"))
	s.Equal(model.RoomStateOpen, inst.State())

	s.Require().NoError(inst.MarkReady("p2"))
	s.Equal(model.RoomStateInProgress, inst.State())
}

func (s *InstanceSuite) TestMarkReadyRequiresMembership() {
	inst := s.newInstance(Rules{MaxOccupancy: 2, ReadyWhen: AllReady(2)})
	s.Require().ErrorIs(inst.MarkReady("ghost"), model.ErrNotInRoom)
}

func (s *InstanceSuite) TestMinOccupancyFiresOnGroupArrival() {
	inst := s.newInstance(Rules{MaxOccupancy: 8, ReadyWhen: MinOccupancy(2)})

	s.Require().NoError(inst.JoinGroup([]model.Identity{"p1", "p2"}))
	s.Equal(model.RoomStateInProgress, inst.State())
}

func (s *InstanceSuite) TestJoinGroupAllOrNothing() {
	inst := s.newInstance(Rules{MaxOccupancy: 3})
	s.Require().NoError(inst.Join("p1"))
	s.Require().NoError(inst.Join("p2"))

	err := inst.JoinGroup([]model.Identity{"p3", "p4"})
	s.Require().ErrorIs(err, model.ErrRoomFull)
	s.Equal(2, inst.Occupancy())
	s.False(inst.Contains("p3"))
}

func (s *InstanceSuite) TestTryBeginClosingSingleWinner() {
	inst := s.newInstance(Rules{MaxOccupancy: 2, ReadyWhen: FixedSize(2)})
	s.Require().NoError(inst.Join("p1"))
	s.Require().NoError(inst.Join("p2"))

	s.True(inst.TryBeginClosing())
	s.False(inst.TryBeginClosing())
	s.Equal(model.RoomStateClosing, inst.State())
}

func (s *InstanceSuite) TestClosingRefusesJoins() {
	inst := s.newInstance(Rules{MaxOccupancy: 4})
	s.Require().NoError(inst.Join("p1"))
	s.Require().True(inst.TryBeginClosing())

	s.Require().ErrorIs(inst.Join("p2"), model.ErrRoomClosed)
	s.Require().ErrorIs(inst.JoinGroup([]model.Identity{"p2"}), model.ErrRoomClosed)
}

func (s *InstanceSuite) TestRemoveGroupWorksWhileClosing() {
	inst := s.newInstance(Rules{MaxOccupancy: 4})
	s.Require().NoError(inst.Join("p1"))
	s.Require().NoError(inst.Join("p2"))
	s.Require().True(inst.TryBeginClosing())

	s.Require().NoError(inst.RemoveGroup([]model.Identity{"p1", "p2"}))
	s.Equal(0, inst.Occupancy())
}

func (s *InstanceSuite) TestCloseIfEmpty() {
	inst := s.newInstance(Rules{MaxOccupancy: 2})
	s.Require().NoError(inst.Join("p1"))

	s.False(inst.CloseIfEmpty())
	s.Require().NoError(inst.Leave("p1"))
	s.True(inst.CloseIfEmpty())
	s.Equal(model.RoomStateClosed, inst.State())

	// Second close is a no-op
	s.False(inst.CloseIfEmpty())
}

func (s *InstanceSuite) TestSpareCapacityOnlyWhileOpen() {
	inst := s.newInstance(Rules{MaxOccupancy: 3})
	s.Equal(3, inst.SpareCapacity())

	s.Require().NoError(inst.Join("p1"))
	s.Equal(2, inst.SpareCapacity())

	s.Require().True(inst.TryBeginClosing())
	s.Equal(0, inst.SpareCapacity())
}

func (s *InstanceSuite) TestCarryValues() {
	inst := s.newInstance(Rules{MaxOccupancy: 2})
	s.Require().NoError(inst.SetCarryValue("map", "ICE"))

	v, ok := inst.CarryValue("map")
	s.True(ok)
	s.Equal("ICE", v)

	inst.MergeCarry(map[string]string{"winner": "p1"})
	carry := inst.Carry()
	s.Equal("ICE", carry["map"])
	s.Equal("p1", carry["winner"])
}

func (s *InstanceSuite) TestCarryRejectedOnceClosed() {
	inst := s.newInstance(Rules{MaxOccupancy: 2})
	s.Require().True(inst.TryBeginClosing())
	s.Require().ErrorIs(inst.SetCarryValue("map", "ICE"), model.ErrRoomClosed)
}

func (s *InstanceSuite) TestNotificationsTrackOccupancy() {
	inst := s.newInstance(Rules{MaxOccupancy: 2})
	s.Require().NoError(inst.Join("p1"))
	s.Require().NoError(inst.Join("p2"))
	s.Require().True(inst.TryBeginClosing())

	s.Require().Len(s.notifications, 3)
	s.Equal(1, s.notifications[0].Occupancy)
	s.Equal(2, s.notifications[1].Occupancy)
	s.Equal(model.RoomStateFull, s.notifications[1].State)
	s.Equal(model.RoomStateClosing, s.notifications[2].State)
}

func (s *InstanceSuite) TestNoNotificationAfterClose() {
	inst := s.newInstance(Rules{MaxOccupancy: 2})
	inst.Close()
	before := len(s.notifications)

	s.Require().ErrorIs(inst.RemoveGroup([]model.Identity{"p1"}), model.ErrRoomClosed)
	s.Len(s.notifications, before)
}
