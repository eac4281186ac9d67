package room

import (
	"slices"
	"sync"

	"github.com/arenalab/arena-server/internal/model"
)

// NotifyFunc receives the instance's metadata after every state- or
// occupancy-affecting mutation, before the mutating operation returns.
// It is called with the instance lock held and must not block.
type NotifyFunc func(model.RoomMetadata)

// Instance is one running session of a pipeline stage. It exclusively owns
// its participant list and state; all mutations are serialized by its lock.
type Instance struct {
	id          model.RoomID
	stage       model.Stage
	displayName string
	created     uint64 // creation order, for deterministic tie-breaks
	rules       Rules
	notify      NotifyFunc

	mu           sync.Mutex
	state        model.RoomState
	participants []model.Identity
	ready        map[model.Identity]bool
	carry        map[string]string
}

// New creates an instance in the Open state
func New(id model.RoomID, stage model.Stage, displayName string, created uint64, rules Rules) *Instance {
	return &Instance{
		id:          id,
		stage:       stage,
		displayName: displayName,
		created:     created,
		rules:       rules,
		state:       model.RoomStateOpen,
		ready:       make(map[model.Identity]bool),
		carry:       make(map[string]string),
	}
}

// SetNotify installs the directory notification hook. Must be called before
// the instance is exposed to joins.
func (i *Instance) SetNotify(fn NotifyFunc) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.notify = fn
}

// ID returns the instance id
func (i *Instance) ID() model.RoomID { return i.id }

// Stage returns the pipeline stage this instance belongs to
func (i *Instance) Stage() model.Stage { return i.stage }

// CreationOrder returns the registry-assigned creation sequence
func (i *Instance) CreationOrder() uint64 { return i.created }

// MaxOccupancy returns the type's occupancy cap
func (i *Instance) MaxOccupancy() int { return i.rules.MaxOccupancy }

// State returns the current lifecycle state
func (i *Instance) State() model.RoomState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Occupancy returns the current participant count
func (i *Instance) Occupancy() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.participants)
}

// SpareCapacity returns how many more participants an Open instance can
// take; zero for any other state
func (i *Instance) SpareCapacity() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != model.RoomStateOpen {
		return 0
	}
	return i.rules.MaxOccupancy - len(i.participants)
}

// Participants returns the participant list in join order
func (i *Instance) Participants() []model.Identity {
	i.mu.Lock()
	defer i.mu.Unlock()
	return slices.Clone(i.participants)
}

// Contains reports whether the identity is a participant
func (i *Instance) Contains(identity model.Identity) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return slices.Contains(i.participants, identity)
}

// Metadata returns the directory projection of this instance. Seq is left
// for the directory to stamp.
func (i *Instance) Metadata() model.RoomMetadata {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.metadataLocked()
}

// Join adds a participant. Fails with ErrRoomFull at capacity and
// ErrRoomClosed for any state other than Open.
func (i *Instance) Join(identity model.Identity) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	switch i.state {
	case model.RoomStateOpen:
	case model.RoomStateFull:
		return model.ErrRoomFull
	default:
		return model.ErrRoomClosed
	}
	if slices.Contains(i.participants, identity) {
		return model.ErrAlreadyInRoom
	}
	if len(i.participants) >= i.rules.MaxOccupancy {
		return model.ErrRoomFull
	}

	i.participants = append(i.participants, identity)
	i.afterMutationLocked()
	return nil
}

// JoinGroup adds an entire group in one step, all-or-nothing. Used by the
// transition coordinator; a group is never split across instances.
func (i *Instance) JoinGroup(members []model.Identity) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state != model.RoomStateOpen {
		if i.state == model.RoomStateFull {
			return model.ErrRoomFull
		}
		return model.ErrRoomClosed
	}
	if len(i.participants)+len(members) > i.rules.MaxOccupancy {
		return model.ErrRoomFull
	}
	for _, m := range members {
		if slices.Contains(i.participants, m) {
			return model.ErrAlreadyInRoom
		}
	}

	i.participants = append(i.participants, members...)
	i.afterMutationLocked()
	return nil
}

// Leave removes a participant. Not permitted once the instance is Closing
// or Closed.
func (i *Instance) Leave(identity model.Identity) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state.Closed() {
		return model.ErrRoomClosed
	}
	idx := slices.Index(i.participants, identity)
	if idx < 0 {
		return model.ErrNotInRoom
	}

	i.participants = slices.Delete(i.participants, idx, idx+1)
	delete(i.ready, identity)
	if i.state == model.RoomStateFull {
		i.state = model.RoomStateOpen
	}
	i.notifyLocked()
	return nil
}

// RemoveGroup removes group members regardless of Closing state. Reserved
// for the transition coordinator, which is the only component allowed to
// move participants out of a Closing instance.
func (i *Instance) RemoveGroup(members []model.Identity) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state == model.RoomStateClosed {
		return model.ErrRoomClosed
	}
	for _, m := range members {
		idx := slices.Index(i.participants, m)
		if idx < 0 {
			continue
		}
		i.participants = slices.Delete(i.participants, idx, idx+1)
		delete(i.ready, m)
	}
	i.notifyLocked()
	return nil
}

// MarkReady records a participant's ready-up and re-evaluates readiness
func (i *Instance) MarkReady(identity model.Identity) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	switch i.state {
	case model.RoomStateOpen, model.RoomStateFull:
	default:
		return model.ErrRoomClosed
	}
	if !slices.Contains(i.participants, identity) {
		return model.ErrNotInRoom
	}

	i.ready[identity] = true
	i.afterMutationLocked()
	return nil
}

// TryBeginClosing moves the instance to Closing, refusing further joins.
// Returns false if the instance is already Closing or Closed, so exactly
// one caller wins the right to run a transition.
func (i *Instance) TryBeginClosing() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state.Closed() {
		return false
	}
	i.state = model.RoomStateClosing
	i.notifyLocked()
	return true
}

// Close makes the state terminal. No notification is emitted; the registry
// publishes the single Removed delta when it deregisters the instance.
func (i *Instance) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state = model.RoomStateClosed
}

// CloseIfEmpty atomically closes the instance when no participants remain.
// Returns false if participants are still present or it was already Closed.
func (i *Instance) CloseIfEmpty() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state == model.RoomStateClosed || len(i.participants) > 0 {
		return false
	}
	i.state = model.RoomStateClosed
	return true
}

// CarryValue reads one carry-over context value
func (i *Instance) CarryValue(key string) (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	v, ok := i.carry[key]
	return v, ok
}

// Carry returns a copy of the carry-over context
func (i *Instance) Carry() map[string]string {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make(map[string]string, len(i.carry))
	for k, v := range i.carry {
		out[k] = v
	}
	return out
}

// SetCarryValue records one carry-over context value (e.g. the selected map
// category during preparation)
func (i *Instance) SetCarryValue(key, value string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state.Closed() {
		return model.ErrRoomClosed
	}
	i.carry[key] = value
	return nil
}

// MergeCarry folds incoming carry-over context into the instance's own
func (i *Instance) MergeCarry(carry map[string]string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for k, v := range carry {
		i.carry[k] = v
	}
}

// afterMutationLocked recomputes Full/InProgress and notifies
func (i *Instance) afterMutationLocked() {
	if i.state == model.RoomStateOpen && len(i.participants) >= i.rules.MaxOccupancy {
		i.state = model.RoomStateFull
	}
	if (i.state == model.RoomStateOpen || i.state == model.RoomStateFull) && i.rules.ReadyWhen != nil {
		if i.rules.ReadyWhen(i.snapshotLocked()) {
			i.state = model.RoomStateInProgress
		}
	}
	i.notifyLocked()
}

func (i *Instance) snapshotLocked() Snapshot {
	ready := make(map[model.Identity]bool, len(i.ready))
	for k, v := range i.ready {
		ready[k] = v
	}
	return Snapshot{
		State:        i.state,
		Participants: slices.Clone(i.participants),
		Ready:        ready,
		MaxOccupancy: i.rules.MaxOccupancy,
	}
}

func (i *Instance) metadataLocked() model.RoomMetadata {
	return model.RoomMetadata{
		RoomID:       i.id,
		Stage:        i.stage,
		DisplayName:  i.displayName,
		Occupancy:    len(i.participants),
		MaxOccupancy: i.rules.MaxOccupancy,
		State:        i.state,
	}
}

// notifyLocked pushes current metadata to the directory hook. Suppressed
// once Closed so nothing follows the final Removed delta.
func (i *Instance) notifyLocked() {
	if i.notify == nil || i.state == model.RoomStateClosed {
		return
	}
	i.notify(i.metadataLocked())
}
