package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/arenalab/arena-server/internal/metrics"
	"github.com/arenalab/arena-server/internal/model"
	"github.com/arenalab/arena-server/internal/services/directory"
	"github.com/arenalab/arena-server/internal/services/room"
)

// RoomType describes one registered pipeline stage
type RoomType struct {
	Stage       model.Stage
	DisplayName string
	Advertised  bool
	Rules       room.Rules
}

// Registry maps room types to behavior and owns the live instance table.
// Types are registered once at startup; instances come and go at runtime.
// The registry also holds the pipeline-wide membership index: an identity
// occupies at most one non-Closed instance at any instant.
type Registry struct {
	directory *directory.Directory
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mu         sync.Mutex
	types      map[model.Stage]RoomType
	instances  map[model.RoomID]*room.Instance
	byStage    map[model.Stage][]*room.Instance
	membership map[model.Identity]model.RoomID
	created    uint64
}

// New creates an empty Registry
func New(dir *directory.Directory, m *metrics.Metrics, logger *slog.Logger) *Registry {
	return &Registry{
		directory:  dir,
		metrics:    m,
		logger:     logger.With(slog.String("component", "registry")),
		types:      make(map[model.Stage]RoomType),
		instances:  make(map[model.RoomID]*room.Instance),
		byStage:    make(map[model.Stage][]*room.Instance),
		membership: make(map[model.Identity]model.RoomID),
	}
}

// Register adds a room type. Startup-only: registering a stage twice is a
// programmer error and fatal.
func (r *Registry) Register(rt RoomType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !rt.Stage.Valid() {
		return fmt.Errorf("%w: %q", model.ErrUnknownType, rt.Stage)
	}
	if _, ok := r.types[rt.Stage]; ok {
		return fmt.Errorf("%w: %q", model.ErrDuplicateType, rt.Stage)
	}
	if rt.DisplayName == "" {
		rt.DisplayName = string(rt.Stage)
	}
	r.types[rt.Stage] = rt
	return nil
}

// Types returns the registered room types
func (r *Registry) Types() []RoomType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RoomType, 0, len(r.types))
	for _, stage := range model.Stages() {
		if rt, ok := r.types[stage]; ok {
			out = append(out, rt)
		}
	}
	return out
}

// CreateInstance spawns a new Open instance of the given type. Advertised
// instances appear in the directory before this returns.
func (r *Registry) CreateInstance(stage model.Stage) (*room.Instance, error) {
	r.mu.Lock()
	rt, ok := r.types[stage]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownType, stage)
	}

	r.created++
	id := model.RoomID(uuid.NewString())
	name := fmt.Sprintf("%s-%d", rt.DisplayName, r.created)
	inst := room.New(id, stage, name, r.created, rt.Rules)
	if rt.Advertised {
		inst.SetNotify(r.directory.Upsert)
	}
	r.instances[id] = inst
	r.byStage[stage] = append(r.byStage[stage], inst)
	r.mu.Unlock()

	if rt.Advertised {
		r.directory.Upsert(inst.Metadata())
	}
	r.metrics.RoomsByStage.WithLabelValues(string(stage)).Inc()
	r.logger.Info("room created",
		slog.String("room_id", string(id)),
		slog.String("stage", string(stage)))

	return inst, nil
}

// Get retrieves a live instance by id
func (r *Registry) Get(id model.RoomID) (*room.Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[id]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return inst, nil
}

// Instances returns all live instances (monitor surface)
func (r *Registry) Instances() []*room.Instance {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*room.Instance, 0, len(r.instances))
	for _, stage := range model.Stages() {
		out = append(out, r.byStage[stage]...)
	}
	return out
}

// FindJoinable returns an Open instance with spare capacity for the stage,
// or nil. Fullest-first packing; ties go to the earliest-created instance.
func (r *Registry) FindJoinable(stage model.Stage) *room.Instance {
	return r.FindJoinableFor(stage, 1)
}

// FindJoinableFor is FindJoinable with a minimum spare capacity, so a whole
// match group can land in one step
func (r *Registry) FindJoinableFor(stage model.Stage, size int) *room.Instance {
	r.mu.Lock()
	candidates := append([]*room.Instance(nil), r.byStage[stage]...)
	r.mu.Unlock()

	var best *room.Instance
	bestOcc := -1
	for _, inst := range candidates {
		if inst.SpareCapacity() < size {
			continue
		}
		occ := inst.Occupancy()
		if occ > bestOcc || (occ == bestOcc && best != nil && inst.CreationOrder() < best.CreationOrder()) {
			best = inst
			bestOcc = occ
		}
	}
	return best
}

// JoinRoom admits an identity into an instance, enforcing the
// single-membership invariant across the whole pipeline
func (r *Registry) JoinRoom(id model.RoomID, identity model.Identity) error {
	inst, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := r.reserve(identity, id); err != nil {
		return err
	}
	if err := inst.Join(identity); err != nil {
		r.Release(identity)
		return err
	}
	return nil
}

// JoinOrCreate admits an identity into a joinable instance of the stage,
// spawning a fresh one when none fits. A capacity race against another join
// retries against a new instance.
func (r *Registry) JoinOrCreate(stage model.Stage, identity model.Identity) (*room.Instance, error) {
	if err := r.reserve(identity, ""); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < 3; attempt++ {
		inst := r.FindJoinable(stage)
		if inst == nil {
			var err error
			inst, err = r.CreateInstance(stage)
			if err != nil {
				r.Release(identity)
				return nil, err
			}
		}
		err := inst.Join(identity)
		if err == nil {
			r.assign(identity, inst.ID())
			return inst, nil
		}
		if errors.Is(err, model.ErrRoomFull) || errors.Is(err, model.ErrRoomClosed) {
			continue
		}
		r.Release(identity)
		return nil, err
	}

	// Every candidate filled underneath us; take a guaranteed-fresh one
	inst, err := r.CreateInstance(stage)
	if err != nil {
		r.Release(identity)
		return nil, err
	}
	if err := inst.Join(identity); err != nil {
		r.Release(identity)
		return nil, err
	}
	r.assign(identity, inst.ID())
	return inst, nil
}

// LeaveRoom removes an identity from an instance and frees its membership
func (r *Registry) LeaveRoom(id model.RoomID, identity model.Identity) error {
	inst, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := inst.Leave(identity); err != nil {
		return err
	}
	r.Release(identity)
	r.Retire(inst)
	return nil
}

// MemberRoom reports which instance an identity currently occupies
func (r *Registry) MemberRoom(identity model.Identity) (model.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.membership[identity]
	return id, ok
}

// Reassign points group members' membership at their new instance after a
// completed transition. Coordinator use only.
func (r *Registry) Reassign(members []model.Identity, to model.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range members {
		r.membership[m] = to
	}
}

// Release frees identities from the membership index
func (r *Registry) Release(members ...model.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range members {
		delete(r.membership, m)
	}
}

// Retire closes and deregisters an instance once it is empty. The single
// Removed delta is published here; a Closed instance is never reused.
// Returns true when the instance was actually retired.
func (r *Registry) Retire(inst *room.Instance) bool {
	meta := inst.Metadata()
	if !inst.CloseIfEmpty() {
		return false
	}

	r.mu.Lock()
	if _, ok := r.instances[inst.ID()]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.instances, inst.ID())
	stage := inst.Stage()
	live := r.byStage[stage][:0]
	for _, other := range r.byStage[stage] {
		if other != inst {
			live = append(live, other)
		}
	}
	r.byStage[stage] = live
	advertised := r.types[stage].Advertised
	r.mu.Unlock()

	if advertised {
		r.directory.Remove(meta)
	}
	r.metrics.RoomsByStage.WithLabelValues(string(stage)).Dec()
	r.logger.Info("room retired",
		slog.String("room_id", string(inst.ID())),
		slog.String("stage", string(stage)))
	return true
}

// reserve claims the membership slot for an identity. The room id may be
// empty while a JoinOrCreate is still resolving its destination.
func (r *Registry) reserve(identity model.Identity, id model.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.membership[identity]; ok {
		return model.ErrAlreadyInRoom
	}
	r.membership[identity] = id
	return nil
}

func (r *Registry) assign(identity model.Identity, id model.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.membership[identity] = id
}
