package transition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arenalab/arena-server/internal/metrics"
	"github.com/arenalab/arena-server/internal/model"
	"github.com/arenalab/arena-server/internal/services/registry"
	"github.com/arenalab/arena-server/internal/services/room"
)

// DefaultMaxAttempts bounds destination retries before a transition is
// declared aborted
const DefaultMaxAttempts = 3

// Coordinator atomically moves match groups between pipeline stages. It is
// the only component permitted to remove participants from one instance and
// add them to another, which is what keeps an identity from being counted
// in two occupancies at once.
type Coordinator struct {
	registry    *registry.Registry
	metrics     *metrics.Metrics
	logger      *slog.Logger
	maxAttempts int
}

// New creates a Coordinator
func New(reg *registry.Registry, m *metrics.Metrics, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		registry:    reg,
		metrics:     m,
		logger:      logger.With(slog.String("component", "transition")),
		maxAttempts: DefaultMaxAttempts,
	}
}

// AdvanceIfReady runs a transition out of an instance whose readiness
// condition has fired. Exactly one caller wins when several observe the
// InProgress state concurrently; the rest get (nil, nil).
func (c *Coordinator) AdvanceIfReady(ctx context.Context, source *room.Instance) (*room.Instance, error) {
	if source.State() != model.RoomStateInProgress {
		return nil, nil
	}
	group := model.NewMatchGroup(source.Participants(), source.Carry())
	return c.Advance(ctx, source, group)
}

// Advance moves a group from the source instance to a freshly resolved
// instance of the next pipeline stage. The source is marked Closing first
// so no join can race in; the destination takes the whole group in one
// all-or-nothing step and a capacity race is retried against a brand-new
// instance. A partial failure rolls back completely.
func (c *Coordinator) Advance(ctx context.Context, source *room.Instance, group model.MatchGroup) (*room.Instance, error) {
	if !source.TryBeginClosing() {
		// Another transition already owns this source
		return nil, nil
	}

	// The caller's group may predate a leave that landed before the source
	// was sealed; only identities still present migrate
	group = group.Retain(source.Participants())
	if len(group.Members) == 0 {
		c.registry.Retire(source)
		return nil, nil
	}

	next, ok := source.Stage().Next()
	if !ok {
		return nil, c.finalize(ctx, source, group)
	}

	dest, err := c.resolveAndMove(next, source, group)
	if err != nil {
		c.abort(ctx, source, group)
		return nil, err
	}

	c.registry.Reassign(group.Members, dest.ID())
	c.registry.Retire(source)
	c.metrics.Transitions.Inc()
	c.logger.Info("group transitioned",
		slog.String("from", string(source.ID())),
		slog.String("to", string(dest.ID())),
		slog.String("stage", string(next)),
		slog.Int("group_size", len(group.Members)))

	return dest, nil
}

// resolveAndMove finds or creates a destination that fits the whole group
// and performs the add-then-remove pair, rolling back on any partial
// failure
func (c *Coordinator) resolveAndMove(next model.Stage, source *room.Instance, group model.MatchGroup) (*room.Instance, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		var dest *room.Instance
		created := false
		if attempt == 0 {
			dest = c.registry.FindJoinableFor(next, len(group.Members))
		}
		if dest == nil {
			inst, err := c.registry.CreateInstance(next)
			if err != nil {
				return nil, err
			}
			dest = inst
			created = true
		}

		if err := dest.JoinGroup(group.Members); err != nil {
			// A destination this attempt created must not outlive the
			// attempt, or failed transitions leak empty instances
			if created {
				c.registry.Retire(dest)
			}
			lastErr = err
			if errors.Is(err, model.ErrRoomFull) || errors.Is(err, model.ErrRoomClosed) {
				// Capacity race with a concurrent join; a fresh instance is
				// guaranteed to fit next time around
				continue
			}
			return nil, err
		}
		dest.MergeCarry(group.Carry)

		if err := source.RemoveGroup(group.Members); err != nil {
			// Undo the add so no member is counted twice
			_ = dest.RemoveGroup(group.Members)
			c.registry.Retire(dest)
			return nil, err
		}
		return dest, nil
	}
	return nil, fmt.Errorf("%w: no destination after %d attempts: %v", model.ErrMatchAborted, c.maxAttempts, lastErr)
}

// finalize ends the pipeline for a group: the after-game stage has no
// successor, so the summary is produced and the instance closed
func (c *Coordinator) finalize(ctx context.Context, source *room.Instance, group model.MatchGroup) error {
	c.logger.Info("match finished",
		slog.String("room_id", string(source.ID())),
		slog.String("stage", string(source.Stage())),
		slog.Any("members", group.Members),
		slog.Any("summary", source.Carry()))

	if err := source.RemoveGroup(group.Members); err != nil {
		return err
	}
	c.registry.Release(group.Members...)
	c.registry.Retire(source)
	return nil
}

// abort is the fatal path: the transition could not complete within the
// attempt budget, so every group member is forced back to a lobby
func (c *Coordinator) abort(ctx context.Context, source *room.Instance, group model.MatchGroup) {
	c.metrics.TransitionAborts.Inc()
	c.logger.Error("match aborted - returning group to lobby",
		slog.String("room_id", string(source.ID())),
		slog.Int("group_size", len(group.Members)))

	_ = source.RemoveGroup(group.Members)
	c.registry.Release(group.Members...)
	c.registry.Retire(source)

	for _, member := range group.Members {
		if _, err := c.registry.JoinOrCreate(model.StageLobby, member); err != nil {
			c.logger.Error("failed to return member to lobby",
				slog.String("identity", string(member)),
				slog.Any("error", err))
		}
	}
}
