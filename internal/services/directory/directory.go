package directory

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/arenalab/arena-server/internal/metrics"
	"github.com/arenalab/arena-server/internal/model"
)

// subscriberBuffer bounds each subscriber's undrained delta queue. A
// subscriber that falls this far behind is evicted rather than allowed to
// block publishers.
const subscriberBuffer = 64

// Directory maintains the live set of advertised room instances and pushes
// incremental updates to subscribers. It holds only a read-projection of
// instance metadata and never mutates instance state.
type Directory struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	rooms map[model.RoomID]model.RoomMetadata
	seq   map[model.Stage]uint64
	subs  map[*Subscription]struct{}
}

// New creates an empty Directory
func New(logger *slog.Logger, m *metrics.Metrics) *Directory {
	return &Directory{
		logger:  logger.With(slog.String("component", "directory")),
		metrics: m,
		rooms:   make(map[model.RoomID]model.RoomMetadata),
		seq:     make(map[model.Stage]uint64),
		subs:    make(map[*Subscription]struct{}),
	}
}

// Subscription is one observer's handle on the delta stream. The Updates
// channel is closed when the subscription is cancelled or evicted.
type Subscription struct {
	dir    *Directory
	filter model.Stage // "" matches all stages
	ch     chan model.DirectoryDelta
	closed bool // guarded by dir.mu
}

// Updates yields the ordered delta stream
func (s *Subscription) Updates() <-chan model.DirectoryDelta {
	return s.ch
}

// Cancel tears the subscription down. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.dir.mu.Lock()
	defer s.dir.mu.Unlock()
	s.dir.dropLocked(s)
}

// Subscribe returns the current snapshot for the filter plus a live
// subscription whose deltas pick up exactly where the snapshot ends
func (d *Directory) Subscribe(filter model.Stage) (model.DirectorySnapshot, *Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sub := &Subscription{
		dir:    d,
		filter: filter,
		ch:     make(chan model.DirectoryDelta, subscriberBuffer),
	}
	d.subs[sub] = struct{}{}
	d.metrics.DirectorySubscribers.Set(float64(len(d.subs)))

	return d.snapshotLocked(filter), sub
}

// Snapshot returns the current advertised-room state for a filter
func (d *Directory) Snapshot(filter model.Stage) model.DirectorySnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked(filter)
}

// SubscriberCount returns the number of live subscriptions
func (d *Directory) SubscriberCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}

// Upsert publishes an instance's current metadata: Added on first sight,
// Updated afterwards. Called synchronously from the mutating operation so
// the directory is never stale relative to real occupancy.
func (d *Directory) Upsert(meta model.RoomMetadata) {
	d.mu.Lock()
	defer d.mu.Unlock()

	kind := model.DeltaUpdated
	if _, ok := d.rooms[meta.RoomID]; !ok {
		kind = model.DeltaAdded
	}
	d.publishLocked(kind, meta)
	d.rooms[meta.RoomID] = meta
}

// Remove publishes the single Removed delta for a closed instance. A room
// the directory has never seen is ignored, so Remove is idempotent.
func (d *Directory) Remove(meta model.RoomMetadata) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.rooms[meta.RoomID]; !ok {
		return
	}
	delete(d.rooms, meta.RoomID)
	meta.State = model.RoomStateClosed
	meta.Occupancy = 0
	d.publishLocked(model.DeltaRemoved, meta)
}

// publishLocked stamps the per-stage sequence and fans the delta out.
// Sends are non-blocking: a subscriber with a full buffer is evicted.
func (d *Directory) publishLocked(kind model.DeltaKind, meta model.RoomMetadata) {
	d.seq[meta.Stage]++
	meta.Seq = d.seq[meta.Stage]

	delta := model.DirectoryDelta{
		Kind:     kind,
		RoomID:   meta.RoomID,
		Metadata: meta,
		Seq:      meta.Seq,
	}

	for sub := range d.subs {
		if sub.filter != "" && sub.filter != meta.Stage {
			continue
		}
		select {
		case sub.ch <- delta:
		default:
			d.logger.Warn("directory subscriber evicted - stream not drained",
				slog.String("stage", string(sub.filter)))
			d.metrics.SubscribersEvicted.Inc()
			d.dropLocked(sub)
		}
	}
}

// dropLocked removes a subscription and closes its channel
func (d *Directory) dropLocked(sub *Subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	delete(d.subs, sub)
	close(sub.ch)
	d.metrics.DirectorySubscribers.Set(float64(len(d.subs)))
}

func (d *Directory) snapshotLocked(filter model.Stage) model.DirectorySnapshot {
	snap := model.DirectorySnapshot{
		Seq: make(map[model.Stage]uint64, len(d.seq)),
	}
	for stage, n := range d.seq {
		snap.Seq[stage] = n
	}
	for _, meta := range d.rooms {
		if filter != "" && filter != meta.Stage {
			continue
		}
		snap.Rooms = append(snap.Rooms, meta)
	}
	sort.Slice(snap.Rooms, func(a, b int) bool {
		return snap.Rooms[a].RoomID < snap.Rooms[b].RoomID
	})
	return snap
}
