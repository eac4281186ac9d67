package model

// DeltaKind classifies a directory update
type DeltaKind string

const (
	DeltaAdded   DeltaKind = "added"
	DeltaUpdated DeltaKind = "updated"
	DeltaRemoved DeltaKind = "removed"
)

// DirectoryDelta is one incremental directory update. Updated deltas carry
// the full current metadata, never a partial diff, so a subscriber
// reconstructs state by left-folding deltas onto its snapshot.
type DirectoryDelta struct {
	Kind     DeltaKind    `json:"kind"`
	RoomID   RoomID       `json:"room_id"`
	Metadata RoomMetadata `json:"metadata"`
	Seq      uint64       `json:"seq"`
}

// DirectorySnapshot is the advertised subset of room instances at one point
// in time, with the per-stage sequence numbers current as of the snapshot
type DirectorySnapshot struct {
	Rooms []RoomMetadata   `json:"rooms"`
	Seq   map[Stage]uint64 `json:"seq"`
}
