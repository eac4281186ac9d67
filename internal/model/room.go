package model

// RoomID uniquely identifies one room instance. Instance ids are never
// reused; a Closed instance stays closed.
type RoomID string

// Stage is a pipeline stage of a match's lifecycle. The pipeline is a fixed
// linear sequence: lobby -> preparation -> game -> after-game.
type Stage string

const (
	StageLobby       Stage = "lobby"
	StagePreparation Stage = "preparation"
	StageGame        Stage = "game"
	StageAfterGame   Stage = "after-game"
)

// Stages returns the pipeline stages in order
func Stages() []Stage {
	return []Stage{StageLobby, StagePreparation, StageGame, StageAfterGame}
}

// Next returns the successor stage, or false for the final stage
func (s Stage) Next() (Stage, bool) {
	switch s {
	case StageLobby:
		return StagePreparation, true
	case StagePreparation:
		return StageGame, true
	case StageGame:
		return StageAfterGame, true
	default:
		return "", false
	}
}

// Valid reports whether s is a known pipeline stage
func (s Stage) Valid() bool {
	switch s {
	case StageLobby, StagePreparation, StageGame, StageAfterGame:
		return true
	}
	return false
}

// RoomState represents the lifecycle state of a room instance
type RoomState string

const (
	RoomStateOpen       RoomState = "open"        // Accepting joins
	RoomStateFull       RoomState = "full"        // At max occupancy
	RoomStateInProgress RoomState = "in_progress" // Readiness condition fired
	RoomStateClosing    RoomState = "closing"     // Participants migrating out
	RoomStateClosed     RoomState = "closed"      // Terminal, removed from directory
)

// Closed reports whether the state is terminal or terminal-bound
func (s RoomState) Closed() bool {
	return s == RoomStateClosing || s == RoomStateClosed
}

// RoomMetadata is the directory's read-projection of a room instance.
// Seq is stamped by the directory when a delta is published.
type RoomMetadata struct {
	RoomID       RoomID    `json:"room_id"`
	Stage        Stage     `json:"stage"`
	DisplayName  string    `json:"display_name"`
	Occupancy    int       `json:"occupancy"`
	MaxOccupancy int       `json:"max_occupancy"`
	State        RoomState `json:"state"`
	Seq          uint64    `json:"seq"`
}
