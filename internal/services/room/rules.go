package room

import "github.com/arenalab/arena-server/internal/model"

// Snapshot is a point-in-time view of an instance handed to readiness
// predicates. Predicates must not retain it.
type Snapshot struct {
	State        model.RoomState
	Participants []model.Identity
	Ready        map[model.Identity]bool
	MaxOccupancy int
}

// ReadyFunc decides when an instance moves from Open/Full to InProgress.
// It is evaluated after every join and ready-up. A nil ReadyFunc never
// fires; such instances advance only through external signals.
type ReadyFunc func(Snapshot) bool

// Rules are the per-type knobs a concrete room type supplies to the shared
// lifecycle skeleton
type Rules struct {
	MaxOccupancy int
	ReadyWhen    ReadyFunc
}

// FixedSize fires once exactly n participants are present. Lobby groups
// form this way.
func FixedSize(n int) ReadyFunc {
	return func(s Snapshot) bool {
		return len(s.Participants) == n
	}
}

// AllReady fires once at least min participants are present and every one
// of them has readied up. Preparation rooms use this.
func AllReady(min int) ReadyFunc {
	return func(s Snapshot) bool {
		if len(s.Participants) < min {
			return false
		}
		for _, p := range s.Participants {
			if !s.Ready[p] {
				return false
			}
		}
		return true
	}
}

// MinOccupancy fires as soon as n participants are present. Game rooms use
// this so the match starts the moment the group lands.
func MinOccupancy(n int) ReadyFunc {
	return func(s Snapshot) bool {
		return len(s.Participants) >= n
	}
}
