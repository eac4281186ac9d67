package response

import (
	"github.com/arenalab/arena-server/internal/model"
	"github.com/arenalab/arena-server/internal/services/auth"
	"github.com/arenalab/arena-server/internal/services/room"
)

// Account represents an account in API responses
type Account struct {
	Identity string                `json:"identity"`
	Profile  model.ProfileMetadata `json:"profile"`
}

// AccountFromModel converts a model.Account to a response Account
func AccountFromModel(a *model.Account) Account {
	return Account{
		Identity: string(a.Identity),
		Profile:  a.Profile,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Account      Account `json:"account"`
	SessionToken string  `json:"session_token"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Account:      AccountFromModel(&s.Account),
		SessionToken: s.Token,
	}
}

// Room is the directory projection of a room instance
type Room struct {
	RoomID       string `json:"room_id"`
	Stage        string `json:"stage"`
	DisplayName  string `json:"display_name"`
	Occupancy    int    `json:"occupancy"`
	MaxOccupancy int    `json:"max_occupancy"`
	State        string `json:"state"`
	Seq          uint64 `json:"seq,omitempty"`
}

// RoomFromMetadata converts model.RoomMetadata
func RoomFromMetadata(m model.RoomMetadata) Room {
	return Room{
		RoomID:       string(m.RoomID),
		Stage:        string(m.Stage),
		DisplayName:  m.DisplayName,
		Occupancy:    m.Occupancy,
		MaxOccupancy: m.MaxOccupancy,
		State:        string(m.State),
		Seq:          m.Seq,
	}
}

// RoomDetail is the in-room view for a participant
type RoomDetail struct {
	Room
	Participants []string          `json:"participants"`
	Context      map[string]string `json:"context"`
}

// RoomDetailFromInstance builds the participant view of an instance
func RoomDetailFromInstance(inst *room.Instance) RoomDetail {
	participants := inst.Participants()
	out := RoomDetail{
		Room:         RoomFromMetadata(inst.Metadata()),
		Participants: make([]string, 0, len(participants)),
		Context:      inst.Carry(),
	}
	for _, p := range participants {
		out.Participants = append(out.Participants, string(p))
	}
	return out
}

// DirectorySnapshot is the full advertised-room listing
type DirectorySnapshot struct {
	Rooms []Room            `json:"rooms"`
	Seq   map[string]uint64 `json:"seq"`
}

// DirectorySnapshotFromModel converts model.DirectorySnapshot
func DirectorySnapshotFromModel(s model.DirectorySnapshot) DirectorySnapshot {
	out := DirectorySnapshot{
		Rooms: make([]Room, 0, len(s.Rooms)),
		Seq:   make(map[string]uint64, len(s.Seq)),
	}
	for _, m := range s.Rooms {
		out.Rooms = append(out.Rooms, RoomFromMetadata(m))
	}
	for stage, n := range s.Seq {
		out.Seq[string(stage)] = n
	}
	return out
}

// DirectoryDelta is one incremental directory update
type DirectoryDelta struct {
	Kind   string `json:"kind"`
	RoomID string `json:"room_id"`
	Room   Room   `json:"room"`
	Seq    uint64 `json:"seq"`
}

// DirectoryDeltaFromModel converts model.DirectoryDelta
func DirectoryDeltaFromModel(d model.DirectoryDelta) DirectoryDelta {
	return DirectoryDelta{
		Kind:   string(d.Kind),
		RoomID: string(d.RoomID),
		Room:   RoomFromMetadata(d.Metadata),
		Seq:    d.Seq,
	}
}
