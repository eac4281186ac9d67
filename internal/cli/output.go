package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Account:
		o.printAccount(v)
	case AuthResult:
		o.printAuthResult(v)
	case RoomDetail:
		o.printRoomDetail(v)
	case DirectorySnapshot:
		o.printDirectorySnapshot(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Profile response type (matches API)
type Profile struct {
	Avatar       string            `json:"avatar"`
	Wins         uint              `json:"wins"`
	Exp          uint              `json:"exp"`
	Level        uint              `json:"level"`
	Elo          int               `json:"elo"`
	Donor        bool              `json:"donor"`
	MapWinCounts map[string]uint   `json:"map_win_counts"`
	CurrentMap   map[string]string `json:"current_map"`
}

// Account response type
type Account struct {
	Identity string  `json:"identity"`
	Profile  Profile `json:"profile"`
}

// AuthResult combines account and token
type AuthResult struct {
	Account      Account `json:"account"`
	SessionToken string  `json:"session_token"`
}

// Room response type
type Room struct {
	RoomID       string `json:"room_id"`
	Stage        string `json:"stage"`
	DisplayName  string `json:"display_name"`
	Occupancy    int    `json:"occupancy"`
	MaxOccupancy int    `json:"max_occupancy"`
	State        string `json:"state"`
	Seq          uint64 `json:"seq,omitempty"`
}

// RoomDetail response type
type RoomDetail struct {
	Room
	Participants []string          `json:"participants"`
	Context      map[string]string `json:"context"`
}

// DirectorySnapshot response type
type DirectorySnapshot struct {
	Rooms []Room            `json:"rooms"`
	Seq   map[string]uint64 `json:"seq"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printAccount(a Account) {
	fmt.Printf("Identity: %s\n", a.Identity)
	fmt.Printf("Avatar: %s\n", a.Profile.Avatar)
	fmt.Printf("Level: %d (exp %d)\n", a.Profile.Level, a.Profile.Exp)
	fmt.Printf("Elo: %d\n", a.Profile.Elo)
	fmt.Printf("Wins: %d\n", a.Profile.Wins)
	if len(a.Profile.MapWinCounts) > 0 {
		categories := make([]string, 0, len(a.Profile.MapWinCounts))
		for c := range a.Profile.MapWinCounts {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		parts := make([]string, 0, len(categories))
		for _, c := range categories {
			parts = append(parts, fmt.Sprintf("%s=%d", c, a.Profile.MapWinCounts[c]))
		}
		fmt.Printf("Map wins: %s\n", strings.Join(parts, " "))
	}
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printAccount(a.Account)
	fmt.Printf("Token: %s\n", a.SessionToken)
}

func (o *Output) printRoom(r Room) {
	fmt.Printf("Room: %s (%s)\n", r.DisplayName, r.RoomID)
	fmt.Printf("Stage: %s\n", r.Stage)
	fmt.Printf("State: %s\n", r.State)
	fmt.Printf("Occupancy: %d/%d\n", r.Occupancy, r.MaxOccupancy)
}

func (o *Output) printRoomDetail(r RoomDetail) {
	o.printRoom(r.Room)
	if len(r.Participants) > 0 {
		fmt.Printf("Participants (%d):\n", len(r.Participants))
		for _, p := range r.Participants {
			fmt.Printf("  - %s\n", p)
		}
	}
	if len(r.Context) > 0 {
		fmt.Println("Context:")
		keys := make([]string, 0, len(r.Context))
		for k := range r.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s: %s\n", k, r.Context[k])
		}
	}
}

func (o *Output) printDirectorySnapshot(s DirectorySnapshot) {
	fmt.Printf("Rooms (%d):\n", len(s.Rooms))
	for _, r := range s.Rooms {
		fmt.Printf("  - %s [%s] %s %d/%d\n", r.DisplayName, r.Stage, r.State, r.Occupancy, r.MaxOccupancy)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
