package model

import "time"

// Identity is the stable external reference to one player (email or
// equivalent), one-to-one with an Account.
type Identity string

// Category is one of the fixed map categories a match can be played on
type Category string

const (
	CategoryIce    Category = "ICE"
	CategoryFire   Category = "FIRE"
	CategoryGround Category = "GROUND"
	CategoryNormal Category = "NORMAL"
	CategoryGrass  Category = "GRASS"
	CategoryWater  Category = "WATER"
)

// Categories returns the full fixed category set
func Categories() []Category {
	return []Category{
		CategoryIce,
		CategoryFire,
		CategoryGround,
		CategoryNormal,
		CategoryGrass,
		CategoryWater,
	}
}

// ProfileMetadata is the persistent player profile stamped onto an account
// at creation and mutated by gameplay systems afterwards
type ProfileMetadata struct {
	Avatar       string              `json:"avatar"`
	Wins         uint                `json:"wins"`
	Exp          uint                `json:"exp"`
	Level        uint                `json:"level"`
	Elo          int                 `json:"elo"`
	Donor        bool                `json:"donor"`
	MapWinCounts map[Category]uint   `json:"map_win_counts"`
	CurrentMap   map[Category]string `json:"current_map"`
}

// DefaultProfileMetadata returns the profile defaults for a new account.
// MapWinCounts and CurrentMap are always populated for the full category set.
func DefaultProfileMetadata() ProfileMetadata {
	winCounts := make(map[Category]uint, len(Categories()))
	currentMap := make(map[Category]string, len(Categories()))
	for _, c := range Categories() {
		winCounts[c] = 0
		currentMap[c] = string(c) + "0"
	}
	return ProfileMetadata{
		Avatar:       "rattata",
		Wins:         0,
		Exp:          0,
		Level:        0,
		Elo:          1000,
		Donor:        false,
		MapWinCounts: winCounts,
		CurrentMap:   currentMap,
	}
}

// Account is the persistent record for one identity
type Account struct {
	Identity  Identity        `json:"identity"`
	Profile   ProfileMetadata `json:"profile"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Credential stores the password hash for a registered identity
type Credential struct {
	Identity     Identity  `json:"identity"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}
