package model

import "time"

// PlayerID uniquely identifies a player within a room
type PlayerID string

// Team is a side players can belong to
type Team string

const (
	TeamGreen  Team = "green"
	TeamPurple Team = "purple"
)

// Teams lists the player teams in turn order
var Teams = []Team{TeamGreen, TeamPurple}

// Valid returns true for the two player teams
func (t Team) Valid() bool {
	return t == TeamGreen || t == TeamPurple
}

// Opponent returns the other player team
func (t Team) Opponent() Team {
	if t == TeamGreen {
		return TeamPurple
	}
	return TeamGreen
}

// Role is what a player does during a game
type Role string

const (
	RoleTagger      Role = "tagger"      // Writes descriptions, cannot guess
	RoleCodebreaker Role = "codebreaker" // The one player per team allowed to guess
)

// Valid returns true for known roles
func (r Role) Valid() bool {
	return r == RoleTagger || r == RoleCodebreaker
}

// Player represents a room participant
type Player struct {
	ID          PlayerID  `json:"id"`
	Nickname    string    `json:"nickname"`
	Team        Team      `json:"team"`
	Role        Role      `json:"role"`
	IsRoomAdmin bool      `json:"isRoomAdmin"`
	RoomID      RoomID    `json:"roomId"`
	JoinedAt    time.Time `json:"joinedAt"`
}
