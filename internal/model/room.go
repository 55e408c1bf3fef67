package model

import "time"

// RoomID identifies a room; it is also the join code players share
type RoomID string

// Phase is the current stage of a room's game
type Phase string

const (
	PhaseLobby       Phase = "lobby"
	PhaseDescription Phase = "descriptionPhase"
	PhaseGuessing    Phase = "guessingPhase"
	PhaseGameOver    Phase = "gameOver"
)

// Next returns the phase that follows p, and false for the terminal phase
func (p Phase) Next() (Phase, bool) {
	switch p {
	case PhaseLobby:
		return PhaseDescription, true
	case PhaseDescription:
		return PhaseGuessing, true
	case PhaseGuessing:
		return PhaseGameOver, true
	default:
		return "", false
	}
}

// Timed returns true for phases that run a countdown
func (p Phase) Timed() bool {
	return p == PhaseDescription || p == PhaseGuessing
}

// Valid returns true for known phases
func (p Phase) Valid() bool {
	switch p {
	case PhaseLobby, PhaseDescription, PhaseGuessing, PhaseGameOver:
		return true
	}
	return false
}

// TeamStats summarises one team's performance
type TeamStats struct {
	Matches           int     `json:"matches"`           // Images of this colour that are matched
	AverageSimilarity float64 `json:"avgSimilarity"`     // Mean similarity over those images
	CorrectGuesses    int     `json:"correctGuesses"`    // Own-colour images this team matched
	IncorrectGuesses  int     `json:"incorrectGuesses"`  // Other-colour images this team matched
	TotalSimilarity   float64 `json:"totalSimilarity"`   // Summed similarity of correct guesses
}

// GuessRecord describes the most recently resolved guess
type GuessRecord struct {
	Team         Team      `json:"team"`
	PlayerID     PlayerID  `json:"playerId"`
	Word         string    `json:"word"`
	Count        int       `json:"count"`
	Matches      []ImageID `json:"matches"`
	HitWrongTeam bool      `json:"hitWrongTeam"`
	Degraded     int       `json:"degraded"` // Similarity lookups that failed and scored 0
}

// Room is the authoritative state of one game session
type Room struct {
	ID            RoomID
	Phase         Phase
	Players       []Player
	Images        []Image
	CurrentTurn   Team
	TimeRemaining int
	Winner        *Team
	Stats         map[Team]TeamStats
	Resolving     bool // A guess is being scored
	LastGuess     *GuessRecord
	Round         int // Incremented on every reset
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// GetPlayer returns the player with the given ID, or nil if not found
func (r *Room) GetPlayer(id PlayerID) *Player {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return &r.Players[i]
		}
	}
	return nil
}

// GetAdmin returns the room admin, or nil if none
func (r *Room) GetAdmin() *Player {
	for i := range r.Players {
		if r.Players[i].IsRoomAdmin {
			return &r.Players[i]
		}
	}
	return nil
}

// GetCodebreaker returns the codebreaker of a team, or nil if none
func (r *Room) GetCodebreaker(team Team) *Player {
	for i := range r.Players {
		if r.Players[i].Team == team && r.Players[i].Role == RoleCodebreaker {
			return &r.Players[i]
		}
	}
	return nil
}

// GetImage returns the image with the given ID, or nil if not found
func (r *Room) GetImage(id ImageID) *Image {
	for i := range r.Images {
		if r.Images[i].ID == id {
			return &r.Images[i]
		}
	}
	return nil
}

// UnmatchedImages returns copies of all images not yet matched, in board order
func (r *Room) UnmatchedImages() []Image {
	var out []Image
	for _, img := range r.Images {
		if !img.Matched {
			out = append(out, img.Clone())
		}
	}
	return out
}

// TargetsExhausted returns true once every non-hazard image is matched
func (r *Room) TargetsExhausted() bool {
	for _, img := range r.Images {
		if img.Team != ImageTeamRed && !img.Matched {
			return false
		}
	}
	return true
}
