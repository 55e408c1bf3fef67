package model

import "time"

// Snapshot is the public projection of a room sent to clients
type Snapshot struct {
	RoomID        RoomID             `json:"roomId"`
	Phase         Phase              `json:"phase"`
	Players       []Player           `json:"players"`
	Images        []Image            `json:"images"`
	CurrentTurn   Team               `json:"currentTurn"`
	TimeRemaining int                `json:"timeRemaining"`
	Winner        *Team              `json:"winner"`
	GameStats     map[Team]TeamStats `json:"gameStats"`
	Resolving     bool               `json:"resolving"`
	LastGuess     *GuessRecord       `json:"lastGuess,omitempty"`
	Round         int                `json:"round"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// NewSnapshot deep-copies the room so the snapshot can leave the session
func NewSnapshot(r *Room) Snapshot {
	snap := Snapshot{
		RoomID:        r.ID,
		Phase:         r.Phase,
		Players:       append([]Player{}, r.Players...),
		Images:        make([]Image, len(r.Images)),
		CurrentTurn:   r.CurrentTurn,
		TimeRemaining: r.TimeRemaining,
		Resolving:     r.Resolving,
		Round:         r.Round,
		UpdatedAt:     r.UpdatedAt,
		GameStats:     make(map[Team]TeamStats, len(r.Stats)),
	}
	for i, img := range r.Images {
		snap.Images[i] = img.Clone()
	}
	for team, stats := range r.Stats {
		snap.GameStats[team] = stats
	}
	if r.Winner != nil {
		w := *r.Winner
		snap.Winner = &w
	}
	if r.LastGuess != nil {
		g := *r.LastGuess
		g.Matches = append([]ImageID(nil), r.LastGuess.Matches...)
		snap.LastGuess = &g
	}
	return snap
}

// ViewFor narrows the snapshot for one viewer. While descriptions are being
// written, a viewer only sees their own description on each image.
func (s Snapshot) ViewFor(viewer PlayerID) Snapshot {
	if s.Phase != PhaseDescription {
		return s
	}
	out := s
	out.Images = make([]Image, len(s.Images))
	for i, img := range s.Images {
		narrowed := img
		narrowed.Descriptions = nil
		for _, d := range img.Descriptions {
			if viewer != "" && d.PlayerID == viewer {
				narrowed.Descriptions = append(narrowed.Descriptions, d)
			}
		}
		if narrowed.Descriptions == nil {
			narrowed.Descriptions = []Description{}
		}
		out.Images[i] = narrowed
	}
	return out
}
