package request

import "github.com/mcoot/shadowtag/internal/model"

// JoinRoomRequest is the body for POST /rooms/{id}/join.
// PlayerID defaults to the X-Player-ID header.
type JoinRoomRequest struct {
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
	Team     string `json:"team"`
	Role     string `json:"role"`
}

// Player converts the request to the player joining
func (r JoinRoomRequest) Player(fallback model.PlayerID) model.Player {
	id := model.PlayerID(r.PlayerID)
	if id == "" {
		id = fallback
	}
	return model.Player{
		ID:       id,
		Nickname: r.Nickname,
		Team:     model.Team(r.Team),
		Role:     model.Role(r.Role),
	}
}

// SwitchTeamRequest is the body for POST /rooms/{id}/team.
// PlayerID defaults to the acting player.
type SwitchTeamRequest struct {
	PlayerID string `json:"playerId"`
	Team     string `json:"team"`
}

// SetRoleRequest is the body for POST /rooms/{id}/role
type SetRoleRequest struct {
	PlayerID string `json:"playerId"`
	Role     string `json:"role"`
}

// ChangePhaseRequest is the body for POST /rooms/{id}/phase
type ChangePhaseRequest struct {
	Phase       string `json:"phase"`
	SkipToPhase bool   `json:"skipToPhase"`
}

// AddDescriptionRequest is the body for POST /rooms/{id}/descriptions
type AddDescriptionRequest struct {
	ImageID string `json:"imageId"`
	Text    string `json:"text"`
}

// SubmitGuessRequest is the body for POST /rooms/{id}/guess
type SubmitGuessRequest struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}
