package response

import "github.com/mcoot/shadowtag/internal/model"

// CreateRoomResponse is returned by POST /rooms
type CreateRoomResponse struct {
	RoomID string `json:"roomId"`
}

// RoomSummary is one entry of GET /rooms
type RoomSummary struct {
	RoomID  string `json:"roomId"`
	Phase   string `json:"phase"`
	Players int    `json:"players"`
	Round   int    `json:"round"`
}

// RoomSummaryFromSnapshot converts a snapshot to a RoomSummary
func RoomSummaryFromSnapshot(s model.Snapshot) RoomSummary {
	return RoomSummary{
		RoomID:  string(s.RoomID),
		Phase:   string(s.Phase),
		Players: len(s.Players),
		Round:   s.Round,
	}
}

// ListRoomsResponse is returned by GET /rooms
type ListRoomsResponse struct {
	Rooms []RoomSummary `json:"rooms"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
}
