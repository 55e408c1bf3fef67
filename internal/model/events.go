package model

import "time"

// EventType identifies an outbound message
type EventType string

const (
	EventRoomUpdated EventType = "room-updated"
	EventGuessResult EventType = "guess-result"
	EventError       EventType = "error"
	EventRoomClosed  EventType = "room-closed"
)

// Event is published by a room session after an accepted mutation
type Event struct {
	Type      EventType
	Timestamp time.Time
	RoomID    RoomID
	PlayerID  PlayerID // The player who triggered it, empty for timer events
	Reason    string   // Short action name for logging, e.g. "submit-guess"
	Snapshot  Snapshot
}

// GuessResult is reported back to the codebreaker who made a guess
type GuessResult struct {
	Word         string    `json:"word"`
	Count        int       `json:"count"`
	Matches      []ImageID `json:"matches"`
	Scores       []float64 `json:"scores"`
	HitWrongTeam bool      `json:"hitWrongTeam"`
	Degraded     int       `json:"degraded"`
	GameOver     bool      `json:"gameOver"`
}

// ErrorPayload is sent only to the client whose action failed
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
