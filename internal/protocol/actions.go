// Package protocol defines the JSON messages exchanged with game clients.
//
// Every message is an envelope {"type": ..., "payload": {...}}. Inbound
// action types mirror the client's socket events; outbound messages carry
// room snapshots, guess results and errors.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/mcoot/shadowtag/internal/model"
)

// ActionType identifies an inbound client action
type ActionType string

const (
	ActionJoinRoom          ActionType = "join-room"
	ActionLeaveRoom         ActionType = "leave-room"
	ActionSwitchTeam        ActionType = "switch-team"
	ActionSetRole           ActionType = "set-role"
	ActionStartGame         ActionType = "start-game"
	ActionPhaseChange       ActionType = "phase-change"
	ActionAddDescription    ActionType = "add-description"
	ActionRemoveDescription ActionType = "remove-description"
	ActionSubmitGuess       ActionType = "submit-guess"
	ActionResetGame         ActionType = "reset-game"
)

// Envelope is the wire wrapper for every message
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Action is a decoded inbound action
type Action interface {
	Type() ActionType
	Room() model.RoomID
}

type JoinRoom struct {
	RoomID model.RoomID `json:"roomId"`
	Player model.Player `json:"player"`
}

type LeaveRoom struct {
	RoomID   model.RoomID   `json:"roomId"`
	PlayerID model.PlayerID `json:"playerId,omitempty"`
}

type SwitchTeam struct {
	RoomID   model.RoomID   `json:"roomId"`
	PlayerID model.PlayerID `json:"playerId"`
	NewTeam  model.Team     `json:"newTeam"`
}

type SetRole struct {
	RoomID   model.RoomID   `json:"roomId"`
	PlayerID model.PlayerID `json:"playerId"`
	Role     model.Role     `json:"role"`
}

type StartGame struct {
	RoomID model.RoomID `json:"roomId"`
}

type PhaseChange struct {
	RoomID      model.RoomID `json:"roomId"`
	Phase       model.Phase  `json:"phase"`
	SkipToPhase bool         `json:"skipToPhase"`
}

type AddDescription struct {
	RoomID         model.RoomID   `json:"roomId"`
	ImageID        model.ImageID  `json:"imageId"`
	Text           string         `json:"text"`
	PlayerID       model.PlayerID `json:"playerId,omitempty"`
	PlayerNickname string         `json:"playerNickname,omitempty"` // Ignored; the roster nickname is used
}

type RemoveDescription struct {
	RoomID   model.RoomID   `json:"roomId"`
	ImageID  model.ImageID  `json:"imageId"`
	PlayerID model.PlayerID `json:"playerId,omitempty"`
}

type SubmitGuess struct {
	RoomID   model.RoomID   `json:"roomId"`
	PlayerID model.PlayerID `json:"playerId,omitempty"`
	Word     string         `json:"word"`
	Count    int            `json:"count"`
}

type ResetGame struct {
	RoomID model.RoomID `json:"roomId"`
}

func (JoinRoom) Type() ActionType          { return ActionJoinRoom }
func (LeaveRoom) Type() ActionType         { return ActionLeaveRoom }
func (SwitchTeam) Type() ActionType        { return ActionSwitchTeam }
func (SetRole) Type() ActionType           { return ActionSetRole }
func (StartGame) Type() ActionType         { return ActionStartGame }
func (PhaseChange) Type() ActionType       { return ActionPhaseChange }
func (AddDescription) Type() ActionType    { return ActionAddDescription }
func (RemoveDescription) Type() ActionType { return ActionRemoveDescription }
func (SubmitGuess) Type() ActionType       { return ActionSubmitGuess }
func (ResetGame) Type() ActionType         { return ActionResetGame }

func (a JoinRoom) Room() model.RoomID          { return a.RoomID }
func (a LeaveRoom) Room() model.RoomID         { return a.RoomID }
func (a SwitchTeam) Room() model.RoomID        { return a.RoomID }
func (a SetRole) Room() model.RoomID           { return a.RoomID }
func (a StartGame) Room() model.RoomID         { return a.RoomID }
func (a PhaseChange) Room() model.RoomID       { return a.RoomID }
func (a AddDescription) Room() model.RoomID    { return a.RoomID }
func (a RemoveDescription) Room() model.RoomID { return a.RoomID }
func (a SubmitGuess) Room() model.RoomID       { return a.RoomID }
func (a ResetGame) Room() model.RoomID         { return a.RoomID }

// Decode parses an inbound envelope into its action
func Decode(data []byte) (Action, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedAction, err)
	}
	return DecodePayload(ActionType(env.Type), env.Payload)
}

// DecodePayload parses the payload of a known action type
func DecodePayload(actionType ActionType, payload json.RawMessage) (Action, error) {
	var action Action
	var err error
	switch actionType {
	case ActionJoinRoom:
		action, err = decodeInto[JoinRoom](payload)
	case ActionLeaveRoom:
		action, err = decodeInto[LeaveRoom](payload)
	case ActionSwitchTeam:
		action, err = decodeInto[SwitchTeam](payload)
	case ActionSetRole:
		action, err = decodeInto[SetRole](payload)
	case ActionStartGame:
		action, err = decodeInto[StartGame](payload)
	case ActionPhaseChange:
		action, err = decodeInto[PhaseChange](payload)
	case ActionAddDescription:
		action, err = decodeInto[AddDescription](payload)
	case ActionRemoveDescription:
		action, err = decodeInto[RemoveDescription](payload)
	case ActionSubmitGuess:
		action, err = decodeInto[SubmitGuess](payload)
	case ActionResetGame:
		action, err = decodeInto[ResetGame](payload)
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownAction, actionType)
	}
	if err != nil {
		return nil, err
	}
	return action, nil
}

func decodeInto[T Action](payload json.RawMessage) (T, error) {
	var v T
	if len(payload) == 0 {
		return v, fmt.Errorf("%w: missing payload", model.ErrMalformedAction)
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("%w: %v", model.ErrMalformedAction, err)
	}
	return v, nil
}

// Encode wraps an action in an envelope
func Encode(action Action) ([]byte, error) {
	payload, err := json.Marshal(action)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: string(action.Type()), Payload: payload})
}

// ForRoom fills in the room of an action sent over a connection that is
// already scoped to one. An action naming a different room is rejected.
func ForRoom(action Action, roomID model.RoomID) (Action, error) {
	if action.Room() != "" {
		if action.Room() != roomID {
			return nil, model.ErrRoomMismatch
		}
		return action, nil
	}
	switch a := action.(type) {
	case JoinRoom:
		a.RoomID = roomID
		return a, nil
	case LeaveRoom:
		a.RoomID = roomID
		return a, nil
	case SwitchTeam:
		a.RoomID = roomID
		return a, nil
	case SetRole:
		a.RoomID = roomID
		return a, nil
	case StartGame:
		a.RoomID = roomID
		return a, nil
	case PhaseChange:
		a.RoomID = roomID
		return a, nil
	case AddDescription:
		a.RoomID = roomID
		return a, nil
	case RemoveDescription:
		a.RoomID = roomID
		return a, nil
	case SubmitGuess:
		a.RoomID = roomID
		return a, nil
	case ResetGame:
		a.RoomID = roomID
		return a, nil
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownAction, action.Type())
	}
}
