package model

import (
	"errors"
	"fmt"
)

// Error categories. Specific errors wrap one of these so callers can match
// either the category or the precise cause with errors.Is.
var (
	ErrInvalidPhaseAction = errors.New("action not allowed in current phase")
	ErrUnauthorizedAction = errors.New("player not allowed to perform this action")
	ErrRoomNotFound       = errors.New("room not found")
	ErrInvalidRequest     = errors.New("invalid request")
)

var (
	// Phase errors
	ErrTimerAuthority  = fmt.Errorf("%w: phase timing is controlled by the server", ErrInvalidPhaseAction)
	ErrInvalidSkip     = fmt.Errorf("%w: can only skip to the next phase", ErrInvalidPhaseAction)
	ErrGuessInProgress = fmt.Errorf("%w: a guess is already being resolved", ErrInvalidPhaseAction)
	ErrGuessDiscarded  = fmt.Errorf("%w: phase or turn changed while the guess was resolving", ErrInvalidPhaseAction)
	ErrJoinInProgress  = fmt.Errorf("%w: new players can only join in the lobby", ErrInvalidPhaseAction)

	// Authorization errors
	ErrNotAdmin        = fmt.Errorf("%w: player is not the room admin", ErrUnauthorizedAction)
	ErrNotYourTurn     = fmt.Errorf("%w: it is not this team's turn", ErrUnauthorizedAction)
	ErrNotCodebreaker  = fmt.Errorf("%w: only the codebreaker may guess", ErrUnauthorizedAction)
	ErrPlayerNotInRoom = fmt.Errorf("%w: player is not in the room", ErrUnauthorizedAction)
	ErrNotSelfOrAdmin  = fmt.Errorf("%w: only the player or the admin may do this", ErrUnauthorizedAction)
	ErrActorMismatch   = fmt.Errorf("%w: playerId does not match the connected player", ErrUnauthorizedAction)
	ErrNotJoined       = fmt.Errorf("%w: join the room first", ErrUnauthorizedAction)

	// Validation errors
	ErrInvalidRoomID       = fmt.Errorf("%w: room id must be 1-32 letters, digits, '-' or '_'", ErrInvalidRequest)
	ErrInvalidPlayer       = fmt.Errorf("%w: player id and nickname are required", ErrInvalidRequest)
	ErrInvalidTeam         = fmt.Errorf("%w: unknown team", ErrInvalidRequest)
	ErrInvalidRole         = fmt.Errorf("%w: unknown role", ErrInvalidRequest)
	ErrInvalidPhase        = fmt.Errorf("%w: unknown phase", ErrInvalidRequest)
	ErrInvalidGuessCount   = fmt.Errorf("%w: guess count out of range", ErrInvalidRequest)
	ErrInvalidWord         = fmt.Errorf("%w: guess must be a single non-empty word", ErrInvalidRequest)
	ErrInvalidDescription  = fmt.Errorf("%w: description must be non-empty and within the length limit", ErrInvalidRequest)
	ErrImageNotFound       = fmt.Errorf("%w: image not found", ErrInvalidRequest)
	ErrDescriptionNotFound = fmt.Errorf("%w: no description to remove", ErrInvalidRequest)
	ErrUnknownAction       = fmt.Errorf("%w: unknown action type", ErrInvalidRequest)
	ErrMalformedAction     = fmt.Errorf("%w: malformed action", ErrInvalidRequest)
	ErrRoomMismatch        = fmt.Errorf("%w: roomId does not match the connection", ErrInvalidRequest)

	// Lifecycle errors
	ErrSessionClosed = errors.New("room session is closed")

	// Storage errors
	ErrSimilarityNotCached = errors.New("similarity not cached")
	ErrCatalogNotLoaded    = errors.New("image catalog not loaded")
)

// ErrorCode returns a stable machine-readable code for an error
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRoomNotFound):
		return "ROOM_NOT_FOUND"
	case errors.Is(err, ErrInvalidPhaseAction):
		return "INVALID_PHASE_ACTION"
	case errors.Is(err, ErrUnauthorizedAction):
		return "UNAUTHORIZED_ACTION"
	case errors.Is(err, ErrInvalidRequest):
		return "INVALID_REQUEST"
	case errors.Is(err, ErrSessionClosed):
		return "SESSION_CLOSED"
	default:
		return "INTERNAL_ERROR"
	}
}
