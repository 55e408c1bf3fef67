package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/shadowtag/internal/api/apierr"
	"github.com/mcoot/shadowtag/internal/api/middleware"
	"github.com/mcoot/shadowtag/internal/api/request"
	"github.com/mcoot/shadowtag/internal/api/response"
	"github.com/mcoot/shadowtag/internal/model"
	"github.com/mcoot/shadowtag/internal/protocol"
	"github.com/mcoot/shadowtag/internal/services/rooms"
)

// RoomHandler handles room lifecycle and game action endpoints
type RoomHandler struct {
	store      *rooms.Store
	dispatcher *protocol.Dispatcher
	logger     *slog.Logger
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(store *rooms.Store, dispatcher *protocol.Dispatcher, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("component", "room-handler")),
	}
}

func roomID(r *http.Request) model.RoomID {
	return model.RoomID(mux.Vars(r)["id"])
}

// decode reads a JSON body; an empty body leaves v untouched
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apierr.NewInvalidRequestError("invalid request body")
	}
	return nil
}

// Create handles POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Create(r.Context())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, response.CreateRoomResponse{RoomID: string(sess.ID())})
}

// List handles GET /api/v1/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	resp := response.ListRoomsResponse{Rooms: []response.RoomSummary{}}
	for _, id := range h.store.List() {
		sess, err := h.store.Get(id)
		if err != nil {
			continue // Removed since List
		}
		resp.Rooms = append(resp.Rooms, response.RoomSummaryFromSnapshot(sess.Snapshot()))
	}
	response.JSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/rooms/{id}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.writeSnapshot(w, r, roomID(r), http.StatusOK)
}

func (h *RoomHandler) writeSnapshot(w http.ResponseWriter, r *http.Request, id model.RoomID, status int) {
	sess, err := h.store.Get(id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	viewer := middleware.GetPlayerID(r.Context())
	response.JSON(w, status, sess.Snapshot().ViewFor(viewer))
}

// dispatch runs an action for the acting player and replies with the room
// as they now see it
func (h *RoomHandler) dispatch(w http.ResponseWriter, r *http.Request, action protocol.Action) {
	actor := middleware.GetPlayerID(r.Context())
	if actor == "" {
		apierr.WriteError(w, apierr.NewMissingPlayerError())
		return
	}
	if _, err := h.dispatcher.Dispatch(r.Context(), actor, action); err != nil {
		apierr.WriteError(w, err)
		return
	}
	h.writeSnapshot(w, r, action.Room(), http.StatusOK)
}

// Join handles POST /api/v1/rooms/{id}/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req request.JoinRoomRequest
	if err := decode(r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}

	actor := middleware.GetPlayerID(r.Context())
	player := req.Player(actor)
	if player.ID == "" {
		apierr.WriteError(w, apierr.NewMissingPlayerError())
		return
	}

	reply, err := h.dispatcher.Dispatch(r.Context(), actor, protocol.JoinRoom{RoomID: roomID(r), Player: player})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, reply.Snapshot.ViewFor(reply.PlayerID))
}

// Leave handles POST /api/v1/rooms/{id}/leave
func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetPlayerID(r.Context())
	if actor == "" {
		apierr.WriteError(w, apierr.NewMissingPlayerError())
		return
	}
	if _, err := h.dispatcher.Dispatch(r.Context(), actor, protocol.LeaveRoom{RoomID: roomID(r)}); err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// SwitchTeam handles POST /api/v1/rooms/{id}/team
func (h *RoomHandler) SwitchTeam(w http.ResponseWriter, r *http.Request) {
	var req request.SwitchTeamRequest
	if err := decode(r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}
	h.dispatch(w, r, protocol.SwitchTeam{
		RoomID:   roomID(r),
		PlayerID: model.PlayerID(req.PlayerID),
		NewTeam:  model.Team(req.Team),
	})
}

// SetRole handles POST /api/v1/rooms/{id}/role
func (h *RoomHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req request.SetRoleRequest
	if err := decode(r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}
	h.dispatch(w, r, protocol.SetRole{
		RoomID:   roomID(r),
		PlayerID: model.PlayerID(req.PlayerID),
		Role:     model.Role(req.Role),
	})
}

// Start handles POST /api/v1/rooms/{id}/start
func (h *RoomHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, protocol.StartGame{RoomID: roomID(r)})
}

// ChangePhase handles POST /api/v1/rooms/{id}/phase
func (h *RoomHandler) ChangePhase(w http.ResponseWriter, r *http.Request) {
	var req request.ChangePhaseRequest
	if err := decode(r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}
	h.dispatch(w, r, protocol.PhaseChange{
		RoomID:      roomID(r),
		Phase:       model.Phase(req.Phase),
		SkipToPhase: req.SkipToPhase,
	})
}

// AddDescription handles POST /api/v1/rooms/{id}/descriptions
func (h *RoomHandler) AddDescription(w http.ResponseWriter, r *http.Request) {
	var req request.AddDescriptionRequest
	if err := decode(r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}
	h.dispatch(w, r, protocol.AddDescription{
		RoomID:  roomID(r),
		ImageID: model.ImageID(req.ImageID),
		Text:    req.Text,
	})
}

// RemoveDescription handles DELETE /api/v1/rooms/{id}/descriptions/{image_id}
func (h *RoomHandler) RemoveDescription(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, protocol.RemoveDescription{
		RoomID:  roomID(r),
		ImageID: model.ImageID(mux.Vars(r)["image_id"]),
	})
}

// SubmitGuess handles POST /api/v1/rooms/{id}/guess. It responds once the
// guess has been resolved.
func (h *RoomHandler) SubmitGuess(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitGuessRequest
	if err := decode(r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}

	actor := middleware.GetPlayerID(r.Context())
	if actor == "" {
		apierr.WriteError(w, apierr.NewMissingPlayerError())
		return
	}

	reply, err := h.dispatcher.Dispatch(r.Context(), actor, protocol.SubmitGuess{
		RoomID: roomID(r),
		Word:   req.Word,
		Count:  req.Count,
	})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, reply.Guess)
}

// Reset handles POST /api/v1/rooms/{id}/reset
func (h *RoomHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, protocol.ResetGame{RoomID: roomID(r)})
}
