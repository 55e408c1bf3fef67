package handler

import (
	"net/http"

	"github.com/mcoot/shadowtag/internal/api/response"
	"github.com/mcoot/shadowtag/internal/services/rooms"
)

// Health handles GET /api/v1/health
func Health(store *rooms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, response.HealthResponse{Status: "ok", Rooms: store.Count()})
	}
}
