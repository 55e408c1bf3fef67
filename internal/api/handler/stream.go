package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/skip2/go-qrcode"

	"github.com/mcoot/shadowtag/internal/api/apierr"
	"github.com/mcoot/shadowtag/internal/api/middleware"
	"github.com/mcoot/shadowtag/internal/api/response"
	"github.com/mcoot/shadowtag/internal/broadcast"
	"github.com/mcoot/shadowtag/internal/services/rooms"
	"github.com/mcoot/shadowtag/internal/web/sse"
	"github.com/mcoot/shadowtag/internal/web/ws"
)

// Size of the invite QR code in pixels
const qrSize = 320

// StreamHandler serves the live room connections and the invite code
type StreamHandler struct {
	store     *rooms.Store
	hubs      *broadcast.HubManager
	ws        *ws.Handler
	publicURL string
	logger    *slog.Logger
}

// NewStreamHandler creates a new stream handler. publicURL is the base the
// invite QR points at; when empty it is derived from the request.
func NewStreamHandler(store *rooms.Store, hubs *broadcast.HubManager, wsHandler *ws.Handler, publicURL string, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		store:     store,
		hubs:      hubs,
		ws:        wsHandler,
		publicURL: publicURL,
		logger:    logger.With(slog.String("component", "stream-handler")),
	}
}

// Socket handles GET /api/v1/rooms/{id}/ws
func (h *StreamHandler) Socket(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.Serve(w, r, roomID(r), middleware.GetPlayerID(r.Context())); err != nil {
		apierr.WriteError(w, err)
	}
}

// Events handles GET /api/v1/rooms/{id}/events
func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	id := roomID(r)
	sess, err := h.store.Get(id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	sse.Serve(w, r, h.hubs.GetOrCreateHub(id), sess.Snapshot(), middleware.GetPlayerID(r.Context()))
}

// QR handles GET /api/v1/rooms/{id}/qr.png, a PNG QR code of the room's invite link
func (h *StreamHandler) QR(w http.ResponseWriter, r *http.Request) {
	id := roomID(r)
	if _, err := h.store.Get(id); err != nil {
		apierr.WriteError(w, err)
		return
	}

	png, err := qrcode.Encode(h.inviteURL(r, string(id)), qrcode.Medium, qrSize)
	if err != nil {
		h.logger.Error("qr generation failed", slog.Any("error", err))
		apierr.WriteError(w, apierr.NewInternalError())
		return
	}

	response.PNG(w, png)
}

// inviteURL derives the link players open to join a room
func (h *StreamHandler) inviteURL(r *http.Request, id string) string {
	base := h.publicURL
	if base == "" {
		// Respect TLS and X-Forwarded-Proto if present
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/rooms/" + url.PathEscape(id)
}
