package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/shadowtag/internal/api/handler"
	apimiddleware "github.com/mcoot/shadowtag/internal/api/middleware"
	"github.com/mcoot/shadowtag/internal/broadcast"
	"github.com/mcoot/shadowtag/internal/middleware"
	"github.com/mcoot/shadowtag/internal/protocol"
	"github.com/mcoot/shadowtag/internal/services/rooms"
	"github.com/mcoot/shadowtag/internal/web/ws"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	RoomStore      *rooms.Store
	HubManager     *broadcast.HubManager
	Dispatcher     *protocol.Dispatcher
	PublicURL      string
	AllowedOrigins []string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	roomHandler := handler.NewRoomHandler(cfg.RoomStore, cfg.Dispatcher, cfg.Logger)
	wsHandler := ws.NewHandler(cfg.RoomStore, cfg.HubManager, cfg.Dispatcher, cfg.Logger)
	streamHandler := handler.NewStreamHandler(cfg.RoomStore, cfg.HubManager, wsHandler, cfg.PublicURL, cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(apimiddleware.Recovery(cfg.Logger))
	api.Use(middleware.RequestID())
	api.Use(middleware.Logging(cfg.Logger))
	api.Use(apimiddleware.Player())

	// Room lifecycle
	api.HandleFunc("/rooms", roomHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/rooms", roomHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}", roomHandler.Get).Methods(http.MethodGet)

	// Game actions, acting as the X-Player-ID player
	api.HandleFunc("/rooms/{id}/join", roomHandler.Join).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/leave", roomHandler.Leave).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/team", roomHandler.SwitchTeam).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/role", roomHandler.SetRole).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/start", roomHandler.Start).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/phase", roomHandler.ChangePhase).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/descriptions", roomHandler.AddDescription).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/descriptions/{image_id}", roomHandler.RemoveDescription).Methods(http.MethodDelete)
	api.HandleFunc("/rooms/{id}/guess", roomHandler.SubmitGuess).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/reset", roomHandler.Reset).Methods(http.MethodPost)

	// Live updates and invites
	api.HandleFunc("/rooms/{id}/ws", streamHandler.Socket).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}/events", streamHandler.Events).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}/qr.png", streamHandler.QR).Methods(http.MethodGet)

	// Health check endpoint
	api.HandleFunc("/health", handler.Health(cfg.RoomStore)).Methods(http.MethodGet)

	return middleware.CORS(cfg.AllowedOrigins)(r)
}
