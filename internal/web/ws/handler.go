// Package ws serves the interactive game connection over WebSocket.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/shadowtag/internal/broadcast"
	"github.com/mcoot/shadowtag/internal/model"
	"github.com/mcoot/shadowtag/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings with this period; must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound message size
	maxMessageSize = 8 * 1024
)

// Handler upgrades requests to WebSocket connections bound to one room
type Handler struct {
	rooms      protocol.Rooms
	hubs       *broadcast.HubManager
	dispatcher *protocol.Dispatcher
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewHandler creates a new Handler
func NewHandler(rooms protocol.Rooms, hubs *broadcast.HubManager, dispatcher *protocol.Dispatcher, logger *slog.Logger) *Handler {
	return &Handler{
		rooms:      rooms,
		hubs:       hubs,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "ws")),
	}
}

// Serve upgrades the request and runs the connection until it closes.
// The room is created if needed; playerID may be empty until the client joins.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, roomID model.RoomID, playerID model.PlayerID) error {
	sess, err := h.rooms.GetOrCreate(r.Context(), roomID)
	if err != nil {
		return err
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return nil
	}

	hub := h.hubs.GetOrCreateHub(roomID)
	client := broadcast.NewClient(playerID)
	if !hub.Register(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "room closed"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return nil
	}

	h.logger.Info("websocket connected",
		slog.String("room_id", string(roomID)),
		slog.String("player_id", string(playerID)),
		slog.String("remote", r.RemoteAddr))

	hub.Refresh(client, sess.Snapshot())

	go h.writePump(conn, client)
	h.readPump(r.Context(), conn, hub, client, roomID)
	return nil
}

// readPump applies inbound actions in order. Replies and errors go only to
// this client; state changes reach everyone through the hub.
func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn, hub *broadcast.Hub, client *broadcast.Client, roomID model.RoomID) {
	defer func() {
		hub.Unregister(client)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error",
					slog.String("room_id", string(roomID)),
					slog.Any("error", err))
			}
			return
		}
		h.handleMessage(ctx, data, hub, client, roomID)
	}
}

func (h *Handler) handleMessage(ctx context.Context, data []byte, hub *broadcast.Hub, client *broadcast.Client, roomID model.RoomID) {
	action, err := protocol.Decode(data)
	if err == nil {
		action, err = protocol.ForRoom(action, roomID)
	}
	if err != nil {
		hub.Send(client, protocol.EncodeError(err))
		return
	}

	reply, err := h.dispatcher.Dispatch(ctx, client.PlayerID(), action)
	if err != nil {
		h.logger.Debug("action rejected",
			slog.String("room_id", string(roomID)),
			slog.String("type", string(action.Type())),
			slog.Any("error", err))
		hub.Send(client, protocol.EncodeError(err))
		return
	}

	if reply.Snapshot != nil {
		client.Bind(reply.PlayerID)
		hub.Refresh(client, *reply.Snapshot)
	}
	if reply.Guess != nil {
		if msg, err := protocol.EncodeGuessResult(reply.Guess); err == nil {
			hub.Send(client, msg)
		}
	}
}

// writePump is the only writer to the connection
func (h *Handler) writePump(conn *websocket.Conn, client *broadcast.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Messages():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "room closed"))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg.Data); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
