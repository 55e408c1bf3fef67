// Package sse streams read-only room updates as server-sent events.
package sse

import (
	"net/http"
	"time"

	"github.com/mcoot/shadowtag/internal/broadcast"
	"github.com/mcoot/shadowtag/internal/model"
)

// Time between keepalive comments
const pingPeriod = 30 * time.Second

// Serve streams a room's updates to the request until either side goes away.
// Each event carries the snapshot as seen by playerID.
func Serve(w http.ResponseWriter, r *http.Request, hub *broadcast.Hub, current model.Snapshot, playerID model.PlayerID) {
	// Check if SSE is supported
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	client := broadcast.NewClient(playerID)
	if !hub.Register(client) {
		http.Error(w, "Room closed", http.StatusGone)
		return
	}
	defer hub.Unregister(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	_, _ = w.Write(formatSSEMessage("connected", `{"status":"connected"}`))
	flusher.Flush()

	hub.Refresh(client, current)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.Messages():
			if !ok {
				// Hub closed the channel
				return
			}
			if _, err := w.Write(formatSSEMessage(string(msg.Type), string(msg.Payload()))); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			// Client disconnected
			return
		}
	}
}
