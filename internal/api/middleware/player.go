package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/shadowtag/internal/model"
)

type contextKey string

const playerContextKey contextKey = "player_id"

// PlayerHeader names the acting player on HTTP requests
const PlayerHeader = "X-Player-ID"

// Player extracts the acting player's ID from the X-Player-ID header, or the
// playerId query parameter for browser transports that cannot set headers.
// Identity is informal: nothing is verified.
func Player() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(PlayerHeader))
			if id == "" {
				id = strings.TrimSpace(r.URL.Query().Get("playerId"))
			}
			if id != "" {
				r = r.WithContext(WithPlayerID(r.Context(), model.PlayerID(id)))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithPlayerID returns a context carrying the acting player
func WithPlayerID(ctx context.Context, id model.PlayerID) context.Context {
	return context.WithValue(ctx, playerContextKey, id)
}

// GetPlayerID returns the acting player, or "" for anonymous requests
func GetPlayerID(ctx context.Context) model.PlayerID {
	id, _ := ctx.Value(playerContextKey).(model.PlayerID)
	return id
}
