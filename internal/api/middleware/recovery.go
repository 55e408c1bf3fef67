package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gorilla/mux"

	"github.com/mcoot/shadowtag/internal/api/apierr"
	basemiddleware "github.com/mcoot/shadowtag/internal/middleware"
)

// Recovery turns a panic in a handler into a 500 JSON error. Streaming
// handlers may already have written headers; the connection is then just
// dropped after logging.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					slog.Any("error", rec),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("room_id", mux.Vars(r)["id"]),
					slog.String("player_id", r.Header.Get(PlayerHeader)),
					slog.String("request_id", basemiddleware.GetRequestID(r.Context())),
				)
				apierr.WriteError(w, apierr.NewInternalError())
			}()

			next.ServeHTTP(w, r)
		})
	}
}
