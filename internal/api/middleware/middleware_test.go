package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/shadowtag/internal/api/apierr"
	"github.com/mcoot/shadowtag/internal/model"
	"github.com/mcoot/shadowtag/internal/testutil"
)

func TestPlayer(t *testing.T) {
	tests := []struct {
		name   string
		header string
		query  string
		want   model.PlayerID
	}{
		{"header", "alice", "", "alice"},
		{"query fallback", "", "bob", "bob"},
		{"header wins", "alice", "bob", "alice"},
		{"trimmed", "  carol ", "", "carol"},
		{"anonymous", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got model.PlayerID
			handler := Player()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = GetPlayerID(r.Context())
			}))

			target := "/"
			if tt.query != "" {
				target += "?playerId=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set(PlayerHeader, tt.header)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(testutil.NopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/rooms/ABC/guess", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apierr.CodeInternalError, body.Error.Code)
}
