package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/meeplelog/meeplelog/internal/api/response"
)

type contextKey string

const (
	// PlayerIDKey holds the acting player's id for the request.
	PlayerIDKey contextKey = "playerID"
)

// PlayerHeader is the header clients use to identify the acting player.
const PlayerHeader = "X-Player-ID"

// PlayerContext extracts the acting player id from the request header and
// puts it on the context. The id is threaded explicitly downstream; no
// handler reads it from ambient state.
func PlayerContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(PlayerHeader)
		if raw == "" {
			response.BadRequest(w, "missing "+PlayerHeader+" header")
			return
		}

		playerID, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "invalid "+PlayerHeader+" header")
			return
		}

		ctx := context.WithValue(r.Context(), PlayerIDKey, playerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetPlayerID gets the acting player id from context
func GetPlayerID(ctx context.Context) (uuid.UUID, bool) {
	playerID, ok := ctx.Value(PlayerIDKey).(uuid.UUID)
	return playerID, ok
}
