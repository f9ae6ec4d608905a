package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hvtran/goldenbell/internal/arena"
	"github.com/hvtran/goldenbell/internal/auth"
	httperrors "github.com/hvtran/goldenbell/pkg/http/errors"
)

// NewArenaWSHandler builds the /ws/arena endpoint. Browsers cannot set
// headers on WebSocket requests, so the token rides in a query parameter.
// A student token pinned to a room only opens that room.
func NewArenaWSHandler(authSvc *auth.Service, handler *arena.Handler, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			httperrors.RespondUnauthorized(w, httperrors.ErrCodeUnauthorized, "Token required")
			return
		}
		claims, err := authSvc.Validate(token)
		if err != nil {
			httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid or expired token")
			return
		}

		roomCode := strings.ToUpper(r.URL.Query().Get("room"))
		if claims.RoomCode != "" && claims.RoomCode != roomCode {
			httperrors.RespondForbidden(w, httperrors.ErrCodeForbidden, "Token is bound to another room")
			return
		}
		if roomCode == "" {
			httperrors.RespondError(w, http.StatusBadRequest, httperrors.ErrCodeInvalidRoomCode, "Room code required")
			return
		}

		conn, err := WSUpgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		handler.HandleConnection(conn, arena.Identity{
			SubjectID:   claims.SubjectID,
			DisplayName: claims.DisplayName,
			Role:        claims.Role,
			RoomCode:    roomCode,
		})
	}
}
