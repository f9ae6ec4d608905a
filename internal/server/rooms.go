package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hvtran/goldenbell/internal/arena"
	"github.com/hvtran/goldenbell/internal/auth"
	httperrors "github.com/hvtran/goldenbell/pkg/http/errors"
)

// RoomHandlers exposes room lifecycle over REST. Opening a room is
// host-only; standings are public so a projector page can poll them
// without a token.
type RoomHandlers struct {
	rooms       *arena.RoomManager
	scoreboard  *arena.Scoreboard
	assignments arena.AssignmentStore
	rules       arena.Rules
	logger      zerolog.Logger
}

func NewRoomHandlers(rooms *arena.RoomManager, scoreboard *arena.Scoreboard, assignments arena.AssignmentStore, rules arena.Rules, logger zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		rooms:       rooms,
		scoreboard:  scoreboard,
		assignments: assignments,
		rules:       rules,
		logger:      logger,
	}
}

type openRoomRequest struct {
	RoomCode string `json:"room_code,omitempty"` // optional: re-open with a known code
}

type openRoomResponse struct {
	RoomCode string `json:"room_code"`
	SetID    string `json:"set_id,omitempty"` // assigned set, when re-opening
}

// Open handles POST /v1/rooms.
func (h *RoomHandlers) Open(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
		return
	}
	claims, _ := auth.ClaimsFromContext(r.Context())

	var req openRoomRequest
	if r.Body != nil {
		// An empty body is a plain "open a new room".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	code, _, err := h.rooms.OpenRoom(r.Context(), claims.SubjectID, req.RoomCode, h.rules)
	if err != nil {
		if errors.Is(err, arena.ErrRoomExists) {
			httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeConflict, "Room code already in use")
			return
		}
		h.logger.Error().Err(err).Msg("failed to open room")
		httperrors.RespondInternalError(w, "Failed to open room")
		return
	}

	resp := openRoomResponse{RoomCode: code}
	if h.assignments != nil {
		// A re-opened room picks up the set it was running before the
		// host crashed; a fresh code simply has no assignment yet.
		if setID, err := h.assignments.RoomAssignment(r.Context(), code); err == nil {
			resp.SetID = setID
		}
	}
	respondJSON(w, http.StatusCreated, resp)
}

// Standings handles GET /v1/rooms/{code}/standings.
func (h *RoomHandlers) Standings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
		return
	}

	code := r.PathValue("code")
	standings, err := h.scoreboard.Standings(r.Context(), code, 60)
	if err != nil {
		h.logger.Error().Err(err).Str("room_code", code).Msg("failed to fetch standings")
		httperrors.RespondInternalError(w, "Failed to fetch standings")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"room_code": code,
		"standings": standings,
	})
}
