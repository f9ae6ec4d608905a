package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hvtran/goldenbell/internal/auth"
	"github.com/hvtran/goldenbell/internal/db/repository"
	"github.com/hvtran/goldenbell/internal/question"
	httperrors "github.com/hvtran/goldenbell/pkg/http/errors"
)

// SetHandlers exposes exam set CRUD for teachers. All routes are host-only;
// ownership is enforced by scoping queries to the authenticated teacher.
type SetHandlers struct {
	questions *question.Service
	logger    zerolog.Logger
}

func NewSetHandlers(questions *question.Service, logger zerolog.Logger) *SetHandlers {
	return &SetHandlers{questions: questions, logger: logger}
}

// Collection handles GET (list) and POST (create) on /v1/sets.
func (h *SetHandlers) Collection(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		sets, err := h.questions.ListSets(r.Context(), claims.SubjectID)
		if err != nil {
			h.logger.Error().Err(err).Msg("failed to list exam sets")
			httperrors.RespondInternalError(w, "Failed to list exam sets")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"sets": sets})

	case http.MethodPost:
		var set question.Set
		if err := json.NewDecoder(r.Body).Decode(&set); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
			return
		}
		set.ID = ""
		set.TeacherID = claims.SubjectID
		if set.Title == "" || len(set.Rounds) == 0 {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, "Title and at least one round are required")
			return
		}
		if err := h.questions.SaveSet(r.Context(), &set); err != nil {
			h.logger.Error().Err(err).Msg("failed to save exam set")
			httperrors.RespondInternalError(w, "Failed to save exam set")
			return
		}
		respondJSON(w, http.StatusCreated, set)

	default:
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
	}
}

// Item handles GET, PUT, and DELETE on /v1/sets/{id}.
func (h *SetHandlers) Item(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	setID := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		set, err := h.questions.FetchSet(r.Context(), setID)
		if err != nil {
			httperrors.RespondNotFound(w, httperrors.ErrCodeSetNotFound, "Exam set not found")
			return
		}
		if set.TeacherID != claims.SubjectID {
			httperrors.RespondForbidden(w, httperrors.ErrCodeForbidden, "Not your exam set")
			return
		}
		respondJSON(w, http.StatusOK, set)

	case http.MethodPut:
		var set question.Set
		if err := json.NewDecoder(r.Body).Decode(&set); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
			return
		}
		set.ID = setID
		set.TeacherID = claims.SubjectID
		if err := h.questions.SaveSet(r.Context(), &set); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				httperrors.RespondNotFound(w, httperrors.ErrCodeSetNotFound, "Exam set not found")
				return
			}
			h.logger.Error().Err(err).Msg("failed to update exam set")
			httperrors.RespondInternalError(w, "Failed to update exam set")
			return
		}
		respondJSON(w, http.StatusOK, set)

	case http.MethodDelete:
		if err := h.questions.DeleteSet(r.Context(), setID, claims.SubjectID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				httperrors.RespondNotFound(w, httperrors.ErrCodeSetNotFound, "Exam set not found")
				return
			}
			h.logger.Error().Err(err).Msg("failed to delete exam set")
			httperrors.RespondInternalError(w, "Failed to delete exam set")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
