package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/reclaim-app/reclaim/internal/claim"
	"github.com/reclaim-app/reclaim/internal/model"
	"github.com/reclaim-app/reclaim/internal/store"
)

// QuestionsHandler handles security question endpoints.
type QuestionsHandler struct {
	DB     *sql.DB
	Engine *claim.Engine
}

type addQuestionsRequest struct {
	Questions []claim.Pair `json:"questions"`
}

// List handles GET /api/items/{id}/questions. It returns question IDs
// and text only; answers never leave the server.
func (h *QuestionsHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to load item")
		return
	}
	if item == nil || item.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	questions, err := store.ListQuestions(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list questions")
		return
	}
	jsonResponse(w, http.StatusOK, questions)
}

// Add handles POST /api/items/{id}/questions.
func (h *QuestionsHandler) Add(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req addQuestionsRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	if err := h.Engine.AddQuestions(r.Context(), id, claims.UserID, req.Questions); err != nil {
		writeQuestionError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]string{"message": "questions added"})
}

// Remove handles DELETE /api/items/{id}/questions/{qid}.
func (h *QuestionsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	qid, err := strconv.ParseInt(r.PathValue("qid"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid question id")
		return
	}

	claims := GetClaims(r.Context())
	isAdmin := model.RoleAtLeast(claims.Role, model.RoleAdmin)
	if err := h.Engine.RemoveQuestion(r.Context(), id, claims.UserID, isAdmin, qid); err != nil {
		writeQuestionError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "question removed"})
}

func writeQuestionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, claim.ErrItemNotFound), errors.Is(err, claim.ErrQuestionNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, claim.ErrNotOwner):
		jsonError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, claim.ErrQuestionsLocked):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, claim.ErrInvalidClaimTarget),
		errors.Is(err, claim.ErrEmptyQuestion),
		errors.Is(err, claim.ErrTooManyQuestions):
		jsonError(w, http.StatusBadRequest, err.Error())
	default:
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
