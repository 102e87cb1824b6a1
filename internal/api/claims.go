package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/reclaim-app/reclaim/internal/claim"
	"github.com/reclaim-app/reclaim/internal/store"
)

// ClaimsHandler handles claim submission and history endpoints.
type ClaimsHandler struct {
	DB     *sql.DB
	Engine *claim.Engine
}

type claimRequest struct {
	Answers []claim.Answer `json:"answers"`
}

type claimResponse struct {
	Claimed   bool           `json:"claimed"`
	Reference string         `json:"reference"`
	Receipt   *claim.Receipt `json:"receipt,omitempty"`
}

// Submit handles POST /api/items/{id}/claim.
func (h *ClaimsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req claimRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	receipt, err := h.Engine.SubmitClaim(r.Context(), id, claims.UserID, req.Answers)
	if err != nil {
		writeClaimError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, claimResponse{
		Claimed:   true,
		Reference: receipt.Reference,
		Receipt:   receipt,
	})
}

// Mine handles GET /api/claims/mine, listing items the caller has
// successfully claimed.
func (h *ClaimsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	items, err := store.ListClaimedBy(r.Context(), h.DB, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list claimed items")
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// writeClaimError maps engine errors onto the claim endpoint's status
// codes. Incorrect answers and incomplete submissions surface the same
// generic message the error carries; no per-question detail is added.
func writeClaimError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, claim.ErrItemNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, claim.ErrItemNotClaimable):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, claim.ErrInvalidClaimTarget),
		errors.Is(err, claim.ErrIncompleteSubmission):
		jsonError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, claim.ErrUnauthorized),
		errors.Is(err, claim.ErrAnswersIncorrect):
		jsonError(w, http.StatusForbidden, err.Error())
	default:
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
