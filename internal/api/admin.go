package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/reclaim-app/reclaim/internal/model"
	"github.com/reclaim-app/reclaim/internal/store"
)

// AdminHandler handles moderation and audit endpoints.
type AdminHandler struct {
	DB *sql.DB
}

type statusRequest struct {
	Status string `json:"status"`
}

// ListItems handles GET /api/admin/items, the moderation queue. With no
// status filter it defaults to pending reports.
func (h *AdminHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = model.StatusPending
	}
	if !model.ValidStatus(status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	items, err := store.ListItems(r.Context(), h.DB, store.ItemFilter{
		ReportType: r.URL.Query().Get("type"),
		Status:     status,
	})
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// SetStatus handles PUT /api/admin/items/{id}/status. Each transition is
// a compare-and-swap against the item's current status, so a decision
// can only land once.
func (h *AdminHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidStatus(req.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
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

	if !model.StatusTransitionAllowed(item.Status, req.Status) {
		jsonError(w, http.StatusConflict, "transition from "+item.Status+" to "+req.Status+" not allowed")
		return
	}

	// Expected marks a lost report whose match has turned up; found
	// items go from approved to claimed through the claim flow instead.
	if req.Status == model.StatusExpected && item.ReportType != model.ReportTypeLost {
		jsonError(w, http.StatusConflict, "only lost reports can be marked expected")
		return
	}

	// Found items without questions would be unclaimable if listed.
	if req.Status == model.StatusApproved && item.ReportType == model.ReportTypeFound {
		count, err := store.CountQuestions(r.Context(), h.DB, id)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to count questions")
			return
		}
		if count == 0 {
			jsonError(w, http.StatusConflict, "found items need at least one security question before approval")
			return
		}
	}

	changed, err := store.SetItemStatus(r.Context(), h.DB, id, item.Status, req.Status)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update status")
		return
	}
	if !changed {
		jsonError(w, http.StatusConflict, "item status changed concurrently")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item status changed", "item", id, "from", item.Status, "to", req.Status, "by", claims.Username)

	updated, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to load item")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// ListClaims handles GET /api/admin/claims, the claim attempt audit
// trail, optionally filtered by ?item=.
func (h *AdminHandler) ListClaims(w http.ResponseWriter, r *http.Request) {
	var itemID int64
	if raw := r.URL.Query().Get("item"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid item id")
			return
		}
		itemID = id
	}

	records, err := store.ListClaims(r.Context(), h.DB, itemID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list claims")
		return
	}
	jsonResponse(w, http.StatusOK, records)
}
