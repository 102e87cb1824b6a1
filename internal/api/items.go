package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/reclaim-app/reclaim/internal/claim"
	"github.com/reclaim-app/reclaim/internal/imaging"
	"github.com/reclaim-app/reclaim/internal/model"
	"github.com/reclaim-app/reclaim/internal/store"
)

// MaxPhotoBytes limits photo upload size.
const MaxPhotoBytes = 5 << 20

// ItemsHandler handles item report endpoints.
type ItemsHandler struct {
	DB     *sql.DB
	Engine *claim.Engine
}

type itemRequest struct {
	ReportType  string       `json:"report_type"`
	Name        string       `json:"name"`
	Category    string       `json:"category"`
	Location    string       `json:"location"`
	Description string       `json:"description"`
	OccurredOn  string       `json:"occurred_on"`
	Questions   []claim.Pair `json:"questions,omitempty"`
}

// List handles GET /api/items. By default it returns the public listing
// (approved and expected items); with ?mine=1 it returns the caller's own
// reports regardless of status.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	reportType := r.URL.Query().Get("type")
	if reportType != "" && !model.ValidReportType(reportType) {
		jsonError(w, http.StatusBadRequest, "invalid report type")
		return
	}
	status := r.URL.Query().Get("status")
	if status != "" && !model.ValidStatus(status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if r.URL.Query().Get("mine") == "1" {
		claims := GetClaims(r.Context())
		items, err := store.ListItems(r.Context(), h.DB, store.ItemFilter{
			ReportType: reportType,
			Status:     status,
			ReportedBy: claims.UserID,
		})
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to list items")
			return
		}
		jsonResponse(w, http.StatusOK, items)
		return
	}

	// Public browsing only ever sees listed items; a status filter can
	// narrow within that set but not widen it.
	if status != "" && status != model.StatusApproved && status != model.StatusExpected {
		jsonResponse(w, http.StatusOK, []model.Item{})
		return
	}
	if status != "" {
		items, err := store.ListItems(r.Context(), h.DB, store.ItemFilter{
			ReportType: reportType,
			Status:     status,
		})
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to list items")
			return
		}
		jsonResponse(w, http.StatusOK, items)
		return
	}

	items, err := store.ListListedItems(r.Context(), h.DB, reportType)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items. Found-item reports must include at
// least one security question; the report starts pending moderation.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name, occurredOn, err := validateItemRequest(&req)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	var prepared []store.QuestionInput
	if req.ReportType == model.ReportTypeFound {
		prepared, err = h.Engine.PrepareQuestions(req.Questions, 0)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else if len(req.Questions) > 0 {
		jsonError(w, http.StatusBadRequest, "security questions only apply to found items")
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, req.ReportType, name,
		req.Category, req.Location, req.Description, occurredOn, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	if len(prepared) > 0 {
		if err := store.AddQuestions(r.Context(), h.DB, item.ID, prepared); err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to store questions")
			return
		}
	}

	slog.Info("item reported", "item", item.ID, "type", item.ReportType, "reporter", claims.Username)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	claims := GetClaims(r.Context())
	if !itemVisibleTo(item, claims.UserID, claims.Role) {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}. Only the reporter may edit, and
// only while the report is pending moderation.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	claims := GetClaims(r.Context())
	if item.ReportedBy != claims.UserID {
		jsonError(w, http.StatusForbidden, "only the reporter can edit an item")
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ReportType == "" {
		req.ReportType = item.ReportType
	}
	if req.ReportType != item.ReportType {
		jsonError(w, http.StatusBadRequest, "report type cannot be changed")
		return
	}

	name, occurredOn, err := validateItemRequest(&req)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = store.UpdateItemDetails(r.Context(), h.DB, item.ID, name,
		req.Category, req.Location, req.Description, occurredOn)
	if errors.Is(err, store.ErrNotPending) {
		jsonError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	updated, err := store.GetItem(r.Context(), h.DB, item.ID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to load item")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/items/{id}. The reporter or an admin may
// withdraw a report; claimed items are immutable history.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	claims := GetClaims(r.Context())
	if item.ReportedBy != claims.UserID && !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		jsonError(w, http.StatusForbidden, "only the reporter or an admin can delete an item")
		return
	}
	if item.Status == model.StatusClaimed || item.Status == model.StatusResolved {
		jsonError(w, http.StatusConflict, "claimed items cannot be deleted")
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, item.ID); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	slog.Info("item deleted", "item", item.ID, "by", claims.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadPhoto handles PUT /api/items/{id}/photo.
func (h *ItemsHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	claims := GetClaims(r.Context())
	if item.ReportedBy != claims.UserID {
		jsonError(w, http.StatusForbidden, "only the reporter can upload a photo")
		return
	}

	result, err := imaging.Process(http.MaxBytesReader(w, r.Body, MaxPhotoBytes))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetItemPhoto(r.Context(), h.DB, item.ID, result.Data, result.MIME); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to store photo")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "photo uploaded"})
}

// GetPhoto handles GET /api/items/{id}/photo.
func (h *ItemsHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	photo, mime, err := store.GetItemPhoto(r.Context(), h.DB, item.ID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to load photo")
		return
	}
	if len(photo) == 0 {
		jsonError(w, http.StatusNotFound, "item has no photo")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(photo)
}

// loadItem resolves the {id} path value to a live item, writing the
// error response itself when it cannot.
func (h *ItemsHandler) loadItem(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return nil, false
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to load item")
		return nil, false
	}
	if item == nil || item.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return nil, false
	}
	return item, true
}

// itemVisibleTo reports whether a user may see an item's details.
// Listed items are public; everything else is visible to the reporter,
// the claimant, and admins.
func itemVisibleTo(item *model.Item, userID int64, role string) bool {
	switch item.Status {
	case model.StatusApproved, model.StatusExpected:
		return true
	}
	if item.ReportedBy == userID {
		return true
	}
	if item.ClaimedBy != nil && *item.ClaimedBy == userID {
		return true
	}
	return model.RoleAtLeast(role, model.RoleAdmin)
}

func validateItemRequest(req *itemRequest) (string, time.Time, error) {
	if !model.ValidReportType(req.ReportType) {
		return "", time.Time{}, errors.New("report type must be lost or found")
	}
	if req.Name == "" {
		return "", time.Time{}, errors.New("name is required")
	}

	occurredOn, err := time.Parse("2006-01-02", req.OccurredOn)
	if err != nil {
		return "", time.Time{}, errors.New("occurred_on must be a YYYY-MM-DD date")
	}
	if occurredOn.After(time.Now()) {
		return "", time.Time{}, errors.New("occurred_on cannot be in the future")
	}
	return req.Name, occurredOn, nil
}
