package widget

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/widgetlabs/widget-api/internal"
	"github.com/widgetlabs/widget-api/internal/auth"
	"github.com/widgetlabs/widget-api/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(logger *slog.Logger, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		Service:     service,
	}
}

// Create handles POST /widgets/. The owner is always the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	var dto CreateWidgetDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, err)
		return
	}

	created, err := h.Service.Create(r.Context(), actor.ID, dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, created)
}

// List handles GET /widgets/ with skip/limit pagination and an optional
// category filter.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	query, err := parseListQuery(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	widgets, err := h.Service.List(r.Context(), actor.ID, query)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, widgets)
}

// Count handles GET /widgets/count.
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	count, err := h.Service.Count(r.Context(), actor.ID, r.URL.Query().Get("category"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, CountResponse{Count: count})
}

// Get handles GET /widgets/{widget_id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	found, err := h.Service.Get(r.Context(), actor.ID, chi.URLParam(r, "widget_id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, found)
}

// Update handles PATCH /widgets/{widget_id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	var dto UpdateWidgetDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, err)
		return
	}

	updated, err := h.Service.Update(r.Context(), actor.ID, chi.URLParam(r, "widget_id"), dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /widgets/{widget_id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	if err := h.Service.Delete(r.Context(), actor.ID, chi.URLParam(r, "widget_id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrWidgetNotFound) {
		h.WriteError(w, http.StatusNotFound, "Widget not found")
		return
	}
	h.WriteAppError(w, err)
}

func parseListQuery(r *http.Request) (ListQuery, error) {
	query := ListQuery{
		Skip:     0,
		Limit:    10,
		Category: r.URL.Query().Get("category"),
	}

	if raw := r.URL.Query().Get("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil {
			return query, internal.NewValidationError("skip must be an integer", internal.ErrCodeInvalidPage)
		}
		query.Skip = skip
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return query, internal.NewValidationError("limit must be an integer", internal.ErrCodeInvalidPage)
		}
		query.Limit = limit
	}

	if err := query.Validate(); err != nil {
		return query, err
	}
	return query, nil
}
