package user

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

// Register handles POST /users/. Open endpoint; new accounts always start
// with the default role.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, err)
		return
	}

	profile, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, profile)
}

// List handles GET /users/ with skip/limit pagination.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query, err := parseListQuery(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	profiles, err := h.Service.List(r.Context(), query)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, profiles)
}

// GetCurrent handles GET /users/me using the authenticated identity.
func (h *Handler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	profile, err := h.Service.GetByID(r.Context(), actor.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, profile)
}

// GetByID handles GET /users/{user_id}.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Service.GetByID(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, profile)
}

// Update handles PATCH /users/{user_id}. Self-service or update:user.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	var dto UpdateUserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, err)
		return
	}

	profile, err := h.Service.Update(r.Context(), actor, chi.URLParam(r, "user_id"), dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, profile)
}

// UpdateRole handles PATCH /users/{user_id}/role.
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var dto RoleUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, err)
		return
	}

	profile, err := h.Service.UpdateRole(r.Context(), chi.URLParam(r, "user_id"), dto.Role)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, profile)
}

// UpdateStatus handles PATCH /users/{user_id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var dto StatusUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.Service.UpdateStatus(r.Context(), chi.URLParam(r, "user_id"), dto.Disabled)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, profile)
}

// GrantPermission handles POST /users/{user_id}/permissions.
func (h *Handler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	var dto GrantPermissionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, err)
		return
	}

	profile, err := h.Service.GrantPermission(r.Context(), chi.URLParam(r, "user_id"), dto.Permission)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, profile)
}

// Delete handles DELETE /users/{user_id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "user_id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		h.WriteError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, ErrUsernameTaken):
		h.WriteError(w, http.StatusBadRequest, "Username already registered")
	case errors.Is(err, ErrEmailTaken):
		h.WriteError(w, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, ErrLastAdmin):
		h.WriteError(w, http.StatusBadRequest, "Cannot remove the last enabled admin")
	case errors.Is(err, ErrNotSelfOrPrivileged):
		h.WriteError(w, http.StatusForbidden, "Insufficient permissions")
	default:
		h.WriteAppError(w, err)
	}
}

func parseListQuery(r *http.Request) (ListQuery, error) {
	query := ListQuery{Skip: 0, Limit: 10}

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
