package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/widgetlabs/widget-api/internal/transport"
	"github.com/widgetlabs/widget-api/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// Token handles POST /token. Credentials arrive either as a JSON body or as
// a classic username/password form post.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	dto, err := decodeLogin(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tokens, err := h.Service.Authenticate(r.Context(), dto)
	if err != nil {
		switch err {
		case ErrInvalidCredentials:
			h.WriteError(w, http.StatusUnauthorized, "Incorrect username or password")
		default:
			h.Logger.Error("authentication failed", "error", err)
			h.WriteError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func decodeLogin(r *http.Request) (LoginDTO, error) {
	var dto LoginDTO

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			return dto, err
		}
		return dto, nil
	}

	if err := r.ParseForm(); err != nil {
		return dto, err
	}
	dto.Username = r.PostFormValue("username")
	dto.Password = r.PostFormValue("password")
	return dto, nil
}

// AuthMiddleware resolves the bearer token and stores the verified user in
// the request context. Routes behind it still choose their own active and
// permission checks.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		user, err := h.Service.ResolveUser(r.Context(), token)
		if err != nil {
			h.Logger.Warn("token resolution failed", "error", err)
			h.WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		ctx := ContextWithUser(r.Context(), user)
		ctx = logger.With(ctx, "user_id", user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
