package auth

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/munigestion/munigestion/internal/platform/httpx"
	"github.com/munigestion/munigestion/internal/shared"
)

// Handler exposes the login/logout endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	tokens   *TokenManager
	denylist *Denylist
	audit    *shared.AuditLogger
	validate *validator.Validate
	clock    func() time.Time
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, tokens *TokenManager, denylist *Denylist, audit *shared.AuditLogger) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		tokens:   tokens,
		denylist: denylist,
		audit:    audit,
		validate: validator.New(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates credentials and returns a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	token, claims, err := h.tokens.Issue(account, h.clock())
	if err != nil {
		h.logger.Error("issue token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if h.audit != nil {
		if err := h.audit.Record(r.Context(), shared.AuditLog{
			ActorID:  account.ID,
			Action:   shared.AuditLogin,
			Entity:   "user",
			EntityID: strconv.FormatInt(account.ID, 10),
		}); err != nil {
			h.logger.Error("record login", slog.Any("error", err))
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": claims.ExpiresAt.Time,
	})
}

// Logout denylists the current token for its remaining lifetime.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	if h.denylist != nil {
		ttl := identity.TokenExpiry.Sub(h.clock())
		if err := h.denylist.Revoke(r.Context(), identity.TokenID, ttl); err != nil {
			h.logger.Error("denylist token", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
	}
	if h.audit != nil {
		if err := h.audit.Record(r.Context(), shared.AuditLog{
			ActorID:  identity.UserID,
			Action:   shared.AuditLogout,
			Entity:   "user",
			EntityID: strconv.FormatInt(identity.UserID, 10),
		}); err != nil {
			h.logger.Error("record logout", slog.Any("error", err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
