package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/estateman/estateman/internal/authz"
	"github.com/estateman/estateman/internal/platform/httpx"
	"github.com/estateman/estateman/internal/shared"
)

// SnapshotInvalidator drops cached authorization snapshots when a
// user's session state changes.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, userID int64) error
}

// Handler manages authentication endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	sessions  *shared.SessionManager
	csrf      *shared.CSRFManager
	snapshots SnapshotInvalidator
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, snapshots SnapshotInvalidator, mw authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		sessions:  sessions,
		csrf:      csrf,
		snapshots: snapshots,
		authz:     mw,
		validator: validator.New(),
	}
}

// MountRoutes registers authentication routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)

	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAuth)
		r.Get("/me", h.me)
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	UserID    int64  `json:"user_id"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	CSRFToken string `json:"csrf_token"`
}

type meResponse struct {
	UserID      int64    `json:"user_id"`
	Email       string   `json:"email"`
	FullName    string   `json:"full_name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
			return
		}
		h.logger.Error("authenticate", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("login without session middleware")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10))

	// A role change since the last login must be visible immediately.
	if err := h.snapshots.Invalidate(r.Context(), user.ID); err != nil {
		h.logger.Warn("invalidate snapshot", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}

	token, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Error("issue csrf token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	h.logger.Info("user logged in", slog.Int64("user_id", user.ID))
	httpx.JSON(w, http.StatusOK, loginResponse{
		UserID:    user.ID,
		FullName:  user.FullName,
		Role:      user.RoleName,
		CSRFToken: token,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if id, err := strconv.ParseInt(sess.User(), 10, 64); err == nil && id > 0 {
			if err := h.snapshots.Invalidate(r.Context(), id); err != nil {
				h.logger.Warn("invalidate snapshot", slog.Int64("user_id", id), slog.Any("error", err))
			}
		}
		h.sessions.Destroy(sess)
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	snapshot := authz.SnapshotFromContext(r.Context())
	user, err := h.service.GetUser(r.Context(), snapshot.UserID)
	if err != nil {
		h.logger.Error("load current user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if user == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "account no longer exists")
		return
	}
	httpx.JSON(w, http.StatusOK, meResponse{
		UserID:      user.ID,
		Email:       user.Email,
		FullName:    user.FullName,
		Role:        string(snapshot.Role),
		Permissions: snapshot.Permissions(),
	})
}
