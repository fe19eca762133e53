// Package http exposes the storefront engine over a local HTTP facade: session
// lifecycle, cart, wishlist and badge endpoints, all backed by the in-process
// state the engines hold.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/velora/storefront/internal/gateway"
	"github.com/velora/storefront/internal/session"
	apperrors "github.com/velora/storefront/pkg/errors"
	"github.com/velora/storefront/pkg/httputil"
	"github.com/velora/storefront/pkg/validator"
)

// SessionHandler handles login, logout and session inspection.
type SessionHandler struct {
	sessions *session.Store
	api      *gateway.Client
	logger   *slog.Logger
}

// NewSessionHandler creates a session HTTP handler.
func NewSessionHandler(sessions *session.Store, api *gateway.Client, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		api:      api,
		logger:   logger,
	}
}

// LoginRequest is the JSON request body for logging in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// SessionResponse describes the current session for clients.
type SessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
}

// Login handles POST /api/v1/session/login. On success the session is
// established and the initial cart and wishlist loads have settled before the
// response is written.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	sess, err := h.api.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.sessions.Establish(r.Context(), sess, true); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.describe()})
}

// Logout handles POST /api/v1/session/logout. The local session and both
// collections are cleared synchronously; invalidating the credential upstream
// happens in the background and its outcome never affects the response.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.sessions.Token()
	if token == "" {
		httputil.WriteError(w, r, apperrors.AuthRequired("no active session"), h.logger)
		return
	}

	h.sessions.Terminate(r.Context())

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 10*time.Second)
		defer cancel()
		if err := h.api.Logout(ctx, token); err != nil {
			h.logger.Warn("remote logout", slog.String("error", err.Error()))
		}
	}()

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.describe()})
}

// Get handles GET /api/v1/session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.describe()})
}

func (h *SessionHandler) describe() SessionResponse {
	sess, ok := h.sessions.Current()
	if !ok {
		return SessionResponse{Authenticated: false}
	}
	return SessionResponse{
		Authenticated: true,
		Name:          sess.Profile.Name,
		Email:         sess.Profile.Email,
		Avatar:        sess.Profile.Avatar,
	}
}

// writeEngineError maps an engine failure to a response. An authentication
// failure from the commerce API means the credential is dead: the session is
// terminated before the 401 goes out, so the next request starts clean.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error, sessions *session.Store, logger *slog.Logger) {
	if errors.Is(err, apperrors.ErrAuthRequired) && sessions.Authenticated() {
		sessions.Terminate(r.Context())
	}
	httputil.WriteError(w, r, err, logger)
}
