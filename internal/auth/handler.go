// Package auth exposes the account endpoints: register, login, logout. Login
// exchanges credentials for an opaque session token held in the session store
// with a TTL; the chat websocket later redeems that token at admission.
package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/aurxine/quack-quack/internal/identity"
	"github.com/aurxine/quack-quack/internal/session"
)

type Handler struct {
	provider identity.Provider
	sessions session.Store
	ttl      time.Duration
	logger   *slog.Logger
}

func NewHandler(provider identity.Provider, sessions session.Store, ttl time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		provider: provider,
		sessions: sessions,
		ttl:      ttl,
		logger:   logger.With(slog.String("component", "auth_handler")),
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// Username is optional at registration; when present it becomes the
	// display name shown next to chat messages. Without it the raw user id
	// is shown.
	Username string `json:"username,omitempty"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	uid, err := h.provider.CreateAccount(r.Context(), req.Email, req.Password)
	if errors.Is(err, identity.ErrEmailTaken) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email already registered"})
		return
	}
	if err != nil {
		h.logger.Error("Account creation failed", slog.Any("error", err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "identity provider unavailable"})
		return
	}

	if req.Username != "" {
		if err := h.sessions.SetUsername(r.Context(), uid, req.Username); err != nil {
			// The account exists either way; the display name just falls
			// back to the user id until set again.
			h.logger.Warn("Failed to store username", slog.String("uid", uid), slog.Any("error", err))
		}
	}

	h.logger.Info("Account created", slog.String("uid", uid))
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User created", "uid": uid})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	uid, err := h.provider.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, identity.ErrBadCredentials) || errors.Is(err, identity.ErrNotFound) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		h.logger.Error("Authentication failed", slog.Any("error", err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "identity provider unavailable"})
		return
	}

	token := uuid.NewString()
	if err := h.sessions.Set(r.Context(), token, uid, h.ttl); err != nil {
		h.logger.Error("Failed to store session", slog.Any("error", err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "session store unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"session_token": token})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("session_token")
	if token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session_token is required"})
		return
	}

	if err := h.sessions.Delete(r.Context(), token); err != nil {
		h.logger.Error("Failed to delete session", slog.Any("error", err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "session store unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
