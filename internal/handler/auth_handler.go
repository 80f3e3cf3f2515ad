package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// AuthHandler handles authentication-related endpoints
type AuthHandler struct {
	authMiddleware *AuthMiddleware
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authMiddleware *AuthMiddleware) *AuthHandler {
	return &AuthHandler{
		authMiddleware: authMiddleware,
	}
}

// ServeHTTP routes auth requests
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/auth")
	path = strings.TrimSuffix(path, "/")

	switch path {
	case "/verify":
		h.handleVerify(w, r)
	case "/status":
		h.handleStatus(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// handleVerify verifies the provided password
// POST /api/auth/verify
func (h *AuthHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil || !gjson.ValidBytes(raw) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	password := gjson.GetBytes(raw, "password").String()

	if !h.authMiddleware.VerifyPassword(password) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"error":   "invalid password",
		})
		return
	}

	token, err := h.authMiddleware.GenerateToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
	})
}

// handleStatus returns the authentication status
// GET /api/auth/status
func (h *AuthHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authEnabled": h.authMiddleware.IsEnabled(),
	})
}
