package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/storelane/auth-engine/internal/http/middleware"
	"github.com/storelane/auth-engine/internal/http/response"
	"github.com/storelane/auth-engine/internal/repository"
	"github.com/storelane/auth-engine/internal/service"
)

type SessionHandler struct {
	sessions service.SessionManager
}

func NewSessionHandler(sessions service.SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// List returns the caller's active sessions, most recently used first.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
		return
	}
	result, err := h.sessions.List(r.Context(), principal.AccountID, pageRequest(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "list sessions failed", "error", err.Error())
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

func (h *SessionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	err := h.sessions.Revoke(r.Context(), principal.AccountID, sessionID, clientInfo(r))
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "session not found", nil)
			return
		}
		slog.ErrorContext(r.Context(), "revoke session failed", "error", err.Error())
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "revoked"})
}

func (h *SessionHandler) RevokeAll(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
		return
	}
	n, err := h.sessions.RevokeAll(r.Context(), principal.AccountID, clientInfo(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "revoke all sessions failed", "error", err.Error())
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]int64{"revoked": n})
}

func pageRequest(r *http.Request) repository.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	return repository.PageRequest{Page: page, PageSize: pageSize}
}
