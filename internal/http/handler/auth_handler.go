package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/storelane/auth-engine/internal/domain"
	"github.com/storelane/auth-engine/internal/http/cookie"
	"github.com/storelane/auth-engine/internal/http/middleware"
	"github.com/storelane/auth-engine/internal/http/response"
	"github.com/storelane/auth-engine/internal/service"
)

const maxBodyBytes = 1 << 16

type AuthHandler struct {
	auth      service.Authenticator
	cookies   *cookie.Manager
	accessTTL time.Duration
}

func NewAuthHandler(auth service.Authenticator, cookies *cookie.Manager, accessTTL time.Duration) *AuthHandler {
	return &AuthHandler{auth: auth, cookies: cookies, accessTTL: accessTTL}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// tokenResponse is the login/refresh response body. The refresh token never
// appears here; it travels only in the realm-scoped cookie.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "email and password are required", nil)
		return
	}
	if len(req.Password) < 8 {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "password must be at least 8 characters", nil)
		return
	}

	res, err := h.auth.Register(r.Context(), domain.RealmCustomer, req.Email, req.Password, clientInfo(r))
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	h.cookies.Set(w, domain.RealmCustomer, res.RefreshToken)
	response.JSON(w, r, http.StatusCreated, h.tokenBody(res))
}

func (h *AuthHandler) Login(realm domain.Realm) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if !decodeBody(w, r, &req) {
			return
		}
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || req.Password == "" {
			response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "email and password are required", nil)
			return
		}

		res, err := h.auth.Login(r.Context(), realm, req.Email, req.Password, clientInfo(r))
		if err != nil {
			h.writeAuthError(w, r, err)
			return
		}
		h.cookies.Set(w, realm, res.RefreshToken)
		response.JSON(w, r, http.StatusOK, h.tokenBody(res))
	}
}

func (h *AuthHandler) Refresh(realm domain.Realm) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := cookie.Read(r, realm)
		res, err := h.auth.Refresh(r.Context(), realm, raw, clientInfo(r))
		if err != nil {
			// Whatever the token was, it is useless now. Clearing it stops
			// the client from retrying a dead credential.
			h.cookies.Clear(w, realm)
			h.writeAuthError(w, r, err)
			return
		}
		h.cookies.Set(w, realm, res.RefreshToken)
		response.JSON(w, r, http.StatusOK, h.tokenBody(res))
	}
}

func (h *AuthHandler) Logout(realm domain.Realm) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := cookie.Read(r, realm)
		if err := h.auth.Logout(r.Context(), realm, raw, clientInfo(r)); err != nil {
			slog.ErrorContext(r.Context(), "logout failed", "realm", realm, "error", err.Error())
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
			return
		}
		h.cookies.Clear(w, realm)
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
	}
}

func (h *AuthHandler) ChangePassword(realm domain.Realm) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
			return
		}
		var req changePasswordRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.CurrentPassword == "" || req.NewPassword == "" {
			response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "current and new password are required", nil)
			return
		}
		if len(req.NewPassword) < 8 {
			response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "password must be at least 8 characters", nil)
			return
		}

		raw := cookie.Read(r, realm)
		if err := h.auth.ChangePassword(r.Context(), principal.AccountID, req.CurrentPassword, req.NewPassword, raw, clientInfo(r)); err != nil {
			h.writeAuthError(w, r, err)
			return
		}
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "password_changed"})
	}
}

func (h *AuthHandler) tokenBody(res *service.LoginResult) tokenResponse {
	return tokenResponse{
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.accessTTL.Seconds()),
	}
}

// writeAuthError collapses the service error taxonomy into the coarse
// responses clients are allowed to see.
func (h *AuthHandler) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrMissingToken),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrSessionInvalidated):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication failed", nil)
	case errors.Is(err, service.ErrAccountBlocked), errors.Is(err, service.ErrForbidden):
		response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "access denied", nil)
	case errors.Is(err, service.ErrEmailTaken):
		response.Error(w, r, http.StatusConflict, "CONFLICT", "email already registered", nil)
	default:
		slog.ErrorContext(r.Context(), "auth operation failed", "error", err.Error())
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body", nil)
		return false
	}
	return true
}

func clientInfo(r *http.Request) service.ClientInfo {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return service.ClientInfo{UserAgent: r.UserAgent(), IP: ip}
}
