package handler

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/yourorg/catalogapi/internal/security/ratelimit"
	"github.com/yourorg/catalogapi/internal/service"
)

// LoginRequest represents login credentials
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginHandler handles user authentication
type LoginHandler struct {
	authService *service.AuthService
	limiter     *ratelimit.Limiter
	logger      *slog.Logger
}

// NewLoginHandler creates a new login handler
func NewLoginHandler(authService *service.AuthService, limiter *ratelimit.Limiter, logger *slog.Logger) *LoginHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginHandler{
		authService: authService,
		limiter:     limiter,
		logger:      logger,
	}
}

// ServeHTTP handles POST /api/login requests
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Tight per-IP budget on credential guessing, independent of the
	// per-principal limit applied after authentication.
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if h.limiter != nil && !h.limiter.AllowStrict("login:"+ip, 10, time.Minute) {
		h.logger.Warn("login rate limit exceeded", slog.String("ip", ip))
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many login attempts"}, h.logger)
		return
	}

	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username and password required"}, h.logger)
		return
	}

	result, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		// Generic error to prevent user enumeration
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"}, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result, h.logger)
}
