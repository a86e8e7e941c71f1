package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/yourorg/catalogapi/internal/domain"
	"github.com/yourorg/catalogapi/internal/security/auth"
	"golang.org/x/crypto/bcrypt"
)

// AuthService authenticates users and issues principal tokens.
type AuthService struct {
	userRepo      domain.UserRepository
	tokenManager  *auth.TokenManager
	tokenLifetime time.Duration
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo domain.UserRepository,
	tokenManager *auth.TokenManager,
	tokenLifetime time.Duration,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		userRepo:      userRepo,
		tokenManager:  tokenManager,
		tokenLifetime: tokenLifetime,
		logger:        logger,
	}
}

// LoginResult represents login response
type LoginResult struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	TokenType string    `json:"token_type"`
}

// Login authenticates a user by username and returns a signed token.
// Failures collapse into a single "invalid credentials" error to prevent
// user enumeration.
func (s *AuthService) Login(username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}

	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		s.logger.Info("login attempt with unknown username", slog.String("username", username))
		return nil, errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("username", username))
		return nil, errors.New("invalid credentials")
	}

	principal := domain.Principal{
		UserID:     user.ID,
		Username:   user.Username,
		Role:       domain.PrimaryRole(user.Roles),
		CustomerID: user.CustomerID,
	}

	token, err := s.tokenManager.GenerateToken(principal, s.tokenLifetime)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, errors.New("failed to generate token")
	}

	s.logger.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
		slog.String("role", string(principal.Role)),
	)

	return &LoginResult{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      string(principal.Role),
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokenLifetime),
		TokenType: "Bearer",
	}, nil
}

// HashPassword hashes a plain-text password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
