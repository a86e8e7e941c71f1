package test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourorg/catalogapi/internal/domain"
	"github.com/yourorg/catalogapi/internal/handler"
	"github.com/yourorg/catalogapi/internal/infrastructure/logger"
	"github.com/yourorg/catalogapi/internal/security/ratelimit"
	"github.com/yourorg/catalogapi/internal/service"
)

// TestServerHelper mounts the operational endpoints with the same handlers
// the server wires up, so these tests exercise the real code paths.
type TestServerHelper struct {
	Server *httptest.Server
	Logger *slog.Logger
	Mux    *http.ServeMux
}

// NewTestServer builds a test server whose backends all answer their probes.
func NewTestServer(t *testing.T) *TestServerHelper {
	healthy := handler.PingerFunc(func(context.Context) error { return nil })
	return NewTestServerWithPingers(t, healthy, healthy)
}

// NewTestServerWithPingers lets a test degrade individual backends.
func NewTestServerWithPingers(t *testing.T, db, cache handler.Pinger) *TestServerHelper {
	t.Helper()
	log := logger.NewLogger("debug")
	mux := http.NewServeMux()

	health := handler.NewHealthHandler(db, cache, log)
	mux.HandleFunc("GET /healthz", health.Health)
	mux.HandleFunc("GET /readyz", health.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := httptest.NewServer(mux)

	return &TestServerHelper{
		Server: server,
		Logger: log,
		Mux:    mux,
	}
}

func (h *TestServerHelper) Close() {
	h.Server.Close()
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// AddLoginHandler mounts the login endpoint on the test server
func (h *TestServerHelper) AddLoginHandler(authService *service.AuthService, limiter *ratelimit.Limiter) {
	loginHandler := handler.NewLoginHandler(authService, limiter, h.Logger)
	h.Mux.Handle("POST /api/login", loginHandler)
}

// loginUserRepo is the minimal user store the login flow needs.
type loginUserRepo struct {
	users map[string]*domain.User
}

func (r *loginUserRepo) GetByUsername(username string) (*domain.User, error) {
	if u, ok := r.users[username]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (r *loginUserRepo) List(page, limit int) ([]*domain.User, error) { return nil, nil }
func (r *loginUserRepo) ListByCustomer(customerID int64, page, limit int) ([]*domain.User, error) {
	return nil, nil
}
func (r *loginUserRepo) GetByID(id int64) (*domain.User, error) { return nil, domain.ErrNotFound }
func (r *loginUserRepo) Create(user *domain.User) error         { return nil }
func (r *loginUserRepo) Update(user *domain.User) error         { return nil }
func (r *loginUserRepo) Delete(id int64) error                  { return nil }

// AssertStatusCode helper function
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks the media type, ignoring parameters such as the
// charset promhttp appends.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, expected) {
		t.Errorf("Expected Content-Type %s, got %s", expected, ct)
	}
}
