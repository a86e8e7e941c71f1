package test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/yourorg/catalogapi/internal/domain"
	"github.com/yourorg/catalogapi/internal/handler"
	"github.com/yourorg/catalogapi/internal/security/auth"
	"github.com/yourorg/catalogapi/internal/security/ratelimit"
	"github.com/yourorg/catalogapi/internal/service"
)

// TestHealthEndpoint verifies the liveness endpoint
func TestHealthEndpoint(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL() + "/healthz")
	if err != nil {
		t.Fatalf("Health check failed: %v", err)
	}
	defer resp.Body.Close()

	AssertStatusCode(t, resp, http.StatusOK)
	AssertContentType(t, resp, "application/json")

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode health body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %q", body["status"])
	}
}

// TestReadinessEndpoint verifies readiness with all backends answering
func TestReadinessEndpoint(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL() + "/readyz")
	if err != nil {
		t.Fatalf("Readiness check failed: %v", err)
	}
	defer resp.Body.Close()

	AssertStatusCode(t, resp, http.StatusOK)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode readiness body: %v", err)
	}
	if body.Status != "ready" {
		t.Errorf("Expected status ready, got %q", body.Status)
	}
	if body.Checks["postgres"] != "ok" || body.Checks["cache"] != "ok" {
		t.Errorf("Expected both backends ok, got %v", body.Checks)
	}
}

// TestReadinessEndpointReportsDatabaseOutage verifies the 503 path
func TestReadinessEndpointReportsDatabaseOutage(t *testing.T) {
	down := handler.PingerFunc(func(context.Context) error {
		return errors.New("connection refused")
	})
	healthy := handler.PingerFunc(func(context.Context) error { return nil })
	server := NewTestServerWithPingers(t, down, healthy)
	defer server.Close()

	resp, err := http.Get(server.URL() + "/readyz")
	if err != nil {
		t.Fatalf("Readiness check failed: %v", err)
	}
	defer resp.Body.Close()

	AssertStatusCode(t, resp, http.StatusServiceUnavailable)

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode readiness body: %v", err)
	}
	if body.Status != "not_ready" {
		t.Errorf("Expected status not_ready, got %q", body.Status)
	}
}

// TestMetricsEndpoint verifies Prometheus metrics endpoint
func TestMetricsEndpoint(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL() + "/metrics")
	if err != nil {
		t.Fatalf("Metrics endpoint failed: %v", err)
	}
	defer resp.Body.Close()

	AssertStatusCode(t, resp, http.StatusOK)
	AssertContentType(t, resp, "text/plain")

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "go_goroutines") {
		t.Errorf("Expected runtime metrics in exposition, got %d bytes", len(body))
	}
}

// TestLoginEndpoint verifies credential checks and token issuance
func TestLoginEndpoint(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	hash, err := service.HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	repo := &loginUserRepo{users: map[string]*domain.User{
		"alice": {ID: 1, Username: "alice", PasswordHash: hash, Roles: []string{string(domain.RoleAdmin)}},
	}}
	tokenManager := auth.NewTokenManager("test-secret", "catalogapi-test")
	authService := service.NewAuthService(repo, tokenManager, time.Hour, server.Logger)
	limiter := ratelimit.NewLimiter(100, time.Minute)
	defer limiter.Stop()
	server.AddLoginHandler(authService, limiter)

	resp, err := http.Post(server.URL()+"/api/login", "application/json",
		strings.NewReader(`{"username":"alice","password":"secret123"}`))
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()

	AssertStatusCode(t, resp, http.StatusOK)

	var result service.LoginResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode login result: %v", err)
	}
	if result.Token == "" || result.TokenType != "Bearer" {
		t.Errorf("Expected bearer token, got %+v", result)
	}

	resp, err = http.Post(server.URL()+"/api/login", "application/json",
		strings.NewReader(`{"username":"alice","password":"wrong"}`))
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()
	AssertStatusCode(t, resp, http.StatusUnauthorized)
}

// TestCustomerCRUDFlow exercises the full API against Postgres and redis
func TestCustomerCRUDFlow(t *testing.T) {
	t.Skip("Integration test requires running server - use docker-compose up")
}

// TestCacheInvalidationAcrossInstances verifies shared redis invalidation
func TestCacheInvalidationAcrossInstances(t *testing.T) {
	t.Skip("Integration test requires running server - use docker-compose up")
}
