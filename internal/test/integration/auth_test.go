//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/Stewz00/go-backoffice-service/internal/app"
	"github.com/Stewz00/go-backoffice-service/internal/config"
	"github.com/Stewz00/go-backoffice-service/internal/lib/logger"
	"github.com/joho/godotenv"
)

func init() {
	if err := godotenv.Load("../../../.env.test"); err != nil {
		fmt.Printf("Warning: .env.test file not found: %v\n", err)
	}
}

// setupApp builds the full application against DATABASE_URL with an empty schema.
func setupApp(t *testing.T) *app.App {
	t.Helper()

	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL environment variable is not set")
	}
	if os.Getenv("PORT") == "" {
		t.Setenv("PORT", "8081")
	}
	if os.Getenv("JWT_SECRET") == "" {
		t.Setenv("JWT_SECRET", "test-secret")
	}
	t.Setenv("AUTO_MIGRATE", "true")
	t.Setenv("RATE_LIMIT_BACKEND", "postgres")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("SMTP_HOST", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	a, err := app.New(context.Background(), logger.Discard(), cfg)
	if err != nil {
		t.Fatalf("failed to start application: %v", err)
	}
	t.Cleanup(func() { a.Stop(context.Background()) })

	_, err = a.DB.Pool.Exec(context.Background(),
		"TRUNCATE users, sessions, two_factor_tokens, rate_limits, events RESTART IDENTITY CASCADE")
	if err != nil {
		t.Fatalf("failed to clean up test data: %v", err)
	}

	return a
}

func post(t *testing.T, h http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRegisterLoginLogoutFlow(t *testing.T) {
	a := setupApp(t)

	user := map[string]string{
		"username": "Integration User",
		"email":    "integration@test.com",
		"password": "testpassword123",
	}

	var token string

	t.Run("register", func(t *testing.T) {
		w := post(t, a.Router, "/auth/register", "", user)
		if w.Code != http.StatusCreated {
			t.Errorf("expected status %d, got %d", http.StatusCreated, w.Code)
		}
	})

	t.Run("login", func(t *testing.T) {
		w := post(t, a.Router, "/auth/login", "", user)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var response struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		token = response.Token

		if token == "" {
			t.Error("expected token in response, got empty string")
		}
	})

	t.Run("logout", func(t *testing.T) {
		w := post(t, a.Router, "/auth/logout", token, nil)
		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}
	})

	t.Run("token invalid after logout", func(t *testing.T) {
		w := post(t, a.Router, "/auth/logout", token, nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
		}
	})
}

func TestLoginThrottle(t *testing.T) {
	a := setupApp(t)

	user := map[string]string{
		"username": "Throttle User",
		"email":    "throttle@test.com",
		"password": "testpassword123",
	}
	if w := post(t, a.Router, "/auth/register", "", user); w.Code != http.StatusCreated {
		t.Fatalf("failed to register test user: got status %d", w.Code)
	}

	wrong := map[string]string{"email": user["email"], "password": "wrongpassword"}
	for i := 0; i < 5; i++ {
		if w := post(t, a.Router, "/auth/login", "", wrong); w.Code != http.StatusUnauthorized {
			t.Errorf("attempt %d: expected status %d, got %d", i+1, http.StatusUnauthorized, w.Code)
		}
	}

	// The window is full, so even the right password is rejected.
	w := post(t, a.Router, "/auth/login", "", user)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, w.Code)
	}

	var response struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Error != "too many attempts, try again later" {
		t.Errorf("unexpected error message: %s", response.Error)
	}
}
