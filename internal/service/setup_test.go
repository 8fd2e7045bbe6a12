package service

import (
	"context"
	"testing"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/events"
	"github.com/Stewz00/go-backoffice-service/internal/lib/logger"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/ratelimit"
	"github.com/Stewz00/go-backoffice-service/internal/test"
)

const testSecret = "test-secret"

type authFixture struct {
	auth    *AuthService
	users   *test.MockUserRepository
	events  *test.MockEventRepository
	limiter *ratelimit.Limiter
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	log := logger.Discard()
	users := test.NewMockUserRepository()
	outbox := test.NewMockEventRepository()
	limiter := ratelimit.NewLimiter(test.NewMockRateLimitStore(), nil)

	auth := NewAuthService(log, users, users, limiter, testSecret, 24*time.Hour).
		WithEvents(events.NewRecorder(outbox, log))

	return &authFixture{auth: auth, users: users, events: outbox, limiter: limiter}
}

// register creates a user directly and returns it with the plain password.
func (f *authFixture) register(t *testing.T, email string) *model.User {
	t.Helper()
	user, err := f.auth.Register(context.Background(), "Test User", email, "password123")
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}
