package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"achievehub/internal/auth"
	"achievehub/internal/config"
	"achievehub/internal/model"
	"achievehub/internal/repository"
)

// memStore enforces email uniqueness under a mutex, standing in for the
// database constraint.
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	byEmail map[string]model.User
}

func newMemStore() *memStore {
	return &memStore{byEmail: map[string]model.User{}}
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byEmail[email]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (m *memStore) CreateUser(_ context.Context, name, email, passwordHash, role string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return model.User{}, repository.ErrDuplicateEmail
	}
	m.nextID++
	user := model.User{
		ID:           m.nextID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	m.byEmail[email] = user
	return user, nil
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:       "test-secret",
		JWTIssuer:       "test-issuer",
		SessionTokenTTL: time.Hour,
	}
}

func TestRegisterThenLogin(t *testing.T) {
	cfg := testConfig()
	authn := NewAuthenticator(newMemStore(), cfg)
	ctx := context.Background()

	token, err := authn.Register(ctx, "Ada", "ada@example.local", "password123")
	if err != nil {
		t.Fatalf("register error: %v", err)
	}
	claims, err := auth.ParseToken(cfg.JWTSecret, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.Email != "ada@example.local" || claims.Role != model.RoleStudent {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	token, err = authn.Login(ctx, "ada@example.local", "password123")
	if err != nil {
		t.Fatalf("login error: %v", err)
	}
	claims, err = auth.ParseToken(cfg.JWTSecret, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.Email != "ada@example.local" {
		t.Fatalf("unexpected login claims: %+v", claims)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newMemStore()
	authn := NewAuthenticator(store, testConfig())
	ctx := context.Background()

	if _, err := authn.Register(ctx, "Ada", "ada@example.local", "password123"); err != nil {
		t.Fatalf("register error: %v", err)
	}
	if _, err := authn.Register(ctx, "Ada Again", "ada@example.local", "password456"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if len(store.byEmail) != 1 {
		t.Fatalf("expected a single user row, got %d", len(store.byEmail))
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	authn := NewAuthenticator(newMemStore(), testConfig())
	ctx := context.Background()

	if _, err := authn.Register(ctx, "Ada", "ada@example.local", "password123"); err != nil {
		t.Fatalf("register error: %v", err)
	}

	_, wrongPassword := authn.Login(ctx, "ada@example.local", "nope")
	_, unknownEmail := authn.Login(ctx, "nobody@example.local", "password123")

	if !errors.Is(wrongPassword, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", wrongPassword)
	}
	if !errors.Is(unknownEmail, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", unknownEmail)
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Fatalf("expected identical failures, got %q and %q", wrongPassword, unknownEmail)
	}
}

func TestConcurrentRegistration(t *testing.T) {
	authn := NewAuthenticator(newMemStore(), testConfig())
	ctx := context.Background()

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := authn.Register(ctx, "Ada", "ada@example.local", "password123")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		if !errors.Is(err, ErrUserExists) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one winner, got %d", succeeded)
	}
}
