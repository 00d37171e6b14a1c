package service

import (
	"context"
	"errors"
	"time"

	"achievehub/internal/auth"
	"achievehub/internal/config"
	"achievehub/internal/crypto"
	"achievehub/internal/model"
	"achievehub/internal/repository"
)

var (
	ErrUserExists = errors.New("user_exists")

	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password, so a caller cannot probe which addresses are registered.
	ErrInvalidCredentials = errors.New("invalid_credentials")
)

// UserStore is the slice of the credential store the authenticator needs.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	CreateUser(ctx context.Context, name, email, passwordHash, role string) (model.User, error)
}

// Authenticator orchestrates registration and login and issues session
// tokens over the resulting identity snapshot.
type Authenticator struct {
	store    UserStore
	secret   string
	issuer   string
	tokenTTL time.Duration
}

func NewAuthenticator(store UserStore, cfg config.Config) *Authenticator {
	return &Authenticator{
		store:    store,
		secret:   cfg.JWTSecret,
		issuer:   cfg.JWTIssuer,
		tokenTTL: cfg.SessionTokenTTL,
	}
}

func (a *Authenticator) Register(ctx context.Context, name, email, password string) (string, error) {
	_, err := a.store.GetUserByEmail(ctx, email)
	if err == nil {
		return "", ErrUserExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return "", err
	}

	user, err := a.store.CreateUser(ctx, name, email, hash, model.RoleStudent)
	if err != nil {
		// The uniqueness constraint decides concurrent registrations;
		// the precheck above only catches the common case early.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return "", ErrUserExists
		}
		return "", err
	}

	return auth.NewSessionToken(a.secret, a.issuer, a.tokenTTL, user)
}

func (a *Authenticator) Login(ctx context.Context, email, password string) (string, error) {
	user, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := crypto.CheckPassword(user.PasswordHash, password); err != nil {
		return "", ErrInvalidCredentials
	}

	return auth.NewSessionToken(a.secret, a.issuer, a.tokenTTL, user)
}
