package users

import (
	"context"
	"time"

	"mixtape/internal/store"
)

// Store describes the account operations required by the user service.
type Store interface {
	CreateUser(ctx context.Context, username, password, firstName, image string) error
	Authenticate(ctx context.Context, username, password string) (store.User, error)
	Profile(ctx context.Context, username string) (store.User, error)
}

// Tokens issues session tokens for authenticated users.
type Tokens interface {
	Issue(subject string) (string, time.Time, error)
}

// Session is the result of a successful login.
type Session struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      store.User `json:"user"`
}

// Service exposes user-related workflows.
type Service interface {
	Signup(ctx context.Context, username, password, firstName, image string) error
	Authenticate(ctx context.Context, username, password string) (Session, error)
	Profile(ctx context.Context, username string) (store.User, error)
}

type service struct {
	store  Store
	tokens Tokens
}

// New wires a Service backed by the provided Store and token issuer.
func New(store Store, tokens Tokens) Service {
	return &service{store: store, tokens: tokens}
}

func (s *service) Signup(ctx context.Context, username, password, firstName, image string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.CreateUser(ctx, username, password, firstName, image)
}

func (s *service) Authenticate(ctx context.Context, username, password string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	user, err := s.store.Authenticate(ctx, username, password)
	if err != nil {
		return Session{}, err
	}
	token, expires, err := s.tokens.Issue(user.Username)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expires, User: user}, nil
}

func (s *service) Profile(ctx context.Context, username string) (store.User, error) {
	if err := ctx.Err(); err != nil {
		return store.User{}, err
	}
	return s.store.Profile(ctx, username)
}
