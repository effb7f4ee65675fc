// Package auth issues and checks session tokens.
//
// Login trades a Basic-style credential blob for a random session token
// stored on the user record. Every later request presents that token as
// a bearer credential. Each user holds at most one live token: a new login
// overwrites the previous one.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/padraicbc/todoapi/metrics"
	"github.com/padraicbc/todoapi/models"
	"github.com/padraicbc/todoapi/store"
)

// maxPasswordBytes is the longest input bcrypt hashes.
const maxPasswordBytes = 72

// CredentialStore is the account storage the authenticator depends on.
// Find methods return (nil, nil) when nothing matches.
type CredentialStore interface {
	Register(ctx context.Context, username, password string) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindBySessionToken(ctx context.Context, token string) (*models.User, error)
	SetSessionToken(ctx context.Context, username, token string) error
}

// RegisterRequest is the body of a registration call.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Authenticator gates protected operations behind session tokens.
// It is safe for concurrent use.
type Authenticator struct {
	store CredentialStore
	log   *zap.Logger
	cost  int

	dummyOnce sync.Once
	dummyHash []byte
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithCost sets the bcrypt cost the store hashes passwords with.
// It must match the store's cost for unknown-user logins to take as long
// as wrong-password logins.
func WithCost(cost int) Option {
	return func(a *Authenticator) { a.cost = cost }
}

// New returns an Authenticator over store.
func New(store CredentialStore, log *zap.Logger, opts ...Option) *Authenticator {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Authenticator{store: store, log: log.Named("auth"), cost: bcrypt.DefaultCost}
	for _, fn := range opts {
		fn(a)
	}
	return a
}

// equalizeTiming burns one bcrypt comparison so that a login for an unknown
// user takes as long as a login with a wrong password.
func (a *Authenticator) equalizeTiming(password string) {
	a.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("dummy-password"), a.cost)
		if err != nil {
			a.log.Error("build dummy hash failed", zap.Int("cost", a.cost), zap.Error(err))
			return
		}
		a.dummyHash = hash
	})
	_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(password))
}

// Login verifies the credential blob in header and returns a fresh session
// token, replacing any token the user held before.
func (a *Authenticator) Login(ctx context.Context, header string) (token string, err error) {
	defer func() { observe("login", err) }()

	username, password, err := ParseCredentialBlob(header)
	if err != nil {
		return "", err
	}

	user, err := a.store.FindByUsername(ctx, username)
	if err != nil {
		a.log.Error("login lookup failed", zap.String("username", username), zap.Error(err))
		return "", fmt.Errorf("login: %w", err)
	}
	if user == nil || user.Username != username {
		a.equalizeTiming(password)
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err = NewSessionToken()
	if err != nil {
		return "", err
	}
	if err := a.store.SetSessionToken(ctx, username, token); err != nil {
		a.log.Error("store session token failed", zap.String("username", username), zap.Error(err))
		return "", fmt.Errorf("login: %w", err)
	}

	a.log.Debug("login", zap.String("username", username))
	return token, nil
}

// Authorize resolves the bearer token in header to a username.
func (a *Authenticator) Authorize(ctx context.Context, header string) (username string, err error) {
	defer func() { observe("authorize", err) }()

	token, err := ParseBearer(header)
	if err != nil {
		return "", err
	}

	user, err := a.store.FindBySessionToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrTokenCollision) {
			a.log.Error("session token shared by several users")
			return "", ErrInvalidSession
		}
		a.log.Error("session lookup failed", zap.Error(err))
		return "", fmt.Errorf("authorize: %w", err)
	}
	if user == nil {
		return "", ErrInvalidSession
	}
	return user.Username, nil
}

// Register validates req and creates the account. No token is issued;
// the client logs in separately.
func (a *Authenticator) Register(ctx context.Context, req RegisterRequest) (err error) {
	defer func() { observe("register", err) }()

	// Login matches usernames byte for byte, so a stored name must be
	// exactly what the client will send back.
	username := req.Username
	switch {
	case strings.TrimSpace(username) == "", req.Password == "":
		return fmt.Errorf("%w: username and password are required", ErrInvalidRegistration)
	case username != strings.TrimSpace(username):
		return fmt.Errorf("%w: username must not start or end with whitespace", ErrInvalidRegistration)
	case strings.Contains(username, ":"):
		return fmt.Errorf("%w: username must not contain ':'", ErrInvalidRegistration)
	case len(req.Password) > maxPasswordBytes:
		return fmt.Errorf("%w: password too long", ErrInvalidRegistration)
	}

	if err := a.store.Register(ctx, username, req.Password); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateUser):
			a.log.Info("duplicate registration", zap.String("username", username))
			return err
		case errors.Is(err, store.ErrPasswordTooLong):
			return fmt.Errorf("%w: password too long", ErrInvalidRegistration)
		}
		a.log.Error("register failed", zap.String("username", username), zap.Error(err))
		return fmt.Errorf("register: %w", err)
	}

	a.log.Info("registered user", zap.String("username", username))
	return nil
}

func observe(op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidSession):
		outcome = "rejected"
	case errors.Is(err, ErrMalformedCredentials), errors.Is(err, ErrMissingCredentials),
		errors.Is(err, ErrInvalidRegistration), errors.Is(err, store.ErrDuplicateUser):
		outcome = "bad_request"
	case errors.Is(err, store.ErrStoreUnavailable):
		outcome = "unavailable"
	default:
		outcome = "error"
	}
	metrics.AuthAttempts.WithLabelValues(op, outcome).Inc()
}
