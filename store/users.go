package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	"github.com/padraicbc/todoapi/models"
)

// Users reads and writes accounts in the userdb table.
// It is safe for concurrent use; the underlying bun.IDB pools connections.
type Users struct {
	db      bun.IDB
	timeout time.Duration
	cost    int
}

// Option configures a store.
type Option func(*options)

type options struct {
	timeout time.Duration
	cost    int
}

// WithTimeout bounds every store call.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithCost sets the bcrypt cost used by Register.
func WithCost(cost int) Option {
	return func(o *options) { o.cost = cost }
}

func buildOptions(opts []Option) options {
	o := options{timeout: DefaultTimeout, cost: bcrypt.DefaultCost}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// NewUsers returns a Users store backed by db.
func NewUsers(db bun.IDB, opts ...Option) *Users {
	o := buildOptions(opts)
	return &Users{db: db, timeout: o.timeout, cost: o.cost}
}

// Register hashes password and inserts a new account.
// The row of an existing username is never touched.
func (s *Users) Register(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return ErrPasswordTooLong
		}
		return fmt.Errorf("hash password: %w", err)
	}

	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	user := &models.User{Username: username, PasswordHash: string(hash)}
	if _, err := s.db.NewInsert().Model(user).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return classify(ctx, "register user", err)
	}
	return nil
}

// FindByUsername returns the account with exactly this username,
// or (nil, nil) if there is none.
func (s *Users) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	user := &models.User{}
	err := s.db.NewSelect().Model(user).
		Where("username = ?", username).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(ctx, "find user by username", err)
	}
	return user, nil
}

// FindBySessionToken returns the account currently holding token,
// or (nil, nil) if there is none.
func (s *Users) FindBySessionToken(ctx context.Context, token string) (*models.User, error) {
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	var users []models.User
	err := s.db.NewSelect().Model(&users).
		Where("session_token = ?", token).
		Limit(2).
		Scan(ctx)
	if err != nil {
		return nil, classify(ctx, "find user by session token", err)
	}
	switch len(users) {
	case 0:
		return nil, nil
	case 1:
		return &users[0], nil
	default:
		return nil, ErrTokenCollision
	}
}

// SetSessionToken overwrites the stored token for username.
// Concurrent callers race on a single-row update; the last write wins.
func (s *Users) SetSessionToken(ctx context.Context, username, token string) error {
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	res, err := s.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("session_token = ?", token).
		Where("username = ?", username).
		Exec(ctx)
	if err != nil {
		return classify(ctx, "set session token", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set session token: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
