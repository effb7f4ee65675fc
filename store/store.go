// Package store is the database access layer for accounts and tasks.
//
// Every call is bounded by a per-store timeout. Timeouts and connection
// failures surface as ErrStoreUnavailable so callers can tell an
// unreachable database apart from a missing row.
package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/uptrace/bun/driver/pgdriver"
)

// DefaultTimeout bounds a single store call when no timeout is configured.
const DefaultTimeout = 5 * time.Second

var (
	// ErrStoreUnavailable means the database did not answer in time or the
	// connection failed.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrDuplicateUser is returned by Register when the username is taken.
	ErrDuplicateUser = errors.New("duplicate user")
	// ErrUserNotFound is returned by SetSessionToken when no row matched.
	ErrUserNotFound = errors.New("user not found")
	// ErrTokenCollision means more than one account holds the same token.
	ErrTokenCollision = errors.New("session token held by more than one user")
	// ErrPasswordTooLong is returned for passwords bcrypt cannot hash.
	ErrPasswordTooLong = errors.New("password longer than 72 bytes")
)

const uniqueViolation = "23505"

// classify maps driver and context errors onto the store error set.
// ctx must be the bounded context the failed call ran under.
func classify(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
	if errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation
}

func bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
