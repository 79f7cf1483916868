package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidEmail        = errors.New("email format is invalid")
	ErrEmailTaken          = errors.New("email is already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUnauthenticated     = errors.New("missing or invalid access token")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrUserNotFound        = errors.New("user not found")
)

// UserStore persists identity records. Emails are lowercase-normalized by the
// service before they reach the store.
type UserStore interface {
	// CreateUser inserts a new user and returns it. Returns ErrEmailTaken if
	// a user with the same email already exists.
	CreateUser(ctx context.Context, email, passwordHash string) (User, error)

	// UserByEmail returns ErrUserNotFound when no such user exists.
	UserByEmail(ctx context.Context, email string) (User, error)

	// UserByID returns ErrUserNotFound when no such user exists.
	UserByID(ctx context.Context, id string) (User, error)
}

// SessionStore is the durable record of outstanding refresh-token grants and
// the source of truth for revocation. Implementations must provide per-id
// atomicity on RedeemRefreshToken: of two concurrent redemptions of the same
// id, exactly one may succeed.
type SessionStore interface {
	// CreateRefreshToken inserts a record with an empty token value. The
	// signed token embeds the record id, so the record has to exist before
	// the token string can be computed; SetRefreshTokenValue fills it in.
	CreateRefreshToken(ctx context.Context, userID string, expiresAt time.Time) (RefreshTokenRecord, error)

	SetRefreshTokenValue(ctx context.Context, id, token string) error

	// RefreshTokenByID returns ErrInvalidRefreshToken when the record is
	// absent.
	RefreshTokenByID(ctx context.Context, id string) (RefreshTokenRecord, error)

	// RedeemRefreshToken atomically loads the record, compares its stored
	// token string to presented byte-for-byte, checks expiry against now,
	// and deletes the record. It returns the owning user id on success.
	// A missing record, a token mismatch, or an expired record all return
	// ErrInvalidRefreshToken; mismatched and expired records are deleted so
	// a rotated-out token cannot be replayed.
	RedeemRefreshToken(ctx context.Context, id, presented string, now time.Time) (string, error)

	// DeleteRefreshToken removes one record. Deleting a non-existent record
	// is not an error.
	DeleteRefreshToken(ctx context.Context, id string) error

	// DeleteRefreshTokensForUser revokes every outstanding grant for a user.
	DeleteRefreshTokensForUser(ctx context.Context, userID string) error
}
