package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository implements UserStore and SessionStore on Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return User{}, fmt.Errorf("generate user id: %w", err)
	}

	now := time.Now().UTC()

	var user User
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, email, password_hash, created_at
	`, id.String(), email, passwordHash, now).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}

func (r *Repository) UserByEmail(ctx context.Context, email string) (User, error) {
	return r.userBy(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE email = $1
	`, email)
}

func (r *Repository) UserByID(ctx context.Context, id string) (User, error) {
	return r.userBy(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE id = $1
	`, id)
}

func (r *Repository) userBy(ctx context.Context, query, arg string) (User, error) {
	var user User
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

func (r *Repository) CreateRefreshToken(ctx context.Context, userID string, expiresAt time.Time) (RefreshTokenRecord, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return RefreshTokenRecord{}, fmt.Errorf("generate refresh token id: %w", err)
	}

	record := RefreshTokenRecord{
		ID:        id.String(),
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at)
		VALUES ($1, $2, '', $3, $4)
	`, record.ID, record.UserID, record.ExpiresAt, record.CreatedAt)
	if err != nil {
		return RefreshTokenRecord{}, fmt.Errorf("insert refresh token: %w", err)
	}

	return record, nil
}

func (r *Repository) SetRefreshTokenValue(ctx context.Context, id, token string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET token = $2
		WHERE id = $1
	`, id, token)
	if err != nil {
		return fmt.Errorf("set refresh token value: %w", err)
	}
	return nil
}

func (r *Repository) RefreshTokenByID(ctx context.Context, id string) (RefreshTokenRecord, error) {
	var record RefreshTokenRecord
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, expires_at, created_at
		FROM refresh_tokens
		WHERE id = $1
	`, id).Scan(&record.ID, &record.UserID, &record.Token, &record.ExpiresAt, &record.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RefreshTokenRecord{}, ErrInvalidRefreshToken
		}
		return RefreshTokenRecord{}, fmt.Errorf("query refresh token: %w", err)
	}
	return record, nil
}

// RedeemRefreshToken locks the row, compares the stored token string to the
// presented one exactly, checks expiry, and deletes the row in the same
// transaction. The row lock is what serializes two concurrent redemptions of
// the same token: the loser observes the winner's delete as sql.ErrNoRows.
func (r *Repository) RedeemRefreshToken(ctx context.Context, id, presented string, now time.Time) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin redeem tx: %w", err)
	}
	defer tx.Rollback()

	var userID, stored string
	var expiresAt time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT user_id, token, expires_at
		FROM refresh_tokens
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&userID, &stored, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrInvalidRefreshToken
		}
		return "", fmt.Errorf("read refresh token: %w", err)
	}

	// The row is deleted on every outcome: redeemed tokens are single-use,
	// and mismatched or expired rows are stale and must not be replayable.
	if _, err := tx.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id); err != nil {
		return "", fmt.Errorf("delete refresh token: %w", err)
	}

	valid := stored == presented && now.UTC().Before(expiresAt.UTC())

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit redeem tx: %w", err)
	}

	if !valid {
		return "", ErrInvalidRefreshToken
	}
	return userID, nil
}

func (r *Repository) DeleteRefreshToken(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (r *Repository) DeleteRefreshTokensForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete refresh tokens for user: %w", err)
	}
	return nil
}

// DeleteExpiredRefreshTokens removes rows whose expiry has passed, in batches,
// for the maintenance cleanup endpoint.
func (r *Repository) DeleteExpiredRefreshTokens(ctx context.Context, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	res, err := r.db.ExecContext(ctx, `
		WITH stale AS (
			SELECT id
			FROM refresh_tokens
			WHERE expires_at < NOW()
			ORDER BY created_at ASC
			LIMIT $1
		)
		DELETE FROM refresh_tokens t
		USING stale
		WHERE t.id = stale.id
	`, batchSize)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired refresh tokens rows affected: %w", err)
	}

	return affected, nil
}
