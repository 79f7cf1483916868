package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Service orchestrates register, login, refresh, logout, and current-user
// lookups over the user and session stores.
type Service struct {
	users    UserStore
	sessions SessionStore
	codec    *TokenCodec
}

func NewService(users UserStore, sessions SessionStore, codec *TokenCodec) *Service {
	return &Service{users: users, sessions: sessions, codec: codec}
}

func (s *Service) Codec() *TokenCodec { return s.codec }

func (s *Service) Register(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		return Session{}, ErrInvalidEmail
	}
	if err := CheckPassword(password); err != nil {
		return Session{}, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return Session{}, err
	}

	user, err := s.users.CreateUser(ctx, strings.ToLower(email), hash)
	if err != nil {
		return Session{}, err
	}

	return s.issueSession(ctx, user)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}

	user, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Same error as a wrong password so the response does not
			// reveal which field was wrong.
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	if !CheckPasswordHash(password, user.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}

	return s.issueSession(ctx, user)
}

// Refresh redeems presented and, on success, rotates it: the old record is
// destroyed and a brand new session is issued. Redemption is atomic per token
// id, so a concurrent redemption of the same token fails with
// ErrInvalidRefreshToken.
func (s *Service) Refresh(ctx context.Context, presented string) (Session, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return Session{}, ErrInvalidRefreshToken
	}

	claims, err := s.codec.VerifyRefresh(presented)
	if err != nil {
		return Session{}, ErrInvalidRefreshToken
	}

	userID, err := s.sessions.RedeemRefreshToken(ctx, claims.TokenID, presented, time.Now())
	if err != nil {
		return Session{}, err
	}

	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Session{}, ErrInvalidRefreshToken
		}
		return Session{}, err
	}

	return s.issueSession(ctx, user)
}

// Logout revokes the presented token's record. It is best-effort: an absent,
// malformed, or already-revoked token is not an error, because the caller's
// goal (no live session) holds either way.
func (s *Service) Logout(ctx context.Context, presented string) error {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil
	}

	claims, err := s.codec.VerifyRefresh(presented)
	if err != nil {
		return nil
	}

	return s.sessions.DeleteRefreshToken(ctx, claims.TokenID)
}

// CurrentUser resolves an access token to its user. Verification is
// stateless; the session store is never consulted here.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (PublicUser, error) {
	claims, err := s.codec.VerifyAccess(accessToken)
	if err != nil {
		return PublicUser{}, ErrUnauthenticated
	}

	user, err := s.users.UserByID(ctx, claims.UserID)
	if err != nil {
		return PublicUser{}, err
	}

	public := user.Public()
	createdAt := user.CreatedAt
	public.CreatedAt = &createdAt
	return public, nil
}

// issueSession creates the refresh record first so its id can be embedded in
// the signed token, then patches the record with the exact token string used
// for redemption-time comparison.
func (s *Service) issueSession(ctx context.Context, user User) (Session, error) {
	record, err := s.sessions.CreateRefreshToken(ctx, user.ID, time.Now().UTC().Add(s.codec.RefreshTTL()))
	if err != nil {
		return Session{}, fmt.Errorf("create refresh token record: %w", err)
	}

	refresh, err := s.codec.SignRefresh(user.ID, record.ID)
	if err != nil {
		return Session{}, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := s.sessions.SetRefreshTokenValue(ctx, record.ID, refresh); err != nil {
		return Session{}, fmt.Errorf("store refresh token value: %w", err)
	}

	access, err := s.codec.SignAccess(user.ID, user.Email)
	if err != nil {
		return Session{}, fmt.Errorf("sign access token: %w", err)
	}

	return Session{
		User:         user.Public(),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
