package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements UserStore and SessionStore in process memory. It is
// used by tests and by local development without a database. A single mutex
// covers every operation, which trivially gives RedeemRefreshToken the per-id
// atomicity the SessionStore contract requires.
type MemoryStore struct {
	mu           sync.Mutex
	usersByID    map[string]User
	usersByEmail map[string]string
	tokens       map[string]RefreshTokenRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		usersByID:    make(map[string]User),
		usersByEmail: make(map[string]string),
		tokens:       make(map[string]RefreshTokenRecord),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, email, passwordHash string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByEmail[email]; exists {
		return User{}, ErrEmailTaken
	}

	id, err := uuid.NewV7()
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           id.String(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.usersByID[user.ID] = user
	s.usersByEmail[email] = user.ID
	return user, nil
}

func (s *MemoryStore) UserByEmail(_ context.Context, email string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.usersByEmail[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return s.usersByID[id], nil
}

func (s *MemoryStore) UserByID(_ context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *MemoryStore) CreateRefreshToken(_ context.Context, userID string, expiresAt time.Time) (RefreshTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := uuid.NewV7()
	if err != nil {
		return RefreshTokenRecord{}, err
	}

	record := RefreshTokenRecord{
		ID:        id.String(),
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	s.tokens[record.ID] = record
	return record, nil
}

func (s *MemoryStore) SetRefreshTokenValue(_ context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tokens[id]
	if !ok {
		return ErrInvalidRefreshToken
	}
	record.Token = token
	s.tokens[id] = record
	return nil
}

func (s *MemoryStore) RefreshTokenByID(_ context.Context, id string) (RefreshTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tokens[id]
	if !ok {
		return RefreshTokenRecord{}, ErrInvalidRefreshToken
	}
	return record, nil
}

func (s *MemoryStore) RedeemRefreshToken(_ context.Context, id, presented string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tokens[id]
	if !ok {
		return "", ErrInvalidRefreshToken
	}

	delete(s.tokens, id)

	if record.Token != presented || !now.UTC().Before(record.ExpiresAt) {
		return "", ErrInvalidRefreshToken
	}
	return record.UserID, nil
}

func (s *MemoryStore) DeleteRefreshToken(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, id)
	return nil
}

func (s *MemoryStore) DeleteRefreshTokensForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, record := range s.tokens {
		if record.UserID == userID {
			delete(s.tokens, id)
		}
	}
	return nil
}
