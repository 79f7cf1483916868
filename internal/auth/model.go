package auth

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// PublicUser is the client-facing projection of a User. CreatedAt is only
// populated on the /auth/me path.
type PublicUser struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email}
}

// RefreshTokenRecord is one outstanding refresh-token grant. Token holds the
// exact signed string handed to the client; it is empty between record
// creation and the follow-up SetRefreshTokenValue call, because the token
// payload embeds the record's own id.
type RefreshTokenRecord struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Session is the result of a successful register, login, or refresh.
type Session struct {
	User         PublicUser
	AccessToken  string
	RefreshToken string
}
