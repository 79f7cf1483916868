package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"first.last@sub.example.co", true},
		{"USER@EXAMPLE.COM", true},
		{"", false},
		{"plainaddress", false},
		{"@example.com", false},
		{"user@", false},
		{"user@example", false},
		{"user name@example.com", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidEmail(tt.email), "email %q", tt.email)
	}
}

func TestCheckPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"too short even with uppercase", "Ab1!", true},
		{"seven chars", "Abcdef!", true},
		{"long but lowercase alphanumeric", "lowercase1", true},
		{"uppercase satisfies", "Lowercase1", false},
		{"special character satisfies", "lowercase!", false},
		{"both satisfy", "Str0ng!pass", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPassword(tt.password)
			if tt.wantErr {
				var weak *WeakPasswordError
				require.ErrorAs(t, err, &weak)
				assert.NotEmpty(t, weak.Reason)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckPasswordLengthCheckedFirst(t *testing.T) {
	err := CheckPassword("ab")

	var weak *WeakPasswordError
	require.ErrorAs(t, err, &weak)
	assert.Contains(t, weak.Reason, "8 characters")
}
