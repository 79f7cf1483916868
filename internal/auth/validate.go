package auth

import (
	"fmt"
	"regexp"
	"unicode"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s has a generic local@domain.tld shape. It does
// not normalize; lowercasing happens in the service.
func ValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// WeakPasswordError carries the first violated strength rule.
type WeakPasswordError struct {
	Reason string
}

func (e *WeakPasswordError) Error() string {
	return fmt.Sprintf("weak password: %s", e.Reason)
}

// CheckPassword enforces the strength rule: length >= 8 and at least one
// uppercase letter or one non-alphanumeric character. Length is checked first
// so the reported reason is deterministic.
func CheckPassword(s string) error {
	if len(s) < 8 {
		return &WeakPasswordError{Reason: "password must be at least 8 characters long"}
	}
	for _, r := range s {
		if unicode.IsUpper(r) || (!unicode.IsLetter(r) && !unicode.IsDigit(r)) {
			return nil
		}
	}
	return &WeakPasswordError{Reason: "password must contain an uppercase letter or a special character"}
}
