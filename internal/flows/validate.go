package flows

import (
	"regexp"
	"unicode/utf8"
)

const (
	MaxEmailLength       = 254
	MaxNameLength        = 120
	MaxAffiliationLength = 255
	MinPasswordLength    = 8
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether email has a plausible address shape and fits
// the column limit. email must already be normalized.
func ValidEmail(email string) bool {
	return email != "" && len(email) <= MaxEmailLength && emailPattern.MatchString(email)
}

func checkPassword(password, confirm string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	return nil
}
