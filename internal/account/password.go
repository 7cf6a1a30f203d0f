package account

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidUsername    = errors.New("username must be 3-20 characters of letters, digits, '_', '.' or '-'")
	ErrReservedUsername   = errors.New("username is reserved")
	ErrWeakPassword       = errors.New("password must be at least 8 characters long and contain an uppercase letter")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInactive           = errors.New("account is disabled")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,20}$`)

// reserved handles are rejected case-insensitively.
var reserved = map[string]struct{}{
	"admin":         {},
	"administrator": {},
	"root":          {},
	"system":        {},
	"moderator":     {},
	"support":       {},
	"staff":         {},
	"official":      {},
	"sysadmin":      {},
	"superuser":     {},
}

func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	if _, ok := reserved[strings.ToLower(username)]; ok {
		return ErrReservedUsername
	}
	return nil
}

// ValidatePassword requires 8+ characters and one uppercase letter. bcrypt
// only reads the first 72 bytes, so anything longer is refused.
func ValidatePassword(password string) error {
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	if len([]rune(password)) < 8 {
		return ErrWeakPassword
	}
	for _, r := range password {
		if unicode.IsUpper(r) {
			return nil
		}
	}
	return ErrWeakPassword
}

// HashPassword returns a bcrypt hash at bcrypt.DefaultCost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares in constant time.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
