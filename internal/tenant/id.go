// Package tenant holds tenant (app) identity rules and per-tenant locking.
package tenant

import (
	"errors"
	"regexp"
	"strings"
)

const (
	// MinIDLength and MaxIDLength bound an app id, inclusive.
	MinIDLength = 2
	MaxIDLength = 50
)

var (
	// ErrInvalidCharacters is returned for ids outside [a-z0-9-] after lowercasing.
	ErrInvalidCharacters = errors.New("appId must contain only letters, numbers, and dashes")
	// ErrInvalidLength is returned for ids shorter than 2 or longer than 50.
	ErrInvalidLength = errors.New("appId must be between 2 and 50 characters")
)

var idPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// NormalizeID lowercases and validates an app id.
func NormalizeID(raw string) (string, error) {
	id := strings.ToLower(raw)
	if !idPattern.MatchString(id) {
		return "", ErrInvalidCharacters
	}
	if len(id) < MinIDLength || len(id) > MaxIDLength {
		return "", ErrInvalidLength
	}
	return id, nil
}
