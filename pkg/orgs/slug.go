package orgs

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
)

const (
	slugMinLength = 3
	slugMaxLength = 50

	joinCodeLength = 8
)

// slugPattern matches lowercase alphanumeric segments joined by single
// hyphens, no leading or trailing hyphen.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// joinCodeAlphabet deliberately omits ambiguous characters (0/O, 1/I/L)
// since join codes are typed from posters and chat messages.
const joinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// NormalizeSlug lowercases and trims a slug candidate. Validation is
// separate; normalization never fails.
func NormalizeSlug(candidate string) string {
	return strings.ToLower(strings.TrimSpace(candidate))
}

// ValidateSlug checks a normalized slug against the format rules
func ValidateSlug(slug string) error {
	if len(slug) < slugMinLength || len(slug) > slugMaxLength {
		return fmt.Errorf("%w: must be %d-%d characters", ErrInvalidSlug, slugMinLength, slugMaxLength)
	}
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("%w: lowercase letters, digits and single hyphens only", ErrInvalidSlug)
	}
	return nil
}

// generateJoinCode returns a random join code candidate. Uniqueness is
// enforced by the caller against the organizations table.
func generateJoinCode() (string, error) {
	buf := make([]byte, joinCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate join code: %w", err)
	}
	code := make([]byte, joinCodeLength)
	for i, b := range buf {
		code[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(code), nil
}

// NormalizeJoinCode uppercases and trims a join code as entered by a user
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
