package license

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
)

const (
	codeAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeGroups    = 5
	codeGroupSize = 5
	codeSeparator = "-"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{5}(-[A-Z0-9]{5}){4}$`)

// NewCode returns a fresh activation code: five dash-separated groups of
// five characters drawn from A-Z and 0-9.
func NewCode() (string, error) {
	raw := make([]byte, codeGroups*codeGroupSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	groups := make([]string, codeGroups)
	for g := 0; g < codeGroups; g++ {
		chars := make([]byte, codeGroupSize)
		for i := 0; i < codeGroupSize; i++ {
			chars[i] = codeAlphabet[int(raw[g*codeGroupSize+i])%len(codeAlphabet)]
		}
		groups[g] = string(chars)
	}
	return strings.Join(groups, codeSeparator), nil
}

// NormalizeCode canonicalizes user input before lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code has the activation code shape.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}
