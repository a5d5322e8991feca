// Package answer canonicalises submitted answers and digests them for comparison
// against the digest the question source ships with each question.
//
// Both sides must agree byte for byte: trim each component, upper-case it, sort
// multi-select components and join them with ",", then SHA-256 as lowercase hex.
package answer

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
	"unicode"

	"quiz-gauntlet/internal/domain"
)

// Separator joins multi-select components.
const Separator = ","

// Normalize returns the canonical form of a.
func Normalize(a domain.Answer) (string, error) {
	if a.Empty() {
		return "", domain.ErrEmptyAnswer
	}
	if !a.Multiple {
		return canonical(a.Values[0]), nil
	}
	parts := make([]string, len(a.Values))
	for i, v := range a.Values {
		parts[i] = canonical(v)
	}
	sort.Strings(parts)
	return strings.Join(parts, Separator), nil
}

// NormalizeString canonicalises an already joined answer string. Applying it to
// the output of Normalize returns the same string.
func NormalizeString(s string) string {
	if !strings.Contains(s, Separator) {
		return canonical(s)
	}
	parts := strings.Split(s, Separator)
	for i := range parts {
		parts[i] = canonical(parts[i])
	}
	sort.Strings(parts)
	return strings.Join(parts, Separator)
}

// Digest is the lowercase hex SHA-256 of s.
func Digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// DigestAnswer normalises a and digests it.
func DigestAnswer(a domain.Answer) (string, error) {
	n, err := Normalize(a)
	if err != nil {
		return "", err
	}
	return Digest(n), nil
}

// Matches reports whether a hashes to want. want is compared case-insensitively
// because some producers emit upper-case hex.
func Matches(a domain.Answer, want string) (bool, error) {
	got, err := DigestAnswer(a)
	if err != nil {
		return false, err
	}
	want = strings.ToLower(strings.TrimSpace(want))
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1, nil
}

// canonical trims like String.prototype.trim (which also strips the BOM) and upper-cases.
func canonical(s string) string {
	return strings.ToUpper(strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	}))
}
