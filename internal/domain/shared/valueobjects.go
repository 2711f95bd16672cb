// Package shared contains common domain types, errors, and value objects.
package shared

import "strings"

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID represents a unique user identifier.
// The identity provider is an external collaborator, so the core treats the
// ID as an opaque non-empty string (in practice a UUID issued by the auth
// service).
type UserID string

// IsValid checks that the user ID is non-empty.
func (u UserID) IsValid() bool {
	return strings.TrimSpace(string(u)) != ""
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.TrimSpace(id))
	if !uid.IsValid() {
		return "", ErrInvalidID
	}
	return uid, nil
}

// SamePair reports whether the two unordered user pairs are the same.
// Battles are keyed by the unordered pair of participants, so
// (a, b) and (b, a) identify the same matchup.
func SamePair(a1, b1, a2, b2 UserID) bool {
	return (a1 == a2 && b1 == b2) || (a1 == b2 && b1 == a2)
}

// NormalizePair returns the pair in lexicographic order.
// Used for store-level uniqueness keys on the unordered pair.
func NormalizePair(a, b UserID) (UserID, UserID) {
	if b < a {
		return b, a
	}
	return a, b
}
