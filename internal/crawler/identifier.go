package crawler

import (
	"regexp"
	"strings"

	"github.com/nmorell/followgraph/internal/config"
)

var profileIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// NormalizeProfileID accepts either a bare profile identifier or a full
// profile URL and returns the identifier.
// Example: https://open.spotify.com/user/alice/ -> alice
func NormalizeProfileID(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if strings.HasPrefix(identifier, "http://") || strings.HasPrefix(identifier, "https://") {
		trimmed := strings.TrimRight(identifier, "/")
		if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
			identifier = trimmed[idx+1:]
		}
	}
	if cut := strings.IndexAny(identifier, "?#"); cut >= 0 {
		identifier = identifier[:cut]
	}
	return identifier
}

// ValidateProfileID rejects malformed identifiers before traversal starts
func ValidateProfileID(id string) error {
	if !profileIDPattern.MatchString(id) {
		return &config.ValidationError{
			Field:  "profile_id",
			Reason: "must be 1-64 characters of letters, digits, '.', '_' or '-'",
		}
	}
	return nil
}
