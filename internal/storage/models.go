package storage

import "time"

// FollowerCountUnknown marks a profile whose follower count has not been
// observed yet (placeholder rows created from someone else's follower list).
const FollowerCountUnknown = -1

// Profile represents one account in the follower graph
type Profile struct {
	ID                string
	DisplayName       string
	AvatarURL         string
	FollowerCount     int
	IsPrivate         bool
	FollowersComplete bool
	Oversized         bool
	FirstSeenAt       time.Time
	LastSeenAt        time.Time
}

// NewPlaceholder returns a minimal incomplete profile for an account that was
// discovered in someone's follower list but has not been visited itself.
func NewPlaceholder(id string) *Profile {
	now := time.Now().UTC()
	return &Profile{
		ID:            id,
		FollowerCount: FollowerCountUnknown,
		FirstSeenAt:   now,
		LastSeenAt:    now,
	}
}

// Label returns the display name, falling back to the identifier for
// placeholder profiles that were never fetched.
func (p *Profile) Label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.ID
}

// Edge represents a directed follower relationship: FromID follows ToID
type Edge struct {
	FromID       string
	ToID         string
	DiscoveredAt time.Time
}
