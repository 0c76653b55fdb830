// Package source provides access to remote profile data. The crawl engine
// only depends on the Source interface; the colly-backed WebSource is one
// implementation of it.
package source

import "fmt"

// FetchResult carries everything a single profile fetch can observe
type FetchResult struct {
	ProfileID     string
	DisplayName   string
	AvatarURL     string
	FollowerCount int
	IsPrivate     bool
	// Oversized is set when the follower list was skipped because the
	// follower count exceeded the configured download limit.
	Oversized   bool
	FollowerIDs []string
}

// Source fetches a profile's metadata and follower identifiers on demand.
// Implementations are stateful, rate-limited sessions: a Source handle must
// never be shared across concurrent callers.
type Source interface {
	Fetch(profileID string) (*FetchResult, error)
}

// FetchError reports a failed fetch for a single profile. Fetch errors are
// per-node and non-fatal: the crawl records them and moves on.
type FetchError struct {
	ProfileID string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.ProfileID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
