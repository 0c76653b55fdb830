package crawler

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nmorell/followgraph/internal/config"
	"github.com/nmorell/followgraph/internal/metrics"
	"github.com/nmorell/followgraph/internal/source"
	"github.com/nmorell/followgraph/internal/storage"
)

// Store is the slice of the cache store the engine depends on
type Store interface {
	GetProfile(id string) (*storage.Profile, error)
	UpsertProfile(p *storage.Profile) error
	AddEdge(from, to string) error
	HasEdge(from, to string) (bool, error)
	FollowerIDs(id string) ([]string, error)
}

// Engine orchestrates breadth-first expansion of the follower graph.
// Traversal is strictly sequential: the profile source is a stateful
// session that must not be used concurrently, so there is one source call
// in flight at any time.
type Engine struct {
	cfg     *config.Config
	store   Store
	source  source.Source
	tracker *metrics.Tracker

	// UseCache controls whether profiles whose cached record is complete
	// are resolved from the store instead of the source. Disabling it
	// forces a refetch of every visited profile.
	UseCache bool

	fetches int
}

// NewEngine creates a crawl engine over the given store and profile source
func NewEngine(cfg *config.Config, store Store, src source.Source, tracker *metrics.Tracker) *Engine {
	return &Engine{
		cfg:      cfg,
		store:    store,
		source:   src,
		tracker:  tracker,
		UseCache: true,
	}
}

// Crawl expands the graph breadth-first from seedID. Fetch failures are
// recorded per profile and do not stop the traversal; storage failures
// abort it.
func (e *Engine) Crawl(seedID string) error {
	seedID = NormalizeProfileID(seedID)
	if err := ValidateProfileID(seedID); err != nil {
		return err
	}
	if e.cfg.MaxDepth < 0 {
		return &config.ValidationError{Field: "max_depth", Reason: "must be >= 0"}
	}

	logrus.Infof("Starting crawl at %s (depth=%d, threshold=%d)",
		seedID, e.cfg.MaxDepth, e.cfg.FollowerThreshold)

	e.fetches = 0
	frontier := NewFrontier()

	// A profile at depth d is expanded only while d < max_depth, so with
	// max_depth=0 even the seed stays unexpanded.
	if e.cfg.MaxDepth > 0 {
		frontier.Push(Entry{ProfileID: seedID, Depth: 0})
	}

	for {
		entry, ok := frontier.Pop()
		if !ok {
			break
		}
		if err := e.expand(entry, seedID, frontier); err != nil {
			return err
		}
	}

	logrus.Infof("Crawl finished: %s", e.tracker.Summary())
	return nil
}

// expand resolves one frontier entry, records its follower edges and
// enqueues followers that are themselves due for expansion.
func (e *Engine) expand(entry Entry, seedID string, frontier *Frontier) error {
	cached, err := e.store.GetProfile(entry.ProfileID)
	if err != nil {
		return err
	}

	if e.UseCache && cached != nil && (cached.FollowersComplete || cached.IsPrivate || cached.Oversized) {
		return e.expandFromCache(entry, cached, seedID, frontier)
	}

	return e.expandFromSource(entry, cached, seedID, frontier)
}

// expandFromCache resolves a previously visited profile without a source call
func (e *Engine) expandFromCache(entry Entry, cached *storage.Profile, seedID string, frontier *Frontier) error {
	e.tracker.IncrementCacheHits()
	logrus.Debugf("Using cached data for %s (complete=%t)", entry.ProfileID, cached.FollowersComplete)

	if skipped := e.recordSkip(cached, entry.ProfileID == seedID); skipped {
		return nil
	}

	followerIDs, err := e.store.FollowerIDs(entry.ProfileID)
	if err != nil {
		return err
	}
	return e.recordFollowers(entry, followerIDs, frontier)
}

// expandFromSource fetches a profile and records the outcome
func (e *Engine) expandFromSource(entry Entry, cached *storage.Profile, seedID string, frontier *Frontier) error {
	e.pace()
	result, err := e.source.Fetch(entry.ProfileID)
	if err != nil {
		logrus.Errorf("Failed to fetch profile %s: %v", entry.ProfileID, err)
		e.tracker.RecordFetchError(entry.ProfileID, err)
		return nil
	}

	if cached == nil {
		e.tracker.IncrementDiscovered()
	}

	now := time.Now().UTC()
	prof := &storage.Profile{
		ID:            entry.ProfileID,
		DisplayName:   result.DisplayName,
		AvatarURL:     result.AvatarURL,
		FollowerCount: result.FollowerCount,
		IsPrivate:     result.IsPrivate,
		Oversized:     result.Oversized,
		FirstSeenAt:   now,
		LastSeenAt:    now,
	}

	skipped := result.IsPrivate || result.Oversized ||
		(entry.ProfileID != seedID && thresholdExceeded(result.FollowerCount, e.cfg.FollowerThreshold))

	// The completeness flag gates refetching: it is only set when the
	// follower list was actually recorded.
	prof.FollowersComplete = !skipped

	if err := e.store.UpsertProfile(prof); err != nil {
		return err
	}

	if e.recordSkip(prof, entry.ProfileID == seedID) {
		return nil
	}

	return e.recordFollowers(entry, result.FollowerIDs, frontier)
}

// recordSkip checks the non-expansion conditions for a resolved profile and
// updates the matching counter. Returns true when the profile must not be
// expanded. The seed is exempt from the follower threshold so a crawl can
// start from a high-degree account.
func (e *Engine) recordSkip(p *storage.Profile, isSeed bool) bool {
	switch {
	case p.IsPrivate:
		logrus.Debugf("Profile %s is private; not expanding", p.ID)
		e.tracker.IncrementSkippedPrivate()
		return true
	case p.Oversized:
		logrus.Debugf("Profile %s follower list oversized; not expanding", p.ID)
		e.tracker.IncrementSkippedOversized()
		return true
	case !isSeed && thresholdExceeded(p.FollowerCount, e.cfg.FollowerThreshold):
		logrus.Infof("Skipping %s due to follower threshold (%d >= %d)",
			p.ID, p.FollowerCount, e.cfg.FollowerThreshold)
		e.tracker.IncrementSkippedThreshold()
		return true
	}
	return false
}

// recordFollowers stores follower edges and placeholder profiles, then
// enqueues followers still within the depth limit.
func (e *Engine) recordFollowers(entry Entry, followerIDs []string, frontier *Frontier) error {
	for _, followerID := range followerIDs {
		if followerID == entry.ProfileID {
			continue
		}
		if err := ValidateProfileID(followerID); err != nil {
			logrus.Debugf("Ignoring malformed follower id %q of %s", followerID, entry.ProfileID)
			continue
		}

		existing, err := e.store.GetProfile(followerID)
		if err != nil {
			return err
		}
		if existing == nil {
			if err := e.store.UpsertProfile(storage.NewPlaceholder(followerID)); err != nil {
				return err
			}
			e.tracker.IncrementDiscovered()
		}

		present, err := e.store.HasEdge(followerID, entry.ProfileID)
		if err != nil {
			return err
		}
		if !present {
			if err := e.store.AddEdge(followerID, entry.ProfileID); err != nil {
				return err
			}
			e.tracker.IncrementEdges()
			logrus.Debugf("Edge: %s -> %s (depth %d->%d)",
				followerID, entry.ProfileID, entry.Depth, entry.Depth+1)
		}

		if entry.Depth+1 < e.cfg.MaxDepth {
			frontier.Push(Entry{ProfileID: followerID, Depth: entry.Depth + 1})
		}
	}

	e.tracker.IncrementExpanded()
	return nil
}

// pace applies the configured delay between consecutive source calls
func (e *Engine) pace() {
	if e.fetches > 0 && e.cfg.PacingDelay() > 0 {
		time.Sleep(e.cfg.PacingDelay())
	}
	e.fetches++
}

func thresholdExceeded(count, threshold int) bool {
	return count >= 0 && count >= threshold
}
