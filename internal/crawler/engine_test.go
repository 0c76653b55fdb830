package crawler

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmorell/followgraph/internal/config"
	"github.com/nmorell/followgraph/internal/metrics"
	"github.com/nmorell/followgraph/internal/source"
	"github.com/nmorell/followgraph/internal/storage"
)

// fakeSource serves canned fetch results and counts calls per profile
type fakeSource struct {
	results map[string]*source.FetchResult
	calls   map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		results: make(map[string]*source.FetchResult),
		calls:   make(map[string]int),
	}
}

func (f *fakeSource) add(id, name string, count int, followers ...string) *fakeSource {
	f.results[id] = &source.FetchResult{
		ProfileID:     id,
		DisplayName:   name,
		FollowerCount: count,
		FollowerIDs:   followers,
	}
	return f
}

func (f *fakeSource) Fetch(profileID string) (*source.FetchResult, error) {
	f.calls[profileID]++
	res, ok := f.results[profileID]
	if !ok {
		return nil, &source.FetchError{ProfileID: profileID, Err: errors.New("profile not reachable")}
	}
	return res, nil
}

func (f *fakeSource) totalCalls() int {
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func testConfig(maxDepth int) *config.Config {
	cfg := config.Default()
	cfg.MaxDepth = maxDepth
	cfg.PacingDelayMs = 0
	return cfg
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "crawl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newEngine(cfg *config.Config, store Store, src source.Source) (*Engine, *metrics.Tracker) {
	tracker := metrics.NewTracker("test", cfg.MaxDepth)
	return NewEngine(cfg, store, src, tracker), tracker
}

func edgePairs(t *testing.T, store *storage.Store) map[[2]string]bool {
	t.Helper()
	edges, err := store.ListEdges()
	require.NoError(t, err)
	pairs := make(map[[2]string]bool, len(edges))
	for _, e := range edges {
		pairs[[2]string{e.FromID, e.ToID}] = true
	}
	return pairs
}

// The four-profile reference scenario: depth 1 expands only the seed, the
// seed's followers stay unfetched placeholders and u4 never appears.
func TestCrawlDepthOneScenario(t *testing.T) {
	store := newTestStore(t)
	src := newFakeSource().
		add("u1", "User One", 2, "u2", "u3").
		add("u2", "User Two", 1, "u1").
		add("u3", "User Three", 2, "u1", "u4")

	engine, _ := newEngine(testConfig(1), store, src)
	require.NoError(t, engine.Crawl("u1"))

	assert.Equal(t, 1, src.totalCalls())
	assert.Equal(t, 1, src.calls["u1"])

	pairs := edgePairs(t, store)
	assert.Equal(t, map[[2]string]bool{
		{"u2", "u1"}: true,
		{"u3", "u1"}: true,
	}, pairs)

	u1, err := store.GetProfile("u1")
	require.NoError(t, err)
	require.NotNil(t, u1)
	assert.True(t, u1.FollowersComplete)
	assert.Equal(t, "User One", u1.DisplayName)

	for _, id := range []string{"u2", "u3"} {
		p, err := store.GetProfile(id)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.False(t, p.FollowersComplete, "%s must stay incomplete", id)
	}

	u4, err := store.GetProfile("u4")
	require.NoError(t, err)
	assert.Nil(t, u4, "u4 must never appear at depth 1")
}

func TestCrawlDepthTwoExpandsFollowers(t *testing.T) {
	store := newTestStore(t)
	src := newFakeSource().
		add("u1", "User One", 2, "u2", "u3").
		add("u2", "User Two", 1, "u1").
		add("u3", "User Three", 2, "u1", "u4")

	engine, _ := newEngine(testConfig(2), store, src)
	require.NoError(t, engine.Crawl("u1"))

	assert.Equal(t, 3, src.totalCalls())
	assert.Equal(t, 0, src.calls["u4"], "u4 is at depth 2 and must not be expanded")

	pairs := edgePairs(t, store)
	assert.Equal(t, map[[2]string]bool{
		{"u2", "u1"}: true,
		{"u3", "u1"}: true,
		{"u1", "u2"}: true,
		{"u1", "u3"}: true,
		{"u4", "u3"}: true,
	}, pairs)

	u4, err := store.GetProfile("u4")
	require.NoError(t, err)
	require.NotNil(t, u4)
	assert.False(t, u4.FollowersComplete)
}

func TestCrawlMaxDepthZeroExpandsNothing(t *testing.T) {
	store := newTestStore(t)
	src := newFakeSource().add("u1", "User One", 2, "u2")

	engine, _ := newEngine(testConfig(0), store, src)
	require.NoError(t, engine.Crawl("u1"))

	assert.Equal(t, 0, src.totalCalls())

	profiles, err := store.ListProfiles()
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestCrawlIdempotentWithCompleteCache(t *testing.T) {
	store := newTestStore(t)
	src := newFakeSource().
		add("u1", "User One", 2, "u2", "u3").
		add("u2", "User Two", 1, "u1").
		add("u3", "User Three", 2, "u1", "u4")

	cfg := testConfig(2)
	engine, _ := newEngine(cfg, store, src)
	require.NoError(t, engine.Crawl("u1"))

	firstCalls := src.totalCalls()
	profilesBefore, err := store.ListProfiles()
	require.NoError(t, err)
	edgesBefore, err := store.ListEdges()
	require.NoError(t, err)

	engine2, _ := newEngine(cfg, store, src)
	require.NoError(t, engine2.Crawl("u1"))

	assert.Equal(t, firstCalls, src.totalCalls(), "second crawl must perform zero source calls")

	profilesAfter, err := store.ListProfiles()
	require.NoError(t, err)
	edgesAfter, err := store.ListEdges()
	require.NoError(t, err)
	assert.Equal(t, profilesBefore, profilesAfter)
	assert.Equal(t, edgesBefore, edgesAfter)
}

func TestCrawlWithoutCacheRefetches(t *testing.T) {
	store := newTestStore(t)
	src := newFakeSource().add("u1", "User One", 1, "u2")

	cfg := testConfig(1)
	engine, _ := newEngine(cfg, store, src)
	require.NoError(t, engine.Crawl("u1"))

	engine2, _ := newEngine(cfg, store, src)
	engine2.UseCache = false
	require.NoError(t, engine2.Crawl("u1"))

	assert.Equal(t, 2, src.calls["u1"])
}

func TestCrawlResolvesDeeperRunFromCache(t *testing.T) {
	store := newTestStore(t)
	src := newFakeSource().
		add("u1", "User One", 2, "u2", "u3").
		add("u2", "User Two", 1, "u1").
		add("u3", "User Three", 1, "u1")

	engine, _ := newEngine(testConfig(1), store, src)
	require.NoError(t, engine.Crawl("u1"))
	require.Equal(t, 1, src.totalCalls())

	// Deeper run reuses the seed's cached follower list
	engine2, tracker := newEngine(testConfig(2), store, src)
	require.NoError(t, engine2.Crawl("u1"))

	assert.Equal(t, 1, src.calls["u1"], "complete cached seed must not be refetched")
	assert.Equal(t, 1, src.calls["u2"])
	assert.Equal(t, 1, src.calls["u3"])
	assert.Equal(t, 1, tracker.Snapshot().CacheHits)
}

func TestCrawlThresholdGateWithSeedExemption(t *testing.T) {
	store := newTestStore(t)
	src := newFakeSource().
		add("big", "Big Account", 5000, "a", "b").
		add("a", "A", 2000, "c").
		add("b", "B", 1)

	cfg := testConfig(3)
	engine, tracker := newEngine(cfg, store, src)
	require.NoError(t, engine.Crawl("big"))

	// Seed expanded despite exceeding the threshold
	pairs := edgePairs(t, store)
	assert.Equal(t, map[[2]string]bool{
		{"a", "big"}: true,
		{"b", "big"}: true,
	}, pairs, "no edge may originate from the threshold-skipped profile a")

	a, err := store.GetProfile("a")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.False(t, a.FollowersComplete)
	assert.Equal(t, 2000, a.FollowerCount)

	c, err := store.GetProfile("c")
	require.NoError(t, err)
	assert.Nil(t, c, "followers of a threshold-skipped profile are never recorded")

	report := tracker.Snapshot()
	assert.Equal(t, 1, report.SkippedThreshold)
	assert.Equal(t, 2, report.ProfilesExpanded)
}

func TestCrawlPrivateProfileNotExpanded(t *testing.T) {
	store := newTestStore(t)
	src := newFakeSource().add("u1", "User One", 1, "p")
	src.results["p"] = &source.FetchResult{
		ProfileID:     "p",
		DisplayName:   "Private Person",
		FollowerCount: 3,
		IsPrivate:     true,
	}

	engine, tracker := newEngine(testConfig(2), store, src)
	require.NoError(t, engine.Crawl("u1"))

	p, err := store.GetProfile("p")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.IsPrivate)
	assert.False(t, p.FollowersComplete)

	assert.Equal(t, 1, tracker.Snapshot().SkippedPrivate)
}

func TestCrawlOversizedProfileNotExpanded(t *testing.T) {
	store := newTestStore(t)
	src := newFakeSource().add("u1", "User One", 1, "o")
	src.results["o"] = &source.FetchResult{
		ProfileID:     "o",
		DisplayName:   "Oversized",
		FollowerCount: 400,
		Oversized:     true,
	}

	engine, tracker := newEngine(testConfig(2), store, src)
	require.NoError(t, engine.Crawl("u1"))

	o, err := store.GetProfile("o")
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.True(t, o.Oversized)
	assert.False(t, o.FollowersComplete)
	assert.Equal(t, 1, tracker.Snapshot().SkippedOversized)
}

func TestCrawlFetchErrorIsNonFatal(t *testing.T) {
	store := newTestStore(t)
	src := newFakeSource().
		add("u1", "User One", 2, "gone", "u2").
		add("u2", "User Two", 1)

	engine, tracker := newEngine(testConfig(2), store, src)
	require.NoError(t, engine.Crawl("u1"))

	// Traversal continued past the failing node
	assert.Equal(t, 1, src.calls["u2"])

	report := tracker.Snapshot()
	require.Len(t, report.FetchErrors, 1)
	assert.Equal(t, "gone", report.FetchErrors[0].ProfileID)

	gone, err := store.GetProfile("gone")
	require.NoError(t, err)
	require.NotNil(t, gone)
	assert.False(t, gone.FollowersComplete, "failed node keeps its placeholder record")
}

func TestCrawlSeedFetchErrorLeavesEmptyCache(t *testing.T) {
	store := newTestStore(t)
	src := newFakeSource() // seed unknown -> fetch error

	engine, tracker := newEngine(testConfig(1), store, src)
	require.NoError(t, engine.Crawl("u1"))

	require.Len(t, tracker.Snapshot().FetchErrors, 1)
	profiles, err := store.ListProfiles()
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

// failingStore aborts the crawl on its first profile lookup
type failingStore struct{}

func (failingStore) GetProfile(string) (*storage.Profile, error) {
	return nil, &storage.StorageError{Op: "get profile", Err: errors.New("disk gone")}
}
func (failingStore) UpsertProfile(*storage.Profile) error { return nil }
func (failingStore) AddEdge(string, string) error         { return nil }
func (failingStore) HasEdge(string, string) (bool, error) { return false, nil }
func (failingStore) FollowerIDs(string) ([]string, error) { return nil, nil }

func TestCrawlStorageErrorIsFatal(t *testing.T) {
	src := newFakeSource().add("u1", "User One", 1)

	engine, _ := newEngine(testConfig(1), failingStore{}, src)
	err := engine.Crawl("u1")
	require.Error(t, err)

	var serr *storage.StorageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 0, src.totalCalls())
}

func TestCrawlRejectsMalformedSeed(t *testing.T) {
	store := newTestStore(t)
	engine, _ := newEngine(testConfig(1), store, newFakeSource())

	err := engine.Crawl("not a valid id!")
	require.Error(t, err)

	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestCrawlDeduplicatesMultiPathDiscovery(t *testing.T) {
	store := newTestStore(t)
	// shared follows both u2 and u3, so it is discovered twice at depth 2
	src := newFakeSource().
		add("u1", "User One", 2, "u2", "u3").
		add("u2", "User Two", 1, "shared").
		add("u3", "User Three", 1, "shared").
		add("shared", "Shared", 2)

	engine, _ := newEngine(testConfig(3), store, src)
	require.NoError(t, engine.Crawl("u1"))

	assert.Equal(t, 1, src.calls["shared"], "a profile discovered via two paths is expanded once")
}

func TestCrawlSkipsMalformedFollowerIDs(t *testing.T) {
	store := newTestStore(t)
	src := newFakeSource().add("u1", "User One", 2, "ok", "has spaces!")

	engine, _ := newEngine(testConfig(1), store, src)
	require.NoError(t, engine.Crawl("u1"))

	pairs := edgePairs(t, store)
	assert.Equal(t, map[[2]string]bool{{"ok", "u1"}: true}, pairs)
}

func TestNormalizeProfileID(t *testing.T) {
	cases := map[string]string{
		"alice": "alice",
		"https://open.spotify.com/user/alice":    "alice",
		"https://open.spotify.com/user/alice/":   "alice",
		"https://open.spotify.com/user/a?si=123": "a",
		"  bob  ": "bob",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeProfileID(in), "input %q", in)
	}
}

func TestValidateProfileID(t *testing.T) {
	assert.NoError(t, ValidateProfileID("alice_01.x-y"))
	assert.Error(t, ValidateProfileID(""))
	assert.Error(t, ValidateProfileID("has space"))
	assert.Error(t, ValidateProfileID(fmt.Sprintf("%065d", 0)))
}
