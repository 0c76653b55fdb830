package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NodeError records a non-fatal per-profile fetch failure
type NodeError struct {
	ProfileID string `json:"profile_id"`
	Reason    string `json:"reason"`
}

// Report summarizes a single crawl run for export on exit
type Report struct {
	RunID              string      `json:"run_id"`
	Seed               string      `json:"seed"`
	MaxDepth           int         `json:"max_depth"`
	StartTime          time.Time   `json:"start_time"`
	EndTime            time.Time   `json:"end_time"`
	ProfilesExpanded   int         `json:"profiles_expanded"`
	ProfilesDiscovered int         `json:"profiles_discovered"`
	EdgesRecorded      int         `json:"edges_recorded"`
	CacheHits          int         `json:"cache_hits"`
	SkippedThreshold   int         `json:"skipped_threshold"`
	SkippedPrivate     int         `json:"skipped_private"`
	SkippedOversized   int         `json:"skipped_oversized"`
	FetchErrors        []NodeError `json:"fetch_errors"`
	TerminationReason  string      `json:"termination_reason"`
}

// Tracker holds and manages crawl run statistics
type Tracker struct {
	mu   sync.Mutex
	data Report
}

// NewTracker creates a tracker for a new run over the given seed
func NewTracker(seed string, maxDepth int) *Tracker {
	return &Tracker{
		data: Report{
			RunID:     uuid.NewString(),
			Seed:      seed,
			MaxDepth:  maxDepth,
			StartTime: time.Now().UTC(),
		},
	}
}

// IncrementExpanded counts a profile whose followers were recorded this run
func (t *Tracker) IncrementExpanded() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ProfilesExpanded++
}

// IncrementDiscovered counts a profile seen for the first time this run
func (t *Tracker) IncrementDiscovered() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ProfilesDiscovered++
}

// IncrementEdges counts a recorded follower edge
func (t *Tracker) IncrementEdges() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.EdgesRecorded++
}

// IncrementCacheHits counts a profile resolved without a source call
func (t *Tracker) IncrementCacheHits() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.CacheHits++
}

// IncrementSkippedThreshold counts a profile not expanded due to its degree
func (t *Tracker) IncrementSkippedThreshold() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.SkippedThreshold++
}

// IncrementSkippedPrivate counts a private profile left unexpanded
func (t *Tracker) IncrementSkippedPrivate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.SkippedPrivate++
}

// IncrementSkippedOversized counts a profile whose follower list was too
// large to download
func (t *Tracker) IncrementSkippedOversized() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.SkippedOversized++
}

// RecordFetchError records a non-fatal per-profile failure
func (t *Tracker) RecordFetchError(profileID string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.FetchErrors = append(t.data.FetchErrors, NodeError{
		ProfileID: profileID,
		Reason:    err.Error(),
	})
}

// Snapshot returns a copy of the current report
func (t *Tracker) Snapshot() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	snapshot := t.data
	snapshot.FetchErrors = append([]NodeError(nil), t.data.FetchErrors...)
	return snapshot
}

// WriteToFile finalizes the report and exports it to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.EndTime = time.Now().UTC()
	t.data.TerminationReason = reason

	jsonData, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	return nil
}

// Summary renders a one-line progress summary for logging
func (t *Tracker) Summary() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Profiles: %d discovered, %d expanded, %d cache hits | Edges: %d | Skipped: %d threshold, %d private, %d oversized | Errors: %d",
		t.data.ProfilesDiscovered,
		t.data.ProfilesExpanded,
		t.data.CacheHits,
		t.data.EdgesRecorded,
		t.data.SkippedThreshold,
		t.data.SkippedPrivate,
		t.data.SkippedOversized,
		len(t.data.FetchErrors),
	)
}
