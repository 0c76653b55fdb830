package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists profiles and follower edges in a local sqlite database.
// It is owned by a single process for the duration of a run.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at dbPath and initializes the schema
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, storageErr("open database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, storageErr("connect to database", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		profile_id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		follower_count INTEGER NOT NULL DEFAULT -1,
		is_private INTEGER NOT NULL DEFAULT 0,
		followers_complete INTEGER NOT NULL DEFAULT 0,
		oversized INTEGER NOT NULL DEFAULT 0,
		first_seen_at TIMESTAMP NOT NULL,
		last_seen_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS edges (
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		discovered_at TIMESTAMP NOT NULL,
		UNIQUE(from_id, to_id)
	);

	CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_id);
	CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return storageErr("initialize schema", err)
	}
	return nil
}

// UpsertProfile inserts a profile or merges it into the existing row.
// The merge never replaces known data with less complete data: empty
// names/avatars, unknown follower counts and a cleared completeness flag
// do not overwrite their stored counterparts.
func (s *Store) UpsertProfile(p *Profile) error {
	if p.ID == "" {
		return storageErr("upsert profile", fmt.Errorf("empty profile id"))
	}

	now := time.Now().UTC()
	firstSeen := p.FirstSeenAt
	if firstSeen.IsZero() {
		firstSeen = now
	}
	lastSeen := p.LastSeenAt
	if lastSeen.IsZero() {
		lastSeen = now
	}

	_, err := s.db.Exec(`
		INSERT INTO profiles (
			profile_id, display_name, avatar_url, follower_count,
			is_private, followers_complete, oversized, first_seen_at, last_seen_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(profile_id) DO UPDATE SET
			display_name = CASE WHEN excluded.display_name != '' THEN excluded.display_name ELSE profiles.display_name END,
			avatar_url = CASE WHEN excluded.avatar_url != '' THEN excluded.avatar_url ELSE profiles.avatar_url END,
			follower_count = CASE WHEN excluded.follower_count >= 0 THEN excluded.follower_count ELSE profiles.follower_count END,
			is_private = CASE WHEN excluded.followers_complete = 1 OR excluded.is_private = 1 THEN excluded.is_private ELSE profiles.is_private END,
			followers_complete = MAX(profiles.followers_complete, excluded.followers_complete),
			oversized = MAX(profiles.oversized, excluded.oversized),
			last_seen_at = excluded.last_seen_at
	`, p.ID, p.DisplayName, p.AvatarURL, p.FollowerCount,
		boolToInt(p.IsPrivate), boolToInt(p.FollowersComplete), boolToInt(p.Oversized),
		firstSeen, lastSeen)

	if err != nil {
		return storageErr("upsert profile", err)
	}
	return nil
}

// GetProfile retrieves a profile by identifier, returns nil if not found
func (s *Store) GetProfile(id string) (*Profile, error) {
	var (
		p                             Profile
		isPrivate, complete, oversize int
	)
	err := s.db.QueryRow(`
		SELECT profile_id, display_name, avatar_url, follower_count,
		       is_private, followers_complete, oversized, first_seen_at, last_seen_at
		FROM profiles
		WHERE profile_id = ?
	`, id).Scan(&p.ID, &p.DisplayName, &p.AvatarURL, &p.FollowerCount,
		&isPrivate, &complete, &oversize, &p.FirstSeenAt, &p.LastSeenAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get profile", err)
	}

	p.IsPrivate = isPrivate != 0
	p.FollowersComplete = complete != 0
	p.Oversized = oversize != 0
	return &p, nil
}

// AddEdge records a follower relationship from -> to. Inserting the same
// pair twice is a no-op; self-edges are rejected.
func (s *Store) AddEdge(from, to string) error {
	if from == "" || to == "" {
		return storageErr("add edge", fmt.Errorf("empty endpoint (%q -> %q)", from, to))
	}
	if from == to {
		return storageErr("add edge", fmt.Errorf("self-edge on %q", from))
	}

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO edges (from_id, to_id, discovered_at)
		VALUES (?, ?, ?)
	`, from, to, time.Now().UTC())

	if err != nil {
		return storageErr("add edge", err)
	}
	return nil
}

// HasEdge reports whether the edge from -> to has been recorded
func (s *Store) HasEdge(from, to string) (bool, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(1) FROM edges WHERE from_id = ? AND to_id = ?
	`, from, to).Scan(&n)
	if err != nil {
		return false, storageErr("check edge", err)
	}
	return n > 0, nil
}

// FollowerIDs returns the identifiers of all recorded followers of a profile.
// Used to resolve a complete cached profile without calling the source.
func (s *Store) FollowerIDs(id string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT from_id FROM edges WHERE to_id = ? ORDER BY from_id
	`, id)
	if err != nil {
		return nil, storageErr("list followers", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var fid string
		if err := rows.Scan(&fid); err != nil {
			return nil, storageErr("scan follower", err)
		}
		ids = append(ids, fid)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate followers", err)
	}
	return ids, nil
}

// ListProfiles returns a snapshot of all stored profiles
func (s *Store) ListProfiles() ([]*Profile, error) {
	rows, err := s.db.Query(`
		SELECT profile_id, display_name, avatar_url, follower_count,
		       is_private, followers_complete, oversized, first_seen_at, last_seen_at
		FROM profiles
		ORDER BY profile_id
	`)
	if err != nil {
		return nil, storageErr("list profiles", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		var (
			p                             Profile
			isPrivate, complete, oversize int
		)
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.AvatarURL, &p.FollowerCount,
			&isPrivate, &complete, &oversize, &p.FirstSeenAt, &p.LastSeenAt); err != nil {
			return nil, storageErr("scan profile", err)
		}
		p.IsPrivate = isPrivate != 0
		p.FollowersComplete = complete != 0
		p.Oversized = oversize != 0
		profiles = append(profiles, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate profiles", err)
	}
	return profiles, nil
}

// ListEdges returns a snapshot of all stored edges
func (s *Store) ListEdges() ([]*Edge, error) {
	rows, err := s.db.Query(`
		SELECT from_id, to_id, discovered_at FROM edges ORDER BY from_id, to_id
	`)
	if err != nil {
		return nil, storageErr("list edges", err)
	}
	defer rows.Close()

	var edges []*Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.FromID, &e.ToID, &e.DiscoveredAt); err != nil {
			return nil, storageErr("scan edge", err)
		}
		edges = append(edges, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate edges", err)
	}
	return edges, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
