package source

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"

	"github.com/nmorell/followgraph/internal/config"
)

// WebSource scrapes public profile pages with a serial Colly collector.
// It holds session state (cookies, rate limiting) and is not safe for
// concurrent use; the crawl engine owns the single handle.
type WebSource struct {
	cfg       *config.Config
	profiles  *colly.Collector
	followers *colly.Collector

	// per-fetch state, valid while a single Fetch call is running
	current  *FetchResult
	fetchErr error
}

// NewWebSource creates a web source scraping pages under cfg.BaseURL
func NewWebSource(cfg *config.Config) *WebSource {
	w := &WebSource{cfg: cfg}
	w.setupCollectors()
	return w
}

// setupCollectors configures the Colly collectors with parse callbacks
func (w *WebSource) setupCollectors() {
	w.profiles = colly.NewCollector()
	w.profiles.SetRequestTimeout(w.cfg.RequestTimeout())

	w.profiles.OnHTML(`meta[property="og:title"]`, func(e *colly.HTMLElement) {
		w.current.DisplayName = strings.TrimSpace(e.Attr("content"))
	})

	w.profiles.OnHTML(`meta[property="og:image"]`, func(e *colly.HTMLElement) {
		w.current.AvatarURL = strings.TrimSpace(e.Attr("content"))
	})

	w.profiles.OnHTML(`span[data-testid="followers-count"]`, func(e *colly.HTMLElement) {
		count, err := parseCount(e.Text)
		if err != nil {
			logrus.Warnf("Unparseable follower count %q for %s", e.Text, w.current.ProfileID)
			return
		}
		w.current.FollowerCount = count
	})

	w.profiles.OnHTML(`[data-testid="private-profile"]`, func(e *colly.HTMLElement) {
		w.current.IsPrivate = true
	})

	w.profiles.OnError(func(r *colly.Response, err error) {
		w.fetchErr = fmt.Errorf("profile page (status %d): %w", r.StatusCode, err)
	})

	w.followers = colly.NewCollector()
	w.followers.SetRequestTimeout(w.cfg.RequestTimeout())

	w.followers.OnHTML(`a[href*="/user/"]`, func(e *colly.HTMLElement) {
		id := trailingUserID(e.Attr("href"))
		if id == "" || id == w.current.ProfileID {
			return
		}
		w.current.FollowerIDs = append(w.current.FollowerIDs, id)
	})

	w.followers.OnError(func(r *colly.Response, err error) {
		w.fetchErr = fmt.Errorf("followers page (status %d): %w", r.StatusCode, err)
	})
}

// Fetch loads a profile page and, when accessible and within the download
// limit, its follower list.
func (w *WebSource) Fetch(profileID string) (*FetchResult, error) {
	w.current = &FetchResult{
		ProfileID:     profileID,
		FollowerCount: -1,
	}
	w.fetchErr = nil

	profileURL := fmt.Sprintf("%s/user/%s", w.cfg.BaseURL, profileID)
	if err := w.profiles.Visit(profileURL); err != nil {
		return nil, &FetchError{ProfileID: profileID, Err: err}
	}
	if w.fetchErr != nil {
		return nil, &FetchError{ProfileID: profileID, Err: w.fetchErr}
	}

	if w.current.IsPrivate {
		logrus.Debugf("Profile %s is private, skipping follower list", profileID)
		return w.current, nil
	}

	limit := w.cfg.FollowersDownloadLimit
	if limit > 0 && w.current.FollowerCount >= limit {
		w.current.Oversized = true
		logrus.Infof("Skipping follower fetch for %s due to size limit (%d >= %d)",
			profileID, w.current.FollowerCount, limit)
		return w.current, nil
	}

	followersURL := fmt.Sprintf("%s/user/%s/followers", w.cfg.BaseURL, profileID)
	if err := w.followers.Visit(followersURL); err != nil {
		return nil, &FetchError{ProfileID: profileID, Err: err}
	}
	if w.fetchErr != nil {
		return nil, &FetchError{ProfileID: profileID, Err: w.fetchErr}
	}

	return w.current, nil
}

// parseCount parses follower counts like "1,234 followers" or "57"
func parseCount(text string) (int, error) {
	var digits strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, fmt.Errorf("no digits in %q", text)
	}
	return strconv.Atoi(digits.String())
}

// trailingUserID extracts the profile identifier from a /user/<id> link
func trailingUserID(href string) string {
	idx := strings.LastIndex(href, "/user/")
	if idx < 0 {
		return ""
	}
	id := href[idx+len("/user/"):]
	if cut := strings.IndexAny(id, "/?#"); cut >= 0 {
		id = id[:cut]
	}
	return id
}
