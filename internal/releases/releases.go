// Package releases lists upstream GitHub releases and marks the one matching
// the running server version.
package releases

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"overseerr-about/internal/logging"
	"overseerr-about/internal/status"
	"overseerr-about/internal/version"
)

type Release struct {
	Name        string    `json:"name"`
	TagName     string    `json:"tag_name"`
	HTMLURL     string    `json:"html_url"`
	Body        string    `json:"body"`
	Prerelease  bool      `json:"prerelease"`
	Draft       bool      `json:"draft"`
	PublishedAt time.Time `json:"published_at"`

	Current bool `json:"current"`
	Latest  bool `json:"latest"`
}

// Service fetches releases for one repository with simple TTL caching.
type Service struct {
	APIURL string // e.g. https://api.github.com
	Repo   string // owner/repo
	Limit  int
	TTL    time.Duration

	client *http.Client

	mu       sync.Mutex
	cachedAt time.Time
	cached   []Release
}

func New(apiURL, repo string, limit int, ttl time.Duration) *Service {
	if limit <= 0 {
		limit = 20
	}
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Service{
		APIURL: strings.TrimRight(apiURL, "/"),
		Repo:   repo,
		Limit:  limit,
		TTL:    ttl,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// List returns published releases, newest first, flagged against
// currentVersion (the raw about.version). Upstream failures are advisory:
// the last cached list, or an empty one, is returned with the error.
func (s *Service) List(ctx context.Context, currentVersion string) ([]Release, error) {
	list, err := s.fetchCached(ctx)
	return mark(list, currentVersion), err
}

func (s *Service) fetchCached(ctx context.Context) ([]Release, error) {
	s.mu.Lock()
	if time.Since(s.cachedAt) < s.TTL && s.cached != nil {
		out := s.cached
		s.mu.Unlock()
		return out, nil
	}
	stale := s.cached
	s.mu.Unlock()

	fetched, err := s.fetch(ctx)
	if err != nil {
		logging.Warn("Release list fetch failed", "repo", s.Repo, "error", err)
		if stale == nil {
			stale = []Release{}
		}
		return stale, err
	}

	s.mu.Lock()
	s.cached = fetched
	s.cachedAt = time.Now()
	s.mu.Unlock()
	return fetched, nil
}

func (s *Service) fetch(ctx context.Context) ([]Release, error) {
	if s.Repo == "" {
		return nil, fmt.Errorf("releases: repository not configured")
	}
	url := fmt.Sprintf("%s/repos/%s/releases?per_page=%d", s.APIURL, s.Repo, s.Limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("releases: build request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "application/vnd.github+json")

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("releases: get %s: %w", url, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("releases: http %d from %s", res.StatusCode, url)
	}

	var all []Release
	if err := json.NewDecoder(res.Body).Decode(&all); err != nil {
		return nil, fmt.Errorf("releases: decode: %w", err)
	}
	out := make([]Release, 0, len(all))
	for _, r := range all {
		if r.Draft {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// mark copies list and sets Current/Latest. Develop builds never match a
// tagged release.
func mark(list []Release, currentVersion string) []Release {
	out := make([]Release, len(list))
	copy(out, list)

	kind, display := status.ParseBuild(currentVersion)
	latestSet := false
	for i := range out {
		out[i].Current = kind == status.Release && display != "" && sameVersion(out[i].TagName, display)
		out[i].Latest = false
		if !latestSet && !out[i].Prerelease {
			out[i].Latest = true
			latestSet = true
		}
	}
	return out
}

func sameVersion(tag, v string) bool {
	return strings.TrimPrefix(tag, "v") == strings.TrimPrefix(v, "v")
}

var semverRe = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)`)

// NewerThan reports whether latest is newer than current using basic semver.
func NewerThan(latest, current string) bool {
	if latest == "" || current == "" {
		return false
	}
	l := semverRe.FindStringSubmatch(latest)
	c := semverRe.FindStringSubmatch(current)
	if len(l) == 0 || len(c) == 0 {
		return false
	}
	for i := 1; i <= 3; i++ {
		lv, _ := strconv.Atoi(l[i])
		cv, _ := strconv.Atoi(c[i])
		if lv > cv {
			return true
		}
		if lv < cv {
			return false
		}
	}
	return false
}
