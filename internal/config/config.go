package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	OverseerrBaseURL string
	OverseerrAPIKey  string
	SQLitePath       string
	Port             string

	// Revalidation
	RevalidateSec      int // e.g. 60
	UpstreamTimeoutSec int // e.g. 15

	// Upstream project used for compare/commit links and releases
	UpstreamRepo   string // owner/repo
	UpstreamBranch string
	GitHubAPIURL   string
	ReleasesTTLMin int
	ReleasesLimit  int

	// Presentation
	Locale    string
	LinksFile string

	// Admin
	AdminToken string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() Config {
	dbPath := env("SQLITE_PATH", "/var/lib/overseerr-about/about.db")
	_ = os.MkdirAll(filepath.Dir(dbPath), 0755)

	cfg := Config{
		OverseerrBaseURL:   env("OVERSEERR_BASE_URL", "http://overseerr:5055"),
		OverseerrAPIKey:    env("OVERSEERR_API_KEY", ""),
		SQLitePath:         dbPath,
		Port:               env("PORT", "8080"),
		RevalidateSec:      envInt("REVALIDATE_SEC", 60),
		UpstreamTimeoutSec: envInt("UPSTREAM_TIMEOUT_SEC", 15),
		UpstreamRepo:       env("UPSTREAM_REPO", "sct/overseerr"),
		UpstreamBranch:     env("UPSTREAM_BRANCH", "develop"),
		GitHubAPIURL:       env("GITHUB_API_URL", "https://api.github.com"),
		ReleasesTTLMin:     envInt("RELEASES_TTL_MIN", 360),
		ReleasesLimit:      envInt("RELEASES_LIMIT", 20),
		Locale:             env("LOCALE", "en"),
		LinksFile:          env("LINKS_FILE", ""),
		AdminToken:         env("ADMIN_TOKEN", ""),
		LogLevel:           env("LOG_LEVEL", "info"),
		LogFormat:          env("LOG_FORMAT", "text"),
	}
	return cfg
}

// Validate reports settings that make the service unusable.
func (c Config) Validate() error {
	if c.OverseerrBaseURL == "" {
		return fmt.Errorf("config: OVERSEERR_BASE_URL is required")
	}
	if !strings.Contains(c.UpstreamRepo, "/") {
		return fmt.Errorf("config: UPSTREAM_REPO must be owner/repo, got %q", c.UpstreamRepo)
	}
	return nil
}

// RevalidateInterval is the time between scheduled refreshes, never below 5s.
func (c Config) RevalidateInterval() time.Duration {
	d := time.Duration(c.RevalidateSec) * time.Second
	if d < 5*time.Second {
		return 5 * time.Second
	}
	return d
}

func (c Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutSec) * time.Second
}

func (c Config) ReleasesTTL() time.Duration {
	return time.Duration(c.ReleasesTTLMin) * time.Minute
}

// RepoURL is the browsable GitHub URL of the upstream project.
func (c Config) RepoURL() string {
	return "https://github.com/" + strings.Trim(c.UpstreamRepo, "/")
}

// Link is one entry in a support/sponsor section.
type Link struct {
	Title     string `yaml:"title"`
	URL       string `yaml:"url"`
	Preferred bool   `yaml:"preferred"`
}

// Links groups the static links shown next to the version details.
type Links struct {
	Support []Link `yaml:"support"`
	Sponsor []Link `yaml:"sponsor"`
}

// DefaultLinks mirrors the upstream project's own About page.
func DefaultLinks() Links {
	return Links{
		Support: []Link{
			{Title: "Documentation", URL: "https://docs.overseerr.dev"},
			{Title: "GitHub Discussions", URL: "https://github.com/sct/overseerr/discussions"},
			{Title: "Discord", URL: "https://discord.gg/overseerr"},
		},
		Sponsor: []Link{
			{Title: "Help Pay for Coffee ☕️", URL: "https://github.com/sponsors/sct", Preferred: true},
			{Title: "", URL: "https://patreon.com/overseerr"},
		},
	}
}

// LoadLinks reads a YAML links file. An empty path returns DefaultLinks;
// sections missing from the file keep their defaults.
func LoadLinks(path string) (Links, error) {
	links := DefaultLinks()
	if path == "" {
		return links, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return links, fmt.Errorf("read links file: %w", err)
	}
	var fromFile Links
	if err := yaml.Unmarshal(b, &fromFile); err != nil {
		return links, fmt.Errorf("parse links file %s: %w", path, err)
	}
	if len(fromFile.Support) > 0 {
		links.Support = fromFile.Support
	}
	if len(fromFile.Sponsor) > 0 {
		links.Sponsor = fromFile.Sponsor
	}
	return links, nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
