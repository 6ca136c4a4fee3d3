// Package panel maps derived About state onto what the settings page shows:
// badges, links, the develop-branch banner, and formatted counts.
package panel

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"overseerr-about/internal/config"
	"overseerr-about/internal/releases"
	"overseerr-about/internal/status"
)

type BadgeVariant string

const (
	BadgeDefault BadgeVariant = "default"
	BadgeSuccess BadgeVariant = "success"
	BadgeWarning BadgeVariant = "warning"
)

type Badge struct {
	Variant BadgeVariant `json:"variant"`
	Label   string       `json:"label"`
	Href    string       `json:"href,omitempty"`
}

// Item is one row of a section.
type Item struct {
	Title string `json:"title"`
	Value string `json:"value,omitempty"`
	Href  string `json:"href,omitempty"`
	Code  bool   `json:"code,omitempty"`
	Badge *Badge `json:"badge,omitempty"`
}

type Section struct {
	Title string `json:"title"`
	Items []Item `json:"items"`
}

// View is a fully resolved About page.
type View struct {
	Phase      status.Phase `json:"phase"`
	StatusCode int          `json:"statusCode"`
	Title      string       `json:"title"`

	DevelopBanner bool   `json:"developBanner"`
	BannerRepoURL string `json:"bannerRepoUrl,omitempty"`

	Version        string `json:"version,omitempty"`
	CurrentVersion string `json:"currentVersion,omitempty"`
	VersionBadge   *Badge `json:"versionBadge,omitempty"`

	Sections []Section `json:"sections,omitempty"`
}

// Builder turns Derived values into Views. It is safe for concurrent use.
type Builder struct {
	deriver status.Deriver
	links   config.Links
	printer *message.Printer
}

// NewBuilder formats counts for locale, falling back to English for tags
// that do not parse.
func NewBuilder(deriver status.Deriver, links config.Links, locale string) *Builder {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Builder{
		deriver: deriver,
		links:   links,
		printer: message.NewPrinter(tag),
	}
}

// Build maps d onto a View. rawVersion is the unmodified about.version, which
// the releases list compares against.
func (b *Builder) Build(d status.Derived, rawVersion string) View {
	v := View{
		Phase: d.Phase,
		Title: "About - Settings",
	}
	switch d.Phase {
	case status.Loading:
		v.StatusCode = 200
		return v
	case status.Failed:
		v.StatusCode = 500
		return v
	}

	v.StatusCode = 200
	v.DevelopBanner = d.IsDevelopBuild()
	if v.DevelopBanner {
		v.BannerRepoURL = b.deriver.RepoURL
	}
	v.Version = d.DisplayVersion
	v.CurrentVersion = rawVersion
	v.VersionBadge = b.versionBadge(d)

	info := Section{
		Title: "About Overseerr",
		Items: []Item{
			{Title: "Version", Value: d.DisplayVersion, Code: true, Badge: v.VersionBadge},
			{Title: "Total Media", Value: b.FormatCount(d.TotalMediaItems)},
			{Title: "Total Requests", Value: b.FormatCount(d.TotalRequests)},
		},
	}
	if d.HasTZ() {
		info.Items = append(info.Items, Item{Title: "Time Zone", Value: d.TZ, Code: true})
	}

	v.Sections = []Section{
		info,
		{Title: "Getting Support", Items: linkItems(b.links.Support)},
		{Title: "Support Overseerr", Items: linkItems(b.links.Sponsor)},
	}
	return v
}

func (b *Builder) versionBadge(d status.Derived) *Badge {
	switch d.Freshness {
	case status.OutOfDate:
		return &Badge{Variant: BadgeWarning, Label: "Out of Date", Href: d.CompareURL}
	case status.UpToDate:
		return &Badge{Variant: BadgeSuccess, Label: "Up to Date", Href: b.deriver.CommitsURL()}
	default:
		return nil
	}
}

// FormatCount renders n with the locale's digit grouping.
func (b *Builder) FormatCount(n int) string {
	return b.printer.Sprintf("%d", n)
}

func linkItems(links []config.Link) []Item {
	items := make([]Item, 0, len(links))
	for _, l := range links {
		it := Item{Title: l.Title, Value: l.URL, Href: l.URL}
		if l.Preferred {
			it.Badge = &Badge{Variant: BadgeDefault, Label: "Preferred"}
		}
		items = append(items, it)
	}
	return items
}

// WithReleases appends a Releases section to a ready view. Each row links to
// the release page and is badged Latest and/or Current Version.
func (v View) WithReleases(list []releases.Release) View {
	if v.Phase != status.Ready || len(list) == 0 {
		return v
	}
	items := make([]Item, 0, len(list))
	for _, r := range list {
		it := Item{Title: r.TagName, Value: r.Name, Href: r.HTMLURL}
		if it.Value == "" {
			it.Value = r.TagName
		}
		switch {
		case r.Current:
			it.Badge = &Badge{Variant: BadgeSuccess, Label: "Current Version"}
		case r.Latest:
			it.Badge = &Badge{Variant: BadgeWarning, Label: "Latest"}
		case r.Prerelease:
			it.Badge = &Badge{Variant: BadgeDefault, Label: "Pre-release"}
		}
		items = append(items, it)
	}
	out := v
	out.Sections = append(append([]Section(nil), v.Sections...), Section{Title: "Releases", Items: items})
	return out
}
