// Package status derives the facts shown on the About panel from the about
// and status resources of the upstream server.
package status

import (
	"fmt"
	"strings"

	"overseerr-about/internal/latest"
)

// DevelopPrefix marks a bleeding-edge build in the reported version string.
const DevelopPrefix = "develop-"

// LocalCommitTag is reported by builds made from a local checkout.
const LocalCommitTag = "local"

// AboutInfo is the server-reported build and usage metadata.
type AboutInfo struct {
	Version         string `json:"version"`
	TotalMediaItems int    `json:"totalMediaItems"`
	TotalRequests   int    `json:"totalRequests"`
	TZ              string `json:"tz,omitempty"`
}

// StatusInfo is the server-reported update availability.
type StatusInfo struct {
	UpdateAvailable bool   `json:"updateAvailable"`
	CommitTag       string `json:"commitTag"`
}

// Phase is the page-level lifecycle: loading until about arrives, failed when
// about errored with no data, ready otherwise.
type Phase int

const (
	Loading Phase = iota
	Failed
	Ready
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Failed:
		return "failed"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// BuildKind separates tagged releases from develop-branch builds.
type BuildKind int

const (
	Release BuildKind = iota
	Develop
)

func (k BuildKind) String() string {
	if k == Develop {
		return "develop"
	}
	return "release"
}

func (k BuildKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Freshness classifies the running build against the upstream branch head.
type Freshness int

const (
	Unknown Freshness = iota
	UpToDate
	OutOfDate
)

func (f Freshness) String() string {
	switch f {
	case UpToDate:
		return "up_to_date"
	case OutOfDate:
		return "out_of_date"
	default:
		return "unknown"
	}
}

func (f Freshness) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// ParseBuild splits a raw version string into its build kind and the version
// shown to users. Only a leading prefix is stripped.
func ParseBuild(version string) (BuildKind, string) {
	if rest, ok := strings.CutPrefix(version, DevelopPrefix); ok {
		return Develop, rest
	}
	return Release, version
}

// Derived is everything the About panel shows, recomputed from the two
// latest snapshots on each evaluation.
type Derived struct {
	Phase           Phase     `json:"phase"`
	Kind            BuildKind `json:"buildKind"`
	DisplayVersion  string    `json:"displayVersion,omitempty"`
	Freshness       Freshness `json:"freshness"`
	CompareURL      string    `json:"compareUrl,omitempty"`
	TotalMediaItems int       `json:"totalMediaItems"`
	TotalRequests   int       `json:"totalRequests"`
	TZ              string    `json:"tz,omitempty"`
}

// IsDevelopBuild reports whether the running build came from the develop branch.
func (d Derived) IsDevelopBuild() bool { return d.Kind == Develop }

// HasTZ reports whether the server reported a time zone.
func (d Derived) HasTZ() bool { return d.TZ != "" }

// Deriver holds the upstream coordinates used for the comparison link.
type Deriver struct {
	RepoURL string // e.g. https://github.com/sct/overseerr
	Branch  string // branch head compared against, e.g. develop
}

// DefaultDeriver compares against the upstream Overseerr develop branch.
var DefaultDeriver = Deriver{
	RepoURL: "https://github.com/sct/overseerr",
	Branch:  "develop",
}

// Derive applies DefaultDeriver.
func Derive(about *AboutInfo, aboutErr error, st *StatusInfo) Derived {
	return DefaultDeriver.Derive(about, aboutErr, st)
}

// Derive is total over its inputs. The about resource gates the page; the
// status resource only affects freshness.
func (d Deriver) Derive(about *AboutInfo, aboutErr error, st *StatusInfo) Derived {
	if about == nil {
		if aboutErr != nil {
			return Derived{Phase: Failed}
		}
		return Derived{Phase: Loading}
	}

	kind, display := ParseBuild(about.Version)
	out := Derived{
		Phase:           Ready,
		Kind:            kind,
		DisplayVersion:  display,
		TotalMediaItems: about.TotalMediaItems,
		TotalRequests:   about.TotalRequests,
		TZ:              about.TZ,
	}

	switch {
	case st == nil:
		out.Freshness = Unknown
	case st.UpdateAvailable:
		out.Freshness = OutOfDate
		out.CompareURL = d.CompareURL(display)
	case st.CommitTag == LocalCommitTag:
		out.Freshness = Unknown
	default:
		out.Freshness = UpToDate
	}
	return out
}

// FromPair derives from a combined pair of about/status snapshots.
func (d Deriver) FromPair(p latest.Pair[AboutInfo, StatusInfo]) Derived {
	return d.Derive(p.First.Data, p.First.Err, p.Second.Data)
}

// CompareURL links the diff between displayVersion and the branch head.
func (d Deriver) CompareURL(displayVersion string) string {
	return fmt.Sprintf("%s/compare/%s...%s", strings.TrimRight(d.RepoURL, "/"), displayVersion, d.branch())
}

// CommitsURL links the commit history of the branch.
func (d Deriver) CommitsURL() string {
	return fmt.Sprintf("%s/commits/%s", strings.TrimRight(d.RepoURL, "/"), d.branch())
}

func (d Deriver) branch() string {
	if d.Branch == "" {
		return DefaultDeriver.Branch
	}
	return d.Branch
}
