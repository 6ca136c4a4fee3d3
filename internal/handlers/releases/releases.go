package releases

import (
	"context"

	"overseerr-about/internal/releases"
	"overseerr-about/internal/status"

	"github.com/gofiber/fiber/v3"
)

// Lister is the release feed.
type Lister interface {
	List(ctx context.Context, currentVersion string) ([]releases.Release, error)
}

// VersionSource reports the running Overseerr version, raw.
type VersionSource interface {
	RawVersion() string
}

type Response struct {
	CurrentVersion string             `json:"current_version"`
	LatestTag      string             `json:"latest_tag,omitempty"`
	NewerAvailable bool               `json:"newer_available"`
	Releases       []releases.Release `json:"releases"`
	Error          string             `json:"error,omitempty"`
}

// GET /api/releases
// An upstream failure still answers 200 with whatever list is cached.
func List(l Lister, vs VersionSource) fiber.Handler {
	return func(c fiber.Ctx) error {
		raw := vs.RawVersion()
		list, err := l.List(c.Context(), raw)

		kind, display := status.ParseBuild(raw)
		resp := Response{CurrentVersion: display, Releases: list}
		for _, r := range list {
			if r.Latest {
				resp.LatestTag = r.TagName
				break
			}
		}
		if kind == status.Release {
			resp.NewerAvailable = releases.NewerThan(resp.LatestTag, display)
		}
		if err != nil {
			resp.Error = err.Error()
		}
		return c.JSON(resp)
	}
}
