package about

import (
	"bytes"
	"context"
	"strconv"

	aboutsvc "overseerr-about/internal/about"
	"overseerr-about/internal/db"
	"overseerr-about/internal/logging"
	"overseerr-about/internal/panel"
	"overseerr-about/internal/releases"
	"overseerr-about/internal/status"

	"github.com/gofiber/fiber/v3"
	ws "github.com/saveblush/gofiber3-contrib/websocket"
)

// Source yields the current panel evaluation.
type Source interface {
	Current() aboutsvc.Snapshot
}

// Refresher runs one revalidation pass.
type Refresher interface {
	RunOnce(ctx context.Context)
}

// ReleaseLister supplies the releases rendered under the About sections.
type ReleaseLister interface {
	List(ctx context.Context, currentVersion string) ([]releases.Release, error)
}

// History lists recorded version observations.
type History interface {
	VersionHistory(ctx context.Context, limit int) ([]db.VersionEntry, error)
}

// GET /api/about
func Snapshot(src Source) fiber.Handler {
	return func(c fiber.Ctx) error {
		return c.JSON(src.Current())
	}
}

// GET /about
// rel may be nil. A release fetch failure renders whatever list is cached.
func Page(src Source, rel ReleaseLister) fiber.Handler {
	return func(c fiber.Ctx) error {
		view := src.Current().View
		if rel != nil && view.Phase == status.Ready {
			list, err := rel.List(c.Context(), view.CurrentVersion)
			if err != nil {
				logging.Debug("Rendering page with cached releases", "error", err)
			}
			view = view.WithReleases(list)
		}

		var buf bytes.Buffer
		if err := panel.Render(&buf, view); err != nil {
			logging.Error("Render about panel failed", "error", err)
			return fiber.ErrInternalServerError
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Status(view.StatusCode).Send(buf.Bytes())
	}
}

// UpgradeOnly rejects non-websocket requests on the feed route.
func UpgradeOnly(c fiber.Ctx) error {
	if ws.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// GET /api/about/ws
func WS(handler func(*ws.Conn)) fiber.Handler {
	return ws.New(handler)
}

// GET /api/about/history?limit=N
func VersionHistory(h History) fiber.Handler {
	return func(c fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		entries, err := h.VersionHistory(c.Context(), limit)
		if err != nil {
			logging.Error("Load version history failed", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if entries == nil {
			entries = []db.VersionEntry{}
		}
		return c.JSON(fiber.Map{"entries": entries})
	}
}

// POST /api/about/revalidate
func Revalidate(src Source, r Refresher) fiber.Handler {
	return func(c fiber.Ctx) error {
		r.RunOnce(c.Context())
		return c.JSON(src.Current())
	}
}
