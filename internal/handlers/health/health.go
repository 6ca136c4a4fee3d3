package health

import (
	"context"
	"time"

	"overseerr-about/internal/logging"
	"overseerr-about/internal/resource"

	"github.com/gofiber/fiber/v3"
)

type HealthStatus struct {
	OK        bool                       `json:"ok"`
	Timestamp string                     `json:"timestamp"`
	Database  DatabaseHealth             `json:"database"`
	Resources map[string]resource.Health `json:"resources"`
}

type DatabaseHealth struct {
	OK             bool   `json:"ok"`
	Error          string `json:"error,omitempty"`
	ConnectionTime string `json:"connection_time"`
}

// Pinger is satisfied by the snapshot store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Reporter is satisfied by every resource.Resource.
type Reporter interface {
	Health() resource.Health
}

// Health reports database connectivity and the state of each upstream
// resource. required names the resource whose missing data fails the check;
// the others are reported but advisory.
func Health(db Pinger, required string, resources ...Reporter) fiber.Handler {
	return func(c fiber.Ctx) error {
		status := HealthStatus{
			OK:        true,
			Timestamp: time.Now().Format(time.RFC3339),
			Resources: make(map[string]resource.Health, len(resources)),
		}

		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		dbStart := time.Now()
		err := db.Ping(ctx)
		status.Database.ConnectionTime = time.Since(dbStart).String()
		if err != nil {
			status.OK = false
			status.Database.Error = err.Error()
			logging.Debug("Database ping failed", "error", err)
		} else {
			status.Database.OK = true
		}

		for _, r := range resources {
			h := r.Health()
			status.Resources[h.Key] = h
			if h.Key == required && !h.HasData && h.Status == resource.Degraded {
				status.OK = false
			}
		}

		if !status.OK {
			return c.Status(fiber.StatusServiceUnavailable).JSON(status)
		}
		return c.JSON(status)
	}
}
