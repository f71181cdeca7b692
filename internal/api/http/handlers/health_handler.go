package handlers

import (
	"context"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sav-service/internal/sla"
)

// readyTimeout bounds every dependency check.
const readyTimeout = 2 * time.Second

// Checker is a dependency probed by the readiness endpoint.
type Checker interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	calendar    *sla.Calendar
	checks      map[string]Checker
	now         func() time.Time
}

// NewHealthHandler returns a handler probing checks by name. calendar may be
// nil.
func NewHealthHandler(serviceName, version string, calendar *sla.Calendar, checks map[string]Checker) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		calendar:    calendar,
		checks:      checks,
		now:         time.Now,
	}
}

// Live reports liveness and whether support is currently within business
// hours, which dashboards use to explain frozen countdowns.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	}
	if h.calendar != nil {
		body["timezone"] = h.calendar.Location().String()
		body["business_hours"] = h.calendar.IsBusinessTime(h.now())
	}
	return c.JSON(body)
}

// Ready pings every dependency and fails with 503 when one is down.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	depStatus := fiber.Map{}
	ready := true
	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			depStatus[name] = err.Error()
			ready = false
			continue
		}
		depStatus[name] = "ok"
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}
