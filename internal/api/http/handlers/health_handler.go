package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/weaver-helpdesk/internal/escalation"
	"github.com/spec-kit/weaver-helpdesk/internal/observability"
)

// Pinger is a dependency that can report its connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SweepReporter exposes the last escalation sweep.
type SweepReporter interface {
	LastResult() (escalation.SweepResult, bool)
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName  string
	version      string
	dependencies map[string]Pinger
	metrics      *observability.Metrics
	sweeps       SweepReporter
}

// NewHealthHandler returns a new handler instance. Only the dependencies
// passed in are checked for readiness.
func NewHealthHandler(serviceName, version string, dependencies map[string]Pinger, metrics *observability.Metrics, sweeps SweepReporter) *HealthHandler {
	return &HealthHandler{
		serviceName:  serviceName,
		version:      version,
		dependencies: dependencies,
		metrics:      metrics,
		sweeps:       sweeps,
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true
	for name, dep := range h.dependencies {
		if err := dep.Ping(ctx); err != nil {
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

// Metrics GET /health/metrics.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	body := fiber.Map{"metrics": h.metrics.Snapshot()}
	if h.sweeps != nil {
		if last, ok := h.sweeps.LastResult(); ok {
			body["last_escalation_sweep"] = last
		}
	}
	return c.JSON(body)
}
