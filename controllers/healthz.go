package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/sanjiv-madhavan/natours-api/constants"
)

func (c *Controller) HealthCheckHandler(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status, envelopeStatus := http.StatusOK, constants.StatusSuccess
	report := envelope{}
	for _, name := range names {
		if err := c.checks[name].Ping(ctx); err != nil {
			c.logger.Error("Health check failed", slog.String("dependency", name), slog.Any("error", err))
			report[name] = "down"
			status, envelopeStatus = http.StatusServiceUnavailable, constants.StatusError
			continue
		}
		report[name] = "up"
	}
	c.middleware.SendJSONResponse(w, status, envelope{"status": envelopeStatus, "data": report})
	return nil
}
