package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// StationResponse is the public shape of a cached station mapping.
type StationResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// ListStations returns every cached station name to code mapping.
func (c *Controller) ListStations(ctx echo.Context) error {
	stations, err := c.DS.ListStations()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list stations", http.StatusInternalServerError)
	}

	out := make([]StationResponse, 0, len(stations))
	for i := range stations {
		out = append(out, StationResponse{
			ID:   stations[i].ID,
			Name: stations[i].Name,
			Code: stations[i].Code,
		})
	}
	return ctx.JSON(http.StatusOK, out)
}

// ClearStations empties the station cache, both the database rows and the
// in-memory layer in front of them. Subsequent lookups repopulate from
// upstream.
func (c *Controller) ClearStations(ctx echo.Context) error {
	removed, err := c.DS.ClearStations()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to clear station cache", http.StatusInternalServerError)
	}
	c.Resolver.Invalidate()

	c.logger.Info("station cache cleared", "removed", removed)
	return ctx.JSON(http.StatusOK, map[string]int64{"removed": removed})
}
