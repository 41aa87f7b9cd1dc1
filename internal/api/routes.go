package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/tphakala/trainwatch-go/internal/datastore"
	"github.com/tphakala/trainwatch-go/internal/errors"
	"github.com/tphakala/trainwatch-go/internal/station"
)

// CreateRouteRequest is the payload of POST /routes.
type CreateRouteRequest struct {
	UserID        uint   `json:"user_id"`
	DepartureName string `json:"departure_name"`
	ArrivalName   string `json:"arrival_name"`
	TrainNumber   string `json:"train_number,omitempty"`
}

// RouteResponse is the public shape of a monitored route.
type RouteResponse struct {
	ID            uint   `json:"id"`
	UserID        uint   `json:"user_id"`
	DepartureName string `json:"departure_name"`
	ArrivalName   string `json:"arrival_name"`
	DepartureCode string `json:"departure_code"`
	ArrivalCode   string `json:"arrival_code"`
	TrainNumber   string `json:"train_number,omitempty"`
	Active        bool   `json:"active"`
}

func routeResponse(r *datastore.Route) RouteResponse {
	return RouteResponse{
		ID:            r.ID,
		UserID:        r.UserID,
		DepartureName: r.DepartureName,
		ArrivalName:   r.ArrivalName,
		DepartureCode: r.DepartureCode,
		ArrivalCode:   r.ArrivalCode,
		TrainNumber:   r.TrainNumber,
		Active:        r.Active,
	}
}

// CreateRoute registers a new monitored route. Both station names are
// resolved immediately so the caller learns about an unknown station at
// creation time instead of silently broken monitoring later.
func (c *Controller) CreateRoute(ctx echo.Context) error {
	var req CreateRouteRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	req.DepartureName = strings.TrimSpace(req.DepartureName)
	req.ArrivalName = strings.TrimSpace(req.ArrivalName)
	req.TrainNumber = strings.TrimSpace(req.TrainNumber)
	if req.UserID == 0 || req.DepartureName == "" || req.ArrivalName == "" {
		return c.HandleError(ctx, nil, "user_id, departure_name and arrival_name are required", http.StatusBadRequest)
	}

	if _, err := c.DS.GetUser(req.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.HandleError(ctx, err, "Unknown user", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Failed to look up user", http.StatusInternalServerError)
	}

	reqCtx := ctx.Request().Context()
	depCode, err := c.Resolver.Resolve(reqCtx, req.DepartureName)
	if err != nil {
		return c.stationLookupError(ctx, err, req.DepartureName)
	}
	arrCode, err := c.Resolver.Resolve(reqCtx, req.ArrivalName)
	if err != nil {
		return c.stationLookupError(ctx, err, req.ArrivalName)
	}

	route := datastore.Route{
		UserID:        req.UserID,
		DepartureName: req.DepartureName,
		ArrivalName:   req.ArrivalName,
		DepartureCode: depCode,
		ArrivalCode:   arrCode,
		TrainNumber:   req.TrainNumber,
		Active:        true,
	}
	if err := c.DS.SaveRoute(&route); err != nil {
		return c.HandleError(ctx, err, "Failed to save route", http.StatusInternalServerError)
	}

	c.logger.Info("route created",
		"route_id", route.ID,
		"user_id", route.UserID,
		"departure", route.DepartureName,
		"arrival", route.ArrivalName,
	)
	return ctx.JSON(http.StatusCreated, routeResponse(&route))
}

func (c *Controller) stationLookupError(ctx echo.Context, err error, name string) error {
	if errors.Is(err, station.ErrNotFound) {
		return c.HandleError(ctx, err, "No station matches name: "+name, http.StatusUnprocessableEntity)
	}
	return c.HandleError(ctx, err, "Station lookup failed for: "+name, http.StatusBadGateway)
}

// ListRoutes returns the routes of one user, or every active route when no
// user_id query parameter is given.
func (c *Controller) ListRoutes(ctx echo.Context) error {
	var (
		routes []datastore.Route
		err    error
	)

	if raw := ctx.QueryParam("user_id"); raw != "" {
		userID, parseErr := strconv.ParseUint(raw, 10, 32)
		if parseErr != nil {
			return c.HandleError(ctx, parseErr, "Invalid user_id", http.StatusBadRequest)
		}
		routes, err = c.DS.GetRoutesByUser(uint(userID))
	} else {
		routes, err = c.DS.GetActiveRoutes()
	}
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list routes", http.StatusInternalServerError)
	}

	out := make([]RouteResponse, 0, len(routes))
	for i := range routes {
		out = append(out, routeResponse(&routes[i]))
	}
	return ctx.JSON(http.StatusOK, out)
}

// DeleteRoute removes a route together with its history and notification
// log.
func (c *Controller) DeleteRoute(ctx echo.Context) error {
	id, err := c.routeIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid route ID", http.StatusBadRequest)
	}

	if _, err := c.DS.GetRoute(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.HandleError(ctx, err, "Route not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Failed to look up route", http.StatusInternalServerError)
	}

	if err := c.DS.DeleteRoute(id); err != nil {
		return c.HandleError(ctx, err, "Failed to delete route", http.StatusInternalServerError)
	}

	c.logger.Info("route deleted", "route_id", id)
	return ctx.NoContent(http.StatusNoContent)
}

// RefreshRoute runs one synchronous monitoring pass for this route,
// outside the periodic schedule.
func (c *Controller) RefreshRoute(ctx echo.Context) error {
	id, err := c.routeIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid route ID", http.StatusBadRequest)
	}

	if err := c.Monitor.RefreshRoute(ctx.Request().Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.HandleError(ctx, err, "Route not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Route refresh failed", http.StatusBadGateway)
	}

	return ctx.JSON(http.StatusOK, map[string]string{"status": "refreshed"})
}

// TrainStatusResponse is one row of a route's status history.
type TrainStatusResponse struct {
	TrainCode    string    `json:"train_code"`
	Status       string    `json:"status"`
	DelayMinutes int       `json:"delay_minutes"`
	LastUpdate   time.Time `json:"last_update"`
}

// RouteHistory returns the most recent status records for a route, newest
// first, capped at the configured history limit.
func (c *Controller) RouteHistory(ctx echo.Context) error {
	id, err := c.routeIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid route ID", http.StatusBadRequest)
	}

	if _, err := c.DS.GetRoute(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.HandleError(ctx, err, "Route not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Failed to look up route", http.StatusInternalServerError)
	}

	history, err := c.DS.TrainStatusHistory(id, c.Settings.Monitor.HistoryLimit)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load status history", http.StatusInternalServerError)
	}

	out := make([]TrainStatusResponse, 0, len(history))
	for i := range history {
		out = append(out, TrainStatusResponse{
			TrainCode:    history[i].TrainCode,
			Status:       history[i].Status,
			DelayMinutes: history[i].DelayMinutes,
			LastUpdate:   history[i].LastUpdate,
		})
	}
	return ctx.JSON(http.StatusOK, out)
}

func (c *Controller) routeIDParam(ctx echo.Context) (uint, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
