// Package api exposes the HTTP control surface: user registration, route
// management, status history, station cache administration and manual
// refresh triggers.
package api

import (
	"context"
	"crypto/rand"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/trainwatch-go/internal/conf"
	"github.com/tphakala/trainwatch-go/internal/datastore"
	"github.com/tphakala/trainwatch-go/internal/logging"
	"github.com/tphakala/trainwatch-go/internal/monitor"
)

// refresher runs a synchronous monitoring pass for one route.
type refresher interface {
	RefreshRoute(ctx context.Context, routeID uint) error
}

// schedulerInfo reports scheduler diagnostics.
type schedulerInfo interface {
	Status() monitor.SchedulerStatus
}

// stationResolver is the slice of the station resolver the API needs.
type stationResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
	Invalidate()
}

// Controller wires the HTTP routes to the engine's collaborators.
type Controller struct {
	Echo      *echo.Echo
	Group     *echo.Group
	DS        datastore.Interface
	Settings  *conf.Settings
	Resolver  stationResolver
	Monitor   refresher
	Scheduler schedulerInfo

	logger      *slog.Logger
	loggerClose func() error
	startTime   time.Time
}

// New creates the API controller and registers all routes.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings, res stationResolver, mon refresher, sched schedulerInfo) *Controller {
	logger, loggerClose := apiLogger(settings)

	c := &Controller{
		Echo:        e,
		DS:          ds,
		Settings:    settings,
		Resolver:    res,
		Monitor:     mon,
		Scheduler:   sched,
		logger:      logger,
		loggerClose: loggerClose,
		startTime:   time.Now(),
	}

	e.Use(middleware.Recover())
	c.Group = e.Group("/api/v1")
	c.initRoutes()
	return c
}

// apiLogger builds the controller's logger: a rotating file logger next to
// the main log file when file logging is enabled, the console logger
// otherwise. A file open failure degrades to a discard logger rather than
// blocking startup.
func apiLogger(settings *conf.Settings) (*slog.Logger, func() error) {
	noClose := func() error { return nil }

	if !settings.Main.Log.Enabled {
		logger := logging.ForService("api")
		if logger == nil {
			logger = slog.Default().With("service", "api")
		}
		return logger, noClose
	}

	level := slog.Leveler(slog.LevelInfo)
	if settings.Debug {
		level = slog.LevelDebug
	}

	logPath := filepath.Join(filepath.Dir(settings.Main.Log.Path), "api.log")
	logger, closeLogger, err := logging.NewFileLogger(logPath, "api", level,
		logging.FileLoggerOptions{
			MaxSizeMB:  settings.Main.Log.MaxSize,
			MaxBackups: settings.Main.Log.MaxBackups,
			MaxAgeDays: settings.Main.Log.MaxAge,
		})
	if err != nil {
		logging.Error("failed to open API log file", "path", logPath, "error", err)
		return logging.NewDiscardLogger("api"), noClose
	}

	return logger, closeLogger
}

// Shutdown releases the controller's resources, closing the API log file
// when one is open.
func (c *Controller) Shutdown() error {
	return c.loggerClose()
}

// initRoutes registers all API endpoints.
func (c *Controller) initRoutes() {
	g := c.Group

	g.GET("/health", c.Health)

	g.POST("/users/register", c.RegisterUser)

	g.GET("/routes", c.ListRoutes)
	g.POST("/routes", c.CreateRoute)
	g.DELETE("/routes/:id", c.DeleteRoute)
	g.POST("/routes/:id/refresh", c.RefreshRoute)
	g.GET("/routes/:id/history", c.RouteHistory)

	g.GET("/stations", c.ListStations)
	g.DELETE("/stations", c.ClearStations)

	g.GET("/scheduler", c.SchedulerStatus)
}

// ErrorResponse is the JSON shape of every non-2xx API reply.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// HandleError logs the failure and returns the JSON error response. The
// correlation ID ties the client-visible reply to the server log line.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := &ErrorResponse{
		Error:         message,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
	if err != nil {
		resp.Error = err.Error()
	}

	c.logger.Error("API error",
		"correlation_id", resp.CorrelationID,
		"message", message,
		"error", resp.Error,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
	)

	return ctx.JSON(code, resp)
}

// Health reports liveness and uptime.
func (c *Controller) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"uptime_seconds": int(time.Since(c.startTime).Seconds()),
	})
}

// SchedulerStatus reports scheduler diagnostics.
func (c *Controller) SchedulerStatus(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.Scheduler.Status())
}

func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "err-rand"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}
