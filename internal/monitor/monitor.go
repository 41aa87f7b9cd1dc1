// Package monitor implements the status-monitoring and notification
// dispatch engine: the periodic pass that resolves station codes, fetches
// live status, normalizes it, detects transitions against persisted history
// and dispatches notifications.
package monitor

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/trainwatch-go/internal/conf"
	"github.com/tphakala/trainwatch-go/internal/datastore"
	"github.com/tphakala/trainwatch-go/internal/errors"
	"github.com/tphakala/trainwatch-go/internal/logging"
	"github.com/tphakala/trainwatch-go/internal/notification"
	"github.com/tphakala/trainwatch-go/internal/viaggiatreno"
)

// routeStore is the slice of the datastore the engine needs for routes.
type routeStore interface {
	GetActiveRoutes() ([]datastore.Route, error)
	GetRoute(id uint) (datastore.Route, error)
	SaveRoute(route *datastore.Route) error
}

// statusClient is the slice of the upstream client the engine needs.
type statusClient interface {
	FetchDepartures(ctx context.Context, stationCode string) []viaggiatreno.RawDeparture
	FetchTrainStatus(ctx context.Context, stationCode, trainNumber string) (*viaggiatreno.RawDeparture, bool)
}

// resolver resolves station names to upstream codes.
type resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// Monitor runs the full pipeline for every active route. Per-route work is
// independent; a failure in one route never aborts the pass.
type Monitor struct {
	routes        routeStore
	resolver      resolver
	client        statusClient
	detector      *Detector
	notifier      *Notifier
	maxConcurrent int
	logger        *slog.Logger
}

// New wires the monitoring engine from its collaborators.
func New(settings *conf.Settings, ds datastore.Interface, res resolver, client statusClient, transport notification.Transport) *Monitor {
	logger := logging.ForService("monitor")
	if logger == nil {
		logger = slog.Default().With("service", "monitor")
	}

	window := time.Duration(settings.Monitor.SuppressionWindow) * time.Second

	return &Monitor{
		routes:        ds,
		resolver:      res,
		client:        client,
		detector:      NewDetector(ds, logger),
		notifier:      NewNotifier(ds, transport, window, settings.Main.Name, logger),
		maxConcurrent: settings.Monitor.MaxConcurrent,
		logger:        logger,
	}
}

// CheckAllRoutes runs one monitoring pass over all active routes. Routes
// are checked concurrently up to the configured limit; each route commits
// its own writes, so a later route's failure never rolls back an earlier
// route's work.
func (m *Monitor) CheckAllRoutes(ctx context.Context) {
	tickID := uuid.NewString()
	start := time.Now()

	routes, err := m.routes.GetActiveRoutes()
	if err != nil {
		m.logger.Error("failed to load active routes", "tick_id", tickID, "error", err)
		return
	}

	m.logger.Debug("monitoring pass started", "tick_id", tickID, "routes", len(routes))

	var wg sync.WaitGroup
	sem := make(chan struct{}, m.maxConcurrent)

	for i := range routes {
		route := routes[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			m.checkRouteIsolated(ctx, tickID, &route)
		}()
	}

	wg.Wait()
	m.logger.Info("monitoring pass finished",
		"tick_id", tickID,
		"routes", len(routes),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// checkRouteIsolated runs CheckRoute with per-route failure isolation: both
// returned errors and panics are logged and contained.
func (m *Monitor) checkRouteIsolated(ctx context.Context, tickID string, route *datastore.Route) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("panic while checking route",
				"tick_id", tickID,
				"route_id", route.ID,
				"panic", r,
			)
		}
	}()

	if err := m.CheckRoute(ctx, route); err != nil {
		m.logger.Warn("route check failed",
			"tick_id", tickID,
			"route_id", route.ID,
			"departure", route.DepartureName,
			"arrival", route.ArrivalName,
			"error", err,
		)
	}
}

// CheckRoute runs the pipeline for a single route: resolve missing codes,
// fetch live status for the pinned train or every matching departure,
// normalize, detect changes and dispatch notifications. Also used by the
// API's manual refresh outside the periodic scheduler.
func (m *Monitor) CheckRoute(ctx context.Context, route *datastore.Route) error {
	if err := m.ensureCodes(ctx, route); err != nil {
		return err
	}

	if route.TrainNumber != "" {
		raw, ok := m.client.FetchTrainStatus(ctx, route.DepartureCode, route.TrainNumber)
		if !ok {
			// Upstream had nothing usable; not an error, try again next tick
			return nil
		}
		return m.handleStatus(ctx, route, raw)
	}

	var firstErr error
	departures := m.client.FetchDepartures(ctx, route.DepartureCode)
	for i := range departures {
		raw := &departures[i]
		if !strings.EqualFold(strings.TrimSpace(raw.Destination), strings.TrimSpace(route.ArrivalName)) {
			continue
		}
		if err := m.handleStatus(ctx, route, raw); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// handleStatus normalizes one raw departure and runs change detection and
// notification for it.
func (m *Monitor) handleStatus(ctx context.Context, route *datastore.Route, raw *viaggiatreno.RawDeparture) error {
	trainCode := raw.TrainCode()
	if trainCode == "" {
		return nil
	}

	status, delay := viaggiatreno.Normalize(raw)

	changed, err := m.detector.Detect(route, trainCode, status, delay)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	outcome, err := m.notifier.MaybeNotify(ctx, route, trainCode, status, delay)
	if err != nil {
		return err
	}
	m.logger.Debug("change handled",
		"route_id", route.ID,
		"train_code", trainCode,
		"status", status,
		"delay_minutes", delay,
		"outcome", outcome,
	)
	return nil
}

// ensureCodes fills the route's station codes when missing, persisting the
// resolved values. A resolution miss aborts the route for this pass.
func (m *Monitor) ensureCodes(ctx context.Context, route *datastore.Route) error {
	if route.DepartureCode != "" && route.ArrivalCode != "" {
		return nil
	}

	if route.DepartureCode == "" {
		code, err := m.resolver.Resolve(ctx, route.DepartureName)
		if err != nil {
			return errors.New(err).
				Component("monitor").
				Category(errors.CategoryStationLookup).
				Context("station_name", route.DepartureName).
				Build()
		}
		route.DepartureCode = code
	}

	if route.ArrivalCode == "" {
		code, err := m.resolver.Resolve(ctx, route.ArrivalName)
		if err != nil {
			return errors.New(err).
				Component("monitor").
				Category(errors.CategoryStationLookup).
				Context("station_name", route.ArrivalName).
				Build()
		}
		route.ArrivalCode = code
	}

	return m.routes.SaveRoute(route)
}

// RefreshRoute performs one synchronous run of the pipeline for one route,
// reloading it first. Used by the API's manual "refresh now" trigger.
func (m *Monitor) RefreshRoute(ctx context.Context, routeID uint) error {
	route, err := m.routes.GetRoute(routeID)
	if err != nil {
		return err
	}
	return m.CheckRoute(ctx, &route)
}
