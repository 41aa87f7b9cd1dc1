// Package station resolves human station names to stable upstream codes,
// consulting a persistence-backed cache before calling the upstream lookup.
package station

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/trainwatch-go/internal/datastore"
	"github.com/tphakala/trainwatch-go/internal/logging"
	"github.com/tphakala/trainwatch-go/internal/viaggiatreno"
)

// ErrNotFound is returned when neither the cache nor the upstream lookup
// knows the station name.
var ErrNotFound = viaggiatreno.ErrStationNotFound

// codeLookup is the slice of the upstream client the resolver needs.
type codeLookup interface {
	LookupStationCode(ctx context.Context, name string) (string, error)
}

// Store is the slice of the datastore the resolver needs.
type Store interface {
	GetStationByName(name string) (*datastore.Station, error)
	SaveStation(station *datastore.Station) error
}

// Resolver resolves station names to codes. The database is the source of
// truth; an in-process cache in front of it spares a query per route per
// tick for names that were already resolved.
type Resolver struct {
	ds     Store
	client codeLookup
	memory *cache.Cache
	logger *slog.Logger
}

// NewResolver creates a resolver backed by the given datastore and upstream
// lookup.
func NewResolver(ds Store, client codeLookup) *Resolver {
	logger := logging.ForService("station")
	if logger == nil {
		logger = slog.Default().With("service", "station")
	}

	return &Resolver{
		ds:     ds,
		client: client,
		memory: cache.New(12*time.Hour, time.Hour),
		logger: logger,
	}
}

// Resolve returns the upstream code for a station name. Lookup order:
// in-process cache, station table (case-insensitive), upstream lookup.
// A successful upstream lookup is persisted for future calls; an upstream
// miss returns ErrNotFound without caching anything.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", ErrNotFound
	}

	if code, found := r.memory.Get(key); found {
		return code.(string), nil
	}

	station, err := r.ds.GetStationByName(name)
	if err != nil {
		return "", err
	}
	if station != nil {
		r.memory.SetDefault(key, station.Code)
		return station.Code, nil
	}

	code, err := r.client.LookupStationCode(ctx, name)
	if err != nil {
		// Not found and transport failures both leave the cache untouched,
		// callers distinguish them through the returned error.
		return "", err
	}

	// Concurrent resolutions of the same name may race here; the insert
	// treats the unique-name conflict as benign, so the last writer simply
	// adopts the stored mapping.
	if err := r.ds.SaveStation(&datastore.Station{Name: name, Code: code}); err != nil {
		r.logger.Warn("failed to persist resolved station", "station_name", name, "error", err)
	}

	r.memory.SetDefault(key, code)
	r.logger.Debug("resolved station", "station_name", name, "station_code", code)
	return code, nil
}

// Invalidate drops the in-process cache. Called after an administrative
// bulk clear of the station table.
func (r *Resolver) Invalidate() {
	r.memory.Flush()
}
