package monitor

import (
	"log/slog"
	"time"

	"github.com/tphakala/trainwatch-go/internal/datastore"
	"github.com/tphakala/trainwatch-go/internal/viaggiatreno"
)

// historyStore is the slice of the datastore the detector needs.
type historyStore interface {
	LatestTrainStatus(routeID uint, trainCode string) (*datastore.TrainStatus, error)
	SaveTrainStatus(status *datastore.TrainStatus) error
}

// Detector compares newly normalized status against the most recent
// persisted record for a (route, train) pair and appends a new history row
// only on change.
type Detector struct {
	store  historyStore
	logger *slog.Logger
}

// NewDetector creates a change detector over the given history store.
func NewDetector(store historyStore, logger *slog.Logger) *Detector {
	return &Detector{store: store, logger: logger}
}

// Detect reports whether the normalized status differs from the latest
// persisted record. Equality is exact on both fields: a delay shrinking
// from 12 to 8 minutes while remaining Delayed still counts as changed.
// On change a new record is appended; nothing is ever updated in place.
func (d *Detector) Detect(route *datastore.Route, trainCode string, status viaggiatreno.Status, delay int) (bool, error) {
	last, err := d.store.LatestTrainStatus(route.ID, trainCode)
	if err != nil {
		return false, err
	}

	if last != nil && last.Status == string(status) && last.DelayMinutes == delay {
		return false, nil
	}

	record := &datastore.TrainStatus{
		RouteID:      route.ID,
		TrainCode:    trainCode,
		Status:       string(status),
		DelayMinutes: delay,
		LastUpdate:   time.Now(),
	}
	if err := d.store.SaveTrainStatus(record); err != nil {
		return false, err
	}

	d.logger.Debug("status change detected",
		"route_id", route.ID,
		"train_code", trainCode,
		"status", status,
		"delay_minutes", delay,
	)
	return true, nil
}
