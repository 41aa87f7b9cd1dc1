// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/trainwatch-go/internal/conf"
	"github.com/tphakala/trainwatch-go/internal/errors"
	"github.com/tphakala/trainwatch-go/internal/logging"
)

// Interface abstracts the underlying database implementation and defines
// the operations the monitoring engine and the API surface depend on.
type Interface interface {
	Open() error
	Close() error

	// users
	SaveUser(user *User) error
	GetUser(id uint) (User, error)
	GetUserByEmail(email string) (User, error)
	UserPushToken(userID uint) (string, error)

	// routes
	SaveRoute(route *Route) error
	GetRoute(id uint) (Route, error)
	GetActiveRoutes() ([]Route, error)
	GetRoutesByUser(userID uint) ([]Route, error)
	DeleteRoute(id uint) error

	// train status history
	SaveTrainStatus(status *TrainStatus) error
	LatestTrainStatus(routeID uint, trainCode string) (*TrainStatus, error)
	TrainStatusHistory(routeID uint, limit int) ([]TrainStatus, error)

	// notification log
	SaveNotificationLog(entry *NotificationLog) error
	LatestNotificationLog(routeID uint, trainCode, eventType string) (*NotificationLog, error)

	// station cache
	GetStationByName(name string) (*Station, error)
	SaveStation(station *Station) error
	ListStations() ([]Station, error)
	ClearStations() (int64, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore instance based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}

// SaveUser inserts a new user or updates an existing one.
func (ds *DataStore) SaveUser(user *User) error {
	if err := ds.DB.Save(user).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "save_user").
			Build()
	}
	return nil
}

// GetUser retrieves a user by its ID.
func (ds *DataStore) GetUser(id uint) (User, error) {
	var user User
	if err := ds.DB.First(&user, id).Error; err != nil {
		return User{}, fmt.Errorf("getting user with ID %d: %w", id, err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email address.
func (ds *DataStore) GetUserByEmail(email string) (User, error) {
	var user User
	if err := ds.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return User{}, fmt.Errorf("getting user with email %s: %w", email, err)
	}
	return user, nil
}

// UserPushToken returns the push token of a user, empty when the user has
// not registered a notification target.
func (ds *DataStore) UserPushToken(userID uint) (string, error) {
	var result struct {
		PushToken string
	}
	err := ds.DB.Model(&User{}).
		Select("push_token").
		Where("id = ?", userID).
		First(&result).Error
	if err != nil {
		return "", fmt.Errorf("getting push token for user %d: %w", userID, err)
	}
	return result.PushToken, nil
}

// SaveRoute inserts a new route or updates an existing one.
func (ds *DataStore) SaveRoute(route *Route) error {
	if err := ds.DB.Save(route).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "save_route").
			Build()
	}
	return nil
}

// GetRoute retrieves a route by its ID.
func (ds *DataStore) GetRoute(id uint) (Route, error) {
	var route Route
	if err := ds.DB.First(&route, id).Error; err != nil {
		return Route{}, fmt.Errorf("getting route with ID %d: %w", id, err)
	}
	return route, nil
}

// GetActiveRoutes retrieves all routes with the active flag set.
func (ds *DataStore) GetActiveRoutes() ([]Route, error) {
	var routes []Route
	if err := ds.DB.Where("active = ?", true).Find(&routes).Error; err != nil {
		return nil, fmt.Errorf("getting active routes: %w", err)
	}
	return routes, nil
}

// GetRoutesByUser retrieves all routes owned by a user.
func (ds *DataStore) GetRoutesByUser(userID uint) ([]Route, error) {
	var routes []Route
	if err := ds.DB.Where("user_id = ?", userID).Find(&routes).Error; err != nil {
		return nil, fmt.Errorf("getting routes for user %d: %w", userID, err)
	}
	return routes, nil
}

// DeleteRoute removes a route and its owned history and notification log
// in a single transaction.
func (ds *DataStore) DeleteRoute(id uint) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("route_id = ?", id).Delete(&TrainStatus{}).Error; err != nil {
			return fmt.Errorf("deleting status history for route %d: %w", id, err)
		}
		if err := tx.Where("route_id = ?", id).Delete(&NotificationLog{}).Error; err != nil {
			return fmt.Errorf("deleting notification log for route %d: %w", id, err)
		}
		if err := tx.Delete(&Route{}, id).Error; err != nil {
			return fmt.Errorf("deleting route %d: %w", id, err)
		}
		return nil
	})
}

// SaveTrainStatus appends a status snapshot. Rows are never updated.
func (ds *DataStore) SaveTrainStatus(status *TrainStatus) error {
	if status.LastUpdate.IsZero() {
		status.LastUpdate = time.Now()
	}
	if err := ds.DB.Create(status).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "save_train_status").
			Context("route_id", status.RouteID).
			Build()
	}
	return nil
}

// LatestTrainStatus retrieves the most recent status snapshot for a
// (route, train code) pair. Returns nil when no history exists yet.
func (ds *DataStore) LatestTrainStatus(routeID uint, trainCode string) (*TrainStatus, error) {
	var status TrainStatus
	err := ds.DB.Where("route_id = ? AND train_code = ?", routeID, trainCode).
		Order("last_update DESC").
		First(&status).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting latest status for route %d train %s: %w", routeID, trainCode, err)
	}
	return &status, nil
}

// TrainStatusHistory retrieves the most recent status snapshots for a route.
func (ds *DataStore) TrainStatusHistory(routeID uint, limit int) ([]TrainStatus, error) {
	var statuses []TrainStatus
	err := ds.DB.Where("route_id = ?", routeID).
		Order("last_update DESC").
		Limit(limit).
		Find(&statuses).Error
	if err != nil {
		return nil, fmt.Errorf("getting status history for route %d: %w", routeID, err)
	}
	return statuses, nil
}

// SaveNotificationLog records one confirmed dispatch.
func (ds *DataStore) SaveNotificationLog(entry *NotificationLog) error {
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}
	if err := ds.DB.Create(entry).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "save_notification_log").
			Context("route_id", entry.RouteID).
			Build()
	}
	return nil
}

// LatestNotificationLog retrieves the most recent dispatch for an exact
// (route, train code, event type) triple. Returns nil when none exists.
func (ds *DataStore) LatestNotificationLog(routeID uint, trainCode, eventType string) (*NotificationLog, error) {
	var entry NotificationLog
	err := ds.DB.Where("route_id = ? AND train_code = ? AND event_type = ?", routeID, trainCode, eventType).
		Order("sent_at DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting latest notification for route %d train %s event %s: %w",
			routeID, trainCode, eventType, err)
	}
	return &entry, nil
}

// GetStationByName retrieves a cached station by name, case-insensitively.
// Returns nil when the name has not been resolved yet.
func (ds *DataStore) GetStationByName(name string) (*Station, error) {
	var station Station
	err := ds.DB.Where("LOWER(name) = LOWER(?)", name).First(&station).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting station %q: %w", name, err)
	}
	return &station, nil
}

// SaveStation inserts a resolved station mapping. Concurrent resolutions of
// the same name may race to insert; the unique-name conflict is treated as
// benign and the insert becomes a no-op.
func (ds *DataStore) SaveStation(station *Station) error {
	err := ds.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(station).Error
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "save_station").
			Context("station_name", station.Name).
			Build()
	}
	return nil
}

// ListStations retrieves all cached stations ordered by name.
func (ds *DataStore) ListStations() ([]Station, error) {
	var stations []Station
	if err := ds.DB.Order("name ASC").Find(&stations).Error; err != nil {
		return nil, fmt.Errorf("listing stations: %w", err)
	}
	return stations, nil
}

// ClearStations removes every cached station and returns the number deleted.
func (ds *DataStore) ClearStations() (int64, error) {
	result := ds.DB.Where("1 = 1").Delete(&Station{})
	if result.Error != nil {
		return 0, fmt.Errorf("clearing station cache: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&User{}, &Route{}, &TrainStatus{}, &NotificationLog{}, &Station{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}

	if debug {
		getLogger().Debug("database connection initialized", "type", dbType, "connection", connectionInfo)
	}

	return nil
}

// getLogger returns the datastore service logger, falling back to the
// default logger when logging has not been initialized.
func getLogger() *slog.Logger {
	if l := logging.ForService("datastore"); l != nil {
		return l
	}
	return slog.Default()
}
