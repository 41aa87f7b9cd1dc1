// model.go this code defines the data model for the application
package datastore

import "time"

// User represents a subscriber owning monitored routes
type User struct {
	ID        uint    `gorm:"primaryKey"`
	Email     string  `gorm:"size:255;uniqueIndex"`
	PushToken string  `gorm:"type:text"` // opaque notification target, empty when push is not set up
	Routes    []Route `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Route represents a monitored departure/arrival pair for one owning user.
// Station codes are filled lazily by the resolver and stay empty until the
// names have been resolved. An optional TrainNumber narrows monitoring to a
// single train instead of every departure matching the arrival name.
type Route struct {
	ID            uint   `gorm:"primaryKey"`
	UserID        uint   `gorm:"index;not null"`
	DepartureName string `gorm:"size:120"`
	ArrivalName   string `gorm:"size:120"`
	DepartureCode string `gorm:"size:20"`
	ArrivalCode   string `gorm:"size:20"`
	TrainNumber   string `gorm:"size:20"` // optional, empty monitors all departures to ArrivalName
	Active        bool   `gorm:"default:true"`

	Statuses      []TrainStatus     `gorm:"foreignKey:RouteID;constraint:OnDelete:CASCADE"`
	Notifications []NotificationLog `gorm:"foreignKey:RouteID;constraint:OnDelete:CASCADE"`
}

// Canonical train status values stored in TrainStatus.Status.
const (
	StatusOnTime    = "OnTime"
	StatusDelayed   = "Delayed"
	StatusCancelled = "Cancelled"
)

// TrainStatus is one snapshot of a train's canonical status, scoped to a
// route. Rows are append-only; the most recent row per (route, train code)
// is the current state used for change detection.
type TrainStatus struct {
	ID           uint      `gorm:"primaryKey"`
	RouteID      uint      `gorm:"index:idx_trainstatus_route_train;not null"`
	TrainCode    string    `gorm:"size:20;index:idx_trainstatus_route_train"`
	Status       string    `gorm:"size:40"` // OnTime, Delayed or Cancelled
	DelayMinutes int       `gorm:"default:0"`
	LastUpdate   time.Time `gorm:"index"`
}

// Notification event kinds stored in NotificationLog.EventType.
const (
	EventDelay        = "delay"
	EventCancellation = "cancellation"
	EventRestored     = "restored"
)

// NotificationLog records one confirmed dispatch. Used exclusively to
// suppress rapid repeat notifications for the same (route, train, event).
type NotificationLog struct {
	ID        uint      `gorm:"primaryKey"`
	RouteID   uint      `gorm:"index:idx_notificationlog_lookup;not null"`
	TrainCode string    `gorm:"size:20;index:idx_notificationlog_lookup"`
	EventType string    `gorm:"size:20;index:idx_notificationlog_lookup"`
	SentAt    time.Time `gorm:"index"`
}

// Station caches a resolved mapping from station name to upstream code.
// Entries are created lazily on first successful resolution and never
// updated, only read or bulk-cleared.
type Station struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:120;uniqueIndex"`
	Code string `gorm:"size:20;uniqueIndex"`
}
