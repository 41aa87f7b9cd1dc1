package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tphakala/trainwatch-go/internal/datastore"
	"github.com/tphakala/trainwatch-go/internal/notification"
	"github.com/tphakala/trainwatch-go/internal/viaggiatreno"
)

// Outcome describes what the dispatcher did with a detected change.
type Outcome string

const (
	// OutcomeSent means the transport accepted the notification and a log
	// entry was recorded.
	OutcomeSent Outcome = "sent"
	// OutcomeSuppressed means an identical event kind was notified too
	// recently for the same route and train.
	OutcomeSuppressed Outcome = "suppressed"
	// OutcomeSkipped means the route owner has no notification target.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means the transport rejected the send. Nothing is
	// persisted so the event stays eligible on the next tick.
	OutcomeFailed Outcome = "failed"
)

// notificationStore is the slice of the datastore the notifier needs.
type notificationStore interface {
	LatestNotificationLog(routeID uint, trainCode, eventType string) (*datastore.NotificationLog, error)
	SaveNotificationLog(entry *datastore.NotificationLog) error
	UserPushToken(userID uint) (string, error)
}

// Notifier decides per detected change whether a notification is owed and
// sends it through the injected transport.
type Notifier struct {
	store     notificationStore
	transport notification.Transport
	window    time.Duration // suppression window per (route, train, event kind)
	title     string        // notification title, the application name
	logger    *slog.Logger

	now func() time.Time // injectable for tests
}

// NewNotifier creates a notification dispatcher.
func NewNotifier(store notificationStore, transport notification.Transport, window time.Duration, title string, logger *slog.Logger) *Notifier {
	return &Notifier{
		store:     store,
		transport: transport,
		window:    window,
		title:     title,
		logger:    logger,
		now:       time.Now,
	}
}

// eventKindFor maps a canonical status to the notification event kind.
func eventKindFor(status viaggiatreno.Status) string {
	switch status {
	case viaggiatreno.StatusCancelled:
		return datastore.EventCancellation
	case viaggiatreno.StatusDelayed:
		return datastore.EventDelay
	default:
		return datastore.EventRestored
	}
}

// formatMessage builds the human-readable notification body.
func formatMessage(route *datastore.Route, trainCode string, status viaggiatreno.Status, delay int) string {
	leg := fmt.Sprintf("%s → %s", route.DepartureName, route.ArrivalName)
	switch status {
	case viaggiatreno.StatusCancelled:
		return fmt.Sprintf("Train %s cancelled on %s.", trainCode, leg)
	case viaggiatreno.StatusDelayed:
		return fmt.Sprintf("Train %s delayed by %d min (%s).", trainCode, delay, leg)
	default:
		return fmt.Sprintf("Train %s back on schedule (%s).", trainCode, leg)
	}
}

// MaybeNotify dispatches at most one notification for a detected change.
// The suppression window applies uniformly to all event kinds. A transport
// failure persists nothing: failed sends are not remembered, so the same
// event stays eligible on the very next tick.
func (n *Notifier) MaybeNotify(ctx context.Context, route *datastore.Route, trainCode string, status viaggiatreno.Status, delay int) (Outcome, error) {
	eventType := eventKindFor(status)

	last, err := n.store.LatestNotificationLog(route.ID, trainCode, eventType)
	if err != nil {
		return OutcomeFailed, err
	}
	if last != nil && n.now().Sub(last.SentAt) < n.window {
		n.logger.Debug("notification suppressed",
			"route_id", route.ID,
			"train_code", trainCode,
			"event", eventType,
			"last_sent", last.SentAt,
		)
		return OutcomeSuppressed, nil
	}

	token, err := n.store.UserPushToken(route.UserID)
	if err != nil {
		return OutcomeFailed, err
	}
	if token == "" {
		n.logger.Debug("notification skipped, owner has no push token",
			"route_id", route.ID,
			"user_id", route.UserID,
		)
		return OutcomeSkipped, nil
	}

	message := formatMessage(route, trainCode, status, delay)
	if err := n.transport.Send(ctx, token, n.title, message); err != nil {
		n.logger.Warn("notification transport failed",
			"route_id", route.ID,
			"train_code", trainCode,
			"event", eventType,
			"transport", n.transport.Name(),
			"error", err,
		)
		return OutcomeFailed, nil
	}

	entry := &datastore.NotificationLog{
		RouteID:   route.ID,
		TrainCode: trainCode,
		EventType: eventType,
		SentAt:    n.now(),
	}
	if err := n.store.SaveNotificationLog(entry); err != nil {
		// The push went out but the log write failed; surface the error so
		// the tick records it, the worst case is one duplicate later.
		return OutcomeSent, err
	}

	n.logger.Info("notification sent",
		"route_id", route.ID,
		"train_code", trainCode,
		"event", eventType,
	)
	return OutcomeSent, nil
}
