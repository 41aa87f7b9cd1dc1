// Package notification provides the push transport used by the monitoring
// engine. The dispatcher only consumes a boolean success signal; transport
// specific error handling stays inside this package.
package notification

import "context"

// Transport delivers one notification to a subscriber's target. The target
// is the opaque token the user registered; for the shoutrrr transport it is
// a shoutrrr service URL.
type Transport interface {
	// Send delivers the message. A nil return means the transport accepted
	// the notification.
	Send(ctx context.Context, target, title, body string) error
	// Name identifies the transport in logs.
	Name() string
}
