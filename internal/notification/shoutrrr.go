package notification

import (
	"context"
	"io"
	"log"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/tphakala/trainwatch-go/internal/errors"
)

// ShoutrrrTransport sends via nicholas-fedor/shoutrrr. Targets are per-user
// service URLs, so a sender is built per delivery rather than once at
// startup.
type ShoutrrrTransport struct {
	timeout time.Duration
}

// NewShoutrrrTransport creates a shoutrrr-backed transport.
func NewShoutrrrTransport(timeout time.Duration) *ShoutrrrTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ShoutrrrTransport{timeout: timeout}
}

func (s *ShoutrrrTransport) Name() string { return "shoutrrr" }

// Send delivers one notification to the target service URL.
func (s *ShoutrrrTransport) Send(ctx context.Context, target, title, body string) error {
	if target == "" {
		return errors.Newf("empty notification target").
			Component("notification").
			Category(errors.CategoryValidation).
			Build()
	}
	_ = ctx // the router handles its own timeouts

	sender, err := shoutrrr.CreateSender(target)
	if err != nil {
		// Do not echo the target back, it may carry credentials
		return errors.New(err).
			Component("notification").
			Category(errors.CategoryNotification).
			Context("operation", "create_sender").
			Build()
	}
	sender.Timeout = s.timeout
	sender.SetLogger(log.New(io.Discard, "", 0))

	params := stypes.Params{}
	if title != "" {
		params.SetTitle(title)
	}

	errs := sender.Send(body, &params)
	for _, e := range errs {
		if e != nil {
			return errors.New(e).
				Component("notification").
				Category(errors.CategoryNotification).
				Context("operation", "send").
				Build()
		}
	}
	return nil
}
