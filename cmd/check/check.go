// Package check implements the one-shot command: a single monitoring pass
// over every active route, then exit.
package check

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/trainwatch-go/internal/conf"
	"github.com/tphakala/trainwatch-go/internal/datastore"
	"github.com/tphakala/trainwatch-go/internal/logging"
	"github.com/tphakala/trainwatch-go/internal/monitor"
	"github.com/tphakala/trainwatch-go/internal/notification"
	"github.com/tphakala/trainwatch-go/internal/station"
	"github.com/tphakala/trainwatch-go/internal/viaggiatreno"
)

// Command creates the check command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run a single monitoring pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), settings)
		},
	}
}

func runOnce(ctx context.Context, settings *conf.Settings) error {
	logger := logging.ForService("check")

	ds := datastore.New(settings)
	if err := ds.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer func() {
		if err := ds.Close(); err != nil {
			logger.Error("failed to close datastore", "error", err)
		}
	}()

	client := viaggiatreno.NewClient(settings)
	resolver := station.NewResolver(ds, client)

	var transport notification.Transport
	if settings.Push.Enabled {
		transport = notification.NewShoutrrrTransport(time.Duration(settings.Push.Timeout) * time.Second)
	} else {
		transport = notification.NewLogTransport()
	}

	engine := monitor.New(settings, ds, resolver, client, transport)

	start := time.Now()
	engine.CheckAllRoutes(ctx)
	logger.Info("pass complete", "duration_ms", time.Since(start).Milliseconds())
	return nil
}
