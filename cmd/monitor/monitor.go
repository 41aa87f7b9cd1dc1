// Package monitor implements the long-running daemon command: the
// periodic monitoring scheduler plus the HTTP API server.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/trainwatch-go/internal/api"
	"github.com/tphakala/trainwatch-go/internal/conf"
	"github.com/tphakala/trainwatch-go/internal/datastore"
	"github.com/tphakala/trainwatch-go/internal/logging"
	"github.com/tphakala/trainwatch-go/internal/monitor"
	"github.com/tphakala/trainwatch-go/internal/notification"
	"github.com/tphakala/trainwatch-go/internal/station"
	"github.com/tphakala/trainwatch-go/internal/viaggiatreno"
)

// Command creates the monitor daemon command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the monitoring daemon",
		Long:  "Start the periodic route monitoring scheduler and, when enabled, the HTTP API server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the monitor command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().BoolVar(&settings.WebServer.Enabled, "webserver", viper.GetBool("webserver.enabled"), "Enable the HTTP API server")
	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "HTTP API listen port")
	cmd.Flags().BoolVar(&settings.Push.Enabled, "push", viper.GetBool("push.enabled"), "Enable push notification delivery")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}

func runDaemon(settings *conf.Settings) error {
	logger, closeLogger := daemonLogger(settings)
	defer func() {
		if err := closeLogger(); err != nil {
			fmt.Fprintf(os.Stderr, "error closing log file: %v\n", err)
		}
	}()

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
	scheduler := monitor.NewScheduler(engine,
		time.Duration(settings.Monitor.Interval)*time.Minute,
		logging.ForService("scheduler"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go scheduler.Start(ctx)

	var e *echo.Echo
	var controller *api.Controller
	if settings.WebServer.Enabled {
		e = echo.New()
		e.HideBanner = true
		controller = api.New(e, ds, settings, resolver, engine, scheduler)

		go func() {
			addr := ":" + settings.WebServer.Port
			if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server stopped", "error", err)
				stop()
			}
		}()
		logger.Info("HTTP API listening", "port", settings.WebServer.Port)
	}

	logger.Info("monitoring daemon started",
		"interval_minutes", settings.Monitor.Interval,
		"push_enabled", settings.Push.Enabled,
		"transport", transport.Name(),
	)

	<-ctx.Done()
	logger.Info("shutting down")

	if e != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown failed", "error", err)
		}
		if err := controller.Shutdown(); err != nil {
			logger.Error("API controller shutdown failed", "error", err)
		}
	}

	return nil
}

// daemonLogger returns the daemon's logger and a closer. With file logging
// enabled the logger writes to the rotating main log file; otherwise, or
// when the file cannot be opened, it falls back to the console logger.
func daemonLogger(settings *conf.Settings) (*slog.Logger, func() error) {
	console := logging.ForService("daemon")
	if console == nil {
		console = slog.Default().With("service", "daemon")
	}
	noClose := func() error { return nil }

	if !settings.Main.Log.Enabled {
		return console, noClose
	}

	level := slog.Leveler(slog.LevelInfo)
	if settings.Debug {
		level = slog.LevelDebug
	}

	fileLogger, closeLogger, err := logging.NewFileLogger(
		settings.Main.Log.Path, "daemon", level,
		logging.FileLoggerOptions{
			MaxSizeMB:  settings.Main.Log.MaxSize,
			MaxBackups: settings.Main.Log.MaxBackups,
			MaxAgeDays: settings.Main.Log.MaxAge,
		})
	if err != nil {
		console.Warn("failed to open log file, file logging disabled",
			"path", settings.Main.Log.Path, "error", err)
		return console, noClose
	}

	return fileLogger, closeLogger
}
