package conf

import (
	"github.com/tphakala/trainwatch-go/internal/errors"
)

// ValidateSettings checks the loaded settings for configuration errors
// that would leave the monitoring engine unable to run.
func ValidateSettings(settings *Settings) error {
	if settings.Monitor.Interval <= 0 {
		return errors.Newf("monitor interval must be a positive number of minutes, got %d", settings.Monitor.Interval).
			Component("conf").
			Category(errors.CategoryValidation).
			Context("interval", settings.Monitor.Interval).
			Build()
	}

	if settings.Monitor.MaxConcurrent <= 0 {
		return errors.Newf("monitor maxconcurrent must be positive, got %d", settings.Monitor.MaxConcurrent).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	if settings.Monitor.SuppressionWindow < 0 {
		return errors.Newf("monitor suppression window must not be negative, got %d", settings.Monitor.SuppressionWindow).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	if settings.Upstream.BaseURL == "" {
		return errors.Newf("upstream base URL must not be empty").
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		return errors.Newf("no database backend enabled, enable output.sqlite or output.mysql").
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	if settings.Output.SQLite.Enabled && settings.Output.MySQL.Enabled {
		return errors.Newf("only one database backend may be enabled at a time").
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	return nil
}
