// Package conf loads and validates the TrainWatch-Go configuration. It
// defines the settings struct and functions to load and save the settings.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"github.com/tphakala/trainwatch-go/internal/errors"
)

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled    bool   // true to enable this log
	Path       string // path to log file
	MaxSize    int    // maximum log file size in megabytes before rotation
	MaxBackups int    // number of rotated log files to keep
	MaxAge     int    // days to keep rotated log files
}

// MainSettings contains general application settings
type MainSettings struct {
	Name string    // name of this node, can be used to identify the source
	Log  LogConfig // main log configuration
}

// UpstreamSettings contains settings for the Viaggiatreno data source
type UpstreamSettings struct {
	BaseURL       string // base URL of the Viaggiatreno REST API
	LookupTimeout int    // station name lookup timeout in seconds
	StatusTimeout int    // departure board and train status timeout in seconds
}

// MonitorSettings contains settings for the route monitoring engine
type MonitorSettings struct {
	Interval          int // tick interval in minutes
	MaxConcurrent     int // maximum routes checked concurrently within a tick
	SuppressionWindow int // seconds between notifications of the same event kind
	HistoryLimit      int // status records returned by the history endpoint
}

// PushSettings contains settings for the push notification transport
type PushSettings struct {
	Enabled bool // false puts the dispatcher in log-only mode
	Timeout int  // send timeout in seconds
}

// SQLiteSettings contains the SQLite database configuration
type SQLiteSettings struct {
	Enabled bool
	Path    string // path to SQLite database file
}

// MySQLSettings contains the MySQL database configuration
type MySQLSettings struct {
	Enabled  bool
	Username string
	Password string
	Database string
	Host     string
	Port     string
}

// OutputSettings selects the database backend
type OutputSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// WebServerSettings contains settings for the HTTP API
type WebServerSettings struct {
	Enabled bool
	Port    string
}

// Settings is the root configuration struct
type Settings struct {
	Debug bool // true to enable debug log level

	Main      MainSettings
	Upstream  UpstreamSettings
	Monitor   MonitorSettings
	Push      PushSettings
	Output    OutputSettings
	WebServer WebServerSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// Setting returns the current settings instance, loading it if needed.
func Setting() *Settings {
	settingsMutex.RLock()
	instance := settingsInstance
	settingsMutex.RUnlock()
	if instance != nil {
		return instance
	}

	instance, err := Load()
	if err != nil {
		return nil
	}
	return instance
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("trainwatch")
	viper.AutomaticEnv()

	// Defaults defined in defaults.go
	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create one with defaults
			return createDefaultConfig(configPaths)
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes a default config file to the first config path.
func createDefaultConfig(configPaths []string) error {
	if len(configPaths) == 0 {
		return fmt.Errorf("no config paths available")
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("config_path", configPath).
			Build()
	}

	return nil
}
