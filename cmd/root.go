package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/trainwatch-go/cmd/check"
	"github.com/tphakala/trainwatch-go/cmd/monitor"
	"github.com/tphakala/trainwatch-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "trainwatch",
		Short: "TrainWatch route monitoring CLI",
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		panic(err)
	}

	subcommands := []*cobra.Command{
		monitor.Command(settings),
		check.Command(settings),
	}

	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().IntVar(&settings.Monitor.Interval, "interval", viper.GetInt("monitor.interval"), "Minutes between monitoring passes")
	rootCmd.PersistentFlags().IntVar(&settings.Monitor.MaxConcurrent, "maxconcurrent", viper.GetInt("monitor.maxconcurrent"), "Maximum routes checked in parallel")
	rootCmd.PersistentFlags().StringVar(&settings.Upstream.BaseURL, "baseurl", viper.GetString("upstream.baseurl"), "Viaggiatreno REST base URL")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
