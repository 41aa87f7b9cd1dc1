// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Default URL of the Viaggiatreno REST API.
const DefaultUpstreamBaseURL = "https://www.viaggiatreno.it/infomobilita/resteasy/viaggiatreno"

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "TrainWatch-Go")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/trainwatch.log")
	viper.SetDefault("main.log.maxsize", 100)
	viper.SetDefault("main.log.maxbackups", 3)
	viper.SetDefault("main.log.maxage", 28)

	viper.SetDefault("upstream.baseurl", DefaultUpstreamBaseURL)
	viper.SetDefault("upstream.lookuptimeout", 8)
	viper.SetDefault("upstream.statustimeout", 10)

	viper.SetDefault("monitor.interval", 10)
	viper.SetDefault("monitor.maxconcurrent", 5)
	viper.SetDefault("monitor.suppressionwindow", 600)
	viper.SetDefault("monitor.historylimit", 20)

	viper.SetDefault("push.enabled", false)
	viper.SetDefault("push.timeout", 10)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "trainwatch.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "trainwatch")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.database", "trainwatch")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")
}
