// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "FieldAtlas")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/fieldatlas.log")

	viper.SetDefault("fetch.maxattempts", 5)
	viper.SetDefault("fetch.basedelay", time.Second)
	viper.SetDefault("fetch.timeout", 30*time.Second)

	viper.SetDefault("inat.baseurl", "https://api.inaturalist.org/v1")
	viper.SetDefault("inat.pagesize", 100)
	viper.SetDefault("inat.pagedelay", 300*time.Millisecond)
	viper.SetDefault("inat.observationlimit", 30)
	viper.SetDefault("inat.maximages", 5)
	viper.SetDefault("inat.cachettl", 15*time.Minute)

	viper.SetDefault("wikipedia.baseurl", "https://en.wikipedia.org/api/rest_v1")
	viper.SetDefault("wikipedia.requestspersec", 2.0)
	viper.SetDefault("wikipedia.excerptmaxchars", 1200)

	viper.SetDefault("firestore.project", "")
	viper.SetDefault("firestore.collection", "species")
	viper.SetDefault("firestore.credentialsfile", "")

	viper.SetDefault("server.address", ":8080")
}
