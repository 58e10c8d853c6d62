// config.go: settings struct and functions to load the FieldAtlas configuration.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// FetchSettings controls the retry behaviour of the shared fetch layer.
type FetchSettings struct {
	MaxAttempts int           // retry budget for transient failures
	BaseDelay   time.Duration // backoff base, attempt k waits base * 2^k
	Timeout     time.Duration // per-request timeout
}

// INatSettings contains settings for the iNaturalist API client.
type INatSettings struct {
	BaseURL          string        // API root, e.g. https://api.inaturalist.org/v1
	PageSize         int           // species listing page size
	PageDelay        time.Duration // fixed delay between listing pages
	ObservationLimit int           // observations fetched per species for images
	MaxImages        int           // cap on collected image URLs per species
	CacheTTL         time.Duration // in-process cache TTL for species listings
}

// WikipediaSettings contains settings for the Wikipedia REST client.
type WikipediaSettings struct {
	BaseURL         string  // REST root, e.g. https://en.wikipedia.org/api/rest_v1
	RequestsPerSec  float64 // request pacing towards Wikimedia
	ExcerptMaxChars int     // plain-text excerpt length derived from page HTML
}

// FirestoreSettings contains settings for the Firestore document store.
type FirestoreSettings struct {
	Project         string // GCP project id
	Collection      string // collection holding one document per species
	CredentialsFile string // optional service account file, ADC when empty
}

// ServerSettings contains settings for the HTTP trigger server.
type ServerSettings struct {
	Address string // listen address for the trigger endpoint
}

// Settings is the root configuration for the application.
type Settings struct {
	Debug bool // global debug flag

	Main struct {
		Name string // application name used in logs and user-agent
		Log  struct {
			Enabled bool
			Path    string
		}
	}

	Fetch     FetchSettings
	INat      INatSettings
	Wikipedia WikipediaSettings
	Firestore FirestoreSettings
	Server    ServerSettings
}

// Load reads the configuration from file and environment and returns the
// populated settings. Missing files are not an error, defaults apply.
func Load() (*Settings, error) {
	setDefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := getDefaultConfigPaths()
	if err != nil {
		return nil, fmt.Errorf("error getting config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("FIELDATLAS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// no config file, defaults and environment apply
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return settings, nil
}

// getDefaultConfigPaths returns the configuration search paths: the directory
// of the executable, the user's config directory, and the working directory.
func getDefaultConfigPaths() ([]string, error) {
	var configPaths []string

	exePath, err := os.Executable()
	if err == nil {
		configPaths = append(configPaths, filepath.Dir(exePath))
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		configPaths = append(configPaths, filepath.Join(configDir, "fieldatlas"))
	}

	configPaths = append(configPaths, ".")
	return configPaths, nil
}
