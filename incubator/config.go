package incubator

import (
	"os"
	"strings"
	"time"
)

// DefaultAPIURL is the shared Incubator wiki hosting not-yet-independent
// projects under per-project prefixes.
const DefaultAPIURL = "https://incubator.wikimedia.org/w/api.php"

// Config holds source-wiki connection settings
type Config struct {
	// APIURL is the Incubator api.php endpoint
	APIURL string

	// IndexURL is the index.php endpoint used for Special:Export
	IndexURL string

	// Timeout for API requests
	Timeout time.Duration

	// UserAgent identifies the importer to the wiki
	UserAgent string
}

// LoadConfig loads source-wiki configuration from environment variables
func LoadConfig() *Config {
	apiURL := os.Getenv("INCUBATOR_API_URL")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	timeout := 30 * time.Second
	if t := os.Getenv("INCUBATOR_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Config{
		APIURL:    apiURL,
		IndexURL:  indexURL(apiURL),
		Timeout:   timeout,
		UserAgent: os.Getenv("INCUBATOR_USER_AGENT"),
	}
}

// indexURL derives the index.php endpoint from an api.php endpoint.
func indexURL(apiURL string) string {
	if strings.HasSuffix(apiURL, "/api.php") {
		return strings.TrimSuffix(apiURL, "/api.php") + "/index.php"
	}
	return apiURL
}
