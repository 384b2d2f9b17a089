package destination

import (
	"os"
	"time"
)

// DefaultInterwikiPrefix tags imported revisions so their origin stays
// traceable on the destination wiki.
const DefaultInterwikiPrefix = "incubator"

// Config holds destination-wiki connection settings shared across wikis.
// Per-wiki state (the API endpoint) and per-user state (the delegated-auth
// credential pair) are supplied when the client is constructed.
type Config struct {
	// ConsumerKey identifies the importer's OAuth consumer registration
	ConsumerKey string

	// ConsumerSecret is the matching consumer secret
	ConsumerSecret string

	// InterwikiPrefix tags imported revisions with their origin
	InterwikiPrefix string

	// Timeout for API requests
	Timeout time.Duration

	// UserAgent identifies the importer to the wiki
	UserAgent string
}

// LoadConfig loads destination configuration from environment variables
func LoadConfig() *Config {
	timeout := 120 * time.Second
	if t := os.Getenv("DESTINATION_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	prefix := os.Getenv("DESTINATION_INTERWIKI_PREFIX")
	if prefix == "" {
		prefix = DefaultInterwikiPrefix
	}

	return &Config{
		ConsumerKey:     os.Getenv("DESTINATION_CONSUMER_KEY"),
		ConsumerSecret:  os.Getenv("DESTINATION_CONSUMER_SECRET"),
		InterwikiPrefix: prefix,
		Timeout:         timeout,
		UserAgent:       os.Getenv("DESTINATION_USER_AGENT"),
	}
}

// HasConsumer returns true if the OAuth consumer pair is configured
func (c *Config) HasConsumer() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != ""
}
