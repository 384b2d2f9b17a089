package importer

import "os"

// Config holds orchestrator-level settings.
type Config struct {
	// DataDir is where the durable Wiki/Page/User record files live
	DataDir string

	// Summary is the edit summary attached to import uploads
	Summary string
}

// LoadConfig loads importer configuration from environment variables
func LoadConfig() *Config {
	dataDir := os.Getenv("IMPORTER_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	summary := os.Getenv("IMPORTER_SUMMARY")
	if summary == "" {
		summary = "Importing page history from Incubator"
	}

	return &Config{
		DataDir: dataDir,
		Summary: summary,
	}
}
