package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	VaultPath     string // markdown documents with front matter
	ManifestsPath string // optional extra .hcl component manifests

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.VaultPath == "" {
		return nil, errors.New("VaultPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
