package config

import "time"

// TrackingConfig configures the experiment tracking platform client.
type TrackingConfig struct {
	BaseURL     string        `mapstructure:"base_url" validate:"required,url"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	// PageSize is the number of runs requested per page when walking a
	// project's run listing.
	PageSize int `mapstructure:"page_size" validate:"gte=0"`
	// CredentialFile is an optional KEY=VALUE file read before resolving
	// tokens from the process environment.
	CredentialFile string `mapstructure:"credential_file"`
}
