package config

import "time"

// HubConfig configures the model/dataset hub client.
type HubConfig struct {
	BaseURL     string        `mapstructure:"base_url" validate:"required,url"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	// PopularLimit caps the anonymous, popularity-sorted listing.
	PopularLimit int `mapstructure:"popular_limit" validate:"gte=0"`
}
