package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

type Config struct {
	Service *ServiceConfig `mapstructure:"service,omitempty" validate:"required"`
	// Platforms holds the raw per-platform sections; they are decoded into
	// the typed configs below during loading.
	Platforms map[string]map[string]any `mapstructure:"platforms,omitempty"`

	Tracking *TrackingConfig `mapstructure:"-" validate:"required"`
	Hub      *HubConfig      `mapstructure:"-" validate:"required"`
}

type EnvMap struct {
	EnvMappings map[string]string `mapstructure:"env_mappings,omitempty"`
}

type SecretMap struct {
	Secrets SecretDir `mapstructure:"secrets,omitempty"`
}

type SecretDir struct {
	Dir      string            `mapstructure:"dir,omitempty"`
	Mappings map[string]string `mapstructure:"mappings,omitempty"`
}

const (
	PLATFORM_TRACKING = "tracking"
	PLATFORM_HUB      = "hub"

	// EnvConfigPath points at an operator-mounted config file merged over
	// the bundled one.
	EnvConfigPath = "CONFIG_PATH"
)

var localMode = flag.Bool("local", false, "Server operates in local mode or not.")

// readConfig locates and reads a configuration file using Viper. It searches for
// a file named "{name}.{ext}" in each of the given directories in order; the first
// found file is read.
func readConfig(logger *slog.Logger, name string, ext string, dirs ...string) (*viper.Viper, error) {
	logger.Info("Reading the configuration file", "file", fmt.Sprintf("%s.%s", name, ext), "dirs", fmt.Sprintf("%v", dirs))

	configValues := viper.New()

	configValues.SetConfigName(name) // name of config file (without extension)
	configValues.SetConfigType(ext)  // REQUIRED if the config file does not have the extension in the name
	for _, dir := range dirs {
		configValues.AddConfigPath(dir)
	}
	err := configValues.ReadInConfig() // Find and read the config file

	if err != nil {
		logger.Error("Failed to read the configuration file", "file", fmt.Sprintf("%s.%s", name, ext), "dirs", fmt.Sprintf("%v", dirs), "error", err.Error())
		return configValues, err
	}
	logger.Info("Read the configuration file", "file", configValues.ConfigFileUsed())

	// an operator-mounted config overrides the bundled values
	if overlay := os.Getenv(EnvConfigPath); overlay != "" {
		configValues.SetConfigFile(overlay)
		if err := configValues.MergeInConfig(); err != nil {
			logger.Error("Failed to merge the operator configuration file", "file", overlay, "error", err.Error())
			return configValues, err
		}
		logger.Info("Merged the operator configuration file", "file", overlay)
	}

	return configValues, nil
}

// LoadConfig loads configuration using a two-tier system with Viper.
//
// Configuration loading order (later sources override earlier ones):
//  1. config.yaml found in dirs (default: config, ./config, ../../config)
//  2. An operator config named by the CONFIG_PATH environment variable
//  3. Environment variables - Mapped via env_mappings configuration
//  4. Secrets from files - Mapped via secrets.mappings with secrets.dir
//
// Example configuration structure:
//
//	env_mappings:
//	  port: service.port
//	secrets:
//	  dir: /var/run/secrets
//	  mappings:
//	    tracking_api_key: platforms.tracking.api_key:optional
//
// Appending :optional to a secret mapping makes a missing secret file
// non-fatal.
func LoadConfig(logger *slog.Logger, version string, build string, buildDate string, dirs ...string) (*Config, error) {
	if len(dirs) == 0 {
		dirs = []string{"config", "./config", "../../config"}
	}
	configValues, err := readConfig(logger, "config", "yaml", dirs...)
	if err != nil {
		return nil, err
	}

	// set up the secrets from the secrets directory
	secrets := SecretMap{}
	if err := configValues.Unmarshal(&secrets); err != nil {
		return nil, err
	}
	if secrets.Secrets.Dir != "" {
		if _, err := os.Stat(secrets.Secrets.Dir); !os.IsNotExist(err) {
			for fileName, fieldName := range secrets.Secrets.Mappings {
				optional := strings.HasSuffix(fieldName, ":optional")
				if optional {
					fieldName = strings.TrimSuffix(fieldName, ":optional")
				}
				secret, err := getSecret(secrets.Secrets.Dir, fileName, optional)
				if err != nil {
					logger.Error("Failed to read secret file", "file", fmt.Sprintf("%s/%s", secrets.Secrets.Dir, fileName), "error", err.Error())
					return nil, err
				}
				if secret != "" {
					configValues.Set(fieldName, secret)
				}
			}
		}
	}

	// set up the environment variable mappings
	envMappings := EnvMap{}
	if err := configValues.Unmarshal(&envMappings); err != nil {
		return nil, err
	}
	for envName, field := range envMappings.EnvMappings {
		if err := configValues.BindEnv(field, strings.ToUpper(envName)); err != nil {
			return nil, err
		}
		logger.Info("Mapped environment variable", "field_name", field, "env_name", envName)
	}

	if !flag.Parsed() {
		flag.Parse()
	}

	conf := Config{}
	if err := configValues.Unmarshal(&conf); err != nil {
		return nil, err
	}
	if conf.Service == nil {
		conf.Service = &ServiceConfig{}
	}

	// decode the typed platform sections
	conf.Tracking = &TrackingConfig{}
	if err := decodePlatform(conf.Platforms[PLATFORM_TRACKING], conf.Tracking); err != nil {
		return nil, err
	}
	conf.Hub = &HubConfig{}
	if err := decodePlatform(conf.Platforms[PLATFORM_HUB], conf.Hub); err != nil {
		return nil, err
	}

	// set the version, build, and build date
	conf.Service.Version = version
	conf.Service.Build = build
	conf.Service.BuildDate = buildDate
	conf.Service.LocalMode = *localMode
	return &conf, nil
}

// decodePlatform decodes one raw platform section into its typed config.
// Duration fields may be given as strings ("30s").
func decodePlatform(section map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     target,
	})
	if err != nil {
		return err
	}
	if section == nil {
		section = map[string]any{}
	}
	return decoder.Decode(section)
}

// Validate checks the loaded configuration. Defaults are applied to optional
// numeric fields before validation.
func Validate(conf *Config) error {
	if conf.Tracking.HTTPTimeout == 0 {
		conf.Tracking.HTTPTimeout = 30 * time.Second
	}
	if conf.Hub.HTTPTimeout == 0 {
		conf.Hub.HTTPTimeout = 30 * time.Second
	}
	if conf.Tracking.PageSize == 0 {
		conf.Tracking.PageSize = 50
	}
	if conf.Hub.PopularLimit == 0 {
		conf.Hub.PopularLimit = 50
	}
	validate := validator.New()
	return validate.Struct(conf)
}

// getSecret reads a secret from a file and returns the value as a string.
// If the file does not exist and optional is true, it silently returns an
// empty string.
func getSecret(secretsDir string, secretName string, optional bool) (string, error) {
	secret, err := os.ReadFile(fmt.Sprintf("%s/%s", secretsDir, secretName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && optional {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(secret)), nil
}
