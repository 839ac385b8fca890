package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/runboard/runboard/internal/config"
	"github.com/runboard/runboard/internal/credentials"
	"github.com/runboard/runboard/internal/logging"
	"github.com/runboard/runboard/internal/runs"
	"github.com/runboard/runboard/pkg/wandbclient"
)

var (
	// Version can be set during the compilation
	Version string = "0.0.1"
	// Build is set during the compilation
	Build string
	// BuildDate is set during the compilation
	BuildDate string
)

// runsnap takes a single snapshot of the tracking platform and writes the
// normalized runs as a JSON array to stdout. Every diagnostic goes to
// stderr; stdout only ever carries a JSON array, so callers can parse it
// without guarding against tracebacks or partial output.
func main() {
	logger, logShutdown, err := logging.NewLogger()
	if err != nil {
		logger = logging.FallbackLogger()
		logShutdown = func() error { return nil }
	}

	output := snapshot(logger)

	fmt.Println(string(output))
	_ = logShutdown() // ignore the error
	os.Exit(0)
}

// snapshot produces the JSON array for stdout. Any failure it cannot absorb
// degrades to the literal empty array so the output contract holds.
func snapshot(logger *slog.Logger) (out []byte) {
	out = []byte("[]")
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Snapshot failed", "error", fmt.Sprintf("%v", r))
			out = []byte("[]")
		}
	}()

	if !flag.Parsed() {
		flag.Parse()
	}
	project := ""
	if args := flag.Args(); len(args) > 0 {
		project = args[0]
	}

	tracking := trackingConfig(logger)
	creds := resolveCredentials(tracking.CredentialFile, logger)

	token, ok := creds.Tracking()
	if !ok {
		// no credential means no platform call at all, just the empty array
		logger.Info("No tracking credential found, run listing will be empty")
		return out
	}

	client := wandbclient.NewClient(tracking.BaseURL).
		WithHTTPClient(&http.Client{Timeout: tracking.HTTPTimeout}).
		WithPageSize(tracking.PageSize).
		WithLogger(logger).
		WithToken(token)

	records := runs.NewCollector(client).WithLogger(logger).Collect(project)
	logger.Info("Snapshot collected", "runs", len(records), "project", project)

	buf, err := json.Marshal(records)
	if err != nil {
		logger.Error("Failed to serialize snapshot", "error", err.Error())
		return []byte("[]")
	}
	return buf
}

// trackingConfig loads the bundled configuration; when no config file can be
// found the built-in defaults keep the snapshot usable as a standalone tool.
func trackingConfig(logger *slog.Logger) *config.TrackingConfig {
	serviceConfig, err := config.LoadConfig(logger, Version, Build, BuildDate)
	if err == nil {
		err = config.Validate(serviceConfig)
		if err == nil {
			return serviceConfig.Tracking
		}
	}
	logger.Warn("Configuration unavailable, using built-in defaults", "error", err.Error())
	return &config.TrackingConfig{
		BaseURL:     "https://api.wandb.ai",
		HTTPTimeout: 30 * time.Second,
		PageSize:    50,
	}
}

func resolveCredentials(credentialFile string, logger *slog.Logger) *credentials.Source {
	if credentialFile == "" {
		credentialFile = ".env"
	}
	creds, err := credentials.FromEnvironmentAndFile(credentialFile)
	if err != nil {
		logger.Warn("Failed to read credential file, using environment only",
			"file", credentialFile, "error", err.Error())
		return credentials.FromEnvironment()
	}
	return creds
}
