package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"

	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/runboard/runboard/cmd/runboard/server"
	"github.com/runboard/runboard/internal/config"
	"github.com/runboard/runboard/internal/credentials"
	"github.com/runboard/runboard/internal/handlers"
	"github.com/runboard/runboard/internal/hub"
	"github.com/runboard/runboard/internal/logging"
	"github.com/runboard/runboard/internal/runs"
	"github.com/runboard/runboard/pkg/hubclient"
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

func main() {
	logger, logShutdown, err := logging.NewLogger()
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(nil, err, "Failed to create service logger", logging.FallbackLogger())
	}

	serviceConfig, err := config.LoadConfig(logger, Version, Build, BuildDate)
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(nil, err, "Failed to create service config", logger)
	}
	if err := config.Validate(serviceConfig); err != nil {
		// we do this as no point trying to continue
		startUpFailed(serviceConfig, err, "Service config is invalid", logger)
	}

	creds := resolveCredentials(serviceConfig, logger)

	var runSource handlers.RunSource = runs.AnonymousSource{}
	var projectSource handlers.ProjectSource = runs.AnonymousSource{}
	if token, ok := creds.Tracking(); ok {
		trackingClient := wandbclient.NewClient(serviceConfig.Tracking.BaseURL).
			WithHTTPClient(&http.Client{Timeout: serviceConfig.Tracking.HTTPTimeout}).
			WithPageSize(serviceConfig.Tracking.PageSize).
			WithLogger(logger).
			WithToken(token)
		runSource = runs.NewCollector(trackingClient).WithLogger(logger)
		projectSource = trackingClient
	} else {
		// without a credential the tracking endpoints serve empty listings
		// and the platform is never contacted
		logger.Info("No tracking credential found, run listings will be empty")
	}

	hubClient := hubclient.NewClient(serviceConfig.Hub.BaseURL).
		WithHTTPClient(&http.Client{Timeout: serviceConfig.Hub.HTTPTimeout}).
		WithLogger(logger)
	if token, ok := creds.Hub(); ok {
		hubClient = hubClient.WithToken(token)
	} else {
		logger.Info("No hub credential found, using the public listing path")
	}

	hubService := hub.NewService(hubClient).
		WithLogger(logger).
		WithPopularLimit(serviceConfig.Hub.PopularLimit)

	srv, err := server.NewServer(logger, serviceConfig, runSource, projectSource, hubService)
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(serviceConfig, err, "Failed to create server", logger)
	}

	// log the start up details
	logger.Info("Server starting",
		"server_port", srv.GetPort(),
		"version", serviceConfig.Service.Version,
		"build", serviceConfig.Service.Build,
		"build_date", serviceConfig.Service.BuildDate,
		"local", serviceConfig.Service.LocalMode,
		"tracking_url", serviceConfig.Tracking.BaseURL,
		"hub_url", serviceConfig.Hub.BaseURL,
	)

	// Start server in a goroutine
	go func() {
		if err := srv.Start(); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				logger.Info("Server closed gracefully")
				return
			}
			// we do this as no point trying to continue
			startUpFailed(serviceConfig, err, "Server failed to start", logger)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create a context with timeout for graceful shutdown
	waitForShutdown := 30 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), waitForShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err.Error(), "timeout", waitForShutdown)
		_ = logShutdown() // ignore the error
	} else {
		logger.Info("Server shutdown gracefully")
		_ = logShutdown() // ignore the error
	}
}

// resolveCredentials layers the optional credential file under the process
// environment. A missing or unreadable file is not fatal, the environment
// alone still works.
func resolveCredentials(serviceConfig *config.Config, logger *slog.Logger) *credentials.Source {
	if serviceConfig.Tracking.CredentialFile == "" {
		return credentials.FromEnvironment()
	}
	creds, err := credentials.FromEnvironmentAndFile(serviceConfig.Tracking.CredentialFile)
	if err != nil {
		logger.Warn("Failed to read credential file, using environment only",
			"file", serviceConfig.Tracking.CredentialFile, "error", err.Error())
		return credentials.FromEnvironment()
	}
	return creds
}

func startUpFailed(conf *config.Config, err error, msg string, logger *slog.Logger) {
	termErr := server.SetTerminationMessage(server.GetTerminationFile(conf, logger), fmt.Sprintf("%s: %s", msg, err.Error()), logger)
	if termErr != nil {
		logger.Error("Failed to set termination message", "message", msg, "error", termErr.Error())
		log.Println(termErr.Error())
	}
	log.Fatal(err)
}
