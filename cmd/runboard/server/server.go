package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/runboard/runboard/internal/config"
	"github.com/runboard/runboard/internal/constants"
	"github.com/runboard/runboard/internal/handlers"
	"github.com/runboard/runboard/internal/http_wrappers"
	"github.com/runboard/runboard/internal/messages"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	httpServer    *http.Server
	port          int
	logger        *slog.Logger
	serviceConfig *config.Config
	runSource     handlers.RunSource
	projects      handlers.ProjectSource
	hubCatalog    handlers.HubCatalog
}

// NewServer creates a new HTTP server instance with the provided logger and configuration.
// The server uses standard library net/http.ServeMux for routing without a web framework.
//
// The server implements the routing pattern where:
//   - Handlers receive *ExecutionContext plus request/response wrappers
//   - ExecutionContext is created at the route level before calling handlers
//   - Routes manually switch on HTTP method in handler functions
//
// All routes are wrapped with Prometheus metrics middleware for request duration and
// status code tracking.
func NewServer(logger *slog.Logger,
	serviceConfig *config.Config,
	runSource handlers.RunSource,
	projects handlers.ProjectSource,
	hubCatalog handlers.HubCatalog) (*Server, error) {

	if logger == nil {
		return nil, fmt.Errorf("logger is required for the server")
	}
	if (serviceConfig == nil) || (serviceConfig.Service == nil) {
		return nil, fmt.Errorf("service config is required for the server")
	}
	if runSource == nil {
		return nil, fmt.Errorf("run source is required for the server")
	}

	return &Server{
		port:          serviceConfig.Service.Port,
		logger:        logger,
		serviceConfig: serviceConfig,
		runSource:     runSource,
		projects:      projects,
		hubCatalog:    hubCatalog,
	}, nil
}

func (s *Server) GetPort() int {
	return s.port
}

// loggerWithRequest enhances a logger with request-specific fields for
// structured logging. The request id comes from the X-Global-Transaction-Id
// header or is generated when missing, which enables correlating all log
// entries for one request.
func (s *Server) loggerWithRequest(r *http.Request) (string, *slog.Logger) {
	requestID := r.Header.Get("X-Global-Transaction-Id")
	if requestID == "" {
		requestID = uuid.New().String() // generate a UUID if not present
	}

	enhancedLogger := s.logger.With(constants.LOG_REQUEST_ID, requestID)

	method := r.Method
	if method != "" {
		enhancedLogger = enhancedLogger.With(constants.LOG_METHOD, method)
	}

	uri := ""
	if r.URL != nil {
		uri = r.URL.Path
	}
	if uri == "" {
		uri = r.RequestURI
	}
	if uri != "" {
		enhancedLogger = enhancedLogger.With(constants.LOG_URI, uri)
	}

	userAgent := r.Header.Get("User-Agent")
	if userAgent != "" {
		enhancedLogger = enhancedLogger.With(constants.LOG_USER_AGENT, userAgent)
	}

	remoteAddr := r.RemoteAddr
	if remoteAddr != "" {
		enhancedLogger = enhancedLogger.With(constants.LOG_REMOTE_ADR, remoteAddr)
	}

	referer := r.Header.Get("Referer")
	if referer != "" {
		enhancedLogger = enhancedLogger.With(constants.LOG_REFERER, referer)
	}

	return requestID, enhancedLogger
}

func (s *Server) setupRoutes() (http.Handler, error) {
	router := http.NewServeMux()
	h := handlers.New(s.runSource, s.projects, s.hubCatalog, s.serviceConfig)

	// Health endpoint
	router.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := http_wrappers.NewRespWrapper(w, ctx)
		req := http_wrappers.NewRequestWrapper(r)
		switch req.Method() {
		case http.MethodGet:
			h.HandleHealth(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	// Tracking endpoints
	router.HandleFunc("/api/v1/tracking/runs", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := http_wrappers.NewRespWrapper(w, ctx)
		req := http_wrappers.NewRequestWrapper(r)
		switch req.Method() {
		case http.MethodGet:
			h.HandleListRuns(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	router.HandleFunc("/api/v1/tracking/projects", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := http_wrappers.NewRespWrapper(w, ctx)
		req := http_wrappers.NewRequestWrapper(r)
		switch req.Method() {
		case http.MethodGet:
			h.HandleListProjects(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	// Hub endpoints
	router.HandleFunc("/api/v1/hub/models", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := http_wrappers.NewRespWrapper(w, ctx)
		req := http_wrappers.NewRequestWrapper(r)
		switch req.Method() {
		case http.MethodGet:
			h.HandleListModels(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	router.HandleFunc("/api/v1/hub/datasets", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := http_wrappers.NewRespWrapper(w, ctx)
		req := http_wrappers.NewRequestWrapper(r)
		switch req.Method() {
		case http.MethodGet:
			h.HandleListDatasets(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Enable CORS in local mode only (for development/testing)
	handler := http.Handler(router)
	if s.serviceConfig.Service.LocalMode {
		handler = CorsMiddleware(handler)
	}

	// Wrap with metrics middleware (outermost for complete observability)
	handler = Middleware(handler)

	return handler, nil
}

// SetupRoutes exposes the route setup for testing
func (s *Server) SetupRoutes() (http.Handler, error) {
	return s.setupRoutes()
}

func (s *Server) Start() error {
	handler, err := s.setupRoutes()
	if err != nil {
		return err
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Writing the server ready message", "file", s.serviceConfig.Service.ReadyFile)
	err = SetReady(s.serviceConfig, s.logger)
	if err != nil {
		return err
	}

	s.logger.Info("Server starting", "port", s.port)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server gracefully...")

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
