package server

import (
	"context"
	"net/http"

	"github.com/runboard/runboard/internal/executioncontext"
)

// newExecutionContext creates the request-scoped context handed to handlers.
// The logger is enhanced with request fields before it goes into the context
// so every handler log line carries the request id and route.
func (s *Server) newExecutionContext(r *http.Request) *executioncontext.ExecutionContext {
	requestID, enhancedLogger := s.loggerWithRequest(r)

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	baseURL := scheme + "://" + r.Host

	return executioncontext.NewExecutionContext(
		context.Background(),
		requestID,
		enhancedLogger,
		r.Method,
		r.URL.Path,
		baseURL,
		r.URL.RawQuery,
	)
}
