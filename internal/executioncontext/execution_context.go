package executioncontext

import (
	"context"
	"log/slog"
)

// ExecutionContext carries the request-scoped state handlers need: a logger
// already enriched with request fields, the request identity, and the parts
// of the HTTP request the handlers read.
type ExecutionContext struct {
	Ctx       context.Context
	RequestID string
	Logger    *slog.Logger
	Method    string
	URI       string
	BaseURL   string
	RawQuery  string
}

func NewExecutionContext(
	ctx context.Context,
	requestID string,
	logger *slog.Logger,
	method string,
	uri string,
	baseURL string,
	rawQuery string,
) *ExecutionContext {
	return &ExecutionContext{
		Ctx:       ctx,
		RequestID: requestID,
		Logger:    logger,
		Method:    method,
		URI:       uri,
		BaseURL:   baseURL,
		RawQuery:  rawQuery,
	}
}
