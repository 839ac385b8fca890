package wandbclient

import "fmt"

// Viewer identifies the authenticated caller.
type Viewer struct {
	Username string
	Entity   string
}

// Project is one tracking project the caller can access.
type Project struct {
	Name   string
	Entity string
}

// Run is the platform-native run handle. Summary, Config and Metadata are
// loosely typed mappings: their keys vary by producer and several fields are
// optional, so they are modeled as maps with documented optional keys rather
// than rigid record types.
type Run struct {
	ID        string
	Name      string
	State     string
	Entity    string
	Project   string
	CreatedAt string
	Summary   map[string]any
	Config    map[string]any
	Metadata  map[string]any
}

// HistoryPage is one page of the time-series metric log of a run. The
// history stream is expensive relative to the summary snapshot and each scan
// starts over from the first page.
type HistoryPage struct {
	Rows       []map[string]any
	NextCursor string
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// APIError represents an error response from the tracking API.
type APIError struct {
	StatusCode    int
	ResponseBody  string
	GraphQLErrors []string
}

func (e *APIError) Error() string {
	if len(e.GraphQLErrors) > 0 {
		return fmt.Sprintf("tracking API error (status %d): %s", e.StatusCode, e.GraphQLErrors[0])
	}
	return fmt.Sprintf("tracking API error (status %d): %s", e.StatusCode, e.ResponseBody)
}

// IsUnauthorizedError reports whether err is an APIError carrying an
// authentication or authorization failure.
func IsUnauthorizedError(err error) bool {
	apiErr, ok := err.(*APIError)
	if !ok {
		return false
	}
	return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
}
