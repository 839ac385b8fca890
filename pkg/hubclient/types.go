package hubclient

import (
	"fmt"
	"time"
)

// User identifies the authenticated caller.
type User struct {
	Name     string `json:"name"`
	Fullname string `json:"fullname,omitempty"`
}

// Model is one hub model listing entry.
type Model struct {
	ID           string     `json:"id"`
	ModelID      string     `json:"modelId,omitempty"`
	Author       string     `json:"author,omitempty"`
	Downloads    int64      `json:"downloads"`
	Likes        int64      `json:"likes"`
	Tags         []string   `json:"tags"`
	LastModified *time.Time `json:"lastModified,omitempty"`
}

// Dataset is one hub dataset listing entry.
type Dataset struct {
	ID           string     `json:"id"`
	Author       string     `json:"author,omitempty"`
	Downloads    int64      `json:"downloads"`
	Likes        int64      `json:"likes"`
	Tags         []string   `json:"tags"`
	LastModified *time.Time `json:"lastModified,omitempty"`
}

// ListOptions selects which slice of a listing to request. The zero value
// requests the default listing.
type ListOptions struct {
	// Author scopes the listing to one namespace.
	Author string
	// Sort names the field to order by, e.g. "downloads".
	Sort string
	// Direction is -1 for descending, 1 for ascending.
	Direction int
	// Limit caps the number of entries; 0 means the server default.
	Limit int
}

// APIError represents an error response from the hub API.
type APIError struct {
	StatusCode   int
	ResponseBody string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hub API error (status %d): %s", e.StatusCode, e.ResponseBody)
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
