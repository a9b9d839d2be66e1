package client

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsBadRequest reports a 400, the backend's way of saying an item is unavailable.
func IsBadRequest(err error) bool { return statusOf(err) == http.StatusBadRequest }

func IsUnauthorized(err error) bool { return statusOf(err) == http.StatusUnauthorized }

// IsServerError reports 5xx answers. Transport failures are not APIErrors.
func IsServerError(err error) bool { return statusOf(err) >= 500 }

// Message returns the backend's error message, or fallback if it gave none.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
