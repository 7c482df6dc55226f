package health

import (
	"errors"
	"fmt"
)

// AuthError means a token could not be obtained or refreshed.
// It is fatal for the current run.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// TransportError is a network-level failure; it aborts the current date's fetch.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RateLimitError is returned once 429 responses exhausted the retry budget.
type RateLimitError struct {
	URL      string
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited after %d attempts: %s", e.Attempts, e.URL)
}

// CategoryFetchError marks one Fitbit metric category as unavailable for a date.
type CategoryFetchError struct {
	Category string
	Err      error
}

func (e *CategoryFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Category, e.Err)
}

func (e *CategoryFetchError) Unwrap() error {
	return e.Err
}

// ClassificationError means one photo could not be downloaded or described.
type ClassificationError struct {
	PhotoID string
	Name    string
	Err     error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify photo %s (%s): %v", e.Name, e.PhotoID, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// WriteError means the Notion query, create or update failed for a date.
type WriteError struct {
	Date string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Date, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must stop a multi-date batch.
func IsFatal(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
