package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ValidationError means a required input was missing; no request was sent.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ConflictError is the tracking service rejecting a duplicate competitor.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// RemoteError covers every other non-2xx or transport failure.
type RemoteError struct {
	Status int
	Msg    string
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return e.Msg
	}
	return fmt.Sprintf("%s (status %d)", e.Msg, e.Status)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// errorFromResponse pulls the service's {error} body when present, else
// falls back to the given message.
func errorFromResponse(resp *http.Response, fallback string) error {
	msg := fallback
	if body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16)); err == nil {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			msg = e.Error
		}
	}
	if resp.StatusCode == http.StatusConflict {
		return &ConflictError{Msg: msg}
	}
	return &RemoteError{Status: resp.StatusCode, Msg: msg}
}
