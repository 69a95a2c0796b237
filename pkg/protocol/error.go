// Package protocol defines the error taxonomy and command-status vocabulary shared by the
// FordConnect transport and command layers.
package protocol

import (
	"errors"
	"fmt"
	"net/http"
)

// Error exposes methods useful for categorizing errors.
type Error interface {
	error

	// Temporary returns true if the request that triggered the Error may succeed if repeated.
	// The transport retries temporary errors internally; by the time a caller sees one, the
	// retry budget has been spent.
	Temporary() bool

	// HTTPStatus returns the HTTP status code associated with the Error. Errors that do not
	// originate from an HTTP response carry the code of the closest equivalent condition.
	HTTPStatus() int
}

// httpErrorClasses maps the status codes the FordConnect backend is known to return to a name
// and a retryability flag. Codes absent from the table are treated as non-retryable.
var httpErrorClasses = map[int]struct {
	name      string
	temporary bool
}{
	http.StatusBadRequest:           {"bad request", false},
	http.StatusUnauthorized:         {"unauthorized", false},
	http.StatusForbidden:            {"forbidden", false},
	http.StatusNotFound:             {"vehicle not found", false},
	http.StatusMethodNotAllowed:     {"method not allowed", false},
	http.StatusNotAcceptable:        {"command failed", true},
	http.StatusRequestTimeout:       {"command timed out", true},
	http.StatusUnsupportedMediaType: {"unsupported media type", false},
	http.StatusFailedDependency:     {"failed dependency", false},
	http.StatusTooManyRequests:      {"too many requests", true},
	http.StatusInternalServerError:  {"internal server error", true},
	http.StatusBadGateway:           {"bad gateway", true},
}

// HTTPError represents an error response from the FordConnect backend, classified by status
// code.
type HTTPError struct {
	Code    int
	Message string
}

// NewHTTPError creates an HTTPError for the given status code.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{Code: code, Message: message}
}

// NewTimeoutError creates the error raised when a retry or poll budget is exhausted without
// reaching a terminal outcome.
func NewTimeoutError(message string) *HTTPError {
	return &HTTPError{Code: http.StatusRequestTimeout, Message: message}
}

func (e *HTTPError) Error() string {
	class, known := httpErrorClasses[e.Code]
	name := class.name
	if !known {
		name = http.StatusText(e.Code)
	}
	if e.Message == "" {
		return fmt.Sprintf("%s (HTTP %d)", name, e.Code)
	}
	return fmt.Sprintf("%s (HTTP %d): %s", name, e.Code, e.Message)
}

func (e *HTTPError) Temporary() bool {
	return httpErrorClasses[e.Code].temporary
}

func (e *HTTPError) HTTPStatus() int {
	return e.Code
}

// ErrNotElectric indicates an EV-only command was sent to a vehicle without a battery. It is
// raised before any network traffic occurs.
var ErrNotElectric = &HTTPError{
	Code:    http.StatusMethodNotAllowed,
	Message: "EV-only command sent to a non-electric vehicle",
}

// CommandRejectedError indicates the backend refused to queue a command for delivery to the
// vehicle: the submit or status-check envelope carried a status other than SUCCESS.
type CommandRejectedError struct {
	Status string
}

func (e *CommandRejectedError) Error() string {
	return fmt.Sprintf("server rejected vehicle command: %s", e.Status)
}

func (e *CommandRejectedError) Temporary() bool {
	return false
}

func (e *CommandRejectedError) HTTPStatus() int {
	return http.StatusNotAcceptable
}

// CommandFailedError indicates the vehicle accepted a command but reported a terminal failure
// while executing it.
type CommandFailedError struct {
	Status CommandStatus
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("vehicle failed to execute command: %s", e.Status)
}

func (e *CommandFailedError) Temporary() bool {
	return false
}

func (e *CommandFailedError) HTTPStatus() int {
	return http.StatusNotAcceptable
}

// Temporary returns true if err is an Error that indicates a transient condition.
func Temporary(err error) bool {
	var perr Error
	if errors.As(err, &perr) {
		return perr.Temporary()
	}
	return false
}

// HTTPStatus returns the status code associated with err, or zero if err does not implement
// Error.
func HTTPStatus(err error) int {
	var perr Error
	if errors.As(err, &perr) {
		return perr.HTTPStatus()
	}
	return 0
}
