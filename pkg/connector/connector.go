// Package connector defines the interfaces between the FordConnect HTTP transport and the
// components that consume it.
package connector

import (
	"context"
	"time"
)

// MaxResponseLength caps the maximum byte-length of responses that sessions must support.
const MaxResponseLength = 100000

// Default tuning parameters for the transport retry loop and the command poll loop. All of
// them can be overridden through [pkg/cli] configuration.
const (
	DefaultMaxRetries      = 5
	DefaultRetryInterval   = 2 * time.Second
	DefaultMaxPollAttempts = 10
	DefaultPollInterval    = 5 * time.Second
)

// Authorizer gates outbound calls on credential validity. The transport consults the
// Authorizer before every call except the token exchanges themselves, which would otherwise
// recurse through the gate.
type Authorizer interface {
	// EnsureValid refreshes or re-acquires credentials if they have expired. It must be cheap
	// when the credentials are still valid, since it runs before every call.
	EnsureValid(ctx context.Context) error

	// AuthorizationHeader returns the value of the Authorization header, including the token
	// type prefix.
	AuthorizationHeader() string

	// ApplicationID returns the application identifier the backend requires on API calls. An
	// empty value omits the header.
	ApplicationID() string
}

// Session performs authenticated JSON exchanges with the backend. Implementations must apply
// the Authorizer gate and classify HTTP error responses; see connector/inet.
type Session interface {
	// Get fetches url and returns the response body.
	Get(ctx context.Context, url string) ([]byte, error)

	// Post sends body (JSON-serialized unless it is already a []byte) to url.
	Post(ctx context.Context, url string, body interface{}) ([]byte, error)

	// Delete issues a DELETE request to url.
	Delete(ctx context.Context, url string) ([]byte, error)
}
