// Package inet implements the FordConnect HTTP transport: it applies the credential gate,
// classifies error responses, and retries transient failures with a fixed interval.
package inet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tsuyoikaze/fordconnect/internal/log"
	"github.com/tsuyoikaze/fordconnect/pkg/connector"
	"github.com/tsuyoikaze/fordconnect/pkg/protocol"
)

// Connection implements connector.Session by exchanging JSON over HTTPS.
//
// A Connection is not safe for concurrent use: the command protocol runs one blocking
// submit/poll cycle at a time, and the credential gate is only single-flight if the
// Authorizer makes it so.
type Connection struct {
	// UserAgent is sent with every request.
	UserAgent string

	// MaxRetries bounds the total number of attempts for a call that keeps failing with a
	// retryable status. Zero selects connector.DefaultMaxRetries.
	MaxRetries int

	// RetryInterval is the fixed wait between attempts. Zero is honored as-is so tests can
	// run without sleeping; use NewConnection to get the default.
	RetryInterval time.Duration

	client http.Client
	auth   connector.Authorizer
}

// NewConnection creates a Connection that authorizes requests through auth. A nil auth
// produces an unauthenticated Connection, which is only useful in tests.
func NewConnection(auth connector.Authorizer, userAgent string) *Connection {
	return &Connection{
		UserAgent:     userAgent,
		MaxRetries:    connector.DefaultMaxRetries,
		RetryInterval: connector.DefaultRetryInterval,
		auth:          auth,
	}
}

func (c *Connection) maxRetries() int {
	if c.MaxRetries <= 0 {
		return connector.DefaultMaxRetries
	}
	return c.MaxRetries
}

func readBody(ctx context.Context, response *http.Response) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	reader := io.LimitedReader{R: response.Body, N: connector.MaxResponseLength + 1}
	body, err := io.ReadAll(&reader)
	if err != nil {
		return nil, err
	}
	if len(body) > connector.MaxResponseLength {
		return nil, protocol.NewHTTPError(http.StatusInsufficientStorage, "response exceeds maximum length")
	}
	return body, nil
}

// roundTrip performs one logical call, retrying attempts that fail with a retryable status.
// The gate runs before every attempt so that a long retry loop cannot outlive the access
// token it started with.
func (c *Connection) roundTrip(ctx context.Context, method, target, contentType string, body []byte, gated bool) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		if gated && c.auth != nil {
			if err := c.auth.EnsureValid(ctx); err != nil {
				return nil, err
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		request, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, fmt.Errorf("error constructing request to %s: %w", target, err)
		}
		request.Header.Set("User-Agent", c.UserAgent)
		request.Header.Set("Accept", "*/*")
		if contentType != "" {
			request.Header.Set("Content-Type", contentType)
		}
		if gated && c.auth != nil {
			request.Header.Set("Authorization", c.auth.AuthorizationHeader())
			if id := c.auth.ApplicationID(); id != "" {
				request.Header.Set("Application-Id", id)
			}
		}

		log.Debug("Sending %s %s", method, target)
		response, err := c.client.Do(request)
		if err != nil {
			return nil, err
		}
		rsp, err := readBody(ctx, response)
		response.Body.Close()
		if err != nil {
			return nil, err
		}
		log.Debug("Server returned %d: %s", response.StatusCode, http.StatusText(response.StatusCode))

		if response.StatusCode < 400 {
			return rsp, nil
		}

		httpErr := protocol.NewHTTPError(response.StatusCode, strings.TrimSpace(string(rsp)))
		if !httpErr.Temporary() {
			return nil, httpErr
		}
		if attempt >= c.maxRetries() {
			return nil, protocol.NewTimeoutError(
				fmt.Sprintf("%s %s still failing after %d attempts", method, target, attempt))
		}
		log.Debug("Retrying after %s: %s", c.RetryInterval, httpErr)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.RetryInterval):
		}
	}
}

// Client returns the underlying HTTP client. Callers may adjust its timeout or
// transport before issuing requests.
func (c *Connection) Client() *http.Client {
	return &c.client
}

// Get fetches target and returns the response body.
func (c *Connection) Get(ctx context.Context, target string) ([]byte, error) {
	return c.roundTrip(ctx, http.MethodGet, target, "", nil, true)
}

// Post sends command to target. The command is JSON-serialized unless it is already a
// []byte; a nil command sends an empty body.
func (c *Connection) Post(ctx context.Context, target string, command interface{}) ([]byte, error) {
	var body []byte
	if command != nil {
		var ok bool
		if body, ok = command.([]byte); !ok {
			var err error
			body, err = json.Marshal(command)
			if err != nil {
				return nil, err
			}
		}
	}
	return c.roundTrip(ctx, http.MethodPost, target, "application/json", body, true)
}

// Delete issues a DELETE request to target.
func (c *Connection) Delete(ctx context.Context, target string) ([]byte, error) {
	return c.roundTrip(ctx, http.MethodDelete, target, "", nil, true)
}

// PostForm sends a form-encoded request without consulting the credential gate. It exists
// for the two token-exchange endpoints, which cannot pass through the gate they implement.
func (c *Connection) PostForm(ctx context.Context, target string, values url.Values) ([]byte, error) {
	return c.roundTrip(ctx, http.MethodPost, target,
		"application/x-www-form-urlencoded", []byte(values.Encode()), false)
}
