package inet

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/tsuyoikaze/fordconnect/pkg/protocol"
)

type fakeAuthorizer struct {
	ensureCalls int
	err         error
}

func (f *fakeAuthorizer) EnsureValid(ctx context.Context) error {
	f.ensureCalls++
	return f.err
}

func (f *fakeAuthorizer) AuthorizationHeader() string { return "Bearer test-token" }
func (f *fakeAuthorizer) ApplicationID() string       { return "test-app" }

func newTestConnection(auth *fakeAuthorizer) *Connection {
	conn := NewConnection(auth, "test-agent")
	conn.MaxRetries = 3
	conn.RetryInterval = 0
	httpmock.ActivateNonDefault(&conn.client)
	return conn
}

func TestNonRetryableStatusFailsImmediately(t *testing.T) {
	for _, code := range []int{400, 401, 403, 404, 405, 415, 424} {
		conn := newTestConnection(&fakeAuthorizer{})
		httpmock.RegisterResponder(http.MethodGet, "https://api.example.com/thing",
			httpmock.NewStringResponder(code, "nope"))

		_, err := conn.Get(context.Background(), "https://api.example.com/thing")
		var httpErr *protocol.HTTPError
		if !errors.As(err, &httpErr) || httpErr.Code != code {
			t.Errorf("expected HTTPError with code %d, got %v", code, err)
		}
		if n := httpmock.GetTotalCallCount(); n != 1 {
			t.Errorf("code %d: expected exactly one attempt, got %d", code, n)
		}
		httpmock.DeactivateAndReset()
	}
}

func TestRetryableStatusExhaustsToTimeout(t *testing.T) {
	for _, code := range []int{406, 408, 429, 500, 502} {
		conn := newTestConnection(&fakeAuthorizer{})
		httpmock.RegisterResponder(http.MethodGet, "https://api.example.com/thing",
			httpmock.NewStringResponder(code, "still broken"))

		_, err := conn.Get(context.Background(), "https://api.example.com/thing")
		if got := protocol.HTTPStatus(err); got != http.StatusRequestTimeout {
			t.Errorf("code %d: expected timeout error, got %v", code, err)
		}
		if n := httpmock.GetTotalCallCount(); n != conn.MaxRetries {
			t.Errorf("code %d: expected %d attempts, got %d", code, conn.MaxRetries, n)
		}
		httpmock.DeactivateAndReset()
	}
}

func TestRetryableStatusRecovers(t *testing.T) {
	conn := newTestConnection(&fakeAuthorizer{})
	defer httpmock.DeactivateAndReset()

	responses := []httpmock.Responder{
		httpmock.NewStringResponder(http.StatusBadGateway, ""),
		httpmock.NewStringResponder(http.StatusOK, `{"ok":true}`),
	}
	attempt := 0
	httpmock.RegisterResponder(http.MethodGet, "https://api.example.com/thing",
		func(r *http.Request) (*http.Response, error) {
			rsp, err := responses[attempt](r)
			attempt++
			return rsp, err
		})

	body, err := conn.Get(context.Background(), "https://api.example.com/thing")
	if err != nil {
		t.Fatalf("expected recovery after one retry: %s", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestGateRunsBeforeAuthenticatedCalls(t *testing.T) {
	auth := &fakeAuthorizer{}
	conn := newTestConnection(auth)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "https://api.example.com/thing",
		func(r *http.Request) (*http.Response, error) {
			if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
				t.Errorf("missing Authorization header, got %q", got)
			}
			if got := r.Header.Get("Application-Id"); got != "test-app" {
				t.Errorf("missing Application-Id header, got %q", got)
			}
			return httpmock.NewStringResponse(http.StatusOK, "{}"), nil
		})

	if _, err := conn.Get(context.Background(), "https://api.example.com/thing"); err != nil {
		t.Fatalf("Get failed: %s", err)
	}
	if auth.ensureCalls != 1 {
		t.Errorf("expected one gate check, got %d", auth.ensureCalls)
	}
}

func TestGateFailureAbortsCall(t *testing.T) {
	gateErr := errors.New("session expired")
	conn := newTestConnection(&fakeAuthorizer{err: gateErr})
	defer httpmock.DeactivateAndReset()

	if _, err := conn.Get(context.Background(), "https://api.example.com/thing"); !errors.Is(err, gateErr) {
		t.Errorf("expected gate error to propagate, got %v", err)
	}
	if n := httpmock.GetTotalCallCount(); n != 0 {
		t.Errorf("expected no network traffic after gate failure, got %d calls", n)
	}
}

func TestPostFormBypassesGate(t *testing.T) {
	auth := &fakeAuthorizer{err: errors.New("gate must not run")}
	conn := newTestConnection(auth)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "https://auth.example.com/token",
		func(r *http.Request) (*http.Response, error) {
			if got := r.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
				t.Errorf("unexpected content type %q", got)
			}
			if got := r.Header.Get("Authorization"); got != "" {
				t.Errorf("token exchange must not carry an Authorization header, got %q", got)
			}
			return httpmock.NewStringResponse(http.StatusOK, "{}"), nil
		})

	if _, err := conn.PostForm(context.Background(), "https://auth.example.com/token", nil); err != nil {
		t.Fatalf("PostForm failed: %s", err)
	}
	if auth.ensureCalls != 0 {
		t.Errorf("gate ran %d times during token exchange", auth.ensureCalls)
	}
}
