// Package account implements the FordConnect fleet client. An Account owns the token
// lifecycle and the set of vehicles reachable through a login session; every outbound call
// made on its behalf passes through the credential gate it implements.
package account

import (
	"context"
	_ "embed" // Used to embed version for use with user agent
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/tsuyoikaze/fordconnect/internal/log"
	"github.com/tsuyoikaze/fordconnect/pkg/connector"
	"github.com/tsuyoikaze/fordconnect/pkg/connector/inet"
	"github.com/tsuyoikaze/fordconnect/pkg/vehicle"
)

var (
	//go:embed version.txt
	libraryVersion string
)

const (
	defaultHost     = "https://api.mps.ford.com"
	defaultTokenURL = "https://dah2vb2cprod.b2clogin.com/914d88b1-3523-4bf6-9be4-1b96b4f6f919/oauth2/v2.0/token?p=B2C_1A_signup_signin_common"
	defaultLoginURL = "https://fordconnect.cv.ford.com/common/login/"
	// defaultRedirectURI must match the URI registered with the application credentials.
	defaultRedirectURI = "https://localhost:3000"
)

var (
	// ErrNoCredentials indicates the Config lacked the application identifiers required to
	// reach the token endpoints.
	ErrNoCredentials = errors.New("missing client application credentials")
	// ErrNoCodeProvider indicates a full login was required but no CodeProvider is available
	// to supply an authorization code.
	ErrNoCodeProvider = errors.New("session expired and no authorization code provider is configured")
)

func buildUserAgent(app string) string {
	library := strings.TrimSpace("fordconnect-sdk/" + libraryVersion)
	build, ok := debug.ReadBuildInfo()
	if !ok {
		return library
	}
	path := strings.Split(build.Path, "/")
	if len(path) == 0 {
		return library
	}

	if app == "" {
		app = path[len(path)-1]
		if build.Main.Version != "(devel)" && build.Main.Version != "" {
			app = fmt.Sprintf("%s/%s", app, build.Main.Version)
		}
	}

	return fmt.Sprintf("%s %s", app, library)
}

// Config carries application credentials and tuning parameters. The identifiers are issued
// by the developer portal and supplied by the caller; nothing here is hard-coded by the SDK.
type Config struct {
	ClientID      string
	ClientSecret  string
	ApplicationID string

	// RedirectURI is the OAuth redirect registered with the application. Defaults to the
	// localhost URI the portal issues for native applications.
	RedirectURI string

	// Host overrides the API origin and TokenURL the token endpoint; for tests.
	Host     string
	TokenURL string

	// UserAgent overrides the generated user agent.
	UserAgent string

	MaxRetries      int
	RetryInterval   time.Duration
	MaxPollAttempts int
	PollInterval    time.Duration
}

// An Account holds a FordConnect login session and the vehicles it can reach.
//
// Command execution through an Account is synchronous and single-threaded. The one shared
// mutable resource is the token state; the credential gate serializes exchanges so that a
// client that adds concurrency cannot trigger duplicate refresh grants, which would
// invalidate each other's refresh tokens.
type Account struct {
	// UserAgent is sent with every request.
	UserAgent string
	// Host is the API origin, e.g. "https://api.mps.ford.com".
	Host string
	// Subject identifies the logged-in user, extracted from the id_token.
	Subject string

	config   Config
	tokenURL string
	conn     *inet.Connection
	codes    CodeProvider

	authLock sync.Mutex
	token    Token

	vehicles []*vehicle.Vehicle

	// now is replaced in tests to exercise expiry edges with a fake clock.
	now func() time.Time
}

// New returns an Account that exchanges and refreshes tokens with the given credentials.
// The codes provider may be nil, in which case the Account can refresh existing sessions
// but not perform a full login.
func New(config Config, codes CodeProvider) (*Account, error) {
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, ErrNoCredentials
	}
	a := &Account{
		UserAgent: config.UserAgent,
		Host:      config.Host,
		config:    config,
		tokenURL:  config.TokenURL,
		codes:     codes,
		now:       time.Now,
	}
	if a.UserAgent == "" {
		a.UserAgent = buildUserAgent("")
	}
	if a.Host == "" {
		a.Host = defaultHost
	}
	if a.tokenURL == "" {
		a.tokenURL = defaultTokenURL
	}
	if a.config.RedirectURI == "" {
		a.config.RedirectURI = defaultRedirectURI
	}
	a.conn = inet.NewConnection(a, a.UserAgent)
	if config.MaxRetries > 0 {
		a.conn.MaxRetries = config.MaxRetries
	}
	if config.RetryInterval > 0 {
		a.conn.RetryInterval = config.RetryInterval
	}
	return a, nil
}

// SetCodeProvider installs the provider consulted when a full login is required.
func (a *Account) SetCodeProvider(codes CodeProvider) {
	a.authLock.Lock()
	defer a.authLock.Unlock()
	a.codes = codes
}

// LoginURL returns the browser URL a user must visit to authorize the application. The
// authorization code is delivered through the redirect URI.
func (a *Account) LoginURL() string {
	query := url.Values{
		"make":           {"F"},
		"application_id": {a.config.ApplicationID},
		"client_id":      {a.config.ClientID},
		"response_type":  {"code"},
		"state":          {"123"},
		"redirect_uri":   {a.config.RedirectURI},
		"scope":          {"access"},
	}
	return defaultLoginURL + "?" + query.Encode()
}

// AuthorizationHeader implements connector.Authorizer.
func (a *Account) AuthorizationHeader() string {
	a.authLock.Lock()
	defer a.authLock.Unlock()
	return strings.TrimSpace(a.token.TokenType + " " + a.token.AccessToken)
}

// ApplicationID implements connector.Authorizer.
func (a *Account) ApplicationID() string {
	return a.config.ApplicationID
}

// EnsureValid implements connector.Authorizer: it re-authenticates when the refresh token
// has expired, refreshes when only the access token has, and is otherwise a no-op. Failures
// propagate to the caller; retrying is the transport's concern, not the gate's.
func (a *Account) EnsureValid(ctx context.Context) error {
	a.authLock.Lock()
	defer a.authLock.Unlock()
	now := a.now()
	if !now.Before(a.token.RefreshExpiry) {
		return a.authenticate(ctx)
	}
	if !now.Before(a.token.AccessExpiry) {
		return a.refresh(ctx)
	}
	return nil
}

// Authenticate performs the full authorization-code login, replacing any existing session.
func (a *Account) Authenticate(ctx context.Context) error {
	a.authLock.Lock()
	defer a.authLock.Unlock()
	return a.authenticate(ctx)
}

// Refresh exchanges the refresh token for a new session.
func (a *Account) Refresh(ctx context.Context) error {
	a.authLock.Lock()
	defer a.authLock.Unlock()
	return a.refresh(ctx)
}

func (a *Account) authenticate(ctx context.Context) error {
	if a.codes == nil {
		return ErrNoCodeProvider
	}
	code, err := a.codes.AuthorizationCode(ctx)
	if err != nil {
		return fmt.Errorf("authorization code exchange failed: %w", err)
	}
	log.Info("Exchanging authorization code for tokens...")
	return a.exchange(ctx, url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {a.config.ClientID},
		"client_secret": {a.config.ClientSecret},
		"code":          {code},
		"redirect_uri":  {a.config.RedirectURI},
	})
}

func (a *Account) refresh(ctx context.Context) error {
	log.Info("Refreshing access token...")
	return a.exchange(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {a.token.RefreshToken},
		"client_id":     {a.config.ClientID},
		"client_secret": {a.config.ClientSecret},
	})
}

// exchange posts a grant to the token endpoint and atomically replaces the token state.
// The call bypasses the credential gate to avoid recursing through it.
func (a *Account) exchange(ctx context.Context, grant url.Values) error {
	body, err := a.conn.PostForm(ctx, a.tokenURL, grant)
	if err != nil {
		return err
	}
	var rsp tokenResponse
	if err := json.Unmarshal(body, &rsp); err != nil {
		return fmt.Errorf("unable to parse token response: %w", err)
	}
	a.token = rsp.token()
	a.Subject = subjectFromIDToken(a.token.IDToken)
	log.Debug("Session valid until %s (refreshable until %s)", a.token.AccessExpiry, a.token.RefreshExpiry)
	return nil
}

// Token returns a copy of the current token state for persistence.
func (a *Account) Token() Token {
	a.authLock.Lock()
	defer a.authLock.Unlock()
	return a.token
}

// RestoreToken installs previously persisted token state.
func (a *Account) RestoreToken(token Token) {
	a.authLock.Lock()
	defer a.authLock.Unlock()
	a.token = token
	a.Subject = subjectFromIDToken(token.IDToken)
}

// Session returns the authenticated transport used by this account's vehicles.
func (a *Account) Session() connector.Session {
	return a.conn
}

func (a *Account) newVehicle(id string) *vehicle.Vehicle {
	v := vehicle.New(a.conn, a.Host, id)
	if a.config.MaxPollAttempts > 0 {
		v.MaxPollAttempts = a.config.MaxPollAttempts
	}
	if a.config.PollInterval > 0 {
		v.PollInterval = a.config.PollInterval
	}
	return v
}

// FetchVehicles retrieves the vehicles on the account and hydrates each with a detail
// fetch. The result replaces any previously fetched set.
func (a *Account) FetchVehicles(ctx context.Context) ([]*vehicle.Vehicle, error) {
	body, err := a.conn.Get(ctx, a.Host+"/api/fordconnect/v3/vehicles")
	if err != nil {
		return nil, err
	}
	var rsp struct {
		Vehicles []json.RawMessage `json:"vehicles"`
	}
	if err := json.Unmarshal(body, &rsp); err != nil {
		return nil, fmt.Errorf("unable to parse vehicle list: %w", err)
	}

	vehicles := make([]*vehicle.Vehicle, 0, len(rsp.Vehicles))
	for _, entry := range rsp.Vehicles {
		var header struct {
			VehicleID string `json:"vehicleId"`
		}
		if err := json.Unmarshal(entry, &header); err != nil {
			return nil, fmt.Errorf("unable to parse vehicle list entry: %w", err)
		}
		v := a.newVehicle(header.VehicleID)
		if err := v.PopulateIdentityJSON(entry); err != nil {
			return nil, err
		}
		if err := v.UpdateFromServer(ctx); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	a.vehicles = vehicles
	return vehicles, nil
}

// Vehicles returns the most recently fetched or restored vehicle set.
func (a *Account) Vehicles() []*vehicle.Vehicle {
	return a.vehicles
}

// Vehicle returns the vehicle with the given id, or nil if the account does not have it.
func (a *Account) Vehicle(id string) *vehicle.Vehicle {
	for _, v := range a.vehicles {
		if v.Snapshot.ID == id {
			return v
		}
	}
	return nil
}

// Snapshots exports the vehicle set for persistence.
func (a *Account) Snapshots() []vehicle.Snapshot {
	snapshots := make([]vehicle.Snapshot, 0, len(a.vehicles))
	for _, v := range a.vehicles {
		snapshots = append(snapshots, v.Snapshot)
	}
	return snapshots
}

// RestoreVehicles rebuilds the vehicle set from persisted snapshots.
func (a *Account) RestoreVehicles(snapshots []vehicle.Snapshot) {
	a.vehicles = make([]*vehicle.Vehicle, 0, len(snapshots))
	for _, snapshot := range snapshots {
		v := a.newVehicle(snapshot.ID)
		v.Snapshot = snapshot
		a.vehicles = append(a.vehicles, v)
	}
}

func (a *Account) String() string {
	return fmt.Sprintf("<account with %d vehicles>", len(a.vehicles))
}
