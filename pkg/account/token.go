// File implements the token lifecycle: the exchange payloads, expiry bookkeeping, and the
// authorization-code provider abstraction used for full logins.

package account

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tsuyoikaze/fordconnect/internal/log"
)

// Token holds the credential state for a FordConnect login session. All five fields are
// replaced together by a successful exchange; AccessExpiry never exceeds RefreshExpiry.
type Token struct {
	AccessToken   string    `json:"access_token"`
	RefreshToken  string    `json:"refresh_token"`
	IDToken       string    `json:"id_token"`
	TokenType     string    `json:"token_type"`
	AccessExpiry  time.Time `json:"access_expiry"`
	RefreshExpiry time.Time `json:"refresh_expiry"`
}

// Empty reports whether the token has never been populated by an exchange.
func (t *Token) Empty() bool {
	return t.AccessToken == ""
}

// tokenResponse mirrors the token-exchange endpoint payload. Expirations arrive as Unix
// timestamps and relative seconds; they are normalized to instants on receipt.
type tokenResponse struct {
	AccessToken           string `json:"access_token"`
	RefreshToken          string `json:"refresh_token"`
	IDToken               string `json:"id_token"`
	TokenType             string `json:"token_type"`
	ExpiresOn             int64  `json:"expires_on"`
	NotBefore             int64  `json:"not_before"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
}

func (r *tokenResponse) token() Token {
	t := Token{
		AccessToken:   r.AccessToken,
		RefreshToken:  r.RefreshToken,
		IDToken:       r.IDToken,
		TokenType:     r.TokenType,
		AccessExpiry:  time.Unix(r.ExpiresOn, 0),
		RefreshExpiry: time.Unix(r.NotBefore+r.RefreshTokenExpiresIn, 0),
	}
	if t.AccessExpiry.After(t.RefreshExpiry) {
		log.Warning("Server returned access expiry after refresh expiry; clamping")
		t.AccessExpiry = t.RefreshExpiry
	}
	return t
}

// A CodeProvider supplies an OAuth authorization code when a full login is required. The
// production implementation walks a human through the browser flow (see pkg/cli); tests
// inject a canned code.
type CodeProvider interface {
	AuthorizationCode(ctx context.Context) (string, error)
}

// subjectFromIDToken extracts the subject claim from the id_token. The token is consumed,
// not validated: the backend issued it to us over TLS moments ago.
func subjectFromIDToken(idToken string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		log.Debug("Could not parse id_token: %s", err)
		return ""
	}
	subject, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return subject
}
