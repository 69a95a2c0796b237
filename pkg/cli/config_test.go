package cli_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tsuyoikaze/fordconnect/pkg/account"
	"github.com/tsuyoikaze/fordconnect/pkg/cli"
)

func TestExtractCode(t *testing.T) {
	for _, tc := range []struct {
		name     string
		redirect string
		want     string
		wantErr  bool
	}{
		{
			name:     "full redirect URL",
			redirect: "https://localhost:3000/?code=abc123&state=123",
			want:     "abc123",
		},
		{
			name:     "code in fragment-style paste",
			redirect: "localhost:3000/?code=abc123#top",
			want:     "abc123",
		},
		{
			name:     "bare code",
			redirect: "abc123",
			want:     "abc123",
		},
		{
			name:     "surrounding whitespace",
			redirect: "  https://localhost:3000/?code=abc123  ",
			want:     "abc123",
		},
		{
			name:     "missing code parameter",
			redirect: "https://localhost:3000/?state=123",
			wantErr:  true,
		},
		{
			name:     "empty input",
			redirect: "   ",
			wantErr:  true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			code, err := cli.ExtractCode(tc.redirect)
			if tc.wantErr {
				if err == nil {
					t.Errorf("expected error, got code %q", code)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractCode failed: %s", err)
			}
			if code != tc.want {
				t.Errorf("ExtractCode = %q, want %q", code, tc.want)
			}
		})
	}
}

func TestStaticCodeProvider(t *testing.T) {
	code, err := cli.StaticCodeProvider("abc123").AuthorizationCode(context.Background())
	if err != nil {
		t.Fatalf("AuthorizationCode failed: %s", err)
	}
	if code != "abc123" {
		t.Errorf("code = %q", code)
	}
}

func TestReadFromEnvironment(t *testing.T) {
	t.Setenv(cli.EnvVehicleID, "env-vehicle")
	t.Setenv(cli.EnvCacheFile, "env-cache.json")
	t.Setenv(cli.EnvTokenName, "env-token")
	t.Setenv(cli.EnvCredentialsFile, "env-creds.yaml")

	config, err := cli.NewConfig(cli.FlagAll)
	if err != nil {
		t.Fatalf("NewConfig failed: %s", err)
	}
	config.ReadFromEnvironment()

	if config.VehicleID != "env-vehicle" {
		t.Errorf("VehicleID = %q", config.VehicleID)
	}
	if config.CacheFilename != "env-cache.json" {
		t.Errorf("CacheFilename = %q", config.CacheFilename)
	}
	if config.KeyringTokenName != "env-token" {
		t.Errorf("KeyringTokenName = %q", config.KeyringTokenName)
	}
	if config.CredentialsFilename != "env-creds.yaml" {
		t.Errorf("CredentialsFilename = %q", config.CredentialsFilename)
	}
}

func TestEnvironmentDoesNotOverrideExplicitValues(t *testing.T) {
	t.Setenv(cli.EnvVehicleID, "env-vehicle")
	t.Setenv(cli.EnvTokenName, "env-token")
	t.Setenv(cli.EnvTokenFile, "env-token.json")

	config, err := cli.NewConfig(cli.FlagAll)
	if err != nil {
		t.Fatalf("NewConfig failed: %s", err)
	}
	config.VehicleID = "flag-vehicle"
	config.TokenFilename = "flag-token.json"
	config.ReadFromEnvironment()

	if config.VehicleID != "flag-vehicle" {
		t.Errorf("VehicleID = %q, environment must not override flags", config.VehicleID)
	}
	if config.KeyringTokenName != "" {
		t.Errorf("KeyringTokenName = %q, token file was set explicitly", config.KeyringTokenName)
	}
}

func TestLoadCredentials(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "credentials.yaml")
	contents := strings.Join([]string{
		"client_id: my-client",
		"client_secret: hunter2",
		"application_id: my-app",
		"redirect_uri: https://localhost:3000",
	}, "\n")
	if err := os.WriteFile(filename, []byte(contents), 0600); err != nil {
		t.Fatal(err)
	}

	creds, err := cli.LoadCredentials(filename)
	if err != nil {
		t.Fatalf("LoadCredentials failed: %s", err)
	}
	if creds.ClientID != "my-client" || creds.ClientSecret != "hunter2" {
		t.Errorf("credentials not parsed: %+v", creds)
	}
	if creds.ApplicationID != "my-app" || creds.RedirectURI != "https://localhost:3000" {
		t.Errorf("optional fields not parsed: %+v", creds)
	}
}

func TestLoadCredentialsRejectsIncomplete(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "credentials.yaml")
	if err := os.WriteFile(filename, []byte("client_id: my-client\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := cli.LoadCredentials(filename); err == nil {
		t.Error("expected error for credentials without a client_secret")
	}
}

func TestTokenFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	credsFile := filepath.Join(dir, "credentials.yaml")
	if err := os.WriteFile(credsFile, []byte("client_id: my-client\nclient_secret: hunter2\n"), 0600); err != nil {
		t.Fatal(err)
	}

	config, err := cli.NewConfig(cli.FlagOAuth)
	if err != nil {
		t.Fatalf("NewConfig failed: %s", err)
	}
	config.CredentialsFilename = credsFile
	config.TokenFilename = filepath.Join(dir, "token.json")

	token := account.Token{
		AccessToken:   "access",
		RefreshToken:  "refresh",
		TokenType:     "Bearer",
		AccessExpiry:  time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		RefreshExpiry: time.Date(2026, 6, 4, 5, 6, 7, 0, time.UTC),
	}
	if err := config.SaveToken(token); err != nil {
		t.Fatalf("SaveToken failed: %s", err)
	}
	info, err := os.Stat(config.TokenFilename)
	if err != nil {
		t.Fatalf("token file missing: %s", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("token file mode = %o, want 0600", info.Mode().Perm())
	}

	acct, err := config.Account(nil)
	if err != nil {
		t.Fatalf("Account failed: %s", err)
	}
	restored := acct.Token()
	if restored.AccessToken != "access" || !restored.AccessExpiry.Equal(token.AccessExpiry) {
		t.Errorf("token did not survive the round trip: %+v", restored)
	}
}
