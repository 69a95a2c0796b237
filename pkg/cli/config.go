/*
Package cli facilitates building command-line applications that talk to the FordConnect
backend. It defines a [Config] type that can be used to register common command-line flags
(using the Golang flag package) and environment variable equivalents.

The package uses [keyring]'s platform-agnostic interface for storing OAuth tokens in an
OS-dependent credential store, and a YAML file for the application credentials issued by
the developer portal.

# Examples

	config, err := cli.NewConfig(cli.FlagAll)
	if err != nil {
		panic(err)
	}
	config.RegisterCommandLineFlags()
	flag.Parse()
	config.ReadFromEnvironment() // Fills in missing fields using environment variables

	acct, err := config.Account() // Restores tokens and cached vehicle state
	if err != nil {
		panic(err)
	}
	defer config.SaveState(acct)
*/
package cli

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/99designs/keyring"
	"gopkg.in/yaml.v3"

	"github.com/tsuyoikaze/fordconnect/internal/log"
	"github.com/tsuyoikaze/fordconnect/pkg/account"
	"github.com/tsuyoikaze/fordconnect/pkg/cache"
)

// Environment variable names used by [Config.ReadFromEnvironment] to set common parameters.
const (
	EnvVehicleID       = "FORDCONNECT_VEHICLE_ID"
	EnvTokenName       = "FORDCONNECT_TOKEN_NAME"
	EnvTokenFile       = "FORDCONNECT_TOKEN_FILE"
	EnvCacheFile       = "FORDCONNECT_CACHE_FILE"
	EnvCredentialsFile = "FORDCONNECT_CREDENTIALS_FILE"
	EnvKeyringType     = "FORDCONNECT_KEYRING_TYPE"
	EnvKeyringPass     = "FORDCONNECT_KEYRING_PASSWORD"
	EnvKeyringPath     = "FORDCONNECT_KEYRING_PATH"
	EnvKeyringDebug    = "FORDCONNECT_KEYRING_DEBUG"
)

// Flag controls what options should be scanned from the command line and/or environment
// variables.
type Flag int

func (f Flag) isSet(other Flag) bool {
	return (f & other) == other
}

const (
	FlagVehicleID Flag = 1 // Enable vehicle-id option.
	FlagOAuth     Flag = 2 // Enable OAuth token options.
	FlagCache     Flag = 4 // Enable state-cache options.
	FlagAll       Flag = FlagVehicleID | FlagOAuth | FlagCache
)

var (
	ErrNoTokenSpecified = errors.New("token location not provided")
	ErrKeyNotFound      = keyring.ErrKeyNotFound
)

// Credentials holds the application identifiers issued by the developer portal.
type Credentials struct {
	ClientID      string `yaml:"client_id"`
	ClientSecret  string `yaml:"client_secret"`
	ApplicationID string `yaml:"application_id"`
	RedirectURI   string `yaml:"redirect_uri"`
}

// LoadCredentials reads application credentials from a YAML file.
func LoadCredentials(filename string) (*Credentials, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("malformed credentials file %s: %w", filename, err)
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("credentials file %s missing client_id or client_secret", filename)
	}
	return &creds, nil
}

// Config fields determine how a client authenticates to the FordConnect backend.
type Config struct {
	Flags               Flag   // Controls which set of environment variables/CLI flags to use.
	VehicleID           string // Selects a vehicle for commands that target one.
	KeyringTokenName    string // Username for OAuth token in system keyring.
	TokenFilename       string
	CacheFilename       string
	CredentialsFilename string
	Backend             keyring.Config
	BackendType         backendType
	Debug               bool // Enable keyring debug messages.

	password *string
	creds    *Credentials
	acct     *account.Account
}

func NewConfig(flags Flag) (*Config, error) {
	c := Config{
		Flags: flags,
		Backend: keyring.Config{
			ServiceName:              keyringServiceName,
			KeychainTrustApplication: true,
			KeyCtlScope:              "user",
		},
	}
	c.BackendType = backendType{&c}
	c.Backend.KeychainPasswordFunc = c.getPassword
	c.Backend.FilePasswordFunc = c.getPassword

	return &c, nil
}

func (c *Config) RegisterCommandLineFlags() {
	if c.Flags.isSet(FlagVehicleID) {
		flag.StringVar(&c.VehicleID, "vehicle-id", "", "Vehicle identifier. Defaults to $FORDCONNECT_VEHICLE_ID.")
	}
	if c.Flags.isSet(FlagCache) {
		flag.StringVar(&c.CacheFilename, "state-cache", "", "Load session state from `file`. Defaults to $FORDCONNECT_CACHE_FILE.")
	}
	if c.Flags.isSet(FlagOAuth) {
		flag.StringVar(&c.KeyringTokenName, "token-name", "", "System keyring `name` for OAuth token. Defaults to $FORDCONNECT_TOKEN_NAME.")
		flag.StringVar(&c.TokenFilename, "token-file", "", "`File` containing OAuth token. Defaults to $FORDCONNECT_TOKEN_FILE.")
		flag.StringVar(&c.CredentialsFilename, "credentials", "", "YAML `file` with application credentials. Defaults to $FORDCONNECT_CREDENTIALS_FILE.")

		var names []string
		for _, name := range keyring.AvailableBackends() {
			names = append(names, string(name))
		}
		sort.Strings(names)
		flag.Var(&c.BackendType, "keyring-type", "Keyring `type` ("+strings.Join(names, "|")+"). Defaults to $FORDCONNECT_KEYRING_TYPE.")
		flag.StringVar(&c.Backend.FileDir, "keyring-file-dir", keyringDirectory, "keyring `directory` for file-backed keyring types")
		flag.BoolVar(&c.Debug, "keyring-debug", false, "Enable keyring debug logging")
	}
}

// ReadFromEnvironment populates c using environment variables. Values that are already
// populated are not overwritten.
//
// Calling ReadFromEnvironment after flag.Parse() will prevent the environment from
// overriding explicit command-line parameters.
func (c *Config) ReadFromEnvironment() {
	if c.Flags.isSet(FlagVehicleID) && c.VehicleID == "" {
		c.VehicleID = os.Getenv(EnvVehicleID)
		log.Debug("Set vehicle id to '%s'", c.VehicleID)
	}
	if c.Flags.isSet(FlagCache) && c.CacheFilename == "" {
		c.CacheFilename = os.Getenv(EnvCacheFile)
		log.Debug("Set state cache file to '%s'", c.CacheFilename)
	}
	if c.Flags.isSet(FlagOAuth) {
		if c.KeyringTokenName == "" && c.TokenFilename == "" {
			c.KeyringTokenName = os.Getenv(EnvTokenName)
			log.Debug("Set OAuth token name to '%s'", c.KeyringTokenName)

			c.TokenFilename = os.Getenv(EnvTokenFile)
			log.Debug("Set OAuth token file to '%s'", c.TokenFilename)
		}
		if c.CredentialsFilename == "" {
			c.CredentialsFilename = os.Getenv(EnvCredentialsFile)
			log.Debug("Set credentials file to '%s'", c.CredentialsFilename)
		}
		if c.BackendType.String() == string(keyring.InvalidBackend) {
			if err := c.BackendType.Set(os.Getenv(EnvKeyringType)); err == nil {
				log.Debug("Set keyring type to '%s'", c.BackendType)
			}
		}
		if c.password == nil {
			password := os.Getenv(EnvKeyringPass)
			c.password = &password
		}
		if c.Backend.FileDir == "" {
			c.Backend.FileDir = os.Getenv(EnvKeyringPath)
			log.Debug("Set keyring file path to '%s'", c.Backend.FileDir)
		}
		if !c.Debug {
			_, c.Debug = os.LookupEnv(EnvKeyringDebug)
		}
	}
}

// Credentials loads the application credentials named by c.
func (c *Config) Credentials() (*Credentials, error) {
	if c.creds != nil {
		return c.creds, nil
	}
	if c.CredentialsFilename == "" {
		return nil, errors.New("application credentials file not provided")
	}
	creds, err := LoadCredentials(c.CredentialsFilename)
	if err != nil {
		return nil, err
	}
	c.creds = creds
	return creds, nil
}

// token loads persisted token state from a file or, failing that, the system keyring.
func (c *Config) token() (*account.Token, error) {
	if c.TokenFilename != "" {
		data, err := os.ReadFile(c.TokenFilename)
		if err == nil {
			var token account.Token
			if err := json.Unmarshal(data, &token); err != nil {
				return nil, fmt.Errorf("malformed token file %s: %w", c.TokenFilename, err)
			}
			return &token, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		// Fall through to the system keyring if the token file doesn't exist.
	}
	if c.KeyringTokenName == "" {
		return nil, ErrNoTokenSpecified
	}
	return c.LoadTokenFromKeyring()
}

// SaveToken persists token to the configured location: the keyring if a token name is set,
// otherwise the token file.
func (c *Config) SaveToken(token account.Token) error {
	if c.KeyringTokenName != "" {
		return c.SaveTokenToKeyring(token)
	}
	if c.TokenFilename != "" {
		data, err := json.Marshal(token)
		if err != nil {
			return err
		}
		return os.WriteFile(c.TokenFilename, data, 0600)
	}
	return ErrNoTokenSpecified
}

// Account builds the configured account, restoring persisted tokens and cached vehicle
// state when available. The codes provider may be nil; pass NewPromptCodeProvider for
// interactive logins.
func (c *Config) Account(codes account.CodeProvider) (*account.Account, error) {
	if c.acct != nil {
		return c.acct, nil
	}
	creds, err := c.Credentials()
	if err != nil {
		return nil, err
	}
	acct, err := account.New(account.Config{
		ClientID:      creds.ClientID,
		ClientSecret:  creds.ClientSecret,
		ApplicationID: creds.ApplicationID,
		RedirectURI:   creds.RedirectURI,
	}, codes)
	if err != nil {
		return nil, err
	}

	if c.CacheFilename != "" {
		state, err := cache.ImportFromFile(c.CacheFilename)
		if err == nil {
			state.Apply(acct)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load state cache: %w", err)
		}
	}
	if token, err := c.token(); err == nil {
		acct.RestoreToken(*token)
	} else if !errors.Is(err, ErrNoTokenSpecified) && !errors.Is(err, keyring.ErrKeyNotFound) {
		log.Warning("Could not load saved token: %s", err)
	}

	c.acct = acct
	return acct, nil
}

// InteractiveAccount returns the configured account with a console login prompt installed
// as its authorization-code provider.
func (c *Config) InteractiveAccount() (*account.Account, error) {
	acct, err := c.Account(nil)
	if err != nil {
		return nil, err
	}
	acct.SetCodeProvider(NewPromptCodeProvider(acct.LoginURL()))
	return acct, nil
}

// SaveState persists acct's session to c.CacheFilename and its token to the configured
// token location. Does nothing for locations that are not configured.
func (c *Config) SaveState(acct *account.Account) {
	if c.CacheFilename != "" {
		if err := cache.Snapshot(acct).ExportToFile(c.CacheFilename); err != nil {
			log.Error("Error updating state cache: %s", err)
		}
	}
	if c.KeyringTokenName != "" || c.TokenFilename != "" {
		if err := c.SaveToken(acct.Token()); err != nil {
			log.Error("Error saving token: %s", err)
		}
	}
}
