package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/99designs/keyring"
	"golang.org/x/term"

	"github.com/tsuyoikaze/fordconnect/pkg/account"
)

const (
	keyringServiceName  = "com.fordconnect.auth"
	keyringTokenService = "oauthtoken"
	keyringDirectory    = "~/.fordconnect_keys"
)

type backendType struct {
	config *Config
}

func (b backendType) String() string {
	if b.config == nil || len(b.config.Backend.AllowedBackends) == 0 {
		return string(keyring.InvalidBackend)
	}
	return string(b.config.Backend.AllowedBackends[0])
}

func (b backendType) Set(v string) error {
	value := keyring.BackendType(v)
	if b.config == nil {
		return fmt.Errorf("invalid backendType")
	}
	if v == "" {
		return nil
	}
	for _, name := range keyring.AvailableBackends() {
		if name == value {
			b.config.Backend.AllowedBackends = []keyring.BackendType{name}
			return nil
		}
	}
	return fmt.Errorf("unsupported credential storage")
}

func (c *Config) getPassword(prompt string) (string, error) {
	if c.password != nil && *c.password != "" {
		return *c.password, nil
	}

	var w io.Writer
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		fd = int(os.Stderr.Fd())
		if !term.IsTerminal(fd) {
			return "", fmt.Errorf("no terminal output available for password prompt")
		}
		w = os.Stderr
	} else {
		w = os.Stdout
	}

	fmt.Fprintf(w, "%s: ", prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(w)
	password := string(b)
	c.password = &password
	return password, nil
}

func (c *Config) openKeyring() (keyring.Keyring, error) {
	if c.Debug {
		keyring.Debug = true
	}
	return keyring.Open(c.Backend)
}

// LoadTokenFromKeyring loads persisted token state from the system keyring.
//
// The keyring entry name must match the value provided to SaveTokenToKeyring.
func (c *Config) LoadTokenFromKeyring() (*account.Token, error) {
	kr, err := c.openKeyring()
	if err != nil {
		return nil, err
	}

	item, err := kr.Get(keyringTokenService + "." + c.KeyringTokenName)
	if err != nil {
		return nil, fmt.Errorf("could not load token: %w", err)
	}
	var token account.Token
	if err := json.Unmarshal(item.Data, &token); err != nil {
		return nil, fmt.Errorf("malformed token in keyring: %w", err)
	}
	return &token, nil
}

// SaveTokenToKeyring writes the account's token state to the system keyring.
//
// The entry name identifies the token for future use with LoadTokenFromKeyring and does not
// need to match the system username.
func (c *Config) SaveTokenToKeyring(token account.Token) error {
	kr, err := c.openKeyring()
	if err != nil {
		return err
	}

	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	if err := kr.Set(keyring.Item{
		Key:  keyringTokenService + "." + c.KeyringTokenName,
		Data: data,
	}); err != nil {
		return fmt.Errorf("failed to enroll token in keyring: %w", err)
	}
	return nil
}
