// Package cache persists login-session state to disk so that clients can resume without
// re-authenticating: the token fields and a snapshot of every fetched vehicle.
package cache

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/tsuyoikaze/fordconnect/pkg/account"
	"github.com/tsuyoikaze/fordconnect/pkg/vehicle"
)

// ClientState is the serialized form of an account session.
type ClientState struct {
	Token    account.Token      `json:"token"`
	Vehicles []vehicle.Snapshot `json:"vehicles"`
}

// Snapshot captures everything needed to restore a's session later.
func Snapshot(a *account.Account) *ClientState {
	return &ClientState{
		Token:    a.Token(),
		Vehicles: a.Snapshots(),
	}
}

// Apply restores s into a, replacing its token state and vehicle set.
func (s *ClientState) Apply(a *account.Account) {
	a.RestoreToken(s.Token)
	a.RestoreVehicles(s.Vehicles)
}

// Import reads a ClientState previously generated with [ClientState.Export].
func Import(r io.Reader) (*ClientState, error) {
	var state ClientState
	if err := json.NewDecoder(r).Decode(&state); err != nil {
		return nil, err
	}
	return &state, nil
}

// ImportFromFile reads a ClientState from disk.
func ImportFromFile(filename string) (*ClientState, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Import(file)
}

// Export writes a serialized ClientState to w.
func (s *ClientState) Export(w io.Writer) error {
	return json.NewEncoder(w).Encode(s)
}

// ExportToFile writes a ClientState to disk. The write goes through a temporary file and a
// rename so a crash cannot leave a truncated state file behind.
func (s *ClientState) ExportToFile(filename string) error {
	dir := filepath.Dir(filename)
	file, err := os.CreateTemp(dir, ".fordconnect-state-*")
	if err != nil {
		return err
	}
	tmpName := file.Name()
	if err := s.Export(file); err != nil {
		file.Close()
		os.Remove(tmpName)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, filename)
}
