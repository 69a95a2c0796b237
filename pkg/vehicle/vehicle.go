// Package vehicle implements the FordConnect vehicle entity and the submit-then-poll
// protocol used by every remote command.
package vehicle

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/tsuyoikaze/fordconnect/pkg/connector"
)

// DoorStatus reports the open/closed state of a single door.
type DoorStatus struct {
	Door  string `json:"vehicleDoor"`
	Side  string `json:"vehicleSide"`
	Value string `json:"value"`
}

// Snapshot is the serializable state of a vehicle. Identity fields are populated from the
// account's vehicle list; the remaining fields are undefined until a detail fetch succeeds
// and are merged into the existing snapshot rather than replacing it.
type Snapshot struct {
	ID       string `json:"vehicleId"`
	Make     string `json:"make"`
	Model    string `json:"modelName"`
	Year     int    `json:"modelYear"`
	Color    string `json:"color"`
	Nickname string `json:"nickName"`

	// Detailed reports whether the fields below have been populated.
	Detailed      bool         `json:"detailed"`
	LastUpdated   string       `json:"lastUpdated,omitempty"`
	EV            bool         `json:"ev"`
	EngineType    string       `json:"engineType,omitempty"`
	FuelLevel     float64      `json:"fuelLevel"`
	Odometer      float64      `json:"odometer"`
	EngineRunning bool         `json:"engineRunning"`
	Locked        bool         `json:"locked"`
	Doors         []DoorStatus `json:"doors,omitempty"`
	Location      *Location    `json:"location,omitempty"`
}

// A Vehicle represents a single vehicle on a FordConnect account. Vehicles always reach the
// network through their owning account's session, which applies the credential gate.
//
// Command execution is blocking and assumes one outstanding command per vehicle; issuing a
// second command while another is polling is a caller error and its behavior is undefined.
type Vehicle struct {
	Snapshot

	// MaxPollAttempts bounds the number of status checks per command. Zero selects
	// connector.DefaultMaxPollAttempts.
	MaxPollAttempts int

	// PollInterval is the fixed wait between status checks. Zero is honored as-is so tests
	// can run without sleeping; use New to get the default.
	PollInterval time.Duration

	conn connector.Session
	base string
}

// New creates a Vehicle with the given id, reached through conn. The base is the backend
// origin, e.g. "https://api.mps.ford.com".
func New(conn connector.Session, base, id string) *Vehicle {
	v := &Vehicle{
		MaxPollAttempts: connector.DefaultMaxPollAttempts,
		PollInterval:    connector.DefaultPollInterval,
		conn:            conn,
		base:            base,
	}
	v.Snapshot.ID = id
	return v
}

func (v *Vehicle) maxPollAttempts() int {
	if v.MaxPollAttempts <= 0 {
		return connector.DefaultMaxPollAttempts
	}
	return v.MaxPollAttempts
}

// listEntry mirrors one element of the backend's vehicle list payload.
type listEntry struct {
	VehicleID string `json:"vehicleId"`
	Make      string `json:"make"`
	ModelName string `json:"modelName"`
	ModelYear string `json:"modelYear"`
	Color     string `json:"color"`
	NickName  string `json:"nickName"`
}

// PopulateIdentityJSON fills in the identity fields from a raw vehicle-list entry. Detail
// fields, if already fetched, are left untouched.
func (v *Vehicle) PopulateIdentityJSON(raw json.RawMessage) error {
	var entry listEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return fmt.Errorf("unable to parse vehicle list entry: %w", err)
	}
	v.populateIdentity(&entry)
	return nil
}

// populateIdentity fills in the identity fields from a vehicle-list entry. Detail fields,
// if already fetched, are left untouched.
func (v *Vehicle) populateIdentity(entry *listEntry) {
	v.Snapshot.ID = entry.VehicleID
	if entry.Make == "F" {
		v.Snapshot.Make = "Ford"
	} else {
		v.Snapshot.Make = "Lincoln"
	}
	v.Model = entry.ModelName
	v.Year, _ = strconv.Atoi(entry.ModelYear)
	v.Color = entry.Color
	v.Nickname = entry.NickName
}
