// File implements reads of server-side vehicle state. These endpoints return cached backend
// data and do not wake the vehicle's modem; use ActionUpdateStatus for that.

package vehicle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const apiPrefix = "/api/fordconnect"

func (v *Vehicle) v1URL(parts ...string) string {
	segments := append([]string{v.base + apiPrefix + "/v1/vehicles", v.Snapshot.ID}, parts...)
	return strings.Join(segments, "/")
}

func (v *Vehicle) v3URL(parts ...string) string {
	segments := append([]string{v.base + apiPrefix + "/v3/vehicles", v.Snapshot.ID}, parts...)
	return strings.Join(segments, "/")
}

// measurement is the backend's {value: ...} wrapper around scalar readings.
type measurement struct {
	Value float64 `json:"value"`
}

// detailPayload mirrors the nested detail response.
type detailPayload struct {
	VehicleID   string `json:"vehicleId"`
	Make        string `json:"make"`
	ModelName   string `json:"modelName"`
	ModelYear   string `json:"modelYear"`
	Color       string `json:"color"`
	NickName    string `json:"nickName"`
	LastUpdated string `json:"lastUpdated"`
	EngineType  string `json:"engineType"`

	VehicleDetails struct {
		FuelLevel          measurement `json:"fuelLevel"`
		BatteryChargeLevel measurement `json:"batteryChargeLevel"`
		Mileage            float64     `json:"mileage"`
	} `json:"vehicleDetails"`

	VehicleLocation struct {
		Longitude float64 `json:"longitude"`
		Latitude  float64 `json:"latitude"`
		TimeStamp string  `json:"timeStamp"`
	} `json:"vehicleLocation"`

	VehicleStatus struct {
		IgnitionStatus struct {
			Value string `json:"value"`
		} `json:"ignitionStatus"`
		DoorStatus []DoorStatus `json:"doorStatus"`
		LockStatus struct {
			Value string `json:"value"`
		} `json:"lockStatus"`
	} `json:"vehicleStatus"`
}

// populateDetails merges a detail payload into the snapshot. Identity fields already set
// from the vehicle list are preserved unless the payload carries replacements.
func (v *Vehicle) populateDetails(detail *detailPayload) {
	if detail.VehicleID != "" {
		v.populateIdentity(&listEntry{
			VehicleID: detail.VehicleID,
			Make:      detail.Make,
			ModelName: detail.ModelName,
			ModelYear: detail.ModelYear,
			Color:     detail.Color,
			NickName:  detail.NickName,
		})
	}

	v.LastUpdated = detail.LastUpdated
	v.EngineType = detail.EngineType
	v.EV = strings.Contains(detail.EngineType, "EV")
	// Battery-electric vehicles report charge where others report fuel.
	if detail.EngineType == "BEV" {
		v.FuelLevel = detail.VehicleDetails.BatteryChargeLevel.Value
	} else {
		v.FuelLevel = detail.VehicleDetails.FuelLevel.Value
	}
	v.Odometer = detail.VehicleDetails.Mileage
	v.Location = &Location{
		Latitude:  detail.VehicleLocation.Latitude,
		Longitude: detail.VehicleLocation.Longitude,
		Timestamp: detail.VehicleLocation.TimeStamp,
	}
	v.EngineRunning = detail.VehicleStatus.IgnitionStatus.Value != "OFF"
	v.Doors = detail.VehicleStatus.DoorStatus
	v.Locked = detail.VehicleStatus.LockStatus.Value == "LOCKED"
	v.Detailed = true
}

// UpdateFromServer fetches the vehicle's detailed state from the backend and merges it into
// the snapshot. The command protocol calls this after every successful command so callers
// always observe post-command state.
func (v *Vehicle) UpdateFromServer(ctx context.Context) error {
	body, err := v.conn.Get(ctx, v.v3URL())
	if err != nil {
		return err
	}
	var rsp struct {
		Vehicle detailPayload `json:"vehicle"`
	}
	if err := json.Unmarshal(body, &rsp); err != nil {
		return fmt.Errorf("unable to parse vehicle details: %w", err)
	}
	v.populateDetails(&rsp.Vehicle)
	return nil
}

// ChargeSchedules returns the vehicle's charge schedules. The payload schema varies across
// model years, so it is returned raw.
func (v *Vehicle) ChargeSchedules(ctx context.Context) (json.RawMessage, error) {
	return v.conn.Get(ctx, v.v3URL("chargeSchedules"))
}

// DepartureTimes returns the vehicle's scheduled departure times, raw for the same reason
// as ChargeSchedules.
func (v *Vehicle) DepartureTimes(ctx context.Context) (json.RawMessage, error) {
	return v.conn.Get(ctx, v.v3URL("departureTimes"))
}

// Image downloads the vehicle's thumbnail image.
func (v *Vehicle) Image(ctx context.Context) ([]byte, error) {
	return v.conn.Get(ctx, v.v1URL("images"))
}

func (v *Vehicle) String() string {
	return fmt.Sprintf("[%d %s %s: %s (fuel: %v%%, location: %v)]",
		v.Year, v.Snapshot.Make, v.Model, v.Nickname, v.FuelLevel, v.Location)
}
