// File wires the named vehicle operations to the command protocol. Every action gets the
// same request/check/do triplet; the protocol itself lives in command.go.

package vehicle

import (
	"context"

	"github.com/tsuyoikaze/fordconnect/pkg/protocol"
)

// UpdateFromVehicle asks the vehicle to push fresh state to the backend and waits for it to
// finish. Unlike UpdateFromServer, this wakes the vehicle's modem.
func (v *Vehicle) UpdateFromVehicle(ctx context.Context) error {
	_, err := v.Execute(ctx, ActionUpdateStatus)
	return err
}

// RequestUpdateFromVehicle submits a status-refresh command without waiting for it.
func (v *Vehicle) RequestUpdateFromVehicle(ctx context.Context) (string, error) {
	return v.Submit(ctx, ActionUpdateStatus)
}

// CheckUpdateFromVehicle fetches the status of a pending status-refresh command.
func (v *Vehicle) CheckUpdateFromVehicle(ctx context.Context, commandID string) (protocol.CommandStatus, error) {
	return v.Check(ctx, ActionUpdateStatus, commandID)
}

// Lock locks the vehicle's doors and waits for confirmation.
func (v *Vehicle) Lock(ctx context.Context) error {
	_, err := v.Execute(ctx, ActionLock)
	return err
}

func (v *Vehicle) RequestLock(ctx context.Context) (string, error) {
	return v.Submit(ctx, ActionLock)
}

func (v *Vehicle) CheckLock(ctx context.Context, commandID string) (protocol.CommandStatus, error) {
	return v.Check(ctx, ActionLock, commandID)
}

// Unlock unlocks the vehicle's doors and waits for confirmation.
func (v *Vehicle) Unlock(ctx context.Context) error {
	_, err := v.Execute(ctx, ActionUnlock)
	return err
}

func (v *Vehicle) RequestUnlock(ctx context.Context) (string, error) {
	return v.Submit(ctx, ActionUnlock)
}

func (v *Vehicle) CheckUnlock(ctx context.Context, commandID string) (protocol.CommandStatus, error) {
	return v.Check(ctx, ActionUnlock, commandID)
}

// StartEngine starts the engine remotely and waits for confirmation.
func (v *Vehicle) StartEngine(ctx context.Context) error {
	_, err := v.Execute(ctx, ActionStartEngine)
	return err
}

func (v *Vehicle) RequestStartEngine(ctx context.Context) (string, error) {
	return v.Submit(ctx, ActionStartEngine)
}

func (v *Vehicle) CheckStartEngine(ctx context.Context, commandID string) (protocol.CommandStatus, error) {
	return v.Check(ctx, ActionStartEngine, commandID)
}

// StopEngine stops a remotely started engine and waits for confirmation.
func (v *Vehicle) StopEngine(ctx context.Context) error {
	_, err := v.Execute(ctx, ActionStopEngine)
	return err
}

func (v *Vehicle) RequestStopEngine(ctx context.Context) (string, error) {
	return v.Submit(ctx, ActionStopEngine)
}

func (v *Vehicle) CheckStopEngine(ctx context.Context, commandID string) (protocol.CommandStatus, error) {
	return v.Check(ctx, ActionStopEngine, commandID)
}

// StartCharge starts charging and waits for confirmation. Returns
// protocol.ErrNotElectric for vehicles without a battery.
func (v *Vehicle) StartCharge(ctx context.Context) error {
	_, err := v.Execute(ctx, ActionStartCharge)
	return err
}

func (v *Vehicle) RequestStartCharge(ctx context.Context) (string, error) {
	return v.Submit(ctx, ActionStartCharge)
}

func (v *Vehicle) CheckStartCharge(ctx context.Context, commandID string) (protocol.CommandStatus, error) {
	return v.Check(ctx, ActionStartCharge, commandID)
}

// StopCharge stops charging and waits for confirmation. Returns
// protocol.ErrNotElectric for vehicles without a battery.
func (v *Vehicle) StopCharge(ctx context.Context) error {
	_, err := v.Execute(ctx, ActionStopCharge)
	return err
}

func (v *Vehicle) RequestStopCharge(ctx context.Context) (string, error) {
	return v.Submit(ctx, ActionStopCharge)
}

func (v *Vehicle) CheckStopCharge(ctx context.Context, commandID string) (protocol.CommandStatus, error) {
	return v.Check(ctx, ActionStopCharge, commandID)
}

// RefreshLocation asks the vehicle for a fresh GPS fix and waits for it.
func (v *Vehicle) RefreshLocation(ctx context.Context) error {
	_, err := v.Execute(ctx, ActionRefreshLocation)
	return err
}

func (v *Vehicle) RequestRefreshLocation(ctx context.Context) (string, error) {
	return v.Submit(ctx, ActionRefreshLocation)
}

func (v *Vehicle) CheckRefreshLocation(ctx context.Context, commandID string) (protocol.CommandStatus, error) {
	return v.Check(ctx, ActionRefreshLocation, commandID)
}

// SendSignal flashes the lights and honks, returning the command id so the signal can be
// cancelled with CancelSignal.
func (v *Vehicle) SendSignal(ctx context.Context) (string, error) {
	return v.Execute(ctx, ActionSignal)
}

func (v *Vehicle) RequestSignal(ctx context.Context) (string, error) {
	return v.Submit(ctx, ActionSignal)
}

func (v *Vehicle) CheckSignal(ctx context.Context, commandID string) (protocol.CommandStatus, error) {
	return v.Check(ctx, ActionSignal, commandID)
}

// CancelSignal recalls a pending signal command.
func (v *Vehicle) CancelSignal(ctx context.Context, commandID string) (protocol.CommandStatus, error) {
	return v.Cancel(ctx, ActionSignal, commandID)
}
