// File implements the generic command protocol: submit a command to the backend, then poll
// its status until the vehicle reports a terminal outcome.

package vehicle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tsuyoikaze/fordconnect/internal/log"
	"github.com/tsuyoikaze/fordconnect/pkg/protocol"
)

// statusSuccess is the envelope status the backend uses for accepted requests. Command
// submission is fire-and-forget: acceptance says nothing about eventual execution.
const statusSuccess = "SUCCESS"

// An Action identifies a remote command the vehicle executes through its cellular modem.
// Every action shares the same submit/poll protocol; the descriptor only contributes the
// endpoint paths and an optional capability precondition.
type Action struct {
	// Name appears in error messages and logs.
	Name string

	submitPath string
	checkPath  string
	requiresEV bool
}

var (
	// ActionUpdateStatus asks the vehicle to push fresh state to the backend.
	ActionUpdateStatus = Action{Name: "update status", submitPath: "status", checkPath: "statusrefresh"}
	// ActionLock locks the doors.
	ActionLock = Action{Name: "lock", submitPath: "lock", checkPath: "lock"}
	// ActionUnlock unlocks the doors.
	ActionUnlock = Action{Name: "unlock", submitPath: "unlock", checkPath: "unlock"}
	// ActionStartEngine starts the engine remotely.
	ActionStartEngine = Action{Name: "start engine", submitPath: "startEngine", checkPath: "startEngine"}
	// ActionStopEngine stops a remotely started engine.
	ActionStopEngine = Action{Name: "stop engine", submitPath: "stopEngine", checkPath: "stopEngine"}
	// ActionStartCharge starts charging. EV only.
	ActionStartCharge = Action{Name: "start charge", submitPath: "startCharge", checkPath: "startCharge", requiresEV: true}
	// ActionStopCharge stops charging. EV only.
	ActionStopCharge = Action{Name: "stop charge", submitPath: "stopCharge", checkPath: "stopCharge", requiresEV: true}
	// ActionRefreshLocation asks the vehicle for a fresh GPS fix.
	ActionRefreshLocation = Action{Name: "refresh location", submitPath: "location", checkPath: "location"}
	// ActionSignal flashes the lights and honks. The only cancellable action.
	ActionSignal = Action{Name: "signal", submitPath: "signal", checkPath: "signal"}
)

// commandEnvelope mirrors the submit and status-check response payloads.
type commandEnvelope struct {
	Status        string                 `json:"status"`
	CommandID     string                 `json:"commandId"`
	CommandStatus protocol.CommandStatus `json:"commandStatus"`
}

func (v *Vehicle) checkCapability(action Action) error {
	if action.requiresEV && !v.EV {
		return protocol.ErrNotElectric
	}
	return nil
}

func parseEnvelope(body []byte) (*commandEnvelope, error) {
	var envelope commandEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("unable to parse server response: %w", err)
	}
	if envelope.Status != statusSuccess {
		return nil, &protocol.CommandRejectedError{Status: envelope.Status}
	}
	return &envelope, nil
}

// Submit asks the backend to queue action for delivery to the vehicle and returns the
// command id used to track it. The capability precondition is checked before any network
// traffic occurs.
func (v *Vehicle) Submit(ctx context.Context, action Action) (string, error) {
	if err := v.checkCapability(action); err != nil {
		return "", err
	}
	body, err := v.conn.Post(ctx, v.v1URL(action.submitPath), nil)
	if err != nil {
		return "", err
	}
	envelope, err := parseEnvelope(body)
	if err != nil {
		return "", err
	}
	log.Debug("Vehicle %s accepted %s command %s", v.Snapshot.ID, action.Name, envelope.CommandID)
	return envelope.CommandID, nil
}

// Check fetches the current status of a previously submitted command.
func (v *Vehicle) Check(ctx context.Context, action Action, commandID string) (protocol.CommandStatus, error) {
	if err := v.checkCapability(action); err != nil {
		return "", err
	}
	body, err := v.conn.Get(ctx, v.v1URL(action.checkPath, commandID))
	if err != nil {
		return "", err
	}
	envelope, err := parseEnvelope(body)
	if err != nil {
		return "", err
	}
	return envelope.CommandStatus, nil
}

// Cancel deletes a queued command by id. The backend only supports cancelling signal
// commands; other commands cannot be recalled once submitted.
func (v *Vehicle) Cancel(ctx context.Context, action Action, commandID string) (protocol.CommandStatus, error) {
	if err := v.checkCapability(action); err != nil {
		return "", err
	}
	body, err := v.conn.Delete(ctx, v.v1URL(action.checkPath, commandID))
	if err != nil {
		return "", err
	}
	envelope, err := parseEnvelope(body)
	if err != nil {
		return "", err
	}
	return envelope.CommandStatus, nil
}

// Execute runs the full command protocol: submit action, poll its status until the vehicle
// reports a terminal outcome, and refresh the snapshot on success. Returns the command id.
//
// The vehicle's modem may be asleep or slow, so a bounded number of "still working" poll
// responses is tolerated before giving up with a timeout error. Retries of transport-level
// failures happen below this layer; a poll response that fails to classify aborts the loop
// immediately.
func (v *Vehicle) Execute(ctx context.Context, action Action) (string, error) {
	commandID, err := v.Submit(ctx, action)
	if err != nil {
		return "", err
	}
	for attempt := 0; attempt < v.maxPollAttempts(); attempt++ {
		status, err := v.Check(ctx, action, commandID)
		if err != nil {
			return "", err
		}
		if status.Succeeded() {
			if err := v.UpdateFromServer(ctx); err != nil {
				return "", err
			}
			return commandID, nil
		}
		if status.Failed() {
			return "", &protocol.CommandFailedError{Status: status}
		}
		log.Debug("Vehicle %s still executing %s command %s (%s)", v.Snapshot.ID, action.Name, commandID, status)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(v.PollInterval):
		}
	}
	return "", protocol.NewTimeoutError(
		fmt.Sprintf("vehicle did not finish %s command after %d status checks", action.Name, v.maxPollAttempts()))
}
