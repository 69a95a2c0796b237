package protocol

// CommandStatus reports the progress of an asynchronous vehicle command. The backend returns
// HTTP 200 for both running and finished commands; only this value distinguishes them.
type CommandStatus string

const (
	// CommandCompleted indicates the vehicle executed the command.
	CommandCompleted CommandStatus = "COMPLETED"
	// CommandEmpty indicates the command finished with nothing to report. The backend uses it
	// for status refreshes that produced no new data; clients treat it as success.
	CommandEmpty CommandStatus = "EMPTY"

	// CommandTimedOut indicates the backend gave up waiting for the vehicle.
	CommandTimedOut CommandStatus = "TIMEOUT"
	// CommandFailed indicates the vehicle could not execute the command.
	CommandFailed CommandStatus = "FAILED"
	// CommandCommunicationFailed indicates the backend could not reach the vehicle's modem.
	CommandCommunicationFailed CommandStatus = "COMMUNICATIONFAILED"
	// CommandModemAsleep indicates the modem is in deep-sleep mode and will not accept commands.
	CommandModemAsleep CommandStatus = "MODEMINDEEPSLEEPMODE"
	// CommandFirmwareUpgradeInProgress indicates the vehicle is installing an update.
	CommandFirmwareUpgradeInProgress CommandStatus = "FIRMWAREUPGRADEINPROGRESS"
	// CommandBlockedBySettings indicates an in-vehicle setting prevented execution.
	CommandBlockedBySettings CommandStatus = "FAILEDDUETOINVEHICLESETTINGS"
)

// Succeeded returns true for the terminal success statuses.
func (s CommandStatus) Succeeded() bool {
	return s == CommandCompleted || s == CommandEmpty
}

// Failed returns true for the terminal failure statuses.
func (s CommandStatus) Failed() bool {
	switch s {
	case CommandTimedOut, CommandFailed, CommandCommunicationFailed, CommandModemAsleep,
		CommandFirmwareUpgradeInProgress, CommandBlockedBySettings:
		return true
	}
	return false
}

// Terminal returns true when no further polling is meaningful. Any unrecognized value means
// the vehicle is still working on the command.
func (s CommandStatus) Terminal() bool {
	return s.Succeeded() || s.Failed()
}
