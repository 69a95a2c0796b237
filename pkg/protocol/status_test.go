package protocol

import "testing"

func TestCommandStatusClassification(t *testing.T) {
	success := []CommandStatus{CommandCompleted, CommandEmpty}
	failure := []CommandStatus{
		CommandTimedOut,
		CommandFailed,
		CommandCommunicationFailed,
		CommandModemAsleep,
		CommandFirmwareUpgradeInProgress,
		CommandBlockedBySettings,
	}

	for _, s := range success {
		if !s.Succeeded() || s.Failed() || !s.Terminal() {
			t.Errorf("%s misclassified: succeeded=%v failed=%v terminal=%v", s, s.Succeeded(), s.Failed(), s.Terminal())
		}
	}
	for _, s := range failure {
		if s.Succeeded() || !s.Failed() || !s.Terminal() {
			t.Errorf("%s misclassified: succeeded=%v failed=%v terminal=%v", s, s.Succeeded(), s.Failed(), s.Terminal())
		}
	}

	// Anything the client does not recognize means the vehicle is still working.
	for _, s := range []CommandStatus{"PENDINGRESPONSE", "INPROGRESS", "QUEUED", ""} {
		if s.Terminal() {
			t.Errorf("%q must not be terminal", s)
		}
	}
}
