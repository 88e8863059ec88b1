package telemetry

import "testing"

func TestReportEvent_NoopWhenDisabled(t *testing.T) {
	Init(true)
	// Should not panic, and must not attempt a network call, with metrics disabled.
	ReportEvent(CommandScan)
}

func TestReportEventWithProperties_NoopWithoutPublicKey(t *testing.T) {
	Init(false)
	PublicKey = ""
	// Should not panic even though reporting is "enabled" -- no key means no send.
	ReportEventWithProperties(CommandAudit, map[string]any{"files": 12})
}
