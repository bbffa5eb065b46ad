// Package beacon implements the recovery session's best-effort MQTT status
// publish: a fire-and-forget notice to an operations broker so a fleet of
// devices can be watched from outside, without ever gating the recovery
// decision itself. A publish failure here must never change the HTTP
// response, the verify outcome, or the swap/commit decision.
package beacon

// Publisher is satisfied by both the real MQTT-backed implementation
// (wired on-target, see cmd/bootloader) and Nop, used whenever no broker
// is configured.
type Publisher interface {
	Publish(event string)
}

// Nop discards every event. It is the Publisher cmd/bootloader wires into
// the Server when no broker address is configured, per spec's "absence
// disables the beacon, never the recovery path" rule.
type Nop struct{}

func (Nop) Publish(string) {}

// Recording is a test/host Publisher that remembers every event it saw,
// in order.
type Recording struct {
	Events []string
}

func (r *Recording) Publish(event string) {
	r.Events = append(r.Events, event)
}

// Event names published over the lifetime of one recovery session.
const (
	EventEntered       = "recovery:entered"
	EventVerifyOK      = "recovery:verify-ok"
	EventVerifyFailed  = "recovery:verify-failed"
	EventRebootRequest = "recovery:reboot"
)

// FormatPayload builds the single-line MQTT payload for an event, in the
// compact "event device=<id>" shape the teacher's telemetry messages use.
// Kept as a pure function so the wire format is testable without a broker.
func FormatPayload(event, deviceID string) []byte {
	return []byte(event + " device=" + deviceID)
}
