package gate

import "github.com/sweeney/gate-controller/internal/status"

// Report converts the snapshot to the form shown on the status page and in
// heartbeats.
func (s Snapshot) Report() status.Gate {
	return status.Gate{
		State:          s.State,
		Moving:         s.Moving,
		Since:          s.Since,
		ResetScheduled: s.ResetScheduled,
		Relays:         status.RelayPair(s.Outputs),
		Counts:         s.Counts,
	}
}
