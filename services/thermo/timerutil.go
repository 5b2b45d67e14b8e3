// services/thermo/timerutil.go
package thermo

import "time"

// resetTimer stops, drains and re-arms t. Negative durations fire at once.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		drainTimer(t)
	}
	if d < 0 {
		d = 0
	}
	t.Reset(d)
}

func drainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}
