// Package stdio provides scoped redirection of the process stdout.
//
// While a resource author's lifecycle method runs, anything printed through
// os.Stdout must land on the diagnostic stream instead of the result channel
// the orchestrator parses. The guard swaps the stream for a bounded region
// and restores it on every exit path.
package stdio

import "os"

// Guard holds the saved stdout for later restoration.
type Guard struct {
	saved *os.File
}

// Silence points os.Stdout at os.Stderr until Restore is called. Callers must
// arrange Restore via defer so the swap never outlives the guarded region,
// even on panic.
func Silence() *Guard {
	g := &Guard{saved: os.Stdout}
	os.Stdout = os.Stderr
	return g
}

// Restore reinstates the saved stdout. Safe to call more than once.
func (g *Guard) Restore() {
	if g.saved != nil {
		os.Stdout = g.saved
		g.saved = nil
	}
}
