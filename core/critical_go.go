//go:build !tinygo

package core

import "sync"

// On the Go runtime interrupt handlers are goroutines, so masking is a
// process-wide lock. Platforms run their handlers through Critical.
var criticalMu sync.Mutex

type irqState uintptr

// disableInterrupts enters the critical section
func disableInterrupts() irqState {
	criticalMu.Lock()
	return 0
}

// restoreInterrupts leaves the critical section
func restoreInterrupts(state irqState) {
	criticalMu.Unlock()
}
