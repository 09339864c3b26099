//go:build tinygo

package core

import "runtime/interrupt"

// haltForever masks every interrupt and spins, leaving the outputs at
// whatever level they were last driven to.
func haltForever(reason string) {
	interrupt.Disable()
	for {
	}
}
