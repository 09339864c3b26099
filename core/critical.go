package core

// Critical runs fn with interrupts masked. Simulated and hosted platforms
// dispatch their interrupt handlers through it so that handlers never
// interleave with a multi-field state update.
func Critical(fn func()) {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	fn()
}
