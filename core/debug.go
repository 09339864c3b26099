package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// CycleRecord captures one sampling cycle for post-mortem analysis
type CycleRecord struct {
	Cycle    uint32 // Cycle number, starting at 1
	Velocity int16  // Velocity the cycle classified
	Flags    uint8  // CycleFresh | CycleClockwise | CyclePressed | CycleSignalA | CycleSignalB
}

// CycleRecord flag bits
const (
	CycleFresh     = 1 << 0 // Sensor was read this cycle
	CycleClockwise = 1 << 1
	CyclePressed   = 1 << 2
	CycleSignalA   = 1 << 3
	CycleSignalB   = 1 << 4
)

const (
	CycleRingSize = 32 // Keep last 32 cycles for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Cycle capture ring buffer, written only from the sampling context
	cycleRing     [CycleRingSize]CycleRecord
	cycleRingHead uint8 // Next write position
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, zap, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordCycle captures a cycle report in the ring buffer
func RecordCycle(r CycleReport) {
	var flags uint8
	if r.Fresh {
		flags |= CycleFresh
	}
	if r.Direction == Clockwise {
		flags |= CycleClockwise
	}
	if r.Button == Pressed {
		flags |= CyclePressed
	}
	if r.Signals.A {
		flags |= CycleSignalA
	}
	if r.Signals.B {
		flags |= CycleSignalB
	}

	idx := cycleRingHead
	cycleRing[idx] = CycleRecord{
		Cycle:    r.Cycle,
		Velocity: r.Velocity,
		Flags:    flags,
	}
	cycleRingHead = (idx + 1) % CycleRingSize
}

// CycleRecords returns the recorded cycles from oldest to newest
func CycleRecords() []CycleRecord {
	out := make([]CycleRecord, 0, CycleRingSize)
	start := cycleRingHead
	for i := uint8(0); i < CycleRingSize; i++ {
		rec := cycleRing[(start+i)%CycleRingSize]
		if rec.Cycle == 0 {
			continue // Empty slot
		}
		out = append(out, rec)
	}
	return out
}

// DumpCycleRing outputs the cycle ring buffer (call on shutdown/error).
// It writes even when debug output is disabled.
func DumpCycleRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[CYCLE] === Cycle Ring Dump ===")
	for _, rec := range CycleRecords() {
		line := "[CYCLE] #" + utoa(rec.Cycle) + " v=" + itoa(int(rec.Velocity))
		if rec.Flags&CycleFresh != 0 {
			line += " fresh"
		}
		if rec.Flags&CycleClockwise != 0 {
			line += " cw"
		} else {
			line += " ccw"
		}
		if rec.Flags&CyclePressed != 0 {
			line += " pressed"
		}
		line += " A=" + flagBit(rec.Flags, CycleSignalA) + " B=" + flagBit(rec.Flags, CycleSignalB)
		debugPrintln(line)
	}
	debugPrintln("[CYCLE] === End Dump ===")
}

// ClearCycleRing clears the cycle buffer
func ClearCycleRing() {
	for i := range cycleRing {
		cycleRing[i] = CycleRecord{}
	}
	cycleRingHead = 0
}

func flagBit(flags, bit uint8) string {
	if flags&bit != 0 {
		return "1"
	}
	return "0"
}
