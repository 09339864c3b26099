package core

import "errors"

var (
	ErrNoGPIO   = errors.New("no GPIO driver")
	ErrNoIRQ    = errors.New("no interrupt controller")
	ErrNoGyro   = errors.New("no gyro sensor")
	ErrNoKernel = errors.New("no kernel")
)

// FatalError is the panic value of the default fatal handler on the Go runtime.
type FatalError struct {
	Reason string
}

func (e *FatalError) Error() string {
	return "fatal: " + e.Reason
}

// FatalHandler stops the system permanently. It is not expected to return;
// if it does, the caller abandons whatever it was doing.
type FatalHandler func(reason string)

var fatalHandler FatalHandler = haltForever

// SetFatalHandler installs the platform stop mechanism and returns the
// previous handler.
func SetFatalHandler(h FatalHandler) FatalHandler {
	prev := fatalHandler
	if h == nil {
		h = haltForever
	}
	fatalHandler = h
	return prev
}

// Fatal reports an unrecoverable boot-time condition and halts.
func Fatal(reason string) {
	DebugPrintln("[FATAL] " + reason)
	fatalHandler(reason)
}
