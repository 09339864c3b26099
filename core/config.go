package core

import (
	"errors"
	"time"

	"gyroled/rtos"
)

// Mode selects which execution context drives the sampling cycle.
type Mode uint8

const (
	// ModeTimer runs the cycle from a periodic software timer callback.
	ModeTimer Mode = iota
	// ModeTask runs the cycle from a dedicated task that sleeps between cycles.
	ModeTask
)

// Sampling constants inherited from the board this firmware was written for.
const (
	DefaultPeriod = 100 * time.Millisecond

	// DirectionThreshold is in raw sensor counts. Velocities strictly above it
	// are clockwise.
	DirectionThreshold int16 = -5000

	TaskStackWords = 64
)

// STM32F4 discovery defaults: PA0 user button (EXTI0), PA2 gyro DRDY (EXTI2),
// PG13 green LED, PG14 red LED. Pin numbers use the port*16+pin encoding.
const (
	defaultButtonPin    GPIOPin   = 0
	defaultDataReadyPin GPIOPin   = 2
	defaultSignalAPin   GPIOPin   = 6*16 + 13
	defaultSignalBPin   GPIOPin   = 6*16 + 14
	defaultButtonIRQ    IRQSource = 6
	defaultDataReadyIRQ IRQSource = 8
)

var ErrUnknownMode = errors.New("unknown scheduling mode")

func (m Mode) String() string {
	switch m {
	case ModeTimer:
		return "timer"
	case ModeTask:
		return "task"
	default:
		return "unknown"
	}
}

// ParseMode accepts "timer" or "task".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "timer", "callback":
		return ModeTimer, nil
	case "task":
		return ModeTask, nil
	}
	return 0, ErrUnknownMode
}

// Config holds the build-time parameters of the application.
type Config struct {
	Mode      Mode
	Period    time.Duration
	Threshold int16

	// BootReady is the readiness flag value at boot. The original board
	// starts Ready so the first cycle reads the sensor before any DRDY edge.
	BootReady bool

	ButtonPin        GPIOPin
	ButtonActiveHigh bool
	DataReadyPin     GPIOPin
	SignalAPin       GPIOPin // green LED
	SignalBPin       GPIOPin // red LED

	ButtonIRQ    IRQSource
	DataReadyIRQ IRQSource

	Task      rtos.TaskAttr
	TimerName string
}

// DefaultConfig returns the timer-mode configuration of the original board.
func DefaultConfig() Config {
	return Config{
		Mode:             ModeTimer,
		Period:           DefaultPeriod,
		Threshold:        DirectionThreshold,
		BootReady:        true,
		ButtonPin:        defaultButtonPin,
		ButtonActiveHigh: true,
		DataReadyPin:     defaultDataReadyPin,
		SignalAPin:       defaultSignalAPin,
		SignalBPin:       defaultSignalBPin,
		ButtonIRQ:        defaultButtonIRQ,
		DataReadyIRQ:     defaultDataReadyIRQ,
		Task: rtos.TaskAttr{
			Name:       "task1",
			StackWords: TaskStackWords,
			Priority:   rtos.PriorityNormal,
		},
		TimerName: "timer1",
	}
}
