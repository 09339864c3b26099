// Package rtos describes the timer and task primitives the sampling
// scheduler runs on and provides an implementation on the Go runtime.
package rtos

import (
	"time"

	"github.com/pkg/errors"
)

// Priority follows the CMSIS-RTOS2 numbering.
type Priority int8

const (
	PriorityIdle        Priority = 1
	PriorityLow         Priority = 8
	PriorityBelowNormal Priority = 16
	PriorityNormal      Priority = 24
	PriorityAboveNormal Priority = 32
	PriorityHigh        Priority = 40
	PriorityRealtime    Priority = 48
)

var (
	// ErrStopped is returned by Sleep and by creation calls once the kernel
	// has been stopped.
	ErrStopped = errors.New("rtos: kernel stopped")

	ErrInvalidPeriod  = errors.New("rtos: period must be at least one tick")
	ErrInvalidStack   = errors.New("rtos: stack size must be positive")
	ErrAlreadyStarted = errors.New("rtos: timer already started")
	ErrNilCallback    = errors.New("rtos: nil callback")
)

// Tick is the kernel time base.
const Tick = time.Millisecond

// TaskAttr mirrors the attributes a static RTOS task is created with.
type TaskAttr struct {
	Name       string
	StackWords int
	Priority   Priority
}

func (a TaskAttr) validate() error {
	if a.StackWords <= 0 {
		return errors.Wrapf(ErrInvalidStack, "task %q", a.Name)
	}
	return nil
}

// PeriodicTimer is a created, not yet started, recurring software timer.
type PeriodicTimer interface {
	Start() error
	Stop() error
}

// Task is a handle to a created task.
type Task interface {
	Name() string
}

// Kernel is the subset of an RTOS the application needs. Timer callbacks run
// in a single daemon context, one at a time.
type Kernel interface {
	CreatePeriodic(name string, period time.Duration, callback func()) (PeriodicTimer, error)
	CreateTask(attr TaskAttr, entry func()) (Task, error)

	// Sleep suspends the calling task. It always runs to completion unless
	// the kernel is stopped.
	Sleep(d time.Duration) error
}

// ToTicks converts a duration to kernel ticks, rounding down.
func ToTicks(d time.Duration) uint32 {
	return uint32(d / Tick)
}

func validatePeriod(d time.Duration) error {
	if d < Tick {
		return errors.Wrapf(ErrInvalidPeriod, "got %v", d)
	}
	return nil
}

type namedTask string

func (t namedTask) Name() string { return string(t) }

// NewTaskHandle returns a Task handle carrying only a name. Kernels without
// per-task state use it.
func NewTaskHandle(name string) Task {
	return namedTask(name)
}
