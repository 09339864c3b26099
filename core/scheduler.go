package core

import (
	"errors"
	"time"

	"gyroled/rtos"
)

// Scheduler triggers the sampling cycle at a fixed period. Exactly one
// implementation is active, chosen by Config.Mode.
type Scheduler interface {
	// Start begins invoking cycle every period. A non-nil error means the
	// timer or task could not be created or started.
	Start(cycle func()) error
	Mode() Mode
}

// NewScheduler returns the scheduler for cfg.Mode on kernel.
func NewScheduler(cfg Config, kernel rtos.Kernel) (Scheduler, error) {
	switch cfg.Mode {
	case ModeTimer:
		return &TimerScheduler{kernel: kernel, name: cfg.TimerName, period: cfg.Period}, nil
	case ModeTask:
		return &TaskScheduler{kernel: kernel, attr: cfg.Task, period: cfg.Period}, nil
	default:
		return nil, ErrUnknownMode
	}
}

// TimerScheduler runs the cycle from a periodic software timer. The cycle
// executes in the kernel's timer daemon context.
type TimerScheduler struct {
	kernel rtos.Kernel
	name   string
	period time.Duration
	timer  rtos.PeriodicTimer
}

func (s *TimerScheduler) Mode() Mode { return ModeTimer }

func (s *TimerScheduler) Start(cycle func()) error {
	timer, err := s.kernel.CreatePeriodic(s.name, s.period, cycle)
	if err != nil {
		return err
	}
	if err := timer.Start(); err != nil {
		return err
	}
	s.timer = timer
	return nil
}

// Stop disarms the timer, if it was started.
func (s *TimerScheduler) Stop() error {
	if s.timer == nil {
		return nil
	}
	return s.timer.Stop()
}

// TaskScheduler runs the cycle from a dedicated task that sleeps one period
// after each cycle. The task waits one period before the first cycle so it
// samples on the same period boundaries as TimerScheduler.
type TaskScheduler struct {
	kernel rtos.Kernel
	attr   rtos.TaskAttr
	period time.Duration
}

func (s *TaskScheduler) Mode() Mode { return ModeTask }

func (s *TaskScheduler) Start(cycle func()) error {
	_, err := s.kernel.CreateTask(s.attr, func() { s.run(cycle) })
	return err
}

func (s *TaskScheduler) run(cycle func()) {
	if !s.sleep() {
		return
	}
	for {
		cycle()
		if !s.sleep() {
			return
		}
	}
}

// sleep reports whether the task should keep running. A failed sleep is
// fatal; a stopped kernel ends the task quietly.
func (s *TaskScheduler) sleep() bool {
	err := s.kernel.Sleep(s.period)
	switch {
	case err == nil:
		return true
	case errors.Is(err, rtos.ErrStopped):
		return false
	default:
		Fatal(s.attr.Name + ": sleep failed: " + err.Error())
		return false
	}
}
