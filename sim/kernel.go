// Package sim runs the application on a simulated board under a
// deterministic virtual-time kernel.
package sim

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gyroled/logging"
	"gyroled/rtos"
)

var errSleepOutsideTask = errors.New("sim: Sleep called outside a task")

// Kernel is a single-threaded discrete-event implementation of rtos.Kernel.
// Time only moves inside RunUntil. Interrupt events scheduled with At run
// before timer callbacks and task wake-ups due at the same tick; within each
// class, entries due at the same tick run in the order they were scheduled.
//
// Tasks are goroutines, but only one of the kernel loop and the tasks runs at
// a time: a task runs from the moment it is switched to until it sleeps or
// returns.
type Kernel struct {
	logger logging.Logger

	now     uint32
	irqs    rtos.TimerList
	timers  rtos.TimerList
	current *simTask
	tasks   []*simTask
	halted  bool
	stopped bool
	sleeps  int

	// Failure injection.
	CreateTimerErr error
	StartTimerErr  error
	CreateTaskErr  error
	SleepErr       error // returned once SleepErrAfter sleeps have succeeded
	SleepErrAfter  int
}

// NewKernel returns a kernel at tick zero. A nil logger discards output.
func NewKernel(logger logging.Logger) *Kernel {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Kernel{logger: logger}
}

// Now returns the current virtual time in ticks.
func (k *Kernel) Now() uint32 {
	return k.now
}

// Elapsed returns the current virtual time.
func (k *Kernel) Elapsed() time.Duration {
	return time.Duration(k.now) * rtos.Tick
}

// At schedules fn to run in interrupt context at tick.
func (k *Kernel) At(tick uint32, fn func()) {
	k.irqs.Schedule(&rtos.Timer{
		WakeTime: tick,
		Handler: func(*rtos.Timer) uint8 {
			fn()
			return rtos.SF_DONE
		},
	})
}

// Halt makes RunUntil return before the next event. Safe to call from a
// timer callback or a task.
func (k *Kernel) Halt() {
	k.halted = true
}

// Halted reports whether Halt was called
func (k *Kernel) Halted() bool {
	return k.halted
}

// RunUntil processes every event due at or before end, then leaves the clock
// at end. It returns early, with the clock at the halting event, after Halt.
func (k *Kernel) RunUntil(end uint32) {
	for !k.halted {
		list := k.nextList()
		if list == nil {
			break
		}
		wake, _ := list.NextWake()
		if int32(wake-end) > 0 {
			break
		}
		k.now = wake
		list.Run(list.PopDue(wake))
	}
	if !k.halted {
		k.now = end
	}
}

// nextList picks the list holding the earliest entry, interrupts first on a tie.
func (k *Kernel) nextList() *rtos.TimerList {
	irq, irqOK := k.irqs.NextWake()
	tmr, tmrOK := k.timers.NextWake()
	switch {
	case !irqOK && !tmrOK:
		return nil
	case !tmrOK:
		return &k.irqs
	case !irqOK:
		return &k.timers
	case int32(irq-tmr) <= 0:
		return &k.irqs
	default:
		return &k.timers
	}
}

// Stop wakes every sleeping task with rtos.ErrStopped and waits for it to
// return. Tasks that never ran are discarded.
func (k *Kernel) Stop() {
	if k.stopped {
		return
	}
	k.stopped = true
	for _, t := range k.tasks {
		k.timers.Remove(&t.wake)
		if t.started && !t.done {
			k.switchTo(t)
		}
	}
}

// CreatePeriodic implements rtos.Kernel.
func (k *Kernel) CreatePeriodic(name string, period time.Duration, callback func()) (rtos.PeriodicTimer, error) {
	if k.CreateTimerErr != nil {
		return nil, k.CreateTimerErr
	}
	if callback == nil {
		return nil, errors.Wrapf(rtos.ErrNilCallback, "timer %q", name)
	}
	if period < rtos.Tick {
		return nil, errors.Wrapf(rtos.ErrInvalidPeriod, "timer %q: got %v", name, period)
	}
	t := &simTimer{kernel: k, name: name, period: rtos.ToTicks(period), callback: callback}
	t.timer.Handler = t.fire
	return t, nil
}

// CreateTask implements rtos.Kernel. The task first runs at the current tick,
// after any interrupt already due.
func (k *Kernel) CreateTask(attr rtos.TaskAttr, entry func()) (rtos.Task, error) {
	if k.CreateTaskErr != nil {
		return nil, k.CreateTaskErr
	}
	if entry == nil {
		return nil, errors.Wrapf(rtos.ErrNilCallback, "task %q", attr.Name)
	}
	if attr.StackWords <= 0 {
		return nil, errors.Wrapf(rtos.ErrInvalidStack, "task %q", attr.Name)
	}
	if k.stopped {
		return nil, rtos.ErrStopped
	}

	t := &simTask{
		attr:   attr,
		entry:  entry,
		resume: make(chan struct{}),
		yield:  make(chan struct{}),
	}
	t.wake.Handler = func(*rtos.Timer) uint8 {
		k.switchTo(t)
		return rtos.SF_DONE
	}
	t.wake.WakeTime = k.now
	k.timers.Schedule(&t.wake)
	k.tasks = append(k.tasks, t)
	k.logger.Debugw("task created", "task", attr.Name, "stack_words", attr.StackWords, "priority", attr.Priority)
	return rtos.NewTaskHandle(attr.Name), nil
}

// Sleep implements rtos.Kernel. It must be called from a task.
func (k *Kernel) Sleep(d time.Duration) error {
	t := k.current
	if t == nil {
		return errSleepOutsideTask
	}
	if k.stopped {
		return rtos.ErrStopped
	}
	if k.SleepErr != nil && k.sleeps >= k.SleepErrAfter {
		return k.SleepErr
	}
	k.sleeps++

	t.wake.WakeTime = k.now + rtos.ToTicks(d)
	k.timers.Schedule(&t.wake)
	t.yield <- struct{}{}
	<-t.resume

	if k.stopped {
		return rtos.ErrStopped
	}
	return nil
}

// switchTo runs t until it sleeps or returns.
func (k *Kernel) switchTo(t *simTask) {
	k.current = t
	if !t.started {
		t.started = true
		go func() {
			t.entry()
			t.done = true
			k.logger.Debugw("task returned", "task", t.attr.Name, "tick", k.now)
			t.yield <- struct{}{}
		}()
	} else {
		t.resume <- struct{}{}
	}
	<-t.yield
	k.current = nil
}

type simTask struct {
	attr    rtos.TaskAttr
	entry   func()
	wake    rtos.Timer
	resume  chan struct{}
	yield   chan struct{}
	started bool
	done    bool
}

type simTimer struct {
	kernel   *Kernel
	name     string
	period   uint32
	callback func()
	timer    rtos.Timer
	active   bool
}

func (t *simTimer) fire(tm *rtos.Timer) uint8 {
	t.callback()
	if !t.active {
		return rtos.SF_DONE // stopped from its own callback
	}
	tm.WakeTime += t.period
	return rtos.SF_RESCHEDULE
}

func (t *simTimer) Start() error {
	k := t.kernel
	if k.StartTimerErr != nil {
		return k.StartTimerErr
	}
	if t.active {
		return errors.Wrapf(rtos.ErrAlreadyStarted, "timer %q", t.name)
	}
	t.active = true
	t.timer.WakeTime = k.now + t.period
	k.timers.Schedule(&t.timer)
	k.logger.Debugw("timer started", "timer", t.name, "period_ticks", t.period, "tick", k.now)
	return nil
}

func (t *simTimer) Stop() error {
	if t.active {
		t.kernel.timers.Remove(&t.timer)
		t.active = false
	}
	return nil
}
