package rtos

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// Logger is the structured logger the runtime kernel reports through.
// *zap.SugaredLogger satisfies it.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugw(string, ...interface{}) {}

// RuntimeKernel implements Kernel on goroutines. Software timers are kept in
// a TimerList owned by a single daemon goroutine, so periodic callbacks never
// overlap; tasks are goroutines and Sleep waits on the clock.
type RuntimeKernel struct {
	clock  clock.Clock
	logger Logger
	epoch  time.Time

	// Owned by the daemon goroutine.
	timers TimerList

	mu      sync.Mutex
	started bool
	stopped bool
	pending []*runtimeTimer

	add    chan *runtimeTimer
	remove chan *runtimeTimer
	stop   chan struct{}
	done   chan struct{}
	tasks  sync.WaitGroup
}

// NewRuntimeKernel returns a kernel on clk. A nil logger discards output.
func NewRuntimeKernel(clk clock.Clock, logger Logger) *RuntimeKernel {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &RuntimeKernel{
		clock:  clk,
		logger: logger,
		epoch:  clk.Now(),
		add:    make(chan *runtimeTimer),
		remove: make(chan *runtimeTimer),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Now returns the ticks elapsed since the kernel was created.
func (k *RuntimeKernel) Now() uint32 {
	return ToTicks(k.clock.Since(k.epoch))
}

// Start launches the timer daemon. Timers started before Start begin counting
// from the moment they were started.
func (k *RuntimeKernel) Start() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.started || k.stopped {
		return
	}
	k.started = true
	for _, t := range k.pending {
		k.timers.Schedule(&t.timer)
	}
	k.pending = nil
	go k.daemon()
}

// Stop halts the timer daemon and makes every pending and future Sleep return
// ErrStopped. It waits for tasks to return.
func (k *RuntimeKernel) Stop() {
	k.mu.Lock()
	if k.stopped {
		k.mu.Unlock()
		return
	}
	k.stopped = true
	started := k.started
	k.mu.Unlock()

	close(k.stop)
	if started {
		<-k.done
	}
	k.tasks.Wait()
}

func (k *RuntimeKernel) daemon() {
	defer close(k.done)
	for {
		var (
			wake  <-chan time.Time
			timer *clock.Timer
		)
		if next, ok := k.timers.NextWake(); ok {
			wait := time.Duration(int32(next-k.Now())) * Tick
			if wait < 0 {
				wait = 0
			}
			timer = k.clock.Timer(wait)
			wake = timer.C
		}

		select {
		case <-wake:
			k.timers.Dispatch(k.Now())
		case t := <-k.add:
			k.timers.Schedule(&t.timer)
		case t := <-k.remove:
			k.timers.Remove(&t.timer)
		case <-k.stop:
			if timer != nil {
				timer.Stop()
			}
			return
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// CreatePeriodic implements Kernel.
func (k *RuntimeKernel) CreatePeriodic(name string, period time.Duration, callback func()) (PeriodicTimer, error) {
	if callback == nil {
		return nil, errors.Wrapf(ErrNilCallback, "timer %q", name)
	}
	if err := validatePeriod(period); err != nil {
		return nil, errors.Wrapf(err, "timer %q", name)
	}
	k.mu.Lock()
	stopped := k.stopped
	k.mu.Unlock()
	if stopped {
		return nil, ErrStopped
	}

	t := &runtimeTimer{
		kernel:   k,
		name:     name,
		period:   ToTicks(period),
		callback: callback,
	}
	t.timer.Handler = t.fire
	return t, nil
}

// CreateTask implements Kernel. The task starts running immediately.
func (k *RuntimeKernel) CreateTask(attr TaskAttr, entry func()) (Task, error) {
	if entry == nil {
		return nil, errors.Wrapf(ErrNilCallback, "task %q", attr.Name)
	}
	if err := attr.validate(); err != nil {
		return nil, err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.stopped {
		return nil, ErrStopped
	}

	k.tasks.Add(1)
	go func() {
		defer k.tasks.Done()
		entry()
		k.logger.Debugw("task returned", "task", attr.Name)
	}()
	k.logger.Debugw("task created", "task", attr.Name, "stack_words", attr.StackWords, "priority", attr.Priority)
	return NewTaskHandle(attr.Name), nil
}

// Sleep implements Kernel.
func (k *RuntimeKernel) Sleep(d time.Duration) error {
	t := k.clock.Timer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-k.stop:
		return ErrStopped
	}
}

type runtimeTimer struct {
	kernel   *RuntimeKernel
	name     string
	period   uint32
	callback func()
	timer    Timer

	mu     sync.Mutex
	active bool
}

func (t *runtimeTimer) fire(tm *Timer) uint8 {
	t.callback()
	tm.WakeTime += t.period
	return SF_RESCHEDULE
}

// Start arms the timer to fire one period from now and every period after.
// It must not be called from a timer callback.
func (t *runtimeTimer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active {
		return errors.Wrapf(ErrAlreadyStarted, "timer %q", t.name)
	}

	k := t.kernel
	k.mu.Lock()
	if k.stopped {
		k.mu.Unlock()
		return ErrStopped
	}
	t.timer.WakeTime = k.Now() + t.period
	if !k.started {
		k.pending = append(k.pending, t)
		k.mu.Unlock()
	} else {
		k.mu.Unlock()
		select {
		case k.add <- t:
		case <-k.stop:
			return ErrStopped
		}
	}
	t.active = true
	k.logger.Debugw("timer started", "timer", t.name, "period_ticks", t.period)
	return nil
}

// Stop disarms the timer. Stopping an idle timer is a no-op. It must not be
// called from a timer callback.
func (t *runtimeTimer) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return nil
	}
	t.active = false

	k := t.kernel
	k.mu.Lock()
	if !k.started {
		for i, p := range k.pending {
			if p == t {
				k.pending = append(k.pending[:i], k.pending[i+1:]...)
				break
			}
		}
		k.mu.Unlock()
		return nil
	}
	k.mu.Unlock()
	select {
	case k.remove <- t:
	case <-k.stop:
	}
	return nil
}
