package core

import (
	"strconv"
	"time"

	"gyroled/rtos"
)

type pinWrite struct {
	pin   GPIOPin
	value bool
}

type fakeGPIO struct {
	inputs  map[GPIOPin]bool
	writes  []pinWrite
	onWrite func(pin GPIOPin)
}

func newFakeGPIO() *fakeGPIO {
	return &fakeGPIO{inputs: map[GPIOPin]bool{}}
}

func (g *fakeGPIO) ReadPin(pin GPIOPin) bool { return g.inputs[pin] }

func (g *fakeGPIO) WritePin(pin GPIOPin, value bool) {
	g.writes = append(g.writes, pinWrite{pin, value})
	if g.onWrite != nil {
		g.onWrite(pin)
	}
}

// level returns the last value written to pin
func (g *fakeGPIO) level(pin GPIOPin) (bool, bool) {
	for i := len(g.writes) - 1; i >= 0; i-- {
		if g.writes[i].pin == pin {
			return g.writes[i].value, true
		}
	}
	return false, false
}

type fakeIRQ struct {
	ops []string
}

func (c *fakeIRQ) Enable(src IRQSource)       { c.log("enable", src) }
func (c *fakeIRQ) Disable(src IRQSource)      { c.log("disable", src) }
func (c *fakeIRQ) ClearPending(src IRQSource) { c.log("clear", src) }

func (c *fakeIRQ) log(op string, src IRQSource) {
	c.ops = append(c.ops, op+" "+strconv.Itoa(int(src)))
}

type fakeGyro struct {
	velocity int16
	reads    int
	inits    int
	initErr  error
}

func (g *fakeGyro) Init() error {
	g.inits++
	return g.initErr
}

func (g *fakeGyro) ReadVelocity() int16 {
	g.reads++
	return g.velocity
}

type fakeTimer struct {
	name     string
	period   time.Duration
	callback func()
	started  bool
	startErr error
}

func (t *fakeTimer) Start() error {
	if t.startErr != nil {
		return t.startErr
	}
	t.started = true
	return nil
}

func (t *fakeTimer) Stop() error {
	t.started = false
	return nil
}

// fakeKernel records what was created. Task entries run synchronously on
// CreateTask; Sleep returns the queued results, then rtos.ErrStopped.
type fakeKernel struct {
	timers    []*fakeTimer
	tasks     []rtos.TaskAttr
	sleeps    []time.Duration
	sleepErrs []error

	createTimerErr error
	createTaskErr  error
	startErr       error
}

func (k *fakeKernel) CreatePeriodic(name string, period time.Duration, callback func()) (rtos.PeriodicTimer, error) {
	if k.createTimerErr != nil {
		return nil, k.createTimerErr
	}
	t := &fakeTimer{name: name, period: period, callback: callback, startErr: k.startErr}
	k.timers = append(k.timers, t)
	return t, nil
}

func (k *fakeKernel) CreateTask(attr rtos.TaskAttr, entry func()) (rtos.Task, error) {
	if k.createTaskErr != nil {
		return nil, k.createTaskErr
	}
	k.tasks = append(k.tasks, attr)
	entry()
	return rtos.NewTaskHandle(attr.Name), nil
}

func (k *fakeKernel) Sleep(d time.Duration) error {
	k.sleeps = append(k.sleeps, d)
	if len(k.sleepErrs) == 0 {
		return rtos.ErrStopped
	}
	err := k.sleepErrs[0]
	k.sleepErrs = k.sleepErrs[1:]
	return err
}

// recordFatal replaces the fatal handler for the duration of the test and
// returns the reasons it receives.
func recordFatal(tb interface{ Cleanup(func()) }) *[]string {
	var reasons []string
	prev := SetFatalHandler(func(reason string) {
		reasons = append(reasons, reason)
	})
	tb.Cleanup(func() { SetFatalHandler(prev) })
	return &reasons
}
