package sim

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"gyroled/logging"
	"gyroled/rtos"
)

var testTask = rtos.TaskAttr{Name: "task1", StackWords: 64, Priority: rtos.PriorityNormal}

func TestKernelInterruptsBeforeTimers(t *testing.T) {
	k := NewKernel(logging.NewTestLogger(t))
	var log []string

	tm, err := k.CreatePeriodic("timer1", 100*time.Millisecond, func() { log = append(log, "cycle") })
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tm.Start(), test.ShouldBeNil)
	k.At(100, func() { log = append(log, "irq1") })
	k.At(100, func() { log = append(log, "irq2") })
	k.At(150, func() { log = append(log, "irq3") })

	k.RunUntil(200)
	test.That(t, log, test.ShouldResemble, []string{"irq1", "irq2", "cycle", "irq3", "cycle"})
	test.That(t, k.Now(), test.ShouldEqual, uint32(200))
	test.That(t, k.Elapsed(), test.ShouldEqual, 200*time.Millisecond)
}

func TestKernelTaskSleeps(t *testing.T) {
	k := NewKernel(logging.NewTestLogger(t))
	var wakes []uint32
	var exit error

	_, err := k.CreateTask(testTask, func() {
		for {
			if err := k.Sleep(100 * time.Millisecond); err != nil {
				exit = err
				return
			}
			wakes = append(wakes, k.Now())
		}
	})
	test.That(t, err, test.ShouldBeNil)

	k.RunUntil(350)
	test.That(t, wakes, test.ShouldResemble, []uint32{100, 200, 300})
	test.That(t, k.Now(), test.ShouldEqual, uint32(350))

	k.Stop()
	test.That(t, exit, test.ShouldEqual, rtos.ErrStopped)
}

func TestKernelSleepOutsideTask(t *testing.T) {
	k := NewKernel(nil)
	test.That(t, k.Sleep(time.Millisecond), test.ShouldEqual, errSleepOutsideTask)
}

func TestKernelSleepFailure(t *testing.T) {
	k := NewKernel(nil)
	boom := errors.New("osErrorResource")
	k.SleepErr = boom
	k.SleepErrAfter = 2

	var results []error
	_, err := k.CreateTask(testTask, func() {
		for i := 0; i < 3; i++ {
			results = append(results, k.Sleep(10*time.Millisecond))
		}
	})
	test.That(t, err, test.ShouldBeNil)
	k.RunUntil(100)
	test.That(t, results, test.ShouldResemble, []error{nil, nil, boom})
}

func TestKernelHalt(t *testing.T) {
	k := NewKernel(nil)
	fired := 0
	tm, _ := k.CreatePeriodic("timer1", 10*time.Millisecond, func() {
		fired++
		if fired == 3 {
			k.Halt()
		}
	})
	test.That(t, tm.Start(), test.ShouldBeNil)

	k.RunUntil(1000)
	test.That(t, fired, test.ShouldEqual, 3)
	test.That(t, k.Halted(), test.ShouldBeTrue)
	test.That(t, k.Now(), test.ShouldEqual, uint32(30))
}

func TestKernelTimerStopFromCallback(t *testing.T) {
	k := NewKernel(nil)
	fired := 0
	var tm rtos.PeriodicTimer
	tm, _ = k.CreatePeriodic("timer1", 10*time.Millisecond, func() {
		fired++
		tm.Stop()
	})
	test.That(t, tm.Start(), test.ShouldBeNil)
	test.That(t, errors.Is(tm.Start(), rtos.ErrAlreadyStarted), test.ShouldBeTrue)

	k.RunUntil(100)
	test.That(t, fired, test.ShouldEqual, 1)
}

func TestKernelCreateErrors(t *testing.T) {
	k := NewKernel(nil)
	_, err := k.CreatePeriodic("t", 0, func() {})
	test.That(t, errors.Is(err, rtos.ErrInvalidPeriod), test.ShouldBeTrue)
	_, err = k.CreateTask(rtos.TaskAttr{Name: "t"}, func() {})
	test.That(t, errors.Is(err, rtos.ErrInvalidStack), test.ShouldBeTrue)

	boom := errors.New("out of memory")
	k.CreateTaskErr = boom
	_, err = k.CreateTask(testTask, func() {})
	test.That(t, err, test.ShouldEqual, boom)

	k.Stop()
	k.CreateTaskErr = nil
	_, err = k.CreateTask(testTask, func() {})
	test.That(t, err, test.ShouldEqual, rtos.ErrStopped)
}
