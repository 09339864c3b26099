package sim

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"gyroled/core"
	"gyroled/logging"
	"gyroled/rtos"
)

// Sample is the observable result of one sampling cycle.
type Sample struct {
	At        time.Duration
	Cycle     uint32
	Velocity  int16
	Fresh     bool
	Direction core.Direction
	Button    core.ButtonLevel
	A         bool
	B         bool
}

func (s Sample) String() string {
	return fmt.Sprintf("#%d @%v v=%d fresh=%t %s %s A=%t B=%t",
		s.Cycle, s.At, s.Velocity, s.Fresh, s.Direction, s.Button, s.A, s.B)
}

// Result is what a scenario run produced.
type Result struct {
	Mode    core.Mode
	Samples []Sample
	Board   *Board
}

// Runner replays scenarios. The core fatal handler is process-wide, so a
// Runner must not be used concurrently with another.
type Runner struct {
	logger logging.Logger

	// Configure, when set, adjusts the board and kernel before the
	// application starts.
	Configure func(*Board)

	// AfterRun, when set, is called at the end of every Run while the cycle
	// ring still holds that run's cycles.
	AfterRun func(*Result)
}

// NewRunner returns a runner logging to logger. A nil logger discards output.
func NewRunner(logger logging.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Runner{logger: logger}
}

// Run replays sc with the cycle driven in mode. A fatal condition ends the
// run early and is returned as a *core.FatalError alongside the samples
// collected so far.
func (r *Runner) Run(sc *Scenario, mode core.Mode) (*Result, error) {
	kernel := NewKernel(r.logger)
	board := NewBoard(kernel)
	board.Gyro.Velocity = sc.InitialVelocity
	if r.Configure != nil {
		r.Configure(board)
	}

	cfg := core.DefaultConfig()
	cfg.Mode = mode
	cfg.Period = sc.Period
	cfg.BootReady = sc.Ready()

	app, err := core.NewApp(cfg, board.Platform())
	if err != nil {
		return nil, errors.Wrap(err, "building app")
	}
	board.NVIC.Attach(cfg.DataReadyIRQ, app.DataReady().HandleInterrupt)
	board.NVIC.Attach(cfg.ButtonIRQ, app.ButtonSampler().HandleInterrupt)

	core.ClearCycleRing()
	res := &Result{Mode: mode, Board: board}
	if r.AfterRun != nil {
		defer func() { r.AfterRun(res) }()
	}
	app.OnCycle(func(c core.CycleReport) {
		res.Samples = append(res.Samples, Sample{
			At:        kernel.Elapsed(),
			Cycle:     c.Cycle,
			Velocity:  c.Velocity,
			Fresh:     c.Fresh,
			Direction: c.Direction,
			Button:    c.Button,
			A:         c.Signals.A,
			B:         c.Signals.B,
		})
	})

	var fatal error
	prev := core.SetFatalHandler(func(reason string) {
		fatal = &core.FatalError{Reason: reason}
		kernel.Halt()
	})
	defer core.SetFatalHandler(prev)

	for _, ev := range sc.Events {
		ev := ev
		kernel.At(rtos.ToTicks(ev.At), func() { r.apply(board, cfg, ev) })
	}

	if err := app.Init(); err != nil {
		return res, fatal
	}
	kernel.RunUntil(rtos.ToTicks(sc.Duration))
	kernel.Stop()

	r.logger.Debugw("scenario finished",
		"scenario", sc.Name,
		"mode", mode.String(),
		"cycles", app.Cycles(),
		"gyro_reads", board.Gyro.Reads,
		"irqs_delivered", board.NVIC.Delivered)
	return res, fatal
}

func (r *Runner) apply(board *Board, cfg core.Config, ev Event) {
	if ev.Velocity != nil {
		board.Gyro.Velocity = *ev.Velocity
	}
	if ev.DataReady {
		board.NVIC.Raise(cfg.DataReadyIRQ)
	}
	switch ev.Button {
	case ButtonPress:
		board.GPIO.SetInput(cfg.ButtonPin, cfg.ButtonActiveHigh)
		board.NVIC.Raise(cfg.ButtonIRQ)
	case ButtonRelease:
		board.GPIO.SetInput(cfg.ButtonPin, !cfg.ButtonActiveHigh)
		board.NVIC.Raise(cfg.ButtonIRQ)
	}
}

// RunBoth replays sc in timer mode and in task mode.
func (r *Runner) RunBoth(sc *Scenario) (timer, task *Result, err error) {
	timer, errTimer := r.Run(sc, core.ModeTimer)
	task, errTask := r.Run(sc, core.ModeTask)
	return timer, task, multierr.Combine(
		errors.Wrap(errTimer, "timer mode"),
		errors.Wrap(errTask, "task mode"),
	)
}

// Compare returns one error per cycle where a and b differ in timing or
// outputs.
func Compare(a, b []Sample) error {
	var err error
	if len(a) != len(b) {
		err = multierr.Append(err, errors.Errorf("cycle count differs: %d vs %d", len(a), len(b)))
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			err = multierr.Append(err, errors.Errorf("cycle %d differs: %v vs %v", i+1, a[i], b[i]))
		}
	}
	return err
}

// Check verifies the scenario's expectations against samples.
func (sc *Scenario) Check(samples []Sample) error {
	var err error
	for _, want := range sc.Expect {
		if want.Cycle == 0 || int(want.Cycle) > len(samples) {
			err = multierr.Append(err, errors.Errorf("expected cycle %d, ran %d", want.Cycle, len(samples)))
			continue
		}
		got := samples[want.Cycle-1]
		if got.A != want.A || got.B != want.B {
			err = multierr.Append(err, errors.Errorf("cycle %d: got A=%t B=%t, want A=%t B=%t",
				want.Cycle, got.A, got.B, want.A, want.B))
		}
	}
	return err
}
