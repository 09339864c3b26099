// Package main runs the gyro indicator application on a Linux single-board
// computer, with periph.io GPIO edges standing in for interrupt lines.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"gyroled/config"
	"gyroled/core"
	"gyroled/gyro"
	"gyroled/host/serial"
	"gyroled/logging"
	"gyroled/rtos"
	"gyroled/telemetry"
)

const (
	flagConfig = "config"
	flagMode   = "mode"
	flagDebug  = "debug"
	flagDump   = "dump"
)

func main() {
	app := &cli.App{
		Name:  "gyroled",
		Usage: "drive two indicators from an L3GD20 and a push button",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "board configuration `FILE` (default: Raspberry Pi wiring)",
			},
			&cli.StringFlag{
				Name:  flagMode,
				Usage: "override the scheduling mode (timer or task)",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
			&cli.BoolFlag{
				Name:  flagDump,
				Usage: "dump the cycle ring on exit",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logging.NewLogger("gyroled").Fatal(err)
	}
}

func loadBoardConfig(c *cli.Context) (*config.BoardConfig, error) {
	var (
		board *config.BoardConfig
		err   error
	)
	if path := c.String(flagConfig); path != "" {
		board, err = config.LoadFile(path)
		if err != nil {
			return nil, err
		}
	} else {
		board = config.DefaultRaspberryPiConfig()
	}
	if mode := c.String(flagMode); mode != "" {
		board.Mode = mode
	}
	if c.Bool(flagDebug) {
		board.Debug = true
	}
	return board, board.Validate()
}

func run(c *cli.Context) (err error) {
	board, err := loadBoardConfig(c)
	if err != nil {
		return err
	}

	logger := logging.NewLogger("gyroled")
	if board.Debug {
		logger = logging.NewDebugLogger("gyroled")
	}
	logging.RouteCoreDebug(logger)

	if _, err := host.Init(); err != nil {
		return errors.Wrap(err, "initializing periph host drivers")
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var reporter *telemetry.Reporter
	if board.Telemetry.Device != "" {
		cfg := serial.DefaultConfig(board.Telemetry.Device)
		cfg.Baud = board.Telemetry.Baud
		port, openErr := serial.Open(cfg)
		if openErr != nil {
			return openErr
		}
		defer func() { err = multierr.Append(err, port.Close()) }()
		reporter = telemetry.NewReporter(port, 1)
	}

	var fatal atomic.Error
	cancel := installFatalHandler(logger, reporter, &fatal, stop)
	defer cancel()

	bus, err := i2creg.Open(board.Gyro.Bus)
	if err != nil {
		return errors.Wrapf(err, "opening I2C bus %q", board.Gyro.Bus)
	}
	defer func() { err = multierr.Append(err, bus.Close()) }()

	b, err := newLinuxBoard(board, bus, logger)
	if err != nil {
		return err
	}

	cfg := board.CoreConfig()
	app, err := core.NewApp(cfg, b.platform())
	if err != nil {
		return err
	}
	if reporter != nil {
		app.OnCycle(reporter.Observe)
		reporter.Identify(cfg.Mode, cfg.Period)
	}
	if err := b.attach(cfg, app); err != nil {
		return err
	}

	b.kernel.Start()
	b.irq.Start()
	defer func() {
		b.irq.Stop()
		b.kernel.Stop()
		logger.Infow("stopped",
			"cycles", app.Cycles(),
			"edges_delivered", b.irq.Delivered(),
			"edges_latched", b.irq.Latched(),
			"gyro_read_errors", b.gyro.ReadErrors(),
			"gpio_write_errors", b.gpio.WriteErrors(),
		)
		if c.Bool(flagDump) {
			core.SetDebugWriter(func(line string) { fmt.Fprintln(c.App.Writer, line) })
			core.SetDebugEnabled(true)
			core.DumpCycleRing()
		}
	}()

	if err := app.Init(); err != nil {
		return multierr.Append(fatal.Load(), err)
	}
	logger.Infow("running", "mode", cfg.Mode.String(), "period", cfg.Period)

	<-ctx.Done()
	return fatal.Load()
}

// installFatalHandler logs the reason, forwards it to telemetry and ends the
// run. The first reason is kept in fatal. The returned func restores the
// previous handler.
func installFatalHandler(logger logging.Logger, reporter *telemetry.Reporter, fatal *atomic.Error, stop context.CancelFunc) func() {
	var once sync.Once
	prev := core.SetFatalHandler(func(reason string) {
		logger.Errorw("fatal", "reason", reason)
		if reporter != nil {
			reporter.Fatal(reason)
		}
		once.Do(func() { fatal.Store(&core.FatalError{Reason: reason}) })
		stop()
	})
	return func() { core.SetFatalHandler(prev) }
}

// linuxBoard is the set of periph.io-backed collaborators for one run.
type linuxBoard struct {
	gpio   *PeriphGPIO
	irq    *EdgeController
	gyro   *gyro.L3GD20
	kernel *rtos.RuntimeKernel

	button    gpio.PinIO
	dataReady gpio.PinIO
	pull      gpio.Pull
}

func newLinuxBoard(board *config.BoardConfig, bus i2c.Bus, logger logging.Logger) (*linuxBoard, error) {
	b := &linuxBoard{
		gpio:   NewPeriphGPIO(),
		irq:    NewEdgeController(logger),
		gyro:   gyro.NewL3GD20(bus, uint8(board.Gyro.Address)),
		kernel: rtos.NewRuntimeKernel(clock.New(), logger),
		pull:   gpio.PullDown,
	}
	if board.ButtonActiveLow {
		b.pull = gpio.PullUp
	}

	pins := make(map[core.GPIOPin]gpio.PinIO)
	for slot, name := range board.PinNames() {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, errors.Errorf("no GPIO named %q", name)
		}
		pins[slot] = p
	}

	var err error
	for _, slot := range []core.GPIOPin{config.SlotSignalA, config.SlotSignalB} {
		err = multierr.Append(err, b.gpio.ConfigureOutput(slot, pins[slot]))
	}
	for _, slot := range []core.GPIOPin{config.SlotButton, config.SlotDataReady} {
		err = multierr.Append(err, b.gpio.ConfigureInput(slot, pins[slot]))
	}
	if err != nil {
		return nil, err
	}
	b.button = pins[config.SlotButton]
	b.dataReady = pins[config.SlotDataReady]
	return b, nil
}

func (b *linuxBoard) platform() core.Platform {
	return core.Platform{
		GPIO:   b.gpio,
		IRQ:    b.irq,
		Gyro:   b.gyro,
		Kernel: b.kernel,
	}
}

// attach wires the button (both edges) and data-ready (rising edge) lines to
// the application's handlers.
func (b *linuxBoard) attach(cfg core.Config, app *core.App) error {
	err := b.irq.Attach(cfg.ButtonIRQ, b.button, b.pull, gpio.BothEdges, app.ButtonSampler().HandleInterrupt)
	if err != nil {
		return errors.Wrap(err, "button source "+strconv.Itoa(int(cfg.ButtonIRQ)))
	}
	err = b.irq.Attach(cfg.DataReadyIRQ, b.dataReady, gpio.PullDown, gpio.RisingEdge, app.DataReady().HandleInterrupt)
	if err != nil {
		return errors.Wrap(err, "data-ready source "+strconv.Itoa(int(cfg.DataReadyIRQ)))
	}
	return nil
}
