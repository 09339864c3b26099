// Package main watches the firmware's telemetry UART and logs each cycle.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"gyroled/core"
	"gyroled/host/monitor"
	"gyroled/host/serial"
	"gyroled/logging"
)

const (
	flagDevice   = "device"
	flagBaud     = "baud"
	flagDuration = "duration"
	flagDebug    = "debug"
)

func main() {
	app := &cli.App{
		Name:  "gyroled-monitor",
		Usage: "decode the gyroled telemetry stream",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagDevice,
				Aliases: []string{"d"},
				Value:   "/dev/ttyACM0",
				Usage:   "serial `DEVICE` the firmware streams on",
			},
			&cli.IntFlag{
				Name:  flagBaud,
				Value: serial.DefaultBaud,
				Usage: "baud rate (ignored for USB CDC)",
			},
			&cli.DurationFlag{
				Name:  flagDuration,
				Usage: "stop after this long (0 runs until interrupted)",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "log every cycle",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logging.NewLogger("gyroled-monitor").Fatal(err)
	}
}

func run(c *cli.Context) error {
	logger := logging.NewLogger("monitor")
	if c.Bool(flagDebug) {
		logger = logging.NewDebugLogger("monitor")
	}

	cfg := serial.DefaultConfig(c.String(flagDevice))
	cfg.Baud = c.Int(flagBaud)
	m, err := monitor.Open(cfg, logger)
	if err != nil {
		return err
	}

	var transitions int
	var last core.Signals
	m.OnReport(func(r core.CycleReport) {
		if r.Signals != last {
			transitions++
			last = r.Signals
		}
	})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := c.Duration(flagDuration); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	start := time.Now()
	select {
	case <-ctx.Done():
	case <-m.Done():
		logger.Info("telemetry stream ended")
	}

	closeErr := m.Close()
	stats := m.Stats()
	logger.Infow("summary",
		"elapsed", time.Since(start),
		"reports", stats.Reports,
		"frames", stats.Frames,
		"resyncs", stats.Resyncs,
		"lost_frames", stats.SequenceGaps,
		"output_changes", transitions)
	if reason := m.FatalReason(); reason != "" {
		logger.Errorw("firmware reported a fatal error", "reason", reason)
	}
	return closeErr
}
