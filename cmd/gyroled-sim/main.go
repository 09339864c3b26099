// Package main replays a scenario timeline against the application on the
// simulated board and prints the output sequence.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"gyroled/core"
	"gyroled/logging"
	"gyroled/sim"
)

const (
	flagMode  = "mode"
	flagDebug = "debug"
	flagQuiet = "quiet"
	flagDump  = "dump"
)

func main() {
	app := &cli.App{
		Name:      "gyroled-sim",
		Usage:     "run gyroled scenarios on a simulated board",
		ArgsUsage: "SCENARIO.yaml...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagMode,
				Value: "both",
				Usage: "scheduling `MODE`: timer, task or both (compares the two)",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
			&cli.BoolFlag{
				Name:  flagQuiet,
				Usage: "only report failures",
			},
			&cli.BoolFlag{
				Name:  flagDump,
				Usage: "dump the cycle ring after each run",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return errors.New("no scenario given. use --help for more information")
	}

	logger := logging.NewLogger("sim")
	if c.Bool(flagDebug) {
		logger = logging.NewDebugLogger("sim")
	}
	logging.RouteCoreDebug(logger)

	runner := sim.NewRunner(logger)
	out := io.Writer(c.App.Writer)
	if c.Bool(flagQuiet) {
		out = io.Discard
	}
	if c.Bool(flagDump) {
		runner.AfterRun = func(res *sim.Result) {
			fmt.Fprintf(out, "cycle ring (%s mode)\n", res.Mode)
			core.DumpCycleRing()
		}
	}

	var failures error
	for _, path := range c.Args().Slice() {
		sc, err := sim.LoadScenarioFile(path)
		if err != nil {
			failures = multierr.Append(failures, err)
			continue
		}
		if err := runScenario(runner, sc, c.String(flagMode), out); err != nil {
			failures = multierr.Append(failures, errors.Wrapf(err, "scenario %q", sc.Name))
		}
	}
	return failures
}

func runScenario(runner *sim.Runner, sc *sim.Scenario, mode string, out io.Writer) error {
	if mode == "both" {
		timer, task, err := runner.RunBoth(sc)
		if err != nil {
			return err
		}
		printSamples(out, sc, timer)
		if err := sim.Compare(timer.Samples, task.Samples); err != nil {
			return errors.Wrap(err, "timer and task modes diverge")
		}
		fmt.Fprintf(out, "%s: timer and task modes agree on %d cycles\n", sc.Name, len(timer.Samples))
		return sc.Check(timer.Samples)
	}

	m, err := core.ParseMode(mode)
	if err != nil {
		return errors.Wrapf(err, "mode %q", mode)
	}
	res, err := runner.Run(sc, m)
	if err != nil {
		return err
	}
	printSamples(out, sc, res)
	return sc.Check(res.Samples)
}

func printSamples(out io.Writer, sc *sim.Scenario, res *sim.Result) {
	fmt.Fprintf(out, "%s (%s mode, period %v)\n", sc.Name, res.Mode, sc.Period)
	for _, s := range res.Samples {
		fmt.Fprintf(out, "  %v\n", s)
	}
}
