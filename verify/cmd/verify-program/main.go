// Command verify-program lints a RISC-U program, builds its model and replays
// the model to find reachable bad properties.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/sarchlab/rvbmc/config"
	"github.com/sarchlab/rvbmc/verify"
	"github.com/tebeka/atexit"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	maxSteps := flag.Int("steps", -1, "number of steps to replay")
	stopOnBad := flag.Bool("stop-on-bad", false, "stop the replay at the first bad property")
	reportPath := flag.String("report", "", "also save the report to this file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fail(err)
		}
	}
	if flag.NArg() > 0 {
		cfg.Program = flag.Arg(0)
	}
	if *maxSteps >= 0 {
		cfg.MaxSteps = *maxSteps
	}
	if *stopOnBad {
		cfg.StopOnBad = true
	}
	if err := cfg.Validate(); err != nil {
		fail(err)
	}

	handler, err := cfg.LogHandler(os.Stderr)
	if err != nil {
		fail(err)
	}
	slog.SetDefault(slog.New(handler))

	program, err := cfg.LoadProgram()
	if err != nil {
		fail(err)
	}
	registers, err := cfg.RegisterValues()
	if err != nil {
		fail(err)
	}

	report := verify.GenerateReport(program, verify.Options{
		MaxSteps:  cfg.MaxSteps,
		StopOnBad: cfg.StopOnBad,
		Registers: registers,
	})
	report.WriteReport(os.Stdout)

	if *reportPath != "" {
		if err := report.SaveReportToFile(*reportPath); err != nil {
			fail(err)
		}
	}

	if !report.Passed() {
		atexit.Exit(2)
	}
	atexit.Exit(0)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "verify-program: %v\n", err)
	atexit.Exit(1)
}
