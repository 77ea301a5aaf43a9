// Command riscu-btor2 translates a RISC-U program into a BTOR2 model.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/sarchlab/rvbmc/btor2"
	"github.com/sarchlab/rvbmc/config"
	"github.com/sarchlab/rvbmc/modeler"
	"github.com/sarchlab/rvbmc/verify"
	"github.com/tebeka/atexit"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	format := flag.String("format", "", "program format: auto, elf or asm")
	output := flag.String("o", "", "output file (default stdout)")
	logLevel := flag.String("log", "", "log level: trace, debug, info, warn or error")
	lint := flag.Bool("lint", false, "run the static checks before translating")
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
	if *format != "" {
		cfg.Format = *format
	}
	if *output != "" {
		cfg.Output = *output
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
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

	if *lint {
		issues := verify.RunLint(program)
		for _, issue := range issues {
			slog.Warn("lint", "type", issue.Type, "address", fmt.Sprintf("%#x", issue.Address),
				"message", issue.Message)
		}
		if len(issues) > 0 {
			fail(fmt.Errorf("%d lint issues", len(issues)))
		}
	}

	model, err := modeler.GenerateModel(program)
	if err != nil {
		fail(err)
	}

	out := os.Stdout
	if cfg.Output != "" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			fail(fmt.Errorf("failed to create output file: %w", err))
		}
		atexit.Register(func() { f.Close() })
		out = f
	}

	if err := btor2.WriteModel(out, model); err != nil {
		fail(err)
	}

	slog.Info("model written", "nodes", model.Len(), "output", cfg.Output)
	atexit.Exit(0)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "riscu-btor2: %v\n", err)
	atexit.Exit(1)
}
