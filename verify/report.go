package verify

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sarchlab/rvbmc/btor2"
	"github.com/sarchlab/rvbmc/machine"
	"github.com/sarchlab/rvbmc/modeler"
	"github.com/sarchlab/rvbmc/riscu"
)

// VerificationReport represents a complete verification report
type VerificationReport struct {
	Program    *riscu.Program
	LintIssues []Issue
	Model      *btor2.Model
	ModelErr   error
	Replay     *machine.Machine
	ReplayErr  error
	Hits       []machine.BadHit
}

// GenerateReport lints the program, builds its model and replays the model,
// returns a report
func GenerateReport(program *riscu.Program, opts Options) *VerificationReport {
	report := &VerificationReport{Program: program}

	report.LintIssues = RunLint(program)

	report.Model, report.ModelErr = modeler.GenerateModel(program)
	if report.ModelErr != nil {
		return report
	}

	m, err := machine.NewBuilder().
		WithMaxSteps(opts.MaxSteps).
		WithStopOnBad(opts.StopOnBad).
		Build("Replay", report.Model)
	if err != nil {
		report.ReplayErr = err
		return report
	}

	regs := make([]riscu.Register, 0, len(opts.Registers))
	for r := range opts.Registers {
		regs = append(regs, r)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i] < regs[j] })
	for _, r := range regs {
		if err := m.Evaluator().SetRegister(r, opts.Registers[r]); err != nil {
			report.ReplayErr = err
			return report
		}
	}

	m.Run()
	report.Replay = m
	report.Hits = m.Hits()

	return report
}

// Passed tells whether every stage succeeded without findings.
func (r *VerificationReport) Passed() bool {
	return len(r.LintIssues) == 0 && r.ModelErr == nil && r.ReplayErr == nil && len(r.Hits) == 0
}

// HitNames returns the distinct bad properties that were reached, in the
// order they were first reached.
func (r *VerificationReport) HitNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, h := range r.Hits {
		if !seen[h.Name] {
			seen[h.Name] = true
			names = append(names, h.Name)
		}
	}
	return names
}

// WriteReport writes a formatted report to a writer
func (r *VerificationReport) WriteReport(w io.Writer) {
	separator := strings.Repeat("=", 60)

	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, "RISC-U PROGRAM VERIFICATION REPORT")
	fmt.Fprintln(w, separator)

	fmt.Fprintf(w, "\n✓ Loaded %d instructions at %#x (entry %#x)\n",
		r.Program.NumInstructions(), r.Program.Code.Address, r.Program.Entry)

	// STAGE 1: LINT
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "STAGE 1: STATIC LINT CHECKS")
	fmt.Fprintln(w, separator)

	if len(r.LintIssues) == 0 {
		fmt.Fprintln(w, "✓ No lint issues found!")
	} else {
		fmt.Fprintf(w, "⚠ Found %d lint issues:\n\n", len(r.LintIssues))
		t := table.NewWriter()
		t.AppendHeader(table.Row{"Type", "Address", "Word", "Message"})
		for _, issue := range r.LintIssues {
			t.AppendRow(table.Row{issue.Type, fmt.Sprintf("%#x", issue.Address),
				fmt.Sprintf("%#08x", issue.Word), issue.Message})
		}
		fmt.Fprintln(w, t.Render())
	}

	// STAGE 2: MODEL
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "STAGE 2: MODEL GENERATION")
	fmt.Fprintln(w, separator)

	if r.ModelErr != nil {
		fmt.Fprintf(w, "⚠ Model generation failed: %v\n", r.ModelErr)
	} else {
		fmt.Fprintf(w, "✓ %d nodes, %d next relations, %d bad properties\n",
			r.Model.Len(), len(r.Model.Sequentials), len(r.Model.BadStates))
	}

	// STAGE 3: REPLAY
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "STAGE 3: REPLAY")
	fmt.Fprintln(w, separator)

	switch {
	case r.ModelErr != nil:
		fmt.Fprintln(w, "- Skipped, no model")
	case r.ReplayErr != nil:
		fmt.Fprintf(w, "⚠ Replay error: %v\n", r.ReplayErr)
	default:
		fmt.Fprintf(w, "✓ Replayed %d steps\n", r.Replay.Evaluator().StepCount())
		if len(r.Hits) > 0 {
			t := table.NewWriter()
			t.AppendHeader(table.Row{"Step", "Bad Property"})
			for _, h := range r.Hits {
				t.AppendRow(table.Row{h.Step, h.Name})
			}
			fmt.Fprintln(w, t.Render())
		}
		fmt.Fprintln(w)
		machine.PrintState(w, r.Replay.Evaluator())
	}

	// SUMMARY
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "VERIFICATION SUMMARY")
	fmt.Fprintln(w, separator)

	fmt.Fprintf(w, "Lint Result: %d issues detected\n", len(r.LintIssues))
	modelStatus := "SUCCESS"
	if r.ModelErr != nil {
		modelStatus = "FAILED: " + r.ModelErr.Error()
	}
	fmt.Fprintf(w, "Model Result: %s\n", modelStatus)
	if names := r.HitNames(); len(names) > 0 {
		fmt.Fprintf(w, "Replay Result: bad properties reached: %s\n", strings.Join(names, ", "))
	} else if r.ReplayErr != nil {
		fmt.Fprintf(w, "Replay Result: FAILED: %v\n", r.ReplayErr)
	} else if r.ModelErr == nil {
		fmt.Fprintln(w, "Replay Result: no bad property reached")
	}

	if r.Passed() {
		fmt.Fprintln(w, "\n✓ PROGRAM PASSED ALL CHECKS")
	}

	fmt.Fprintln(w)
}

// SaveReportToFile saves the report to a file
func (r *VerificationReport) SaveReportToFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	r.WriteReport(file)
	return nil
}
