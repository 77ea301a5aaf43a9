package machine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sarchlab/rvbmc/riscu"
)

const LevelTrace slog.Level = slog.LevelInfo + 1

func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

// PrintState renders the registers and control state of an evaluator.
func PrintState(w io.Writer, e *Evaluator) {
	fmt.Fprintf(w, "==============State@%d==============\n", e.StepCount())

	regTable := table.NewWriter()
	regTable.SetTitle("Registers")
	regTable.AppendHeader(table.Row{"Reg", "Value", "Reg", "Value", "Reg", "Value", "Reg", "Value"})
	for row := 0; row < riscu.NumRegisters/4; row++ {
		regRow := table.Row{}
		for col := 0; col < 4; col++ {
			r := riscu.Register(col*riscu.NumRegisters/4 + row)
			regRow = append(regRow, r.ABIName(), fmt.Sprintf("%#x", e.Register(r)))
		}
		regTable.AppendRow(regRow)
	}
	fmt.Fprintln(w, regTable.Render())
	fmt.Fprintln(w)

	ctrlTable := table.NewWriter()
	ctrlTable.SetTitle("Control")
	ctrlTable.AppendHeader(table.Row{"PC", "Kernel Mode", "Bad"})
	ctrlTable.AppendRow(table.Row{e.pcString(), e.IsInKernelMode(), fmt.Sprint(e.FiredBad())})
	fmt.Fprintln(w, ctrlTable.Render())
	fmt.Fprintln(w, "================================================")
}
