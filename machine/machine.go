package machine

import (
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"
)

// BadHit records a bad property that held at a step.
type BadHit struct {
	Step int
	Name string
}

// Machine advances an evaluator by one step per tick.
type Machine struct {
	*sim.TickingComponent

	engine    sim.Engine
	eval      *Evaluator
	maxSteps  int
	stopOnBad bool

	hits []BadHit
	done bool
}

// Evaluator returns the evaluator driven by the machine.
func (m *Machine) Evaluator() *Evaluator {
	return m.eval
}

// Hits returns the bad properties observed so far.
func (m *Machine) Hits() []BadHit {
	return m.hits
}

// Done tells whether the machine has stopped.
func (m *Machine) Done() bool {
	return m.done
}

// Tick checks the bad properties of the current state and then steps.
func (m *Machine) Tick() (madeProgress bool) {
	if m.done {
		return false
	}

	fired := m.eval.FiredBad()
	for _, name := range fired {
		m.hits = append(m.hits, BadHit{Step: m.eval.StepCount(), Name: name})
		slog.Info("bad state reached", "step", m.eval.StepCount(), "name", name)
	}

	if (m.stopOnBad && len(fired) > 0) || m.eval.StepCount() >= m.maxSteps {
		m.done = true
		return false
	}

	m.eval.Step()
	return true
}

// Run ticks the machine until it stops.
func (m *Machine) Run() {
	m.TickNow()
	m.engine.Run()
}
