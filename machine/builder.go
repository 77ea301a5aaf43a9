package machine

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/rvbmc/btor2"
)

// Builder can create new machines.
type Builder struct {
	engine    sim.Engine
	freq      sim.Freq
	maxSteps  int
	stopOnBad bool
}

// NewBuilder returns a builder for machines that run 100 steps on their own
// serial engine at 1 GHz.
func NewBuilder() Builder {
	return Builder{
		freq:     1 * sim.GHz,
		maxSteps: 100,
	}
}

// WithEngine sets the engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the machine.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithMaxSteps sets the number of steps after which the machine stops.
func (b Builder) WithMaxSteps(n int) Builder {
	if n < 0 {
		panic("max steps must not be negative")
	}
	b.maxSteps = n
	return b
}

// WithStopOnBad makes the machine stop at the first step where a bad property
// holds.
func (b Builder) WithStopOnBad(stop bool) Builder {
	b.stopOnBad = stop
	return b
}

// Build creates a machine positioned at the initial state of the model.
func (b Builder) Build(name string, model *btor2.Model) (*Machine, error) {
	eval, err := NewEvaluator(model)
	if err != nil {
		return nil, err
	}

	engine := b.engine
	if engine == nil {
		engine = sim.NewSerialEngine()
	}

	m := &Machine{
		engine:    engine,
		eval:      eval,
		maxSteps:  b.maxSteps,
		stopOnBad: b.stopOnBad,
	}
	m.TickingComponent = sim.NewTickingComponent(name, engine, b.freq, m)

	return m, nil
}
