package tablefeat

import (
	"errors"
	"fmt"
)

// Pipeline applies computations in registration order. Each computation
// sees the columns written by the ones registered before it.
type Pipeline struct {
	steps []Computation
	names map[string]struct{}
}

func NewPipeline() *Pipeline {
	return &Pipeline{names: make(map[string]struct{})}
}

func (p *Pipeline) Register(c Computation) error {
	if c == nil {
		return errors.New("tablefeat: nil computation")
	}
	if c.Name() == "" {
		return errors.New("tablefeat: feature name required")
	}
	if _, dup := p.names[c.Name()]; dup {
		return fmt.Errorf("tablefeat: feature %q already registered", c.Name())
	}
	p.names[c.Name()] = struct{}{}
	p.steps = append(p.steps, c)
	return nil
}

func (p *Pipeline) Len() int { return len(p.steps) }

func (p *Pipeline) Names() []string {
	names := make([]string, len(p.steps))
	for i, c := range p.steps {
		names[i] = c.Name()
	}
	return names
}

// Columns returns every output column in registration order.
func (p *Pipeline) Columns() []string {
	var cols []string
	for _, c := range p.steps {
		cols = append(cols, c.Columns()...)
	}
	return cols
}

func (p *Pipeline) Apply(t *Table, mode Mode) error {
	for _, c := range p.steps {
		var err error
		switch mode {
		case Full:
			err = c.ComputeFull(t)
		case Incremental:
			err = c.ComputeIncremental(t)
		default:
			return fmt.Errorf("tablefeat: unknown mode %v", mode)
		}
		if err != nil {
			return fmt.Errorf("apply %s %q: %w", mode, c.Name(), err)
		}
	}
	return nil
}
