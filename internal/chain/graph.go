package chain

import (
	"fmt"
)

// Stage renders its prompt from the values named by the prompt's
// placeholders and stores the model reply under Output.
type Stage struct {
	Name   string
	Prompt *Template
	Output string
}

// Inputs are the values the stage reads.
func (s Stage) Inputs() []string {
	return s.Prompt.Variables()
}

// Graph is an ordered set of stages. Each stage may only read graph inputs
// and the outputs of stages before it.
type Graph struct {
	inputs []string
	stages []Stage
	byName map[string]int
}

// NewGraph validates that every stage input is produced before it is read.
func NewGraph(inputs []string, stages ...Stage) (*Graph, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("graph needs at least one stage")
	}

	available := make(map[string]string, len(inputs)+len(stages))
	for _, in := range inputs {
		available[in] = "input"
	}

	byName := make(map[string]int, len(stages))
	for i, stage := range stages {
		if stage.Prompt == nil {
			return nil, fmt.Errorf("stage %q has no prompt", stage.Name)
		}
		if _, dup := byName[stage.Name]; dup {
			return nil, fmt.Errorf("duplicate stage name %q", stage.Name)
		}
		for _, in := range stage.Inputs() {
			if _, ok := available[in]; !ok {
				return nil, fmt.Errorf("stage %q reads {%s} which is not available at that point", stage.Name, in)
			}
		}
		if producer, taken := available[stage.Output]; taken {
			return nil, fmt.Errorf("stage %q output %q already provided by %s", stage.Name, stage.Output, producer)
		}
		available[stage.Output] = "stage " + stage.Name
		byName[stage.Name] = i
	}

	return &Graph{
		inputs: append([]string(nil), inputs...),
		stages: append([]Stage(nil), stages...),
		byName: byName,
	}, nil
}

// Stage returns the named stage.
func (g *Graph) Stage(name string) (Stage, bool) {
	i, ok := g.byName[name]
	if !ok {
		return Stage{}, false
	}
	return g.stages[i], true
}

// Stages returns the stages in execution order.
func (g *Graph) Stages() []Stage {
	return append([]Stage(nil), g.stages...)
}

// Output is the value produced by the last stage.
func (g *Graph) Output() string {
	return g.stages[len(g.stages)-1].Output
}

// scopeFor selects only the values a stage declares.
func scopeFor(stage Stage, values map[string]string) map[string]string {
	scope := make(map[string]string, len(stage.Inputs()))
	for _, in := range stage.Inputs() {
		if v, ok := values[in]; ok {
			scope[in] = v
		}
	}
	return scope
}
