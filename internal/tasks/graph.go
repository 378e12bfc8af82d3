package tasks

import (
	"fmt"
	"sort"
)

// Graph is the immutable structural definition of one run: the requested
// tasks plus everything they transitively depend on, with a topological
// order computed once at construction. Only the per-node status cells
// mutate afterwards.
type Graph struct {
	order       []*StateCell // valid topological order: dependencies first
	byName      map[string]*StateCell
	rootNames   []string
	longestName int
}

// NewGraph builds the dependency closure of the requested root tasks and
// validates it. Construction fails with *UnknownTaskError for an undefined
// root, *UnknownDependencyError for a dangling edge and *CycleError when the
// dependency relation is not acyclic.
func NewGraph(defs []TaskDef, roots []string) (*Graph, error) {
	byName := make(map[string]*TaskDef, len(defs))
	for i := range defs {
		t := &defs[i]
		if t.Name == "" {
			return nil, fmt.Errorf("task with empty name")
		}
		if _, dup := byName[t.Name]; dup {
			return nil, fmt.Errorf("duplicate task name %q", t.Name)
		}
		byName[t.Name] = t
	}

	if len(roots) == 0 {
		return nil, fmt.Errorf("no root tasks requested")
	}

	// Collect the closure of the roots over dependency edges.
	selected := make(map[string]*TaskDef)
	var queue []string
	for _, name := range roots {
		if _, ok := byName[name]; !ok {
			return nil, &UnknownTaskError{Name: name}
		}
		queue = append(queue, name)
	}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, seen := selected[name]; seen {
			continue
		}
		t := byName[name]
		selected[name] = t
		for _, dep := range t.After {
			if _, ok := byName[dep]; !ok {
				return nil, &UnknownDependencyError{Task: name, Dependency: dep}
			}
			queue = append(queue, dep)
		}
	}

	order, err := topoOrder(selected)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		byName:    make(map[string]*StateCell, len(order)),
		rootNames: append([]string(nil), roots...),
	}
	for _, t := range order {
		cell := newStateCell(t)
		g.order = append(g.order, cell)
		g.byName[t.Name] = cell
		if len(t.Name) > g.longestName {
			g.longestName = len(t.Name)
		}
	}
	return g, nil
}

// topoOrder sorts the selected tasks with Kahn's algorithm so that every
// dependency precedes its dependents. Ties are broken by name to keep the
// enumeration order deterministic; execution order is not derived from it.
func topoOrder(selected map[string]*TaskDef) ([]*TaskDef, error) {
	inDegree := make(map[string]int, len(selected))
	dependents := make(map[string][]string, len(selected))
	for name, t := range selected {
		inDegree[name] = len(t.After)
		for _, dep := range t.After {
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	for name, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	var order []*TaskDef
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, selected[name])

		var unlocked []string
		for _, dep := range dependents[name] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				unlocked = append(unlocked, dep)
			}
		}
		sort.Strings(unlocked)
		ready = append(ready, unlocked...)
	}

	if len(order) < len(selected) {
		var cycleNodes []string
		for name, deg := range inDegree {
			if deg > 0 {
				cycleNodes = append(cycleNodes, name)
			}
		}
		sort.Strings(cycleNodes)
		return nil, &CycleError{Tasks: cycleNodes}
	}
	return order, nil
}

// Order returns the cells in topological order. This governs how observers
// enumerate and report tasks, never in which order they execute.
func (g *Graph) Order() []*StateCell {
	return g.order
}

// Cell returns the state cell for a task name.
func (g *Graph) Cell(name string) (*StateCell, bool) {
	c, ok := g.byName[name]
	return c, ok
}

// RootNames returns the explicitly requested task names.
func (g *Graph) RootNames() []string {
	return g.rootNames
}

// LongestName returns the length of the longest task name, for layout.
func (g *Graph) LongestName() int {
	return g.longestName
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int {
	return len(g.order)
}

// Validate checks a full set of task definitions for structural problems
// without building a graph: empty or duplicate names, unknown dependencies
// and cycles. All problems are reported, not just the first.
func Validate(defs []TaskDef) []error {
	var errs []error

	names := make(map[string]bool, len(defs))
	for _, t := range defs {
		if t.Name == "" {
			errs = append(errs, fmt.Errorf("task with empty name"))
			continue
		}
		if names[t.Name] {
			errs = append(errs, fmt.Errorf("duplicate task name %q", t.Name))
		}
		names[t.Name] = true
	}

	selected := make(map[string]*TaskDef, len(defs))
	for i := range defs {
		t := &defs[i]
		if t.Name == "" {
			continue
		}
		selected[t.Name] = t
		for _, dep := range t.After {
			if !names[dep] {
				errs = append(errs, &UnknownDependencyError{Task: t.Name, Dependency: dep})
			}
		}
	}

	// Cycle detection only makes sense once every edge resolves.
	if len(errs) == 0 {
		if _, err := topoOrder(selected); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
