package runtime

import (
	"sort"

	"github.com/juju/errors"
	"github.com/warriorguo/taskpipe/types"
	"github.com/warriorguo/taskpipe/utils"
)

/**
 * weight gives every node a stable dispatch priority: steps whose
 * completion unblocks more downstream work sort first, with the step name
 * as the final tie-break so the ordering is total and reproducible for a
 * fixed graph.
 */
type weight struct {
	sum    int
	direct int
	name   string
}

// heavier reports whether w should be dispatched before o.
func (w weight) heavier(o weight) bool {
	if w.sum != o.sum {
		return w.sum > o.sum
	}
	if w.direct != o.direct {
		return w.direct > o.direct
	}
	return w.name < o.name
}

/**
 * resolver owns the immutable dependency and dependent graphs for one set
 * of registered steps. It is rebuilt from the registry on every execute or
 * list call; schedulers it hands out get deep copies so concurrent
 * executions never share mutable state.
 */
type resolver struct {
	// step -> set of steps it requires
	dependencies map[string]map[string]struct{}
	// step -> set of steps requiring it
	dependents map[string]map[string]struct{}

	weights map[string]weight
}

func newResolver(graph map[string][]string) (*resolver, error) {
	dependencies := make(map[string]map[string]struct{}, len(graph))
	for step, requires := range graph {
		set := make(map[string]struct{}, len(requires))
		for _, requirement := range requires {
			set[requirement] = struct{}{}
		}
		dependencies[step] = set
	}

	r := &resolver{
		dependencies: dependencies,
		dependents:   utils.TransposeGraph(dependencies),
	}

	weights, err := r.buildWeights()
	if err != nil {
		return nil, errors.Trace(err)
	}
	r.weights = weights

	return r, nil
}

/**
 * buildWeights walks the dependent graph once per node, memoized. A node
 * seen again while still on the recursion path is a dependency cycle; the
 * error carries the cycle path from the repeated node back to itself.
 */
func (r *resolver) buildWeights() (map[string]weight, error) {
	weights := make(map[string]weight, len(r.dependents))

	var path []string
	onPath := make(map[string]int)

	var compute func(step string) (weight, error)
	compute = func(step string) (weight, error) {
		if w, exists := weights[step]; exists {
			return w, nil
		}
		if start, exists := onPath[step]; exists {
			cycle := append([]string{}, path[start:]...)
			cycle = append(cycle, step)
			return weight{}, types.NewCyclicDependenciesError(cycle)
		}

		onPath[step] = len(path)
		path = append(path, step)

		dependents := make([]string, 0, len(r.dependents[step]))
		for dependent := range r.dependents[step] {
			dependents = append(dependents, dependent)
		}
		sort.Strings(dependents)

		sum := 0
		for _, dependent := range dependents {
			w, err := compute(dependent)
			if err != nil {
				return weight{}, errors.Trace(err)
			}
			sum += w.sum + 1
		}

		path = path[:len(path)-1]
		delete(onPath, step)

		w := weight{sum: sum, direct: len(r.dependents[step]), name: step}
		weights[step] = w
		return w, nil
	}

	steps := make([]string, 0, len(r.dependents))
	for step := range r.dependents {
		steps = append(steps, step)
	}
	sort.Strings(steps)

	for _, step := range steps {
		if _, err := compute(step); err != nil {
			return nil, errors.Trace(err)
		}
	}

	return weights, nil
}

func (r *resolver) scheduler() *scheduler {
	return newScheduler(
		utils.CloneGraph(r.dependencies),
		utils.CloneGraph(r.dependents),
		r.weights,
	)
}

/**
 * order produces one valid topological ordering by draining a fresh
 * scheduler, so listing and actual execution can never disagree on
 * ordering semantics.
 */
func (r *resolver) order() []string {
	entries := make([]string, 0, len(r.dependencies))

	s := r.scheduler()
	for s.hasWork() {
		step := s.ready[0]
		s.markStarted(step)
		s.markSuccess(step)
		entries = append(entries, step)
	}

	return entries
}
