package runtime

import (
	"sort"

	"github.com/juju/errors"
	"github.com/warriorguo/taskpipe/types"
	"github.com/warriorguo/taskpipe/utils"
)

/**
 * buildGraph turns the registered handlers into the step -> requirements
 * mapping one execution needs, applying the requested/except/only filters.
 *
 * Excluded steps are spliced out by edge contraction: every edge pointing
 * at an excluded step is rewritten to its non-excluded transitive
 * dependencies, so for a chain 1 -> 2 -> 3 -> 4 with {2,3} excluded, 1
 * ends up requiring 4 directly. The only filter reuses the same splicing
 * to keep exactly the requested closure.
 *
 * Unknown names are collected and reported together, never one by one.
 */
func (p *pipeline) buildGraph(requested, exceptSteps []string, onlySelected bool) (map[string][]string, error) {
	handlers, err := p.resolveHandlers()
	if err != nil {
		return nil, errors.Trace(err)
	}

	var unknown []string

	// Group steps are aliases: expanding a name walks through groups down
	// to the real members.
	expand := func(names []string) map[string]struct{} {
		expanded := make(map[string]struct{})
		toProcess := append([]string{}, names...)
		for len(toProcess) > 0 {
			name := toProcess[len(toProcess)-1]
			toProcess = toProcess[:len(toProcess)-1]

			expanded[name] = struct{}{}
			h, exists := handlers[name]
			if !exists {
				unknown = append(unknown, name)
				continue
			}
			group, isGroup := h.(*stepGroupHandler)
			if !isGroup {
				continue
			}
			for _, member := range group.requires() {
				if _, seen := expanded[member]; !seen {
					toProcess = append(toProcess, member)
				}
			}
		}
		return expanded
	}

	exceptSet := make(map[string]struct{})
	if len(exceptSteps) > 0 {
		exceptSet = expand(exceptSteps)
	}

	if requested == nil {
		for name, h := range handlers {
			if _, excluded := exceptSet[name]; excluded {
				continue
			}
			if h.runByDefault() {
				requested = append(requested, name)
			}
		}
		sort.Strings(requested)
	}

	// Build the whole reachable graph first, without dropping edges, to
	// keep all dependency relations for the splicing below.
	graph := make(map[string][]string)
	toProcess := append([]string{}, requested...)
	for len(toProcess) > 0 {
		name := toProcess[len(toProcess)-1]
		toProcess = toProcess[:len(toProcess)-1]

		h, exists := handlers[name]
		if !exists {
			unknown = append(unknown, name)
			continue
		}

		graph[name] = h.requires()
		for _, requirement := range h.requires() {
			if _, seen := graph[requirement]; !seen {
				toProcess = append(toProcess, requirement)
			}
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, types.NewUnknownStepsError(utils.UniqueSlice(unknown))
	}

	if len(exceptSet) > 0 {
		graph = spliceOut(graph, func(step string) bool {
			_, excluded := exceptSet[step]
			return !excluded
		})
	}

	if onlySelected {
		only := expand(requested)
		graph = spliceOut(graph, func(step string) bool {
			_, selected := only[step]
			return selected
		})
	}

	return graph, nil
}

/**
 * spliceOut contracts away every node keep() rejects: edges through a
 * removed node are replaced by the node's closest kept transitive
 * dependencies, preserving the relative ordering the removed node implied.
 * The graph may still contain cycles at this point (they are detected by
 * the resolver), so in-progress nodes resolve to nothing instead of
 * recursing forever.
 */
func spliceOut(graph map[string][]string, keep func(string) bool) map[string][]string {
	replacements := make(map[string][]string)
	inProgress := make(map[string]struct{})

	var replace func(step string) []string
	replace = func(step string) []string {
		if keep(step) {
			return []string{step}
		}
		if replacement, exists := replacements[step]; exists {
			return replacement
		}
		if _, busy := inProgress[step]; busy {
			return nil
		}
		inProgress[step] = struct{}{}

		var replacement []string
		for _, requirement := range graph[step] {
			replacement = append(replacement, replace(requirement)...)
		}
		replacement = utils.UniqueSlice(replacement)

		delete(inProgress, step)
		replacements[step] = replacement
		return replacement
	}

	spliced := make(map[string][]string, len(graph))
	for step, requirements := range graph {
		if !keep(step) {
			continue
		}

		var rewritten []string
		for _, requirement := range requirements {
			rewritten = append(rewritten, replace(requirement)...)
		}
		spliced[step] = utils.UniqueSlice(rewritten)
	}

	return spliced
}
