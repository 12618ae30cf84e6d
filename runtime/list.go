package runtime

import (
	"context"
	"io"
	"sort"

	"github.com/juju/errors"

	"github.com/warriorguo/taskpipe/types"
)

/**
 * ListSteps reports every registered step in dependency order, marking the
 * ones the given selection would run. The selection obeys the same rules
 * as Execute, so listing is a dry view of the run.
 */
func (p *pipeline) ListSteps(steps, exceptSteps []string) ([]types.StepInfo, error) {
	handlers, err := p.resolveHandlers()
	if err != nil {
		return nil, errors.Trace(err)
	}

	allNames := make([]string, 0, len(handlers))
	for name := range handlers {
		allNames = append(allNames, name)
	}
	sort.Strings(allNames)

	fullGraph, err := p.buildGraph(allNames, nil, false)
	if err != nil {
		return nil, errors.Trace(err)
	}
	fullRes, err := newResolver(fullGraph)
	if err != nil {
		return nil, errors.Trace(err)
	}

	selectedGraph, err := p.buildGraph(steps, exceptSteps, p.opts.OnlySelected)
	if err != nil {
		return nil, errors.Trace(err)
	}
	selected := make(map[string]struct{}, len(selectedGraph))
	for name := range selectedGraph {
		selected[name] = struct{}{}
	}

	order := fullRes.order()
	infos := make([]types.StepInfo, 0, len(order))
	for _, name := range order {
		handler := handlers[name]
		_, isSelected := selected[name]
		infos = append(infos, types.StepInfo{
			Name:        name,
			Description: handler.description(),
			Requires:    append([]string{}, handler.requires()...),
			Selected:    isSelected,
		})
	}
	return infos, nil
}

func (p *pipeline) Close(ctx context.Context) error {
	p.procs.killAll()

	if closer, ok := p.store.(io.Closer); ok {
		return errors.Trace(closer.Close())
	}
	return nil
}
