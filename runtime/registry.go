package runtime

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/juju/errors"
	"github.com/warriorguo/taskpipe/store"
	"github.com/warriorguo/taskpipe/types"
)

var (
	_ types.Pipeline = &pipeline{}
)

func NewPipeline(s store.Store, opts *types.PipelineOptions) types.Pipeline {
	return &pipeline{
		opts:  opts,
		store: s,
		procs: newProcessManager(),
	}
}

type registeredStep struct {
	name string
	step types.Step
	opts *types.StepOptions
}

type registeredGroup struct {
	name string
	opts *types.StepOptions
}

type pipeline struct {
	opts  *types.PipelineOptions
	store store.Store
	procs *processManager

	mu       sync.Mutex
	steps    []registeredStep
	groups   []registeredGroup
	resolved map[string]stepHandler
}

func (p *pipeline) RegisterStep(name string, step types.Step, opts ...types.StepOption) error {
	if name == "" {
		return errors.BadRequestf("step name is empty")
	}
	if step == nil {
		return errors.BadRequestf("step %s is nil", name)
	}

	options := types.NewStepOptions()
	for _, opt := range opts {
		opt(options)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.resolved != nil {
		return errors.MethodNotAllowedf("steps already resolved, cannot register %s", name)
	}
	p.steps = append(p.steps, registeredStep{name: name, step: step, opts: options})
	return nil
}

func (p *pipeline) RegisterStepGroup(name string, requires []string, opts ...types.StepOption) error {
	if name == "" {
		return errors.BadRequestf("step group name is empty")
	}

	options := types.NewStepOptions()
	options.Requires = append([]string{}, requires...)
	for _, opt := range opts {
		opt(options)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.resolved != nil {
		return errors.MethodNotAllowedf("steps already resolved, cannot register %s", name)
	}
	p.groups = append(p.groups, registeredGroup{name: name, opts: options})
	return nil
}

/**
 * resolveHandlers materializes registrations into handlers, lazily and
 * once. A step with a parameter matrix fans out into name[id] instances
 * plus an aliasing group under the plain name. Duplicates surface here,
 * not at registration time.
 */
func (p *pipeline) resolveHandlers() (map[string]stepHandler, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.resolved != nil {
		return p.resolved, nil
	}

	handlers := make(map[string]stepHandler)

	for _, reg := range p.steps {
		for _, h := range p.instantiate(reg) {
			if _, exists := handlers[h.name()]; exists {
				return nil, types.NewDuplicateStepError(h.name())
			}
			handlers[h.name()] = h
		}
	}

	for _, reg := range p.groups {
		if _, exists := handlers[reg.name]; exists {
			return nil, types.NewDuplicateStepError(reg.name)
		}
		handlers[reg.name] = &stepGroupHandler{
			stepName:  reg.name,
			desc:      reg.opts.Description,
			members:   append([]string{}, reg.opts.Requires...),
			byDefault: reg.opts.RunByDefault,
			owner:     p,
		}
	}

	p.resolved = handlers
	return handlers, nil
}

func (p *pipeline) instantiate(reg registeredStep) []stepHandler {
	if len(reg.opts.Matrix) == 0 {
		return []stepHandler{newStepHandler(p, reg.name, reg.step, reg.opts, reg.opts.Params)}
	}

	handlers := make([]stepHandler, 0, len(reg.opts.Matrix)+1)
	members := make([]string, 0, len(reg.opts.Matrix))

	for _, params := range reg.opts.Matrix {
		name := fmt.Sprintf("%s[%s]", reg.name, paramsID(params))
		members = append(members, name)
		handlers = append(handlers, newStepHandler(p, name, reg.step, reg.opts, params))
	}

	handlers = append(handlers, &stepGroupHandler{
		stepName:  reg.name,
		desc:      reg.opts.Description,
		members:   members,
		byDefault: reg.opts.RunByDefault,
		owner:     p,
	})
	return handlers
}

// paramsID derives a stable instance id from a parameter set.
func paramsID(params types.Data) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, params[key]))
	}
	return strings.Join(parts, ",")
}
