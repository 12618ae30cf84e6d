package runtime

import (
	"context"
	"os"
	"path/filepath"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/taskpipe/types"
)

const (
	cachePrefix = "/cache/"
)

/**
 * stepHandler is the registry's view of one schedulable step. Groups and
 * real steps share it; the executor only sees this contract plus timing
 * and pass/fail/skip, never what a step actually does.
 */
type stepHandler interface {
	name() string
	description() string
	requires() []string
	runByDefault() bool

	execute(rc *runContext) error
	clean(ctx context.Context) error
}

var (
	_ stepHandler = &baseStepHandler{}
	_ stepHandler = &stepGroupHandler{}
)

func newStepHandler(p *pipeline, name string, step types.Step, opts *types.StepOptions, params types.Data) *baseStepHandler {
	return &baseStepHandler{
		stepName:  name,
		desc:      opts.Description,
		reqs:      append([]string{}, opts.Requires...),
		byDefault: opts.RunByDefault,
		step:      step,
		// each instance owns its parameters, shared defaults can never
		// be mutated across instances
		params: params.Clone(),
		owner:  p,
	}
}

type baseStepHandler struct {
	stepName  string
	desc      string
	reqs      []string
	byDefault bool
	step      types.Step
	params    types.Data
	owner     *pipeline
}

func (h *baseStepHandler) name() string        { return h.stepName }
func (h *baseStepHandler) description() string { return h.desc }
func (h *baseStepHandler) requires() []string  { return h.reqs }
func (h *baseStepHandler) runByDefault() bool  { return h.byDefault }

func (h *baseStepHandler) execute(rc *runContext) error {
	if !h.owner.opts.NoSetup {
		if setup, ok := h.step.(types.StepWithSetup); ok {
			if err := setup.Setup(rc); err != nil {
				return errors.Trace(err)
			}
		}

		// requirements prepare the environment of their dependents
		if err := h.runDependentSetups(rc); err != nil {
			return errors.Trace(err)
		}
	}

	if h.owner.opts.SetupOnly {
		return nil
	}

	return h.step.Run(rc)
}

/**
 * runDependentSetups invokes DependentSetup on every required step. Group
 * requirements are flattened to their members, so a step behind a group or
 * a matrix alias still prepares its dependents. Each step runs once even
 * when reachable through several groups.
 */
func (h *baseStepHandler) runDependentSetups(rc *runContext) error {
	seen := map[string]bool{}
	var visit func(requirements []string) error
	visit = func(requirements []string) error {
		for _, requirement := range requirements {
			if seen[requirement] {
				continue
			}
			seen[requirement] = true

			required, exists := h.owner.resolvedHandler(requirement)
			if !exists {
				continue
			}
			if group, ok := required.(*stepGroupHandler); ok {
				if err := visit(group.members); err != nil {
					return errors.Trace(err)
				}
				continue
			}
			base, ok := required.(*baseStepHandler)
			if !ok {
				continue
			}
			if dependentSetup, ok := base.step.(types.StepWithDependentSetup); ok {
				if err := dependentSetup.DependentSetup(rc); err != nil {
					return errors.Trace(err)
				}
			}
		}
		return nil
	}
	return visit(h.reqs)
}

func (h *baseStepHandler) clean(ctx context.Context) error {
	if cleanup, ok := h.step.(types.StepWithCleanup); ok {
		rc := newRunContext(ctx, h.owner, h, nil)
		if err := cleanup.Clean(rc); err != nil {
			return errors.Trace(err)
		}
	}

	dir := filepath.Join(h.owner.opts.CachePath, "cache", sanitizeName(h.stepName))
	if err := os.RemoveAll(dir); err != nil {
		return errors.Annotatef(err, "failed to remove cache dir %s", dir)
	}
	return errors.Trace(h.owner.store.Remove(ctx, cachePrefix, h.stepName))
}

/**
 * stepGroupHandler is a zero-op step whose requirements alias its member
 * steps. It still passes through the scheduler so ordering holds, but
 * executing it does no work.
 */
type stepGroupHandler struct {
	stepName  string
	desc      string
	members   []string
	byDefault bool
	owner     *pipeline
}

func (h *stepGroupHandler) name() string        { return h.stepName }
func (h *stepGroupHandler) description() string { return h.desc }
func (h *stepGroupHandler) requires() []string  { return h.members }
func (h *stepGroupHandler) runByDefault() bool  { return h.byDefault }

func (h *stepGroupHandler) execute(rc *runContext) error {
	log.Debugf("step group %s: all members done", h.stepName)
	return nil
}

func (h *stepGroupHandler) clean(ctx context.Context) error {
	return nil
}

// resolvedHandler looks a handler up without re-resolving.
func (p *pipeline) resolvedHandler(name string) (stepHandler, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.resolved == nil {
		return nil, false
	}
	h, exists := p.resolved[name]
	return h, exists
}
