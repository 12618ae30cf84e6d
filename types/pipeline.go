package types

import "context"

type Pipeline interface {
	/**
	 * RegisterStep adds a named step. Options can attach requirements, a
	 * description, parameters or a parameter matrix. Name collisions are
	 * reported when the step graph is resolved, not at registration.
	 */
	RegisterStep(name string, step Step, opts ...StepOption) error
	/**
	 * RegisterStepGroup adds a zero-op step whose requirements alias the
	 * member steps.
	 */
	RegisterStepGroup(name string, requires []string, opts ...StepOption) error

	/**
	 * Execute runs the requested steps and everything they require,
	 * except the excluded ones. A nil steps slice selects every step
	 * registered as run-by-default. Returns a FailedPipelineError if any
	 * step failed, was blocked or was cancelled.
	 */
	Execute(ctx context.Context, steps, exceptSteps []string) error

	ListSteps(steps, exceptSteps []string) ([]StepInfo, error)
	/**
	 * RenderGraph returns the filtered dependency graph as a DOT string.
	 */
	RenderGraph(steps, exceptSteps []string) (string, error)

	Close(ctx context.Context) error
}
