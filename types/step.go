package types

import (
	"context"
	"io"
	"os"
)

/**
 * StepContext is handed to a step while it runs. Output() must be used for
 * anything the step prints: when several jobs run in parallel the writer
 * buffers and the executor flushes it as one block once the step finishes,
 * so output from concurrent steps never interleaves.
 */
type StepContext interface {
	context.Context

	Name() string
	Params() Data
	Output() io.Writer
	/**
	 * CacheDir is a per-step directory under the pipeline cache path.
	 * It survives across runs unless the run is started with Clean.
	 */
	CacheDir() string
	/**
	 * Artifacts collects the artifacts published under key by the direct
	 * requirements of this step.
	 */
	Artifacts(key string) []any
	/**
	 * ManageProcess registers a live child process so that a second
	 * interrupt can terminate it. The returned release function must be
	 * called once the process has exited.
	 */
	ManageProcess(proc *os.Process) (release func())
}

type Step interface {
	Run(ctx StepContext) error
}

// StepFunc adapts a plain function to the Step interface.
type StepFunc func(ctx StepContext) error

func (f StepFunc) Run(ctx StepContext) error {
	return f(ctx)
}

/**
 * Optional step capabilities, checked by interface assertion.
 */
type StepWithSetup interface {
	Step
	// Setup runs before the step body and may be skipped with NoSetup.
	Setup(ctx StepContext) error
}

type StepWithDependentSetup interface {
	Step
	/**
	 * DependentSetup runs in the context of a step that requires this
	 * one, before that dependent's body.
	 */
	DependentSetup(dependent StepContext) error
}

type StepWithArtifacts interface {
	Step
	// GatherArtifacts exposes values to steps that require this one.
	GatherArtifacts(ctx StepContext) map[string][]any
}

type StepWithCleanup interface {
	Step
	// Clean runs during a clean pass, before any step executes.
	Clean(ctx StepContext) error
}
