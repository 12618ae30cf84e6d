package types

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
)

const (
	// ExitOK means every selected step succeeded.
	ExitOK = 0
	// ExitPipelineFailed means some step failed, was blocked or cancelled.
	ExitPipelineFailed = 1
	// ExitUserError means a configuration or usage error was detected
	// before any step ran.
	ExitUserError = 2
)

var (
	_ error = &CyclicDependenciesError{}
	_ error = &UnknownStepsError{}
	_ error = &DuplicateStepError{}
	_ error = &UnavailableInterpreterError{}
	_ error = &FailedPipelineError{}
)

/**
 * PipelineError is implemented by every error the pipeline itself raises.
 * The exit code distinguishes a failed run (1) from a user/config error (2).
 */
type PipelineError interface {
	error
	ExitCode() int
}

/**
 * ExitCode maps an error to a process exit status. Errors that are not
 * PipelineError are treated as user/config errors.
 */
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var pe PipelineError
	if errors.As(err, &pe) {
		return pe.ExitCode()
	}
	return ExitUserError
}

func NewCyclicDependenciesError(cycle []string) error {
	return &CyclicDependenciesError{Cycle: cycle}
}

// CyclicDependenciesError carries the literal cycle path, first node repeated
// at the end.
type CyclicDependenciesError struct {
	Cycle []string
}

func (e *CyclicDependenciesError) Error() string {
	return fmt.Sprintf("cyclic dependencies between steps: %s", strings.Join(e.Cycle, " --> "))
}

func (e *CyclicDependenciesError) ExitCode() int { return ExitUserError }

func NewUnknownStepsError(steps []string) error {
	return &UnknownStepsError{Steps: steps}
}

// UnknownStepsError aggregates every unregistered name found while building
// the graph, requested, excluded or required alike.
type UnknownStepsError struct {
	Steps []string
}

func (e *UnknownStepsError) Error() string {
	return fmt.Sprintf("unknown steps: %s", strings.Join(e.Steps, ", "))
}

func (e *UnknownStepsError) ExitCode() int { return ExitUserError }

func NewDuplicateStepError(name string) error {
	return &DuplicateStepError{Name: name}
}

type DuplicateStepError struct {
	Name string
}

func (e *DuplicateStepError) Error() string {
	return fmt.Sprintf("a step with the name %q has already been registered", e.Name)
}

func (e *DuplicateStepError) ExitCode() int { return ExitUserError }

func NewUnavailableInterpreterError(interpreter string) error {
	return &UnavailableInterpreterError{Interpreter: interpreter}
}

/**
 * UnavailableInterpreterError marks a step whose interpreter or tool could
 * not be found. With SkipMissingInterpreters the executor records the step
 * as skipped instead of failed.
 */
type UnavailableInterpreterError struct {
	Interpreter string
}

func (e *UnavailableInterpreterError) Error() string {
	return fmt.Sprintf("missing interpreter: %s", e.Interpreter)
}

func (e *UnavailableInterpreterError) ExitCode() int { return ExitUserError }

func IsUnavailableInterpreter(err error) bool {
	var uie *UnavailableInterpreterError
	return errors.As(err, &uie)
}

func NewFailedPipelineError(failed, blocked, cancelled int) error {
	return &FailedPipelineError{Failed: failed, Blocked: blocked, Cancelled: cancelled}
}

// FailedPipelineError is the single error Execute can return once the run
// loop has started.
type FailedPipelineError struct {
	Failed    int
	Blocked   int
	Cancelled int
}

func (e *FailedPipelineError) Error() string {
	parts := make([]string, 0, 3)
	if e.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%s failed", pluralizeJobs(e.Failed)))
	}
	if e.Blocked > 0 {
		parts = append(parts, fmt.Sprintf("%s could not run", pluralizeJobs(e.Blocked)))
	}
	if e.Cancelled > 0 {
		parts = append(parts, fmt.Sprintf("%s were cancelled", pluralizeJobs(e.Cancelled)))
	}
	return strings.Join(parts, ", ")
}

func (e *FailedPipelineError) ExitCode() int { return ExitPipelineFailed }

func pluralizeJobs(n int) string {
	if n > 1 {
		return fmt.Sprintf("%d jobs", n)
	}
	return "1 job"
}
