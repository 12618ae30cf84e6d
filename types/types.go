package types

import "time"

type JobResult int32

const (
	ResultNone      JobResult = 0
	ResultSuccess   JobResult = 1
	ResultFailed    JobResult = 2
	ResultBlocked   JobResult = 3
	ResultCancelled JobResult = 4
	ResultSkipped   JobResult = 5
)

func (r JobResult) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultFailed:
		return "failed"
	case ResultBlocked:
		return "blocked"
	case ResultCancelled:
		return "cancelled"
	case ResultSkipped:
		return "skipped"
	}
	return "none"
}

/**
 * StepResult is the single result record a step accumulates during one
 * pipeline execution. Blocked and cancelled steps never ran, so their
 * Duration is always zero.
 */
type StepResult struct {
	Outcome  JobResult
	Duration time.Duration
	Err      error
}

/**
 * StepRecord is the serializable form of a StepResult, written to the
 * store under the run prefix for post-run inspection.
 */
type StepRecord struct {
	Step       string `json:",omitempty"`
	Outcome    string `json:",omitempty"`
	DurationMS int64  `json:",omitempty"`
	Error      string `json:",omitempty"`
}

type StepInfo struct {
	Name        string
	Description string
	Requires    []string
	Selected    bool
}
