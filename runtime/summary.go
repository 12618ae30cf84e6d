package runtime

import (
	"context"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/warriorguo/taskpipe/types"
	"github.com/warriorguo/taskpipe/utils"
)

func (p *pipeline) logSummary(
	ctx context.Context,
	runID string,
	sched *scheduler,
	order []string,
	graph map[string][]string,
	startedAt time.Time,
) error {
	log.Info("*** steps summary ***")

	for _, name := range order {
		result := sched.results[name]

		switch result.Outcome {
		case types.ResultSuccess:
			log.Infof("\t[%s] %s: success", utils.FormatDuration(result.Duration), name)

		case types.ResultSkipped:
			log.Warnf("\t[%s] %s: skipped: %v", utils.FormatDuration(result.Duration), name, result.Err)

		case types.ResultFailed:
			log.Errorf("\t[%s] %s: error: %v", utils.FormatDuration(result.Duration), name, result.Err)

		case types.ResultBlocked:
			log.Warnf(
				"\t[%s] %s: blocked by %s",
				utils.ZeroDurationPlaceholder, name,
				strings.Join(blockingRequirements(name, sched, graph), ", "),
			)

		case types.ResultCancelled:
			log.Warnf("\t[%s] %s: cancelled", utils.ZeroDurationPlaceholder, name)

		default:
			// only reachable if the run loop exited with work outstanding
			log.Warnf("\t[%s] %s: did not run", utils.ZeroDurationPlaceholder, name)
		}

		p.saveRecord(ctx, runID, name, result)
	}

	p.logSlowestChain(order, graph, sched.results)

	log.Infof("all steps ran in %s", utils.FormatDuration(time.Since(startedAt)))

	failed := len(sched.failed)
	blocked := len(sched.blocked)
	cancelled := len(sched.cancelled)
	if failed+blocked+cancelled > 0 {
		return types.NewFailedPipelineError(failed, blocked, cancelled)
	}
	return nil
}

/**
 * blockingRequirements names the direct requirements that kept a blocked
 * step from running. The scheduler severed its edges when it blocked the
 * step, so this reads the immutable build-time graph instead.
 */
func blockingRequirements(step string, sched *scheduler, graph map[string][]string) []string {
	blocking := make([]string, 0, len(graph[step]))
	for _, requirement := range graph[step] {
		_, isFailed := sched.failed[requirement]
		_, isBlocked := sched.blocked[requirement]
		if isFailed || isBlocked {
			blocking = append(blocking, requirement)
		}
	}
	sort.Strings(blocking)
	return blocking
}

func (p *pipeline) saveRecord(ctx context.Context, runID, name string, result types.StepResult) {
	record := types.StepRecord{
		Step:       name,
		Outcome:    result.Outcome.String(),
		DurationMS: result.Duration.Milliseconds(),
	}
	if result.Err != nil {
		record.Error = result.Err.Error()
	}

	b, err := utils.Serialize(record)
	if err != nil {
		log.Errorf("failed to serialize run record for step %s: %v", name, err)
		return
	}
	if err := p.store.Set(ctx, runsPrefix+runID, name, b); err != nil {
		log.Errorf("failed to persist run record for step %s: %v", name, err)
	}
}

type dependencyChain struct {
	steps []string
	total time.Duration
}

/**
 * computeSlowestChains finds, for every step, the dependency chain ending
 * at that step whose cumulative duration is largest. Chains are the lower
 * bound on wall time no amount of parallelism can beat. Requirements are
 * visited in slice order, so ties resolve to the first requirement listed.
 */
func computeSlowestChains(
	graph map[string][]string,
	results map[string]types.StepResult,
) map[string]dependencyChain {
	memo := make(map[string]dependencyChain, len(graph))

	var compute func(step string) dependencyChain
	compute = func(step string) dependencyChain {
		if chain, done := memo[step]; done {
			return chain
		}

		own := results[step].Duration
		chain := dependencyChain{steps: []string{step}, total: own}

		for i, requirement := range graph[step] {
			sub := compute(requirement)
			if i == 0 || sub.total > chain.total-own {
				chain.total = own + sub.total
				chain.steps = append([]string{step}, sub.steps...)
			}
		}

		memo[step] = chain
		return chain
	}

	for step := range graph {
		compute(step)
	}
	return memo
}

func (p *pipeline) logSlowestChain(
	order []string,
	graph map[string][]string,
	results map[string]types.StepResult,
) {
	if len(graph) <= 1 {
		return
	}

	chains := computeSlowestChains(graph, results)

	var slowest dependencyChain
	for _, step := range order {
		chain := chains[step]
		log.Debugf(
			"slowest chain for %s: %s (%s)",
			step, strings.Join(chain.steps, " <- "), utils.FormatDuration(chain.total),
		)
		if slowest.steps == nil || chain.total > slowest.total {
			slowest = chain
		}
	}

	if len(slowest.steps) == 0 {
		return
	}
	log.Infof(
		"slowest dependency chain: %s (%s)",
		strings.Join(slowest.steps, " <- "), utils.FormatDuration(slowest.total),
	)
}
